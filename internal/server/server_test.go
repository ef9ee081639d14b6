package server

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/devenv/internal/jsonrpc"
	"github.com/thoreinstein/devenv/internal/logging"
	"github.com/thoreinstein/devenv/internal/probe"
	"github.com/thoreinstein/devenv/internal/project"
)

type mockProber struct {
	mock.Mock
}

func (m *mockProber) Detect(ctx context.Context) probe.Info {
	return m.Called(ctx).Get(0).(probe.Info)
}

func (m *mockProber) Refresh(ctx context.Context) probe.Info {
	return m.Called(ctx).Get(0).(probe.Info)
}

var linuxInfo = probe.Info{
	OSType:           "linux",
	Shell:            "bash",
	ShellSyntax:      probe.SyntaxBash,
	PythonCmd:        "python3",
	Architecture:     "x86_64",
	PythonVersion:    "3.12.1",
	WorkingDirectory: "/home/dev/app",
	ProjectRoot:      "/home/dev/app",
	User:             "dev",
	HomeDirectory:    "/home/dev",
}

var windowsInfo = probe.Info{
	OSType:           "windows",
	Shell:            "powershell",
	ShellSyntax:      probe.SyntaxPowerShell,
	PythonCmd:        "python",
	Architecture:     "AMD64",
	PythonVersion:    "3.12.1",
	WorkingDirectory: `C:\dev\app`,
	User:             "dev",
	HomeDirectory:    `C:\Users\dev`,
}

func newTestServer(t *testing.T, info probe.Info) (*Server, *mockProber) {
	t.Helper()
	p := &mockProber{}
	p.On("Detect", mock.Anything).Return(info).Maybe()
	p.On("Refresh", mock.Anything).Return(info).Maybe()
	s := New(Options{
		Name:    "test-server",
		Version: "1.2.3",
		Prober:  p,
		Logger:  logging.NewDiscard(),
	})
	return s, p
}

func call(t *testing.T, s *Server, msg string) *jsonrpc.Response {
	t.Helper()
	return s.Handle(context.Background(), []byte(msg))
}

func initialize(t *testing.T, s *Server) {
	t.Helper()
	resp := call(t, s, `{"jsonrpc":"2.0","id":0,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"test","version":"0"}}}`)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)
}

func callTool(t *testing.T, s *Server, name string, args any) CallToolResult {
	t.Helper()
	params, err := json.Marshal(map[string]any{"name": name, "arguments": args})
	require.NoError(t, err)
	msg := `{"jsonrpc":"2.0","id":9,"method":"tools/call","params":` + string(params) + `}`
	resp := call(t, s, msg)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error, "unexpected protocol error")
	var result CallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Content, 1)
	return result
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		want      string
	}{
		{"supported old version", "2024-11-05", "2024-11-05"},
		{"supported latest", "2025-06-18", "2025-06-18"},
		{"unknown version", "1999-01-01", LatestProtocolVersion},
		{"missing version", "", LatestProtocolVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, linuxInfo)
			resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"`+tt.requested+`"}}`)
			require.NotNil(t, resp)
			require.Nil(t, resp.Error)

			var result initializeResult
			require.NoError(t, json.Unmarshal(resp.Result, &result))
			assert.Equal(t, tt.want, result.ProtocolVersion)
			assert.Equal(t, "test-server", result.ServerInfo.Name)
			assert.Equal(t, "1.2.3", result.ServerInfo.Version)
			assert.NotEmpty(t, result.Instructions)
			assert.True(t, s.Initialized())
			assert.Equal(t, tt.want, s.ProtocolVersion())
		})
	}
}

func TestNotInitialized(t *testing.T) {
	s, _ := newTestServer(t, linuxInfo)

	for _, method := range []string{"tools/list", "tools/call"} {
		resp := call(t, s, `{"jsonrpc":"2.0","id":5,"method":"`+method+`","params":{}}`)
		require.NotNil(t, resp)
		require.NotNil(t, resp.Error, method)
		assert.Equal(t, jsonrpc.CodeServerNotInitialized, resp.Error.Code, method)
		assert.Equal(t, int64(5), resp.ID.Value())
	}

	resp := call(t, s, `{"jsonrpc":"2.0","id":6,"method":"ping"}`)
	require.NotNil(t, resp)
	assert.Nil(t, resp.Error, "ping is allowed before initialize")
	assert.JSONEq(t, `{}`, string(resp.Result))
}

func TestProtocolErrors(t *testing.T) {
	s, _ := newTestServer(t, linuxInfo)
	initialize(t, s)

	tests := []struct {
		name     string
		msg      string
		wantCode int
		wantNull bool
	}{
		{"malformed json", `{"jsonrpc":"2.0","id":1,`, jsonrpc.CodeParseError, true},
		{"wrong version", `{"jsonrpc":"1.0","id":2,"method":"ping"}`, jsonrpc.CodeInvalidRequest, false},
		{"missing method", `{"jsonrpc":"2.0","id":3}`, jsonrpc.CodeInvalidRequest, false},
		{"unknown method", `{"jsonrpc":"2.0","id":4,"method":"resources/list"}`, jsonrpc.CodeMethodNotFound, false},
		{"unknown tool", `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"rm_rf"}}`, jsonrpc.CodeInvalidParams, false},
		{"bad arguments", `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"get_command_syntax","arguments":{"operation":7}}}`, jsonrpc.CodeInvalidParams, false},
		{"missing call params", `{"jsonrpc":"2.0","id":7,"method":"tools/call"}`, jsonrpc.CodeInvalidParams, false},
		{"batch", `[{"jsonrpc":"2.0","id":8,"method":"ping"}]`, jsonrpc.CodeInvalidRequest, true},
		{"fractional id", `{"jsonrpc":"2.0","id":1.5,"method":"ping"}`, jsonrpc.CodeInvalidRequest, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, s, tt.msg)
			require.NotNil(t, resp)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantNull, !resp.ID.IsValid())
		})
	}
}

func TestNotificationsGetNoResponse(t *testing.T) {
	s, _ := newTestServer(t, linuxInfo)
	initialize(t, s)

	for _, msg := range []string{
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":3}}`,
		`{"jsonrpc":"2.0","method":"notifications/unknown"}`,
		`{"jsonrpc":"2.0","id":1,"result":{}}`,
	} {
		assert.Nil(t, call(t, s, msg), msg)
	}
}

func TestToolsList(t *testing.T) {
	s, _ := newTestServer(t, linuxInfo)
	initialize(t, s)

	resp := call(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result struct {
		Tools []struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.Equal(t, "object", tool.InputSchema["type"], tool.Name)
	}
	assert.Equal(t, []string{
		"detect_environment", "get_command_syntax", "format_command",
		"get_project_context", "get_project_commands",
	}, names)

	syntaxSchema := result.Tools[1].InputSchema
	assert.Equal(t, []any{"operation"}, syntaxSchema["required"])
}

func TestDetectEnvironmentTool(t *testing.T) {
	s, p := newTestServer(t, linuxInfo)
	initialize(t, s)

	res := callTool(t, s, "detect_environment", map[string]any{})
	assert.False(t, res.IsError)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &got))
	for _, key := range []string{"os_type", "shell", "python_cmd"} {
		assert.Contains(t, got, key)
	}
	assert.Equal(t, "python3", got["python_cmd"])

	res = callTool(t, s, "detect_environment", map[string]any{"format_type": "summary"})
	assert.Contains(t, res.Content[0].Text, "Environment Summary:")

	res = callTool(t, s, "detect_environment", map[string]any{"format_type": "copilot"})
	assert.Contains(t, res.Content[0].Text, `"separator": "\u0026\u0026"`)

	res = callTool(t, s, "detect_environment", map[string]any{"format_type": "xml"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "Hint:")

	callTool(t, s, "detect_environment", map[string]any{"refresh": true})
	p.AssertCalled(t, "Refresh", mock.Anything)
}

func TestGetCommandSyntaxTool(t *testing.T) {
	tests := []struct {
		name   string
		info   probe.Info
		args   map[string]any
		want   []string
		isErr  bool
		reject []string
	}{
		{
			name: "linux shell",
			info: linuxInfo,
			args: map[string]any{"operation": "test"},
			want: []string{"python3 -m pytest"},
		},
		{
			name:   "windows shell",
			info:   windowsInfo,
			args:   map[string]any{"operation": "test"},
			want:   []string{"python -m pytest"},
			reject: []string{"python3", "&&"},
		},
		{
			name: "explanation",
			info: linuxInfo,
			args: map[string]any{"operation": "install", "format_type": "explanation"},
			want: []string{"Operation: install", "Command: ", "Environment: linux/bash"},
		},
		{
			name: "caller variables",
			info: linuxInfo,
			args: map[string]any{"operation": "add_package", "variables": map[string]string{"package": "requests"}},
			want: []string{"requests"},
		},
		{
			name: "pi target",
			info: windowsInfo,
			args: map[string]any{"operation": "test", "target": "pi", "format_type": "json"},
			want: []string{`"family": "pi"`, "python3"},
		},
		{
			name:  "unknown operation",
			info:  linuxInfo,
			args:  map[string]any{"operation": "teleport"},
			want:  []string{"Error:", "teleport"},
			isErr: true,
		},
		{
			name:  "missing operation",
			info:  linuxInfo,
			args:  map[string]any{},
			want:  []string{"operation is required"},
			isErr: true,
		},
		{
			name:  "bad target",
			info:  linuxInfo,
			args:  map[string]any{"operation": "test", "target": "mars"},
			isErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.info)
			initialize(t, s)

			res := callTool(t, s, "get_command_syntax", tt.args)
			assert.Equal(t, tt.isErr, res.IsError, res.Content[0].Text)
			for _, w := range tt.want {
				assert.Contains(t, res.Content[0].Text, w)
			}
			for _, r := range tt.reject {
				assert.NotContains(t, res.Content[0].Text, r)
			}
		})
	}
}

func TestFormatCommandTool(t *testing.T) {
	s, _ := newTestServer(t, windowsInfo)
	initialize(t, s)

	res := callTool(t, s, "format_command", map[string]any{
		"template": "cd {project_root} {shell_sep} {python_cmd} -m {module}",
		"variables": map[string]string{"module": "app"},
	})
	assert.False(t, res.IsError)
	assert.Equal(t, `cd C:\dev\app ; python -m app`, res.Content[0].Text)

	res = callTool(t, s, "format_command", map[string]any{"command_template": "{pip_cmd} install x"})
	assert.Equal(t, "pip install x", res.Content[0].Text)

	res = callTool(t, s, "format_command", map[string]any{"template": "run {missing}"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "missing")
	assert.NotContains(t, res.Content[0].Text, "run ")

	res = callTool(t, s, "format_command", map[string]any{"template": "echo {oops"})
	assert.True(t, res.IsError)

	res = callTool(t, s, "format_command", map[string]any{})
	assert.True(t, res.IsError)
}

func TestGetProjectContextTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("flask==3.0\n"), 0o644))

	info := linuxInfo
	info.ProjectRoot = dir
	s, _ := newTestServer(t, info)
	initialize(t, s)

	res := callTool(t, s, "get_project_context", map[string]any{})
	require.False(t, res.IsError, res.Content[0].Text)
	var pc project.Context
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &pc))
	assert.Equal(t, dir, pc.Root)
	assert.Contains(t, pc.Frameworks, "Flask")
	assert.NotEmpty(t, pc.Dependencies)

	res = callTool(t, s, "get_project_context", map[string]any{"analyze_dependencies": false, "include_files": true})
	pc = project.Context{}
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &pc))
	assert.Empty(t, pc.Dependencies)
	assert.Contains(t, pc.Files, "requirements.txt")

	res = callTool(t, s, "get_project_context", map[string]any{"path": filepath.Join(dir, "nope")})
	assert.True(t, res.IsError)
}

func TestGetProjectContextTool_UsesAnalyzer(t *testing.T) {
	var gotRoot string
	var gotOpts project.Options
	p := &mockProber{}
	p.On("Detect", mock.Anything).Return(linuxInfo)
	s := New(Options{
		Prober:   p,
		MaxFiles: 7,
		Analyzer: func(_ context.Context, root string, opts project.Options) (*project.Context, error) {
			gotRoot, gotOpts = root, opts
			return &project.Context{Root: root, ProjectType: "python"}, nil
		},
	})
	initialize(t, s)

	callTool(t, s, "get_project_context", nil)
	assert.Equal(t, "/home/dev/app", gotRoot)
	assert.True(t, gotOpts.AnalyzeDependencies)
	assert.Equal(t, 7, gotOpts.MaxFiles)
	p.AssertExpectations(t)
}

func TestGetProjectCommandsTool(t *testing.T) {
	info := linuxInfo
	info.IsRaspberryPi = true
	s, _ := newTestServer(t, info)
	initialize(t, s)

	res := callTool(t, s, "get_project_commands", nil)
	require.False(t, res.IsError)

	var out struct {
		Environment map[string]string `json:"environment"`
		Commands    []struct {
			Name    string `json:"name"`
			Command string `json:"command"`
		} `json:"commands"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &out))
	assert.Equal(t, "linux", out.Environment["os"])

	var names []string
	for _, c := range out.Commands {
		names = append(names, c.Name)
		assert.NotContains(t, c.Command, "{", c.Name)
	}
	assert.Contains(t, names, "Test")
	assert.Contains(t, names, "View Logs")
}

func TestRecoveryMiddleware(t *testing.T) {
	p := &mockProber{}
	p.On("Detect", mock.Anything).Panic("probe exploded")
	s := New(Options{Prober: p})
	initialize(t, s)

	resp := call(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"detect_environment"}}`)
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeInternalError, resp.Error.Code)

	// The server keeps working after a panic.
	resp = call(t, s, `{"jsonrpc":"2.0","id":4,"method":"ping"}`)
	require.NotNil(t, resp)
	assert.Nil(t, resp.Error)
}

func TestCustomMiddlewareOrder(t *testing.T) {
	var seen []string
	record := func(tag string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, method string, params jsonrpc.RawMessage) (any, error) {
				seen = append(seen, tag+":"+method)
				return next(ctx, method, params)
			}
		}
	}
	s := New(Options{
		Prober:     &mockProber{},
		Middleware: []Middleware{record("a"), record("b")},
	})

	call(t, s, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	assert.Equal(t, []string{"a:ping", "b:ping"}, seen)
}

func TestReset(t *testing.T) {
	s, _ := newTestServer(t, linuxInfo)
	initialize(t, s)
	before := s.SessionID()

	s.Reset()
	assert.False(t, s.Initialized())
	assert.NotEqual(t, before, s.SessionID())
	assert.Empty(t, s.ProtocolVersion())
}

func TestErrorResultWithoutHint(t *testing.T) {
	res := errorResult(plainError{})
	assert.True(t, res.IsError)
	assert.True(t, strings.HasPrefix(res.Content[0].Text, "Error: "))
	assert.NotContains(t, res.Content[0].Text, "Hint:")
}

type plainError struct{}

func (plainError) Error() string { return "plain failure" }
