package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/jsonrpc"
	"github.com/thoreinstein/devenv/internal/logging"
	"github.com/thoreinstein/devenv/internal/probe"
	"github.com/thoreinstein/devenv/internal/project"
	"github.com/thoreinstein/devenv/internal/syntax"
)

// Tool is the name of a tool exposed through tools/call.
type Tool string

const (
	ToolDetectEnvironment  Tool = "detect_environment"
	ToolGetCommandSyntax   Tool = "get_command_syntax"
	ToolFormatCommand      Tool = "format_command"
	ToolGetProjectContext  Tool = "get_project_context"
	ToolGetProjectCommands Tool = "get_project_commands"
)

// Tools lists every tool in the order tools/list reports them.
func Tools() []Tool {
	return []Tool{
		ToolDetectEnvironment,
		ToolGetCommandSyntax,
		ToolFormatCommand,
		ToolGetProjectContext,
		ToolGetProjectCommands,
	}
}

func parseTool(name string) (Tool, bool) {
	t := Tool(name)
	return t, slices.Contains(Tools(), t)
}

// Output formats accepted by the tools.
const (
	FormatJSON        = "json"
	FormatSummary     = "summary"
	FormatCopilot     = "copilot"
	FormatShell       = "shell"
	FormatExplanation = "explanation"
	FormatExamples    = "examples"
)

// ToolDefinition is one entry of the tools/list result.
type ToolDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

type listToolsResult struct {
	Tools []ToolDefinition `json:"tools"`
}

func stringEnum(description, def string, values ...string) *jsonschema.Schema {
	s := &jsonschema.Schema{Type: "string", Description: description}
	for _, v := range values {
		s.Enum = append(s.Enum, v)
	}
	if def != "" {
		s.Default = json.RawMessage(fmt.Sprintf("%q", def))
	}
	return s
}

func variablesSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Description:          description,
		AdditionalProperties: &jsonschema.Schema{Type: "string"},
	}
}

func objectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func operationNames() []string {
	ops := syntax.Operations()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = string(op)
	}
	return names
}

// Definition returns the tools/list entry for t.
func (t Tool) Definition() ToolDefinition {
	switch t {
	case ToolDetectEnvironment:
		return ToolDefinition{
			Name:        string(t),
			Description: "Detect the operating system, shell, Python interpreter and project root of the machine the assistant is working on",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"format_type": stringEnum("Output format", FormatJSON, FormatJSON, FormatSummary, FormatCopilot),
				"refresh":     {Type: "boolean", Description: "Ignore the cached result and probe again"},
			}),
		}
	case ToolGetCommandSyntax:
		return ToolDefinition{
			Name:        string(t),
			Description: "Get the correct command syntax for a development operation in the current environment",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"operation":   stringEnum("Operation to look up", "", operationNames()...),
				"target":      stringEnum("Where the command will run", syntax.TargetLocal, syntax.TargetLocal, syntax.TargetPi),
				"format_type": stringEnum("Output format", FormatShell, FormatShell, FormatExplanation, FormatExamples, FormatJSON),
				"variables":   variablesSchema("Values for template placeholders such as package, name, value or service"),
			}, "operation"),
		}
	case ToolFormatCommand:
		return ToolDefinition{
			Name:        string(t),
			Description: "Expand {placeholder} variables in a command template using environment values",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"template":  {Type: "string", Description: "Command template, for example \"cd {project_root} {shell_sep} {python_cmd} -m pytest\""},
				"variables": variablesSchema("Additional variables; these override the environment values"),
			}, "template"),
		}
	case ToolGetProjectContext:
		return ToolDefinition{
			Name:        string(t),
			Description: "Describe the project: languages, frameworks, package managers, dependencies and git state",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"path":                 {Type: "string", Description: "Project directory; defaults to the detected project root"},
				"include_files":        {Type: "boolean", Description: "List project files", Default: json.RawMessage("false")},
				"analyze_dependencies": {Type: "boolean", Description: "Parse dependency manifests", Default: json.RawMessage("true")},
			}),
		}
	case ToolGetProjectCommands:
		return ToolDefinition{
			Name:        string(t),
			Description: "List common commands for the current project, formatted for this environment",
			InputSchema: objectSchema(nil),
		}
	default:
		return ToolDefinition{Name: string(t)}
	}
}

// ToolDefinitions returns the tools/list payload.
func ToolDefinitions() []ToolDefinition {
	tools := Tools()
	defs := make([]ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = t.Definition()
	}
	return defs
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult is the tools/call result.
type CallToolResult struct {
	Content []textContent `json:"content"`
	IsError bool          `json:"isError"`
}

func textResult(text string) CallToolResult {
	return CallToolResult{Content: []textContent{{Type: "text", Text: text}}}
}

// errorResult renders a tool failure for the model, including any hint
// attached to the error.
func errorResult(err error) CallToolResult {
	text := "Error: " + err.Error()
	if hint := errors.Suggestion(err); hint != "" {
		text += "\nHint: " + hint
	}
	r := textResult(text)
	r.IsError = true
	return r
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) callTool(ctx context.Context, params jsonrpc.RawMessage) (any, error) {
	var p callToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, jsonrpc.Errorf(jsonrpc.CodeInvalidParams, "invalid tools/call params: %v", err)
	}
	tool, ok := parseTool(p.Name)
	if !ok {
		return nil, jsonrpc.Errorf(jsonrpc.CodeInvalidParams, "unknown tool: %q", p.Name)
	}

	text, err := s.runTool(ctx, tool, p.Arguments)
	if err != nil {
		var rpcErr *jsonrpc.Error
		if errors.As(err, &rpcErr) {
			return nil, rpcErr
		}
		logging.FromContext(ctx).Warn("tool failed", "tool", string(tool), "error", err)
		return errorResult(err), nil
	}
	return textResult(text), nil
}

func (s *Server) runTool(ctx context.Context, tool Tool, args json.RawMessage) (string, error) {
	switch tool {
	case ToolDetectEnvironment:
		var a detectArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		return s.detectEnvironment(ctx, a)
	case ToolGetCommandSyntax:
		var a syntaxArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		return s.getCommandSyntax(ctx, a)
	case ToolFormatCommand:
		var a formatArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		return s.formatCommand(ctx, a)
	case ToolGetProjectContext:
		var a projectArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		return s.getProjectContext(ctx, a)
	case ToolGetProjectCommands:
		return s.getProjectCommands(ctx)
	default:
		return "", jsonrpc.Errorf(jsonrpc.CodeInvalidParams, "unknown tool: %q", tool)
	}
}

// decodeArgs unmarshals tool arguments. Absent arguments decode to the
// zero value; anything else that does not fit is an invalid-params error.
func decodeArgs(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return jsonrpc.Errorf(jsonrpc.CodeInvalidParams, "invalid arguments: %v", err)
	}
	return nil
}

func marshalText(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding result")
	}
	return string(data), nil
}

type detectArgs struct {
	FormatType string `json:"format_type"`
	Refresh    bool   `json:"refresh"`
}

func (s *Server) detectEnvironment(ctx context.Context, a detectArgs) (string, error) {
	var info probe.Info
	if a.Refresh {
		info = s.prober.Refresh(ctx)
	} else {
		info = s.prober.Detect(ctx)
	}

	switch a.FormatType {
	case "", FormatJSON:
		return marshalText(info)
	case FormatSummary:
		return probe.Summary(info), nil
	case FormatCopilot:
		return marshalText(probe.Copilot(info))
	default:
		return "", errors.WithHint(
			errors.Wrapf(errors.ErrInvalidArgument, "format_type %q", a.FormatType),
			"use json, summary or copilot",
		)
	}
}

type syntaxArgs struct {
	Operation  string            `json:"operation"`
	Target     string            `json:"target"`
	FormatType string            `json:"format_type"`
	Variables  map[string]string `json:"variables"`
}

func (s *Server) getCommandSyntax(ctx context.Context, a syntaxArgs) (string, error) {
	if strings.TrimSpace(a.Operation) == "" {
		return "", errors.WithHint(
			errors.Wrap(errors.ErrInvalidArgument, "operation is required"),
			"supported operations: "+strings.Join(operationNames(), ", "),
		)
	}

	info := s.prober.Detect(ctx)
	result, err := syntax.Lookup(info, syntax.Query{
		Operation: a.Operation,
		Target:    a.Target,
		Variables: a.Variables,
	})
	if err != nil {
		return "", err
	}
	return RenderSyntax(result, a.FormatType)
}

// RenderSyntax formats a lookup result as shell, explanation, examples or
// json text.
func RenderSyntax(sx syntax.Syntax, format string) (string, error) {
	switch format {
	case "", FormatShell:
		return sx.Command, nil
	case FormatExplanation:
		return fmt.Sprintf("Operation: %s\nCommand: %s\nExplanation: %s\nExample: %s\nEnvironment: %s",
			sx.Operation, sx.Command, sx.Explanation, sx.Example, sx.Environment), nil
	case FormatExamples:
		return marshalText(map[string]string{
			"operation":   string(sx.Operation),
			"command":     sx.Command,
			"example":     sx.Example,
			"environment": sx.Environment,
		})
	case FormatJSON:
		return marshalText(sx)
	default:
		return "", errors.WithHint(
			errors.Wrapf(errors.ErrInvalidArgument, "format_type %q", format),
			"use shell, explanation, examples or json",
		)
	}
}

type formatArgs struct {
	Template string `json:"template"`
	// CommandTemplate is accepted as an alias for Template.
	CommandTemplate string            `json:"command_template"`
	Variables       map[string]string `json:"variables"`
}

func (s *Server) formatCommand(ctx context.Context, a formatArgs) (string, error) {
	tmpl := a.Template
	if tmpl == "" {
		tmpl = a.CommandTemplate
	}
	if tmpl == "" {
		return "", errors.Wrap(errors.ErrInvalidArgument, "template is required")
	}
	return syntax.FormatForEnv(tmpl, s.prober.Detect(ctx), a.Variables)
}

type projectArgs struct {
	Path                string `json:"path"`
	IncludeFiles        bool   `json:"include_files"`
	AnalyzeDependencies *bool  `json:"analyze_dependencies"`
}

func (s *Server) getProjectContext(ctx context.Context, a projectArgs) (string, error) {
	root := a.Path
	if root == "" {
		root = s.prober.Detect(ctx).EffectiveProjectRoot()
	}
	deps := true
	if a.AnalyzeDependencies != nil {
		deps = *a.AnalyzeDependencies
	}

	pc, err := s.analyzer(ctx, root, project.Options{
		IncludeFiles:        a.IncludeFiles,
		AnalyzeDependencies: deps,
		MaxFiles:            s.maxFiles,
	})
	if err != nil {
		return "", err
	}
	return marshalText(pc)
}

type projectCommandsResult struct {
	Environment struct {
		OS          string `json:"os"`
		Shell       string `json:"shell"`
		ProjectRoot string `json:"project_root"`
	} `json:"environment"`
	Commands []syntax.ProjectCommand `json:"commands"`
}

func (s *Server) getProjectCommands(ctx context.Context) (string, error) {
	info := s.prober.Detect(ctx)
	var out projectCommandsResult
	out.Environment.OS = info.OSType
	out.Environment.Shell = info.Shell
	out.Environment.ProjectRoot = info.EffectiveProjectRoot()
	out.Commands = syntax.ProjectCommands(ctx, info, nil)
	return marshalText(out)
}
