package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/jsonrpc"
	"github.com/thoreinstein/devenv/internal/logging"
	"github.com/thoreinstein/devenv/internal/probe"
	"github.com/thoreinstein/devenv/internal/project"
)

// Protocol versions the server speaks, oldest first.
var SupportedProtocolVersions = []string{"2024-11-05", "2025-03-26", "2025-06-18"}

// LatestProtocolVersion is offered when the client asks for an unknown one.
var LatestProtocolVersion = SupportedProtocolVersions[len(SupportedProtocolVersions)-1]

// DefaultName identifies the server in the initialize handshake.
const DefaultName = "dev-environment-mcp"

// Method is an MCP method the server understands.
type Method string

const (
	MethodInitialize  Method = "initialize"
	MethodInitialized Method = "notifications/initialized"
	MethodPing        Method = "ping"
	MethodToolsList   Method = "tools/list"
	MethodToolsCall   Method = "tools/call"
	MethodCancelled   Method = "notifications/cancelled"
)

var methods = []Method{
	MethodInitialize, MethodInitialized, MethodPing,
	MethodToolsList, MethodToolsCall, MethodCancelled,
}

func parseMethod(s string) (Method, bool) {
	m := Method(s)
	return m, slices.Contains(methods, m)
}

// requiresInit reports whether m is rejected before the handshake.
func (m Method) requiresInit() bool {
	switch m {
	case MethodInitialize, MethodPing, MethodInitialized, MethodCancelled:
		return false
	case MethodToolsList, MethodToolsCall:
		return true
	default:
		return true
	}
}

// Prober supplies environment facts.
type Prober interface {
	Detect(ctx context.Context) probe.Info
	Refresh(ctx context.Context) probe.Info
}

// Analyzer inspects a project directory.
type Analyzer func(ctx context.Context, root string, opts project.Options) (*project.Context, error)

// Options configures a Server.
type Options struct {
	Name         string
	Version      string
	Instructions string
	Prober       Prober
	Analyzer     Analyzer
	// MaxFiles caps get_project_context file listings.
	MaxFiles int
	Logger   *slog.Logger
	// Middleware wraps dispatch inside Recovery and Logging.
	Middleware []Middleware
}

// Server is the MCP server state: identity, collaborators and the
// handshake flag. One Server serves one session at a time.
type Server struct {
	name         string
	version      string
	instructions string
	prober       Prober
	analyzer     Analyzer
	maxFiles     int
	logger       *slog.Logger
	handler      Handler

	initialized atomic.Bool

	mu              sync.Mutex
	sessionID       string
	protocolVersion string
}

// New creates a Server. A nil Prober gets a default probe.Prober.
func New(opts Options) *Server {
	s := &Server{
		name:         opts.Name,
		version:      opts.Version,
		instructions: opts.Instructions,
		prober:       opts.Prober,
		analyzer:     opts.Analyzer,
		maxFiles:     opts.MaxFiles,
		logger:       opts.Logger,
		sessionID:    uuid.NewString(),
	}
	if s.name == "" {
		s.name = DefaultName
	}
	if s.version == "" {
		s.version = "dev"
	}
	if s.instructions == "" {
		s.instructions = DefaultInstructions
	}
	if s.logger == nil {
		s.logger = logging.NewDiscard()
	}
	if s.prober == nil {
		s.prober = probe.New(probe.WithLogger(s.logger))
	}
	if s.analyzer == nil {
		s.analyzer = project.Analyze
	}
	if s.maxFiles <= 0 {
		s.maxFiles = project.DefaultMaxFiles
	}

	mws := append([]Middleware{Recovery(s.logger), Logging(s.logger)}, opts.Middleware...)
	s.handler = Chain(mws...)(s.dispatch)
	return s
}

// DefaultInstructions tells the client how to use the tools.
const DefaultInstructions = "Call detect_environment before suggesting shell commands, " +
	"then use get_command_syntax for the exact command on this machine. " +
	"Commands differ between PowerShell on Windows and bash on Linux, macOS and Raspberry Pi."

// Initialized reports whether the initialize handshake has completed.
func (s *Server) Initialized() bool { return s.initialized.Load() }

// SessionID is the id advertised to HTTP clients.
func (s *Server) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// ProtocolVersion is the version negotiated at initialize, or "".
func (s *Server) ProtocolVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.protocolVersion
}

// Reset ends the session: the handshake must be repeated and a new
// session id is issued.
func (s *Server) Reset() {
	s.mu.Lock()
	s.sessionID = uuid.NewString()
	s.protocolVersion = ""
	s.mu.Unlock()
	s.initialized.Store(false)
}

// Handle processes one raw message and returns the response to send, or
// nil when none is due (notifications and client responses).
func (s *Server) Handle(ctx context.Context, data []byte) *jsonrpc.Response {
	ctx = logging.NewContext(ctx, s.logger)

	msg, err := jsonrpc.DecodeMessage(data)
	if err != nil {
		return jsonrpc.NewResponse(jsonrpc.ID{}, nil, err)
	}

	if rpcErr := jsonrpc.Validate(msg); rpcErr != nil {
		id := jsonrpc.ID{}
		switch m := msg.(type) {
		case *jsonrpc.Request:
			id = m.ID
		case *jsonrpc.Response:
			id = m.ID
		}
		return jsonrpc.NewResponse(id, nil, rpcErr)
	}

	switch m := msg.(type) {
	case *jsonrpc.Request:
		result, err := s.handler(ctx, m.Method, m.Params)
		return jsonrpc.NewResponse(m.ID, result, protocolError(err))
	case *jsonrpc.Notification:
		if _, err := s.handler(ctx, m.Method, m.Params); err != nil {
			s.logger.Debug("notification failed", "method", m.Method, "error", err)
		}
		return nil
	case *jsonrpc.Response:
		s.logger.Debug("ignoring client response", "id", m.ID.String())
		return nil
	default:
		return nil
	}
}

// protocolError keeps *jsonrpc.Error values and hides other error chains
// behind a generic internal error so stack details never reach the client.
func protocolError(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr *jsonrpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return jsonrpc.Errorf(jsonrpc.CodeInternalError, "internal error: %v", err)
}

func (s *Server) dispatch(ctx context.Context, name string, params jsonrpc.RawMessage) (any, error) {
	m, ok := parseMethod(name)
	if !ok {
		return nil, jsonrpc.Errorf(jsonrpc.CodeMethodNotFound, "method not found: %s", name)
	}
	if m.requiresInit() && !s.initialized.Load() {
		return nil, jsonrpc.Errorf(jsonrpc.CodeServerNotInitialized, "server not initialized")
	}

	switch m {
	case MethodInitialize:
		return s.initialize(params)
	case MethodInitialized:
		s.logger.Debug("client ready")
		return nil, nil
	case MethodPing:
		return struct{}{}, nil
	case MethodToolsList:
		return listToolsResult{Tools: ToolDefinitions()}, nil
	case MethodToolsCall:
		return s.callTool(ctx, params)
	case MethodCancelled:
		// Requests are handled synchronously, so by the time a cancellation
		// is read its request has already been answered.
		s.logger.Debug("cancellation received", "params", string(params))
		return nil, nil
	default:
		return nil, jsonrpc.Errorf(jsonrpc.CodeMethodNotFound, "method not found: %s", name)
	}
}

type implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeParams struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    json.RawMessage `json:"capabilities"`
	ClientInfo      implementation  `json:"clientInfo"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    capabilities   `json:"capabilities"`
	ServerInfo      implementation `json:"serverInfo"`
	Instructions    string         `json:"instructions,omitempty"`
}

type capabilities struct {
	Tools toolsCapability `json:"tools"`
}

type toolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

func (s *Server) initialize(params jsonrpc.RawMessage) (any, error) {
	var p initializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, jsonrpc.Errorf(jsonrpc.CodeInvalidParams, "invalid initialize params: %v", err)
		}
	}

	version := LatestProtocolVersion
	if slices.Contains(SupportedProtocolVersions, p.ProtocolVersion) {
		version = p.ProtocolVersion
	}

	s.mu.Lock()
	s.protocolVersion = version
	s.mu.Unlock()
	s.initialized.Store(true)

	s.logger.Info("client initialized",
		"client", p.ClientInfo.Name,
		"client_version", p.ClientInfo.Version,
		"requested_protocol", p.ProtocolVersion,
		"protocol", version,
	)

	return initializeResult{
		ProtocolVersion: version,
		Capabilities:    capabilities{Tools: toolsCapability{}},
		ServerInfo:      implementation{Name: s.name, Version: s.version},
		Instructions:    s.instructions,
	}, nil
}
