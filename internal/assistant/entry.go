package assistant

import (
	"maps"
	"slices"

	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/paths"
)

// Transports an Entry can use.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Scope selects the user-wide or per-project settings file.
type Scope string

const (
	ScopeUser    Scope = "user"
	ScopeProject Scope = "project"
)

// ParseScope validates a scope name; empty means ScopeUser.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeUser:
		return ScopeUser, nil
	case ScopeProject:
		return ScopeProject, nil
	default:
		return "", errors.Wrapf(errors.ErrInvalidArgument, "scope %q (want user or project)", s)
	}
}

// ErrInvalidEntry indicates an Entry that cannot be written.
var ErrInvalidEntry = errors.New("invalid server entry")

// Entry is the assistant-neutral description of an MCP server.
type Entry struct {
	Name      string            `json:"name"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	URL       string            `json:"url,omitempty"`
	Transport string            `json:"transport"`
}

// Validate checks that e names a launchable stdio command or an HTTP URL.
func (e Entry) Validate() error {
	if e.Name == "" {
		return errors.Wrap(ErrInvalidEntry, "name is required")
	}
	switch e.Transport {
	case TransportStdio:
		if e.Command == "" {
			return errors.Wrap(ErrInvalidEntry, "stdio transport requires a command")
		}
	case TransportHTTP:
		if e.URL == "" {
			return errors.Wrap(ErrInvalidEntry, "http transport requires a url")
		}
	default:
		return errors.Wrapf(ErrInvalidEntry, "transport %q", e.Transport)
	}
	return nil
}

// format describes how one assistant stores its MCP servers.
type format struct {
	// key is the path of the servers table inside the document.
	key []string
	// toml selects TOML instead of JSON.
	toml bool
	// fields lists the entry keys render may produce. Other keys of an
	// existing entry are kept on rewrite.
	fields []string
	render func(Entry) map[string]any
}

func stdioFields(e Entry, out map[string]any) {
	out["command"] = e.Command
	out["args"] = nonNil(e.Args)
	if len(e.Env) > 0 {
		out["env"] = maps.Clone(e.Env)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

var formats = map[string]format{
	paths.AssistantClaude: {
		key:    []string{"mcpServers"},
		fields: []string{"type", "command", "args", "env", "url"},
		render: func(e Entry) map[string]any {
			if e.Transport == TransportHTTP {
				return map[string]any{"type": "http", "url": e.URL}
			}
			out := map[string]any{"type": "stdio"}
			stdioFields(e, out)
			return out
		},
	},
	paths.AssistantCodex: {
		key:    []string{"mcp_servers"},
		toml:   true,
		fields: []string{"command", "args", "env", "url"},
		render: func(e Entry) map[string]any {
			if e.Transport == TransportHTTP {
				return map[string]any{"url": e.URL}
			}
			out := map[string]any{}
			stdioFields(e, out)
			return out
		},
	},
	paths.AssistantGemini: {
		key:    []string{"mcpServers"},
		fields: []string{"command", "args", "env", "httpUrl"},
		render: func(e Entry) map[string]any {
			if e.Transport == TransportHTTP {
				return map[string]any{"httpUrl": e.URL}
			}
			out := map[string]any{}
			stdioFields(e, out)
			return out
		},
	},
	paths.AssistantOpenCode: {
		key:    []string{"mcp"},
		fields: []string{"type", "command", "environment", "url", "enabled"},
		render: func(e Entry) map[string]any {
			if e.Transport == TransportHTTP {
				return map[string]any{"type": "remote", "url": e.URL, "enabled": true}
			}
			out := map[string]any{
				"type":    "local",
				"command": append([]string{e.Command}, e.Args...),
				"enabled": true,
			}
			if len(e.Env) > 0 {
				out["environment"] = maps.Clone(e.Env)
			}
			return out
		},
	},
	paths.AssistantVSCode: {
		key:    []string{"servers"},
		fields: []string{"type", "command", "args", "env", "url"},
		render: func(e Entry) map[string]any {
			if e.Transport == TransportHTTP {
				return map[string]any{"type": "http", "url": e.URL}
			}
			out := map[string]any{"type": "stdio"}
			stdioFields(e, out)
			return out
		},
	},
}

// parse converts a stored entry back to an Entry. Unknown shapes yield a
// best-effort Entry with whatever fields are recognizable.
func parse(assistant, name string, raw map[string]any) Entry {
	e := Entry{Name: name, Transport: TransportStdio}

	str := func(k string) string {
		s, _ := raw[k].(string)
		return s
	}
	strs := func(k string) []string {
		var out []string
		if list, ok := raw[k].([]any); ok {
			for _, v := range list {
				if s, ok := v.(string); ok {
					out = append(out, s)
				}
			}
		}
		return out
	}
	env := func(k string) map[string]string {
		m, ok := raw[k].(map[string]any)
		if !ok {
			return nil
		}
		out := make(map[string]string, len(m))
		for key, v := range m {
			if s, ok := v.(string); ok {
				out[key] = s
			}
		}
		return out
	}

	switch assistant {
	case paths.AssistantOpenCode:
		if cmd := strs("command"); len(cmd) > 0 {
			e.Command, e.Args = cmd[0], cmd[1:]
		}
		e.Env = env("environment")
		e.URL = str("url")
	case paths.AssistantGemini:
		e.Command, e.Args, e.Env = str("command"), strs("args"), env("env")
		e.URL = str("httpUrl")
		if e.URL == "" {
			e.URL = str("url")
		}
	default:
		e.Command, e.Args, e.Env = str("command"), strs("args"), env("env")
		e.URL = str("url")
	}
	if e.URL != "" && e.Command == "" {
		e.Transport = TransportHTTP
	}
	return e
}
