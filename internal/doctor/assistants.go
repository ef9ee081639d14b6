package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/thoreinstein/devenv/internal/assistant"
	"github.com/thoreinstein/devenv/internal/paths"
	"github.com/thoreinstein/devenv/internal/redact"
)

// AssistantLister returns the assistants to inspect.
type AssistantLister func() []assistant.Detection

func installedOnly(list AssistantLister) []assistant.Detection {
	if list == nil {
		list = assistant.DetectAll
	}
	var out []assistant.Detection
	for _, d := range list() {
		if d.Installed {
			out = append(out, d)
		}
	}
	return out
}

// settingsFile is an assistant settings file found on disk.
type settingsFile struct {
	assistant string
	path      string
}

// settingsFiles returns the existing user and project settings files of
// the installed assistants.
func settingsFiles(list AssistantLister, projectRoot string) []settingsFile {
	var files []settingsFile
	for _, d := range installedOnly(list) {
		if d.MCPConfig != "" && fileExists(d.MCPConfig) {
			files = append(files, settingsFile{d.Name, d.MCPConfig})
		}
		if projectRoot == "" {
			continue
		}
		if p, err := paths.ProjectMCPConfigPath(d.Name, projectRoot); err == nil && fileExists(p) {
			files = append(files, settingsFile{d.Name, p})
		}
	}
	return files
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// AssistantSyntaxCheck parses every assistant settings file devenv may
// edit. Register refuses to rewrite a file that fails this check.
type AssistantSyntaxCheck struct {
	list        AssistantLister
	projectRoot string
}

var _ Check = (*AssistantSyntaxCheck)(nil)

// NewAssistantSyntaxCheck creates the check. A nil list inspects every
// supported assistant; an empty projectRoot skips project files.
func NewAssistantSyntaxCheck(list AssistantLister, projectRoot string) *AssistantSyntaxCheck {
	return &AssistantSyntaxCheck{list: list, projectRoot: projectRoot}
}

func (c *AssistantSyntaxCheck) Name() string     { return "assistant-config-syntax" }
func (c *AssistantSyntaxCheck) Category() string { return "assistants" }

type syntaxFileResult struct {
	Assistant string `json:"assistant"`
	Path      string `json:"path"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

func (c *AssistantSyntaxCheck) Run(_ context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Status:   SeverityPass,
		Details:  map[string]any{},
	}

	files := settingsFiles(c.list, c.projectRoot)
	if len(files) == 0 {
		result.Status = SeverityInfo
		result.Message = "no assistant settings files found"
		return result
	}

	var results []syntaxFileResult
	failed := 0
	for _, f := range files {
		fr := syntaxFileResult{Assistant: f.assistant, Path: f.path, Status: "pass"}
		data, err := os.ReadFile(f.path)
		switch {
		case err != nil:
			fr.Status, fr.Message = "error", err.Error()
		case len(strings.TrimSpace(string(data))) == 0:
			fr.Message = "empty file"
		default:
			if _, msg := decodeSettings(f.path, data); msg != "" {
				fr.Status, fr.Message = "error", msg
			}
		}
		if fr.Status == "error" {
			failed++
		}
		results = append(results, fr)
	}

	result.Details["files"] = results
	result.Details["checked"] = len(results)
	if failed > 0 {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("%d of %d settings file(s) cannot be parsed", failed, len(results))
		result.FixHint = "fix the syntax at the reported line, or restore one with devenv backup restore"
		return result
	}
	result.Message = fmt.Sprintf("%d settings file(s) parsed", len(results))
	return result
}

// AssistantPermissionCheck flags assistant settings that are writable by
// others, or readable by others while holding credentials.
type AssistantPermissionCheck struct {
	pathFixer
	list        AssistantLister
	projectRoot string
}

var (
	_ Check = (*AssistantPermissionCheck)(nil)
	_ Fixer = (*AssistantPermissionCheck)(nil)
)

func NewAssistantPermissionCheck(list AssistantLister, projectRoot string) *AssistantPermissionCheck {
	return &AssistantPermissionCheck{list: list, projectRoot: projectRoot}
}

func (c *AssistantPermissionCheck) Name() string     { return "assistant-config-permissions" }
func (c *AssistantPermissionCheck) Category() string { return "assistants" }

func (c *AssistantPermissionCheck) Run(_ context.Context) *CheckResult {
	files := settingsFiles(c.list, c.projectRoot)
	var issues []issue
	if runtime.GOOS != "windows" {
		for _, f := range files {
			issues = append(issues, checkSettingsPerm(f)...)
		}
	}
	c.setIssues(issues)
	return buildResult(c.Name(), c.Category(), issues, len(files))
}

func checkSettingsPerm(f settingsFile) []issue {
	info, err := os.Stat(f.path)
	if err != nil {
		return nil
	}
	perm := info.Mode().Perm()

	if perm&0o002 != 0 {
		target := perm &^ 0o022
		return []issue{{
			Path:     f.path,
			Subject:  f.assistant,
			Problem:  "settings file is world-writable",
			Severity: SeverityWarning,
			Mode:     formatMode(info.Mode()),
			Repair:   repairChmod,
			Perm:     target,
			FixHint:  fmt.Sprintf("chmod %04o %s", target, f.path),
		}}
	}
	if perm&0o044 != 0 && holdsSecrets(f.path) {
		return []issue{{
			Path:     f.path,
			Subject:  f.assistant,
			Problem:  "settings file contains credentials and is readable by others",
			Severity: SeverityWarning,
			Mode:     formatMode(info.Mode()),
			Repair:   repairChmod,
			Perm:     0o600,
			FixHint:  "chmod 600 " + f.path,
		}}
	}
	return nil
}

// holdsSecrets reports whether any value in the file looks like a
// credential, judged by its key name or a known token prefix.
func holdsSecrets(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	doc, msg := decodeSettings(path, data)
	if msg != "" {
		return false
	}
	return walkSecrets("", doc)
}

func walkSecrets(key string, v any) bool {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			if walkSecrets(k, child) {
				return true
			}
		}
	case []any:
		for _, child := range val {
			if walkSecrets(key, child) {
				return true
			}
		}
	case string:
		if val == "" {
			return false
		}
		return redact.LooksLikeToken(val) || (key != "" && redact.SensitiveKey(key))
	}
	return false
}

// RegistrationCheck reports which installed assistants have devenv
// registered and whether the registered command still resolves.
type RegistrationCheck struct {
	registrar *assistant.Registrar
	server    string
	list      AssistantLister
	lookPath  func(string) (string, error)
}

var _ Check = (*RegistrationCheck)(nil)

// NewRegistrationCheck looks for the user-scope entry called server.
func NewRegistrationCheck(r *assistant.Registrar, server string, list AssistantLister) *RegistrationCheck {
	return &RegistrationCheck{registrar: r, server: server, list: list, lookPath: exec.LookPath}
}

func (c *RegistrationCheck) Name() string     { return "registration" }
func (c *RegistrationCheck) Category() string { return "assistants" }

func (c *RegistrationCheck) Run(_ context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Status:   SeverityPass,
		Details:  map[string]any{},
	}

	installed := installedOnly(c.list)
	if len(installed) == 0 {
		result.Status = SeverityWarning
		result.Message = "no AI assistants detected"
		result.FixHint = "install Claude Code, Codex, Gemini CLI, OpenCode or VS Code, then run devenv register"
		return result
	}

	var registered, missing, stale []string
	for _, d := range installed {
		entry, found, err := c.registrar.Lookup(d.Name, assistant.ScopeUser, c.server)
		status := map[string]any{"config": d.MCPConfig}
		switch {
		case err != nil:
			status["error"] = err.Error()
			stale = append(stale, d.Name)
		case !found:
			status["registered"] = false
			missing = append(missing, d.Name)
		default:
			status["registered"] = true
			status["transport"] = entry.Transport
			if entry.URL != "" {
				status["url"] = redact.URL(entry.URL)
			}
			if len(entry.Env) > 0 {
				status["env"] = redact.Env(entry.Env)
			}
			if entry.Transport == assistant.TransportStdio {
				status["command"] = entry.Command
				if _, err := c.lookPath(entry.Command); err != nil {
					status["error"] = "command not found"
					stale = append(stale, d.Name)
					break
				}
			}
			registered = append(registered, d.Name)
		}
		result.Details[d.Name] = status
	}

	switch {
	case len(stale) > 0:
		result.Status = SeverityWarning
		result.Message = fmt.Sprintf("registration broken for %s", strings.Join(stale, ", "))
		result.FixHint = "re-run devenv register for " + strings.Join(stale, ", ")
	case len(registered) == 0:
		result.Status = SeverityInfo
		result.Message = "devenv is not registered with any installed assistant"
		result.FixHint = "devenv register --assistant " + missing[0]
	default:
		result.Message = fmt.Sprintf("registered with %s", strings.Join(registered, ", "))
		if len(missing) > 0 {
			result.Message += fmt.Sprintf("; not registered with %s", strings.Join(missing, ", "))
		}
	}
	return result
}
