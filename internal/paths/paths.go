package paths

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"

	"github.com/thoreinstein/devenv/internal/errors"
)

// AppName is the directory name used under the XDG base directories.
const AppName = "devenv"

// Assistant identifiers for the AI coding assistants devenv can register with.
const (
	AssistantClaude   = "claude"
	AssistantCodex    = "codex"
	AssistantGemini   = "gemini"
	AssistantOpenCode = "opencode"
	AssistantVSCode   = "vscode"
)

// assistantHomeDirs maps assistants to their user-level directories,
// relative to the home directory. VS Code is resolved separately.
var assistantHomeDirs = map[string]string{
	AssistantClaude:   ".claude",
	AssistantCodex:    ".codex",
	AssistantGemini:   ".gemini",
	AssistantOpenCode: filepath.Join(".config", "opencode"),
}

// Sentinel errors for path resolution.
var (
	// ErrHomeDirNotFound indicates the user's home directory could not be determined.
	ErrHomeDirNotFound = errors.New("home directory not found")

	// ErrUnknownAssistant indicates an assistant name outside the supported set.
	ErrUnknownAssistant = errors.New("unknown assistant")

	// ErrScopeUnsupported indicates the assistant has no config file for the scope.
	ErrScopeUnsupported = errors.New("scope not supported by assistant")
)

// DefaultDirPerm is the default permission for newly created directories (private).
const DefaultDirPerm = 0o700

// EnsureDir creates the directory and any necessary parents.
// If perm is 0, DefaultDirPerm is used.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}

// Home returns the user's home directory, or "" when it cannot be determined.
func Home() string {
	h, _ := ResolveHome()
	return h
}

// ResolveHome returns the user's home directory.
func ResolveHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", errors.Wrap(ErrHomeDirNotFound, "resolving home directory")
	}
	return home, nil
}

// ConfigDir returns devenv's configuration directory.
// On Linux: ~/.config/devenv
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ConfigFile returns the default configuration file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// CacheDir returns devenv's cache directory.
// On Linux: ~/.cache/devenv
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// StateDir returns devenv's state directory, which holds log files.
// On Linux: ~/.local/state/devenv
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// LogFile returns the default log file used when --log-file=auto.
func LogFile() string {
	return filepath.Join(StateDir(), "devenv.log")
}

// BackupDir returns the root directory for assistant config backups.
// On Linux: ~/.local/share/devenv/backups
func BackupDir() string {
	return filepath.Join(xdg.DataHome, AppName, "backups")
}

// Assistants returns every supported assistant identifier.
func Assistants() []string {
	return []string{
		AssistantClaude,
		AssistantCodex,
		AssistantGemini,
		AssistantOpenCode,
		AssistantVSCode,
	}
}

// ValidAssistant reports whether name is a supported assistant identifier.
func ValidAssistant(name string) bool {
	for _, a := range Assistants() {
		if a == name {
			return true
		}
	}
	return false
}

// AssistantDir returns the user-level directory an assistant keeps its
// settings in. Its existence is the signal that the assistant is installed.
//
//   - claude: ~/.claude
//   - codex: ~/.codex
//   - gemini: ~/.gemini
//   - opencode: ~/.config/opencode
//   - vscode: <ConfigHome>/Code/User
func AssistantDir(assistant string) string {
	if assistant == AssistantVSCode {
		return vscodeUserDir()
	}
	rel, ok := assistantHomeDirs[assistant]
	if !ok {
		return ""
	}
	home := Home()
	if home == "" {
		return ""
	}
	return filepath.Join(home, rel)
}

// UserMCPConfigPath returns the user-level file holding MCP server entries.
//
//   - claude: ~/.claude.json
//   - codex: ~/.codex/config.toml
//   - gemini: ~/.gemini/settings.json
//   - opencode: ~/.config/opencode/opencode.json
//   - vscode: <ConfigHome>/Code/User/mcp.json
func UserMCPConfigPath(assistant string) (string, error) {
	if !ValidAssistant(assistant) {
		return "", errors.Wrapf(ErrUnknownAssistant, "%q", assistant)
	}
	if assistant == AssistantClaude {
		home, err := ResolveHome()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".claude.json"), nil
	}

	dir := AssistantDir(assistant)
	if dir == "" {
		return "", ErrHomeDirNotFound
	}
	switch assistant {
	case AssistantCodex:
		return filepath.Join(dir, "config.toml"), nil
	case AssistantGemini:
		return filepath.Join(dir, "settings.json"), nil
	case AssistantOpenCode:
		return filepath.Join(dir, "opencode.json"), nil
	default:
		return filepath.Join(dir, "mcp.json"), nil
	}
}

// ProjectMCPConfigPath returns the project-level file holding MCP server
// entries. Codex has no project-level file.
//
//   - claude: <root>/.mcp.json
//   - gemini: <root>/.gemini/settings.json
//   - opencode: <root>/opencode.json
//   - vscode: <root>/.vscode/mcp.json
func ProjectMCPConfigPath(assistant, projectRoot string) (string, error) {
	if !ValidAssistant(assistant) {
		return "", errors.Wrapf(ErrUnknownAssistant, "%q", assistant)
	}
	if projectRoot == "" {
		return "", errors.Wrap(errors.ErrInvalidArgument, "project root is required for project scope")
	}
	switch assistant {
	case AssistantClaude:
		return filepath.Join(projectRoot, ".mcp.json"), nil
	case AssistantGemini:
		return filepath.Join(projectRoot, ".gemini", "settings.json"), nil
	case AssistantOpenCode:
		return filepath.Join(projectRoot, "opencode.json"), nil
	case AssistantVSCode:
		return filepath.Join(projectRoot, ".vscode", "mcp.json"), nil
	default:
		return "", errors.Wrapf(ErrScopeUnsupported, "%s has no project-level MCP config", assistant)
	}
}

func vscodeUserDir() string {
	base := xdg.ConfigHome
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			base = appData
		}
	}
	return filepath.Join(base, "Code", "User")
}
