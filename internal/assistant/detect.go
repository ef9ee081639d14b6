package assistant

import (
	"os"

	"github.com/thoreinstein/devenv/internal/paths"
)

// Detection describes whether an assistant appears to be installed.
type Detection struct {
	Name string `json:"name"`
	// ConfigDir is the assistant's user configuration directory.
	ConfigDir string `json:"config_dir"`
	// MCPConfig is the user-scope settings file devenv edits.
	MCPConfig string `json:"mcp_config"`
	Installed bool   `json:"installed"`
}

// Detect reports on assistant.
func Detect(assistant string) Detection {
	d := Detection{Name: assistant, ConfigDir: paths.AssistantDir(assistant)}
	d.MCPConfig, _ = paths.UserMCPConfigPath(assistant)
	d.Installed = dirExists(d.ConfigDir)
	if assistant == paths.AssistantClaude && !d.Installed {
		// Claude may keep only ~/.claude.json.
		d.Installed = fileExists(d.MCPConfig)
	}
	return d
}

// DetectAll reports on every supported assistant in stable order.
func DetectAll() []Detection {
	names := Supported()
	out := make([]Detection, 0, len(names))
	for _, name := range names {
		out = append(out, Detect(name))
	}
	return out
}

// Installed returns the names of assistants that appear to be installed.
func Installed() []string {
	var names []string
	for _, d := range DetectAll() {
		if d.Installed {
			names = append(names, d.Name)
		}
	}
	return names
}

func dirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
