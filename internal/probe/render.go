package probe

import (
	"fmt"
	"strings"
)

// Summary renders info as a short human-readable report.
func Summary(info Info) string {
	var b strings.Builder
	b.WriteString("Environment Summary:\n")
	fmt.Fprintf(&b, "- OS: %s (%s)\n", displayOS(info.OSType), info.Architecture)
	fmt.Fprintf(&b, "- Shell: %s (%s syntax)\n", info.Shell, info.ShellSyntax)
	fmt.Fprintf(&b, "- Python: %s (v%s)\n", info.PythonCmd, info.PythonVersion)
	fmt.Fprintf(&b, "- User: %s\n", info.User)
	fmt.Fprintf(&b, "- Directory: %s\n", info.WorkingDirectory)

	root := info.ProjectRoot
	if root == "" {
		root = "Not detected"
	}
	fmt.Fprintf(&b, "- Project Root: %s", root)

	if info.IsRaspberryPi {
		b.WriteString("\n- Hardware: Raspberry Pi detected")
	}
	if info.IsContainer {
		b.WriteString("\n- Container: Running in container")
	}
	if len(info.AvailableTools) > 0 {
		fmt.Fprintf(&b, "\n- Tools: %s", strings.Join(info.AvailableTools, ", "))
	}
	return b.String()
}

func displayOS(goos string) string {
	switch goos {
	case "darwin":
		return "macOS"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	case "":
		return "Unknown"
	default:
		return strings.ToUpper(goos[:1]) + goos[1:]
	}
}

// CopilotContext is a compact view of Info for assistants that want the
// command conventions rather than raw facts.
type CopilotContext struct {
	Environment struct {
		Type        string `json:"type"`
		OS          string `json:"os"`
		Shell       string `json:"shell"`
		Syntax      string `json:"syntax"`
		IsPi        bool   `json:"is_pi"`
		IsContainer bool   `json:"is_container"`
	} `json:"environment"`
	Commands struct {
		Python       string `json:"python"`
		Pip          string `json:"pip"`
		Separator    string `json:"separator"`
		EnvVarSyntax string `json:"env_var_syntax"`
	} `json:"commands"`
	Paths struct {
		ProjectRoot string `json:"project_root"`
		WorkingDir  string `json:"working_dir"`
		Home        string `json:"home"`
	} `json:"paths"`
	Examples map[string]string `json:"examples"`
}

// Copilot builds the CopilotContext for info.
func Copilot(info Info) CopilotContext {
	var c CopilotContext
	c.Environment.Type = "development"
	c.Environment.OS = info.OSType
	c.Environment.Shell = info.Shell
	c.Environment.Syntax = info.ShellSyntax
	c.Environment.IsPi = info.IsRaspberryPi
	c.Environment.IsContainer = info.IsContainer

	c.Commands.Python = info.PythonCmd
	c.Commands.Pip = info.PipCmd()
	c.Commands.Separator = info.Separator()
	c.Commands.EnvVarSyntax = "export VAR='value'"
	if info.ShellSyntax == SyntaxPowerShell {
		c.Commands.EnvVarSyntax = "$env:VAR = 'value'"
	}

	c.Paths.ProjectRoot = info.ProjectRoot
	c.Paths.WorkingDir = info.WorkingDirectory
	c.Paths.Home = info.HomeDirectory

	root := info.EffectiveProjectRoot()
	sep := info.Separator()
	c.Examples = map[string]string{
		"test":    fmt.Sprintf("cd %s %s %s -m pytest", root, sep, info.PythonCmd),
		"install": info.PipCmd() + " install -e .",
		"build":   info.PythonCmd + " -m build",
	}
	return c
}
