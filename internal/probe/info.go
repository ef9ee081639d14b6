package probe

import (
	"slices"
	"time"
)

// Shell syntax dialects.
const (
	SyntaxBash       = "bash"
	SyntaxPowerShell = "powershell"
)

// Info describes the machine and session an assistant is working in.
// Values are immutable once returned by a Prober.
type Info struct {
	OSType           string    `json:"os_type" yaml:"os_type"`
	Shell            string    `json:"shell" yaml:"shell"`
	ShellSyntax      string    `json:"shell_syntax" yaml:"shell_syntax"`
	PythonCmd        string    `json:"python_cmd" yaml:"python_cmd"`
	IsRaspberryPi    bool      `json:"is_raspberry_pi" yaml:"is_raspberry_pi"`
	IsContainer      bool      `json:"is_container" yaml:"is_container"`
	ProjectRoot      string    `json:"project_root,omitempty" yaml:"project_root,omitempty"`
	Architecture     string    `json:"architecture" yaml:"architecture"`
	PythonVersion    string    `json:"python_version" yaml:"python_version"`
	WorkingDirectory string    `json:"working_directory" yaml:"working_directory"`
	User             string    `json:"user" yaml:"user"`
	HomeDirectory    string    `json:"home_directory" yaml:"home_directory"`
	AvailableTools   []string  `json:"available_tools" yaml:"available_tools"`
	DetectedAt       time.Time `json:"detected_at" yaml:"detected_at"`
}

// Separator is the command chaining operator for the shell dialect.
func (i Info) Separator() string {
	if i.ShellSyntax == SyntaxPowerShell {
		return ";"
	}
	return "&&"
}

// PipCmd is the package installer matching PythonCmd.
func (i Info) PipCmd() string {
	if i.PythonCmd == "python" {
		return "pip"
	}
	return "pip3"
}

// EffectiveProjectRoot returns ProjectRoot, or the working directory when
// no project root was detected.
func (i Info) EffectiveProjectRoot() string {
	if i.ProjectRoot != "" {
		return i.ProjectRoot
	}
	return i.WorkingDirectory
}

// HasTool reports whether name was found on PATH during the probe.
func (i Info) HasTool(name string) bool {
	_, found := slices.BinarySearch(i.AvailableTools, name)
	return found
}

func (i Info) clone() Info {
	i.AvailableTools = slices.Clone(i.AvailableTools)
	return i
}
