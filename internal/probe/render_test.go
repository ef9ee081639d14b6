package probe

import (
	"strings"
	"testing"
)

func TestSummary(t *testing.T) {
	info := Info{
		OSType:           "linux",
		Architecture:     "aarch64",
		Shell:            "bash",
		ShellSyntax:      SyntaxBash,
		PythonCmd:        "python3",
		PythonVersion:    "3.11.2",
		User:             "pi",
		WorkingDirectory: "/home/pi/app",
		IsRaspberryPi:    true,
	}

	got := Summary(info)

	for _, want := range []string{
		"- OS: Linux (aarch64)",
		"- Shell: bash (bash syntax)",
		"- Python: python3 (v3.11.2)",
		"- Project Root: Not detected",
		"- Hardware: Raspberry Pi detected",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Container") {
		t.Errorf("Summary() mentions container when not in one:\n%s", got)
	}
}

func TestCopilot(t *testing.T) {
	win := Copilot(Info{
		OSType:           "windows",
		Shell:            "powershell",
		ShellSyntax:      SyntaxPowerShell,
		PythonCmd:        "python",
		WorkingDirectory: `c:\dev\app`,
	})
	if win.Commands.Separator != ";" || win.Commands.Pip != "pip" {
		t.Errorf("windows commands = %+v", win.Commands)
	}
	if win.Commands.EnvVarSyntax != "$env:VAR = 'value'" {
		t.Errorf("env var syntax = %q", win.Commands.EnvVarSyntax)
	}
	if got := win.Examples["test"]; got != `cd c:\dev\app ; python -m pytest` {
		t.Errorf("test example = %q", got)
	}

	lin := Copilot(Info{OSType: "linux", ShellSyntax: SyntaxBash, PythonCmd: "python3", ProjectRoot: "/srv/app"})
	if got := lin.Examples["test"]; got != "cd /srv/app && python3 -m pytest" {
		t.Errorf("test example = %q", got)
	}
	if lin.Examples["install"] != "pip3 install -e ." {
		t.Errorf("install example = %q", lin.Examples["install"])
	}
}
