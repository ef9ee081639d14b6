package syntax

import (
	"bytes"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/thoreinstein/devenv/internal/logging"
	"github.com/thoreinstein/devenv/internal/probe"
)

func linuxEnv() probe.Info {
	return probe.Info{
		OSType:           "linux",
		Shell:            "bash",
		ShellSyntax:      probe.SyntaxBash,
		PythonCmd:        "python3",
		ProjectRoot:      "/home/dev/app",
		WorkingDirectory: "/home/dev/app/src",
		User:             "dev",
		HomeDirectory:    "/home/dev",
	}
}

func windowsEnv() probe.Info {
	return probe.Info{
		OSType:           "windows",
		Shell:            "powershell",
		ShellSyntax:      probe.SyntaxPowerShell,
		PythonCmd:        "python",
		ProjectRoot:      `c:\dev\app`,
		WorkingDirectory: `c:\dev\app`,
		User:             "dev",
		HomeDirectory:    `C:\Users\dev`,
	}
}

func darwinEnv() probe.Info {
	env := linuxEnv()
	env.OSType = "darwin"
	env.Shell = "zsh"
	env.ProjectRoot = "/Users/dev/app"
	return env
}

func piEnv() probe.Info {
	env := linuxEnv()
	env.IsRaspberryPi = true
	env.ProjectRoot = "/home/pi/app"
	return env
}

func TestLookup_TestCommandUsesFamilyInterpreter(t *testing.T) {
	tests := []struct {
		name   string
		env    probe.Info
		family Family
		want   string
		reject string
	}{
		{name: "windows", env: windowsEnv(), family: FamilyWindows, want: "python -m pytest", reject: "python3"},
		{name: "linux", env: linuxEnv(), family: FamilyLinux, want: "python3 -m pytest"},
		{name: "darwin uses linux row", env: darwinEnv(), family: FamilyLinux, want: "python3 -m pytest"},
		{name: "pi", env: piEnv(), family: FamilyPi, want: "python3 -m pytest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Lookup(tt.env, Query{Operation: "test"})
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if got.Family != tt.family {
				t.Errorf("Family = %q, want %q", got.Family, tt.family)
			}
			if !strings.Contains(got.Command, tt.want) {
				t.Errorf("Command = %q, want it to contain %q", got.Command, tt.want)
			}
			if !strings.Contains(got.Command, tt.family.Interpreter()) {
				t.Errorf("Command = %q, missing interpreter %q", got.Command, tt.family.Interpreter())
			}
			if tt.reject != "" && strings.Contains(got.Command, tt.reject) {
				t.Errorf("Command = %q, must not contain %q", got.Command, tt.reject)
			}
		})
	}
}

func TestLookup_EveryOperationResolvesForEveryFamily(t *testing.T) {
	envs := map[Family]probe.Info{
		FamilyWindows: windowsEnv(),
		FamilyLinux:   linuxEnv(),
		FamilyDarwin:  darwinEnv(),
		FamilyPi:      piEnv(),
	}

	for _, op := range Operations() {
		for _, family := range Families() {
			t.Run(string(op)+"/"+string(family), func(t *testing.T) {
				got, err := Lookup(envs[family], Query{Operation: string(op)})
				if err != nil {
					t.Fatalf("Lookup() error = %v", err)
				}
				if got.Command == "" || got.Explanation == "" || got.Example == "" {
					t.Errorf("incomplete syntax: %+v", got)
				}
				if strings.ContainsAny(got.Command, "{}") {
					t.Errorf("Command = %q has unexpanded braces", got.Command)
				}
				if got.Separator != family.Separator() {
					t.Errorf("Separator = %q, want %q", got.Separator, family.Separator())
				}
			})
		}
	}
}

func TestLookup_UnknownOperation(t *testing.T) {
	got, err := Lookup(linuxEnv(), Query{Operation: "teleport"})
	if !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("Lookup() error = %v, want ErrUnknownOperation", err)
	}
	if got.Command != "" {
		t.Errorf("Command = %q, want empty on error", got.Command)
	}
	if !strings.Contains(err.Error(), "teleport") {
		t.Errorf("error %q should name the operation", err)
	}
}

func TestLookup_InvalidTarget(t *testing.T) {
	_, err := Lookup(linuxEnv(), Query{Operation: "test", Target: "mars"})
	if !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("Lookup() error = %v, want ErrInvalidTarget", err)
	}
}

func TestLookup_PiTargetFromWindows(t *testing.T) {
	got, err := Lookup(windowsEnv(), Query{Operation: "test", Target: TargetPi})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.Family != FamilyPi {
		t.Errorf("Family = %q, want pi", got.Family)
	}
	if !strings.Contains(got.Command, "sudo python3") {
		t.Errorf("Command = %q", got.Command)
	}
	if got.Environment != "windows/powershell" {
		t.Errorf("Environment = %q", got.Environment)
	}
}

func TestLookup_InterpreterVariable(t *testing.T) {
	ops := []Operation{OpTest, OpRun, OpBuild, OpInstall, OpAddPackage, OpVenv}

	t.Run("probed interpreter", func(t *testing.T) {
		env := linuxEnv()
		env.PythonCmd = "python3.12"
		for _, op := range ops {
			got, err := Lookup(env, Query{Operation: string(op)})
			if err != nil {
				t.Fatalf("Lookup(%s) error = %v", op, err)
			}
			if !strings.Contains(got.Command, "python3.12 -m") {
				t.Errorf("Lookup(%s).Command = %q, want probed interpreter", op, got.Command)
			}
		}
	})

	t.Run("caller override", func(t *testing.T) {
		env := linuxEnv()
		env.PythonCmd = "python3.12"
		for _, op := range ops {
			got, err := Lookup(env, Query{Operation: string(op), Variables: map[string]string{"python_cmd": "py"}})
			if err != nil {
				t.Fatalf("Lookup(%s) error = %v", op, err)
			}
			if !strings.Contains(got.Command, "py -m") || strings.Contains(got.Command, "python3") {
				t.Errorf("Lookup(%s).Command = %q, want override", op, got.Command)
			}
		}
	})

	t.Run("pip in example", func(t *testing.T) {
		got, err := Lookup(windowsEnv(), Query{Operation: "install"})
		if err != nil {
			t.Fatal(err)
		}
		if got.Example != `cd c:\dev\app; pip install -e .[dev]` {
			t.Errorf("Example = %q", got.Example)
		}
	})

	t.Run("family default when unprobed", func(t *testing.T) {
		env := windowsEnv()
		env.PythonCmd = ""
		got, err := Lookup(env, Query{Operation: "test"})
		if err != nil {
			t.Fatal(err)
		}
		if got.Command != `cd c:\dev\app; python -m pytest` {
			t.Errorf("Command = %q", got.Command)
		}
	})
}

func TestLookup_ReportsFallbackFamily(t *testing.T) {
	tests := []struct {
		name string
		env  probe.Info
		op   string
		want Family
		cmd  string
	}{
		{name: "pi build", env: piEnv(), op: "build", want: FamilyLinux, cmd: "cd /home/pi/app && python3 -m build"},
		{name: "darwin test", env: darwinEnv(), op: "test", want: FamilyLinux, cmd: "cd /Users/dev/app && python3 -m pytest"},
		{name: "pi status", env: piEnv(), op: "service_status", want: FamilyLinux, cmd: "systemctl status SERVICE_NAME"},
		{name: "pi own row", env: piEnv(), op: "test", want: FamilyPi, cmd: "cd /home/pi/app && sudo python3 -m pytest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Lookup(tt.env, Query{Operation: tt.op})
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if got.Family != tt.want {
				t.Errorf("Family = %q, want %q", got.Family, tt.want)
			}
			if got.Command != tt.cmd {
				t.Errorf("Command = %q, want %q", got.Command, tt.cmd)
			}
		})
	}
}

func TestLookup_Variables(t *testing.T) {
	t.Run("defaults fill operation placeholders", func(t *testing.T) {
		got, err := Lookup(linuxEnv(), Query{Operation: "env_var"})
		if err != nil {
			t.Fatal(err)
		}
		if got.Command != "export VARIABLE_NAME='value'" {
			t.Errorf("Command = %q", got.Command)
		}
	})

	t.Run("caller values win", func(t *testing.T) {
		got, err := Lookup(windowsEnv(), Query{
			Operation: "env_var",
			Variables: map[string]string{"name": "PYTHONPATH", "value": `c:\lib`},
		})
		if err != nil {
			t.Fatal(err)
		}
		if got.Command != `$env:PYTHONPATH = 'c:\lib'` {
			t.Errorf("Command = %q", got.Command)
		}
	})

	t.Run("caller overrides built-in", func(t *testing.T) {
		got, err := Lookup(linuxEnv(), Query{
			Operation: "test",
			Variables: map[string]string{"project_root": "/srv/other"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if got.Command != "cd /srv/other && python3 -m pytest" {
			t.Errorf("Command = %q", got.Command)
		}
	})

	t.Run("project root falls back to working directory", func(t *testing.T) {
		env := linuxEnv()
		env.ProjectRoot = ""
		got, err := Lookup(env, Query{Operation: "lint"})
		if err != nil {
			t.Fatal(err)
		}
		if got.Command != "cd /home/dev/app/src && ruff check ." {
			t.Errorf("Command = %q", got.Command)
		}
	})
}

func TestResolve_Fallback(t *testing.T) {
	tests := []struct {
		op         Operation
		family     Family
		wantFamily Family
	}{
		{OpBuild, FamilyPi, FamilyLinux},
		{OpBuild, FamilyDarwin, FamilyLinux},
		{OpTest, FamilyPi, FamilyPi},
		{OpService, FamilyDarwin, FamilyDarwin},
		{OpService, FamilyPi, FamilyLinux},
		{OpLogs, FamilyWindows, FamilyWindows},
	}
	for _, tt := range tests {
		_, used, err := Resolve(tt.op, tt.family)
		if err != nil {
			t.Errorf("Resolve(%s, %s) error = %v", tt.op, tt.family, err)
			continue
		}
		if used != tt.wantFamily {
			t.Errorf("Resolve(%s, %s) used %s, want %s", tt.op, tt.family, used, tt.wantFamily)
		}
	}
}

func TestResolve_UnknownFamily(t *testing.T) {
	_, _, err := Resolve(OpTest, Family("plan9"))
	if !errors.Is(err, ErrUnsupportedFamily) {
		t.Errorf("Resolve() error = %v, want ErrUnsupportedFamily", err)
	}
}

func TestSelectFamily(t *testing.T) {
	tests := []struct {
		name   string
		env    probe.Info
		target string
		want   Family
	}{
		{"windows local", windowsEnv(), TargetLocal, FamilyWindows},
		{"windows pi target", windowsEnv(), TargetPi, FamilyPi},
		{"darwin", darwinEnv(), "", FamilyDarwin},
		{"probed pi", piEnv(), TargetLocal, FamilyPi},
		{"freebsd is linux family", probe.Info{OSType: "freebsd"}, "", FamilyLinux},
	}
	for _, tt := range tests {
		if got := SelectFamily(tt.env, tt.target); got != tt.want {
			t.Errorf("%s: SelectFamily() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	vars := map[string]string{"project_root": "/home/dev/app", "python_cmd": "python3", "pkg": "requests"}

	tests := []struct {
		name    string
		tmpl    string
		want    string
		wantErr error
	}{
		{name: "plain", tmpl: "ls -la", want: "ls -la"},
		{name: "round trip", tmpl: "cd {project_root} && {python_cmd} -m pytest", want: "cd /home/dev/app && python3 -m pytest"},
		{name: "repeated", tmpl: "{pkg} {pkg}", want: "requests requests"},
		{name: "padded name", tmpl: "pip install { pkg }", want: "pip install requests"},
		{name: "escaped braces", tmpl: "if ($?) {{ {python_cmd} }}", want: "if ($?) { python3 }"},
		{name: "missing", tmpl: "pip install {package}", wantErr: ErrMissingVariable},
		{name: "unclosed", tmpl: "echo {project_root", wantErr: ErrMalformedTemplate},
		{name: "empty placeholder", tmpl: "echo {}", wantErr: ErrMalformedTemplate},
		{name: "stray close", tmpl: "echo }", wantErr: ErrMalformedTemplate},
		{name: "nested open", tmpl: "echo {a{b}", wantErr: ErrMalformedTemplate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.tmpl, vars)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Format() error = %v, want %v", err, tt.wantErr)
				}
				if got != "" {
					t.Errorf("Format() = %q, want no partial output", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat_MissingVariableNamesKey(t *testing.T) {
	_, err := Format("{python_cmd} -m pip install {package}", map[string]string{"python_cmd": "python3"})
	if err == nil || !strings.Contains(err.Error(), `"package"`) {
		t.Errorf("error = %v, want it to name the missing key", err)
	}
}

func TestFormatForEnv(t *testing.T) {
	got, err := FormatForEnv("{pip_cmd} install {package} {shell_sep} {python_cmd} -c 'import {package}'",
		windowsEnv(), map[string]string{"package": "rich"})
	if err != nil {
		t.Fatal(err)
	}
	want := "pip install rich ; python -c 'import rich'"
	if got != want {
		t.Errorf("FormatForEnv() = %q, want %q", got, want)
	}
}

func TestParseOperation(t *testing.T) {
	if op, err := ParseOperation(" Add_Package "); err != nil || op != OpAddPackage {
		t.Errorf("ParseOperation() = %q, %v", op, err)
	}
	if _, err := ParseOperation(""); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("ParseOperation(\"\") error = %v", err)
	}
}

func TestProjectCommands(t *testing.T) {
	names := func(cmds []ProjectCommand) []string {
		out := make([]string, len(cmds))
		for i, c := range cmds {
			out[i] = c.Name
		}
		return out
	}

	linux := ProjectCommands(t.Context(), linuxEnv(), nil)
	if want := []string{"Test", "Run", "Install Dependencies", "Lint"}; !slices.Equal(names(linux), want) {
		t.Errorf("linux names = %v, want %v", names(linux), want)
	}
	if linux[0].Command != "cd /home/dev/app && python3 -m pytest" {
		t.Errorf("linux Test = %q", linux[0].Command)
	}

	win := ProjectCommands(t.Context(), windowsEnv(), nil)
	if win[1].Command != `cd c:\dev\app; python -m main` {
		t.Errorf("windows Run = %q", win[1].Command)
	}

	pi := ProjectCommands(t.Context(), piEnv(), map[string]string{"service": "bt-keyboard-switcher"})
	if len(pi) != 7 {
		t.Fatalf("pi commands = %v", names(pi))
	}
	if pi[5].Name != "Check Service" || pi[5].Command != "systemctl status bt-keyboard-switcher" {
		t.Errorf("pi Check Service = %+v", pi[5])
	}
	if pi[6].Command != "sudo journalctl -u bt-keyboard-switcher -f" {
		t.Errorf("pi View Logs = %q", pi[6].Command)
	}
}

func TestProjectCommands_LogsUnresolvedRows(t *testing.T) {
	saved := projectCommands
	t.Cleanup(func() { projectCommands = saved })
	projectCommands = append(slices.Clone(saved), projectCommand{name: "Teleport", op: Operation("teleport")})

	var buf bytes.Buffer
	ctx := logging.NewContext(t.Context(), logging.New(logging.Config{
		Level:  slog.LevelDebug,
		Format: logging.FormatText,
		Output: &buf,
	}))

	got := ProjectCommands(ctx, linuxEnv(), nil)
	if len(got) != len(saved) {
		t.Errorf("got %d commands, want %d", len(got), len(saved))
	}
	if !strings.Contains(buf.String(), "skipping project command") || !strings.Contains(buf.String(), "Teleport") {
		t.Errorf("missing debug record, got: %q", buf.String())
	}
}
