package editor

import (
	"context"
	"errors"
	"runtime"
	"testing"
)

func fakeEditor(env map[string]string, installed ...string) *Editor {
	e := New()
	e.getenv = func(k string) string { return env[k] }
	e.lookPath = func(name string) (string, error) {
		for _, n := range installed {
			if n == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
	return e
}

func TestResolve(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix fallbacks")
	}
	tests := []struct {
		name      string
		env       map[string]string
		installed []string
		want      []string
	}{
		{"visual wins", map[string]string{"VISUAL": "code --wait", "EDITOR": "vim"}, nil, []string{"code", "--wait"}},
		{"editor", map[string]string{"EDITOR": "nvim"}, nil, []string{"nvim"}},
		{"blank visual falls through", map[string]string{"VISUAL": "  ", "EDITOR": "hx"}, nil, []string{"hx"}},
		{"nano fallback", nil, []string{"vi", "nano"}, []string{"nano"}},
		{"vi fallback", nil, []string{"vi"}, []string{"vi"}},
		{"nothing", nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fakeEditor(tt.env, tt.installed...).resolve()
			if len(got) != len(tt.want) {
				t.Fatalf("resolve() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("resolve()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCommand(t *testing.T) {
	e := fakeEditor(map[string]string{"EDITOR": "code --wait"})
	cmd, err := e.Command(context.Background(), "/tmp/config.yaml")
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	want := []string{"code", "--wait", "/tmp/config.yaml"}
	if len(cmd.Args) != len(want) {
		t.Fatalf("Args = %q, want %q", cmd.Args, want)
	}
	for i := range want {
		if cmd.Args[i] != want[i] {
			t.Errorf("Args[%d] = %q, want %q", i, cmd.Args[i], want[i])
		}
	}
}

func TestCommand_NoEditor(t *testing.T) {
	_, err := fakeEditor(nil).Command(context.Background(), "x")
	if !errors.Is(err, ErrNoEditor) {
		t.Errorf("Command() error = %v, want ErrNoEditor", err)
	}
}

func TestOpen_RunsEditor(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a unix true binary")
	}
	e := fakeEditor(map[string]string{"EDITOR": "true"})
	if err := e.Open(context.Background(), "/dev/null"); err != nil {
		t.Errorf("Open() error = %v", err)
	}

	e = fakeEditor(map[string]string{"EDITOR": "false"})
	if err := e.Open(context.Background(), "/dev/null"); err == nil {
		t.Error("Open() with failing editor returned nil")
	}
}
