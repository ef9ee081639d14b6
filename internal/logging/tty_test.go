package logging

import (
	"testing"
)

func TestSupportsColor(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		isTTY bool
		want  bool
	}{
		{name: "NO_COLOR prevents color", env: map[string]string{"NO_COLOR": "1"}, isTTY: true, want: false},
		{name: "TERM=dumb prevents color", env: map[string]string{"TERM": "dumb"}, isTTY: true, want: false},
		{name: "non-TTY prevents color", isTTY: false, want: false},
		{name: "TTY with xterm", env: map[string]string{"TERM": "xterm-256color"}, isTTY: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TERM", "")
			if _, ok := tt.env["NO_COLOR"]; !ok {
				unsetForTest(t, "NO_COLOR")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if got := supportsColor(tt.isTTY); got != tt.want {
				t.Errorf("supportsColor(%v) = %v, want %v", tt.isTTY, got, tt.want)
			}
		})
	}
}

func TestIsTTY_NonFile(t *testing.T) {
	var w mockWriter
	if IsTTY(&w) {
		t.Error("IsTTY should return false for a writer without Fd")
	}
}

type mockWriter struct{}

func (m *mockWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}
