// Package cmd holds build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/thoreinstein/devenv/cmd.Version=1.2.0" ./cmd/devenv
package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build-time variables set via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Info returns the build metadata. Binaries installed with `go install`
// carry no ldflags, so the module version and VCS revision are read from
// the embedded build info instead.
func Info() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "none":
			info.Commit = s.Value
		case s.Key == "vcs.time" && info.Date == "unknown":
			info.Date = s.Value
		}
	}
	return info
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("devenv version %s\n  commit: %s\n  built:  %s\n  go:     %s %s",
		b.Version, b.Commit, b.Date, b.GoVersion, b.Platform)
}
