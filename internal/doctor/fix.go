package doctor

import (
	"fmt"
	"os"

	"github.com/thoreinstein/devenv/internal/config"
	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/paths"
)

// Fixer is implemented by checks that can repair what they found.
// CanFix and Fix are only meaningful after Run.
type Fixer interface {
	CanFix() bool
	Fix() []FixResult
}

// FixResult describes one attempted repair.
type FixResult struct {
	Path        string `json:"path"`
	Fixed       bool   `json:"fixed"`
	Description string `json:"description"`
	Error       error  `json:"-"`
}

// Repair kinds recorded on an issue.
const (
	repairChmod  = "chmod"
	repairMkdir  = "mkdir"
	repairConfig = "config"
)

// issue is a problem found at a path. A non-empty repair marks it fixable.
type issue struct {
	Path     string
	Subject  string
	Problem  string
	Severity Severity
	Mode     string
	Repair   string
	// Perm is the target mode for repairChmod and repairMkdir.
	Perm    os.FileMode
	FixHint string
}

func (i issue) fixable() bool { return i.Repair != "" }

// pathFixer applies the repairs recorded by a check's last run.
type pathFixer struct {
	issues []issue
}

func (f *pathFixer) setIssues(issues []issue) { f.issues = issues }

// CanFix reports whether any recorded issue is fixable.
func (f *pathFixer) CanFix() bool {
	return f.countFixable() > 0
}

func (f *pathFixer) countFixable() int {
	n := 0
	for _, is := range f.issues {
		if is.fixable() {
			n++
		}
	}
	return n
}

// Fix repairs every fixable issue.
func (f *pathFixer) Fix() []FixResult {
	results := make([]FixResult, 0, f.countFixable())
	for _, is := range f.issues {
		if is.fixable() {
			results = append(results, fixIssue(is))
		}
	}
	return results
}

func fixIssue(is issue) FixResult {
	res := FixResult{Path: is.Path}
	var err error
	switch is.Repair {
	case repairChmod:
		err = os.Chmod(is.Path, is.Perm)
		res.Description = fmt.Sprintf("chmod %04o", is.Perm)
	case repairMkdir:
		err = paths.EnsureDir(is.Path, is.Perm)
		res.Description = "created directory"
	case repairConfig:
		err = writeDefaultConfig(is.Path)
		res.Description = "wrote default config"
	default:
		err = errors.Newf("unknown repair %q", is.Repair)
	}
	if err != nil {
		res.Error = errors.Wrapf(err, "%s %s", is.Repair, is.Path)
		res.Description = fmt.Sprintf("%s failed: %v", res.Description, err)
		return res
	}
	res.Fixed = true
	return res
}

func writeDefaultConfig(path string) error {
	cfg, err := defaultConfig()
	if err != nil {
		return err
	}
	if err := paths.EnsureDir(parentDir(path), 0); err != nil {
		return err
	}
	return config.Save(path, cfg)
}
