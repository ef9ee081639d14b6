// Package project describes the project rooted at a directory: which
// languages and tools it uses, what it depends on, and its git state.
//
// Analysis only reads. Manifests that fail to parse are reported as
// warnings rather than errors so one broken file never hides the rest.
package project

import (
	"context"
	"os"
	"path/filepath"
	"slices"

	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/git"
	"github.com/thoreinstein/devenv/internal/logging"
)

// DefaultMaxFiles caps the file listing.
const DefaultMaxFiles = 50

// Project types beyond a single language name.
const (
	TypeUnknown       = "unknown"
	TypeMultiLanguage = "multi-language"
)

// ErrInvalidPath indicates the analysis root is missing or not a directory.
var ErrInvalidPath = errors.New("invalid project path")

// Context is the result of analyzing a project directory.
type Context struct {
	Root            string              `json:"root" yaml:"root"`
	ProjectType     string              `json:"project_type" yaml:"project_type"`
	Languages       []string            `json:"languages" yaml:"languages"`
	Frameworks      []string            `json:"frameworks" yaml:"frameworks"`
	PackageManagers []string            `json:"package_managers" yaml:"package_managers"`
	Markers         []string            `json:"markers" yaml:"markers"`
	Dependencies    map[string][]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Git             *git.Status         `json:"git,omitempty" yaml:"git,omitempty"`
	Files           []string            `json:"files,omitempty" yaml:"files,omitempty"`
	FilesTruncated  bool                `json:"files_truncated,omitempty" yaml:"files_truncated,omitempty"`
	Warnings        []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Options selects the optional parts of an analysis.
type Options struct {
	IncludeFiles        bool
	AnalyzeDependencies bool
	// SkipGit leaves Context.Git nil.
	SkipGit bool
	// MaxFiles caps the listing; zero means DefaultMaxFiles.
	MaxFiles int
}

// marker maps a file at the project root to the language it implies.
type marker struct {
	file     string
	language string
}

var markers = []marker{
	{"package.json", "node.js"},
	{"pyproject.toml", "python"},
	{"setup.py", "python"},
	{"requirements.txt", "python"},
	{"Pipfile", "python"},
	{"Cargo.toml", "rust"},
	{"go.mod", "go"},
	{"pom.xml", "java"},
	{"build.gradle", "java"},
	{"build.gradle.kts", "kotlin"},
	{"Gemfile", "ruby"},
	{"composer.json", "php"},
	{"Dockerfile", "docker"},
	{"docker-compose.yml", "docker"},
	{"docker-compose.yaml", "docker"},
	{"compose.yml", "docker"},
	{"compose.yaml", "docker"},
}

// lockfiles map files to the package manager they belong to, in priority
// order within an ecosystem.
var lockfiles = []struct {
	file    string
	manager string
}{
	{"pnpm-lock.yaml", "pnpm"},
	{"yarn.lock", "yarn"},
	{"bun.lockb", "bun"},
	{"package-lock.json", "npm"},
	{"uv.lock", "uv"},
	{"poetry.lock", "poetry"},
	{"Pipfile.lock", "pipenv"},
	{"Cargo.lock", "cargo"},
	{"go.sum", "go"},
}

// Analyze inspects the directory root.
func Analyze(ctx context.Context, root string, opts Options) (*Context, error) {
	logger := logging.FromContext(ctx)

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPath, "%s: %v", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPath, "%s: %v", root, err)
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(ErrInvalidPath, "%s is not a directory", root)
	}

	pc := &Context{
		Root:            abs,
		Languages:       []string{},
		Frameworks:      []string{},
		PackageManagers: []string{},
		Markers:         []string{},
	}

	for _, m := range markers {
		if !exists(filepath.Join(abs, m.file)) {
			continue
		}
		pc.Markers = append(pc.Markers, m.file)
		if !slices.Contains(pc.Languages, m.language) {
			pc.Languages = append(pc.Languages, m.language)
		}
	}
	if exists(filepath.Join(abs, ".git")) {
		pc.Markers = append(pc.Markers, ".git")
	}

	switch len(pc.Languages) {
	case 0:
		pc.ProjectType = TypeUnknown
	case 1:
		pc.ProjectType = pc.Languages[0]
	default:
		pc.ProjectType = TypeMultiLanguage
	}

	pc.PackageManagers = detectPackageManagers(abs, pc.Markers)

	// Frameworks come from dependency names, so manifests are always parsed;
	// opts only controls whether the lists are returned.
	deps, names, warnings := readDependencies(abs, pc.Markers)
	pc.Frameworks = detectFrameworks(names)
	pc.Warnings = warnings
	if opts.AnalyzeDependencies && len(deps) > 0 {
		pc.Dependencies = deps
	}
	for _, w := range warnings {
		logger.Debug("manifest skipped", "root", abs, "reason", w)
	}

	if !opts.SkipGit {
		st, err := git.Inspect(ctx, abs)
		if err != nil {
			logger.Debug("git inspection failed", "root", abs, "error", err)
		}
		pc.Git = &st
	}

	if opts.IncludeFiles {
		limit := opts.MaxFiles
		if limit <= 0 {
			limit = DefaultMaxFiles
		}
		pc.Files, pc.FilesTruncated = listFiles(abs, limit)
	}

	return pc, nil
}

func detectPackageManagers(root string, found []string) []string {
	managers := []string{}
	add := func(m string) {
		if !slices.Contains(managers, m) {
			managers = append(managers, m)
		}
	}

	for _, lf := range lockfiles {
		if exists(filepath.Join(root, lf.file)) {
			add(lf.manager)
		}
	}

	has := func(f string) bool { return slices.Contains(found, f) }
	hasAny := func(names ...string) bool { return slices.ContainsFunc(managers, func(m string) bool { return slices.Contains(names, m) }) }

	if has("package.json") && !hasAny("pnpm", "yarn", "bun", "npm") {
		add("npm")
	}
	if (has("requirements.txt") || has("pyproject.toml") || has("setup.py")) && !hasAny("uv", "poetry", "pipenv") {
		add("pip")
	}
	if has("Pipfile") {
		add("pipenv")
	}
	if has("go.mod") {
		add("go")
	}
	if has("Cargo.toml") {
		add("cargo")
	}
	if has("pom.xml") {
		add("maven")
	}
	if has("build.gradle") || has("build.gradle.kts") {
		add("gradle")
	}
	if has("Gemfile") {
		add("bundler")
	}
	if has("composer.json") {
		add("composer")
	}
	return managers
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
