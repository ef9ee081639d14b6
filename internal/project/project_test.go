package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestAnalyze_PythonProject(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"requirements.txt": "# runtime\nFlask==3.0.0  # web\nrequests>=2.31\n-r dev.txt\n\n",
		"pyproject.toml": `
[project]
name = "bt-switcher"
dependencies = ["fastapi>=0.110", "pydantic_core"]

[project.optional-dependencies]
test = ["pytest>=8"]
`,
		"src/app.py": "print('hi')\n",
	})

	pc, err := Analyze(t.Context(), root, Options{AnalyzeDependencies: true, SkipGit: true})
	require.NoError(t, err)

	assert.Equal(t, "python", pc.ProjectType)
	assert.Equal(t, []string{"python"}, pc.Languages)
	assert.Equal(t, []string{"pyproject.toml", "requirements.txt"}, pc.Markers)
	assert.Equal(t, []string{"pip"}, pc.PackageManagers)
	assert.Equal(t, []string{"FastAPI", "Flask", "pytest"}, pc.Frameworks)
	assert.Equal(t, []string{"Flask==3.0.0", "requests>=2.31"}, pc.Dependencies["requirements.txt"])
	assert.Equal(t, []string{"fastapi>=0.110", "pydantic_core"}, pc.Dependencies["pyproject.toml"])
	assert.Equal(t, []string{"pytest>=8"}, pc.Dependencies["pyproject.toml [test]"])
	assert.Nil(t, pc.Git)
	assert.Nil(t, pc.Files)
	assert.Empty(t, pc.Warnings)
}

func TestAnalyze_PoetryProject(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"pyproject.toml": `
[tool.poetry.dependencies]
python = "^3.11"
django = "^5.0"
celery = { version = "^5.3", extras = ["redis"] }

[tool.poetry.group.dev.dependencies]
pytest = "^8.0"
`,
		"poetry.lock": "",
	})

	pc, err := Analyze(t.Context(), root, Options{AnalyzeDependencies: true, SkipGit: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"poetry"}, pc.PackageManagers)
	assert.Equal(t, []string{"celery ^5.3", "django ^5.0"}, pc.Dependencies["pyproject.toml (poetry)"])
	assert.Equal(t, []string{"pytest ^8.0"}, pc.Dependencies["pyproject.toml (poetry dev)"])
	assert.Equal(t, []string{"Django", "pytest"}, pc.Frameworks)
}

func TestAnalyze_MultiLanguage(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"package.json": `{"name":"web","dependencies":{"react":"^18.2.0","next":"14.1.0"},"devDependencies":{"vitest":"^1.0.0"}}`,
		"yarn.lock":    "",
		"go.mod": `module example.com/api

go 1.22

require (
	github.com/gin-gonic/gin v1.9.1
	golang.org/x/text v0.14.0 // indirect
)
`,
		"Cargo.toml": `
[package]
name = "core"

[dependencies]
tokio = { version = "1", features = ["full"] }
serde = "1.0"

[dev-dependencies]
criterion = "0.5"
`,
		"compose.yaml": "services:\n  db:\n    image: postgres:16\n  api:\n    build: .\n",
		"Dockerfile":   "FROM alpine\n",
	})

	pc, err := Analyze(t.Context(), root, Options{AnalyzeDependencies: true, SkipGit: true})
	require.NoError(t, err)

	assert.Equal(t, TypeMultiLanguage, pc.ProjectType)
	assert.Equal(t, []string{"node.js", "rust", "go", "docker"}, pc.Languages)
	assert.Equal(t, []string{"yarn", "go", "cargo"}, pc.PackageManagers)
	assert.Equal(t, []string{"next@14.1.0", "react@^18.2.0"}, pc.Dependencies["package.json"])
	assert.Equal(t, []string{"vitest@^1.0.0"}, pc.Dependencies["package.json (dev)"])
	assert.Equal(t, []string{"github.com/gin-gonic/gin v1.9.1"}, pc.Dependencies["go.mod"])
	assert.Equal(t, []string{"serde 1.0", "tokio 1"}, pc.Dependencies["Cargo.toml"])
	assert.Equal(t, []string{"criterion 0.5"}, pc.Dependencies["Cargo.toml (dev)"])
	assert.Equal(t, []string{"api", "db (postgres:16)"}, pc.Dependencies["compose services"])
	assert.Equal(t, []string{"Gin", "Next.js", "React", "Tokio", "Vitest"}, pc.Frameworks)
}

func TestAnalyze_DependenciesOmittedWhenNotRequested(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"requirements.txt": "django\n"})

	pc, err := Analyze(t.Context(), root, Options{SkipGit: true})
	require.NoError(t, err)

	assert.Nil(t, pc.Dependencies)
	assert.Equal(t, []string{"Django"}, pc.Frameworks, "frameworks are detected regardless")
}

func TestAnalyze_BrokenManifestIsAWarning(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"package.json":     "{not json",
		"requirements.txt": "click\n",
	})

	pc, err := Analyze(t.Context(), root, Options{AnalyzeDependencies: true, SkipGit: true})
	require.NoError(t, err)

	require.Len(t, pc.Warnings, 1)
	assert.Contains(t, pc.Warnings[0], "package.json")
	assert.Equal(t, []string{"click"}, pc.Dependencies["requirements.txt"])
}

func TestAnalyze_EmptyDirectory(t *testing.T) {
	pc, err := Analyze(t.Context(), t.TempDir(), Options{AnalyzeDependencies: true})
	require.NoError(t, err)

	assert.Equal(t, TypeUnknown, pc.ProjectType)
	assert.Empty(t, pc.Languages)
	assert.NotNil(t, pc.Languages)
	require.NotNil(t, pc.Git)
	assert.False(t, pc.Git.IsRepo)
}

func TestAnalyze_InvalidPath(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.txt")
	writeFiles(t, root, map[string]string{"file.txt": "x"})

	for _, path := range []string{filepath.Join(root, "missing"), file} {
		_, err := Analyze(t.Context(), path, Options{})
		if !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Analyze(%q) error = %v, want ErrInvalidPath", path, err)
		}
	}
}

func TestAnalyze_GitMarker(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	pc, err := Analyze(t.Context(), root, Options{SkipGit: true})
	require.NoError(t, err)
	assert.Contains(t, pc.Markers, ".git")
}

func TestAnalyze_FileListing(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"README.md":                "",
		"src/main.py":              "",
		"src/util/helpers.py":      "",
		".env":                     "SECRET=1",
		".github/workflows/ci.yml": "",
		"node_modules/x/index.js":  "",
		"src/__pycache__/m.pyc":    "",
	}
	writeFiles(t, root, files)

	pc, err := Analyze(t.Context(), root, Options{IncludeFiles: true, SkipGit: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"README.md", "src/main.py", "src/util/helpers.py"}, pc.Files)
	assert.False(t, pc.FilesTruncated)
}

func TestAnalyze_FileListingCap(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for i := range 60 {
		files[fmt.Sprintf("f%02d.txt", i)] = ""
	}
	writeFiles(t, root, files)

	pc, err := Analyze(t.Context(), root, Options{IncludeFiles: true, SkipGit: true})
	require.NoError(t, err)
	assert.Len(t, pc.Files, DefaultMaxFiles)
	assert.True(t, pc.FilesTruncated)
	assert.True(t, slices.IsSorted(pc.Files))

	pc, err = Analyze(t.Context(), root, Options{IncludeFiles: true, SkipGit: true, MaxFiles: 5})
	require.NoError(t, err)
	assert.Len(t, pc.Files, 5)
}

func TestPythonName(t *testing.T) {
	tests := map[string]string{
		"Django[argon2]>=4.2; python_version>'3.8'": "django",
		"pydantic_core":                              "pydantic-core",
		"requests @ https://example.com/r.whl":       "requests",
		"numpy ~= 1.26":                              "numpy",
		"Flask":                                      "flask",
	}
	for in, want := range tests {
		if got := pythonName(in); got != want {
			t.Errorf("pythonName(%q) = %q, want %q", in, got, want)
		}
	}
}
