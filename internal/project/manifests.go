package project

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/devenv/pkg/fileutil"
)

// manifest parses one dependency file into display entries keyed by a
// label, plus the bare package names used for framework detection.
type manifest struct {
	file  string
	parse func(data []byte) (entries map[string][]string, names []string, err error)
}

var manifests = []manifest{
	{"requirements.txt", parseRequirements},
	{"pyproject.toml", parsePyproject},
	{"package.json", parsePackageJSON},
	{"go.mod", parseGoMod},
	{"Cargo.toml", parseCargo},
	{"docker-compose.yml", parseCompose},
	{"docker-compose.yaml", parseCompose},
	{"compose.yml", parseCompose},
	{"compose.yaml", parseCompose},
}

// readDependencies parses every manifest present among found. names holds
// the bare package names of every ecosystem, for framework detection.
func readDependencies(root string, found []string) (deps map[string][]string, names, warnings []string) {
	deps = map[string][]string{}

	for _, m := range manifests {
		if !slices.Contains(found, m.file) {
			continue
		}
		data, err := fileutil.ReadFileWithLimit(filepath.Join(root, m.file))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", m.file, err))
			continue
		}
		entries, n, err := m.parse(data)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", m.file, err))
			continue
		}
		maps.Copy(deps, entries)
		names = append(names, n...)
	}

	return deps, names, warnings
}

func parseRequirements(data []byte) (map[string][]string, []string, error) {
	var entries, names []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.Index(line, " #"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		entries = append(entries, line)
		names = append(names, pythonName(line))
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	return map[string][]string{"requirements.txt": nonEmpty(entries)}, names, nil
}

type pyprojectFile struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]any `toml:"dependencies"`
			Group        map[string]struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func parsePyproject(data []byte) (map[string][]string, []string, error) {
	var doc pyprojectFile
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}

	out := map[string][]string{}
	var names []string

	if deps := doc.Project.Dependencies; len(deps) > 0 {
		out["pyproject.toml"] = deps
		for _, d := range deps {
			names = append(names, pythonName(d))
		}
	}
	for _, extra := range slices.Sorted(maps.Keys(doc.Project.OptionalDependencies)) {
		deps := doc.Project.OptionalDependencies[extra]
		out["pyproject.toml ["+extra+"]"] = deps
		for _, d := range deps {
			names = append(names, pythonName(d))
		}
	}

	if poetry := tableEntries(doc.Tool.Poetry.Dependencies); len(poetry) > 0 {
		var kept []string
		for _, e := range poetry {
			if pythonName(e) != "python" {
				kept = append(kept, e)
				names = append(names, pythonName(e))
			}
		}
		if len(kept) > 0 {
			out["pyproject.toml (poetry)"] = kept
		}
	}
	for _, group := range slices.Sorted(maps.Keys(doc.Tool.Poetry.Group)) {
		entries := tableEntries(doc.Tool.Poetry.Group[group].Dependencies)
		if len(entries) == 0 {
			continue
		}
		out["pyproject.toml (poetry "+group+")"] = entries
		for _, e := range entries {
			names = append(names, pythonName(e))
		}
	}

	return out, names, nil
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func parsePackageJSON(data []byte) (map[string][]string, []string, error) {
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, nil, err
	}

	out := map[string][]string{}
	var names []string
	add := func(label string, deps map[string]string) {
		if len(deps) == 0 {
			return
		}
		keys := slices.Sorted(maps.Keys(deps))
		entries := make([]string, len(keys))
		for i, k := range keys {
			entries[i] = k + "@" + deps[k]
		}
		out[label] = entries
		names = append(names, keys...)
	}
	add("package.json", pkg.Dependencies)
	add("package.json (dev)", pkg.DevDependencies)
	return out, names, nil
}

func parseGoMod(data []byte) (map[string][]string, []string, error) {
	f, err := modfile.ParseLax("go.mod", data, nil)
	if err != nil {
		return nil, nil, err
	}

	var entries, names []string
	for _, r := range f.Require {
		if r.Indirect {
			continue
		}
		entries = append(entries, r.Mod.Path+" "+r.Mod.Version)
		names = append(names, r.Mod.Path)
	}
	return map[string][]string{"go.mod": nonEmpty(entries)}, names, nil
}

type cargoFile struct {
	Dependencies    map[string]any `toml:"dependencies"`
	DevDependencies map[string]any `toml:"dev-dependencies"`
}

func parseCargo(data []byte) (map[string][]string, []string, error) {
	var doc cargoFile
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}

	out := map[string][]string{}
	names := slices.Collect(maps.Keys(doc.Dependencies))
	names = append(names, slices.Collect(maps.Keys(doc.DevDependencies))...)
	if e := tableEntries(doc.Dependencies); len(e) > 0 {
		out["Cargo.toml"] = e
	}
	if e := tableEntries(doc.DevDependencies); len(e) > 0 {
		out["Cargo.toml (dev)"] = e
	}
	return out, names, nil
}

type composeFile struct {
	Services map[string]struct {
		Image string `yaml:"image"`
	} `yaml:"services"`
}

func parseCompose(data []byte) (map[string][]string, []string, error) {
	var doc composeFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}

	var entries []string
	for _, name := range slices.Sorted(maps.Keys(doc.Services)) {
		if img := doc.Services[name].Image; img != "" {
			entries = append(entries, name+" ("+img+")")
		} else {
			entries = append(entries, name)
		}
	}
	return map[string][]string{"compose services": nonEmpty(entries)}, nil, nil
}

// tableEntries renders a TOML dependency table. Plain string values are
// versions; inline tables contribute their version key when present.
func tableEntries(deps map[string]any) []string {
	var entries []string
	for _, name := range slices.Sorted(maps.Keys(deps)) {
		switch v := deps[name].(type) {
		case string:
			entries = append(entries, name+" "+v)
		case map[string]any:
			if ver, ok := v["version"].(string); ok {
				entries = append(entries, name+" "+ver)
			} else {
				entries = append(entries, name)
			}
		default:
			entries = append(entries, name)
		}
	}
	return entries
}

// pythonName extracts the normalized distribution name from a PEP 508
// requirement such as "Django[argon2]>=4.2; python_version>'3.8'".
func pythonName(req string) string {
	if i := strings.IndexAny(req, "=<>!~[;@ ("); i >= 0 {
		req = req[:i]
	}
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(req)), "_", "-")
}

func nonEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// frameworks maps package names, across ecosystems, to the framework they
// indicate.
var frameworks = map[string]string{
	"django":                      "Django",
	"flask":                       "Flask",
	"fastapi":                     "FastAPI",
	"pytest":                      "pytest",
	"streamlit":                   "Streamlit",
	"react":                       "React",
	"next":                        "Next.js",
	"vue":                         "Vue",
	"svelte":                      "Svelte",
	"@angular/core":               "Angular",
	"express":                     "Express",
	"jest":                        "Jest",
	"vitest":                      "Vitest",
	"github.com/gin-gonic/gin":    "Gin",
	"github.com/labstack/echo/v4": "Echo",
	"github.com/gofiber/fiber/v2": "Fiber",
	"github.com/spf13/cobra":      "Cobra",
	"google.golang.org/grpc":      "gRPC",
	"github.com/stretchr/testify": "testify",
	"tokio":                       "Tokio",
	"axum":                        "Axum",
	"actix-web":                   "Actix Web",
	"rocket":                      "Rocket",
}

func detectFrameworks(names []string) []string {
	found := []string{}
	for _, n := range names {
		if fw, ok := frameworks[n]; ok && !slices.Contains(found, fw) {
			found = append(found, fw)
		}
	}
	sort.Strings(found)
	return found
}
