package probe

import (
	"path"
	"strings"
)

// Container sentinels. Any one of them is sufficient.
var (
	containerSentinelFiles = []string{"/.dockerenv", "/run/.containerenv"}
	containerEnvVars       = []string{"CONTAINER", "container", "DOCKER_CONTAINER"}
	containerCgroupMarkers = []string{"docker", "containerd", "kubepods", "libpod"}
)

// ProjectMarkers are files whose presence marks a project root.
var ProjectMarkers = []string{
	".git", "go.mod", "package.json", "pyproject.toml", "setup.py",
	"requirements.txt", "Cargo.toml", "pom.xml", "build.gradle",
}

// DefaultProjectRoots returns the conventional parent directories of
// projects for goos.
func DefaultProjectRoots(goos string) []string {
	if goos == "windows" {
		return []string{"c:/dev", "c:/projects", "c:/code"}
	}
	return []string{"~/dev", "~/projects", "~/code", "/opt/dev"}
}

func (p *Prober) detectRaspberryPi() bool {
	if p.goos != "linux" {
		return false
	}
	for _, name := range []string{"/proc/device-tree/model", "/proc/cpuinfo"} {
		data, err := p.fsys.ReadFile(name)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(string(data)), "raspberry pi") {
			return true
		}
	}
	return false
}

func (p *Prober) detectContainer() bool {
	for _, name := range containerSentinelFiles {
		if _, err := p.fsys.Stat(name); err == nil {
			return true
		}
	}
	for _, key := range containerEnvVars {
		if p.getenv(key) != "" {
			return true
		}
	}
	data, err := p.fsys.ReadFile("/proc/1/cgroup")
	if err != nil {
		return false
	}
	cgroup := string(data)
	for _, marker := range containerCgroupMarkers {
		if strings.Contains(cgroup, marker) {
			return true
		}
	}
	return false
}

// detectProjectRoot resolves the project root for wd:
//  1. wd itself when it lies under a candidate root directory;
//  2. the nearest ancestor holding a project marker, stopping at home;
//  3. wd.
func (p *Prober) detectProjectRoot(wd, home string) string {
	if wd == "" {
		return ""
	}

	roots := p.roots
	if len(roots) == 0 {
		roots = DefaultProjectRoots(p.goos)
	}
	for _, root := range roots {
		root = expandHome(root, home)
		if root != "" && isWithin(normalize(wd), normalize(root)) {
			return wd
		}
	}

	if dir := p.findMarkerDir(wd, home); dir != "" {
		return dir
	}
	return wd
}

func (p *Prober) findMarkerDir(start, home string) string {
	dir := start
	for {
		for _, marker := range ProjectMarkers {
			if _, err := p.fsys.Stat(joinPath(dir, marker)); err == nil {
				return dir
			}
		}
		if home != "" && normalize(dir) == normalize(home) {
			return ""
		}
		parent := parentDir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandHome(p, home string) string {
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		if home == "" {
			return ""
		}
		return joinPath(home, p[2:])
	}
	return p
}

// Paths are compared in slash form and case-insensitively on drive-letter
// paths, so the same logic serves Windows paths probed from tests on Linux.
func normalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if len(p) >= 2 && p[1] == ':' {
		p = strings.ToLower(p)
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

func isWithin(p, root string) bool {
	if p == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(p, prefix)
}

func joinPath(dir, name string) string {
	if strings.Contains(dir, `\`) {
		return strings.TrimRight(dir, `\`) + `\` + name
	}
	return path.Join(dir, name)
}

func parentDir(dir string) string {
	if strings.Contains(dir, `\`) {
		trimmed := strings.TrimRight(dir, `\`)
		i := strings.LastIndex(trimmed, `\`)
		if i < 0 {
			return dir
		}
		if i == 2 && trimmed[1] == ':' {
			return trimmed[:3]
		}
		return trimmed[:i]
	}
	return path.Dir(dir)
}
