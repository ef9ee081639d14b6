// Package probe detects the operating system, shell, interpreter and
// project facts of the machine devenv runs on.
//
// Every signal is read through an injectable seam (filesystem, environment,
// PATH lookup, subprocess runner, clock) so detection is deterministic in
// tests. Results are cached for a short TTL: repeated calls within the
// window return identical data even if the underlying state changed.
package probe

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long a probe result is reused.
const DefaultTTL = 5 * time.Minute

// DefaultCommandTimeout bounds each subprocess the probe starts.
const DefaultCommandTimeout = 2 * time.Second

// KnownTools are the binaries looked up on PATH.
var KnownTools = []string{
	"cargo", "docker", "git", "go", "gradle", "java", "kubectl", "make",
	"mvn", "node", "npm", "pip", "pip3", "pnpm", "podman", "poetry",
	"pwsh", "python", "python3", "rustc", "uv", "yarn",
}

// FileSystem is the read-only view of the filesystem the probe needs.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
}

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

type osFS struct{}

func (osFS) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
func (osFS) ReadFile(name string) ([]byte, error)  { return os.ReadFile(name) }

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

// Prober detects and caches environment Info. It is safe for concurrent use.
type Prober struct {
	ttl        time.Duration
	cmdTimeout time.Duration
	now        func() time.Time
	fsys       FileSystem
	getenv     func(string) string
	getwd      func() (string, error)
	lookPath   func(string) (string, error)
	run        Runner
	goos       string
	goarch     string
	roots      []string
	logger     *slog.Logger

	mu      sync.Mutex
	cached  *Info
	expires time.Time
}

// Option configures a Prober.
type Option func(*Prober)

// WithTTL sets the cache lifetime. Zero or negative disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(p *Prober) { p.ttl = ttl }
}

// WithCommandTimeout bounds subprocesses such as `python3 --version`.
func WithCommandTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.cmdTimeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Prober) { p.now = now }
}

// WithFileSystem replaces the filesystem.
func WithFileSystem(fsys FileSystem) Option {
	return func(p *Prober) { p.fsys = fsys }
}

// WithEnv replaces os.Getenv.
func WithEnv(getenv func(string) string) Option {
	return func(p *Prober) { p.getenv = getenv }
}

// WithWorkingDir replaces os.Getwd.
func WithWorkingDir(getwd func() (string, error)) Option {
	return func(p *Prober) { p.getwd = getwd }
}

// WithLookPath replaces exec.LookPath.
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(p *Prober) { p.lookPath = lookPath }
}

// WithRunner replaces the subprocess runner.
func WithRunner(run Runner) Option {
	return func(p *Prober) { p.run = run }
}

// WithPlatform overrides runtime.GOOS and runtime.GOARCH.
func WithPlatform(goos, goarch string) Option {
	return func(p *Prober) {
		p.goos = goos
		p.goarch = goarch
	}
}

// WithProjectRoots sets the candidate parent directories of projects.
// Leading "~" is expanded against the detected home directory.
func WithProjectRoots(roots []string) Option {
	return func(p *Prober) { p.roots = roots }
}

// WithLogger sets the logger for probe diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Prober reading the real machine unless options say otherwise.
func New(opts ...Option) *Prober {
	p := &Prober{
		ttl:        DefaultTTL,
		cmdTimeout: DefaultCommandTimeout,
		now:        time.Now,
		fsys:       osFS{},
		getenv:     os.Getenv,
		getwd:      os.Getwd,
		lookPath:   exec.LookPath,
		run:        execRunner,
		goos:       runtime.GOOS,
		goarch:     runtime.GOARCH,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Detect returns the environment Info, reusing a cached result younger than
// the TTL. Detection never fails: unreadable signals fall back to defaults.
func (p *Prober) Detect(ctx context.Context) Info {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && p.ttl > 0 && p.now().Before(p.expires) {
		return p.cached.clone()
	}
	return p.detectLocked(ctx)
}

// Refresh discards any cached result and probes again.
func (p *Prober) Refresh(ctx context.Context) Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detectLocked(ctx)
}

// Invalidate drops the cached result.
func (p *Prober) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

// Cached reports whether a live cache entry exists and when it expires.
func (p *Prober) Cached() (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached == nil || !p.now().Before(p.expires) {
		return time.Time{}, false
	}
	return p.expires, true
}

func (p *Prober) detectLocked(ctx context.Context) Info {
	info := p.detect(ctx)
	p.cached = &info
	p.expires = info.DetectedAt.Add(p.ttl)
	p.logger.Debug("environment probed",
		"os", info.OSType,
		"shell", info.Shell,
		"container", info.IsContainer,
		"raspberry_pi", info.IsRaspberryPi,
		"project_root", info.ProjectRoot,
	)
	return info.clone()
}

func (p *Prober) detect(ctx context.Context) Info {
	info := Info{
		OSType:       p.goos,
		Architecture: normalizeArch(p.goos, p.goarch),
		User:         p.firstEnv("USER", "USERNAME"),
		DetectedAt:   p.now(),
	}
	if info.User == "" {
		info.User = "unknown"
	}

	if p.goos == "windows" {
		info.Shell = "powershell"
		info.ShellSyntax = SyntaxPowerShell
		info.PythonCmd = "python"
	} else {
		info.Shell = shellName(p.getenv("SHELL"))
		info.ShellSyntax = SyntaxBash
		info.PythonCmd = "python3"
	}

	info.HomeDirectory = p.home()

	if wd, err := p.getwd(); err == nil {
		info.WorkingDirectory = wd
	} else {
		p.logger.Debug("working directory unavailable", "error", err)
	}

	info.IsRaspberryPi = p.detectRaspberryPi()
	info.IsContainer = p.detectContainer()
	info.ProjectRoot = p.detectProjectRoot(info.WorkingDirectory, info.HomeDirectory)
	info.AvailableTools = p.detectTools()
	info.PythonVersion = p.pythonVersion(ctx, info.PythonCmd)

	return info
}

func (p *Prober) firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := p.getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func (p *Prober) home() string {
	if h := p.firstEnv("HOME", "USERPROFILE"); h != "" {
		return h
	}
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return ""
}

// shellName returns the basename of $SHELL, defaulting to bash.
func shellName(shellPath string) string {
	shellPath = strings.TrimSpace(shellPath)
	if shellPath == "" {
		return "bash"
	}
	if i := strings.LastIndexAny(shellPath, `/\`); i >= 0 {
		shellPath = shellPath[i+1:]
	}
	shellPath = strings.TrimSuffix(shellPath, ".exe")
	if shellPath == "" {
		return "bash"
	}
	return shellPath
}

// normalizeArch maps Go architecture names to the names `uname -m` and
// Python's platform.machine() report.
func normalizeArch(goos, goarch string) string {
	switch goarch {
	case "amd64":
		if goos == "windows" {
			return "AMD64"
		}
		return "x86_64"
	case "arm64":
		if goos == "linux" {
			return "aarch64"
		}
		return "arm64"
	case "386":
		return "i386"
	case "arm":
		return "armv7l"
	default:
		return goarch
	}
}

func (p *Prober) detectTools() []string {
	found := make([]string, 0, len(KnownTools))
	for _, tool := range KnownTools {
		if _, err := p.lookPath(tool); err == nil {
			found = append(found, tool)
		}
	}
	return found
}

func (p *Prober) pythonVersion(ctx context.Context, pythonCmd string) string {
	if _, err := p.lookPath(pythonCmd); err != nil {
		return "unknown"
	}

	ctx, cancel := context.WithTimeout(ctx, p.cmdTimeout)
	defer cancel()

	out, err := p.run(ctx, pythonCmd, "--version")
	if err != nil {
		p.logger.Debug("python version probe failed", "cmd", pythonCmd, "error", err)
		return "unknown"
	}
	version := strings.TrimSpace(out)
	version = strings.TrimPrefix(version, "Python ")
	if version == "" {
		return "unknown"
	}
	return version
}
