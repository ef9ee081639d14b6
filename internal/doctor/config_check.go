package doctor

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/thoreinstein/devenv/internal/config"
	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/paths"
)

// ConfigCheck validates devenv's own config file. A missing file is fine
// (defaults apply) but --fix will write one.
type ConfigCheck struct {
	pathFixer
	path string
}

var (
	_ Check = (*ConfigCheck)(nil)
	_ Fixer = (*ConfigCheck)(nil)
)

// NewConfigCheck checks the config file at path, or paths.ConfigFile()
// when path is empty.
func NewConfigCheck(path string) *ConfigCheck {
	if path == "" {
		path = paths.ConfigFile()
	}
	return &ConfigCheck{path: path}
}

func (c *ConfigCheck) Name() string     { return "config" }
func (c *ConfigCheck) Category() string { return "config" }

func (c *ConfigCheck) Run(_ context.Context) *CheckResult {
	c.setIssues(nil)
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Status:   SeverityPass,
		Details:  map[string]any{"path": c.path},
	}

	if _, err := os.Stat(c.path); os.IsNotExist(err) {
		c.setIssues([]issue{{Path: c.path, Repair: repairConfig}})
		result.Status = SeverityInfo
		result.Message = "no config file; using defaults"
		result.Fixable = true
		result.FixHint = "devenv config init"
		return result
	}

	cfg, err := loadConfigFile(c.path)
	if err != nil {
		result.Status = SeverityError
		result.Message = err.Error()
		result.FixHint = "devenv config edit"
		return result
	}

	errs := config.Validate(cfg)
	if len(errs) == 0 {
		result.Message = "config is valid"
		return result
	}
	problems := make([]string, 0, len(errs))
	for _, e := range errs {
		problems = append(problems, e.Error())
	}
	result.Status = SeverityError
	result.Details["problems"] = problems
	result.Message = fmt.Sprintf("%d invalid config value(s)", len(errs))
	result.FixHint = "devenv config validate shows each problem; fix them with devenv config set"
	return result
}

// loadConfigFile decodes path on top of the defaults without touching the
// global viper state.
func loadConfigFile(path string) (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "cannot parse %s", path)
	}
	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot decode %s", path)
	}
	return &cfg, nil
}

func defaultConfig() (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)
	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DirectoryCheck verifies the directories devenv writes to.
type DirectoryCheck struct {
	pathFixer
	dirs []namedDir
}

type namedDir struct {
	name string
	path string
}

var (
	_ Check = (*DirectoryCheck)(nil)
	_ Fixer = (*DirectoryCheck)(nil)
)

// NewDirectoryCheck checks the config, state and backup directories.
func NewDirectoryCheck() *DirectoryCheck {
	return newDirectoryCheck(map[string]string{
		"config":  paths.ConfigDir(),
		"state":   paths.StateDir(),
		"backups": paths.BackupDir(),
	})
}

func newDirectoryCheck(dirs map[string]string) *DirectoryCheck {
	c := &DirectoryCheck{}
	for _, name := range []string{"config", "state", "backups"} {
		if p, ok := dirs[name]; ok {
			c.dirs = append(c.dirs, namedDir{name: name, path: p})
		}
	}
	return c
}

func (c *DirectoryCheck) Name() string     { return "directories" }
func (c *DirectoryCheck) Category() string { return "filesystem" }

func (c *DirectoryCheck) Run(_ context.Context) *CheckResult {
	var issues []issue
	details := map[string]any{}
	for _, d := range c.dirs {
		details[d.name] = d.path
		issues = append(issues, checkDir(d.path, d.name)...)
	}
	c.setIssues(issues)

	result := buildResult(c.Name(), c.Category(), issues, len(c.dirs))
	maps.Copy(result.Details, details)
	if len(issues) == 0 {
		result.Message = "all directories are writable"
	}
	return result
}

func checkDir(path, subject string) []issue {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return []issue{{
			Path:     path,
			Subject:  subject,
			Problem:  "directory does not exist",
			Severity: SeverityInfo,
			Repair:   repairMkdir,
			Perm:     paths.DefaultDirPerm,
			FixHint:  "mkdir -p " + path,
		}}
	}
	if err != nil {
		return []issue{{Path: path, Subject: subject, Problem: fmt.Sprintf("cannot stat: %v", err), Severity: SeverityError}}
	}
	if !info.IsDir() {
		return []issue{{Path: path, Subject: subject, Problem: "expected a directory but found a file", Severity: SeverityError}}
	}

	var issues []issue
	if !dirWritable(path) {
		issues = append(issues, issue{
			Path:     path,
			Subject:  subject,
			Problem:  "directory is not writable",
			Severity: SeverityWarning,
			Mode:     formatMode(info.Mode()),
			FixHint:  "chmod u+w " + path,
		})
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o002 != 0 {
		issues = append(issues, issue{
			Path:     path,
			Subject:  subject,
			Problem:  "directory is world-writable",
			Severity: SeverityWarning,
			Mode:     formatMode(info.Mode()),
			Repair:   repairChmod,
			Perm:     0o755,
			FixHint:  "chmod 755 " + path,
		})
	}
	return issues
}

func dirWritable(path string) bool {
	f, err := os.CreateTemp(path, ".devenv-doctor-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
