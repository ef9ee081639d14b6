package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/pkg/fileutil"
)

// ErrUnknownKey indicates a config key devenv does not define.
var ErrUnknownKey = errors.New("unknown config key")

// Set parses raw according to the type of key's default and stores it in
// the global viper state. Slice keys take comma-separated values.
func Set(key, raw string) error {
	key = strings.ToLower(strings.TrimSpace(key))

	defaults := viper.New()
	SetDefaults(defaults)
	if !defaults.IsSet(key) {
		return errors.Wrapf(ErrUnknownKey, "%q", key)
	}

	var value any
	switch defaults.Get(key).(type) {
	case map[string]any:
		return errors.Wrapf(ErrUnknownKey, "%q is a section, set one of its keys", key)
	case []string:
		value = splitList(raw)
	case int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return errors.Wrapf(ErrInvalidValue, "%s must be an integer: %q", key, raw)
		}
		value = n
	case time.Duration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return errors.Wrapf(ErrInvalidValue, "%s must be a duration like 5m: %q", key, raw)
		}
		value = d
	default:
		value = raw
	}

	viper.Set(key, value)

	cfg, err := Current()
	if err != nil {
		return err
	}
	if errs := Validate(cfg); len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Save writes cfg to path as YAML with private permissions.
func Save(path string, cfg *Config) error {
	if err := fileutil.AtomicWriteYAML(path, toDocument(cfg), 0o600); err != nil {
		return errors.Wrapf(err, "writing config file %s", path)
	}
	return nil
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// toDocument renders durations as strings ("5m0s") so the file stays
// readable and round-trips through viper's decode hooks.
func toDocument(cfg *Config) map[string]any {
	return map[string]any{
		"version": cfg.Version,
		"server": map[string]any{
			"name":         cfg.Server.Name,
			"instructions": cfg.Server.Instructions,
		},
		"transport": cfg.Transport,
		"http": map[string]any{
			"host":         cfg.HTTP.Host,
			"port":         cfg.HTTP.Port,
			"cors_origins": nonNil(cfg.HTTP.CORSOrigins),
		},
		"probe": map[string]any{
			"cache_ttl":       cfg.Probe.CacheTTL.String(),
			"command_timeout": cfg.Probe.CommandTimeout.String(),
		},
		"project": map[string]any{
			"roots":     nonNil(cfg.Project.Roots),
			"max_files": cfg.Project.MaxFiles,
		},
		"log": map[string]any{
			"level":  cfg.Log.Level,
			"format": cfg.Log.Format,
			"file":   cfg.Log.File,
		},
		"register": map[string]any{
			"assistants": nonNil(cfg.Register.Assistants),
			"scope":      cfg.Register.Scope,
		},
		"backup": map[string]any{
			"retention": cfg.Backup.Retention,
		},
	}
}

func splitList(s string) []string {
	out := []string{}
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
