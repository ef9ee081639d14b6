package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/paths"
)

// Validation errors for configuration fields.
var (
	ErrVersionUnsupported = errors.New("unsupported config version")
	ErrInvalidTransport   = errors.New("invalid transport")
	ErrInvalidPort        = errors.New("invalid port")
	ErrInvalidDuration    = errors.New("duration must be positive")
	ErrInvalidAssistant   = errors.New("invalid assistant")
	ErrInvalidScope       = errors.New("invalid scope")
	ErrInvalidPath        = errors.New("invalid path")
	ErrInvalidValue       = errors.New("invalid value")
)

// Transports lists the accepted transport names.
var Transports = []string{"stdio", "http"}

// Validate checks cfg and returns every problem found, or nil.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var errs []error
	add := func(field string, err error, value any) {
		errs = append(errs, &FieldError{Field: field, Value: value, Err: err})
	}

	if cfg.Version != 1 {
		add("version", ErrVersionUnsupported, cfg.Version)
	}
	if !oneOf(cfg.Transport, Transports) {
		add("transport", ErrInvalidTransport, cfg.Transport)
	}
	if cfg.HTTP.Port < 1 || cfg.HTTP.Port > 65535 {
		add("http.port", ErrInvalidPort, cfg.HTTP.Port)
	}
	if cfg.Probe.CacheTTL <= 0 {
		add("probe.cache_ttl", ErrInvalidDuration, cfg.Probe.CacheTTL)
	}
	if cfg.Probe.CommandTimeout <= 0 {
		add("probe.command_timeout", ErrInvalidDuration, cfg.Probe.CommandTimeout)
	}
	if cfg.Project.MaxFiles < 0 {
		add("project.max_files", ErrInvalidValue, cfg.Project.MaxFiles)
	}
	for _, root := range cfg.Project.Roots {
		if err := validatePath(root); err != nil {
			add("project.roots", err, root)
		}
	}
	for _, a := range cfg.Register.Assistants {
		if !paths.ValidAssistant(a) {
			add("register.assistants", ErrInvalidAssistant, a)
		}
	}
	if cfg.Register.Scope != "" && !oneOf(cfg.Register.Scope, []string{"user", "project"}) {
		add("register.scope", ErrInvalidScope, cfg.Register.Scope)
	}
	if cfg.Backup.Retention < 1 {
		add("backup.retention", ErrInvalidValue, cfg.Backup.Retention)
	}

	return errs
}

func oneOf(s string, allowed []string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

// validatePath checks that a path is syntactically usable. It does not
// require the path to exist.
func validatePath(path string) error {
	if strings.ContainsRune(path, '\x00') {
		return ErrInvalidPath
	}
	cleaned := filepath.Clean(path)
	if cleaned == "" || cleaned == "." {
		return ErrInvalidPath
	}
	return nil
}

// FieldError is a validation failure for a single config key.
type FieldError struct {
	Field string
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error() + ": " + formatValue(e.Value)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprint(v)
}
