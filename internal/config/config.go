package config

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/paths"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. DEVENV_HTTP_PORT=9000.
const EnvPrefix = "DEVENV"

// Defaults.
const (
	DefaultServerName     = "dev-environment-mcp"
	DefaultTransport      = "stdio"
	DefaultHTTPHost       = "localhost"
	DefaultHTTPPort       = 8080
	DefaultCacheTTL       = 5 * time.Minute
	DefaultCommandTimeout = 2 * time.Second
	DefaultMaxFiles       = 50
	DefaultRetention      = 5
)

// DefaultInstructions is advertised to clients during the handshake.
const DefaultInstructions = "Call detect_environment before suggesting shell commands, " +
	"then get_command_syntax for the exact syntax of test, build, install and similar " +
	"operations on this machine."

// Config is devenv's configuration.
type Config struct {
	Version   int            `mapstructure:"version" yaml:"version"`
	Server    ServerConfig   `mapstructure:"server" yaml:"server"`
	Transport string         `mapstructure:"transport" yaml:"transport"`
	HTTP      HTTPConfig     `mapstructure:"http" yaml:"http"`
	Probe     ProbeConfig    `mapstructure:"probe" yaml:"probe"`
	Project   ProjectConfig  `mapstructure:"project" yaml:"project"`
	Log       LogConfig      `mapstructure:"log" yaml:"log"`
	Register  RegisterConfig `mapstructure:"register" yaml:"register"`
	Backup    BackupConfig   `mapstructure:"backup" yaml:"backup"`
}

// ServerConfig describes how the server introduces itself.
type ServerConfig struct {
	Name         string `mapstructure:"name" yaml:"name"`
	Instructions string `mapstructure:"instructions" yaml:"instructions"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Host        string   `mapstructure:"host" yaml:"host"`
	Port        int      `mapstructure:"port" yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// ProbeConfig configures environment detection.
type ProbeConfig struct {
	CacheTTL       time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
}

// ProjectConfig configures project root detection and analysis.
type ProjectConfig struct {
	// Roots are candidate parent directories for projects. Empty means the
	// platform defaults (~/dev, ~/projects, ~/code, ...).
	Roots    []string `mapstructure:"roots" yaml:"roots"`
	MaxFiles int      `mapstructure:"max_files" yaml:"max_files"`
}

// LogConfig sets logging defaults that flags can override.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// RegisterConfig sets defaults for `devenv register`.
type RegisterConfig struct {
	Assistants []string `mapstructure:"assistants" yaml:"assistants"`
	Scope      string   `mapstructure:"scope" yaml:"scope"`
}

// BackupConfig configures assistant config backups.
type BackupConfig struct {
	Retention int `mapstructure:"retention" yaml:"retention"`
}

// Init initializes the global viper instance with search paths, env
// binding and defaults. Call it once at startup before Load.
func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AddConfigPath(".devenv")
	viper.AddConfigPath(paths.ConfigDir())

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults(viper.GetViper())
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("version", 1)
	v.SetDefault("server.name", DefaultServerName)
	v.SetDefault("server.instructions", DefaultInstructions)
	v.SetDefault("transport", DefaultTransport)
	v.SetDefault("http.host", DefaultHTTPHost)
	v.SetDefault("http.port", DefaultHTTPPort)
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("probe.cache_ttl", DefaultCacheTTL)
	v.SetDefault("probe.command_timeout", DefaultCommandTimeout)
	v.SetDefault("project.roots", []string{})
	v.SetDefault("project.max_files", DefaultMaxFiles)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("register.assistants", []string{})
	v.SetDefault("register.scope", "user")
	v.SetDefault("backup.retention", DefaultRetention)
}

// Load reads the configuration file and validates the result.
// An explicit path must exist; without one, a missing file means defaults.
func Load(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, "config file not found at %s", path)
		}
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	cfg, err := Current()
	if err != nil {
		return nil, err
	}

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, errors.Wrap(errors.Join(errs...), "validating config")
	}
	return cfg, nil
}

// Current decodes the global viper state without re-reading files.
func Current() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	return &cfg, nil
}

// Keys returns every known configuration key in sorted order.
func Keys() []string {
	keys := viper.AllKeys()
	sort.Strings(keys)
	return keys
}

// UsedFile returns the config file viper loaded, or "" when running on defaults.
func UsedFile() string {
	return viper.ConfigFileUsed()
}
