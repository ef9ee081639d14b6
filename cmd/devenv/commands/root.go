// Package commands implements the devenv CLI.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	buildinfo "github.com/thoreinstein/devenv/cmd"
	"github.com/thoreinstein/devenv/internal/backup"
	"github.com/thoreinstein/devenv/internal/config"
	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/logging"
	"github.com/thoreinstein/devenv/internal/paths"
	"github.com/thoreinstein/devenv/internal/probe"
)

// Global flags.
var (
	verbosity  int
	quiet      bool
	logFormat  string
	logFile    string
	logLevel   string
	configPath string
	mcpMode    bool
)

// appConfig is the loaded configuration; configLoadErr is set instead when
// loading failed.
var (
	appConfig     *config.Config
	configLoadErr error
)

// annotationConfigOptional marks commands that must run with a broken
// config file, such as the ones used to repair it.
const annotationConfigOptional = "devenv/config-optional"

func init() {
	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v info, -vv debug, -vvv trace)")
	flags.BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	flags.StringVar(&logFormat, "log-format", "", "log format: text, json (default from config)")
	flags.StringVar(&logFile, "log-file", "", `also write JSON logs to this file ("auto" uses the state directory)`)
	flags.StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&configPath, "config", "", "config file (default ./.devenv/config.yaml or "+paths.ConfigFile()+")")

	rootCmd.Flags().BoolVar(&mcpMode, "mcp-mode", false, "serve MCP over stdio")
	_ = rootCmd.Flags().MarkHidden("mcp-mode")

	rootCmd.Version = buildinfo.Info().Version
	rootCmd.SetVersionTemplate("devenv version {{.Version}}\n")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

var rootCmd = &cobra.Command{
	Use:   "devenv",
	Short: "Development environment facts for AI coding assistants",
	Long: `devenv tells AI coding assistants what machine they are working on:
the operating system, shell, Python interpreter, and project layout,
and the exact command syntax for tests, builds and installs there.

It runs as an MCP server (devenv serve) and registers itself with
Claude Code, Codex, Gemini CLI, OpenCode and VS Code (devenv register).
Run without arguments to print a summary of the current environment.`,
	Example: `  # Summarize this machine
  devenv

  # Register with Claude Code and Gemini CLI
  devenv register --assistant claude,gemini

  # How do I run tests here?
  devenv get-command-syntax test

  # Check the installation
  devenv doctor`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loadConfig()
		if err := setupLogging(cmd); err != nil {
			return err
		}
		if configLoadErr != nil && cmd.Annotations[annotationConfigOptional] == "" {
			return errors.NewConfigError(configLoadErr)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		if mcpMode {
			return runServe(cmd.Context(), cmd, serveOptions{transport: "stdio"})
		}
		info := newProber().Detect(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), probe.Summary(info))
		return nil
	},
}

func loadConfig() {
	config.Init()
	appConfig, configLoadErr = config.Load(configPath)
	if appConfig == nil {
		// Keep commands that tolerate a broken file on the defaults.
		v := viper.New()
		config.SetDefaults(v)
		appConfig = &config.Config{}
		_ = v.Unmarshal(appConfig)
	}
	backup.Version = buildinfo.Info().Version
}

// setupLogging installs the process logger. Flags override config; logs
// never go to stdout, which carries MCP traffic in stdio mode.
func setupLogging(c *cobra.Command) error {
	if quiet && verbosity > 0 {
		return errors.NewUserError(errors.New("--quiet and --verbose are mutually exclusive"), "pass only one of them")
	}

	level, err := resolveLevel()
	if err != nil {
		return errors.NewUserError(err, "use one of trace, debug, info, warn, error")
	}

	format := logFormat
	if format == "" {
		format = appConfig.Log.Format
	}
	f, err := logging.ParseFormat(format)
	if err != nil {
		return errors.NewUserError(err, "use --log-format text or --log-format json")
	}

	handlers := []slog.Handler{logging.NewHandlerFor(logging.Config{Level: level, Format: f, Output: c.ErrOrStderr()})}

	path := logFile
	if path == "" {
		path = appConfig.Log.File
	}
	if path == "auto" {
		path = paths.LogFile()
	}
	if path != "" {
		w, err := openLogFile(path)
		if err != nil {
			return errors.NewSystemError(err, "check that the log directory is writable")
		}
		handlers = append(handlers, logging.NewHandlerFor(logging.Config{Level: level, Format: logging.FormatJSON, Output: w}))
	}

	var handler slog.Handler = handlers[0]
	if len(handlers) > 1 {
		handler = logging.NewMultiHandler(handlers...)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c.SetContext(logging.NewContext(ctx, logger))
	return nil
}

func resolveLevel() (slog.Level, error) {
	switch {
	case logLevel != "":
		return logging.ParseLevel(logLevel)
	case quiet:
		return slog.LevelError, nil
	case verbosity > 0:
		return logging.LevelFromVerbosity(verbosity), nil
	case appConfig.Log.Level != "":
		return logging.ParseLevel(appConfig.Log.Level)
	default:
		return slog.LevelWarn, nil
	}
}

func openLogFile(path string) (io.Writer, error) {
	if err := paths.EnsureDir(filepath.Dir(path), 0); err != nil {
		return nil, errors.Wrapf(err, "creating log directory for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, "opening log file %s", path)
	}
	return f, nil
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return errors.ExitSuccess
	}
	if !errors.Is(err, errSilent) {
		printError(rootCmd.ErrOrStderr(), err)
	}
	return errors.ExitCode(err)
}

// errSilent marks failures already reported to the user, such as doctor
// findings, that only need to set the exit code.
var errSilent = errors.New("silent failure")

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if s := errors.Suggestion(err); s != "" {
		fmt.Fprintf(w, "Suggestion: %s\n", s)
	}
}
