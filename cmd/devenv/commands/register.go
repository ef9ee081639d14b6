package commands

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/devenv/internal/assistant"
	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/logging"
	"github.com/thoreinstein/devenv/internal/paths"
)

// DefaultEntryName is the server key written into assistant configs.
const DefaultEntryName = "dev-environment"

type registerOptions struct {
	assistants []string
	scope      string
	name       string
	transport  string
	url        string
	command    string
	dryRun     bool
	json       bool
}

var (
	registerFlags   registerOptions
	unregisterFlags registerOptions
)

// executable resolves the devenv binary written into stdio entries.
var executable = os.Executable

func init() {
	for _, c := range []struct {
		cmd  *cobra.Command
		opts *registerOptions
	}{{registerCmd, &registerFlags}, {unregisterCmd, &unregisterFlags}} {
		f := c.cmd.Flags()
		f.StringSliceVarP(&c.opts.assistants, "assistant", "a", nil,
			"assistants to update: claude, codex, gemini, opencode, vscode (default: config, else all installed)")
		f.StringVar(&c.opts.scope, "scope", "", "user or project (default from config)")
		f.StringVar(&c.opts.name, "name", DefaultEntryName, "server name in the assistant config")
		f.BoolVar(&c.opts.dryRun, "dry-run", false, "show the resulting file without writing it")
		f.BoolVar(&c.opts.json, "json", false, "output JSON")
	}
	f := registerCmd.Flags()
	f.StringVar(&registerFlags.transport, "transport", assistant.TransportStdio, "how the assistant reaches devenv: stdio or http")
	f.StringVar(&registerFlags.url, "url", "", "server URL for --transport http (default from http.host and http.port)")
	f.StringVar(&registerFlags.command, "command", "", "devenv binary for --transport stdio (default: this executable)")

	rootCmd.AddCommand(registerCmd, unregisterCmd)
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Add devenv to AI assistants' MCP configuration",
	Long: `Add devenv as an MCP server to the configuration of each selected
assistant. Existing files are backed up first (see devenv backup list)
and settings devenv does not manage are left untouched.

User scope edits the assistant's global settings; project scope edits
the settings file in the current project (Codex has none).`,
	Example: `  # Every installed assistant
  devenv register

  # Only Claude Code, for this project
  devenv register --assistant claude --scope project

  # Preview the change
  devenv register --assistant gemini --dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runRegistration(cmd, registerFlags, true)
	},
}

var unregisterCmd = &cobra.Command{
	Use:   "unregister",
	Short: "Remove devenv from AI assistants' MCP configuration",
	Long: `Remove the devenv entry from each selected assistant's MCP
configuration. Files are backed up before they change.`,
	Example: `  devenv unregister --assistant claude,codex`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runRegistration(cmd, unregisterFlags, false)
	},
}

func runRegistration(cmd *cobra.Command, opts registerOptions, add bool) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)

	targets, err := resolveAssistants(opts.assistants)
	if err != nil {
		return err
	}
	scopeName := opts.scope
	if scopeName == "" {
		scopeName = appConfig.Register.Scope
	}
	scope, err := assistant.ParseScope(scopeName)
	if err != nil {
		return errors.NewUserError(err, "use --scope user or --scope project")
	}

	var entry assistant.Entry
	if add {
		entry, err = buildEntry(opts)
		if err != nil {
			return err
		}
	}

	root, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "resolving project directory")
	}
	r := assistant.NewRegistrar(
		assistant.WithBackups(newBackupManager()),
		assistant.WithProjectRoot(root),
		assistant.WithDryRun(opts.dryRun),
	)

	var results []*assistant.Result
	var failed []error
	for _, a := range targets {
		var res *assistant.Result
		if add {
			res, err = r.Register(ctx, a, scope, entry)
		} else {
			res, err = r.Unregister(ctx, a, scope, opts.name)
		}
		if err != nil {
			if errors.Is(err, paths.ErrScopeUnsupported) && len(targets) > 1 {
				logger.Warn("skipping assistant", "assistant", a, "reason", err)
				continue
			}
			failed = append(failed, errors.Wrapf(err, "%s", a))
			continue
		}
		results = append(results, res)
	}

	w := cmd.OutOrStdout()
	if opts.json {
		if err := writeJSON(w, results); err != nil {
			return err
		}
	} else {
		writeResults(w, results)
	}

	if len(failed) > 0 {
		return errors.NewUserError(errors.Join(failed...), "run devenv doctor to inspect the assistant config files")
	}
	return nil
}

// resolveAssistants picks the flag values, then the configured list, then
// every installed assistant.
func resolveAssistants(flagValues []string) ([]string, error) {
	names := splitList(flagValues)
	if len(names) == 0 {
		names = appConfig.Register.Assistants
	}
	if len(names) == 0 {
		names = assistant.Installed()
	}
	if len(names) == 0 {
		return nil, errors.NewUserError(
			errors.New("no AI assistants detected"),
			"name one explicitly, e.g. devenv register --assistant claude",
		)
	}
	for _, n := range names {
		if !paths.ValidAssistant(n) {
			return nil, errors.NewUserError(
				errors.Wrapf(paths.ErrUnknownAssistant, "%q", n),
				"supported assistants: claude, codex, gemini, opencode, vscode",
			)
		}
	}
	return names, nil
}

func buildEntry(opts registerOptions) (assistant.Entry, error) {
	e := assistant.Entry{Name: opts.name, Transport: opts.transport}
	switch opts.transport {
	case assistant.TransportStdio:
		e.Command = opts.command
		if e.Command == "" {
			exe, err := executable()
			if err != nil {
				return e, errors.NewSystemError(err, "pass the binary path with --command")
			}
			if resolved, err := filepath.EvalSymlinks(exe); err == nil {
				exe = resolved
			}
			e.Command = exe
		}
		e.Args = []string{"serve", "--transport", "stdio"}
		if configPath != "" {
			abs, err := filepath.Abs(configPath)
			if err != nil {
				return e, errors.Wrap(err, "resolving --config")
			}
			e.Args = append(e.Args, "--config", abs)
		}
	case assistant.TransportHTTP:
		e.URL = opts.url
		if e.URL == "" {
			e.URL = "http://" + net.JoinHostPort(appConfig.HTTP.Host, strconv.Itoa(appConfig.HTTP.Port)) + "/mcp"
		}
	}
	if err := e.Validate(); err != nil {
		return e, errors.NewUserError(err, "use --transport stdio or --transport http")
	}
	return e, nil
}

func writeResults(w io.Writer, results []*assistant.Result) {
	for _, res := range results {
		line := fmt.Sprintf("%-9s %-10s %s", res.Assistant, res.Action, res.Path)
		if res.BackupID != "" {
			line += fmt.Sprintf(" (backup %s)", res.BackupID)
		}
		if res.DryRun && res.Preview != "" {
			line += " (dry run)"
		}
		fmt.Fprintln(w, line)
		if res.Preview != "" {
			fmt.Fprintln(w, res.Preview)
		}
	}
}
