package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/probe"
)

var (
	detectFormat  string
	detectRefresh bool
)

func init() {
	detectCmd.Flags().StringVarP(&detectFormat, "format", "f", "summary", "output format: summary, json, yaml, copilot")
	detectCmd.Flags().BoolVar(&detectRefresh, "refresh", false, "ignore the cached result")
	rootCmd.AddCommand(detectCmd)
}

var detectCmd = &cobra.Command{
	Use:     "detect-environment",
	Aliases: []string{"detect", "env"},
	Short:   "Print the detected environment",
	Long: `Print what devenv detects about this machine: OS, shell, Python
interpreter, Raspberry Pi and container status, project root, and the
developer tools on PATH. This is what the detect_environment tool returns.`,
	Example: `  devenv detect-environment
  devenv detect-environment --format json
  devenv detect-environment --format copilot > .github/environment.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p := newProber()
		var info probe.Info
		if detectRefresh {
			info = p.Refresh(cmd.Context())
		} else {
			info = p.Detect(cmd.Context())
		}

		w := cmd.OutOrStdout()
		switch detectFormat {
		case "summary":
			_, err := fmt.Fprintln(w, probe.Summary(info))
			return err
		case "json":
			return writeJSON(w, info)
		case "yaml":
			return writeYAML(w, info)
		case "copilot":
			return writeJSON(w, probe.Copilot(info))
		default:
			return errors.NewUserError(
				errors.Wrapf(errors.ErrInvalidArgument, "format %q", detectFormat),
				"use one of summary, json, yaml, copilot",
			)
		}
	},
}
