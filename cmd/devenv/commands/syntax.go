package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/logging"
	"github.com/thoreinstein/devenv/internal/probe"
	"github.com/thoreinstein/devenv/internal/server"
	"github.com/thoreinstein/devenv/internal/syntax"
)

var (
	syntaxTarget string
	syntaxFormat string
	syntaxVars   []string
	formatVars   []string
)

// pickOperation chooses an operation interactively. Tests replace it.
var pickOperation = fuzzyPickOperation

func init() {
	syntaxCmd.Flags().StringVarP(&syntaxTarget, "target", "t", syntax.TargetLocal, "target: local or pi")
	syntaxCmd.Flags().StringVarP(&syntaxFormat, "format", "f", server.FormatShell, "output format: shell, explanation, examples, json")
	syntaxCmd.Flags().StringArrayVar(&syntaxVars, "var", nil, "template variable as name=value (repeatable)")
	formatCmd.Flags().StringArrayVar(&formatVars, "var", nil, "template variable as name=value (repeatable)")

	rootCmd.AddCommand(syntaxCmd, formatCmd, operationsCmd)
}

var syntaxCmd = &cobra.Command{
	Use:     "get-command-syntax [operation]",
	Aliases: []string{"syntax"},
	Short:   "Print the command for an operation on this machine",
	Long: `Print the exact command for a development operation in the detected
environment. Without an operation on a terminal, pick one interactively.

Run 'devenv operations' for the list of operations.`,
	Example: `  devenv get-command-syntax test
  devenv get-command-syntax run --var module=app
  devenv get-command-syntax logs --target pi --var service=sensor
  devenv get-command-syntax install --format explanation`,
	Args: cobra.MaximumNArgs(1),
	ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		names := make([]string, 0, len(syntax.Operations()))
		for _, op := range syntax.Operations() {
			names = append(names, string(op)+"\t"+op.Summary())
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		vars, err := parseVars(syntaxVars)
		if err != nil {
			return err
		}

		var op string
		switch {
		case len(args) == 1:
			op = args[0]
		case logging.IsInteractive():
			picked, err := pickOperation()
			if errors.Is(err, fuzzyfinder.ErrAbort) {
				return nil
			}
			if err != nil {
				return err
			}
			op = string(picked)
		default:
			return errors.NewUserError(errors.New("operation is required"), "run devenv operations to list them")
		}

		env := newProber().Detect(cmd.Context())
		sx, err := syntax.Lookup(env, syntax.Query{Operation: op, Target: syntaxTarget, Variables: vars})
		if err != nil {
			return errors.NewUserError(err, "")
		}
		out, err := server.RenderSyntax(sx, syntaxFormat)
		if err != nil {
			return errors.NewUserError(err, "")
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	},
}

func fuzzyPickOperation() (syntax.Operation, error) {
	ops := syntax.Operations()
	idx, err := fuzzyfinder.Find(
		ops,
		func(i int) string { return string(ops[i]) },
		fuzzyfinder.WithPromptString("operation> "),
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i < 0 {
				return ""
			}
			return operationPreview(ops[i])
		}),
	)
	if err != nil {
		return "", err
	}
	return ops[idx], nil
}

// operationPreview lists op's command per family for the finder preview.
func operationPreview(op syntax.Operation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", op, op.Summary())
	for _, f := range syntax.Families() {
		row, used, err := syntax.Resolve(op, f)
		if err != nil {
			fmt.Fprintf(&b, "%-8s (unsupported)\n", f)
			continue
		}
		if used != f {
			fmt.Fprintf(&b, "%-8s %s  (from %s)\n", f, row.Command, used)
			continue
		}
		fmt.Fprintf(&b, "%-8s %s\n", f, row.Command)
	}
	return b.String()
}

var formatCmd = &cobra.Command{
	Use:   "format-command <template>",
	Short: "Expand a command template for this machine",
	Long: `Expand {name} placeholders in a template. Built-in variables come
from the detected environment: {python_cmd}, {pip_cmd}, {shell_sep},
{project_root}, {home}, {user}, {shell} and {os}. Values passed with
--var override them.`,
	Example: `  devenv format-command "{python_cmd} -m pytest {shell_sep} {python_cmd} -m mypy ."
  devenv format-command "cd {project_root} {shell_sep} {python_cmd} -m {module}" --var module=app`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vars, err := parseVars(formatVars)
		if err != nil {
			return err
		}
		env := newProber().Detect(cmd.Context())
		out, err := syntax.FormatForEnv(args[0], env, vars)
		if err != nil {
			return errors.NewUserError(err, "pass missing values with --var name=value")
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	},
}

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "List supported operations and families",
	Long: `List every operation get-command-syntax understands, with the
families (windows, linux, darwin, pi) that support it. A family marked
with * borrows another family's command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeOperations(cmd.OutOrStdout(), newProber().Detect(cmd.Context()))
	},
}

func writeOperations(w io.Writer, env probe.Info) error {
	current := syntax.SelectFamily(env, syntax.TargetLocal)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OPERATION\tFAMILIES\tDESCRIPTION")
	for _, op := range syntax.Operations() {
		var fams []string
		for _, f := range syntax.Families() {
			_, used, err := syntax.Resolve(op, f)
			switch {
			case err != nil:
				continue
			case used != f:
				fams = append(fams, string(f)+"*")
			default:
				fams = append(fams, string(f))
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", op, strings.Join(fams, ","), op.Summary())
	}
	fmt.Fprintf(tw, "\nThis machine uses the %s family.\n", current)
	return tw.Flush()
}
