package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/devenv/internal/assistant"
	"github.com/thoreinstein/devenv/internal/config"
	"github.com/thoreinstein/devenv/internal/doctor"
	"github.com/thoreinstein/devenv/internal/errors"
)

var (
	doctorJSON bool
	doctorFix  bool
	doctorAll  bool
)

// doctorChecks builds the checks doctor runs. Tests replace it.
var doctorChecks = defaultDoctorChecks

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output results as JSON")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "repair fixable problems, then check again")
	doctorCmd.Flags().BoolVar(&doctorAll, "all", false, "show passed checks too")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the devenv installation",
	Long: `Check the environment probe, the devenv config file and directories,
and every installed assistant's MCP settings: that they parse, that
files holding secrets are private, and that devenv is registered.

Output modes:
  (default)   errors and warnings
  --all       every check, including passed ones
  --json      machine-readable report
  -q          no output, exit code only

Exit codes:
  0 - no errors or warnings
  1 - warnings present, no errors
  2 - errors present`,
	Example: `  devenv doctor
  devenv doctor --fix
  devenv doctor --json | jq '.results[] | select(.status != "pass")'`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationConfigOptional: "true"},
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if doctorJSON && quiet {
			return errors.NewUserError(errors.New("--json and --quiet are mutually exclusive"), "")
		}
		return nil
	},
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	runner := doctor.NewRunner(doctorChecks()...)
	report := runner.Run(ctx)

	if doctorFix && report.Fixable() {
		fixes := runner.Fix(ctx)
		if !doctorJSON && !quiet {
			writeFixes(w, fixes)
		}
		report = runner.Run(ctx)
	}

	switch {
	case quiet:
	case doctorJSON:
		if err := writeJSON(w, report); err != nil {
			return err
		}
	default:
		writeReport(w, report, doctorAll || verbosity > 0)
	}

	switch {
	case report.HasErrors():
		return errors.NewExitError(errSilent, errors.ExitSystem)
	case report.HasWarnings():
		return errors.NewExitError(errSilent, errors.ExitUser)
	}
	return nil
}

func defaultDoctorChecks() []doctor.Check {
	root, err := os.Getwd()
	if err != nil {
		root = ""
	}
	path := configPath
	if path == "" {
		path = config.UsedFile()
	}
	prober := newProber()
	return []doctor.Check{
		doctor.NewEnvironmentCheck(prober),
		doctor.NewToolsCheck(prober, "git"),
		doctor.NewConfigCheck(path),
		doctor.NewDirectoryCheck(),
		doctor.NewAssistantSyntaxCheck(assistant.DetectAll, root),
		doctor.NewAssistantPermissionCheck(assistant.DetectAll, root),
		doctor.NewRegistrationCheck(assistant.NewRegistrar(), DefaultEntryName, assistant.DetectAll),
	}
}

func writeReport(w io.Writer, report *doctor.Report, showAll bool) {
	shown := false
	for _, r := range report.Results {
		if !showAll && r.Status < doctor.SeverityWarning {
			continue
		}
		shown = true
		fmt.Fprintf(w, "%s [%s] %s: %s\n", statusIcon(r.Status), r.Category, r.Name, r.Message)
		if r.FixHint != "" && r.Status >= doctor.SeverityInfo {
			fmt.Fprintf(w, "  hint: %s\n", r.FixHint)
		}
	}
	if shown {
		fmt.Fprintln(w)
	}
	s := report.Summary
	fmt.Fprintf(w, "Summary: %d passed, %d info, %d warnings, %d errors\n", s.Passed, s.Info, s.Warnings, s.Errors)
	if report.Fixable() {
		fmt.Fprintln(w, "Some problems can be repaired with: devenv doctor --fix")
	}
}

func writeFixes(w io.Writer, fixes []doctor.FixResult) {
	for _, f := range fixes {
		if f.Error != nil {
			fmt.Fprintf(w, "%s %s: %v\n", color.RedString("✗"), f.Path, f.Error)
			continue
		}
		fmt.Fprintf(w, "%s %s: %s\n", color.GreenString("✓"), f.Path, f.Description)
	}
	if len(fixes) > 0 {
		fmt.Fprintln(w)
	}
}

func statusIcon(s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return color.GreenString("✓")
	case doctor.SeverityInfo:
		return color.CyanString("ℹ")
	case doctor.SeverityWarning:
		return color.YellowString("⚠")
	case doctor.SeverityError:
		return color.RedString("✗")
	default:
		return "?"
	}
}
