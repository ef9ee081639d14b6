package commands

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/project"
	"github.com/thoreinstein/devenv/internal/syntax"
)

var (
	projectFiles  bool
	projectNoDeps bool
	projectJSON   bool
	projectNoGit  bool
)

func init() {
	projectCmd.Flags().BoolVar(&projectFiles, "files", false, "list project files")
	projectCmd.Flags().BoolVar(&projectNoDeps, "no-deps", false, "skip dependency analysis")
	projectCmd.Flags().BoolVar(&projectNoGit, "no-git", false, "skip git status")
	projectCmd.Flags().BoolVar(&projectJSON, "json", false, "output JSON")
	rootCmd.AddCommand(projectCmd)
}

var projectCmd = &cobra.Command{
	Use:     "project-context [path]",
	Aliases: []string{"project"},
	Short:   "Describe a project directory",
	Long: `Describe the project at path: its type, languages, frameworks,
package managers, dependencies and git state, followed by the commands
to test, run, install and lint it on this machine.

Without a path, the detected project root is used.`,
	Example: `  devenv project-context
  devenv project-context ~/dev/sensor --files --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env := newProber().Detect(ctx)

		root := env.EffectiveProjectRoot()
		if len(args) == 1 {
			root = args[0]
		}
		pc, err := project.Analyze(ctx, root, project.Options{
			IncludeFiles:        projectFiles,
			AnalyzeDependencies: !projectNoDeps,
			SkipGit:             projectNoGit,
			MaxFiles:            appConfig.Project.MaxFiles,
		})
		if err != nil {
			if errors.Is(err, project.ErrInvalidPath) {
				return errors.NewUserError(err, "pass an existing project directory")
			}
			return err
		}

		commands := syntax.ProjectCommands(ctx, env, nil)
		w := cmd.OutOrStdout()
		if projectJSON {
			return writeJSON(w, map[string]any{"project": pc, "commands": commands})
		}
		writeProject(w, pc, commands)
		return nil
	},
}

func writeProject(w io.Writer, pc *project.Context, commands []syntax.ProjectCommand) {
	list := func(label string, items []string) {
		if len(items) > 0 {
			fmt.Fprintf(w, "%-17s %s\n", label+":", strings.Join(items, ", "))
		}
	}

	fmt.Fprintf(w, "%-17s %s\n", "Project:", pc.Root)
	fmt.Fprintf(w, "%-17s %s\n", "Type:", pc.ProjectType)
	list("Languages", pc.Languages)
	list("Frameworks", pc.Frameworks)
	list("Package managers", pc.PackageManagers)
	list("Markers", pc.Markers)
	if pc.Git != nil && pc.Git.IsRepo {
		state := "clean"
		if pc.Git.Dirty {
			state = "dirty"
		}
		fmt.Fprintf(w, "%-17s %s (%s)\n", "Git branch:", pc.Git.Branch, state)
	}
	for _, manager := range slices.Sorted(maps.Keys(pc.Dependencies)) {
		fmt.Fprintf(w, "%-17s %d (%s)\n", "Dependencies:", len(pc.Dependencies[manager]), manager)
	}
	for _, warning := range pc.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	if len(pc.Files) > 0 {
		fmt.Fprintln(w, "\nFiles:")
		for _, f := range pc.Files {
			fmt.Fprintf(w, "  %s\n", f)
		}
		if pc.FilesTruncated {
			fmt.Fprintln(w, "  ...")
		}
	}
	if len(commands) > 0 {
		fmt.Fprintln(w, "\nCommands:")
		for _, c := range commands {
			fmt.Fprintf(w, "  %-22s %s\n", c.Name, c.Command)
		}
	}
}
