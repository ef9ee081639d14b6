package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/devenv/internal/backup"
	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/paths"
)

var (
	backupAssistant string
	backupListJSON  bool
	backupPruneKeep int
)

// newBackupManager is replaced in tests.
var newBackupManager = func() *backup.Manager {
	return backup.NewManager(backup.WithRetentionCount(appConfig.Backup.Retention))
}

func init() {
	backupListCmd.Flags().StringVarP(&backupAssistant, "assistant", "a", "", "only list this assistant's backups")
	backupListCmd.Flags().BoolVar(&backupListJSON, "json", false, "output JSON")
	backupPruneCmd.Flags().IntVar(&backupPruneKeep, "keep", -1, "backups to keep per assistant (default backup.retention)")

	backupCmd.AddCommand(backupListCmd, backupRestoreCmd, backupPruneCmd)
	rootCmd.AddCommand(backupCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage backups of assistant configuration files",
	Long: `devenv backs up an assistant's MCP settings before register or
unregister changes them. Use these commands to inspect and restore them.`,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	Example: `  devenv backup list
  devenv backup list --assistant claude --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if backupAssistant != "" && !paths.ValidAssistant(backupAssistant) {
			return errors.NewUserError(errors.Wrapf(paths.ErrUnknownAssistant, "%q", backupAssistant), "")
		}
		manifests, err := newBackupManager().List(backupAssistant)
		if err != nil && !errors.Is(err, backup.ErrNoBackupsFound) {
			return errors.Wrap(err, "listing backups")
		}
		if backupListJSON {
			if manifests == nil {
				manifests = []backup.Manifest{}
			}
			return writeJSON(cmd.OutOrStdout(), manifests)
		}
		return writeBackups(cmd.OutOrStdout(), manifests)
	},
}

func writeBackups(w io.Writer, manifests []backup.Manifest) error {
	if len(manifests) == 0 {
		fmt.Fprintln(w, "No backups available.")
		fmt.Fprintln(w, "Backups are created automatically when devenv register or unregister edits a file.")
		return nil
	}
	bold := color.New(color.Bold).SprintFunc()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", bold("ASSISTANT"), bold("ID"), bold("CREATED"), bold("REASON"), bold("FILES"))
	for _, m := range manifests {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			m.Assistant, m.ID, m.CreatedAt.Local().Format(time.DateTime), m.Reason, len(m.Files))
	}
	return tw.Flush()
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <assistant> [backup-id]",
	Short: "Restore an assistant's configuration from a backup",
	Long: `Restore every file in a backup to its original location. Without a
backup id the most recent backup is used. Files are verified against the
checksums recorded when the backup was taken.`,
	Example: `  devenv backup restore claude
  devenv backup restore gemini 20261019T101500-3f9a1c2e`,
	Args: cobra.RangeArgs(1, 2),
	ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return paths.Assistants(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		a := args[0]
		if !paths.ValidAssistant(a) {
			return errors.NewUserError(errors.Wrapf(paths.ErrUnknownAssistant, "%q", a), "")
		}
		mgr := newBackupManager()
		w := cmd.OutOrStdout()

		var id string
		if len(args) == 2 {
			id = args[1]
		} else {
			latest, err := mgr.Latest(a)
			if errors.Is(err, backup.ErrNoBackupsFound) {
				return errors.NewUserError(errors.Wrapf(err, "%s", a), "")
			}
			if err != nil {
				return errors.Wrap(err, "finding latest backup")
			}
			id = latest.ID
			fmt.Fprintf(w, "Using most recent backup: %s\n", id)
		}

		manifest, err := mgr.Restore(a, id)
		if err != nil {
			if errors.Is(err, backup.ErrBackupCorrupted) || errors.Is(err, errors.ErrInvalidArgument) {
				return errors.NewUserError(err, "run devenv backup list to see usable backups")
			}
			return errors.NewSystemError(err, "")
		}
		for _, f := range manifest.Files {
			fmt.Fprintf(w, "Restored %s\n", f.OriginalPath)
		}
		return nil
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune [assistant]",
	Short: "Delete old backups",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keep := backupPruneKeep
		if keep < 0 {
			keep = appConfig.Backup.Retention
		}
		targets := paths.Assistants()
		if len(args) == 1 {
			if !paths.ValidAssistant(args[0]) {
				return errors.NewUserError(errors.Wrapf(paths.ErrUnknownAssistant, "%q", args[0]), "")
			}
			targets = args[:1]
		}
		mgr := newBackupManager()
		for _, a := range targets {
			if err := mgr.Prune(a, keep); err != nil {
				return errors.Wrapf(err, "pruning %s backups", a)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Kept the newest %d backups per assistant.\n", keep)
		return nil
	},
}
