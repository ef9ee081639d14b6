package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/thoreinstein/devenv/internal/errors"
)

var genDocCmd = &cobra.Command{
	Use:         "gen-doc <dir>",
	Short:       "Generate Markdown reference pages for the CLI",
	Hidden:      true,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationConfigOptional: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "creating output directory")
		}
		rootCmd.DisableAutoGenTag = true
		if err := doc.GenMarkdownTreeCustom(rootCmd, dir, docFrontMatter, docLink); err != nil {
			return errors.Wrap(err, "generating markdown")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Documentation generated in %s\n", dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(genDocCmd)
}

// docFrontMatter titles devenv_backup_list.md as "devenv backup list".
func docFrontMatter(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	title := strings.ReplaceAll(base, "_", " ")
	return fmt.Sprintf("---\ntitle: %q\ndescription: %q\n---\n", title, "Reference for "+title)
}

func docLink(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name))) + "/"
}
