package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thoreinstein/devenv/internal/config"
	"github.com/thoreinstein/devenv/internal/editor"
	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/paths"
)

var configInitForce bool

// openEditor is replaced in tests.
var openEditor = func(cmd *cobra.Command, path string) error {
	ed := editor.New()
	ed.Stdin = cmd.InOrStdin()
	ed.Stdout = cmd.OutOrStdout()
	ed.Stderr = cmd.ErrOrStderr()
	return ed.Open(cmd.Context(), path)
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")

	for _, c := range []*cobra.Command{configCmd, configShowCmd, configPathCmd, configInitCmd, configGetCmd, configSetCmd, configEditCmd, configValidateCmd} {
		c.Annotations = map[string]string{annotationConfigOptional: "true"}
	}
	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd, configGetCmd, configSetCmd, configEditCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage devenv configuration",
	Long: `Manage the devenv config file. devenv reads ./.devenv/config.yaml,
then ` + paths.ConfigFile() + `. Every key can also be set with a
DEVENV_ environment variable, e.g. DEVENV_HTTP_PORT=9000.

Without a subcommand, shows the effective configuration.`,
	Example: `  devenv config
  devenv config get probe.cache_ttl
  devenv config set register.assistants claude,gemini`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Current()
	if err != nil {
		return errors.NewConfigError(err)
	}
	return writeYAML(cmd.OutOrStdout(), cfg)
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := targetConfigFile()
		if !config.Exists(path) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (not created; run devenv config init)\n", path)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if path == "" {
			path = paths.ConfigFile()
		}
		if config.Exists(path) && !configInitForce {
			return errors.NewUserError(
				errors.Newf("config file already exists at %s", path),
				"pass --force to overwrite it",
			)
		}
		defaults := viper.New()
		config.SetDefaults(defaults)
		var cfg config.Config
		if err := defaults.Unmarshal(&cfg); err != nil {
			return errors.Wrap(err, "decoding defaults")
		}
		if err := config.Save(path, &cfg); err != nil {
			return errors.NewSystemError(err, "")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Long: `Print one configuration value by its dotted key. List values are
printed one per line.`,
	Example: `  devenv config get http.port
  devenv config get project.roots`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeConfigKeys,
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if !viper.IsSet(key) {
			return errors.NewUserError(errors.Wrapf(config.ErrUnknownKey, "%q", key), "run devenv config show to list keys")
		}
		w := cmd.OutOrStdout()
		switch v := viper.Get(key).(type) {
		case []string:
			for _, item := range v {
				fmt.Fprintln(w, item)
			}
		case []any:
			for _, item := range v {
				fmt.Fprintln(w, item)
			}
		default:
			fmt.Fprintln(w, viper.GetString(key))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one configuration value",
	Long: `Change one configuration value and save the config file. List
values take comma-separated items; durations take values like 30s or 5m.`,
	Example: `  devenv config set http.port 9000
  devenv config set project.roots ~/dev,~/src
  devenv config set probe.cache_ttl 10m`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeConfigKeys,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set(args[0], args[1]); err != nil {
			return errors.NewUserError(err, "run devenv config show for keys and current values")
		}
		cfg, err := config.Current()
		if err != nil {
			return err
		}
		path := targetConfigFile()
		if err := config.Save(path, cfg); err != nil {
			return errors.NewSystemError(err, "")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], path)
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $VISUAL or $EDITOR",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := targetConfigFile()
		if !config.Exists(path) {
			return errors.NewUserError(
				errors.Newf("no config file at %s", path),
				"create one with devenv config init",
			)
		}
		if err := openEditor(cmd, path); err != nil {
			return errors.NewSystemError(err, "set $EDITOR to your editor")
		}
		if _, err := loadConfigFile(path); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a config file for errors",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := targetConfigFile()
		if len(args) == 1 {
			path = args[0]
		}
		if !config.Exists(path) {
			fmt.Fprintf(cmd.OutOrStdout(), "No config file at %s; defaults apply.\n", path)
			return nil
		}
		if _, err := loadConfigFile(path); err != nil {
			return errors.NewConfigError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
		return nil
	},
}

// targetConfigFile is the file config commands read and write: --config,
// then the file viper loaded, then the user config file.
func targetConfigFile() string {
	if configPath != "" {
		return configPath
	}
	if used := config.UsedFile(); used != "" {
		return used
	}
	return paths.ConfigFile()
}

// loadConfigFile parses and validates path without touching the global
// configuration.
func loadConfigFile(path string) (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	if errs := config.Validate(&cfg); len(errs) > 0 {
		return nil, errors.Wrapf(errors.Join(errs...), "validating %s", path)
	}
	return &cfg, nil
}

func completeConfigKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return config.Keys(), cobra.ShellCompDirectiveNoFileComp
}
