package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/systmms/devops/internal/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, validate and create the configuration file",
	}
	cmd.AddCommand(
		newConfigShowCommand(env),
		newConfigValidateCommand(env),
		newConfigInitCommand(env),
		newConfigPathCommand(env),
	)
	return cmd
}

func configPath(env *Env) string {
	if env.ConfigPath != "" {
		return env.ConfigPath
	}
	return config.DefaultPath()
}

type shownSetting struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

func newConfigShowCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show every setting with its resolved value and source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.Config()
			if err != nil {
				return err
			}

			var shown []shownSetting
			for _, r := range cfg.Settings() {
				source := string(r.Source)
				if source == "" {
					source = "unset"
				}
				shown = append(shown, shownSetting{Name: r.Name, Value: r.String(), Source: source})
			}
			return env.Render(shown, func(w io.Writer) {
				row(w, "SETTING", "VALUE", "SOURCE")
				for _, s := range shown {
					row(w, s.Name, orDash(s.Value), s.Source)
				}
			})
		},
	}
}

func newConfigValidateCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration file against the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.Config()
			if err != nil {
				return err
			}
			if !cfg.Exists() {
				env.Printf("No config file at %s; using environment variables and defaults\n", cfg.Path())
				return nil
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			env.Printf("%s %s is valid\n", env.colorize(colorGreen, "✓"), cfg.Path())
			return nil
		},
	}
}

func newConfigInitCommand(env *Env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file with commented defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath(env)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists. Use --force to overwrite it", path)
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := os.WriteFile(path, []byte(config.Template), 0o600); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			env.Printf("Created %s\n", path)
			env.Printf("Next steps:\n")
			env.Printf("  1. Edit %s to set your region, namespace and Datadog site\n", path)
			env.Printf("  2. Run 'devops datadog login' to store Datadog keys in the OS keychain\n")
			env.Printf("  3. Run 'devops health' to verify connectivity\n")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigPathCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env.Printf("%s\n", configPath(env))
			return nil
		},
	}
}
