package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/systmms/devops/internal/logging"
)

// NewRootCommand creates the devops command tree around env.
func NewRootCommand(env *Env, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "devops",
		Short: "Troubleshoot AWS, EKS and Datadog from one CLI",
		Long: `devops is a troubleshooting CLI for platform engineers. It wraps the
AWS, Kubernetes and Datadog APIs behind one set of commands, one config
file (~/.devops-framework/config.yaml) and one error vocabulary.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if env.Output != OutputTable && env.Output != OutputJSON {
				return fmt.Errorf("--output must be %q or %q, got %q", OutputTable, OutputJSON, env.Output)
			}
			if f, ok := env.Out.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
				env.NoColor = true
			}
			env.Logger = logging.FromEnv(env.Debug)
			logging.SetDefault(env.Logger)
			return nil
		},
	}
	root.SetOut(env.Out)
	root.SetErr(env.Err)

	if env.Output == "" {
		env.Output = OutputTable
	}

	// Defaults are the values already on env so callers can preset them.
	flags := root.PersistentFlags()
	flags.StringVar(&env.ConfigPath, "config", env.ConfigPath, "Config file path (default ~/.devops-framework/config.yaml)")
	flags.BoolVar(&env.Debug, "debug", env.Debug, "Enable debug logging")
	flags.BoolVar(&env.NoColor, "no-color", env.NoColor, "Disable colored output")
	flags.StringVarP(&env.Output, "output", "o", env.Output, "Output format: table or json")
	flags.BoolVar(&env.UseKeyring, "keyring", env.UseKeyring, "Fall back to the OS keychain for Datadog keys")
	flags.StringVar(&env.MetricsFile, "metrics-file", env.MetricsFile, "Write client call metrics in Prometheus text format to this file")

	root.AddCommand(
		NewAWSCommand(env),
		NewEKSCommand(env),
		NewDatadogCommand(env),
		NewHealthCommand(env),
		NewConfigCommand(env),
		NewCompletionCommand(env),
	)
	return root
}

// Execute runs the command tree with args and writes the metrics file when
// one was requested, whether or not the command succeeded.
func Execute(env *Env, version string, args []string) error {
	root := NewRootCommand(env, version)
	root.SetArgs(args)
	runErr := root.Execute()

	if env.MetricsFile != "" && env.Recorder != nil {
		if err := env.Recorder.WriteTextfile(env.MetricsFile); err != nil {
			env.Logger.Warn("failed to write metrics file %s: %v", env.MetricsFile, err)
		}
	}
	return runErr
}
