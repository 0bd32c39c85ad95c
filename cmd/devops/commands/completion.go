package commands

import (
	"github.com/spf13/cobra"
)

// NewCompletionCommand creates the completion command for generating shell completions.
func NewCompletionCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for devops.

To load completions:

Bash:
  $ source <(devops completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ devops completion bash > /etc/bash_completion.d/devops
  # macOS:
  $ devops completion bash > $(brew --prefix)/etc/bash_completion.d/devops

Zsh:
  $ devops completion zsh > "${fpath[1]}/_devops"

Fish:
  $ devops completion fish > ~/.config/fish/completions/devops.fish

PowerShell:
  PS> devops completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(env.Out)
			case "zsh":
				return cmd.Root().GenZshCompletion(env.Out)
			case "fish":
				return cmd.Root().GenFishCompletion(env.Out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(env.Out)
			}
			return nil
		},
	}

	return cmd
}
