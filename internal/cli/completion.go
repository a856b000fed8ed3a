package cli

import (
	"github.com/spf13/cobra"
)

// completionShells are the shells cobra can generate completions for.
var completionShells = []string{"bash", "zsh", "fish", "powershell"}

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for textart and print it to stdout.

Load completions in the current shell:

  bash:        source <(textart completion bash)
  zsh:         source <(textart completion zsh)
  fish:        textart completion fish | source
  powershell:  textart completion powershell | Out-String | Invoke-Expression

To load them in every session, write the script to your shell's
completion directory, e.g.

  textart completion zsh > "${fpath[1]}/_textart"
  textart completion fish > ~/.config/fish/completions/textart.fish
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             completionShells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}
