// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/spf13/cobra"

// newCompletionCommand creates the `pybuild completion` command.
func newCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for pybuild.

To enable shell completions, run one of the following commands:

` + SubtitleStyle.Render("Bash:") + `
  # Add to ~/.bashrc:
  eval "$(pybuild completion bash)"

  # Or install system-wide:
  pybuild completion bash > /etc/bash_completion.d/pybuild

` + SubtitleStyle.Render("Zsh:") + `
  # Add to ~/.zshrc:
  eval "$(pybuild completion zsh)"

  # Or install to fpath:
  pybuild completion zsh > "${fpath[1]}/_pybuild"

` + SubtitleStyle.Render("Fish:") + `
  pybuild completion fish > ~/.config/fish/completions/pybuild.fish

` + SubtitleStyle.Render("PowerShell:") + `
  pybuild completion powershell | Out-String | Invoke-Expression

  # Or add to $PROFILE:
  pybuild completion powershell >> $PROFILE
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}
}
