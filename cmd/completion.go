package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// detectShell picks the completion dialect from a $SHELL value.
func detectShell(shell string) string {
	switch base := strings.ToLower(filepath.Base(shell)); {
	case strings.Contains(base, "fish"):
		return "fish"
	case strings.Contains(base, "zsh"):
		return "zsh"
	case strings.Contains(base, "pwsh"), strings.Contains(base, "powershell"):
		return "powershell"
	default:
		return "bash"
	}
}

// writeCompletion generates the completion script for shell into w.
func writeCompletion(root *cobra.Command, shell string, w io.Writer) error {
	switch shell {
	case "bash":
		return root.GenBashCompletionV2(w, true)
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	case "powershell":
		return root.GenPowerShellCompletionWithDesc(w)
	default:
		return fmt.Errorf("unsupported shell %q", shell)
	}
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for perfbench.

If no shell is specified, it is detected from $SHELL.

To load completions:

Bash:
  $ source <(perfbench completion bash)

  # To load completions for each session, execute once:
  $ perfbench completion bash > ~/.local/share/bash-completion/completions/perfbench

Zsh:
  $ perfbench completion zsh > "${fpath[1]}/_perfbench"

Fish:
  $ perfbench completion fish > ~/.config/fish/completions/perfbench.fish

PowerShell:
  PS> perfbench completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		shell := detectShell(os.Getenv("SHELL"))
		if len(args) > 0 {
			shell = args[0]
		}
		return writeCompletion(cmd.Root(), shell, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
