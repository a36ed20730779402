package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for personalvault.

Bash:
  $ source <(personalvault completion bash)

  # Load for every session:
  $ personalvault completion bash > /etc/bash_completion.d/personalvault

Zsh:
  # Enable completion once if it is not already:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  $ personalvault completion zsh > "${fpath[1]}/_personalvault"

Fish:
  $ personalvault completion fish > ~/.config/fish/completions/personalvault.fish

PowerShell:
  PS> personalvault completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// completionRuntime opens the runtime for a completion request, which
// skips the persistent pre-run. It never contacts remote storage.
func completionRuntime(cmd *cobra.Command) bool {
	if ctx != nil {
		return true
	}
	flagOffline = true
	if err := loadConfig(); err != nil {
		return false
	}
	return openRuntime(cmd) == nil
}

// completeNoteIDs completes note ID prefixes from the local cache.
func completeNoteIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 || !completionRuntime(cmd) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, n := range ctx.Repos.Notes.List() {
		id := shortID(n.ID)
		if strings.HasPrefix(id, toComplete) {
			out = append(out, id+"\t"+n.Title)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completeHabits completes habit names from the local cache.
func completeHabits(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 || !completionRuntime(cmd) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	lower := strings.ToLower(toComplete)
	for _, h := range ctx.Repos.Habits.List(false) {
		if strings.HasPrefix(strings.ToLower(h.Name), lower) {
			out = append(out, h.Name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
