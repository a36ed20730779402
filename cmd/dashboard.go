package cmd

import (
	"github.com/spf13/cobra"

	"github.com/manav03panchal/personalvault/internal/tui"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash", "tui"},
	Short:   "Open the interactive habit dashboard",
	Long: `Open a terminal dashboard to check off today's habits.

The dashboard shows today's habits with their streaks and the sync state.
Pending changes are written to remote storage before it exits.

Keyboard Controls:
  j/k, arrows   Move
  space, x      Toggle the selected habit for today
  r             Refresh from remote storage
  q             Save and quit`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)
	if ctx.NeedsSignIn() {
		ctx.Session.StartAutoRefresh(cmd.Context())
	}

	return tui.Run(tui.Config{
		Habits:       ctx.Repos.Habits,
		Status:       ctx.SyncStatus,
		Flush:        ctx.Sync.FlushPending,
		FlushTimeout: 2 * ctx.Config.Remote.RequestTimeout,
	})
}
