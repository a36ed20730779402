package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/personalvault/internal/backend"
	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/parser"
)

// Activity command flags.
var (
	activityFlagNote   string
	activityFlagAt     string
	activityFlagTrack  bool
	activityFlagType   string
	activityFlagPeriod string
	activityFlagDays   int
)

var activityCmd = &cobra.Command{
	Use:     "activity [command]",
	Aliases: []string{"act", "a"},
	Short:   "Log sleep, water, gym, mood, work and learning",
	Long: `Log daily activities. Activities stay on this device; --track also sends
the entry to the assistant service for insights.

Sleep, work and learning take hours ("7.5", "7h30m", "90 min"); gym
defaults to one session; water and mood take a number.

Examples:
  personalvault activity log sleep 7h30m
  personalvault activity log water 3 --at "2 hours ago"
  personalvault activity list --period 7d --type sleep
  personalvault activity insights --days 30`,
	RunE: runActivityList,
}

var activityLogCmd = &cobra.Command{
	Use:       "log TYPE [AMOUNT]",
	Short:     "Record an activity",
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: activityTypeNames(),
	RunE:      runActivityLog,
}

var activityListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List activities with totals",
	Args:    cobra.NoArgs,
	RunE:    runActivityList,
}

var activityInsightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show the assistant service's analytics",
	Args:  cobra.NoArgs,
	RunE:  runActivityInsights,
}

func init() {
	activityLogCmd.Flags().StringVarP(&activityFlagNote, "note", "n", "", "Description")
	activityLogCmd.Flags().StringVar(&activityFlagAt, "at", "now", "When it happened")
	activityLogCmd.Flags().BoolVar(&activityFlagTrack, "track", false, "Also send to the assistant service")

	for _, c := range []*cobra.Command{activityCmd, activityListCmd} {
		c.Flags().StringVarP(&activityFlagType, "type", "t", "", "Only this type")
		c.Flags().StringVarP(&activityFlagPeriod, "period", "p", "7d", "Period (e.g. today, 30d, this month)")
	}
	activityInsightsCmd.Flags().IntVar(&activityFlagDays, "days", 7, "Days to summarize")

	activityCmd.AddCommand(activityLogCmd, activityListCmd, activityInsightsCmd)
	rootCmd.AddCommand(activityCmd)
}

func activityTypeNames() []string {
	names := make([]string, len(model.ActivityTypes))
	for i, t := range model.ActivityTypes {
		names[i] = string(t)
	}
	return names
}

func runActivityLog(cmd *cobra.Command, args []string) error {
	typ, err := parser.ParseActivityType(args[0])
	if err != nil {
		return err
	}
	amount := ""
	if len(args) > 1 {
		amount = args[1]
	}
	value, err := parser.ParseAmount(typ, amount)
	if err != nil {
		return err
	}
	when, err := parser.ParseTime(activityFlagAt, today())
	if err != nil {
		return err
	}

	entry, err := ctx.Repos.Activities.Log(typ, value, activityFlagNote, when)
	if err != nil {
		return err
	}

	if activityFlagTrack {
		if err := trackRemotely(cmd, entry); err != nil {
			if !ctx.IsJSON() {
				ctx.CLIFormatter().Warning("Saved locally; the assistant service did not get it: " + err.Error())
			}
			ctx.Debugf("tracking failed: %v", err)
		}
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("created", model.DomainActivities, entry)
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("Logged %s %g", entry.Type, entry.Value))
	return nil
}

func trackRemotely(cmd *cobra.Command, e model.Activity) error {
	client, err := ctx.Backend()
	if err != nil {
		return err
	}
	at := e.CreatedAt
	_, err = client.LogTracking(cmd.Context(), backend.TrackingEntry{
		UserID:    ctx.UserID(),
		Type:      string(e.Type),
		Value:     e.Value,
		Notes:     e.Description,
		Timestamp: &at,
	})
	return err
}

func runActivityList(cmd *cobra.Command, args []string) error {
	var typ model.ActivityType
	if activityFlagType != "" {
		var err error
		if typ, err = parser.ParseActivityType(activityFlagType); err != nil {
			return err
		}
	}
	r, err := parser.ParsePeriod(activityFlagPeriod, today())
	if err != nil {
		return err
	}

	var items []model.Activity
	for _, a := range ctx.Repos.Activities.Since(r.Start, typ) {
		if r.Contains(a.CreatedAt) {
			items = append(items, a)
		}
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintList(model.DomainActivities, len(items), items)
	}
	cli := ctx.CLIFormatter()
	cli.PrintActivities(items)
	if len(items) > 0 {
		cli.Muted(activityTotals(items))
	}
	return nil
}

// activityTotals sums values per type, in ActivityTypes order.
func activityTotals(items []model.Activity) string {
	sums := make(map[model.ActivityType]float64)
	for _, a := range items {
		sums[a.Type] += a.Value
	}
	var parts []string
	for _, t := range model.ActivityTypes {
		if v, ok := sums[t]; ok {
			parts = append(parts, fmt.Sprintf("%s %g", t, v))
		}
	}
	return "Totals: " + strings.Join(parts, ", ")
}

func runActivityInsights(cmd *cobra.Command, args []string) error {
	client, err := ctx.Backend()
	if err != nil {
		return err
	}
	dash, err := client.Dashboard(cmd.Context(), ctx.UserID(), activityFlagDays)
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(dash)
	}

	cli := ctx.CLIFormatter()
	cli.Title(fmt.Sprintf("Last %d days", activityFlagDays))
	ctx.Formatter.Printf("  Sleep avg: %.1fh\n  Water avg: %.1f\n  Gym:       %d sessions\n  Mood avg:  %.1f\n  Entries:   %d\n",
		dash.SleepAvg, dash.WaterAvg, dash.GymCount, dash.MoodAvg, dash.TotalEntries)
	for _, insight := range dash.Insights {
		ctx.Formatter.Println("  • " + insight)
	}
	return nil
}
