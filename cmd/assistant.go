package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/personalvault/internal/backend"
	"github.com/manav03panchal/personalvault/internal/errors"
)

var assistantFlagHistory int

var chatCmd = &cobra.Command{
	Use:   "chat [MESSAGE...]",
	Short: "Talk to the assistant",
	Long: `Send a message to the assistant service. With --history, show the most
recent turns instead.

Examples:
  personalvault chat "slept badly, any tips?"
  personalvault chat --history 10`,
	RunE: runChat,
}

var coachCmd = &cobra.Command{
	Use:   "coach MESSAGE...",
	Short: "Get conversation feedback from the coach",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCoach,
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Show today's quote",
	Long: `Show today's motivational quote. It is fetched once per day and
kept in the local cache.`,
	Args: cobra.NoArgs,
	RunE: runQuote,
}

func init() {
	chatCmd.Flags().IntVar(&assistantFlagHistory, "history", 0, "Show the last N messages")
	rootCmd.AddCommand(chatCmd, coachCmd, quoteCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	client, err := ctx.Backend()
	if err != nil {
		return err
	}

	if assistantFlagHistory > 0 {
		history, err := client.History(cmd.Context(), ctx.UserID(), assistantFlagHistory)
		if err != nil {
			return err
		}
		if ctx.IsJSON() {
			return ctx.Formatter.JSON(history)
		}
		printHistory(history)
		return nil
	}

	message := strings.TrimSpace(strings.Join(args, " "))
	if message == "" {
		return errors.NewUserError("message is empty", `Try: personalvault chat "how did I sleep this week?"`)
	}
	resp, err := client.Chat(cmd.Context(), ctx.UserID(), message)
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(resp)
	}
	ctx.Formatter.Println(resp.Response)
	return nil
}

func printHistory(history []backend.HistoryMessage) {
	cli := ctx.CLIFormatter()
	if len(history) == 0 {
		cli.Muted("No messages yet.")
		return
	}
	for _, m := range history {
		cli.Muted(m.CreatedAt.Local().Format("Jan 2 15:04") + "  " + m.Role)
		ctx.Formatter.Println("  " + m.Message)
	}
}

func runCoach(cmd *cobra.Command, args []string) error {
	client, err := ctx.Backend()
	if err != nil {
		return err
	}
	resp, err := client.Coach(cmd.Context(), ctx.UserID(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(resp)
	}
	ctx.Formatter.Println(resp.Feedback)
	return nil
}

func runQuote(cmd *cobra.Command, args []string) error {
	client, err := ctx.Backend()
	if err != nil {
		return err
	}
	q, err := backend.CachedQuote(cmd.Context(), client, ctx.DB, time.Now())
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(q)
	}
	ctx.CLIFormatter().Title(q.Quote)
	return nil
}
