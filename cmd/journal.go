package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/parser"
)

// Journal command flags.
var (
	journalFlagDate      string
	journalFlagMood      int
	journalFlagEnergy    int
	journalFlagGratitude []string
	journalFlagPeriod    string
)

var journalCmd = &cobra.Command{
	Use:     "journal [command]",
	Aliases: []string{"j", "checkin"},
	Short:   "Write daily check-ins",
	Long: `Keep one journal entry per day with optional mood and energy scores (0-10).
Adding to a day that already has an entry updates it.

Examples:
  personalvault journal add "Long walk, slept well" --mood 8 --energy 7
  personalvault journal add "Forgot to write this" --date yesterday
  personalvault journal list --period "this month"
  personalvault journal show yesterday`,
	RunE: runJournalList,
}

var journalAddCmd = &cobra.Command{
	Use:   "add TEXT",
	Short: "Write or update a day's entry",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runJournalAdd,
}

var journalListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List entries, newest first",
	Args:    cobra.NoArgs,
	RunE:    runJournalList,
}

var journalShowCmd = &cobra.Command{
	Use:   "show [DATE]",
	Short: "Show a day's entry (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournalShow,
}

var journalRmCmd = &cobra.Command{
	Use:     "rm DATE",
	Aliases: []string{"delete"},
	Short:   "Delete a day's entry",
	Args:    cobra.ExactArgs(1),
	RunE:    runJournalRm,
}

func init() {
	journalAddCmd.Flags().StringVar(&journalFlagDate, "date", "today", "Day of the entry")
	journalAddCmd.Flags().IntVarP(&journalFlagMood, "mood", "m", 0, "Mood 0-10")
	journalAddCmd.Flags().IntVarP(&journalFlagEnergy, "energy", "e", 0, "Energy 0-10")
	journalAddCmd.Flags().StringSliceVarP(&journalFlagGratitude, "grateful", "g", nil, "Something you are grateful for (repeatable)")

	journalListCmd.Flags().StringVarP(&journalFlagPeriod, "period", "p", "", "Only entries in a period (e.g. 7d, last month)")
	journalCmd.Flags().StringVarP(&journalFlagPeriod, "period", "p", "", "Only entries in a period (e.g. 7d, last month)")

	journalCmd.AddCommand(journalAddCmd, journalListCmd, journalShowCmd, journalRmCmd)
	rootCmd.AddCommand(journalCmd)
}

func runJournalAdd(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	date, err := parser.ParseDate(journalFlagDate, today())
	if err != nil {
		return err
	}

	entry, exists := ctx.Repos.Journal.ForDate(date)
	if !exists {
		entry = model.NewJournalEntry(date, "")
	}
	entry.Content = strings.Join(args, " ")
	flags := cmd.Flags()
	if flags.Changed("mood") || !exists {
		entry.Mood = journalFlagMood
	}
	if flags.Changed("energy") || !exists {
		entry.Energy = journalFlagEnergy
	}
	if flags.Changed("grateful") {
		entry.Gratitude = journalFlagGratitude
	}

	saved, err := ctx.Repos.Journal.Upsert(entry)
	if err != nil {
		return err
	}

	status, verb := "created", "Saved"
	if exists {
		status, verb = "updated", "Updated"
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem(status, model.DomainJournal, saved)
	}
	ctx.CLIFormatter().Success(verb + " journal entry for " + saved.Date)
	return nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	entries := ctx.Repos.Journal.List()
	if journalFlagPeriod != "" {
		r, err := parser.ParsePeriod(journalFlagPeriod, today())
		if err != nil {
			return err
		}
		start, end := model.FormatDate(r.Start), model.FormatDate(r.End)
		var in []model.JournalEntry
		for _, e := range entries {
			if e.Date >= start && e.Date < end {
				in = append(in, e)
			}
		}
		entries = in
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintList(model.DomainJournal, len(entries), entries)
	}
	ctx.CLIFormatter().PrintJournal(entries)
	return nil
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	input := "today"
	if len(args) > 0 {
		input = args[0]
	}
	date, err := parser.ParseDate(input, today())
	if err != nil {
		return err
	}
	entry, ok := ctx.Repos.Journal.ForDate(date)
	if !ok {
		return errors.NewUserErrorWithField("date", date, "no journal entry for "+date,
			"Write one with 'personalvault journal add \"...\" --date "+date+"'")
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("ok", model.DomainJournal, entry)
	}
	ctx.CLIFormatter().PrintJournalEntry(entry)
	return nil
}

func runJournalRm(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	date, err := parser.ParseDate(args[0], today())
	if err != nil {
		return err
	}
	if err := ctx.Repos.Journal.Delete(date); err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("deleted", model.DomainJournal, map[string]string{"date": date})
	}
	ctx.CLIFormatter().Success("Deleted journal entry for " + date)
	return nil
}
