package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/parser"
	"github.com/manav03panchal/personalvault/internal/repo"
)

// Habit command flags.
var (
	habitFlagDescription string
	habitFlagDate        string
	habitFlagArchived    bool
	habitFlagRestore     bool
)

var habitCmd = &cobra.Command{
	Use:     "habit [command]",
	Aliases: []string{"habits", "h"},
	Short:   "Track daily habits",
	Long: `Track daily habits and their streaks. Habits are referred to by name or ID.

Examples:
  personalvault habit add Run
  personalvault habit done run
  personalvault habit done run --date yesterday
  personalvault habit undo run
  personalvault habit streak run`,
	RunE: runHabitList,
}

var habitAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a habit",
	Args:  cobra.ExactArgs(1),
	RunE:  runHabitAdd,
}

var habitListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List habits with today's status and streaks",
	Args:    cobra.NoArgs,
	RunE:    runHabitList,
}

var habitDoneCmd = &cobra.Command{
	Use:               "done NAME",
	Aliases:           []string{"check"},
	Short:             "Mark a habit done for a day",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeHabits,
	RunE:              runHabitDone,
}

var habitUndoCmd = &cobra.Command{
	Use:               "undo NAME",
	Aliases:           []string{"uncheck"},
	Short:             "Clear a habit's completion for a day",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeHabits,
	RunE:              runHabitUndo,
}

var habitStreakCmd = &cobra.Command{
	Use:               "streak [NAME]",
	Short:             "Show current and longest streaks",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeHabits,
	RunE:              runHabitStreak,
}

var habitArchiveCmd = &cobra.Command{
	Use:               "archive NAME",
	Short:             "Hide a habit, keeping its history",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeHabits,
	RunE:              runHabitArchive,
}

var habitRenameCmd = &cobra.Command{
	Use:               "rename NAME NEW_NAME",
	Short:             "Rename a habit",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeHabits,
	RunE:              runHabitRename,
}

var habitRmCmd = &cobra.Command{
	Use:               "rm NAME",
	Aliases:           []string{"delete"},
	Short:             "Delete a habit and its history",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeHabits,
	RunE:              runHabitRm,
}

func init() {
	habitAddCmd.Flags().StringVarP(&habitFlagDescription, "description", "d", "", "Description")
	habitDoneCmd.Flags().StringVar(&habitFlagDate, "date", "today", "Day to mark (e.g. yesterday, 2024-05-01)")
	habitUndoCmd.Flags().StringVar(&habitFlagDate, "date", "today", "Day to clear (e.g. yesterday, 2024-05-01)")
	habitListCmd.Flags().BoolVar(&habitFlagArchived, "archived", false, "List archived habits instead")
	habitArchiveCmd.Flags().BoolVar(&habitFlagRestore, "restore", false, "Restore an archived habit")

	habitCmd.AddCommand(habitAddCmd, habitListCmd, habitDoneCmd, habitUndoCmd, habitStreakCmd,
		habitArchiveCmd, habitRenameCmd, habitRmCmd)
	rootCmd.AddCommand(habitCmd)
}

func runHabitAdd(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	habit, err := ctx.Repos.Habits.AddHabit(args[0], habitFlagDescription)
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("created", model.DomainHabits, habit)
	}
	ctx.CLIFormatter().Success("Created habit " + habit.Name)
	return nil
}

func runHabitList(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	if habitFlagArchived {
		var archived []model.Habit
		for _, h := range ctx.Repos.Habits.List(true) {
			if h.Archived {
				archived = append(archived, h)
			}
		}
		if ctx.IsJSON() {
			return ctx.JSONFormatter().PrintList(model.DomainHabits, len(archived), archived)
		}
		if len(archived) == 0 {
			ctx.CLIFormatter().Muted("No archived habits.")
		}
		for _, h := range archived {
			ctx.Formatter.Printf("  %s  %s\n", shortID(h.ID), h.Name)
		}
		return nil
	}

	return printStreaks(ctx.Repos.Habits.Streaks(today()))
}

func printStreaks(streaks []repo.Streak) error {
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintHabits(streaks)
	}
	ctx.CLIFormatter().PrintHabits(streaks)
	return nil
}

func runHabitDone(cmd *cobra.Command, args []string) error {
	return setHabitDone(cmd, args[0], true)
}

func runHabitUndo(cmd *cobra.Command, args []string) error {
	return setHabitDone(cmd, args[0], false)
}

func setHabitDone(cmd *cobra.Command, ref string, done bool) error {
	loadDomains(cmd)

	date, err := parser.ParseDate(habitFlagDate, today())
	if err != nil {
		return err
	}
	habit, ok := ctx.Repos.Habits.Lookup(ref)
	if !ok {
		return habitNotFound(ref)
	}
	changed, err := ctx.Repos.Habits.SetDone(habit.ID, date, done)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintCompletion(habit, date, done, changed)
	}
	ctx.CLIFormatter().PrintHabitCompletion(habit, date, done, changed)
	return nil
}

func runHabitStreak(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	streaks := ctx.Repos.Habits.Streaks(today())
	if len(args) == 0 {
		return printStreaks(streaks)
	}

	habit, ok := ctx.Repos.Habits.Lookup(args[0])
	if !ok {
		return habitNotFound(args[0])
	}
	for _, s := range streaks {
		if s.Habit.ID != habit.ID {
			continue
		}
		if ctx.IsJSON() {
			return ctx.JSONFormatter().PrintItem("ok", model.DomainHabits, s)
		}
		ctx.CLIFormatter().Title(habit.Name)
		ctx.Formatter.Printf("  Current streak: %d\n  Longest streak: %d\n  Total days:     %d\n",
			s.Current, s.Longest, s.Total)
		return nil
	}
	return errors.NewUserErrorWithField("name", args[0], fmt.Sprintf("habit %s is archived", habit.Name),
		"Restore it with 'personalvault habit archive --restore "+habit.Name+"'")
}

func runHabitArchive(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	habit, err := ctx.Repos.Habits.Archive(args[0], !habitFlagRestore)
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("updated", model.DomainHabits, habit)
	}
	if habit.Archived {
		ctx.CLIFormatter().Success("Archived " + habit.Name)
	} else {
		ctx.CLIFormatter().Success("Restored " + habit.Name)
	}
	return nil
}

func runHabitRename(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	habit, err := ctx.Repos.Habits.Rename(args[0], args[1])
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("updated", model.DomainHabits, habit)
	}
	ctx.CLIFormatter().Success("Renamed to " + habit.Name)
	return nil
}

func runHabitRm(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	habit, ok := ctx.Repos.Habits.Lookup(args[0])
	if !ok {
		return habitNotFound(args[0])
	}
	if err := ctx.Repos.Habits.DeleteHabit(habit.ID); err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("deleted", model.DomainHabits, habit)
	}
	ctx.CLIFormatter().Success("Deleted habit " + habit.Name)
	return nil
}

func habitNotFound(ref string) error {
	return errors.NewUserErrorWithField("name", ref, "habit not found", "Run 'personalvault habit list' to see your habits")
}
