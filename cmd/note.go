package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/repo"
)

// Note command flags.
var (
	noteFlagContent string
	noteFlagTags    []string
	noteFlagTitle   string
	noteFlagColor   string
	noteListFlagTag string
)

var noteCmd = &cobra.Command{
	Use:     "note [command]",
	Aliases: []string{"notes", "n"},
	Short:   "Manage notes",
	Long: `Create, edit and search notes. IDs may be shortened to any unique prefix.

Examples:
  personalvault note add "Groceries" -c "milk, eggs" -t home
  personalvault note list --tag home
  personalvault note search eggs
  personalvault note pin 3f2a`,
	RunE: runNoteList,
}

var noteAddCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Create a note",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNoteAdd,
}

var noteListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List notes, pinned first",
	Args:    cobra.NoArgs,
	RunE:    runNoteList,
}

var noteShowCmd = &cobra.Command{
	Use:               "show ID",
	Short:             "Show a note",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeNoteIDs,
	RunE:              runNoteShow,
}

var noteEditCmd = &cobra.Command{
	Use:               "edit ID",
	Short:             "Edit a note's title, content, tags or color",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeNoteIDs,
	RunE:              runNoteEdit,
}

var notePinCmd = &cobra.Command{
	Use:               "pin ID",
	Short:             "Pin or unpin a note",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeNoteIDs,
	RunE:              runNotePin,
}

var noteRmCmd = &cobra.Command{
	Use:               "rm ID",
	Aliases:           []string{"delete"},
	Short:             "Delete a note",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeNoteIDs,
	RunE:              runNoteRm,
}

var noteSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Find notes by title, content or tag",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNoteSearch,
}

func init() {
	noteAddCmd.Flags().StringVarP(&noteFlagContent, "content", "c", "", "Note body")
	noteAddCmd.Flags().StringSliceVarP(&noteFlagTags, "tag", "t", nil, "Tag (repeatable)")

	noteEditCmd.Flags().StringVar(&noteFlagTitle, "title", "", "New title")
	noteEditCmd.Flags().StringVarP(&noteFlagContent, "content", "c", "", "New body")
	noteEditCmd.Flags().StringSliceVarP(&noteFlagTags, "tag", "t", nil, "Replace tags (repeatable)")
	noteEditCmd.Flags().StringVar(&noteFlagColor, "color", "", "Color label")

	noteListCmd.Flags().StringVarP(&noteListFlagTag, "tag", "t", "", "Only notes with this tag")
	noteCmd.Flags().StringVarP(&noteListFlagTag, "tag", "t", "", "Only notes with this tag")

	noteCmd.AddCommand(noteAddCmd, noteListCmd, noteShowCmd, noteEditCmd, notePinCmd, noteRmCmd, noteSearchCmd)
	rootCmd.AddCommand(noteCmd)
}

func runNoteAdd(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	title := ""
	if len(args) > 0 {
		title = args[0]
	}
	note, err := ctx.Repos.Notes.Add(title, noteFlagContent, noteFlagTags)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("created", model.DomainNotes, note)
	}
	ctx.CLIFormatter().Success("Created note " + shortID(note.ID))
	return nil
}

func runNoteList(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	notes := ctx.Repos.Notes.List()
	if noteListFlagTag != "" {
		notes = ctx.Repos.Notes.Tagged(noteListFlagTag)
	}
	return printNotes(notes)
}

func runNoteSearch(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)
	return printNotes(ctx.Repos.Notes.Search(strings.Join(args, " ")))
}

func printNotes(notes []model.Note) error {
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintList(model.DomainNotes, len(notes), notes)
	}
	ctx.CLIFormatter().PrintNotes(notes)
	return nil
}

func runNoteShow(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	note, ok := ctx.Repos.Notes.Get(args[0])
	if !ok {
		return noteNotFound(args[0])
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("ok", model.DomainNotes, note)
	}
	ctx.CLIFormatter().PrintNote(note)
	return nil
}

func runNoteEdit(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	var u repo.NoteUpdate
	flags := cmd.Flags()
	if flags.Changed("title") {
		u.Title = &noteFlagTitle
	}
	if flags.Changed("content") {
		u.Content = &noteFlagContent
	}
	if flags.Changed("tag") {
		u.Tags = noteFlagTags
	}
	if flags.Changed("color") {
		u.Color = &noteFlagColor
	}
	if !flags.Changed("title") && !flags.Changed("content") && !flags.Changed("tag") && !flags.Changed("color") {
		return errors.NewUserError("nothing to change", "Pass --title, --content, --tag or --color")
	}

	note, err := ctx.Repos.Notes.Update(args[0], u)
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("updated", model.DomainNotes, note)
	}
	ctx.CLIFormatter().Success("Updated note " + shortID(note.ID))
	return nil
}

func runNotePin(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	note, err := ctx.Repos.Notes.TogglePin(args[0])
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("updated", model.DomainNotes, note)
	}
	if note.Pinned {
		ctx.CLIFormatter().Success("Pinned " + shortID(note.ID))
	} else {
		ctx.CLIFormatter().Success("Unpinned " + shortID(note.ID))
	}
	return nil
}

func runNoteRm(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	note, ok := ctx.Repos.Notes.Get(args[0])
	if !ok {
		return noteNotFound(args[0])
	}
	if err := ctx.Repos.Notes.Delete(note.ID); err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("deleted", model.DomainNotes, note)
	}
	ctx.CLIFormatter().Success("Deleted note " + shortID(note.ID))
	return nil
}

func noteNotFound(id string) error {
	return errors.NewUserErrorWithField("id", id, "note not found", "Run 'personalvault note list' to see note IDs")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
