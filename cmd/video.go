package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/model"
)

// Video command flags.
var (
	videoFlagTitle     string
	videoFlagCategory  string
	videoFlagUnwatched bool
	videoFlagUndo      bool
)

var videoCmd = &cobra.Command{
	Use:     "video [command]",
	Aliases: []string{"videos", "v"},
	Short:   "Keep a watch-later list",
	Long: `Bookmark videos to watch later. YouTube links are recognized and their
video ID is stored with the bookmark.

Examples:
  personalvault video add https://youtu.be/dQw4w9WgXcQ --title "Talk" --category learning
  personalvault video list --unwatched
  personalvault video watched 3f2a`,
	RunE: runVideoList,
}

var videoAddCmd = &cobra.Command{
	Use:   "add URL",
	Short: "Bookmark a video",
	Args:  cobra.ExactArgs(1),
	RunE:  runVideoAdd,
}

var videoListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List bookmarks, newest first",
	Args:    cobra.NoArgs,
	RunE:    runVideoList,
}

var videoWatchedCmd = &cobra.Command{
	Use:   "watched ID",
	Short: "Mark a bookmark watched",
	Args:  cobra.ExactArgs(1),
	RunE:  runVideoWatched,
}

var videoRmCmd = &cobra.Command{
	Use:     "rm ID",
	Aliases: []string{"delete"},
	Short:   "Delete a bookmark",
	Args:    cobra.ExactArgs(1),
	RunE:    runVideoRm,
}

func init() {
	videoAddCmd.Flags().StringVar(&videoFlagTitle, "title", "", "Title")
	videoAddCmd.Flags().StringVarP(&videoFlagCategory, "category", "c", "", "Category")
	videoListCmd.Flags().BoolVarP(&videoFlagUnwatched, "unwatched", "u", false, "Only unwatched videos")
	videoCmd.Flags().BoolVarP(&videoFlagUnwatched, "unwatched", "u", false, "Only unwatched videos")
	videoWatchedCmd.Flags().BoolVar(&videoFlagUndo, "undo", false, "Mark unwatched again")

	videoCmd.AddCommand(videoAddCmd, videoListCmd, videoWatchedCmd, videoRmCmd)
	rootCmd.AddCommand(videoCmd)
}

func runVideoAdd(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	video, err := ctx.Repos.Videos.Add(args[0], videoFlagTitle, videoFlagCategory)
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("created", model.DomainVideos, video)
	}
	ctx.CLIFormatter().Success("Saved " + shortID(video.ID) + " " + video.Title)
	return nil
}

func runVideoList(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	videos := ctx.Repos.Videos.List(videoFlagUnwatched)
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintList(model.DomainVideos, len(videos), videos)
	}
	ctx.CLIFormatter().PrintVideos(videos)
	return nil
}

func runVideoWatched(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	id, err := resolveVideo(args[0])
	if err != nil {
		return err
	}
	video, err := ctx.Repos.Videos.SetWatched(id, !videoFlagUndo)
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("updated", model.DomainVideos, video)
	}
	if video.Watched {
		ctx.CLIFormatter().Success("Watched " + video.Title)
	} else {
		ctx.CLIFormatter().Success("Back on the list: " + video.Title)
	}
	return nil
}

func runVideoRm(cmd *cobra.Command, args []string) error {
	loadDomains(cmd)

	id, err := resolveVideo(args[0])
	if err != nil {
		return err
	}
	if err := ctx.Repos.Videos.Delete(id); err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("deleted", model.DomainVideos, map[string]string{"id": id})
	}
	ctx.CLIFormatter().Success("Deleted " + shortID(id))
	return nil
}

// resolveVideo expands a unique ID prefix.
func resolveVideo(ref string) (string, error) {
	var match []string
	for _, v := range ctx.Repos.Videos.List(false) {
		if v.ID == ref {
			return v.ID, nil
		}
		if strings.HasPrefix(v.ID, ref) {
			match = append(match, v.ID)
		}
	}
	if len(match) == 1 {
		return match[0], nil
	}
	if len(match) > 1 {
		return "", errors.NewUserErrorWithField("id", ref, "ambiguous video ID", "Type more of the ID")
	}
	return "", errors.NewUserErrorWithField("id", ref, "video not found", "Run 'personalvault video list' to see IDs")
}
