package cmd

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/personalvault/internal/errors"
)

var syncCmd = &cobra.Command{
	Use:   "sync [command]",
	Short: "Inspect and drive synchronization with remote storage",
	Long: `Show what is waiting to be written, pull the latest copy of every
collection, or push local collections to remote storage.

Without a subcommand, shows the sync status.`,
	RunE: runSyncStatus,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show remote, session and per-collection sync state",
	Args:  cobra.NoArgs,
	RunE:  runSyncStatus,
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Refresh every collection from remote storage",
	Args:  cobra.NoArgs,
	RunE:  runSyncPull,
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Write every collection to remote storage now",
	Long: `Write every remote-backed collection to remote storage, whether or not
it has pending changes. Use this to overwrite a remote copy that was
edited elsewhere.`,
	Args: cobra.NoArgs,
	RunE: runSyncPush,
}

func init() {
	syncCmd.AddCommand(syncStatusCmd, syncPullCmd, syncPushCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSyncStatus(cmd *cobra.Command, args []string) error {
	st := ctx.SyncStatus()
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintSyncStatus(st)
	}
	ctx.CLIFormatter().PrintSyncStatus(st, time.Now())
	return nil
}

func runSyncPull(cmd *cobra.Command, args []string) error {
	if ctx.Offline {
		return errors.NewUserError("cannot pull while offline", "Run without --offline")
	}
	if err := ctx.RemoteErr(); err != nil {
		return errors.Wrap(err, "remote storage could not be opened")
	}

	report := ctx.Preload(cmd.Context(), 0)
	if ctx.IsJSON() {
		if err := ctx.JSONFormatter().PrintPreload(report); err != nil {
			return err
		}
	} else {
		ctx.CLIFormatter().PrintPreload(report)
	}

	if report.Skipped != "" && ctx.NeedsSignIn() {
		return errors.ErrSignedOut
	}
	var errs []error
	for _, r := range report.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", r.Domain, r.Err()))
	}
	return stderrors.Join(errs...)
}

func runSyncPush(cmd *cobra.Command, args []string) error {
	if ctx.Offline {
		return errors.NewUserError("cannot push while offline", "Run without --offline")
	}
	if err := ctx.RemoteErr(); err != nil {
		return errors.Wrap(err, "remote storage could not be opened")
	}

	var (
		pushed []string
		errs   []error
	)
	for _, r := range ctx.Repos.All() {
		if r.LocalOnly() {
			continue
		}
		if err := r.Push(cmd.Context()); err != nil {
			errs = append(errs, err)
			continue
		}
		pushed = append(pushed, string(r.Name()))
	}

	if ctx.IsJSON() {
		if err := ctx.Formatter.JSON(map[string]any{"pushed": pushed}); err != nil {
			return err
		}
	} else {
		cli := ctx.CLIFormatter()
		for _, name := range pushed {
			cli.Success("Pushed " + name)
		}
	}
	return stderrors.Join(errs...)
}
