// Package cmd provides the personalvault command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/personalvault/internal/config"
	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/logging"
	"github.com/manav03panchal/personalvault/internal/output"
	"github.com/manav03panchal/personalvault/internal/runtime"
)

// Version information (set at build time via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Global flags.
var (
	flagFormat  string
	flagColor   string
	flagDebug   bool
	flagOffline bool
	flagConfig  string
)

// annotationNoRuntime marks commands that run without opening the cache.
const annotationNoRuntime = "no-runtime"

// ctx is the shared runtime context.
var ctx *runtime.Context

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "personalvault",
	Short: "Notes, habits, journal and videos, cached locally and synced to your storage",
	Long: `personalvault keeps notes, habits, a daily journal, a video list and activity
logs in a local cache and syncs them to a folder in your own storage
(Google Drive, WebDAV, S3 or a local directory).

Changes are written locally at once and pushed after a short quiet period,
so bursts of edits become one upload.

Examples:
  personalvault login
  personalvault note add "Groceries" --content "milk, eggs" --tag home
  personalvault habit done run --date yesterday
  personalvault journal add "Good day" --mood 8
  personalvault sync status
  personalvault dashboard`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupRuntime,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSyncStatus(cmd, args)
	},
}

func setupRuntime(cmd *cobra.Command, args []string) error {
	if flagDebug {
		logging.InitDebug()
	}
	if skipConfig(cmd) {
		return nil
	}
	if err := loadConfig(); err != nil {
		// init and validate must still run against a broken file.
		if cmd != configInitCmd && cmd != configValidateCmd && cmd != configPathCmd {
			return err
		}
		logging.Warn("config file not loaded", logging.KeyError, err)
	}
	if skipRuntime(cmd) {
		return nil
	}
	return openRuntime(cmd)
}

// loadConfig replaces config.Global with the --config file, or the file
// at the default path. A missing file leaves defaults plus environment.
func loadConfig() error {
	path := flagConfig
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	config.Global = cfg
	return nil
}

// openRuntime opens the cache and remote store into ctx.
func openRuntime(cmd *cobra.Command) error {
	opts := runtime.DefaultOptions()
	opts.DBPath = ""
	opts.Config = config.Global
	opts.Debug = flagDebug
	opts.Offline = flagOffline

	var err error
	if opts.Format, err = parseFormat(flagFormat); err != nil {
		return err
	}
	if opts.ColorMode, err = parseColor(flagColor); err != nil {
		return err
	}

	ctx, err = runtime.New(cmd.Context(), opts)
	return err
}

// skipConfig reports whether cmd needs neither config nor runtime.
func skipConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "completion", "help", "version", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return true
	}
	return false
}

// skipRuntime reports whether cmd or a parent opts out of the runtime.
func skipRuntime(cmd *cobra.Command) bool {
	if skipConfig(cmd) {
		return true
	}
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[annotationNoRuntime]; ok {
			return true
		}
	}
	return false
}

func parseFormat(s string) (output.Format, error) {
	switch s {
	case "", "cli":
		return output.FormatCLI, nil
	case "json":
		return output.FormatJSON, nil
	case "plain":
		return output.FormatPlain, nil
	}
	return "", errors.NewUserErrorWithField("format", s, "unknown output format", "Use cli, json or plain")
}

func parseColor(s string) (output.ColorMode, error) {
	switch s {
	case "", "auto":
		return output.ColorAuto, nil
	case "always":
		return output.ColorAlways, nil
	case "never":
		return output.ColorNever, nil
	}
	return "", errors.NewUserErrorWithField("color", s, "unknown color mode", "Use auto, always or never")
}

// Execute runs the command line and returns the process exit code. The
// runtime is closed on every path so pending changes are written out.
func Execute() int {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(sigCtx)
	if ctx != nil {
		if cerr := ctx.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err == nil {
		return runtime.ExitOK
	}

	printError(err)
	return runtime.ExitCode(err)
}

func printError(err error) {
	if ctx != nil && ctx.IsJSON() {
		_ = ctx.JSONFormatter().PrintError(runtime.ErrorStatus(err), err.Error(), errors.GetSuggestion(err))
		return
	}
	fmt.Fprintln(os.Stderr, "Error: "+runtime.FormatError(err, flagDebug))
}

// loadDomains warms every domain and refreshes it from the remote. A remote that
// cannot be reached leaves the cached data in place with a warning.
func loadDomains(cmd *cobra.Command) {
	report := ctx.Preload(cmd.Context(), 0)
	failed := report.Failed()
	for _, res := range failed {
		ctx.Debugf("refresh %s failed: %s", res.Domain, res.Error)
	}
	if len(failed) > 0 && !ctx.IsJSON() {
		ctx.CLIFormatter().Warning("Remote storage unreachable, showing cached data.")
	}
}

// today is the command's notion of now.
func today() time.Time {
	return time.Now()
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("personalvault %s\n", Version)
		cmd.Printf("  commit: %s\n", Commit)
		cmd.Printf("  built: %s\n", BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", "cli",
		"Output format: cli, json, plain")
	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto",
		"Color output: auto, always, never")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"Enable debug output")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", false,
		"Keep every change in the local cache")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"Config file (default "+config.DefaultPath()+")")

	rootCmd.AddCommand(versionCmd)
}
