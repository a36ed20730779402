package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/storage"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Check, export and restore the local cache",
	Long: `The local cache holds every collection, the session and the pending
markers. Export writes it as one JSON document; import loads such a
document back, replacing the keys it contains.

Examples:
  personalvault cache check
  personalvault cache export > vault.json
  personalvault cache import vault.json`,
}

var cacheCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify every cached value can be read",
	Args:  cobra.NoArgs,
	RunE:  runCacheCheck,
}

var cacheExportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Write the cache as JSON to FILE or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheExport,
}

var cacheImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load an exported cache; use - for stdin",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheImport,
}

func init() {
	cacheCmd.AddCommand(cacheCheckCmd, cacheExportCmd, cacheImportCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheCheck(cmd *cobra.Command, args []string) error {
	status := storage.CheckIntegrity(ctx.DB)
	warning := ""
	if !ctx.DB.InMemory() {
		warning = storage.DiskSpaceWarning(ctx.DB.Path(), ctx.Config.Storage.MinFreeSpaceWarning)
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{"integrity": status, "warning": warning})
	}
	cli := ctx.CLIFormatter()
	if status.Healthy {
		cli.Success(fmt.Sprintf("%d keys readable", status.Keys))
	}
	for _, key := range status.Unparseable {
		cli.Error("unreadable value: " + key)
	}
	for _, msg := range status.Errors {
		cli.Error(msg)
	}
	if warning != "" {
		cli.Warning(warning)
	}
	return status.Err()
}

func runCacheExport(cmd *cobra.Command, args []string) error {
	var w io.Writer = os.Stdout
	if len(args) == 1 && args[0] != "-" {
		f, err := os.OpenFile(args[0], os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
		if err != nil {
			return errors.Wrap(err, "create export file")
		}
		defer f.Close()
		w = f
	}

	n, err := storage.Export(ctx.DB, w)
	if err != nil {
		return err
	}
	if w != os.Stdout {
		ctx.CLIFormatter().Success(fmt.Sprintf("Exported %d keys to %s", n, args[0]))
	}
	return nil
}

func runCacheImport(cmd *cobra.Command, args []string) error {
	var r io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return errors.NewUserErrorWithField("file", args[0], "cannot open import file", "Pass a file written by 'personalvault cache export'")
		}
		defer f.Close()
		r = f
	}

	n, err := storage.Import(ctx.DB, r)
	if err != nil {
		return err
	}
	// Collections already in memory would otherwise shadow the restored keys.
	for _, d := range ctx.Repos.All() {
		d.Warm()
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]int{"imported": n})
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("Imported %d keys", n))
	return nil
}
