package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/personalvault/internal/config"
	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/output"
	"github.com/manav03panchal/personalvault/internal/runtime"
)

func TestParseFormat(t *testing.T) {
	f, err := parseFormat("")
	require.NoError(t, err)
	assert.Equal(t, output.FormatCLI, f)

	f, err = parseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, output.FormatJSON, f)

	_, err = parseFormat("xml")
	assert.True(t, errors.IsUserError(err))
}

func TestParseColor(t *testing.T) {
	c, err := parseColor("never")
	require.NoError(t, err)
	assert.Equal(t, output.ColorNever, c)

	_, err = parseColor("sometimes")
	assert.True(t, errors.IsUserError(err))
}

func TestSkipRuntime(t *testing.T) {
	assert.True(t, skipRuntime(versionCmd))
	assert.True(t, skipRuntime(completionCmd))
	assert.True(t, skipRuntime(daemonStopCmd), "inherits the daemon annotation")
	assert.True(t, skipRuntime(configInitCmd))
	assert.False(t, skipConfig(daemonStartCmd))

	assert.False(t, skipRuntime(noteAddCmd))
	assert.False(t, skipRuntime(syncPushCmd))
	assert.False(t, skipRuntime(rootCmd))
}

func TestEveryDomainHasACommand(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"note", "habit", "journal", "video", "activity", "sync", "daemon", "dashboard", "login", "logout", "config"} {
		assert.True(t, names[want], want)
	}
}

func TestTailLines(t *testing.T) {
	lines, err := tailLines(strings.NewReader("a\nb\nc\nd\n"), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, lines)

	lines, err = tailLines(strings.NewReader(""), 5)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestActivityTotals(t *testing.T) {
	now := time.Now()
	items := []model.Activity{
		{Type: model.ActivityWater, Value: 2, CreatedAt: now},
		{Type: model.ActivitySleep, Value: 7.5, CreatedAt: now},
		{Type: model.ActivityWater, Value: 1, CreatedAt: now},
	}
	assert.Equal(t, "Totals: sleep 7.5, water 3", activityTotals(items))
}

func TestActivityTypeNames(t *testing.T) {
	names := activityTypeNames()
	assert.Len(t, names, len(model.ActivityTypes))
	assert.Contains(t, names, "gym")
}

func TestCommandArgs(t *testing.T) {
	tests := []struct {
		cmd  *cobra.Command
		args []string
		ok   bool
	}{
		{videoAddCmd, []string{"https://example.com"}, true},
		{videoAddCmd, nil, false},
		{activityLogCmd, []string{"sleep"}, true},
		{activityLogCmd, []string{"sleep", "7", "extra"}, false},
		{coachCmd, nil, false},
		{syncPullCmd, []string{"x"}, false},
	}
	for _, tt := range tests {
		err := tt.cmd.Args(tt.cmd, tt.args)
		assert.Equal(t, tt.ok, err == nil, "%s %v", tt.cmd.Name(), tt.args)
	}
}

func useConfigHome(t *testing.T) string {
	t.Helper()
	saved, savedFlag := config.Global, flagConfig
	t.Cleanup(func() { config.Global, flagConfig = saved, savedFlag })
	// Runs after the environment is restored.
	t.Cleanup(xdg.Reload)

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("PERSONALVAULT_REMOTE", "")
	xdg.Reload()
	flagConfig = ""
	return filepath.Join(dir, config.AppName, "config.yaml")
}

func TestLoadConfigReadsDefaultFile(t *testing.T) {
	path := useConfigHome(t)
	require.Equal(t, path, config.DefaultPath())
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("remote:\n  type: localfs\n"), 0o600))

	require.NoError(t, loadConfig())
	assert.Equal(t, "localfs", config.Global.Remote.Type)
	assert.Equal(t, path, config.Global.File)
	assert.Equal(t, path, configPath())
}

func TestLoadConfigWithoutFileUsesDefaults(t *testing.T) {
	useConfigHome(t)

	require.NoError(t, loadConfig())
	assert.Equal(t, "drive", config.Global.Remote.Type)
	assert.Empty(t, config.Global.File)
}

func TestLoadConfigPrefersFlag(t *testing.T) {
	path := useConfigHome(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("remote:\n  type: localfs\n"), 0o600))

	other := filepath.Join(t.TempDir(), "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("remote:\n  type: s3\n  s3:\n    bucket: vault\n"), 0o600))
	flagConfig = other

	require.NoError(t, loadConfig())
	assert.Equal(t, "s3", config.Global.Remote.Type)
}

func TestBrokenConfigStillAllowsInit(t *testing.T) {
	path := useConfigHome(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("remote:\n  type: carrier-pigeon\n"), 0o600))

	assert.Error(t, loadConfig())
	assert.NoError(t, setupRuntime(configInitCmd, nil))
	assert.Error(t, setupRuntime(configShowCmd, nil))
}

func useRuntime(t *testing.T) *bytes.Buffer {
	t.Helper()
	cfg := config.DefaultRuntimeConfig()
	cfg.Remote.Type = "localfs"
	cfg.Remote.LocalFS.Path = t.TempDir()

	c, err := runtime.New(context.Background(), runtime.Options{
		InMemory:  true,
		Config:    cfg,
		Offline:   true,
		Format:    output.FormatJSON,
		ColorMode: output.ColorNever,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	c.Formatter.Writer = &buf
	saved := ctx
	ctx = c
	t.Cleanup(func() {
		ctx = saved
		c.Close()
	})
	return &buf
}

func TestCacheCheck(t *testing.T) {
	buf := useRuntime(t)
	_, err := ctx.Repos.Notes.Add("Groceries", "milk", nil)
	require.NoError(t, err)

	require.NoError(t, runCacheCheck(cacheCheckCmd, nil))
	assert.Contains(t, buf.String(), `"healthy": true`)

	require.NoError(t, ctx.DB.SetBytes("notes_backup", []byte("{not json")))
	assert.Error(t, runCacheCheck(cacheCheckCmd, nil))
}

func TestCacheExportThenImport(t *testing.T) {
	useRuntime(t)
	_, err := ctx.Repos.Notes.Add("Groceries", "milk", nil)
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "vault.json")
	require.NoError(t, runCacheExport(cacheExportCmd, []string{file}))
	assert.FileExists(t, file)

	buf := useRuntime(t)
	require.Equal(t, 0, ctx.Repos.Notes.Count())
	require.NoError(t, runCacheImport(cacheImportCmd, []string{file}))

	notes := ctx.Repos.Notes.List()
	require.Len(t, notes, 1)
	assert.Equal(t, "Groceries", notes[0].Title)
	assert.Contains(t, buf.String(), `"imported"`)

	err = runCacheImport(cacheImportCmd, []string{filepath.Join(t.TempDir(), "missing.json")})
	assert.True(t, errors.IsUserError(err))
}

func TestHabitDoneTwiceThenUndo(t *testing.T) {
	buf := useRuntime(t)
	_, err := ctx.Repos.Habits.AddHabit("Run", "")
	require.NoError(t, err)
	habitDoneCmd.SetContext(context.Background())
	habitUndoCmd.SetContext(context.Background())

	require.NoError(t, runHabitDone(habitDoneCmd, []string{"run"}))
	assert.Contains(t, buf.String(), `"status": "updated"`)
	buf.Reset()

	require.NoError(t, runHabitDone(habitDoneCmd, []string{"run"}))
	assert.Contains(t, buf.String(), `"status": "unchanged"`)
	assert.Len(t, ctx.Repos.Habits.Snapshot().Entries, 1)
	buf.Reset()

	require.NoError(t, runHabitUndo(habitUndoCmd, []string{"run"}))
	assert.Contains(t, buf.String(), `"done": false`)
	assert.Empty(t, ctx.Repos.Habits.Snapshot().Entries)
}
