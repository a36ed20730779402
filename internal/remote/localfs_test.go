package remote

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/personalvault/internal/errors"
)

func TestLocalFSBackend(t *testing.T) {
	b, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	exerciseBackend(t, b, func(folderID string) string {
		return filepath.Join(folderID, "missing.json")
	})
}

func TestLocalFSRejectsEscapes(t *testing.T) {
	root := t.TempDir()
	b, err := NewLocalFS(filepath.Join(root, "vault"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = b.CreateFolder(ctx, "../outside")
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.json"), []byte("{}"), 0o600))
	_, err = b.ReadFile(ctx, filepath.Join(root, "secret.json"))
	assert.True(t, errors.IsNotFound(err))
}

func TestLocalFSWriteLeavesNoTempFiles(t *testing.T) {
	b, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	folderID, err := b.CreateFolder(ctx, "PersonalVault")
	require.NoError(t, err)
	fileID, err := b.CreateFile(ctx, folderID, "habits.json", []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, b.UpdateFile(ctx, fileID, []byte(`{"habits":[]}`)))

	entries, err := os.ReadDir(folderID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "habits.json", entries[0].Name())
}

func TestLocalFSStoreEndToEnd(t *testing.T) {
	b, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	s := NewStore(b, Options{FolderName: "PersonalVault"})
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "journal_entries.json", []byte(`[]`)))
	data, found, err := s.Read(ctx, "journal_entries.json")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[]`, string(data))

	onDisk, err := os.ReadFile(filepath.Join(b.Root(), "PersonalVault", "journal_entries.json"))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(onDisk))
}
