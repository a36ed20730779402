package remote

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/personalvault/internal/errors"
)

// exerciseBackend runs the behaviour every Backend must share. missing
// builds an id under the folder that does not exist.
func exerciseBackend(t *testing.T, b Backend, missing func(folderID string) string) {
	t.Helper()
	ctx := context.Background()

	_, found, err := b.FindFolder(ctx, "PersonalVault")
	require.NoError(t, err)
	assert.False(t, found)

	folderID, err := b.CreateFolder(ctx, "PersonalVault")
	require.NoError(t, err)
	require.NotEmpty(t, folderID)

	again, found, err := b.FindFolder(ctx, "PersonalVault")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, folderID, again)

	_, found, err = b.FindFile(ctx, "notes.json", folderID)
	require.NoError(t, err)
	assert.False(t, found)

	fileID, err := b.CreateFile(ctx, folderID, "notes.json", []byte(`[{"id":"n1"}]`))
	require.NoError(t, err)
	require.NotEmpty(t, fileID)

	located, found, err := b.FindFile(ctx, "notes.json", folderID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, fileID, located)

	data, err := b.ReadFile(ctx, fileID)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"n1"}]`, string(data))

	require.NoError(t, b.UpdateFile(ctx, fileID, []byte(`[]`)))
	data, err = b.ReadFile(ctx, fileID)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	err = b.UpdateFile(ctx, missing(folderID), []byte(`[]`))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "update of a missing file: %v", err)

	_, err = b.ReadFile(ctx, missing(folderID))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "read of a missing file: %v", err)
}

func TestClassifyStatus(t *testing.T) {
	cause := fmt.Errorf("boom")
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{401, errors.IsAuthExpired},
		{403, errors.IsAuthExpired},
		{404, errors.IsNotFound},
		{410, errors.IsNotFound},
		{429, errors.IsRemoteUnavailable},
		{500, errors.IsRemoteUnavailable},
		{503, errors.IsRemoteUnavailable},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := classifyStatus("op", tt.status, cause)
			assert.True(t, tt.check(err))
			assert.ErrorIs(t, err, cause)
		})
	}
}

func TestClassifyTransport(t *testing.T) {
	assert.ErrorIs(t, classifyTransport("op", context.Canceled), context.Canceled)
	assert.False(t, errors.IsRemoteUnavailable(classifyTransport("op", context.Canceled)))
	assert.True(t, errors.IsRemoteUnavailable(classifyTransport("op", context.DeadlineExceeded)))
	assert.True(t, errors.IsRemoteUnavailable(classifyTransport("op", io.ErrUnexpectedEOF)))
}
