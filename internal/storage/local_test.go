package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.zip")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLocalUploadAndExists(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	src := writeTempFile(t, "zip bytes")
	require.NoError(t, s.Upload(ctx, src, "actions/item-1/2024-01-01T00-00-00Z.zip"))

	exists, err := s.Exists(ctx, "actions/item-1/2024-01-01T00-00-00Z.zip")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.Exists(ctx, "actions/item-1/other.zip")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalPresignDownload(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	src := writeTempFile(t, "zip bytes")
	require.NoError(t, s.Upload(ctx, src, "actions/item-1/a.zip"))

	link, err := s.PresignDownload(ctx, "actions/item-1/a.zip", time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "file://"))

	_, err = s.PresignDownload(ctx, "actions/missing.zip", time.Hour)
	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalDelete(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	src := writeTempFile(t, "zip bytes")
	require.NoError(t, s.Upload(ctx, src, "a.zip"))
	require.NoError(t, s.Delete(ctx, "a.zip"))

	exists, err := s.Exists(ctx, "a.zip")
	require.NoError(t, err)
	assert.False(t, exists)

	require.ErrorIs(t, s.Delete(ctx, "a.zip"), ErrObjectNotFound)
}
