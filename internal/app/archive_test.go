package app

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itemhub/action-analytics/internal/model"
)

func TestBuildArchiveContents(t *testing.T) {
	generatedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	item := &model.Item{ID: uuid.New(), Name: "course", Type: "folder", Path: "course_node"}
	path := item.Path
	itemID := item.ID

	analytics := &model.Analytics{
		Item:        item,
		Descendants: []*model.Item{},
		Members:     []*model.Member{{ID: uuid.New(), Name: "anna"}},
		ItemMemberships: []*model.ItemMembership{
			{ID: uuid.New(), MemberID: uuid.New(), ItemPath: item.Path, Permission: model.PermissionAdmin},
		},
		Actions: []*model.Action{
			{ID: uuid.New(), ItemID: &itemID, ItemPath: &path, View: "builder", ActionType: model.ActionGet},
			{ID: uuid.New(), ItemID: &itemID, ItemPath: &path, View: "builder", ActionType: model.ActionDownload},
			{ID: uuid.New(), ItemID: &itemID, ItemPath: &path, View: "player", ActionType: model.ActionGet},
		},
	}

	views := []string{"builder", "player", "unknown"}
	archivePath, cleanup, err := BuildArchive(t.TempDir(), analytics, views, generatedAt)
	require.NotNil(t, cleanup)
	defer cleanup()
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(archivePath, model.ArchiveName(item.Name, generatedAt)))

	reader, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	defer reader.Close()

	entries := map[string]*zip.File{}
	for _, f := range reader.File {
		entries[f.Name] = f
	}

	ts := model.ArchiveTimestamp(generatedAt)
	for _, view := range views {
		assert.Contains(t, entries, model.ActionFileName(view, generatedAt), "expected a dump for view %q", view)
	}
	assert.Contains(t, entries, fmt.Sprintf("item_%s.json", ts))
	assert.Contains(t, entries, fmt.Sprintf("members_%s.json", ts))
	assert.Contains(t, entries, fmt.Sprintf("memberships_%s.json", ts))
	assert.Len(t, entries, len(views)+3)

	// The view without any action still holds a valid, empty dump.
	unknownDump := readZipJSON(t, entries[model.ActionFileName("unknown", generatedAt)])
	assert.Empty(t, unknownDump)

	builderDump := readZipJSON(t, entries[model.ActionFileName("builder", generatedAt)])
	assert.Len(t, builderDump, 2)
}

func TestBuildArchiveCleanupRemovesFolder(t *testing.T) {
	generatedAt := time.Now()
	item := &model.Item{ID: uuid.New(), Name: "course", Type: "folder", Path: "course_node"}

	analytics := &model.Analytics{
		Item:            item,
		Descendants:     []*model.Item{},
		Members:         []*model.Member{},
		ItemMemberships: []*model.ItemMembership{},
		Actions:         []*model.Action{},
	}

	tmp := t.TempDir()
	archivePath, cleanup, err := BuildArchive(tmp, analytics, []string{"builder"}, generatedAt)
	require.NoError(t, err)

	_, err = os.Stat(archivePath)
	require.NoError(t, err)

	cleanup()

	_, err = os.Stat(archivePath)
	assert.True(t, os.IsNotExist(err))
}

func readZipJSON(t *testing.T, f *zip.File) []map[string]any {
	t.Helper()
	require.NotNil(t, f)

	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()

	var out []map[string]any
	require.NoError(t, json.NewDecoder(rc).Decode(&out))
	return out
}
