package app

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/itemhub/action-analytics/internal/errors"
	"github.com/itemhub/action-analytics/internal/model"
)

// BuildArchive writes the export files for one analytics snapshot under a
// per-item folder of tmpRoot and bundles them into a zip. It returns the
// archive path and a cleanup function removing the folder; cleanup is
// non-nil even on error so callers can always defer it.
//
// The archive holds one actions file per view (empty views included), plus
// one file each for the item, its members and its memberships. Any write
// failure aborts with an infrastructure fault, which callers must keep
// distinct from the empty-dataset case.
func BuildArchive(tmpRoot string, analytics *model.Analytics, views []string, generatedAt time.Time) (string, func(), error) {
	dir := filepath.Join(tmpRoot, analytics.Item.ID.String())
	cleanup := func() { _ = os.RemoveAll(dir) }

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", cleanup, errors.Internal("export.create_tmp_folder", err)
	}

	var files []string
	addFile := func(name string, payload any) error {
		path := filepath.Join(dir, name)
		if err := writeJSONFile(path, payload); err != nil {
			return err
		}
		files = append(files, path)
		return nil
	}

	// One actions dump per view, written concurrently; the bucket exists for
	// every view, so empty views still produce a file.
	byView := analytics.ActionsByView(views)
	viewFiles := make([]string, len(views))
	var g errgroup.Group
	for i, view := range views {
		g.Go(func() error {
			path := filepath.Join(dir, model.ActionFileName(view, generatedAt))
			if err := writeJSONFile(path, byView[view]); err != nil {
				return err
			}
			viewFiles[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", cleanup, err
	}
	files = append(files, viewFiles...)

	ts := model.ArchiveTimestamp(generatedAt)
	if err := addFile(fmt.Sprintf("item_%s.json", ts), analytics.Item); err != nil {
		return "", cleanup, err
	}
	if err := addFile(fmt.Sprintf("members_%s.json", ts), analytics.Members); err != nil {
		return "", cleanup, err
	}
	if err := addFile(fmt.Sprintf("memberships_%s.json", ts), analytics.ItemMemberships); err != nil {
		return "", cleanup, err
	}

	archivePath := filepath.Join(dir, model.ArchiveName(analytics.Item.Name, generatedAt))
	if err := zipFiles(archivePath, files); err != nil {
		return "", cleanup, errors.Internal("export.create_archive", err)
	}
	return archivePath, cleanup, nil
}

func writeJSONFile(path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Internal("export.encode_file", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Internal("export.write_file", err)
	}
	return nil
}

func zipFiles(archivePath string, files []string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	w := zip.NewWriter(out)
	for _, path := range files {
		if err := addToZip(w, path); err != nil {
			_ = w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return out.Sync()
}

func addToZip(w *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := w.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}
