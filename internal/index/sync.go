package index

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/starford/kanboard/internal/kanban"
	"github.com/starford/kanboard/internal/parser"
	"github.com/starford/kanboard/internal/storage"
)

// Sync walks the workspace and brings the catalog up to date:
//   - new/changed documents are summarized and upserted
//   - documents removed from disk are deleted from the catalog
func Sync(db Catalog, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data, m.UpdatedAt, logger); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// Reindex refreshes the catalog row of a single document after it was
// written or removed outside the watcher's view.
func Reindex(db Catalog, store storage.Provider, path string, logger *slog.Logger) error {
	data, err := store.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return db.DeleteDocument(path)
	}
	if err != nil {
		return err
	}
	return indexFile(db, path, data, time.Now().UTC(), logger)
}

// indexFile decodes data and upserts its summary. A document that does not
// decode is still catalogued, under the untitled preview, so it stays visible.
func indexFile(db Catalog, path string, data []byte, modTime time.Time, logger *slog.Logger) error {
	row := DocumentRow{
		Path:      path,
		Checksum:  storage.Checksum(data),
		UpdatedAt: modTime,
	}
	doc, err := kanban.Unmarshal(data)
	if err != nil {
		logger.Warn("index: undecodable document", slog.String("path", path), slog.String("error", err.Error()))
		row.Title = storage.UntitledPreview
		return db.UpsertDocument(row, "")
	}
	sum := parser.Summarize(doc)
	row.Title = sum.Title
	if row.Title == "" {
		row.Title = storage.UntitledPreview
	}
	row.Description = sum.Description
	row.Boards = sum.Boards
	row.Notes = sum.Notes
	row.Tags = sum.Tags
	return db.UpsertDocument(row, sum.Body)
}
