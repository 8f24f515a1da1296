package index

import (
	"log/slog"

	"github.com/starford/leanjournal/internal/models"
	"github.com/starford/leanjournal/internal/parser"
	"github.com/starford/leanjournal/internal/storage"
)

// NoteExt is the extension of the documents the index tracks.
const NoteExt = ".md"

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("", NoteExt)
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
		if err := indexFile(db, m, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexPath reads path from store and refreshes its index row.
func IndexPath(db *DB, store storage.Provider, path string) error {
	meta, err := store.Stat(path)
	if err != nil {
		return err
	}
	data, err := store.Read(path)
	if err != nil {
		return err
	}
	return indexFile(db, *meta, data)
}

// indexFile parses data and upserts it into the DB.
func indexFile(db *DB, meta models.NoteMetadata, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	return db.UpsertNote(NoteRow{
		Path:      meta.Path,
		Title:     res.Title,
		Checksum:  meta.Checksum,
		Log:       res.Log,
		HasLog:    res.HasLog,
		CreatedAt: meta.CreatedAt,
		UpdatedAt: meta.UpdatedAt,
	})
}
