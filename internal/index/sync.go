package index

import (
	"log/slog"

	"github.com/starford/marginalia/internal/checksum"
	"github.com/starford/marginalia/internal/orgdoc"
	"github.com/starford/marginalia/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed documents are scanned and upserted
//   - documents removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
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
		if err := IndexDocument(db, m.Path, data); err != nil {
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

// IndexDocument scans data for annotations and upserts it into the index.
func IndexDocument(db AnnotationIndex, path string, data []byte) error {
	text := string(data)
	anns, err := Extract(path, text)
	if err != nil {
		return err
	}
	row := DocumentRow{
		Path:     path,
		Title:    orgdoc.Title(text),
		Checksum: checksum.Sum(data),
	}
	return db.UpsertDocument(row, anns)
}
