//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/marginalia/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over annotations.body and text.
	return nil
}

func ftsInsert(_ *sql.Tx, _ int64, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) error { return nil }

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, kinds []string, limit int) ([]models.SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	clause, kargs := kindFilter(kinds)
	args := append([]any{like, like}, kargs...)
	args = append(args, limit)
	rows, err := db.conn.Query(`
		SELECT `+annotationColumns+`
		FROM annotations a
		WHERE (a.body LIKE ? OR a.text LIKE ?)`+clause+`
		ORDER BY a.path, a.pos
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []models.SearchHit
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, models.SearchHit{Annotation: a})
	}
	return out, rows.Err()
}
