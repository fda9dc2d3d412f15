//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/marginalia/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS annotations_fts USING fts5(
			body,
			text,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, id int64, body, text string) error {
	_, err := tx.Exec(`INSERT INTO annotations_fts (rowid, body, text) VALUES (?, ?, ?)`, id, body, text)
	if err != nil {
		return fmt.Errorf("index: insert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) error {
	_, err := tx.Exec(`DELETE FROM annotations_fts WHERE rowid IN (SELECT id FROM annotations WHERE path = ?)`, path)
	if err != nil {
		return fmt.Errorf("index: delete fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching annotations with snippets.
func (db *DB) Search(query string, kinds []string, limit int) ([]models.SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	clause, kargs := kindFilter(kinds)
	args := append([]any{query}, kargs...)
	args = append(args, limit)
	rows, err := db.conn.Query(`
		SELECT `+annotationColumns+`,
		       snippet(annotations_fts, 0, '<b>', '</b>', '...', 16)
		FROM annotations_fts
		JOIN annotations a ON a.id = annotations_fts.rowid
		WHERE annotations_fts MATCH ?`+clause+`
		ORDER BY rank
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []models.SearchHit
	for rows.Next() {
		var snippet string
		a, err := scanAnnotation(rows, &snippet)
		if err != nil {
			return nil, err
		}
		out = append(out, models.SearchHit{Annotation: a, Snippet: snippet})
	}
	return out, rows.Err()
}
