package index

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/marginalia/internal/models"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path        string
	Title       string
	Checksum    string
	UpdatedAt   time.Time
	Annotations int
}

const annotationColumns = `a.path, a.kind, a.body, a.text, a.has_text, a.heading, a.line, a.col, a.pos`

type scanner interface {
	Scan(dest ...any) error
}

func scanAnnotation(s scanner, extra ...any) (models.Annotation, error) {
	var a models.Annotation
	dest := append([]any{&a.Path, &a.Kind, &a.Body, &a.Text, &a.HasText, &a.Heading, &a.Line, &a.Column, &a.Offset}, extra...)
	err := s.Scan(dest...)
	return a, err
}

// kindFilter returns an "AND a.kind IN (...)" clause and its arguments.
func kindFilter(kinds []string) (string, []any) {
	if len(kinds) == 0 {
		return "", nil
	}
	args := make([]any, len(kinds))
	for i, k := range kinds {
		args[i] = k
	}
	return " AND a.kind IN (?" + strings.Repeat(",?", len(kinds)-1) + ")", args
}

// UpsertDocument replaces a document row and all of its annotations within a
// transaction.
func (db *DB) UpsertDocument(d DocumentRow, anns []models.Annotation) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO documents (path, title, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, d.Path, d.Title, d.Checksum, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if err := ftsDelete(tx, d.Path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM annotations WHERE path = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear annotations: %w", err)
	}
	if len(anns) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO annotations (path, kind, body, text, has_text, heading, line, col, pos)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare annotation insert: %w", err)
		}
		defer stmt.Close()
		for _, a := range anns {
			res, err := stmt.Exec(d.Path, a.Kind, a.Body, a.Text, a.HasText, a.Heading, a.Line, a.Column, a.Offset)
			if err != nil {
				return fmt.Errorf("index: insert annotation: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("index: annotation id: %w", err)
			}
			if err := ftsInsert(tx, id, a.Body, a.Text); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document and its annotations.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, path); err != nil {
		return err
	}
	_, _ = tx.Exec(`DELETE FROM annotations WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path to checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// ListDocuments returns every indexed document with its annotation count,
// ordered by path.
func (db *DB) ListDocuments() ([]DocumentRow, error) {
	rows, err := db.conn.Query(`
		SELECT d.path, d.title, d.checksum, d.updated_at, COUNT(a.id)
		FROM documents d
		LEFT JOIN annotations a ON a.path = d.path
		GROUP BY d.path
		ORDER BY d.path
	`)
	if err != nil {
		return nil, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var d DocumentRow
		if err := rows.Scan(&d.Path, &d.Title, &d.Checksum, &d.UpdatedAt, &d.Annotations); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Annotations returns the indexed annotations of path in document order,
// or of the whole vault when path is empty. kinds filters by kind name.
func (db *DB) Annotations(path string, kinds []string) ([]models.Annotation, error) {
	q := `SELECT ` + annotationColumns + ` FROM annotations a WHERE 1 = 1`
	var args []any
	if path != "" {
		q += ` AND a.path = ?`
		args = append(args, path)
	}
	clause, kargs := kindFilter(kinds)
	q += clause + ` ORDER BY a.path, a.pos`
	args = append(args, kargs...)

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: annotations: %w", err)
	}
	defer rows.Close()

	var out []models.Annotation
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
