package index

import (
	"github.com/starford/marginalia/internal/annotation"
	"github.com/starford/marginalia/internal/document"
	"github.com/starford/marginalia/internal/models"
	"github.com/starford/marginalia/internal/orgdoc"
)

// Record converts a scanned marker of text into its index record.
func Record(path, text string, loc annotation.Located) models.Annotation {
	off, _ := loc.Offset()
	line, col := orgdoc.LineCol(text, off)
	rec := models.Annotation{
		Path:    path,
		Kind:    loc.Kind.String(),
		Body:    loc.Body,
		Text:    loc.Text,
		HasText: loc.HasText,
		Line:    line,
		Column:  col,
		Offset:  off,
	}
	if h, ok := orgdoc.HeadingAt(text, off); ok {
		rec.Heading = h.Title
	}
	return rec
}

// Extract scans a whole document for annotations of every kind.
func Extract(path, text string) ([]models.Annotation, error) {
	buf := document.New(path, text)
	found, err := annotation.NewScanner().Collect(buf, annotation.WholeDocument(buf))
	if err != nil {
		return nil, err
	}
	out := make([]models.Annotation, 0, len(found))
	for _, loc := range found {
		out = append(out, Record(path, text, loc))
	}
	return out, nil
}
