package annotation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/starford/marginalia/internal/apperr"
	"github.com/starford/marginalia/internal/document"
	"github.com/starford/marginalia/internal/orgdoc"
)

// Mutator inserts, edits and deletes markers at the buffer's point. Every
// change is a single Buffer.Replace, so live positions outside the edited
// span stay valid.
type Mutator struct {
	kinds kindSet
}

// NewMutator returns a mutator that edits and deletes only markers of
// kinds; no kinds means every kind.
func NewMutator(kinds ...Kind) *Mutator {
	return &Mutator{kinds: kinds}
}

// Insert wraps the active region in a marker whose text is the region, or
// inserts a marker without text at point when no region is active.
func (m *Mutator) Insert(buf *document.Buffer, kind Kind, body string) (Located, error) {
	if strings.TrimSpace(body) == "" {
		return Located{}, apperr.ErrEmptyBody
	}

	marker := Marker{Kind: kind, Body: NormalizeBody(body)}
	r, ok := buf.Region()
	if !ok {
		r = document.Range{Start: buf.Point(), End: buf.Point()}
	}
	if !buf.RuneBoundary(r.Start) || !buf.RuneBoundary(r.End) {
		return Located{}, fmt.Errorf("annotation: insert at [%d,%d) splits a character: %w", r.Start, r.End, apperr.ErrOutOfRange)
	}
	if ok {
		text, err := buf.Slice(r)
		if err != nil {
			return Located{}, err
		}
		if strings.Contains(text, "\n\n") || orgdoc.ParseLinks(text, 0, len(text)) != nil {
			return Located{}, fmt.Errorf("annotation: insert over %q: %w", text, apperr.ErrSpansBoundary)
		}
		for _, h := range orgdoc.Headings(text) {
			if h.Start > 0 || r.Start == 0 || buf.Text()[r.Start-1] == '\n' {
				return Located{}, fmt.Errorf("annotation: insert over heading %q: %w", h.Title, apperr.ErrSpansBoundary)
			}
		}
		marker.Text = text
		marker.HasText = true
	} else if err := checkInsertPoint(buf.Text(), r.Start); err != nil {
		return Located{}, err
	}

	if err := buf.Replace(r, FormatLink(marker)); err != nil {
		return Located{}, fmt.Errorf("annotation: insert: %w", err)
	}
	return Located{Marker: marker, Pos: buf.NewMarker(r.Start), Scope: WholeDocument(buf)}, nil
}

// checkInsertPoint rejects points inside a link or among a heading's stars.
func checkInsertPoint(text string, p int) error {
	if l, ok := orgdoc.LinkAt(text, p); ok && p > l.Start && p < l.End {
		return fmt.Errorf("annotation: insert inside link at %d: %w", l.Start, apperr.ErrSpansBoundary)
	}
	for _, h := range orgdoc.Headings(text) {
		if h.Start > p {
			break
		}
		if p <= h.Start+h.Level {
			return fmt.Errorf("annotation: insert into heading %q: %w", h.Title, apperr.ErrSpansBoundary)
		}
	}
	return nil
}

// At returns the marker under point together with its link element.
func (m *Mutator) At(buf *document.Buffer) (Located, orgdoc.Link, error) {
	marker, l, err := m.markerAt(buf)
	if err != nil {
		return Located{}, orgdoc.Link{}, err
	}
	return Located{Marker: marker, Pos: buf.NewMarker(l.Start), Scope: WholeDocument(buf)}, l, nil
}

func (m *Mutator) markerAt(buf *document.Buffer) (Marker, orgdoc.Link, error) {
	l, ok := orgdoc.LinkAt(buf.Text(), buf.Point())
	if !ok {
		return Marker{}, orgdoc.Link{}, fmt.Errorf("annotation: no link at offset %d: %w", buf.Point(), apperr.ErrNotAMarker)
	}
	marker, err := FromLink(l)
	if err != nil {
		return Marker{}, orgdoc.Link{}, err
	}
	if !m.kinds.has(marker.Kind) {
		return Marker{}, orgdoc.Link{}, fmt.Errorf("annotation: %s link is not a %s marker: %w", marker.Kind, m.kinds, apperr.ErrNotAMarker)
	}
	return marker, l, nil
}

// Edit rewrites the marker under point with the result of fn. fn may
// change the body, the kind or the annotated text.
func (m *Mutator) Edit(buf *document.Buffer, fn func(Marker) Marker) (Located, error) {
	current, l, err := m.markerAt(buf)
	if err != nil {
		return Located{}, err
	}

	updated := fn(current)
	updated.Body = NormalizeBody(updated.Body)
	if strings.TrimSpace(updated.Body) == "" {
		return Located{}, apperr.ErrEmptyBody
	}
	if err := buf.Replace(document.Range{Start: l.Start, End: l.End}, FormatLink(updated)); err != nil {
		return Located{}, fmt.Errorf("annotation: edit: %w", err)
	}
	return Located{Marker: updated, Pos: buf.NewMarker(l.Start), Scope: WholeDocument(buf)}, nil
}

// Delete removes the marker under point. A marker with text collapses to
// that text, keeping one space when blanks followed the link; a marker
// without text is cut out and the surrounding text is left alone. When
// point is not on a marker the buffer is not touched.
func (m *Mutator) Delete(buf *document.Buffer) (Marker, error) {
	marker, l, err := m.markerAt(buf)
	if err != nil {
		return Marker{}, err
	}

	r := document.Range{Start: l.Start, End: l.End}
	replacement := ""
	if marker.HasText {
		replacement = marker.Text
		if blank := orgdoc.PostBlank(buf.Text(), l.End); blank > 0 {
			r.End += blank
			replacement += " "
		}
	}
	if err := buf.Replace(r, replacement); err != nil {
		return Marker{}, fmt.Errorf("annotation: delete: %w", err)
	}
	buf.SetPoint(r.Start)
	return marker, nil
}

// IsNotAMarker reports whether err means "no marker here".
func IsNotAMarker(err error) bool {
	return errors.Is(err, apperr.ErrNotAMarker)
}
