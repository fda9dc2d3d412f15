package annotation

import (
	"fmt"

	"github.com/starford/marginalia/internal/apperr"
	"github.com/starford/marginalia/internal/document"
	"github.com/starford/marginalia/internal/orgdoc"
)

// Scope restricts a scan to a whole document or to one heading's subtree.
type Scope struct {
	Doc string
	// Heading is the subtree root title; empty for the whole document.
	Heading string

	root StablePosition
}

// WholeDocument scopes a scan to all of buf.
func WholeDocument(buf *document.Buffer) Scope {
	return Scope{Doc: buf.Name()}
}

// Subtree scopes a scan to the subtree of the heading whose section
// contains off.
func Subtree(buf *document.Buffer, off int) (Scope, error) {
	h, ok := orgdoc.HeadingAt(buf.Text(), off)
	if !ok {
		return Scope{}, fmt.Errorf("annotation: no heading at offset %d: %w", off, apperr.ErrNotFound)
	}
	return Scope{Doc: buf.Name(), Heading: h.Title, root: buf.NewMarker(h.Start)}, nil
}

// SubtreeByTitle scopes a scan to the first heading titled title.
func SubtreeByTitle(buf *document.Buffer, title string) (Scope, error) {
	h, ok := orgdoc.FindHeading(buf.Text(), title)
	if !ok {
		return Scope{}, fmt.Errorf("annotation: heading %q: %w", title, apperr.ErrNotFound)
	}
	return Scope{Doc: buf.Name(), Heading: h.Title, root: buf.NewMarker(h.Start)}, nil
}

// IsSubtree reports whether the scope is a single subtree.
func (s Scope) IsSubtree() bool { return s.root != nil }

// Key identifies the scope across rescans.
func (s Scope) Key() string {
	if !s.IsSubtree() {
		return s.Doc
	}
	return s.Doc + "::" + s.Heading
}

// Bounds resolves the scope against the current text of buf.
func (s Scope) Bounds(buf *document.Buffer) (int, int, error) {
	if !s.IsSubtree() {
		return 0, buf.Len(), nil
	}
	off, ok := s.root.Resolve()
	if !ok {
		return 0, 0, fmt.Errorf("annotation: subtree %q was deleted: %w", s.Heading, apperr.ErrNotFound)
	}
	h, ok := orgdoc.HeadingAt(buf.Text(), off)
	if !ok || h.Start != off {
		return 0, 0, fmt.Errorf("annotation: subtree %q no longer starts with a heading: %w", s.Heading, apperr.ErrNotFound)
	}
	return h.Start, orgdoc.SubtreeEnd(buf.Text(), h), nil
}
