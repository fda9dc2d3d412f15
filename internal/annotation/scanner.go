package annotation

import (
	"iter"

	"github.com/starford/marginalia/internal/document"
	"github.com/starford/marginalia/internal/orgdoc"
)

// Scanner finds markers of the configured kinds.
type Scanner struct {
	kinds kindSet
}

// NewScanner returns a scanner for kinds; no kinds means every kind.
func NewScanner(kinds ...Kind) *Scanner {
	return &Scanner{kinds: kinds}
}

// Scan walks the links of scope in document order and yields the markers
// among them. The walk is lazy and starts over on every call. The buffer
// must not be edited while the sequence is being consumed.
func (s *Scanner) Scan(buf *document.Buffer, scope Scope) (iter.Seq[Located], error) {
	start, end, err := scope.Bounds(buf)
	if err != nil {
		return nil, err
	}
	return func(yield func(Located) bool) {
		for l := range orgdoc.Links(buf.Text(), start, end) {
			m, err := FromLink(l)
			if err != nil || !s.kinds.has(m.Kind) {
				continue
			}
			loc := Located{Marker: m, Pos: buf.NewMarker(l.Start), Scope: scope}
			if !yield(loc) {
				return
			}
		}
	}, nil
}

// Collect runs Scan to completion.
func (s *Scanner) Collect(buf *document.Buffer, scope Scope) ([]Located, error) {
	seq, err := s.Scan(buf, scope)
	if err != nil {
		return nil, err
	}
	var out []Located
	for loc := range seq {
		out = append(out, loc)
	}
	return out, nil
}

// Kinds describes the scanner's filter, e.g. "note,comment" or "all".
func (s *Scanner) Kinds() string { return s.kinds.String() }
