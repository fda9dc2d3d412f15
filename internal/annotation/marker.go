package annotation

import (
	"slices"
	"strings"
)

// NoText is shown in place of the annotated text of a dangling marker.
const NoText = "[no text]"

// Marker is one annotation as embedded in the document.
type Marker struct {
	Kind Kind
	Body string
	// Text is the annotated span; HasText is false for a dangling marker.
	Text    string
	HasText bool
}

// DisplayText returns the annotated text, or NoText.
func (m Marker) DisplayText() string {
	if !m.HasText {
		return NoText
	}
	return m.Text
}

// StablePosition is a document position that survives edits elsewhere in
// the document. Resolve reports false once the text under it was deleted.
type StablePosition interface {
	Resolve() (int, bool)
}

// Located is a Marker found by a scan, anchored at the start of its link.
// It is only good until the next edit that touches it; rescan to refresh.
type Located struct {
	Marker
	Pos   StablePosition
	Scope Scope
}

// Offset resolves the anchor; ok is false when the marker was deleted.
func (l Located) Offset() (int, bool) {
	if l.Pos == nil {
		return 0, false
	}
	return l.Pos.Resolve()
}

// kindSet filters markers by flavor.
type kindSet []Kind

func (s kindSet) has(k Kind) bool {
	return len(s) == 0 || slices.Contains(s, k)
}

func (s kindSet) String() string {
	if len(s) == 0 {
		return "all"
	}
	names := make([]string, len(s))
	for i, k := range s {
		names[i] = k.String()
	}
	return strings.Join(names, ",")
}
