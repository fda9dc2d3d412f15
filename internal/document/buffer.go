// Package document implements the in-memory text buffer annotations are
// edited in: text, point, an optional active region and live positions that
// follow edits.
//
// Offsets are byte offsets. Regions are half-open: [Start, End).
package document

import (
	"fmt"
	"unicode/utf8"

	"github.com/starford/marginalia/internal/apperr"
)

// Range is a half-open span of the buffer.
type Range struct {
	Start int
	End   int
}

func (r Range) IsEmpty() bool { return r.Start == r.End }

func (r Range) Len() int { return r.End - r.Start }

// NormalizeRange orders the endpoints of r.
func NormalizeRange(r Range) Range {
	if r.Start <= r.End {
		return r
	}
	return Range{Start: r.End, End: r.Start}
}

// Buffer is the document state: text, point, region and live markers.
type Buffer struct {
	name    string
	text    string
	version uint64

	point     int
	mark      int
	regionOn  bool
	markers   map[*Marker]struct{}
	listeners []func(Range, string)
}

// New creates a buffer named name holding text. The name is the document
// identity used in scope keys.
func New(name, text string) *Buffer {
	return &Buffer{
		name:    name,
		text:    text,
		markers: make(map[*Marker]struct{}),
	}
}

func (b *Buffer) Name() string { return b.name }

func (b *Buffer) Text() string { return b.text }

func (b *Buffer) Len() int { return len(b.text) }

// RuneBoundary reports whether off is a valid offset that does not split a
// UTF-8 sequence. The end of the text counts as a boundary.
func (b *Buffer) RuneBoundary(off int) bool {
	if off < 0 || off > len(b.text) {
		return false
	}
	return off == len(b.text) || utf8.RuneStart(b.text[off])
}

// Version increments on every text change.
func (b *Buffer) Version() uint64 { return b.version }

func (b *Buffer) Point() int { return b.point }

func (b *Buffer) SetPoint(off int) {
	b.point = b.clamp(off)
}

// Region returns the active region, if any. An empty region is inactive.
func (b *Buffer) Region() (Range, bool) {
	if !b.regionOn {
		return Range{}, false
	}
	r := NormalizeRange(Range{Start: b.mark, End: b.point})
	if r.IsEmpty() {
		return Range{}, false
	}
	return r, true
}

// SetRegion activates the region r; point moves to r.End.
func (b *Buffer) SetRegion(r Range) {
	b.mark = b.clamp(r.Start)
	b.point = b.clamp(r.End)
	b.regionOn = true
}

func (b *Buffer) ClearRegion() {
	b.regionOn = false
}

// Slice returns the text covered by r.
func (b *Buffer) Slice(r Range) (string, error) {
	r = NormalizeRange(r)
	if r.Start < 0 || r.End > len(b.text) {
		return "", fmt.Errorf("document: slice [%d,%d) of %d: %w", r.Start, r.End, len(b.text), apperr.ErrOutOfRange)
	}
	return b.text[r.Start:r.End], nil
}

// Replace swaps the text in r for text as one atomic edit. Live markers
// after the range shift; markers inside a deleted span become invalid.
// The region is deactivated and point is placed after the inserted text.
func (b *Buffer) Replace(r Range, text string) error {
	r = NormalizeRange(r)
	if r.Start < 0 || r.End > len(b.text) {
		return fmt.Errorf("document: replace [%d,%d) of %d: %w", r.Start, r.End, len(b.text), apperr.ErrOutOfRange)
	}
	if !b.RuneBoundary(r.Start) || !b.RuneBoundary(r.End) {
		return fmt.Errorf("document: replace [%d,%d) splits a character: %w", r.Start, r.End, apperr.ErrOutOfRange)
	}

	b.text = b.text[:r.Start] + text + b.text[r.End:]
	b.version++

	delta := len(text) - r.Len()
	for m := range b.markers {
		m.adjust(r, delta)
	}

	b.regionOn = false
	b.point = r.Start + len(text)

	for _, fn := range b.listeners {
		fn(r, text)
	}
	return nil
}

// Insert inserts text at off.
func (b *Buffer) Insert(off int, text string) error {
	return b.Replace(Range{Start: off, End: off}, text)
}

// OnChange registers fn to run after every replacement with the replaced
// range (in pre-edit coordinates) and the inserted text.
func (b *Buffer) OnChange(fn func(Range, string)) {
	b.listeners = append(b.listeners, fn)
}

func (b *Buffer) clamp(off int) int {
	return min(max(off, 0), len(b.text))
}
