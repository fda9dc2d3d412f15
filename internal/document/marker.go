package document

import "fmt"

// Marker is a live position in a Buffer. It moves with edits made before
// it and becomes invalid when the text it points into is deleted.
type Marker struct {
	buf   *Buffer
	off   int
	valid bool
}

// NewMarker places a live marker at off.
func (b *Buffer) NewMarker(off int) *Marker {
	m := &Marker{buf: b, off: b.clamp(off), valid: true}
	b.markers[m] = struct{}{}
	return m
}

// Resolve returns the current offset, or false once the marker is invalid.
func (m *Marker) Resolve() (int, bool) {
	if m == nil || !m.valid {
		return 0, false
	}
	return m.off, true
}

// MustResolve is Resolve for callers that know the marker is still valid.
// Dereferencing an invalid marker is a programming error.
func (m *Marker) MustResolve() int {
	off, ok := m.Resolve()
	if !ok {
		panic(fmt.Sprintf("document: invalid marker in %q", m.buf.name))
	}
	return off
}

// Buffer returns the buffer the marker lives in.
func (m *Marker) Buffer() *Buffer { return m.buf }

// Release detaches the marker from its buffer; it resolves as invalid from
// then on.
func (m *Marker) Release() {
	if m == nil || m.buf == nil {
		return
	}
	delete(m.buf.markers, m)
	m.valid = false
}

// adjust applies a replacement of r that changed the length by delta.
// A marker at r.Start stays put; inside a non-empty deleted span it dies.
func (m *Marker) adjust(r Range, delta int) {
	switch {
	case !m.valid:
	case m.off < r.Start:
	case !r.IsEmpty() && m.off < r.End:
		m.valid = false
		delete(m.buf.markers, m)
	case m.off == r.Start && r.IsEmpty():
	default:
		m.off += delta
	}
}
