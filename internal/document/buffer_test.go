package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/marginalia/internal/apperr"
)

func TestReplace_UpdatesTextAndPoint(t *testing.T) {
	b := New("doc.org", "hello world")
	require.NoError(t, b.Replace(Range{Start: 6, End: 11}, "there"))
	assert.Equal(t, "hello there", b.Text())
	assert.Equal(t, 11, b.Point())
	assert.Equal(t, uint64(1), b.Version())
}

func TestReplace_OutOfRange(t *testing.T) {
	b := New("doc.org", "abc")
	err := b.Replace(Range{Start: 2, End: 9}, "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrOutOfRange))
	assert.Equal(t, "abc", b.Text())
}

func TestRegion(t *testing.T) {
	b := New("doc.org", "abcdef")
	_, ok := b.Region()
	assert.False(t, ok)

	b.SetRegion(Range{Start: 4, End: 1})
	r, ok := b.Region()
	require.True(t, ok)
	assert.Equal(t, Range{Start: 1, End: 4}, r)

	b.SetRegion(Range{Start: 2, End: 2})
	_, ok = b.Region()
	assert.False(t, ok, "empty region is inactive")

	b.SetRegion(Range{Start: 0, End: 3})
	require.NoError(t, b.Insert(6, "!"))
	_, ok = b.Region()
	assert.False(t, ok, "edits deactivate the region")
}

func TestMarker_FollowsEdits(t *testing.T) {
	b := New("doc.org", "0123456789")
	before := b.NewMarker(1)
	inside := b.NewMarker(4)
	after := b.NewMarker(8)
	atStart := b.NewMarker(3)

	require.NoError(t, b.Replace(Range{Start: 3, End: 6}, "x"))

	assert.Equal(t, 1, before.MustResolve())
	assert.Equal(t, 6, after.MustResolve())
	_, ok := inside.Resolve()
	assert.False(t, ok)
	_, ok = atStart.Resolve()
	assert.False(t, ok, "marker at the start of a deleted span dies with it")
	assert.Equal(t, "012x6789", b.Text())
	assert.Equal(t, byte('8'), b.Text()[after.MustResolve()])
}

func TestMarker_InsertionAtMarkerKeepsIt(t *testing.T) {
	b := New("doc.org", "abc")
	m := b.NewMarker(1)
	require.NoError(t, b.Insert(1, "XY"))
	assert.Equal(t, 1, m.MustResolve())
}

func TestMarker_MustResolvePanicsWhenInvalid(t *testing.T) {
	b := New("doc.org", "abc")
	m := b.NewMarker(1)
	m.Release()
	assert.Panics(t, func() { m.MustResolve() })
}

func TestOnChange(t *testing.T) {
	b := New("doc.org", "abc")
	var got []string
	b.OnChange(func(r Range, text string) {
		got = append(got, text)
	})
	require.NoError(t, b.Insert(0, "z"))
	assert.Equal(t, []string{"z"}, got)
}

func TestReplace_RejectsSplitCharacter(t *testing.T) {
	b := New("doc.org", "café au lait")
	assert.True(t, b.RuneBoundary(3))
	assert.False(t, b.RuneBoundary(4))
	assert.True(t, b.RuneBoundary(b.Len()))
	assert.False(t, b.RuneBoundary(b.Len()+1))

	err := b.Insert(4, "x")
	assert.ErrorIs(t, err, apperr.ErrOutOfRange)
	assert.Equal(t, "café au lait", b.Text())
	assert.Zero(t, b.Version())
}
