package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/marginalia/internal/apperr"
	"github.com/starford/marginalia/internal/document"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	bodies := []string{
		"remember this",
		"brackets [like] these",
		`a back\slash and a trailing \`,
		"unicode: café ☕",
		"",
	}
	for _, k := range AllKinds {
		for _, body := range bodies {
			kind, got, err := Decode(Encode(k, body))
			require.NoError(t, err)
			assert.Equal(t, k, kind)
			assert.Equal(t, body, got)
		}
	}
}

func TestEncode_NormalizesNewlines(t *testing.T) {
	_, body, err := Decode(Encode(KindNote, "line one\nline two\r\n\nline three"))
	require.NoError(t, err)
	assert.Equal(t, "line one line two line three", body)
}

func TestDecode_NotAMarker(t *testing.T) {
	for _, target := range []string{"https://example.com", "file:notes.org", "notes:x", "Note:x"} {
		_, _, err := Decode(target)
		require.Error(t, err, target)
		assert.ErrorIs(t, err, apperr.ErrNotAMarker)
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Comment ")
	require.NoError(t, err)
	assert.Equal(t, KindComment, k)

	_, err = ParseKind("todo")
	assert.Error(t, err)

	kinds, err := ParseKinds(nil)
	require.NoError(t, err)
	assert.Equal(t, AllKinds, kinds)
}

func TestScan_SkipsOrdinaryLinks(t *testing.T) {
	text := "[[https://a.example][a]] one [[note:first][x]] two [[file:b.org]] " +
		"[[comment:second]] three [[id:123][c]] [[note:third][y z]]."
	buf := document.New("doc.org", text)

	found, err := NewScanner().Collect(buf, WholeDocument(buf))
	require.NoError(t, err)
	require.Len(t, found, 3)

	assert.Equal(t, "first", found[0].Body)
	assert.Equal(t, "x", found[0].DisplayText())
	assert.Equal(t, KindComment, found[1].Kind)
	assert.Equal(t, NoText, found[1].DisplayText())
	assert.Equal(t, "third", found[2].Body)

	prev := -1
	for _, loc := range found {
		off, ok := loc.Offset()
		require.True(t, ok)
		assert.Greater(t, off, prev)
		assert.Equal(t, "[[", text[off:off+2])
		prev = off
	}
}

func TestScan_FiltersKinds(t *testing.T) {
	buf := document.New("doc.org", "[[note:a]] [[comment:b]] [[note:c]]")
	found, err := NewScanner(KindComment).Collect(buf, WholeDocument(buf))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].Body)
}

func TestScan_Subtree(t *testing.T) {
	text := "* One\n[[note:a]]\n** Child\n[[note:b]]\n* Two\n[[note:c]]\n"
	buf := document.New("doc.org", text)

	scope, err := SubtreeByTitle(buf, "One")
	require.NoError(t, err)
	assert.Equal(t, "doc.org::One", scope.Key())

	found, err := NewScanner().Collect(buf, scope)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "a", found[0].Body)
	assert.Equal(t, "b", found[1].Body)

	child, err := Subtree(buf, len("* One\n[[note:a]]\n** Child\n"))
	require.NoError(t, err)
	assert.Equal(t, "Child", child.Heading)
	found, err = NewScanner().Collect(buf, child)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].Body)
}

func TestScan_SubtreeMissing(t *testing.T) {
	buf := document.New("doc.org", "no headings")
	_, err := Subtree(buf, 3)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestScan_IsLazy(t *testing.T) {
	buf := document.New("doc.org", "[[note:a]] [[note:b]] [[note:c]]")
	seq, err := NewScanner().Scan(buf, WholeDocument(buf))
	require.NoError(t, err)
	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestScenario_NoteLifecycle(t *testing.T) {
	text := "Some [[note:remember this][important]] text."
	buf := document.New("doc.org", text)

	found, err := NewScanner().Collect(buf, WholeDocument(buf))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "important", found[0].DisplayText())
	assert.Equal(t, "remember this", found[0].Body)

	buf.SetPoint(found[0].Pos.(*document.Marker).MustResolve())
	m, err := NewMutator(KindNote).Delete(buf)
	require.NoError(t, err)
	assert.Equal(t, "remember this", m.Body)
	assert.Equal(t, "Some important text.", buf.Text())
}

func TestDelete_WithoutTextLeavesNeighbours(t *testing.T) {
	buf := document.New("doc.org", "Before [[comment:gone]] after.")
	buf.SetPoint(10)
	_, err := NewMutator().Delete(buf)
	require.NoError(t, err)
	assert.Equal(t, "Before  after.", buf.Text())
}

func TestDelete_TextAtEndOfLine(t *testing.T) {
	buf := document.New("doc.org", "Ends [[note:b][here]]\nnext")
	buf.SetPoint(7)
	_, err := NewMutator().Delete(buf)
	require.NoError(t, err)
	assert.Equal(t, "Ends here\nnext", buf.Text())
}

func TestDelete_NotAMarkerLeavesDocument(t *testing.T) {
	text := "A [[https://example.com][link]] and [[comment:c][x]] and text."
	for _, tc := range []struct {
		name  string
		point int
		kinds []Kind
	}{
		{"plain text", 0, nil},
		{"ordinary link", 5, nil},
		{"wrong flavor", 40, []Kind{KindNote}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			buf := document.New("doc.org", text)
			buf.SetPoint(tc.point)
			_, err := NewMutator(tc.kinds...).Delete(buf)
			require.Error(t, err)
			assert.True(t, IsNotAMarker(err))
			assert.Equal(t, text, buf.Text())
			assert.Zero(t, buf.Version())
		})
	}
}

func TestDelete_KeepsOtherPositions(t *testing.T) {
	buf := document.New("doc.org", "[[note:a][one]] [[note:b][two]] [[note:c][three]]")
	found, err := NewScanner().Collect(buf, WholeDocument(buf))
	require.NoError(t, err)
	require.Len(t, found, 3)

	buf.SetPoint(found[1].Pos.(*document.Marker).MustResolve())
	_, err = NewMutator().Delete(buf)
	require.NoError(t, err)
	assert.Equal(t, "[[note:a][one]] two [[note:c][three]]", buf.Text())

	_, ok := found[1].Offset()
	assert.False(t, ok)

	off, ok := found[0].Offset()
	require.True(t, ok)
	assert.Equal(t, 0, off)

	off, ok = found[2].Offset()
	require.True(t, ok)
	assert.Equal(t, "[[note:c]", buf.Text()[off:off+9])
}

func TestInsert_WrapsRegion(t *testing.T) {
	buf := document.New("doc.org", "Some important text.")
	buf.SetRegion(document.Range{Start: 5, End: 14})

	loc, err := NewMutator().Insert(buf, KindNote, "remember\nthis")
	require.NoError(t, err)
	assert.Equal(t, "Some [[note:remember this][important]] text.", buf.Text())
	assert.Equal(t, "important", loc.Text)
	off, ok := loc.Offset()
	require.True(t, ok)
	assert.Equal(t, 5, off)
}

func TestInsert_AtPoint(t *testing.T) {
	buf := document.New("doc.org", "Hello world")
	buf.SetPoint(5)
	_, err := NewMutator().Insert(buf, KindComment, "a [tricky] body")
	require.NoError(t, err)
	assert.Equal(t, `Hello[[comment:a \[tricky\] body]] world`, buf.Text())

	found, err := NewScanner().Collect(buf, WholeDocument(buf))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a [tricky] body", found[0].Body)
	assert.False(t, found[0].HasText)
}

func TestInsert_RejectsEmptyBody(t *testing.T) {
	buf := document.New("doc.org", "text")
	_, err := NewMutator().Insert(buf, KindNote, "  \n ")
	assert.ErrorIs(t, err, apperr.ErrEmptyBody)
	assert.Equal(t, "text", buf.Text())
}

func TestInsert_RejectsRegionOverBoundary(t *testing.T) {
	text := "para one\n\npara two"
	buf := document.New("doc.org", text)
	buf.SetRegion(document.Range{Start: 5, End: 14})
	_, err := NewMutator().Insert(buf, KindNote, "x")
	assert.ErrorIs(t, err, apperr.ErrSpansBoundary)
	assert.Equal(t, text, buf.Text())
}

func TestInsert_DescriptionWithBrackets(t *testing.T) {
	buf := document.New("doc.org", "see a[1]] here")
	buf.SetRegion(document.Range{Start: 4, End: 9})
	_, err := NewMutator().Insert(buf, KindNote, "odd")
	require.NoError(t, err)

	found, err := NewScanner().Collect(buf, WholeDocument(buf))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a[1]]", found[0].Text)

	buf.SetPoint(5)
	_, err = NewMutator().Delete(buf)
	require.NoError(t, err)
	assert.Equal(t, "see a[1]] here", buf.Text())
}

func TestEdit_RewritesMarker(t *testing.T) {
	buf := document.New("doc.org", "x [[note:old][word]] y")
	buf.SetPoint(4)
	loc, err := NewMutator().Edit(buf, func(m Marker) Marker {
		m.Body = "new body"
		m.Kind = KindComment
		return m
	})
	require.NoError(t, err)
	assert.Equal(t, "x [[comment:new body][word]] y", buf.Text())
	assert.Equal(t, "new body", loc.Body)
}

func TestInsert_RejectsPointInsideLinkOrHeadingStars(t *testing.T) {
	text := "** Title\nsee [[https://x.example][x]] here"
	for _, p := range []int{0, 1, 2, len("** Title\nsee [[")} {
		buf := document.New("doc.org", text)
		buf.SetPoint(p)
		_, err := NewMutator().Insert(buf, KindNote, "b")
		assert.ErrorIs(t, err, apperr.ErrSpansBoundary, p)
		assert.Equal(t, text, buf.Text())
	}

	buf := document.New("doc.org", text)
	buf.SetPoint(len("** Title\nsee "))
	_, err := NewMutator().Insert(buf, KindNote, "b")
	require.NoError(t, err)
}

func TestInsert_RejectsOffsetInsideCharacter(t *testing.T) {
	const text = "café au lait"
	for _, tc := range []struct {
		name   string
		region *document.Range
		point  int
	}{
		{name: "point", point: 4},
		{name: "region start", region: &document.Range{Start: 4, End: 8}},
		{name: "region end", region: &document.Range{Start: 0, End: 4}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			buf := document.New("doc.org", text)
			if tc.region != nil {
				buf.SetRegion(*tc.region)
			} else {
				buf.SetPoint(tc.point)
			}
			_, err := NewMutator().Insert(buf, KindNote, "x")
			assert.ErrorIs(t, err, apperr.ErrOutOfRange)
			assert.Equal(t, text, buf.Text())
		})
	}

	buf := document.New("doc.org", text)
	buf.SetRegion(document.Range{Start: 0, End: 5})
	_, err := NewMutator().Insert(buf, KindNote, "x")
	require.NoError(t, err)
	assert.Equal(t, "[[note:x][café]] au lait", buf.Text())
}
