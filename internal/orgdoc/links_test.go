package orgdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLinks_WithAndWithoutDescription(t *testing.T) {
	text := "See [[https://example.com][site]] and [[file:a.org]] here."
	links := ParseLinks(text, 0, len(text))
	require.Len(t, links, 2)

	assert.Equal(t, "https://example.com", links[0].Target)
	assert.True(t, links[0].HasDesc)
	assert.Equal(t, "site", links[0].Desc)
	assert.Equal(t, "[[https://example.com][site]]", text[links[0].Start:links[0].End])
	assert.Equal(t, "site", text[links[0].DescStart:links[0].DescEnd])

	assert.Equal(t, "file:a.org", links[1].Target)
	assert.False(t, links[1].HasDesc)
	assert.Equal(t, "[[file:a.org]]", text[links[1].Start:links[1].End])
}

func TestParseLinks_EscapedBracketInTarget(t *testing.T) {
	target := EscapeTarget("a [b] c")
	text := "x " + FormatLink(target, "d", true) + " y"
	links := ParseLinks(text, 0, len(text))
	require.Len(t, links, 1)
	assert.Equal(t, target, links[0].Target)
	assert.Equal(t, "a [b] c", UnescapeTarget(links[0].Target))
	assert.Equal(t, "d", links[0].Desc)
}

func TestParseLinks_RejectsMalformed(t *testing.T) {
	for _, text := range []string{
		"[[]]",
		"[[unclosed",
		"[[a]x]",
		"[[a][]]",
		"[[a][one\n\ntwo]]",
		"[[a][one\n* Heading]]",
	} {
		assert.Empty(t, ParseLinks(text, 0, len(text)), "text %q", text)
	}
}

func TestParseLinks_RespectsRegion(t *testing.T) {
	text := "[[a]] [[b]] [[c]]"
	links := ParseLinks(text, 6, 11)
	require.Len(t, links, 1)
	assert.Equal(t, "b", links[0].Target)
}

func TestLinkAt(t *testing.T) {
	text := "Some [[note:x][word]] text.\n\nOther [[y]]."
	l, ok := LinkAt(text, 8)
	require.True(t, ok)
	assert.Equal(t, "note:x", l.Target)

	_, ok = LinkAt(text, 2)
	assert.False(t, ok)

	l, ok = LinkAt(text, len(text)-3)
	require.True(t, ok)
	assert.Equal(t, "y", l.Target)
}

func TestPostBlank(t *testing.T) {
	assert.Equal(t, 2, PostBlank("ab  c", 2))
	assert.Equal(t, 0, PostBlank("ab", 2))
}

func TestEscapeTarget_RoundTrip(t *testing.T) {
	for _, s := range []string{
		"plain",
		"a[b]c",
		`back\slash`,
		`ends with \`,
		`\[already\]`,
		`\\]`,
		"",
	} {
		esc := EscapeTarget(s)
		assert.Equal(t, s, UnescapeTarget(esc), "escaped %q", esc)
	}
	assert.Equal(t, `a\[b\]`, EscapeTarget("a[b]"))
	assert.Equal(t, `x\\`, EscapeTarget(`x\`))
}

func TestEscapeDescription(t *testing.T) {
	for _, s := range []string{"plain", "a]]b", "tail]", "]]]"} {
		esc := EscapeDescription(s)
		assert.NotContains(t, esc, "]]")
		assert.Equal(t, s, UnescapeDescription(esc))
	}
}
