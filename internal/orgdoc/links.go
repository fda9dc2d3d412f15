// Package orgdoc tokenizes the parts of the Org document format that
// annotations depend on: bracket links, link-target escaping and headings.
package orgdoc

import (
	"iter"
	"strings"
)

const zeroWidthSpace = "\u200b"

// Link is one bracket link element: [[target]] or [[target][desc]].
// Offsets are byte offsets into the document; [Start, End) covers the
// whole element including the brackets.
type Link struct {
	Start int
	End   int

	// Target is the raw link target, still escaped.
	Target string

	Desc      string
	HasDesc   bool
	DescStart int
	DescEnd   int
}

// Contains reports whether off falls inside the link element.
func (l Link) Contains(off int) bool {
	return off >= l.Start && off < l.End
}

// Links yields every bracket link fully contained in text[start:end], in
// document order.
func Links(text string, start, end int) iter.Seq[Link] {
	start = max(start, 0)
	end = min(end, len(text))
	return func(yield func(Link) bool) {
		i := start
		for i < end {
			idx := strings.Index(text[i:end], "[[")
			if idx < 0 {
				return
			}
			at := i + idx
			l, ok := parseLinkAt(text, at, end)
			if !ok {
				i = at + 1
				continue
			}
			if !yield(l) {
				return
			}
			i = l.End
		}
	}
}

// ParseLinks collects Links into a slice.
func ParseLinks(text string, start, end int) []Link {
	var out []Link
	for l := range Links(text, start, end) {
		out = append(out, l)
	}
	return out
}

// LinkAt returns the link element under off, if any.
func LinkAt(text string, off int) (Link, bool) {
	if off < 0 || off > len(text) {
		return Link{}, false
	}
	from, to := paragraphBounds(text, off)
	for l := range Links(text, from, to) {
		if l.Start > off {
			break
		}
		if l.Contains(off) {
			return l, true
		}
	}
	return Link{}, false
}

// PostBlank counts the spaces and tabs that follow a link element.
func PostBlank(text string, end int) int {
	n := 0
	for end+n < len(text) && (text[end+n] == ' ' || text[end+n] == '\t') {
		n++
	}
	return n
}

// FormatLink builds the bracket link for an already escaped target.
func FormatLink(target, desc string, hasDesc bool) string {
	if !hasDesc {
		return "[[" + target + "]]"
	}
	return "[[" + target + "][" + EscapeDescription(desc) + "]]"
}

// parseLinkAt parses a link starting at text[at] ("[[") that must end
// before limit.
func parseLinkAt(text string, at, limit int) (Link, bool) {
	j, ok := scanTarget(text, at+2, limit)
	if !ok || j == at+2 || j+1 >= limit {
		return Link{}, false
	}
	l := Link{Start: at, Target: text[at+2 : j]}
	switch text[j+1] {
	case ']':
		l.End = j + 2
		return l, true
	case '[':
		descStart := j + 2
		if descStart >= limit {
			return Link{}, false
		}
		// The description holds at least one byte.
		idx := strings.Index(text[descStart+1:limit], "]]")
		if idx < 0 {
			return Link{}, false
		}
		descEnd := descStart + 1 + idx
		desc := text[descStart:descEnd]
		if crossesBoundary(desc) {
			return Link{}, false
		}
		l.Desc = desc
		l.HasDesc = true
		l.DescStart = descStart
		l.DescEnd = descEnd
		l.End = descEnd + 2
		return l, true
	default:
		return Link{}, false
	}
}

// scanTarget returns the offset of the bracket closing the target that
// starts at j. An odd run of backslashes escapes the bracket after it.
func scanTarget(text string, j, limit int) (int, bool) {
	for j < limit {
		switch c := text[j]; {
		case c == '\\':
			k := j
			for k < limit && text[k] == '\\' {
				k++
			}
			if k < limit && (text[k] == '[' || text[k] == ']') && (k-j)%2 == 1 {
				k++
			}
			j = k
		case c == '[':
			return 0, false
		case c == ']':
			return j, true
		case c == '\n' && j+1 < limit && text[j+1] == '\n':
			return 0, false
		default:
			j++
		}
	}
	return 0, false
}

// crossesBoundary reports whether s runs over a paragraph break or a
// heading line, which an inline element may never do.
func crossesBoundary(s string) bool {
	if strings.Contains(s, "\n\n") {
		return true
	}
	for _, line := range strings.Split(s, "\n")[1:] {
		if isHeadingLine(line) {
			return true
		}
	}
	return false
}

// paragraphBounds returns the blank-line delimited block around off.
func paragraphBounds(text string, off int) (int, int) {
	from := strings.LastIndex(text[:off], "\n\n")
	if from < 0 {
		from = 0
	} else {
		from += 2
	}
	to := strings.Index(text[off:], "\n\n")
	if to < 0 {
		to = len(text)
	} else {
		to += off
	}
	return from, to
}

// EscapeTarget escapes a link target the way Org does: every run of
// backslashes that precedes a bracket or the end of the string is doubled,
// and brackets get one more backslash.
func EscapeTarget(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		if s[i] != '\\' && s[i] != '[' && s[i] != ']' {
			b.WriteByte(s[i])
			i++
			continue
		}
		k := i
		for k < len(s) && s[k] == '\\' {
			k++
		}
		run := s[i:k]
		switch {
		case k == len(s):
			b.WriteString(run)
			b.WriteString(run)
		case s[k] == '[' || s[k] == ']':
			b.WriteString(run)
			b.WriteString(run)
			b.WriteByte('\\')
			b.WriteByte(s[k])
			k++
		default:
			b.WriteString(run)
		}
		i = k
	}
	return b.String()
}

// UnescapeTarget reverses EscapeTarget.
func UnescapeTarget(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			i++
			continue
		}
		k := i
		for k < len(s) && s[k] == '\\' {
			k++
		}
		n := k - i
		if k == len(s) || s[k] == '[' || s[k] == ']' {
			n /= 2
		}
		b.WriteString(strings.Repeat(`\`, n))
		i = k
	}
	return b.String()
}

// EscapeDescription keeps a description from closing the link early:
// every "]" followed by "]" or by the end of the string gets a zero-width
// space after it.
func EscapeDescription(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		b.WriteByte(s[i])
		if s[i] == ']' && (i+1 == len(s) || s[i+1] == ']') {
			b.WriteString(zeroWidthSpace)
		}
	}
	return b.String()
}

// UnescapeDescription reverses EscapeDescription.
func UnescapeDescription(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		b.WriteByte(s[i])
		if s[i] != ']' || !strings.HasPrefix(s[i+1:], zeroWidthSpace) {
			continue
		}
		rest := s[i+1+len(zeroWidthSpace):]
		if rest == "" || rest[0] == ']' {
			i += len(zeroWidthSpace)
		}
	}
	return b.String()
}
