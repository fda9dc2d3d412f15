package orgdoc

import (
	"regexp"
	"strings"
)

var headingRe = regexp.MustCompile(`(?m)^(\*+)[ \t]+(.*)$`)

// Heading is one outline heading line.
type Heading struct {
	Start int // offset of the first star
	End   int // offset of the line end
	Level int
	Title string
}

// Headings returns every heading in document order.
func Headings(text string) []Heading {
	matches := headingRe.FindAllStringSubmatchIndex(text, -1)
	out := make([]Heading, 0, len(matches))
	for _, m := range matches {
		out = append(out, Heading{
			Start: m[0],
			End:   m[1],
			Level: m[3] - m[2],
			Title: strings.TrimSpace(text[m[4]:m[5]]),
		})
	}
	return out
}

// HeadingAt returns the heading whose section contains off: the last
// heading starting at or before off.
func HeadingAt(text string, off int) (Heading, bool) {
	var found Heading
	ok := false
	for _, h := range Headings(text) {
		if h.Start > off {
			break
		}
		found, ok = h, true
	}
	return found, ok
}

// FindHeading returns the first heading whose title equals title.
func FindHeading(text, title string) (Heading, bool) {
	title = strings.TrimSpace(title)
	for _, h := range Headings(text) {
		if h.Title == title {
			return h, true
		}
	}
	return Heading{}, false
}

// SubtreeEnd returns the offset where the subtree of h ends: the start of
// the next heading at or above its level, or the end of the text.
func SubtreeEnd(text string, h Heading) int {
	for _, next := range Headings(text) {
		if next.Start > h.Start && next.Level <= h.Level {
			return next.Start
		}
	}
	return len(text)
}

// Title returns the "#+TITLE:" keyword value, or the first heading title,
// or "".
func Title(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 8 && strings.EqualFold(trimmed[:8], "#+title:") {
			return strings.TrimSpace(trimmed[8:])
		}
	}
	if hs := Headings(text); len(hs) > 0 {
		return hs[0].Title
	}
	return ""
}

// LineCol converts a byte offset into 1-based line and column numbers.
func LineCol(text string, off int) (int, int) {
	off = min(max(off, 0), len(text))
	line := strings.Count(text[:off], "\n") + 1
	col := off - strings.LastIndex(text[:off], "\n")
	return line, col
}

func isHeadingLine(line string) bool {
	i := 0
	for i < len(line) && line[i] == '*' {
		i++
	}
	return i > 0 && i < len(line) && (line[i] == ' ' || line[i] == '\t')
}
