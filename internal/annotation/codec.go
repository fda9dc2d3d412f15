package annotation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/marginalia/internal/apperr"
	"github.com/starford/marginalia/internal/orgdoc"
)

var newlineRe = regexp.MustCompile(`[\r\n]+`)

// NormalizeBody collapses every run of line breaks into a single space.
func NormalizeBody(body string) string {
	return newlineRe.ReplaceAllString(body, " ")
}

// Encode turns a body into a link target: newlines normalized, Org target
// escaping applied, flavor prefix prepended.
func Encode(kind Kind, body string) string {
	return kind.Prefix() + orgdoc.EscapeTarget(NormalizeBody(body))
}

// Decode splits a raw (escaped) link target into its flavor and body.
// Targets without a recognized prefix fail with apperr.ErrNotAMarker so
// ordinary links can be told apart from annotations.
func Decode(target string) (Kind, string, error) {
	for _, k := range AllKinds {
		if rest, ok := strings.CutPrefix(target, k.Prefix()); ok {
			return k, NormalizeBody(orgdoc.UnescapeTarget(rest)), nil
		}
	}
	return 0, "", fmt.Errorf("annotation: decode %q: %w", target, apperr.ErrNotAMarker)
}

// FormatLink renders m as a complete bracket link.
func FormatLink(m Marker) string {
	return orgdoc.FormatLink(Encode(m.Kind, m.Body), m.Text, m.HasText)
}

// FromLink decodes a parsed link element into a Marker.
func FromLink(l orgdoc.Link) (Marker, error) {
	kind, body, err := Decode(l.Target)
	if err != nil {
		return Marker{}, err
	}
	m := Marker{Kind: kind, Body: body}
	if l.HasDesc {
		m.Text = orgdoc.UnescapeDescription(l.Desc)
		m.HasText = true
	}
	return m, nil
}
