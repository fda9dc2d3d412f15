// Package annotation encodes notes and comments as Org bracket links,
// scans documents for them and edits them in place.
//
// A marker looks like [[note:escaped body][annotated text]] or, without
// annotated text, [[comment:escaped body]]. The document text is the only
// store: every query rescans it.
package annotation

import (
	"fmt"
	"strings"
)

// Kind is the annotation flavor. It only changes the link prefix and the
// default export styling.
type Kind int

const (
	KindNote Kind = iota
	KindComment
)

// AllKinds lists every flavor in prefix-matching order.
var AllKinds = []Kind{KindNote, KindComment}

func (k Kind) String() string {
	switch k {
	case KindNote:
		return "note"
	case KindComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Prefix is the link-target prefix, e.g. "note:".
func (k Kind) Prefix() string {
	return k.String() + ":"
}

// ParseKind maps "note" or "comment" (case-insensitive) to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds {
		if strings.EqualFold(strings.TrimSpace(s), k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("annotation: unknown kind %q", s)
}

// ParseKinds parses a list of kind names; an empty list means all kinds.
func ParseKinds(names []string) ([]Kind, error) {
	if len(names) == 0 {
		return AllKinds, nil
	}
	out := make([]Kind, 0, len(names))
	for _, n := range names {
		k, err := ParseKind(n)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
