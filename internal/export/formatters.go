package export

import (
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/marginalia/internal/annotation"
)

// Backend identifiers with built-in formatters.
const (
	BackendHTML  = "html"
	BackendLaTeX = "latex"
	BackendODT   = "odt"
)

// Config tunes the built-in formatters.
type Config struct {
	// Author is written into odt annotations.
	Author string `yaml:"author"`
	// NoteClass and CommentClass are the HTML classes of the tooltip span.
	NoteClass    string `yaml:"note_class"`
	CommentClass string `yaml:"comment_class"`
	// Backends limits which built-in formatters are registered; empty
	// means all of them.
	Backends []string `yaml:"backends"`

	// IDs names odt annotations; defaults to NewUUIDGenerator().
	IDs IDGenerator `yaml:"-"`
}

// IDGenerator hands out annotation names that are unique within one
// export run.
type IDGenerator interface {
	NextID() string
}

type uuidGenerator struct{}

// NewUUIDGenerator returns a generator of random version 4 UUIDs.
func NewUUIDGenerator() IDGenerator { return uuidGenerator{} }

func (uuidGenerator) NextID() string {
	return "__Annot_" + uuid.NewString()
}

// DefaultFormatters returns the built-in formatters for kind.
func DefaultFormatters(kind annotation.Kind, cfg Config) map[string]Formatter {
	class := cfg.NoteClass
	if kind == annotation.KindComment {
		class = cfg.CommentClass
	}
	if class == "" {
		class = "org-" + kind.String()
	}
	ids := cfg.IDs
	if ids == nil {
		ids = NewUUIDGenerator()
	}
	return map[string]Formatter{
		BackendHTML:  htmlFormatter(class),
		BackendLaTeX: latexFormatter(kind),
		BackendODT:   odtFormatter(cfg.Author, ids),
	}
}

// htmlFormatter shows the body as a tooltip on a marker sign placed before
// the annotated text.
func htmlFormatter(class string) Formatter {
	return func(body, text string, hasText bool) string {
		sign := fmt.Sprintf(`<sup class="%s" title="%s">&#9998;</sup>`, class, html.EscapeString(body))
		if !hasText {
			return sign
		}
		return sign + html.EscapeString(text)
	}
}

// latexFormatter puts notes in the margin and comments in footnotes.
func latexFormatter(kind annotation.Kind) Formatter {
	macro := `\marginpar{\footnotesize %s}`
	if kind == annotation.KindComment {
		macro = `\footnote{%s}`
	}
	return func(body, text string, hasText bool) string {
		note := fmt.Sprintf(macro, latexEscaper.Replace(body))
		if !hasText {
			return note
		}
		return latexEscaper.Replace(text) + note
	}
}

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// odtFormatter wraps the annotated text in an office:annotation range.
// Each call takes a fresh name so adjacent annotations never pair up.
func odtFormatter(author string, ids IDGenerator) Formatter {
	return func(body, text string, hasText bool) string {
		var b strings.Builder
		name := ids.NextID()
		if hasText {
			fmt.Fprintf(&b, `<office:annotation office:name="%s">`, name)
		} else {
			b.WriteString(`<office:annotation>`)
		}
		if author != "" {
			fmt.Fprintf(&b, `<dc:creator>%s</dc:creator>`, html.EscapeString(author))
		}
		fmt.Fprintf(&b, `<text:p>%s</text:p></office:annotation>`, html.EscapeString(body))
		if hasText {
			b.WriteString(html.EscapeString(text))
			fmt.Fprintf(&b, `<office:annotation-end office:name="%s"/>`, name)
		}
		return b.String()
	}
}
