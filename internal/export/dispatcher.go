// Package export renders annotation markers for output backends.
package export

import (
	"maps"
	"slices"
	"strings"

	"github.com/starford/marginalia/internal/annotation"
	"github.com/starford/marginalia/internal/document"
	"github.com/starford/marginalia/internal/orgdoc"
)

// Formatter renders one marker. text is the annotated span; hasText is
// false for a marker without one.
type Formatter func(body, text string, hasText bool) string

// Dispatcher maps backend identifiers to formatters, per annotation kind.
type Dispatcher struct {
	formatters map[annotation.Kind]map[string]Formatter
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithFormatter registers f for backend and kind, replacing any default.
// A nil f unregisters the backend.
func WithFormatter(kind annotation.Kind, backend string, f Formatter) Option {
	return func(d *Dispatcher) {
		d.Register(kind, backend, f)
	}
}

// WithDefaults registers the built-in html, latex and odt formatters.
func WithDefaults(cfg Config) Option {
	return func(d *Dispatcher) {
		for _, k := range annotation.AllKinds {
			for backend, f := range DefaultFormatters(k, cfg) {
				if len(cfg.Backends) > 0 && !slices.Contains(cfg.Backends, backend) {
					continue
				}
				d.Register(k, backend, f)
			}
		}
	}
}

// NewDispatcher builds a dispatcher from opts. Without options it knows no
// backends and every marker renders as its plain text.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{formatters: make(map[annotation.Kind]map[string]Formatter)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register sets the formatter for backend and kind.
func (d *Dispatcher) Register(kind annotation.Kind, backend string, f Formatter) {
	backend = normalizeBackend(backend)
	if d.formatters[kind] == nil {
		d.formatters[kind] = make(map[string]Formatter)
	}
	if f == nil {
		delete(d.formatters[kind], backend)
		return
	}
	d.formatters[kind][backend] = f
}

// Backends lists the backends registered for kind, sorted.
func (d *Dispatcher) Backends(kind annotation.Kind) []string {
	return slices.Sorted(maps.Keys(d.formatters[kind]))
}

// Render formats one marker for backend. Unknown backends never fail:
// the annotation is dropped and only the annotated text is kept.
func (d *Dispatcher) Render(backend string, m annotation.Marker) string {
	f := d.formatters[m.Kind][normalizeBackend(backend)]
	if f == nil {
		if m.HasText {
			return m.Text
		}
		return ""
	}
	return f(m.Body, m.Text, m.HasText)
}

// ExportDocument replaces every marker in text with its rendering for
// backend. Everything else is copied through unchanged.
func (d *Dispatcher) ExportDocument(backend, text string) string {
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for l := range orgdoc.Links(text, 0, len(text)) {
		m, err := annotation.FromLink(l)
		if err != nil {
			continue
		}
		b.WriteString(text[last:l.Start])
		b.WriteString(d.Render(backend, m))
		last = l.End
	}
	b.WriteString(text[last:])
	return b.String()
}

// ExportBuffer is ExportDocument over a buffer's current text.
func (d *Dispatcher) ExportBuffer(backend string, buf *document.Buffer) string {
	return d.ExportDocument(backend, buf.Text())
}

func normalizeBackend(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
