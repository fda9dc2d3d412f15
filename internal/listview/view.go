// Package listview builds the aggregate list of annotations shown for a
// document or one of its subtrees.
package listview

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/starford/marginalia/internal/annotation"
	"github.com/starford/marginalia/internal/document"
	"github.com/starford/marginalia/internal/orgdoc"
)

// DefaultMaxTextWidth caps the annotated-text column.
const DefaultMaxTextWidth = 40

// Column identifies a sortable column.
type Column int

const (
	ColumnPosition Column = iota
	ColumnText
	ColumnBody
)

// ParseColumn maps "position", "text" or "body" to a Column.
func ParseColumn(s string) (Column, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "position", "pos":
		return ColumnPosition, nil
	case "text":
		return ColumnText, nil
	case "body", "annotation":
		return ColumnBody, nil
	default:
		return 0, fmt.Errorf("listview: unknown column %q", s)
	}
}

// Row is one annotation in the list.
type Row struct {
	Kind annotation.Kind
	Text string
	Body string
	Line int

	pos annotation.StablePosition
}

// Options tunes a View.
type Options struct {
	MaxTextWidth int
}

// View is the list of annotations for one scope. It goes stale on the
// first edit to the buffer; call Refresh to rebuild it.
type View struct {
	buf     *document.Buffer
	scope   annotation.Scope
	scanner *annotation.Scanner
	opts    Options

	rows      []Row
	textWidth int
	sortBy    Column
	desc      bool
}

// Build scans scope once and lays out the rows.
func Build(buf *document.Buffer, scope annotation.Scope, scanner *annotation.Scanner, opts Options) (*View, error) {
	if opts.MaxTextWidth <= 0 {
		opts.MaxTextWidth = DefaultMaxTextWidth
	}
	v := &View{buf: buf, scope: scope, scanner: scanner, opts: opts}
	if err := v.rebuild(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *View) rebuild() error {
	seq, err := v.scanner.Scan(v.buf, v.scope)
	if err != nil {
		return err
	}
	v.release()

	var rows []Row
	width := 0
	text := v.buf.Text()
	for loc := range seq {
		off, _ := loc.Offset()
		line, _ := orgdoc.LineCol(text, off)
		r := Row{
			Kind: loc.Kind,
			Text: loc.DisplayText(),
			Body: loc.Body,
			Line: line,
			pos:  loc.Pos,
		}
		width = max(width, runewidth.StringWidth(r.Text))
		rows = append(rows, r)
	}
	v.rows = rows
	v.textWidth = min(width, v.opts.MaxTextWidth)
	v.sort()
	return nil
}

// Refresh rescans with the same buffer and scope. It reports false when no
// annotations are left, the signal for presenters to close the view.
func (v *View) Refresh() (bool, error) {
	if err := v.rebuild(); err != nil {
		return false, err
	}
	return !v.Empty(), nil
}

// Empty reports whether the view has no rows.
func (v *View) Empty() bool { return len(v.rows) == 0 }

// Rows returns the rows in display order.
func (v *View) Rows() []Row { return v.rows }

// Scope returns the scope the view was built for.
func (v *View) Scope() annotation.Scope { return v.scope }

// Buffer returns the source buffer.
func (v *View) Buffer() *document.Buffer { return v.buf }

// TextWidth is the layout width of the annotated-text column.
func (v *View) TextWidth() int { return v.textWidth }

// Sort orders rows by col; position order is document order.
func (v *View) Sort(col Column, desc bool) {
	v.sortBy, v.desc = col, desc
	v.sort()
}

func (v *View) sort() {
	slices.SortStableFunc(v.rows, func(a, b Row) int {
		var c int
		switch v.sortBy {
		case ColumnText:
			c = strings.Compare(a.Text, b.Text)
		case ColumnBody:
			c = strings.Compare(a.Body, b.Body)
		default:
			ao, _ := a.pos.Resolve()
			bo, _ := b.pos.Resolve()
			c = cmp.Compare(ao, bo)
		}
		if v.desc {
			return -c
		}
		return c
	})
}

// Offset resolves the position of row i. ok is false when the row's
// marker was deleted since the last refresh.
func (v *View) Offset(i int) (int, bool) {
	if i < 0 || i >= len(v.rows) {
		return 0, false
	}
	return v.rows[i].pos.Resolve()
}

// Jump moves the buffer's point to the marker of row i.
func (v *View) Jump(i int) error {
	off, ok := v.Offset(i)
	if !ok {
		return fmt.Errorf("listview: row %d is stale, refresh the view", i)
	}
	v.buf.SetPoint(off)
	return nil
}

// ToTable renders the rows as tab-separated "text<TAB>body" lines.
func (v *View) ToTable() string {
	var b strings.Builder
	for _, r := range v.rows {
		b.WriteString(tableCell(r.Text))
		b.WriteByte('\t')
		b.WriteString(tableCell(r.Body))
		b.WriteByte('\n')
	}
	return b.String()
}

// ToOrgTable converts ToTable's output into an aligned Org table.
func (v *View) ToOrgTable() string {
	if v.Empty() {
		return ""
	}
	widths := [2]int{}
	cells := make([][2]string, 0, len(v.rows))
	for _, line := range strings.Split(strings.TrimSuffix(v.ToTable(), "\n"), "\n") {
		text, body, _ := strings.Cut(line, "\t")
		c := [2]string{orgCell(text), orgCell(body)}
		for i := range c {
			widths[i] = max(widths[i], runewidth.StringWidth(c[i]))
		}
		cells = append(cells, c)
	}
	var b strings.Builder
	for _, c := range cells {
		fmt.Fprintf(&b, "| %s | %s |\n",
			runewidth.FillRight(c[0], widths[0]),
			runewidth.FillRight(c[1], widths[1]))
	}
	return b.String()
}

// Render writes the list in aligned columns: line, kind, text, body.
func (v *View) Render(w io.Writer) error {
	for _, r := range v.rows {
		text := runewidth.FillRight(runewidth.Truncate(r.Text, v.textWidth, "…"), v.textWidth)
		if _, err := fmt.Fprintf(w, "%5d  %-7s  %s  %s\n", r.Line, r.Kind, text, r.Body); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the live positions held by the rows.
func (v *View) Close() {
	v.release()
	v.rows = nil
}

func (v *View) release() {
	for _, r := range v.rows {
		if m, ok := r.pos.(*document.Marker); ok {
			m.Release()
		}
	}
}

func tableCell(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ").Replace(s)
}

func orgCell(s string) string {
	return strings.ReplaceAll(s, "|", `\vert{}`)
}
