// Package popup shows a single annotation body in a transient read-only
// view.
package popup

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(s string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteText(s string) error {
	return clipboard.WriteAll(s)
}

// Popup is the reusable view. Its content is replaced on every Show.
type Popup struct {
	content string
	width   int
	height  int
	visible bool
}

func (p *Popup) Content() string { return p.content }

// Size is the content size in terminal cells and lines.
func (p *Popup) Size() (int, int) { return p.width, p.height }

func (p *Popup) Visible() bool { return p.visible }

// ReadOnly is always true; the popup never edits its content.
func (p *Popup) ReadOnly() bool { return true }

// Presenter owns the one popup and the clipboard it copies to.
type Presenter struct {
	clip  Clipboard
	popup Popup
	style lipgloss.Style
}

// NewPresenter returns a presenter copying to clip; nil means the system
// clipboard.
func NewPresenter(clip Clipboard) *Presenter {
	if clip == nil {
		clip = SystemClipboard{}
	}
	return &Presenter{
		clip: clip,
		style: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1),
	}
}

// Show replaces the popup content with body and sizes it to fit.
func (p *Presenter) Show(body string) *Popup {
	lines := strings.Split(body, "\n")
	width := 0
	for _, l := range lines {
		width = max(width, runewidth.StringWidth(l))
	}
	p.popup = Popup{content: body, width: width, height: len(lines), visible: true}
	return &p.popup
}

// Hide dismisses the popup.
func (p *Presenter) Hide() {
	p.popup.visible = false
}

// Copy puts the popup content, without trailing whitespace, on the
// clipboard.
func (p *Presenter) Copy() error {
	if !p.popup.visible {
		return fmt.Errorf("popup: nothing shown")
	}
	if err := p.clip.WriteText(strings.TrimRight(p.popup.content, " \t\r\n")); err != nil {
		return fmt.Errorf("popup: copy: %w", err)
	}
	return nil
}

// Render draws the popup in a rounded border.
func (p *Presenter) Render() string {
	if !p.popup.visible {
		return ""
	}
	return p.style.Width(p.popup.width + 2).Render(p.popup.content)
}
