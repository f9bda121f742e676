package ui

import (
	"github.com/charmbracelet/lipgloss"
)

const (
	Green lipgloss.Color = "#1DB954"
	Amber lipgloss.Color = "#FFA500"
)

// Styles is the palette used by CLI status output.
var Styles = NewPalette(string(Green), "#04B575", "#FF0000", string(Amber), "#626262")

// Painter defines coloring text with [lipgloss] styles
type Painter interface {
	On(string, lipgloss.Color) string // Sets background color
	As(string, lipgloss.Color) string // Sets foreground color
}

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	key   lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		key:   NewStyle(h).Width(16),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string { return p.ok.Render("✓ " + s) }
func (p *Palette) Err(s string) string { return p.err.Render("✗ " + s) }
func (p *Palette) Warn(s string) string { return p.warn.Render(s) }
func (p *Palette) Help(s string) string { return p.help.Render(s) }

// Field renders a "key  value" line with the key padded to a fixed column.
func (p *Palette) Field(key, value string) string {
	return p.key.Render(key) + value
}

// As renders s in the foreground color c.
func (p *Palette) As(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

// On renders s on the background color c.
func (p *Palette) On(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Background(c).Render(s)
}
