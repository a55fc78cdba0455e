package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme names the colors the browser draws with.
type Theme struct {
	Accent      string // ranking and lyric titles
	Archived    string
	Failure     string
	Notice      string // partial playlists, section labels
	Muted       string
	Timestamp   string
	Translation string
}

var neteaseRed = Theme{
	Accent:      "#E60026",
	Archived:    "#04B575",
	Failure:     "#FF5F5F",
	Notice:      "#FFA500",
	Muted:       "#626262",
	Timestamp:   "#5FAFD7",
	Translation: "#AF87D7",
}

var styles = NewPalette(neteaseRed)

// Palette holds the rendered styles for one [Theme].
type Palette struct {
	title       lipgloss.Style
	ok          lipgloss.Style
	err         lipgloss.Style
	warn        lipgloss.Style
	help        lipgloss.Style
	stamp       lipgloss.Style
	lyricLine   lipgloss.Style
	translation lipgloss.Style
}

func NewPalette(t Theme) *Palette {
	return &Palette{
		title:       bold(t.Accent).MarginBottom(1),
		ok:          bold(t.Archived),
		err:         bold(t.Failure),
		warn:        fg(t.Notice),
		help:        fg(t.Muted).Italic(true),
		stamp:       fg(t.Timestamp).Faint(true),
		lyricLine:   lipgloss.NewStyle(),
		translation: fg(t.Translation).Italic(true),
	}
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func bold(color string) lipgloss.Style {
	return fg(color).Bold(true)
}
