package ui

import "github.com/charmbracelet/lipgloss"

// Palette used by the terminal output
const (
	ColorGray        = lipgloss.Color("#969696")
	ColorWhite       = lipgloss.Color("#FFFFFF")
	ColorLightRed    = lipgloss.Color("#FF9696")
	ColorRed         = lipgloss.Color("#FF0000")
	ColorLightGreen  = lipgloss.Color("#96FF96")
	ColorGreen       = lipgloss.Color("#00FF00")
	ColorLightYellow = lipgloss.Color("#FFFF96")
	ColorYellow      = lipgloss.Color("#FFFF00")
	ColorLightBlue   = lipgloss.Color("#9696FF")
	ColorBrown       = lipgloss.Color("#A52A2A")
	ColorLightPurple = lipgloss.Color("#C896FF")
	ColorOrange      = lipgloss.Color("#FFA500")
	ColorLightOrange = lipgloss.Color("#FFC896")
)

type styles struct {
	text     lipgloss.Style
	info     lipgloss.Style
	success  lipgloss.Style
	errMark  lipgloss.Style
	errText  lipgloss.Style
	warnMark lipgloss.Style
	warnText lipgloss.Style
	project  lipgloss.Style
	modified lipgloss.Style
	prompt   lipgloss.Style
	branch   lipgloss.Style
	name     lipgloss.Style
	kind     lipgloss.Style
	id       lipgloss.Style
	title    lipgloss.Style
	field    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		text:     r.NewStyle(),
		info:     r.NewStyle().Foreground(ColorGray),
		success:  r.NewStyle().Foreground(ColorLightGreen),
		errMark:  r.NewStyle().Foreground(ColorRed),
		errText:  r.NewStyle().Foreground(ColorLightOrange),
		warnMark: r.NewStyle().Foreground(ColorLightRed),
		warnText: r.NewStyle().Foreground(ColorLightYellow),
		project:  r.NewStyle().Foreground(ColorLightPurple),
		modified: r.NewStyle().Foreground(ColorYellow).Bold(true),
		prompt:   r.NewStyle().Foreground(ColorGreen),
		branch:   r.NewStyle().Foreground(ColorBrown),
		name:     r.NewStyle().Foreground(ColorWhite),
		kind:     r.NewStyle().Foreground(ColorYellow),
		id:       r.NewStyle().Foreground(ColorOrange),
		title:    r.NewStyle().Foreground(ColorLightBlue).Bold(true),
		field:    r.NewStyle().Foreground(ColorGray),
	}
}
