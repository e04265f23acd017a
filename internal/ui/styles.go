package ui

import (
	"github.com/nconklindev/kbnsheet/internal/schema"

	"github.com/charmbracelet/lipgloss"
)

var (
	accent    = lipgloss.Color("#2E9E5B")
	highlight = lipgloss.Color("#7BD389")
	muted     = lipgloss.Color("#6B7280")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			MarginTop(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(muted).
			MarginBottom(1)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	UnselectedStyle = lipgloss.NewStyle().
			Foreground(muted)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4757")).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(highlight).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(muted).
			MarginTop(1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2)

	typeColors = map[schema.ColumnType]lipgloss.Color{
		schema.Text:     lipgloss.Color("#FFFFFF"),
		schema.Integer:  lipgloss.Color("#4DA3FF"),
		schema.Date:     lipgloss.Color("#FFB84D"),
		schema.Category: highlight,
	}
)

// TypeStyle colours a column type tag.
func TypeStyle(t schema.ColumnType) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(typeColors[t])
}
