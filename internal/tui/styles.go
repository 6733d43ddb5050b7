package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("39")
	colorAccent  = lipgloss.Color("86")
	colorSuccess = lipgloss.Color("42")
	colorWarning = lipgloss.Color("220")
	colorDim     = lipgloss.Color("241")

	quoteStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	subStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Italic(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(1, 4)

	backgroundUpStyle = lipgloss.NewStyle().
				Foreground(colorSuccess)

	backgroundDownStyle = lipgloss.NewStyle().
				Foreground(colorWarning)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)
