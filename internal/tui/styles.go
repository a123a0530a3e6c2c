package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1)

	statusOnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	statusOffStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	eventTimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	eventTypeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(0, 1)
)
