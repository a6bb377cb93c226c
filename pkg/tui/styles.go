package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#2563EB")).
			Padding(0, 2)

	postStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#CAD3F5"))

	commentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A5ADCB"))

	authorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6E738D")).
			Italic(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60A5FA")).
			Bold(true)

	toastStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ED8796")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6E738D"))
)
