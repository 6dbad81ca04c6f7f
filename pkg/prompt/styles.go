package prompt

import "github.com/charmbracelet/lipgloss"

var (
	salmonPink = lipgloss.Color("#FFB3BA")
	mintGreen  = lipgloss.Color("#A8E6CF")
	mutedGray  = lipgloss.Color("#6B7280")
)

var (
	questionStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(salmonPink).
			Padding(0, 1)

	hintStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Italic(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(mintGreen)
)
