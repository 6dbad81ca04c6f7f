package logging

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	salmonPink = lipgloss.Color("#FFB3BA")
	mintGreen  = lipgloss.Color("#A8E6CF")
	amber      = lipgloss.Color("#FFD6A5")
	mutedGray  = lipgloss.Color("#6B7280")

	timeStyle      = lipgloss.NewStyle().Foreground(mutedGray)
	componentStyle = lipgloss.NewStyle().Foreground(mintGreen)

	levelStyles = map[Level]lipgloss.Style{
		LevelDebug: lipgloss.NewStyle().Foreground(mutedGray),
		LevelInfo:  lipgloss.NewStyle().Foreground(salmonPink),
		LevelWarn:  lipgloss.NewStyle().Foreground(amber).Bold(true),
		LevelError: lipgloss.NewStyle().Foreground(salmonPink).Bold(true).Underline(true),
	}

	levelMarks = map[Level]string{
		LevelDebug: "·",
		LevelInfo:  "→",
		LevelWarn:  "⚠",
		LevelError: "✗",
	}
)

// renderConsole formats one console line. lipgloss drops the colors when the
// output is not a terminal.
func renderConsole(level Level, component, message string) string {
	style := levelStyles[level]
	return timeStyle.Render(time.Now().Format("15:04:05")) + " " +
		componentStyle.Render(component) + " " +
		style.Render(levelMarks[level]+" "+message)
}
