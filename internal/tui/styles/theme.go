package styles

import (
	amluart "github.com/allbin/go-amluart"
	"github.com/allbin/go-amluart/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	StatusConnectedStyle = lipgloss.NewStyle().
				Foreground(colors.Green).
				Bold(true)

	StatusDisconnectedStyle = lipgloss.NewStyle().
				Foreground(colors.Red).
				Bold(true)

	StatusConnectingStyle = lipgloss.NewStyle().
				Foreground(colors.Yellow).
				Bold(true)

	// Readiness flags
	ReadableStyle = lipgloss.NewStyle().
			Foreground(colors.Readable).
			Bold(true)

	WritableStyle = lipgloss.NewStyle().
			Foreground(colors.Writable).
			Bold(true)

	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface1).
			Padding(1, 2).
			Margin(1, 0)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red)

	InfoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Green)

	// Register dump labels and values
	LabelStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext0).
			Width(9)

	ValueStyle = lipgloss.NewStyle().
			Foreground(colors.Text)
)

// StateStyle returns the style used to render a readiness mask.
func StateStyle(s amluart.State) lipgloss.Style {
	switch {
	case s&amluart.StateReadable != 0:
		return ReadableStyle
	case s&amluart.StateWritable != 0:
		return WritableStyle
	default:
		return StatusDisconnectedStyle
	}
}
