package components

import (
	"fmt"

	amluart "github.com/allbin/go-amluart"
	"github.com/allbin/go-amluart/internal/tui/colors"
	"github.com/allbin/go-amluart/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// ReadinessMsg carries a notification from the driver into the TUI.
type ReadinessMsg struct {
	Port  uint32
	State amluart.State
}

type StatusBar struct {
	title   string
	port    string
	status  string
	err     error
	width   int
	config  *amluart.Config
	state   amluart.State
	notices int
}

func NewStatusBar(title, port string) *StatusBar {
	return &StatusBar{
		title:  title,
		port:   port,
		status: "Initializing...",
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetConfig(cfg amluart.Config) {
	sb.config = &cfg
}

// SetState records the latest readiness notification.
func (sb *StatusBar) SetState(s amluart.State) {
	sb.state = s
	sb.notices++
}

func (sb *StatusBar) SetEnabling() {
	sb.status = "Enabling..."
	sb.err = nil
}

func (sb *StatusBar) SetEnabled() {
	sb.status = "Enabled"
	sb.err = nil
}

func (sb *StatusBar) SetDisabled(err error) {
	if err != nil {
		sb.status = fmt.Sprintf("Failed: %v", err)
		sb.err = err
		return
	}
	sb.status = "Disabled"
	sb.err = nil
}

func (sb *StatusBar) readiness() string {
	r := lipgloss.NewStyle().Foreground(colors.Overlay0).Render("R")
	if sb.state&amluart.StateReadable != 0 {
		r = styles.ReadableStyle.Render("R")
	}
	w := lipgloss.NewStyle().Foreground(colors.Overlay0).Render("W")
	if sb.state&amluart.StateWritable != 0 {
		w = styles.WritableStyle.Render("W")
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(r + w)
}

// ComprehensiveStatusBar renders mode, port, enable indicator, readiness,
// line settings and clock in a single line.
func (sb *StatusBar) ComprehensiveStatusBar(inputMode, sendingMode, viewMode string, enabled bool, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	modeBg := colors.Blue
	modeText := "NORMAL"
	switch inputMode {
	case "INSERT":
		modeBg = colors.Green
		modeText = "INSERT"
	case "LISTEN":
		modeBg = colors.Sky
		modeText = "LISTEN"
	}
	mode := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(modeBg).
		Bold(true).
		Padding(0, 1).
		Render(modeText)

	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.port)

	var indicator string
	switch {
	case sb.err != nil:
		indicator = styles.StatusDisconnectedStyle.Render("✗")
	case enabled:
		indicator = styles.StatusConnectedStyle.Render("●")
	case sb.status == "Enabling...":
		indicator = styles.StatusConnectingStyle.Render("○")
	default:
		indicator = styles.StatusDisconnectedStyle.Render("○")
	}

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	left := []string{mode, port, indicator, sb.readiness()}
	if inputMode == "INSERT" {
		left = append(left, lipgloss.NewStyle().
			Foreground(colors.Peach).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("[%s] Tab to toggle", sendingMode)))
	}
	if viewMode != "" {
		left = append(left, lipgloss.NewStyle().
			Foreground(colors.Subtext1).
			Padding(0, 1).
			Render(viewMode))
	}
	left = append(left, divider)
	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)

	lineInfo := "⚡ amluart"
	if sb.config != nil {
		lineInfo = fmt.Sprintf("⚡ %s  irq:%d", sb.config.String(), sb.notices)
	}
	details := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(lineInfo)
	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, clock)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
