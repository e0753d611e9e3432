package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/go-amluart/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// DataReceivedMsg is one chunk of port traffic or a readiness event.
type DataReceivedMsg struct {
	Timestamp time.Time
	Port      uint32
	Data      []byte
	IsTX      bool
	Status    string // TX: "PENDING", "PARTIAL", "WRITTEN", "ERROR"; RX: empty
	Event     string // readiness change, rendered instead of Data when set
}

type DisplayMode struct {
	ShowHex        bool
	ShowASCII      bool
	HideTimestamps bool
	HideIndicators bool
}

type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(showHex, showASCII bool) *DataFormatter {
	return &DataFormatter{
		mode: DisplayMode{
			ShowHex:   showHex,
			ShowASCII: showASCII,
		},
	}
}

// SetFormatOptions controls the line prefix.
func (df *DataFormatter) SetFormatOptions(hideTimestamps, hideIndicators bool) {
	df.mode.HideTimestamps = hideTimestamps
	df.mode.HideIndicators = hideIndicators
}

func (df *DataFormatter) GetDisplayMode() DisplayMode {
	return df.mode
}

func (df *DataFormatter) indicator(msg DataReceivedMsg) string {
	if msg.Event != "" {
		return lipgloss.NewStyle().
			Foreground(colors.Lavender).
			Bold(true).
			Render("◆ IRQ")
	}
	if !msg.IsTX {
		return lipgloss.NewStyle().
			Foreground(colors.Sky).
			Bold(true).
			Render("↙ RX")
	}

	var txColor lipgloss.Color
	var statusText string
	switch msg.Status {
	case "PENDING":
		txColor = colors.Yellow
		statusText = "TX ○"
	case "PARTIAL":
		// FIFO took part of the payload, the rest waits for WRITABLE
		txColor = colors.Blue
		statusText = "TX ⏸"
	case "WRITTEN":
		txColor = colors.Green
		statusText = "TX ✓"
	case "ERROR":
		txColor = colors.Red
		statusText = "TX ✗"
	default:
		txColor = colors.Peach
		statusText = "TX"
	}
	return lipgloss.NewStyle().
		Foreground(txColor).
		Bold(true).
		Render("↗ " + statusText)
}

// printable replaces everything outside printable ASCII with dots so no
// control sequence reaches the terminal.
func printable(data []byte) string {
	var b strings.Builder
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func (df *DataFormatter) FormatMessage(msg DataReceivedMsg) string {
	var parts []string

	switch {
	case msg.Event != "":
		parts = append(parts, msg.Event)
	default:
		if df.mode.ShowHex {
			parts = append(parts, fmt.Sprintf("HEX: % X", msg.Data))
		}
		if df.mode.ShowASCII {
			parts = append(parts, "ASCII: "+printable(msg.Data))
		}
		if !df.mode.ShowHex && !df.mode.ShowASCII {
			parts = append(parts, fmt.Sprintf("BYTES: %d", len(msg.Data)))
		}
	}
	body := strings.Join(parts, "  ")

	var prefix []string
	if !df.mode.HideTimestamps {
		prefix = append(prefix, lipgloss.NewStyle().
			Foreground(colors.Subtext0).
			Render(fmt.Sprintf("[%s]", msg.Timestamp.Format("15:04:05.000"))))
	}
	if !df.mode.HideIndicators {
		prefix = append(prefix, df.indicator(msg)+":")
	}
	if len(prefix) == 0 {
		return body
	}
	return strings.Join(prefix, " ") + " " + body
}

func (df *DataFormatter) FormatMessages(messages []DataReceivedMsg) []string {
	formatted := make([]string, len(messages))
	for i, msg := range messages {
		formatted[i] = df.FormatMessage(msg)
	}
	return formatted
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleASCII() {
	df.mode.ShowASCII = !df.mode.ShowASCII
}

func (df *DataFormatter) ToggleTimestamps() {
	df.mode.HideTimestamps = !df.mode.HideTimestamps
}

func (df *DataFormatter) ToggleIndicators() {
	df.mode.HideIndicators = !df.mode.HideIndicators
}
