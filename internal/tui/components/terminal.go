package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// maxLines bounds the scrollback kept in the viewport
const maxLines = 5000

type Terminal struct {
	viewport  viewport.Model
	formatter *DataFormatter
	data      []string
	follow    bool
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewDataFormatter(true, true),
		follow:    true,
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
}

// SetFormatOptions hides the timestamp and TX/RX indicator columns.
func (t *Terminal) SetFormatOptions(hideTimestamps, hideIndicators bool) {
	t.formatter.SetFormatOptions(hideTimestamps, hideIndicators)
}

func (t *Terminal) render() {
	if len(t.data) > maxLines {
		t.data = t.data[len(t.data)-maxLines:]
	}
	t.viewport.SetContent(strings.Join(t.data, "\n"))
	if t.follow {
		t.viewport.GotoBottom()
	}
}

func (t *Terminal) AddMessage(msg DataReceivedMsg) {
	t.data = append(t.data, t.formatter.FormatMessage(msg))
	t.render()
}

func (t *Terminal) RefreshDisplayWithRawData(rawData []DataReceivedMsg) {
	t.data = t.formatter.FormatMessages(rawData)
	t.render()
}

func (t *Terminal) Clear() {
	t.data = nil
	t.viewport.SetContent("")
}

func (t *Terminal) ToggleHex()        { t.formatter.ToggleHex() }
func (t *Terminal) ToggleASCII()      { t.formatter.ToggleASCII() }
func (t *Terminal) ToggleTimestamps() { t.formatter.ToggleTimestamps() }
func (t *Terminal) ToggleIndicators() { t.formatter.ToggleIndicators() }

// SetFollow pins the view to the newest line.
func (t *Terminal) SetFollow(follow bool) {
	t.follow = follow
	if follow {
		t.viewport.GotoBottom()
	}
}

func (t *Terminal) Following() bool {
	return t.follow
}

func (t *Terminal) ScrollUp(n int) {
	t.follow = false
	t.viewport.LineUp(n)
}

func (t *Terminal) ScrollDown(n int) {
	t.viewport.LineDown(n)
	if t.viewport.AtBottom() {
		t.follow = true
	}
}

func (t *Terminal) GotoTop() {
	t.follow = false
	t.viewport.GotoTop()
}

func (t *Terminal) GotoBottom() {
	t.SetFollow(true)
}

func (t *Terminal) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// Key messages stay with the command's own bindings
	switch msg.(type) {
	case tea.WindowSizeMsg:
		return t.viewport.Update(msg)
	default:
		return t.viewport, nil
	}
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
