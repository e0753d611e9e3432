/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/allbin/go-amluart/internal/tui/components"
	"github.com/allbin/go-amluart/internal/tui/keys"
	"github.com/allbin/go-amluart/internal/tui/models"
	"github.com/allbin/go-amluart/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <port>",
	Short: "Connect to a port with bidirectional communication",
	Long: `Enable a port and open an interactive terminal to exchange data with it.

The terminal works in two modes, like vim: NORMAL for navigation and
display toggles, INSERT (i) for typing. Enter queues the line into the TX
FIFO, waiting for the port to report WRITABLE when the FIFO is full.
Features include:
- ASCII and hex input (tab)
- ASCII and hex display modes
- Readiness (R/W) and notification count in the status bar
- Input history (up/down in insert mode)
- Register dump (d) and enable/disable (e)

With --sim the simulated port echoes every transmitted byte back.

Example usage:
  amluart connect 0
  amluart connect 1 --baud 9600 --parity even
  amluart connect 0 --sim`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := parsePort(args[0])
		if err != nil {
			return err
		}

		writeTimeout, _ := cmd.Flags().GetDuration("write-timeout")
		noNewline, _ := cmd.Flags().GetBool("no-newline")

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		return runConnectTUI(s, port, writeTimeout, !noNewline)
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().Duration("write-timeout", 5*time.Second, "How long a line may wait for TX FIFO space")
	connectCmd.Flags().Bool("no-newline", false, "Do not append a newline to ASCII lines")
}

// connectModel represents the Bubble Tea model for the connect command
type connectModel struct {
	*models.PortModel
	terminal     *components.Terminal
	statusBar    *components.StatusBar
	input        *components.Input
	help         help.Model
	keys         keys.ConnectKeys
	writeTimeout time.Duration
}

func runConnectTUI(s *session, port uint32, writeTimeout time.Duration, appendNewline bool) error {
	label := fmt.Sprintf("port %d", port)

	m := connectModel{
		PortModel:    models.NewPortModel(s.ctrl, port, label),
		terminal:     components.NewTerminal(0, 0), // sized by WindowSizeMsg
		statusBar:    components.NewStatusBar("amluart connect", label),
		input:        components.NewInput("Type message and press Enter to send..."),
		help:         help.New(),
		keys:         keys.NewConnectKeys(),
		writeTimeout: writeTimeout,
	}
	m.input.SetAppendNewline(appendNewline)
	m.input.Blur()
	m.statusBar.SetEnabling()
	if p, err := s.ctrl.Port(port); err == nil {
		m.statusBar.SetConfig(p.Config())
	}

	p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	go m.Start(p.Send)
	s.feed(m.GetContext(), port, viper.GetDuration("sim-feed"))

	_, err := p.Run()
	m.Cleanup()
	if perr := m.GetError(); err == nil && perr != nil {
		s.log.Warn("port stopped", "port", port, "error", perr)
	}
	return err
}

func (m *connectModel) Init() tea.Cmd {
	return nil
}

func (m *connectModel) addLine(msg components.DataReceivedMsg) {
	m.AddRawData(msg)
	m.terminal.AddMessage(msg)
}

// send queues the current input line and echoes it as pending.
func (m *connectModel) send() tea.Cmd {
	inputStr := m.input.Value()
	if inputStr == "" {
		return nil
	}

	data, err := m.input.Payload()
	if err != nil {
		m.addLine(components.DataReceivedMsg{
			Timestamp: time.Now(),
			Port:      m.Port(),
			Event:     fmt.Sprintf("invalid hex input: %v", err),
		})
		return nil
	}

	m.addLine(components.DataReceivedMsg{
		Timestamp: time.Now(),
		Port:      m.Port(),
		Data:      data,
		IsTX:      true,
		Status:    "PENDING",
	})
	m.input.AddToHistory(inputStr)
	m.input.SetValue("")

	return m.SendCmd(data, m.writeTimeout)
}

func (m *connectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// input box is three lines with its border, status bar one
		m.terminal.SetSize(msg.Width, msg.Height-4)
		m.input.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.SetReady(true)

	case models.EnableStatusMsg:
		m.SetEnabled(msg.Enabled)
		switch {
		case msg.Error != nil:
			m.SetError(msg.Error)
			m.statusBar.SetDisabled(msg.Error)
		case msg.Enabled:
			m.statusBar.SetEnabled()
		default:
			m.statusBar.SetDisabled(nil)
		}

	case components.ReadinessMsg:
		m.statusBar.SetState(msg.State)

	case models.SendResultMsg:
		status := "WRITTEN"
		switch {
		case msg.Error != nil && msg.Written > 0:
			status = "PARTIAL"
		case msg.Error != nil:
			status = "ERROR"
		}
		m.addLine(components.DataReceivedMsg{
			Timestamp: time.Now(),
			Port:      m.Port(),
			Data:      msg.Data[:msg.Written],
			IsTX:      true,
			Status:    status,
		})
		if msg.Error != nil {
			m.addLine(components.DataReceivedMsg{
				Timestamp: time.Now(),
				Port:      m.Port(),
				Event:     fmt.Sprintf("write: %v", msg.Error),
			})
		}

	case components.DataReceivedMsg:
		if m.IsReady() {
			m.addLine(msg)
		}

	case tea.KeyMsg:
		if m.IsInInsertMode() {
			switch {
			case key.Matches(msg, m.keys.Escape):
				m.SetInputMode(models.InputModeNormal)
				m.input.Blur()
				return m, nil
			case key.Matches(msg, m.keys.Enter):
				return m, m.send()
			case msg.String() == "up":
				m.input.NavigateHistoryUp()
				return m, nil
			case msg.String() == "down":
				m.input.NavigateHistoryDown()
				return m, nil
			case key.Matches(msg, m.keys.ToggleSendMode):
				m.input.ToggleSendingMode()
				return m, nil
			}
		} else {
			switch {
			case key.Matches(msg, m.keys.Quit):
				return m, tea.Quit

			case key.Matches(msg, m.keys.InsertMode):
				m.SetInputMode(models.InputModeInsert)
				m.input.Focus()
				return m, nil

			case key.Matches(msg, m.keys.Clear):
				m.ClearData()
				m.terminal.Clear()

			case key.Matches(msg, m.keys.Help):
				m.help.ShowAll = !m.help.ShowAll

			case key.Matches(msg, m.keys.ToggleEnable):
				if m.IsEnabled() {
					m.statusBar.SetDisabled(nil)
				} else {
					m.statusBar.SetEnabling()
				}
				cmds = append(cmds, m.ToggleEnableCmd())

			case key.Matches(msg, m.keys.Dump):
				m.addLine(m.DumpMsg())

			case key.Matches(msg, m.keys.ToggleHex):
				m.terminal.ToggleHex()
				m.terminal.RefreshDisplayWithRawData(m.GetRawData())

			case key.Matches(msg, m.keys.ToggleASCII):
				m.terminal.ToggleASCII()
				m.terminal.RefreshDisplayWithRawData(m.GetRawData())

			case key.Matches(msg, m.keys.ToggleTimestamps):
				m.terminal.ToggleTimestamps()
				m.terminal.RefreshDisplayWithRawData(m.GetRawData())

			case key.Matches(msg, m.keys.ToggleIndicators):
				m.terminal.ToggleIndicators()
				m.terminal.RefreshDisplayWithRawData(m.GetRawData())

			case key.Matches(msg, m.keys.ToggleSendMode):
				m.input.ToggleSendingMode()

			case key.Matches(msg, m.keys.Up):
				m.terminal.ScrollUp(1)

			case key.Matches(msg, m.keys.Down):
				m.terminal.ScrollDown(1)

			case key.Matches(msg, m.keys.GotoTop):
				m.terminal.GotoTop()

			case key.Matches(msg, m.keys.GotoBottom):
				m.terminal.GotoBottom()
			}
		}
	}

	if m.IsInInsertMode() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	if _, ok := msg.(tea.WindowSizeMsg); ok {
		_, cmd := m.terminal.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *connectModel) View() string {
	content := "Initializing..."
	if m.IsReady() {
		content = m.terminal.View()
	}

	isInsertMode := m.IsInInsertMode()
	input := m.input.ViewWithMode(isInsertMode)

	viewMode := "FOLLOW"
	if !m.terminal.Following() {
		viewMode = "SCROLL"
	}
	statusBar := m.statusBar.ComprehensiveStatusBar(
		m.GetInputMode().String(),
		m.input.GetSendingMode().String(),
		viewMode,
		m.IsEnabled(),
		time.Now().Format("15:04:05"),
	)

	contentWithBorder := styles.ContentBorderStyle.Render(content)

	if m.help.ShowAll {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			contentWithBorder,
			styles.HelpStyle.Render(m.help.View(m.keys)),
			input,
			statusBar,
		)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		contentWithBorder,
		input,
		statusBar,
	)
}
