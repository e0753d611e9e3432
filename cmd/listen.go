/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"time"

	amluart "github.com/allbin/go-amluart"
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

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Listen for data on a port with real-time display",
	Long: `Enable a port and display the bytes drained from its RX FIFO in real time.

By default a terminal user interface shows the traffic together with the
port's readiness (R = readable, W = writable) and the number of
notifications received. Features include:
- ASCII and hex display modes
- Readiness events inline with the data (--show-events)
- Register dump on demand (d)
- Enable/disable the port without leaving (e)

With --plain, or when --duration is given, each chunk is printed as a
line on stdout instead, until Ctrl+C or the duration elapses.

Example usage:
  amluart listen 0
  amluart listen 1 --baud 9600
  amluart listen 0 --plain --duration 30s
  amluart listen 0 --sim --sim-feed 500ms`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := parsePort(args[0])
		if err != nil {
			return err
		}

		noTimestamps, _ := cmd.Flags().GetBool("no-timestamps")
		showIndicators, _ := cmd.Flags().GetBool("show-indicators")
		showEvents, _ := cmd.Flags().GetBool("show-events")
		rawMode, _ := cmd.Flags().GetBool("raw")
		plain, _ := cmd.Flags().GetBool("plain")
		duration, _ := cmd.Flags().GetDuration("duration")

		formatter := components.NewDataFormatter(false, true)
		switch {
		case rawMode:
			formatter.SetFormatOptions(true, true)
		case noTimestamps:
			formatter.SetFormatOptions(true, !showIndicators)
		default:
			formatter.SetFormatOptions(false, !showIndicators)
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if plain || duration > 0 {
			return runListenPlain(s, port, formatter, showEvents, duration)
		}
		return runListenTUI(s, port, formatter.GetDisplayMode(), showEvents)
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().Bool("no-timestamps", false, "Hide timestamps from output")
	listenCmd.Flags().Bool("show-indicators", false, "Show RX/TX indicators (off by default)")
	listenCmd.Flags().Bool("show-events", false, "Show readiness notifications inline")
	listenCmd.Flags().Bool("raw", false, "Raw output mode: no timestamps, no indicators")
	listenCmd.Flags().Bool("plain", false, "Print to stdout instead of starting the TUI")
	listenCmd.Flags().Duration("duration", 0, "Stop after this long (implies --plain)")
}

func runListenPlain(s *session, port uint32, formatter *components.DataFormatter, showEvents bool, duration time.Duration) error {
	if err := s.ctrl.Enable(port, true); err != nil {
		return fmt.Errorf("failed to enable port %d: %w", port, err)
	}

	var observer amluart.NotifyFunc
	if showEvents {
		observer = func(p uint32, st amluart.State) {
			fmt.Println(formatter.FormatMessage(components.DataReceivedMsg{
				Timestamp: time.Now(),
				Port:      p,
				Event:     st.String(),
			}))
		}
	}
	stream, err := s.ctrl.Stream(port, observer)
	if err != nil {
		return err
	}
	defer stream.Close()

	ctx, cancel := interruptContext(duration)
	defer cancel()
	s.feed(ctx, port, viper.GetDuration("sim-feed"))

	buf := make([]byte, 4096)
	for {
		n, err := stream.ReadContext(ctx, buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fmt.Println(formatter.FormatMessage(components.DataReceivedMsg{
			Timestamp: time.Now(),
			Port:      port,
			Data:      buf[:n],
		}))
	}
}

// listenModel represents the Bubble Tea model for the listen command
type listenModel struct {
	*models.PortModel
	terminal   *components.Terminal
	statusBar  *components.StatusBar
	help       help.Model
	keys       keys.TerminalKeys
	showEvents bool
}

func runListenTUI(s *session, port uint32, mode components.DisplayMode, showEvents bool) error {
	label := fmt.Sprintf("port %d", port)

	terminal := components.NewTerminal(80, 20)
	terminal.SetFormatOptions(mode.HideTimestamps, mode.HideIndicators)

	m := listenModel{
		PortModel:  models.NewPortModel(s.ctrl, port, label),
		terminal:   terminal,
		statusBar:  components.NewStatusBar("amluart listen", label),
		help:       help.New(),
		keys:       keys.NewTerminalKeys(),
		showEvents: showEvents,
	}
	m.statusBar.SetEnabling()
	if p, err := s.ctrl.Port(port); err == nil {
		m.statusBar.SetConfig(p.Config())
	}

	p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	go m.Start(p.Send)
	s.feed(m.GetContext(), port, viper.GetDuration("sim-feed"))

	_, err := p.Run()

	// The program no longer receives, so notifications cannot block the
	// service loop while the port is torn down.
	m.Cleanup()
	if perr := m.GetError(); err == nil && perr != nil {
		s.log.Warn("port stopped", "port", port, "error", perr)
	}
	return err
}

func (m *listenModel) Init() tea.Cmd {
	return nil
}

func (m *listenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Status bar is single line
		m.terminal.SetSize(msg.Width, msg.Height-1)
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
		if m.showEvents {
			event := components.DataReceivedMsg{Timestamp: time.Now(), Port: msg.Port, Event: msg.State.String()}
			m.AddRawData(event)
			m.terminal.AddMessage(event)
		}

	case components.DataReceivedMsg:
		if !m.IsReady() {
			m.terminal.SetSize(80, 20)
			m.SetReady(true)
		}
		m.AddRawData(msg)
		m.terminal.AddMessage(msg)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

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
			dump := m.DumpMsg()
			m.AddRawData(dump)
			m.terminal.AddMessage(dump)

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
		}
	}

	if _, ok := msg.(tea.WindowSizeMsg); ok {
		_, cmd := m.terminal.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *listenModel) View() string {
	content := "Initializing..."
	if m.IsReady() {
		content = m.terminal.View()
	}

	viewMode := "FOLLOW"
	if !m.terminal.Following() {
		viewMode = "SCROLL"
	}
	statusBar := m.statusBar.ComprehensiveStatusBar("LISTEN", "", viewMode, m.IsEnabled(), time.Now().Format("15:04:05"))

	contentWithBorder := styles.ContentBorderStyle.Render(content)

	if m.help.ShowAll {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			contentWithBorder,
			styles.HelpStyle.Render(m.help.View(m.keys)),
			statusBar,
		)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		contentWithBorder,
		statusBar,
	)
}
