/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	amluart "github.com/allbin/go-amluart"
	"github.com/allbin/go-amluart/internal/tui/components"
	"github.com/allbin/go-amluart/internal/tui/keys"
	"github.com/allbin/go-amluart/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	monitorPlain   bool
	monitorTimeout time.Duration
)

var probe = []byte("amluart probe\r\n")

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor readiness notifications of every port",
	Long: `Bind every port and watch its readiness notifications.

The TUI lists each port with its enable state, current readiness
(READABLE, WRITABLE, both or NONE), the number of notifications
delivered and the bytes moved through it. Select a port and:
  e/enter  enable or disable it
  x        drain its RX FIFO
  s        send a probe line (injected into RX with --sim)
  d        dump its registers

With --plain every notification is printed with a timestamp instead,
for all ports enabled at start, until Ctrl+C or --timeout.

Examples:
  amluart monitor
  amluart monitor --sim --sim-ports 4 --sim-feed 1s
  amluart monitor --plain --timeout 30s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if monitorPlain {
			return runMonitorPlain(s)
		}
		return runMonitorTUI(s)
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().BoolVar(&monitorPlain, "plain", false, "Print notifications instead of starting the TUI")
	monitorCmd.Flags().DurationVarP(&monitorTimeout, "timeout", "t", 0,
		"Stop after this long in --plain mode (0 = until interrupted)")
}

func runMonitorPlain(s *session) error {
	ctx, cancel := interruptContext(monitorTimeout)
	defer cancel()

	var mu sync.Mutex
	for i := uint32(0); i < s.ctrl.PortCount(); i++ {
		if err := s.ctrl.Enable(i, true); err != nil {
			return fmt.Errorf("port %d: %w", i, err)
		}
		err := s.ctrl.SetNotifyCallback(i, func(port uint32, st amluart.State) {
			mu.Lock()
			defer mu.Unlock()
			printStateChange(port, st)
		})
		if err != nil {
			return err
		}
		s.feed(ctx, i, viper.GetDuration("sim-feed"))
	}

	fmt.Printf("Monitoring %d port(s)\n", s.ctrl.PortCount())
	fmt.Println("Press Ctrl+C to stop")
	<-ctx.Done()
	return nil
}

func printStateChange(port uint32, st amluart.State) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] port %d: %s\n", timestamp, port, styles.StateStyle(st).Render(st.String()))
}

type monitorTickMsg time.Time

func monitorTick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

// monitorModel represents the Bubble Tea model for the monitor command
type monitorModel struct {
	s      *session
	rows   []components.PortRow
	table  *components.PortTable
	help   help.Model
	keys   keys.MonitorKeys
	footer string
	send   func(tea.Msg)
}

func runMonitorTUI(s *session) error {
	m := &monitorModel{
		s:     s,
		rows:  make([]components.PortRow, s.ctrl.PortCount()),
		table: components.NewPortTable(80),
		help:  help.New(),
		keys:  keys.NewMonitorKeys(),
	}
	for i := range m.rows {
		m.rows[i].Num = uint32(i)
	}
	m.refresh()

	p := tea.NewProgram(m, tea.WithAltScreen())
	m.send = p.Send

	ctx, cancel := context.WithCancel(context.Background())
	for i := uint32(0); i < s.ctrl.PortCount(); i++ {
		s.feed(ctx, i, viper.GetDuration("sim-feed"))
	}

	_, err := p.Run()
	cancel()
	return err
}

// refresh reloads enable state, line settings and CONTROL of every port.
func (m *monitorModel) refresh() {
	for i := range m.rows {
		row := &m.rows[i]
		port, err := m.s.ctrl.Port(row.Num)
		if err != nil {
			row.Err = err
			continue
		}
		row.Enabled = port.Enabled()
		row.Config = port.Config()
		row.Err = port.Err()
		if dump, err := port.DumpRegisters(); err == nil {
			row.Control = dump.Control
		}
	}
	m.table.SetRows(m.rows)
}

func (m *monitorModel) Init() tea.Cmd {
	return tea.Batch(monitorTick(), m.bind())
}

// bind forwards every port's notifications into the program. Binding
// delivers the current state at once, so it must run off the event loop.
func (m *monitorModel) bind() tea.Cmd {
	return func() tea.Msg {
		for i := range m.rows {
			err := m.s.ctrl.SetNotifyCallback(uint32(i), func(port uint32, st amluart.State) {
				m.send(components.ReadinessMsg{Port: port, State: st})
			})
			if err != nil {
				return monitorFooterMsg(err.Error())
			}
		}
		return nil
	}
}

func (m *monitorModel) toggle(num uint32) tea.Cmd {
	enable := !m.rows[num].Enabled
	return func() tea.Msg {
		if err := m.s.ctrl.Enable(num, enable); err != nil {
			return monitorFooterMsg(fmt.Sprintf("port %d: %v", num, err))
		}
		if enable {
			return monitorFooterMsg(fmt.Sprintf("port %d enabled", num))
		}
		return monitorFooterMsg(fmt.Sprintf("port %d disabled", num))
	}
}

type monitorFooterMsg string

// monitorIOMsg reports bytes moved by a drain or probe.
type monitorIOMsg struct {
	port   uint32
	rx, tx int
	footer string
}

// drain and sendProbe run as commands: Read and Write deliver readiness
// notifications inline, and those are sent back into the program.
func (m *monitorModel) drain(num uint32) tea.Cmd {
	return func() tea.Msg {
		buf := make([]byte, 256)
		total := 0
		for {
			n, err := m.s.ctrl.Read(num, buf)
			total += n
			if err != nil || n == 0 {
				break
			}
		}
		return monitorIOMsg{port: num, rx: total, footer: fmt.Sprintf("port %d: drained %d bytes", num, total)}
	}
}

func (m *monitorModel) sendProbe(num uint32) tea.Cmd {
	return func() tea.Msg {
		if m.s.bus != nil {
			n := m.s.bus.Device(int(num)).Inject(probe)
			return monitorIOMsg{port: num, footer: fmt.Sprintf("port %d: injected %d bytes", num, n)}
		}
		n, err := m.s.ctrl.Write(num, probe)
		if err != nil {
			return monitorIOMsg{port: num, tx: n, footer: fmt.Sprintf("port %d: wrote %d bytes: %v", num, n, err)}
		}
		return monitorIOMsg{port: num, tx: n, footer: fmt.Sprintf("port %d: wrote %d bytes", num, n)}
	}
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)

	case monitorTickMsg:
		m.refresh()
		return m, monitorTick()

	case monitorFooterMsg:
		m.footer = string(msg)
		m.refresh()

	case monitorIOMsg:
		m.rows[msg.port].RxBytes += msg.rx
		m.rows[msg.port].TxBytes += msg.tx
		m.footer = msg.footer
		m.table.SetRows(m.rows)

	case components.ReadinessMsg:
		if int(msg.Port) < len(m.rows) {
			m.rows[msg.Port].State = msg.State
			m.rows[msg.Port].Notices++
			m.table.SetRows(m.rows)
		}

	case tea.KeyMsg:
		num, ok := m.table.Selected()
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.ToggleEnable) && ok:
			cmds = append(cmds, m.toggle(num))

		case key.Matches(msg, m.keys.Drain) && ok:
			cmds = append(cmds, m.drain(num))

		case key.Matches(msg, m.keys.Inject) && ok:
			cmds = append(cmds, m.sendProbe(num))

		case key.Matches(msg, m.keys.Dump) && ok:
			dump, err := m.s.ctrl.DumpRegisters(num)
			if err != nil {
				m.footer = err.Error()
			} else {
				m.footer = fmt.Sprintf("port %d: CONTROL=%08x STATUS=%08x MISC=%08x REG5=%08x (%s)",
					num, dump.Control, dump.Status, dump.Misc, dump.Reg5, dump.LineConfig())
			}

		default:
			cmds = append(cmds, m.table.Update(msg))
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *monitorModel) View() string {
	title := styles.TitleStyle.Render(fmt.Sprintf("amluart monitor  %d port(s)", len(m.rows)))

	parts := []string{title, m.table.View()}
	if m.footer != "" {
		parts = append(parts, styles.InfoStyle.Render(m.footer))
	}
	if m.help.ShowAll {
		parts = append(parts, styles.HelpStyle.Render(m.help.View(m.keys)))
	} else {
		parts = append(parts, m.help.View(m.keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
