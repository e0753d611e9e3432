package models

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amluart "github.com/allbin/go-amluart"
	"github.com/allbin/go-amluart/internal/tui/components"
	tea "github.com/charmbracelet/bubbletea"
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	switch m {
	case InputModeInsert:
		return "INSERT"
	default:
		return "NORMAL"
	}
}

// EnableStatusMsg reports the outcome of enabling or disabling the port.
type EnableStatusMsg struct {
	Enabled bool
	Error   error
}

// SendResultMsg reports a finished write from the input line.
type SendResultMsg struct {
	Data    []byte
	Written int
	Error   error
}

// PortModel is the state shared by the single-port TUIs: the driver handle,
// the traffic log and the input mode.
type PortModel struct {
	ctrl   *amluart.Controller
	port   uint32
	label  string
	stream *amluart.Stream

	enabled bool
	rawData []components.DataReceivedMsg
	err     error
	ready   bool

	inputMode InputMode

	cancel context.CancelFunc
	ctx    context.Context
	mu     sync.RWMutex
}

func NewPortModel(ctrl *amluart.Controller, port uint32, label string) *PortModel {
	ctx, cancel := context.WithCancel(context.Background())
	return &PortModel{
		ctrl:      ctrl,
		port:      port,
		label:     label,
		inputMode: InputModeNormal,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (m *PortModel) Port() uint32  { return m.port }
func (m *PortModel) Label() string { return m.label }

// Start enables the port, binds a stream whose notifications are forwarded
// to send as ReadinessMsg, and starts the receive pump. It is meant to run
// in its own goroutine once the program is running.
func (m *PortModel) Start(send func(tea.Msg)) {
	if err := m.ctrl.Enable(m.port, true); err != nil {
		send(EnableStatusMsg{Enabled: false, Error: err})
		return
	}

	stream, err := m.ctrl.Stream(m.port, func(port uint32, s amluart.State) {
		send(components.ReadinessMsg{Port: port, State: s})
	})
	if err != nil {
		send(EnableStatusMsg{Enabled: false, Error: err})
		return
	}
	m.mu.Lock()
	m.stream = stream
	m.mu.Unlock()

	send(EnableStatusMsg{Enabled: true})
	go m.receive(stream, send)
}

func (m *PortModel) receive(stream *amluart.Stream, send func(tea.Msg)) {
	buf := make([]byte, 256)
	for {
		n, err := stream.ReadContext(m.ctx, buf)
		if err != nil {
			if m.ctx.Err() != nil || errors.Is(err, amluart.ErrControllerClosed) {
				return
			}
			send(EnableStatusMsg{Enabled: false, Error: err})
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		send(components.DataReceivedMsg{
			Timestamp: time.Now(),
			Port:      m.port,
			Data:      data,
		})
	}
}

// SendCmd writes data through the stream and reports the result.
func (m *PortModel) SendCmd(data []byte, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		m.mu.RLock()
		stream := m.stream
		m.mu.RUnlock()
		if stream == nil {
			return SendResultMsg{Data: data, Error: errors.New("port not enabled")}
		}

		ctx, cancel := context.WithTimeout(m.ctx, timeout)
		defer cancel()
		n, err := stream.WriteContext(ctx, data)
		return SendResultMsg{Data: data, Written: n, Error: err}
	}
}

// ToggleEnableCmd flips the port between enabled and disabled. The stream
// binding outlives a disable; reads simply wait until it is enabled again.
func (m *PortModel) ToggleEnableCmd() tea.Cmd {
	enable := !m.IsEnabled()
	return func() tea.Msg {
		err := m.ctrl.Enable(m.port, enable)
		if err != nil {
			return EnableStatusMsg{Enabled: !enable, Error: err}
		}
		return EnableStatusMsg{Enabled: enable}
	}
}

// DumpMsg returns the current register snapshot as a log event.
func (m *PortModel) DumpMsg() components.DataReceivedMsg {
	msg := components.DataReceivedMsg{Timestamp: time.Now(), Port: m.port}
	dump, err := m.ctrl.DumpRegisters(m.port)
	if err != nil {
		msg.Event = m.Label() + " dump failed: " + err.Error()
		return msg
	}
	msg.Event = fmt.Sprintf("%s CONTROL=%08x STATUS=%08x MISC=%08x REG5=%08x rx=%d tx=%d",
		m.Label(), dump.Control, dump.Status, dump.Misc, dump.Reg5, dump.RxCount(), dump.TxCount())
	return msg
}

func (m *PortModel) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

func (m *PortModel) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

func (m *PortModel) GetError() error {
	return m.err
}

func (m *PortModel) SetError(err error) {
	m.err = err
}

func (m *PortModel) IsReady() bool {
	return m.ready
}

func (m *PortModel) SetReady(ready bool) {
	m.ready = ready
}

func (m *PortModel) GetRawData() []components.DataReceivedMsg {
	return m.rawData
}

func (m *PortModel) AddRawData(msg components.DataReceivedMsg) {
	m.rawData = append(m.rawData, msg)
}

func (m *PortModel) ClearData() {
	m.rawData = nil
}

func (m *PortModel) GetInputMode() InputMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputMode
}

func (m *PortModel) SetInputMode(mode InputMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputMode = mode
}

func (m *PortModel) IsInInsertMode() bool {
	return m.GetInputMode() == InputModeInsert
}

func (m *PortModel) GetContext() context.Context {
	return m.ctx
}

// Cleanup stops the receive pump, releases the stream and disables the port.
func (m *PortModel) Cleanup() {
	m.cancel()

	m.mu.Lock()
	stream := m.stream
	m.stream = nil
	m.mu.Unlock()

	if stream != nil {
		stream.Close()
	}
	m.ctrl.Enable(m.port, false)
}
