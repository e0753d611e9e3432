// Package hostlink opens the host side of a UART link, typically a USB
// serial adapter wired to one of the SoC's ports, with line settings
// matching the port's.
package hostlink

import (
	"context"
	"errors"
	"fmt"
	"time"

	amluart "github.com/allbin/go-amluart"
	"go.bug.st/serial"
)

// pollInterval bounds how long a blocked Read ignores cancellation.
const pollInterval = 50 * time.Millisecond

// Link is an open host serial port.
type Link struct {
	port serial.Port
	path string
}

// ModeFor translates a port configuration into host serial settings.
// go.bug.st/serial has no hardware flow control, so CTS/RTS configurations
// are opened with RTS asserted and the adapter left to honour it.
func ModeFor(cfg amluart.Config) (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
	}
	if cfg.BaudRate <= 0 {
		return nil, fmt.Errorf("%w: baud rate %d", amluart.ErrInvalidConfig, cfg.BaudRate)
	}
	if cfg.DataBits < 5 || cfg.DataBits > 8 {
		return nil, fmt.Errorf("%w: data bits %d", amluart.ErrInvalidConfig, cfg.DataBits)
	}

	switch cfg.Parity {
	case amluart.ParityNone:
		mode.Parity = serial.NoParity
	case amluart.ParityEven:
		mode.Parity = serial.EvenParity
	case amluart.ParityOdd:
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("%w: parity %v", amluart.ErrInvalidConfig, cfg.Parity)
	}

	switch cfg.StopBits {
	case 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("%w: stop bits %d", amluart.ErrInvalidConfig, cfg.StopBits)
	}

	if cfg.FlowControl == amluart.FlowControlCTSRTS {
		mode.InitialStatusBits = &serial.ModemOutputBits{RTS: true, DTR: true}
	}
	return mode, nil
}

// Open opens the adapter at path and discards anything already buffered.
func Open(path string, cfg amluart.Config) (*Link, error) {
	if path == "" {
		return nil, errors.New("host serial port is required")
	}
	mode, err := ModeFor(cfg)
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := port.SetReadTimeout(pollInterval); err != nil {
		port.Close()
		return nil, fmt.Errorf("setting read timeout: %w", err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("resetting input buffer: %w", err)
	}
	return &Link{port: port, path: path}, nil
}

// Ports lists the serial ports of the host.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

func (l *Link) Path() string { return l.path }

// Write writes all of data and waits until it has been transmitted.
func (l *Link) Write(data []byte) (int, error) {
	n, err := l.port.Write(data)
	if err != nil {
		return n, err
	}
	return n, l.port.Drain()
}

// ReadFull reads exactly n bytes unless ctx is done first, in which case
// it returns what arrived so far together with the context error.
func (l *Link) ReadFull(ctx context.Context, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		got, err := l.port.Read(buf[:n-len(out)])
		if err != nil {
			return out, err
		}
		out = append(out, buf[:got]...)
	}
	return out, nil
}

func (l *Link) Close() error {
	return l.port.Close()
}
