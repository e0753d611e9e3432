// Package sim models the Amlogic UART register block, its FIFOs and its
// interrupt line in memory, for tests and for running the CLI without
// hardware.
package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	amluart "github.com/allbin/go-amluart"
)

// DefaultFIFODepth matches the 64-byte FIFOs of the hardware.
const DefaultFIFODepth = 64

// Option configures a simulated device
type Option func(*Device)

// WithDepth sets the depth of both FIFOs (1..127).
func WithDepth(n int) Option {
	return func(d *Device) {
		if n > 0 && n <= 0x7f {
			d.depth = n
		}
	}
}

// WithLoopback wires TX to RX: every transmitted byte is received again.
func WithLoopback() Option {
	return func(d *Device) {
		d.loopback = true
	}
}

// WithAutoDrain transmits bytes as soon as they reach an enabled TX FIFO,
// so the FIFO never fills.
func WithAutoDrain() Option {
	return func(d *Device) {
		d.autoDrain = true
	}
}

// Device is one simulated UART register window
type Device struct {
	mu        sync.Mutex
	ctrl      uint32
	misc      uint32
	reg5      uint32
	errFlags  uint32
	rx        []byte
	tx        []byte
	wire      []byte
	depth     int
	loopback  bool
	autoDrain bool
	irq       *Interrupt
	accesses  int
	unmapped  bool
}

// Ensure Device implements Registers at compile time
var _ amluart.Registers = (*Device)(nil)

// NewDevice returns a device in its reset state.
func NewDevice(opts ...Option) *Device {
	d := &Device{depth: DefaultFIFODepth}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Read32 implements amluart.Registers.
func (d *Device) Read32(offset uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accesses++

	switch offset {
	case amluart.RegWFIFO:
		return 0
	case amluart.RegRFIFO:
		if len(d.rx) == 0 {
			return 0
		}
		b := d.rx[0]
		d.rx = d.rx[1:]
		return uint32(b)
	case amluart.RegControl:
		return d.ctrl
	case amluart.RegStatus:
		return d.status()
	case amluart.RegMisc:
		return d.misc
	case amluart.RegReg5:
		return d.reg5
	default:
		panic(fmt.Sprintf("sim: read of invalid offset %#x", offset))
	}
}

// Write32 implements amluart.Registers.
func (d *Device) Write32(offset uint32, value uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accesses++

	switch offset {
	case amluart.RegWFIFO:
		if len(d.tx) >= d.depth {
			d.errFlags |= amluart.StatusTxOverflow
			return
		}
		d.tx = append(d.tx, byte(value))
		if d.autoDrain || d.loopback {
			d.transmit()
		}
	case amluart.RegRFIFO:
	case amluart.RegControl:
		if value&amluart.ControlRstRx != 0 {
			d.rx = nil
		}
		if value&amluart.ControlRstTx != 0 {
			d.tx = nil
		}
		if value&amluart.ControlClrErr != 0 {
			d.errFlags = 0
		}
		d.ctrl = value
		if d.autoDrain || d.loopback {
			d.transmit()
		}
	case amluart.RegStatus:
	case amluart.RegMisc:
		d.misc = value
	case amluart.RegReg5:
		d.reg5 = value
	default:
		panic(fmt.Sprintf("sim: write of invalid offset %#x", offset))
	}
}

// Close marks the window unmapped.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unmapped {
		return errors.New("sim: window already unmapped")
	}
	d.unmapped = true
	return nil
}

func (d *Device) status() uint32 {
	s := uint32(len(d.rx))&amluart.StatusRxCountMask |
		uint32(len(d.tx))<<amluart.StatusTxCountPos&amluart.StatusTxCountMask |
		d.errFlags
	if len(d.rx) == 0 {
		s |= amluart.StatusRxEmpty
	}
	if len(d.rx) >= d.depth {
		s |= amluart.StatusRxFull
	}
	if len(d.tx) == 0 {
		s |= amluart.StatusTxEmpty
	}
	if len(d.tx) >= d.depth {
		s |= amluart.StatusTxFull
	}
	return s
}

// transmit moves the TX FIFO onto the wire, or back into RX in loopback.
// Called with d.mu held.
func (d *Device) transmit() {
	if d.ctrl&amluart.ControlTxEn == 0 || len(d.tx) == 0 {
		return
	}
	sent := d.tx
	d.tx = nil
	if d.loopback {
		d.receive(sent)
	} else {
		d.wire = append(d.wire, sent...)
	}
	if d.ctrl&amluart.ControlTxIntEn != 0 {
		d.fire()
	}
}

// receive pushes bytes into RX as the receiver would. Called with d.mu held.
func (d *Device) receive(data []byte) int {
	if d.ctrl&amluart.ControlRxEn == 0 {
		return 0
	}
	n := 0
	for _, b := range data {
		if len(d.rx) >= d.depth {
			d.errFlags |= amluart.StatusRxOverflow
			break
		}
		d.rx = append(d.rx, b)
		n++
	}
	if n > 0 && d.ctrl&amluart.ControlRxIntEn != 0 {
		d.fire()
	}
	return n
}

func (d *Device) fire() {
	if d.irq != nil {
		d.irq.Fire()
	}
}

// Inject delivers bytes from the wire to the receiver and returns how many
// fit. Nothing is received while RX is disabled.
func (d *Device) Inject(data []byte) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.receive(data)
}

// Transmit sends everything queued in the TX FIFO if TX is enabled.
func (d *Device) Transmit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transmit()
}

// Transmitted returns and clears the bytes that left the TX FIFO.
func (d *Device) Transmitted() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.wire
	d.wire = nil
	return out
}

// Pending returns the bytes waiting in the TX FIFO.
func (d *Device) Pending() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.tx...)
}

// Fire raises the interrupt line without a FIFO change.
func (d *Device) Fire() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fire()
}

// Control returns CONTROL without counting an access.
func (d *Device) Control() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctrl
}

// Misc returns MISC without counting an access.
func (d *Device) Misc() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.misc
}

// Reg5 returns REG5 without counting an access.
func (d *Device) Reg5() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reg5
}

// Accesses returns the number of register accesses made through
// Read32 and Write32.
func (d *Device) Accesses() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accesses
}

// Unmapped reports whether Close was called.
func (d *Device) Unmapped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unmapped
}

// Interrupt returns the interrupt object currently attached, or nil.
func (d *Device) Interrupt() *Interrupt {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.irq
}

func (d *Device) attach(irq *Interrupt) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.irq = irq
}

func (d *Device) detach(irq *Interrupt) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.irq == irq {
		d.irq = nil
	}
}

// WaitServing blocks until a service loop has enabled RX and TX and is
// parked in Wait, or the timeout expires.
func (d *Device) WaitServing(timeout time.Duration) error {
	const enabled = amluart.ControlRxEn | amluart.ControlTxEn
	deadline := time.Now().Add(timeout)
	for {
		irq := d.Interrupt()
		if d.Control()&enabled == enabled && irq != nil && irq.Waiters() > 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("sim: no service loop after %v", timeout)
		}
		time.Sleep(time.Millisecond)
	}
}
