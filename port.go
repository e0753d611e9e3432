package amluart

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// State is the readiness bitmask of a port
type State uint32

const (
	StateReadable State = 1 << iota // RX FIFO has data
	StateWritable                   // TX FIFO has space
)

// stateUnknown never matches a value read from hardware, so storing it
// forces the next evaluation to notify.
const stateUnknown State = 1 << 31

func (s State) String() string {
	var parts []string
	if s&StateReadable != 0 {
		parts = append(parts, "READABLE")
	}
	if s&StateWritable != 0 {
		parts = append(parts, "WRITABLE")
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// NotifyFunc receives readiness changes. It may run on the port's service
// goroutine and may call back into the driver, except to disable the port
// it was called for.
//
// Calls are not serialized: the service loop and a concurrent Read, Write
// or Poll each deliver outside the port lock, so two calls can overlap or
// land out of order, and a callback may then see the same value twice in
// a row. Treat a call as a prompt to poll, not as the authoritative state.
type NotifyFunc func(port uint32, state State)

// serviceTask exists only while a port is enabled; it owns the interrupt
// object and the completion signal of the service goroutine.
type serviceTask struct {
	irq  Interrupt
	done chan struct{}
}

// Port is one UART channel of a Controller.
type Port struct {
	num      uint32
	regs     Registers
	platform Platform
	opts     *options
	log      *slog.Logger
	released atomic.Bool

	// transition serializes Enable and Disable. It is held while joining
	// the service goroutine, which itself needs mu.
	transition sync.Mutex

	mu        sync.Mutex
	task      *serviceTask
	lastState State
	notify    NotifyFunc
	config    Config
	loopErr   error
}

func newPort(num uint32, regs Registers, platform Platform, opts *options) *Port {
	return &Port{
		num:      num,
		regs:     regs,
		platform: platform,
		opts:     opts,
		log:      opts.logger.With("port", num),
	}
}

// Num returns the port index.
func (p *Port) Num() uint32 { return p.num }

// Enabled reports whether the service loop is running.
func (p *Port) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.task != nil
}

// Config returns the last line configuration applied to the port.
func (p *Port) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config
}

// Err returns the error that stopped the service loop, if it stopped on its
// own. It is cleared by the next Enable.
func (p *Port) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loopErr
}

// Configure programs the line settings. It may be called enabled or not.
func (p *Port) Configure(cfg Config) error {
	if p.released.Load() {
		return ErrControllerClosed
	}
	lb, err := resolveLine(cfg)
	if err != nil {
		p.log.Error("configure failed", "config", cfg.String(), "error", err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ctrl := p.regs.Read32(RegControl)
	p.regs.Write32(RegControl, lb.apply(ctrl))
	p.regs.Write32(RegReg5, lb.reg5)
	p.config = cfg
	return nil
}

// Enable starts the service loop. Enabling an enabled port is a no-op.
func (p *Port) Enable() error {
	if p.released.Load() {
		return ErrControllerClosed
	}
	p.transition.Lock()
	defer p.transition.Unlock()

	// Close may have released the window while we waited for the lock.
	if p.released.Load() {
		return ErrControllerClosed
	}
	if p.Enabled() {
		return nil
	}

	irq, err := p.platform.MapInterrupt(int(p.num))
	if err != nil {
		p.log.Error("map interrupt failed", "error", err)
		return fmt.Errorf("%w: %w", ErrResourceAcquisitionFailed, err)
	}

	task := &serviceTask{irq: irq, done: make(chan struct{})}
	if err := p.opts.spawn(func() { p.serve(task) }); err != nil {
		p.log.Error("spawn service loop failed", "error", err)
		irq.Close()
		return fmt.Errorf("%w: %w", ErrTaskCreationFailed, err)
	}

	p.mu.Lock()
	p.task = task
	p.loopErr = nil
	p.mu.Unlock()
	return nil
}

// Disable stops the service loop: cancel the wait, join the goroutine, then
// close the interrupt. Disabling a disabled port is a no-op.
func (p *Port) Disable() error {
	p.transition.Lock()
	defer p.transition.Unlock()
	return p.disable()
}

// release disables the port and marks its window unusable in one
// transition, so no Enable can slip in between.
func (p *Port) release() error {
	p.transition.Lock()
	defer p.transition.Unlock()
	err := p.disable()
	p.released.Store(true)
	return err
}

// disable is Disable with p.transition held.
func (p *Port) disable() error {
	p.mu.Lock()
	task := p.task
	p.mu.Unlock()
	if task == nil {
		return nil
	}

	var err error
	if cerr := task.irq.Cancel(); cerr != nil {
		// Closing the object also fails the blocked wait.
		p.log.Warn("interrupt cancel failed, closing", "error", cerr)
		err = task.irq.Close()
		<-task.done
	} else {
		<-task.done
		err = task.irq.Close()
	}

	p.mu.Lock()
	p.task = nil
	p.mu.Unlock()
	return err
}

// SetEnabled enables or disables the port.
func (p *Port) SetEnabled(enable bool) error {
	if enable {
		return p.Enable()
	}
	return p.Disable()
}

// SetNotify replaces the notification callback and immediately delivers the
// current readiness to it. A nil cb removes the binding. Once the controller
// is closed the binding is only stored; nothing is delivered.
func (p *Port) SetNotify(cb NotifyFunc) {
	p.mu.Lock()
	p.notify = cb
	p.lastState = stateUnknown
	p.mu.Unlock()

	if p.released.Load() {
		return
	}

	p.evaluate()
}

// Poll reads the current readiness, notifying the callback on change. A
// port of a closed controller reports no readiness.
func (p *Port) Poll() State {
	return p.evaluate()
}

// evaluate derives readiness from STATUS and notifies on change. The callback
// runs outside the lock.
func (p *Port) evaluate() State {
	if p.released.Load() {
		return 0
	}
	status := p.regs.Read32(RegStatus)

	var state State
	if status&StatusRxEmpty == 0 {
		state |= StateReadable
	}
	if status&StatusTxFull == 0 {
		state |= StateWritable
	}

	p.mu.Lock()
	changed := state != p.lastState
	p.lastState = state
	cb := p.notify
	p.mu.Unlock()

	if changed && cb != nil {
		cb(p.num, state)
	}
	return state
}

// Read drains up to len(buf) bytes from the RX FIFO without waiting. It
// returns ErrWouldBlock when no byte is available. An empty buf returns
// 0, nil without touching the FIFO, as io.Reader allows.
func (p *Port) Read(buf []byte) (int, error) {
	if p.released.Load() {
		return 0, ErrControllerClosed
	}
	if len(buf) == 0 {
		return 0, nil
	}

	n := 0
	for n < len(buf) && p.evaluate()&StateReadable != 0 {
		buf[n] = byte(p.regs.Read32(RegRFIFO))
		n++
	}
	if n == 0 {
		return 0, ErrWouldBlock
	}
	return n, nil
}

// Write pushes bytes into the TX FIFO while it has space. It returns
// ErrWouldBlock when not a single byte was accepted. Empty data returns
// 0, nil without touching the FIFO.
func (p *Port) Write(data []byte) (int, error) {
	if p.released.Load() {
		return 0, ErrControllerClosed
	}
	if len(data) == 0 {
		return 0, nil
	}

	n := 0
	for n < len(data) && p.evaluate()&StateWritable != 0 {
		p.regs.Write32(RegWFIFO, uint32(data[n]))
		n++
	}
	if n == 0 {
		return 0, ErrWouldBlock
	}

	p.log.Debug("tx", "len", n, "data", fmt.Sprintf("% x", data[:n]))
	if p.opts.writeHook != nil {
		p.opts.writeHook(p.num, data[:n])
	}
	return n, nil
}
