package amluart

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeRegs is a register window with unbounded RX and a bounded TX FIFO.
type fakeRegs struct {
	mu    sync.Mutex
	ctrl  uint32
	misc  uint32
	reg5  uint32
	rx    []byte
	tx    []byte
	txCap int
}

func newFakeRegs(txCap int) *fakeRegs {
	return &fakeRegs{txCap: txCap}
}

func (f *fakeRegs) Read32(offset uint32) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch offset {
	case RegRFIFO:
		b := f.rx[0]
		f.rx = f.rx[1:]
		return uint32(b)
	case RegControl:
		return f.ctrl
	case RegStatus:
		var s uint32
		if len(f.rx) == 0 {
			s |= StatusRxEmpty
		}
		if len(f.tx) >= f.txCap {
			s |= StatusTxFull
		}
		return s
	case RegMisc:
		return f.misc
	case RegReg5:
		return f.reg5
	}
	return 0
}

func (f *fakeRegs) Write32(offset uint32, value uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch offset {
	case RegWFIFO:
		f.tx = append(f.tx, byte(value))
	case RegControl:
		f.ctrl = value
	case RegMisc:
		f.misc = value
	case RegReg5:
		f.reg5 = value
	}
}

func (f *fakeRegs) push(data string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rx = append(f.rx, data...)
}

func (f *fakeRegs) drain() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := string(f.tx)
	f.tx = nil
	return s
}

func testOptions() *options {
	return &options{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		spawn:         spawnGoroutine,
		defaultConfig: DefaultConfig(),
	}
}

// recorder collects notifications.
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) notify(port uint32, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) get() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{0, "NONE"},
		{StateReadable, "READABLE"},
		{StateWritable, "WRITABLE"},
		{StateReadable | StateWritable, "READABLE|WRITABLE"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestNotifyOnlyOnChange(t *testing.T) {
	regs := newFakeRegs(4)
	p := newPort(0, regs, nil, testOptions())
	rec := &recorder{}

	p.SetNotify(rec.notify)
	p.Poll()
	p.Poll()

	got := rec.get()
	if len(got) != 1 || got[0] != StateWritable {
		t.Fatalf("Expected a single WRITABLE notification, got %v", got)
	}

	regs.push("a")
	if s := p.Poll(); s != StateReadable|StateWritable {
		t.Errorf("Poll() = %v, want READABLE|WRITABLE", s)
	}
	p.Poll()

	got = rec.get()
	if len(got) != 2 || got[1] != StateReadable|StateWritable {
		t.Errorf("Expected second notification READABLE|WRITABLE, got %v", got)
	}
}

func TestSetNotifyDeliversUnchangedState(t *testing.T) {
	regs := newFakeRegs(4)
	p := newPort(0, regs, nil, testOptions())

	first := &recorder{}
	p.SetNotify(first.notify)

	// the state has not changed, the new binding still hears it once
	second := &recorder{}
	p.SetNotify(second.notify)

	if got := second.get(); len(got) != 1 || got[0] != StateWritable {
		t.Errorf("Expected one WRITABLE notification, got %v", got)
	}
	if got := first.get(); len(got) != 1 {
		t.Errorf("Replaced callback called %d times, want 1", len(got))
	}

	// removing the binding stops delivery
	p.SetNotify(nil)
	regs.push("x")
	p.Poll()
	if got := second.get(); len(got) != 1 {
		t.Errorf("Removed callback still notified: %v", got)
	}
}

func TestCallbackMayReenter(t *testing.T) {
	regs := newFakeRegs(4)
	p := newPort(0, regs, nil, testOptions())
	regs.push("hi")

	var read []byte
	p.SetNotify(func(port uint32, s State) {
		if s&StateReadable == 0 {
			return
		}
		buf := make([]byte, 8)
		n, _ := p.Read(buf)
		read = append(read, buf[:n]...)
	})

	if string(read) != "hi" {
		t.Errorf("Expected callback to read %q, got %q", "hi", read)
	}
}

func TestReadWouldBlock(t *testing.T) {
	p := newPort(0, newFakeRegs(4), nil, testOptions())

	n, err := p.Read(make([]byte, 4))
	if !errors.Is(err, ErrWouldBlock) {
		t.Errorf("Expected ErrWouldBlock, got %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 bytes, got %d", n)
	}

	n, err = p.Read(nil)
	if n != 0 || err != nil {
		t.Errorf("Read(nil) = %d, %v; want 0, nil", n, err)
	}
}

func TestReadPartial(t *testing.T) {
	regs := newFakeRegs(4)
	p := newPort(0, regs, nil, testOptions())
	regs.push("hello")

	buf := make([]byte, 3)
	n, err := p.Read(buf)
	if err != nil || n != 3 || string(buf) != "hel" {
		t.Fatalf("Read = %d %q %v", n, buf[:n], err)
	}

	buf = make([]byte, 8)
	n, err = p.Read(buf)
	if err != nil || string(buf[:n]) != "lo" {
		t.Errorf("Read = %q %v, want %q", buf[:n], err, "lo")
	}
}

func TestWriteFillsFIFO(t *testing.T) {
	regs := newFakeRegs(4)
	p := newPort(0, regs, nil, testOptions())

	n, err := p.Write([]byte("abcdef"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 bytes accepted, got %d", n)
	}

	n, err = p.Write([]byte("ef"))
	if !errors.Is(err, ErrWouldBlock) || n != 0 {
		t.Errorf("Write on full FIFO = %d, %v; want 0, ErrWouldBlock", n, err)
	}

	if got := regs.drain(); got != "abcd" {
		t.Errorf("FIFO holds %q, want %q", got, "abcd")
	}

	n, err = p.Write(nil)
	if n != 0 || err != nil {
		t.Errorf("Write(nil) = %d, %v; want 0, nil", n, err)
	}
}

func TestWriteHook(t *testing.T) {
	opts := testOptions()
	var hooked []byte
	opts.writeHook = func(port uint32, data []byte) {
		hooked = append(hooked, data...)
	}
	p := newPort(3, newFakeRegs(2), nil, opts)

	p.Write([]byte("xyz"))
	if string(hooked) != "xy" {
		t.Errorf("Hook saw %q, want %q", hooked, "xy")
	}
}

func TestConfigurePreservesEnableBits(t *testing.T) {
	regs := newFakeRegs(4)
	p := newPort(0, regs, nil, testOptions())

	const live = ControlTxEn | ControlRxEn | ControlTxIntEn | ControlRxIntEn
	regs.Write32(RegControl, live)

	cfg := Config{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: ParityOdd}
	if err := p.Configure(cfg); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	ctrl := regs.Read32(RegControl)
	if ctrl&live != live {
		t.Errorf("CONTROL %08x lost enable bits", ctrl)
	}
	if want := uint32(ControlXmitLen7 | ControlStopLen2 | ControlParOdd | ControlTwoWire); ctrl&lineConfigMask != want {
		t.Errorf("line fields = %08x, want %08x", ctrl&lineConfigMask, want)
	}
	if got := regs.Read32(RegReg5) & Reg5BaudMask; got != 832 {
		t.Errorf("divisor = %d, want 832", got)
	}
	if p.Config() != cfg {
		t.Errorf("Config() = %v, want %v", p.Config(), cfg)
	}
}

func TestConfigureRejectedLeavesRegisters(t *testing.T) {
	regs := newFakeRegs(4)
	p := newPort(0, regs, nil, testOptions())
	if err := p.Configure(DefaultConfig()); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	before, _ := p.DumpRegisters()

	err := p.Configure(Config{BaudRate: 9600, DataBits: 9, StopBits: 1})
	if !errors.Is(err, ErrInvalidDataBits) {
		t.Errorf("Expected ErrInvalidDataBits, got %v", err)
	}
	if after, _ := p.DumpRegisters(); after != before {
		t.Errorf("Registers changed by rejected configure:\n%v\n%v", before, after)
	}
	if p.Config() != DefaultConfig() {
		t.Errorf("Config changed by rejected configure: %v", p.Config())
	}
}

func TestReleasedPort(t *testing.T) {
	regs := newFakeRegs(4)
	p := newPort(0, regs, nil, testOptions())
	p.released.Store(true)

	if _, err := p.Read(make([]byte, 1)); !errors.Is(err, ErrControllerClosed) {
		t.Errorf("Read: expected ErrControllerClosed, got %v", err)
	}
	if _, err := p.Write([]byte("a")); !errors.Is(err, ErrControllerClosed) {
		t.Errorf("Write: expected ErrControllerClosed, got %v", err)
	}
	if err := p.Configure(DefaultConfig()); !errors.Is(err, ErrControllerClosed) {
		t.Errorf("Configure: expected ErrControllerClosed, got %v", err)
	}
	if err := p.Enable(); !errors.Is(err, ErrControllerClosed) {
		t.Errorf("Enable: expected ErrControllerClosed, got %v", err)
	}
	if _, err := p.DumpRegisters(); !errors.Is(err, ErrControllerClosed) {
		t.Errorf("DumpRegisters: expected ErrControllerClosed, got %v", err)
	}
	if s := p.Poll(); s != 0 {
		t.Errorf("Poll = %v, want NONE", s)
	}

	rec := &recorder{}
	p.SetNotify(rec.notify)
	if got := rec.get(); len(got) != 0 {
		t.Errorf("Expected no delivery on a released port, got %v", got)
	}
}

func TestEnableRacingRelease(t *testing.T) {
	// nil platform: reaching MapInterrupt would panic
	p := newPort(0, newFakeRegs(4), nil, testOptions())

	p.transition.Lock()
	errc := make(chan error, 1)
	go func() { errc <- p.Enable() }()
	p.released.Store(true)
	p.transition.Unlock()

	if err := <-errc; !errors.Is(err, ErrControllerClosed) {
		t.Errorf("Expected ErrControllerClosed, got %v", err)
	}
	if p.Enabled() {
		t.Error("Port enabled after release")
	}
}

// stuckIRQ cannot be canceled; only Close wakes its waiter.
type stuckIRQ struct {
	closed chan struct{}
	closes atomic.Int32
}

func (i *stuckIRQ) Wait() error {
	<-i.closed
	return errors.New("interrupt closed")
}

func (i *stuckIRQ) Cancel() error { return errors.New("cancel not supported") }

func (i *stuckIRQ) Close() error {
	if i.closes.Add(1) > 1 {
		return errors.New("interrupt already closed")
	}
	close(i.closed)
	return nil
}

type stuckPlatform struct{ irq *stuckIRQ }

func (s *stuckPlatform) DeviceInfo() (DeviceInfo, error) {
	return DeviceInfo{MMIOCount: 1, IRQCount: 1}, nil
}

func (s *stuckPlatform) MapMMIO(int) (Registers, error) {
	return nil, errors.New("not mapped")
}

func (s *stuckPlatform) MapInterrupt(int) (Interrupt, error) {
	return s.irq, nil
}

func TestDisableWhenCancelFails(t *testing.T) {
	irq := &stuckIRQ{closed: make(chan struct{})}
	p := newPort(0, newFakeRegs(4), &stuckPlatform{irq: irq}, testOptions())

	if err := p.Enable(); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	if err := p.Disable(); err != nil {
		t.Errorf("Disable failed: %v", err)
	}
	if got := irq.closes.Load(); got != 1 {
		t.Errorf("Interrupt closed %d times, want 1", got)
	}
	if p.Enabled() {
		t.Error("Port still enabled")
	}
}
