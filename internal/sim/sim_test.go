package sim

import (
	"errors"
	"testing"
	"time"

	amluart "github.com/allbin/go-amluart"
)

const enabled = amluart.ControlTxEn | amluart.ControlRxEn

func TestDeviceStatus(t *testing.T) {
	d := NewDevice(WithDepth(4))

	s := d.Read32(amluart.RegStatus)
	if s&amluart.StatusRxEmpty == 0 {
		t.Error("Expected RX empty after reset")
	}
	if s&amluart.StatusTxEmpty == 0 {
		t.Error("Expected TX empty after reset")
	}

	// receiver disabled, nothing arrives
	if n := d.Inject([]byte("ab")); n != 0 {
		t.Errorf("Expected 0 bytes received while disabled, got %d", n)
	}

	d.Write32(amluart.RegControl, amluart.ControlRxEn)
	if n := d.Inject([]byte("abcdef")); n != 4 {
		t.Errorf("Expected 4 bytes received, got %d", n)
	}
	s = d.Read32(amluart.RegStatus)
	if s&amluart.StatusRxFull == 0 {
		t.Error("Expected RX full")
	}
	if s&amluart.StatusRxOverflow == 0 {
		t.Error("Expected RX overflow")
	}
	if got := s & amluart.StatusRxCountMask; got != 4 {
		t.Errorf("Expected RX count 4, got %d", got)
	}

	if b := d.Read32(amluart.RegRFIFO); b != 'a' {
		t.Errorf("Expected 'a', got %q", rune(b))
	}
}

func TestDeviceTxFIFO(t *testing.T) {
	d := NewDevice(WithDepth(2))

	for _, b := range []byte("xyz") {
		d.Write32(amluart.RegWFIFO, uint32(b))
	}
	s := d.Read32(amluart.RegStatus)
	if s&amluart.StatusTxFull == 0 {
		t.Error("Expected TX full")
	}
	if s&amluart.StatusTxOverflow == 0 {
		t.Error("Expected TX overflow")
	}

	// nothing leaves while TX is disabled
	d.Transmit()
	if got := d.Transmitted(); len(got) != 0 {
		t.Errorf("Expected nothing transmitted, got %q", got)
	}

	d.Write32(amluart.RegControl, amluart.ControlTxEn)
	d.Transmit()
	if got := string(d.Transmitted()); got != "xy" {
		t.Errorf("Expected %q transmitted, got %q", "xy", got)
	}
}

func TestDeviceResetBits(t *testing.T) {
	d := NewDevice()
	d.Write32(amluart.RegControl, amluart.ControlRxEn)
	d.Inject([]byte("abc"))
	d.Write32(amluart.RegWFIFO, 'z')

	d.Write32(amluart.RegControl, amluart.ControlRxEn|amluart.ControlRstRx|amluart.ControlRstTx)
	s := d.Read32(amluart.RegStatus)
	if s&amluart.StatusRxEmpty == 0 || s&amluart.StatusTxEmpty == 0 {
		t.Errorf("Expected both FIFOs empty after reset, status %08x", s)
	}
}

func TestDeviceLoopback(t *testing.T) {
	d := NewDevice(WithLoopback())
	irq := NewInterrupt()
	d.attach(irq)

	d.Write32(amluart.RegControl, enabled|amluart.ControlRxIntEn)
	d.Write32(amluart.RegWFIFO, 'q')

	if got := d.Read32(amluart.RegRFIFO); got != 'q' {
		t.Errorf("Expected looped back 'q', got %q", rune(got))
	}
	if err := irq.Wait(); err != nil {
		t.Errorf("Expected pending interrupt, got %v", err)
	}
}

func TestDeviceAccessCounting(t *testing.T) {
	d := NewDevice()
	d.Read32(amluart.RegStatus)
	d.Write32(amluart.RegMisc, 1)
	_ = d.Control()
	_ = d.Misc()

	if got := d.Accesses(); got != 2 {
		t.Errorf("Expected 2 accesses, got %d", got)
	}
}

func TestDeviceInvalidOffsetPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic on invalid offset")
		}
	}()
	NewDevice().Read32(amluart.RegisterWindowSize)
}

func TestInterruptCancel(t *testing.T) {
	irq := NewInterrupt()

	done := make(chan error, 1)
	go func() { done <- irq.Wait() }()

	time.Sleep(10 * time.Millisecond)
	if err := irq.Cancel(); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, amluart.ErrInterruptCanceled) {
			t.Errorf("Expected ErrInterruptCanceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Cancel")
	}

	// cancellation is sticky, even over a pending fire
	irq.Fire()
	if err := irq.Wait(); !errors.Is(err, amluart.ErrInterruptCanceled) {
		t.Errorf("Expected ErrInterruptCanceled, got %v", err)
	}
}

func TestInterruptCoalescing(t *testing.T) {
	irq := NewInterrupt()
	irq.Fire()
	irq.Fire()
	irq.Fire()

	if err := irq.Wait(); err != nil {
		t.Fatalf("Expected fire, got %v", err)
	}

	irq.Fail(errors.New("bus error"))
	if err := irq.Wait(); err == nil || err.Error() != "bus error" {
		t.Errorf("Expected injected failure, got %v", err)
	}
}

func TestInterruptClose(t *testing.T) {
	irq := NewInterrupt()
	if err := irq.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := irq.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed on second close, got %v", err)
	}
	if err := irq.Wait(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from Wait, got %v", err)
	}
	if err := irq.Cancel(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from Cancel, got %v", err)
	}
}

func TestBus(t *testing.T) {
	b := NewBus(2)

	info, err := b.DeviceInfo()
	if err != nil {
		t.Fatalf("DeviceInfo failed: %v", err)
	}
	if info.MMIOCount != 2 || info.IRQCount != 2 {
		t.Errorf("Expected 2/2 resources, got %+v", info)
	}

	if _, err := b.MapMMIO(2); err == nil {
		t.Error("Expected error mapping mmio 2")
	}

	irq, err := b.MapInterrupt(1)
	if err != nil {
		t.Fatalf("MapInterrupt failed: %v", err)
	}
	if b.Device(1).Interrupt() == nil {
		t.Error("Expected interrupt attached to device 1")
	}
	if got := b.OpenInterrupts(); got != 1 {
		t.Errorf("Expected 1 open interrupt, got %d", got)
	}

	irq.Close()
	if got := b.OpenInterrupts(); got != 0 {
		t.Errorf("Expected 0 open interrupts, got %d", got)
	}
	if b.Device(1).Interrupt() != nil {
		t.Error("Expected interrupt detached after close")
	}

	mmioErr := errors.New("no window")
	b.FailMMIO(mmioErr)
	if _, err := b.MapMMIO(0); !errors.Is(err, mmioErr) {
		t.Errorf("Expected injected mmio error, got %v", err)
	}
	b.FailMMIO(nil)
	if _, err := b.MapMMIO(0); err != nil {
		t.Errorf("MapMMIO after clearing fault: %v", err)
	}

	want := errors.New("no irq")
	b.FailInterrupts(want)
	if _, err := b.MapInterrupt(0); !errors.Is(err, want) {
		t.Errorf("Expected injected error, got %v", err)
	}
}

func TestDeviceAutoDrain(t *testing.T) {
	d := NewDevice(WithDepth(2), WithAutoDrain())

	// TX disabled, bytes wait in the FIFO
	d.Write32(amluart.RegWFIFO, 'a')
	if got := string(d.Pending()); got != "a" {
		t.Errorf("Pending = %q, want a", got)
	}

	d.Write32(amluart.RegControl, amluart.ControlTxEn)
	if len(d.Pending()) != 0 {
		t.Errorf("Expected TX FIFO drained on enable, got %q", d.Pending())
	}
	for _, b := range []byte("bcd") {
		d.Write32(amluart.RegWFIFO, uint32(b))
	}
	if s := d.Read32(amluart.RegStatus); s&amluart.StatusTxOverflow != 0 {
		t.Error("Unexpected TX overflow with auto drain")
	}
	if got := string(d.Transmitted()); got != "abcd" {
		t.Errorf("Transmitted = %q, want abcd", got)
	}
}
