package sim

import (
	"errors"
	"sync"
	"sync/atomic"

	amluart "github.com/allbin/go-amluart"
)

// ErrClosed is returned by Wait and Cancel once the interrupt is closed.
var ErrClosed = errors.New("sim: interrupt closed")

// Interrupt is a simulated interrupt object. Fires are coalesced: any number
// of fires between two waits wake a single Wait.
type Interrupt struct {
	pending  chan struct{}
	canceled chan struct{}
	closed   chan struct{}
	failures chan error

	cancelOnce sync.Once
	closeOnce  sync.Once
	waiters    atomic.Int32
	onClose    func()
}

// Ensure Interrupt implements amluart.Interrupt at compile time
var _ amluart.Interrupt = (*Interrupt)(nil)

// NewInterrupt returns an interrupt with nothing pending.
func NewInterrupt() *Interrupt {
	return &Interrupt{
		pending:  make(chan struct{}, 1),
		canceled: make(chan struct{}),
		closed:   make(chan struct{}),
		failures: make(chan error, 1),
	}
}

// Wait blocks until the interrupt fires, is canceled, is closed or a failure
// is injected.
func (i *Interrupt) Wait() error {
	i.waiters.Add(1)
	defer i.waiters.Add(-1)

	// cancellation wins over a pending fire
	select {
	case <-i.canceled:
		return amluart.ErrInterruptCanceled
	case <-i.closed:
		return ErrClosed
	default:
	}

	select {
	case <-i.pending:
		return nil
	case <-i.canceled:
		return amluart.ErrInterruptCanceled
	case <-i.closed:
		return ErrClosed
	case err := <-i.failures:
		return err
	}
}

// Cancel makes the current and every later Wait return
// amluart.ErrInterruptCanceled.
func (i *Interrupt) Cancel() error {
	if i.Closed() {
		return ErrClosed
	}
	i.cancelOnce.Do(func() { close(i.canceled) })
	return nil
}

// Close releases the interrupt. Closing twice is an error.
func (i *Interrupt) Close() error {
	err := ErrClosed
	i.closeOnce.Do(func() {
		close(i.closed)
		if i.onClose != nil {
			i.onClose()
		}
		err = nil
	})
	return err
}

// Fire raises the interrupt.
func (i *Interrupt) Fire() {
	select {
	case i.pending <- struct{}{}:
	default:
	}
}

// Fail makes the next Wait return err.
func (i *Interrupt) Fail(err error) {
	select {
	case i.failures <- err:
	default:
	}
}

// Closed reports whether Close was called.
func (i *Interrupt) Closed() bool {
	select {
	case <-i.closed:
		return true
	default:
		return false
	}
}

// Waiters returns the number of goroutines blocked in Wait.
func (i *Interrupt) Waiters() int {
	return int(i.waiters.Load())
}
