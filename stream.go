package amluart

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Stream adapts an enabled port to blocking, context-aware reads and writes
// driven by readiness notifications. A Stream owns the port's notification
// binding; observer, if non-nil, still sees every notification.
type Stream struct {
	port *Port

	mu       sync.Mutex
	changed  chan struct{} // closed and replaced on every notification
	observer NotifyFunc
	closed   bool
}

// Ensure Stream implements io.ReadWriteCloser at compile time
var _ io.ReadWriteCloser = (*Stream)(nil)

// Stream binds a Stream to a port.
func (c *Controller) Stream(port uint32, observer NotifyFunc) (*Stream, error) {
	p, err := c.Port(port)
	if err != nil {
		return nil, err
	}
	return NewStream(p, observer), nil
}

// NewStream binds a Stream to p.
func NewStream(p *Port, observer NotifyFunc) *Stream {
	s := &Stream{
		port:     p,
		changed:  make(chan struct{}),
		observer: observer,
	}
	p.SetNotify(s.notify)
	return s
}

func (s *Stream) notify(port uint32, state State) {
	s.mu.Lock()
	close(s.changed)
	s.changed = make(chan struct{})
	obs := s.observer
	s.mu.Unlock()

	if obs != nil {
		obs(port, state)
	}
}

// wait blocks until the port reports any bit of want.
func (s *Stream) wait(ctx context.Context, want State) error {
	for {
		s.mu.Lock()
		ch := s.changed
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return ErrControllerClosed
		}

		if s.port.Poll()&want != 0 {
			return nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ReadContext blocks until at least one byte is read or ctx is done.
func (s *Stream) ReadContext(ctx context.Context, buf []byte) (int, error) {
	for {
		n, err := s.port.Read(buf)
		if !errors.Is(err, ErrWouldBlock) {
			return n, err
		}
		if err := s.wait(ctx, StateReadable); err != nil {
			return 0, err
		}
	}
}

// WriteContext blocks until all of data is in the TX FIFO or ctx is done.
// On cancellation it returns the number of bytes already queued.
func (s *Stream) WriteContext(ctx context.Context, data []byte) (int, error) {
	total := 0
	for total < len(data) {
		n, err := s.port.Write(data[total:])
		total += n
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrWouldBlock) {
			return total, err
		}
		if err := s.wait(ctx, StateWritable); err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *Stream) Read(buf []byte) (int, error) {
	return s.ReadContext(context.Background(), buf)
}

func (s *Stream) Write(data []byte) (int, error) {
	return s.WriteContext(context.Background(), data)
}

// Close releases the port's notification binding and wakes blocked calls.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()

	if !s.port.released.Load() {
		s.port.SetNotify(nil)
	}
	return nil
}
