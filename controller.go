package amluart

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
)

type options struct {
	logger        *slog.Logger
	spawn         func(func()) error
	writeHook     func(port uint32, data []byte)
	defaultConfig Config
}

// Option is a functional option for configuring a Controller
type Option func(*options)

// WithLogger sets the logger. If unset, slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSpawner replaces the primitive used to start service loops.
func WithSpawner(spawn func(func()) error) Option {
	return func(o *options) {
		if spawn != nil {
			o.spawn = spawn
		}
	}
}

// WithWriteHook registers an observer for every chunk accepted by Write.
// The hook runs on the writer's goroutine and must not retain data.
func WithWriteHook(hook func(port uint32, data []byte)) Option {
	return func(o *options) {
		o.writeHook = hook
	}
}

// WithDefaultConfig sets the line configuration applied to every port at bind.
func WithDefaultConfig(cfg Config) Option {
	return func(o *options) {
		o.defaultConfig = cfg
	}
}

// Controller owns every port of one UART controller. The port count is fixed
// for the controller's lifetime.
type Controller struct {
	platform Platform
	ports    []*Port
	log      *slog.Logger
	closed   atomic.Bool
}

// New binds a controller to platform: one register window and one interrupt
// per port. Each port's CONTROL register is cleared and the default line
// configuration applied. On failure everything mapped so far is released.
func New(platform Platform, opts ...Option) (*Controller, error) {
	o := &options{
		logger:        slog.Default(),
		spawn:         spawnGoroutine,
		defaultConfig: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.WithGroup("amluart")

	info, err := platform.DeviceInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get device info: %w", err)
	}
	if info.MMIOCount != info.IRQCount {
		o.logger.Error("resource count mismatch", "mmio", info.MMIOCount, "irq", info.IRQCount)
		return nil, fmt.Errorf("%w: mmio %d, irq %d", ErrResourceMismatch, info.MMIOCount, info.IRQCount)
	}

	c := &Controller{
		platform: platform,
		ports:    make([]*Port, 0, info.MMIOCount),
		log:      o.logger,
	}

	for i := 0; i < info.MMIOCount; i++ {
		regs, err := platform.MapMMIO(i)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to map mmio %d: %w", i, err)
		}
		p := newPort(uint32(i), regs, platform, o)
		c.ports = append(c.ports, p)

		regs.Write32(RegControl, 0)
		if err := p.Configure(o.defaultConfig); err != nil {
			c.Close()
			return nil, err
		}
	}

	c.log.Info("controller bound", "ports", len(c.ports))
	return c, nil
}

// PortCount returns the number of ports.
func (c *Controller) PortCount() uint32 {
	return uint32(len(c.ports))
}

// Port returns the port with index num.
func (c *Controller) Port(num uint32) (*Port, error) {
	if c.closed.Load() {
		return nil, ErrControllerClosed
	}
	if num >= uint32(len(c.ports)) {
		return nil, ErrInvalidPortIndex
	}
	return c.ports[num], nil
}

// Configure applies a baud rate and packed format word to a port.
func (c *Controller) Configure(port uint32, baudRate uint32, flags Flags) error {
	return c.ConfigurePort(port, ParseFlags(baudRate, flags))
}

// ConfigurePort applies cfg to a port.
func (c *Controller) ConfigurePort(port uint32, cfg Config) error {
	p, err := c.Port(port)
	if err != nil {
		return err
	}
	return p.Configure(cfg)
}

// Enable starts or stops a port's service loop.
func (c *Controller) Enable(port uint32, enable bool) error {
	p, err := c.Port(port)
	if err != nil {
		return err
	}
	return p.SetEnabled(enable)
}

// Read reads available bytes from a port without waiting.
func (c *Controller) Read(port uint32, buf []byte) (int, error) {
	p, err := c.Port(port)
	if err != nil {
		return 0, err
	}
	return p.Read(buf)
}

// Write writes as many bytes as the TX FIFO accepts without waiting.
func (c *Controller) Write(port uint32, data []byte) (int, error) {
	p, err := c.Port(port)
	if err != nil {
		return 0, err
	}
	return p.Write(data)
}

// SetNotifyCallback binds cb to a port's readiness changes and delivers the
// current state once.
func (c *Controller) SetNotifyCallback(port uint32, cb NotifyFunc) error {
	p, err := c.Port(port)
	if err != nil {
		return err
	}
	p.SetNotify(cb)
	return nil
}

// DumpRegisters snapshots a port's control registers.
func (c *Controller) DumpRegisters(port uint32) (RegisterDump, error) {
	p, err := c.Port(port)
	if err != nil {
		return RegisterDump{}, err
	}
	return p.DumpRegisters()
}

// Close disables every enabled port, waiting for each service loop to
// finish, and then releases the register mappings.
func (c *Controller) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrControllerClosed
	}

	var errs []error
	for _, p := range c.ports {
		if err := p.release(); err != nil {
			errs = append(errs, fmt.Errorf("port %d: %w", p.num, err))
		}
	}
	for _, p := range c.ports {
		if cl, ok := p.regs.(io.Closer); ok {
			if err := cl.Close(); err != nil {
				errs = append(errs, fmt.Errorf("port %d: %w", p.num, err))
			}
		}
	}
	return errors.Join(errs...)
}
