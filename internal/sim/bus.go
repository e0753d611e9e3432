package sim

import (
	"fmt"
	"sync"

	amluart "github.com/allbin/go-amluart"
)

// Bus is a simulated platform with one Device and one Interrupt per port.
type Bus struct {
	mu       sync.Mutex
	devices  []*Device
	info     amluart.DeviceInfo
	mmioErr  error
	irqErr   error
	irqOpen  int
	irqTotal int
}

// Ensure Bus implements Platform at compile time
var _ amluart.Platform = (*Bus)(nil)

// NewBus returns a platform with ports devices built with opts.
func NewBus(ports int, opts ...Option) *Bus {
	b := &Bus{info: amluart.DeviceInfo{MMIOCount: ports, IRQCount: ports}}
	for n := 0; n < ports; n++ {
		b.devices = append(b.devices, NewDevice(opts...))
	}
	return b
}

// Device returns the simulated device of a port.
func (b *Bus) Device(index int) *Device {
	return b.devices[index]
}

// SetDeviceInfo overrides the resource counts reported to the driver.
func (b *Bus) SetDeviceInfo(info amluart.DeviceInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.info = info
}

// FailMMIO makes every later MapMMIO return err. A nil err clears it.
func (b *Bus) FailMMIO(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mmioErr = err
}

// FailInterrupts makes every later MapInterrupt return err. A nil err
// clears it.
func (b *Bus) FailInterrupts(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.irqErr = err
}

// OpenInterrupts returns the number of interrupts mapped and not yet closed.
func (b *Bus) OpenInterrupts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.irqOpen
}

// MappedInterrupts returns the number of successful MapInterrupt calls.
func (b *Bus) MappedInterrupts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.irqTotal
}

// DeviceInfo implements amluart.Platform.
func (b *Bus) DeviceInfo() (amluart.DeviceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.info, nil
}

// MapMMIO implements amluart.Platform.
func (b *Bus) MapMMIO(index int) (amluart.Registers, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mmioErr != nil {
		return nil, b.mmioErr
	}
	if index < 0 || index >= len(b.devices) {
		return nil, fmt.Errorf("sim: no mmio resource %d", index)
	}
	return b.devices[index], nil
}

// MapInterrupt implements amluart.Platform.
func (b *Bus) MapInterrupt(index int) (amluart.Interrupt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.irqErr != nil {
		return nil, b.irqErr
	}
	if index < 0 || index >= len(b.devices) {
		return nil, fmt.Errorf("sim: no irq resource %d", index)
	}

	dev := b.devices[index]
	irq := NewInterrupt()
	irq.onClose = func() {
		dev.detach(irq)
		b.mu.Lock()
		b.irqOpen--
		b.mu.Unlock()
	}
	dev.attach(irq)
	b.irqOpen++
	b.irqTotal++
	return irq, nil
}
