package amluart

// DeviceInfo describes the resources a platform exposes for one controller.
type DeviceInfo struct {
	MMIOCount int
	IRQCount  int
}

// Platform furnishes the per-port hardware resources. Index i of each
// resource belongs to port i.
type Platform interface {
	DeviceInfo() (DeviceInfo, error)
	// MapMMIO maps the register window of port index. If the returned
	// Registers also implement io.Closer it is closed at teardown.
	MapMMIO(index int) (Registers, error)
	// MapInterrupt returns a fresh interrupt object for port index. It is
	// called on every Enable and closed on Disable.
	MapInterrupt(index int) (Interrupt, error)
}

// Interrupt is a blockable interrupt object with a software cancel slot.
type Interrupt interface {
	// Wait blocks until the hardware interrupt fires (nil) or Cancel is
	// called (ErrInterruptCanceled). Any other error means the object is
	// unusable.
	Wait() error
	// Cancel wakes a blocked or future Wait with ErrInterruptCanceled.
	Cancel() error
	Close() error
}

// spawnGoroutine is the default task spawner.
func spawnGoroutine(f func()) error {
	go f()
	return nil
}
