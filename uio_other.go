//go:build !linux

package amluart

import (
	"errors"
	"runtime"
)

var errUIOUnsupported = errors.New("uio is not supported on " + runtime.GOOS)

// UIOPlatform is only available on Linux.
type UIOPlatform struct{}

var _ Platform = (*UIOPlatform)(nil)

func OpenUIO(names ...string) (*UIOPlatform, error) {
	return nil, errUIOUnsupported
}

func (p *UIOPlatform) Devices() []*UIODevice { return nil }

func (p *UIOPlatform) DeviceInfo() (DeviceInfo, error) {
	return DeviceInfo{}, errUIOUnsupported
}

func (p *UIOPlatform) MapMMIO(index int) (Registers, error) {
	return nil, errUIOUnsupported
}

func (p *UIOPlatform) MapInterrupt(index int) (Interrupt, error) {
	return nil, errUIOUnsupported
}
