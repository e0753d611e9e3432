//go:build linux

package amluart

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// UIOPlatform binds one uio_pdrv_genirq device per port. Map 0 of each
// device is the port's register window and its interrupt is the port's IRQ.
type UIOPlatform struct {
	devices []*UIODevice
}

// Ensure UIOPlatform implements Platform at compile time
var _ Platform = (*UIOPlatform)(nil)

// OpenUIO resolves the given UIO devices, in port order.
func OpenUIO(names ...string) (*UIOPlatform, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no uio devices given", ErrDeviceNotFound)
	}

	p := &UIOPlatform{}
	for _, name := range names {
		info, err := GetUIODeviceInfo(name)
		if err != nil {
			return nil, err
		}
		if !info.NodeReady {
			return nil, fmt.Errorf("%w: %s is not a character device", ErrDeviceNotFound, info.Path)
		}
		if info.MapSize < RegisterWindowSize {
			return nil, fmt.Errorf("%s: map0 size %#x smaller than register window", info.Name, info.MapSize)
		}
		p.devices = append(p.devices, info)
	}
	return p, nil
}

// Devices returns the bound UIO devices in port order.
func (p *UIOPlatform) Devices() []*UIODevice {
	return p.devices
}

// DeviceInfo implements Platform.
func (p *UIOPlatform) DeviceInfo() (DeviceInfo, error) {
	return DeviceInfo{MMIOCount: len(p.devices), IRQCount: len(p.devices)}, nil
}

// MapMMIO implements Platform.
func (p *UIOPlatform) MapMMIO(index int) (Registers, error) {
	if index < 0 || index >= len(p.devices) {
		return nil, ErrInvalidPortIndex
	}
	dev := p.devices[index]

	fd, err := unix.Open(dev.Path, unix.O_RDWR|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %v", dev.Path, err)
	}

	page := unix.Getpagesize()
	length := int(dev.MapOffset + dev.MapSize)
	length = (length + page - 1) &^ (page - 1)

	// map N is selected by an mmap offset of N pages
	mem, err := unix.Mmap(fd, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to map %s: %v", dev.Path, err)
	}

	return &mmioRegion{fd: fd, mem: mem, base: int(dev.MapOffset)}, nil
}

// MapInterrupt implements Platform.
func (p *UIOPlatform) MapInterrupt(index int) (Interrupt, error) {
	if index < 0 || index >= len(p.devices) {
		return nil, ErrInvalidPortIndex
	}
	dev := p.devices[index]

	fd, err := unix.Open(dev.Path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %v", dev.Path, err)
	}
	efd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to create cancel eventfd: %v", err)
	}

	irq := &uioInterrupt{fd: fd, cancelFd: efd}
	if err := irq.setMask(false); err != nil {
		irq.Close()
		return nil, fmt.Errorf("failed to unmask %s: %v", dev.Path, err)
	}
	return irq, nil
}

// mmioRegion is a register window mapped from a UIO device.
type mmioRegion struct {
	fd   int
	mem  []byte
	base int
}

func (m *mmioRegion) word(offset uint32) *uint32 {
	return (*uint32)(unsafe.Pointer(&m.mem[m.base+int(offset)]))
}

func (m *mmioRegion) Read32(offset uint32) uint32 {
	return atomic.LoadUint32(m.word(offset))
}

func (m *mmioRegion) Write32(offset uint32, value uint32) {
	atomic.StoreUint32(m.word(offset), value)
}

func (m *mmioRegion) Close() error {
	err := unix.Munmap(m.mem)
	if cerr := unix.Close(m.fd); err == nil {
		err = cerr
	}
	return err
}

// uioInterrupt waits on the UIO fd and an eventfd that serves as the cancel
// slot, so a blocked Wait always wakes on Cancel.
type uioInterrupt struct {
	fd        int
	cancelFd  int
	closeOnce sync.Once
	closeErr  error
}

// setMask writes the UIO irq control word: 0 masks, 1 unmasks.
func (u *uioInterrupt) setMask(masked bool) error {
	var buf [4]byte
	if !masked {
		binary.NativeEndian.PutUint32(buf[:], 1)
	}
	_, err := unix.Write(u.fd, buf[:])
	return err
}

func (u *uioInterrupt) Wait() error {
	for {
		fds := []unix.PollFd{
			{Fd: int32(u.fd), Events: unix.POLLIN},
			{Fd: int32(u.cancelFd), Events: unix.POLLIN},
		}
		_, err := unix.Poll(fds, -1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}

		if fds[1].Revents&unix.POLLIN != 0 {
			return ErrInterruptCanceled
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return fmt.Errorf("uio poll revents %#x", fds[0].Revents)
		}
		if fds[0].Revents&unix.POLLIN == 0 {
			continue
		}

		// the event count itself is not needed, only the wake
		var count [4]byte
		if _, err := unix.Read(u.fd, count[:]); err != nil {
			if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
				continue
			}
			return fmt.Errorf("read: %w", err)
		}
		if err := u.setMask(false); err != nil {
			return fmt.Errorf("unmask: %w", err)
		}
		return nil
	}
}

func (u *uioInterrupt) Cancel() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(u.cancelFd, buf[:])
	return err
}

func (u *uioInterrupt) Close() error {
	u.closeOnce.Do(func() {
		u.setMask(true)
		u.closeErr = errors.Join(unix.Close(u.fd), unix.Close(u.cancelFd))
	})
	return u.closeErr
}
