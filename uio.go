package amluart

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// sysfs and devfs roots, replaced in tests
var (
	sysClassUIO = "/sys/class/uio"
	devDir      = "/dev"
)

var (
	uioNamePattern = regexp.MustCompile(`^uio\d+$`)

	// Driver names under which UART register windows are exported to UIO
	uartDriverPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^aml[-_]uart`),
		regexp.MustCompile(`(?i)^meson[-_]uart`),
		regexp.MustCompile(`(?i)uart`),
		regexp.MustCompile(`(?i)serial`),
	}
)

// UIODevice describes one UIO device and its first memory map
type UIODevice struct {
	Name      string // uio0
	Path      string // /dev/uio0
	Driver    string // name attribute, as given in the device tree
	MapAddr   uint64
	MapSize   uint64
	MapOffset uint64 // offset of the registers inside the first page
	NodeReady bool   // device node exists and is a character device
}

// ListUIODevices returns the names of all UIO devices, sorted.
func ListUIODevices() ([]string, error) {
	entries, err := os.ReadDir(sysClassUIO)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if uioNamePattern.MatchString(entry.Name()) {
			names = append(names, entry.Name())
		}
	}

	// uio10 sorts after uio9
	sort.Slice(names, func(i, j int) bool {
		a, _ := strconv.Atoi(strings.TrimPrefix(names[i], "uio"))
		b, _ := strconv.Atoi(strings.TrimPrefix(names[j], "uio"))
		return a < b
	})
	return names, nil
}

// ListUARTDevices returns the UIO devices whose driver name looks like a UART.
func ListUARTDevices() ([]*UIODevice, error) {
	names, err := ListUIODevices()
	if err != nil {
		return nil, err
	}

	var devices []*UIODevice
	for _, name := range names {
		info, err := GetUIODeviceInfo(name)
		if err != nil {
			continue
		}
		if IsUARTDriver(info.Driver) {
			devices = append(devices, info)
		}
	}
	return devices, nil
}

// IsUARTDriver reports whether a UIO driver name denotes a UART window.
func IsUARTDriver(driver string) bool {
	for _, pattern := range uartDriverPatterns {
		if pattern.MatchString(driver) {
			return true
		}
	}
	return false
}

// GetUIODeviceInfo reads the sysfs attributes of a UIO device. name may be a
// bare name (uio0) or a device path (/dev/uio0).
func GetUIODeviceInfo(name string) (*UIODevice, error) {
	name = filepath.Base(name)
	if !uioNamePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}

	sysPath := filepath.Join(sysClassUIO, name)
	if _, err := os.Stat(sysPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}

	info := &UIODevice{
		Name:   name,
		Path:   filepath.Join(devDir, name),
		Driver: readSysfsFile(filepath.Join(sysPath, "name")),
	}
	info.NodeReady = isCharacterDevice(info.Path)

	mapPath := filepath.Join(sysPath, "maps", "map0")
	var err error
	if info.MapAddr, err = parseSysfsHex(readSysfsFile(filepath.Join(mapPath, "addr"))); err != nil {
		return nil, fmt.Errorf("%s: map0 addr: %w", name, err)
	}
	if info.MapSize, err = parseSysfsHex(readSysfsFile(filepath.Join(mapPath, "size"))); err != nil {
		return nil, fmt.Errorf("%s: map0 size: %w", name, err)
	}
	// offset is absent on older kernels
	if s := readSysfsFile(filepath.Join(mapPath, "offset")); s != "" {
		if info.MapOffset, err = parseSysfsHex(s); err != nil {
			return nil, fmt.Errorf("%s: map0 offset: %w", name, err)
		}
	}

	return info, nil
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// readSysfsFile returns the trimmed content of a sysfs attribute, or "" if it
// cannot be read.
func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// parseSysfsHex parses a 0x-prefixed sysfs number.
func parseSysfsHex(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 64)
}
