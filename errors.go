package amluart

import (
	"errors"
	"fmt"
)

// Predefined error types for robust error handling
var (
	ErrInvalidPortIndex = errors.New("invalid port index")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrControllerClosed = errors.New("uart controller is closed")
	ErrResourceMismatch = errors.New("mmio count does not match irq count")
	ErrDeviceNotFound   = errors.New("uio device not found")

	// Line configuration errors, always wrapped in a *ConfigError
	ErrInvalidDataBits    = errors.New("invalid data bits")
	ErrInvalidStopBits    = errors.New("invalid stop bits")
	ErrInvalidParity      = errors.New("invalid parity")
	ErrInvalidFlowControl = errors.New("invalid flow control")
	ErrBaudRateOutOfRange = errors.New("baud rate out of range")

	// ErrWouldBlock is returned by Read and Write when the FIFO has no data
	// or no space right now. It is a transient condition, not a failure.
	ErrWouldBlock = errors.New("operation would block")

	// Port lifecycle errors
	ErrResourceAcquisitionFailed = errors.New("interrupt acquisition failed")
	ErrTaskCreationFailed        = errors.New("service task creation failed")
	ErrInterruptWaitFailed       = errors.New("interrupt wait failed")
	ErrInterruptCanceled         = errors.New("interrupt wait canceled")
)

// ConfigError describes a rejected line configuration field.
// It matches both its specific cause and ErrInvalidConfig with errors.Is.
type ConfigError struct {
	Field string
	Value int
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s=%d", e.Err, e.Field, e.Value)
}

func (e *ConfigError) Unwrap() []error {
	return []error{e.Err, ErrInvalidConfig}
}

func configError(field string, value int, err error) error {
	return &ConfigError{Field: field, Value: value, Err: err}
}
