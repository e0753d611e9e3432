package amluart

import (
	"errors"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BaudRate != 115200 {
		t.Errorf("Expected BaudRate 115200, got %d", config.BaudRate)
	}
	if config.DataBits != 8 {
		t.Errorf("Expected DataBits 8, got %d", config.DataBits)
	}
	if config.StopBits != 1 {
		t.Errorf("Expected StopBits 1, got %d", config.StopBits)
	}
	if config.Parity != ParityNone {
		t.Errorf("Expected Parity None, got %v", config.Parity)
	}
	if config.FlowControl != FlowControlNone {
		t.Errorf("Expected FlowControl None, got %v", config.FlowControl)
	}
}

func TestFunctionalOptions(t *testing.T) {
	config, err := NewConfig(
		WithBaudRate(9600),
		WithDataBits(7),
		WithStopBits(2),
		WithParity(ParityEven),
		WithFlowControl(FlowControlCTSRTS),
	)
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}

	want := Config{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: ParityEven, FlowControl: FlowControlCTSRTS}
	if config != want {
		t.Errorf("Expected %v, got %v", want, config)
	}
	if got := config.String(); got != "9600 7E2 flow=rtscts" {
		t.Errorf("String() = %q", got)
	}
}

func TestInvalidOptions(t *testing.T) {
	tests := []struct {
		name  string
		opt   ConfigOption
		cause error
	}{
		{"baud 0", WithBaudRate(0), ErrBaudRateOutOfRange},
		{"baud too high", WithBaudRate(9000000), ErrBaudRateOutOfRange},
		{"data bits 4", WithDataBits(4), ErrInvalidDataBits},
		{"data bits 9", WithDataBits(9), ErrInvalidDataBits},
		{"stop bits 0", WithStopBits(0), ErrInvalidStopBits},
		{"parity", WithParity(Parity(5)), ErrInvalidParity},
		{"flow control", WithFlowControl(FlowControl(2)), ErrInvalidFlowControl},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := tt.opt(&config)
			if !errors.Is(err, tt.cause) {
				t.Errorf("Expected %v, got %v", tt.cause, err)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
			if config != DefaultConfig() {
				t.Errorf("Rejected option modified config: %v", config)
			}
		})
	}

	if _, err := NewConfig(WithDataBits(8), WithStopBits(5)); !errors.Is(err, ErrInvalidStopBits) {
		t.Errorf("NewConfig: expected ErrInvalidStopBits, got %v", err)
	}
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name  string
		baud  uint32
		flags Flags
		want  Config
	}{
		{"default", 115200, DefaultFlags, DefaultConfig()},
		{"7E2", 9600, DataBits7 | StopBits2 | ParityEvenFlag, Config{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: ParityEven}},
		{"5O1 rtscts", 2400, DataBits5 | ParityOddFlag | FlowCtrlCTSRTS, Config{BaudRate: 2400, DataBits: 5, StopBits: 1, Parity: ParityOdd, FlowControl: FlowControlCTSRTS}},
		{"reserved parity", 9600, DataBits8 | ParityMask, Config{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: Parity(3)}},
		{"ignored high bits", 9600, DataBits6 | 0xffc0, Config{BaudRate: 9600, DataBits: 6, StopBits: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFlags(tt.baud, tt.flags)
			if got != tt.want {
				t.Errorf("ParseFlags(%d, %#x) = %+v, want %+v", tt.baud, uint32(tt.flags), got, tt.want)
			}
		})
	}
}

func TestConfigFlags(t *testing.T) {
	for _, flags := range []Flags{
		DefaultFlags,
		DataBits5 | StopBits2 | ParityOddFlag,
		DataBits7 | ParityEvenFlag | FlowCtrlCTSRTS,
	} {
		got, err := ParseFlags(9600, flags).Flags()
		if err != nil {
			t.Errorf("Flags() for %#x failed: %v", uint32(flags), err)
			continue
		}
		if got != flags {
			t.Errorf("Flags() = %#x, want %#x", uint32(got), uint32(flags))
		}
	}

	if _, err := ParseFlags(9600, DataBits8|ParityMask).Flags(); !errors.Is(err, ErrInvalidParity) {
		t.Errorf("Expected ErrInvalidParity, got %v", err)
	}
}
