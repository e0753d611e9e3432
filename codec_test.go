package amluart

import (
	"errors"
	"testing"
)

func TestBaudDivisor(t *testing.T) {
	tests := []struct {
		name    string
		rate    int
		want    uint32
		wantErr bool
	}{
		{"115200", 115200, 68, false},
		{"9600", 9600, 832, false},
		{"1500000", 1500000, 4, false},
		{"8000000 (divisor 0)", 8000000, 0, false},
		{"1 (largest divisor)", 1, 7999999, false},
		{"above xtal/3", 8000001, 0, true},
		{"0", 0, 0, true},
		{"negative", -9600, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := baudDivisor(tt.rate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("baudDivisor(%d) error = %v, wantErr %v", tt.rate, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrBaudRateOutOfRange) {
					t.Errorf("Expected ErrBaudRateOutOfRange, got %v", err)
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("baudDivisor(%d) = %d, want %d", tt.rate, got, tt.want)
			}
		})
	}
}

func TestResolveLine(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		control uint32
	}{
		{"8N1 no flow", DefaultConfig(), ControlXmitLen8 | ControlStopLen1 | ControlParNone | ControlTwoWire},
		{"7E1", Config{BaudRate: 9600, DataBits: 7, StopBits: 1, Parity: ParityEven}, ControlXmitLen7 | ControlParEven | ControlTwoWire},
		{"6O2", Config{BaudRate: 9600, DataBits: 6, StopBits: 2, Parity: ParityOdd}, ControlXmitLen6 | ControlStopLen2 | ControlParOdd | ControlTwoWire},
		{"5N1 rtscts", Config{BaudRate: 9600, DataBits: 5, StopBits: 1, FlowControl: FlowControlCTSRTS}, ControlXmitLen5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lb, err := resolveLine(tt.cfg)
			if err != nil {
				t.Fatalf("resolveLine failed: %v", err)
			}
			if lb.control != tt.control {
				t.Errorf("control = %08x, want %08x", lb.control, tt.control)
			}
			if lb.reg5&(Reg5UseXtalClk|Reg5UseNewBaudRate) != Reg5UseXtalClk|Reg5UseNewBaudRate {
				t.Errorf("reg5 %08x missing clock select bits", lb.reg5)
			}
		})
	}
}

func TestResolveLineReg5(t *testing.T) {
	lb, err := resolveLine(DefaultConfig())
	if err != nil {
		t.Fatalf("resolveLine failed: %v", err)
	}
	if want := uint32(0x01800044); lb.reg5 != want {
		t.Errorf("reg5 = %08x, want %08x", lb.reg5, want)
	}
}

func TestResolveLineErrors(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		cause error
		field string
	}{
		{"data bits 4", Config{BaudRate: 9600, DataBits: 4, StopBits: 1}, ErrInvalidDataBits, "data bits"},
		{"data bits 9", Config{BaudRate: 9600, DataBits: 9, StopBits: 1}, ErrInvalidDataBits, "data bits"},
		{"stop bits 3", Config{BaudRate: 9600, DataBits: 8, StopBits: 3}, ErrInvalidStopBits, "stop bits"},
		{"parity 3", Config{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: Parity(3)}, ErrInvalidParity, "parity"},
		{"flow 7", Config{BaudRate: 9600, DataBits: 8, StopBits: 1, FlowControl: FlowControl(7)}, ErrInvalidFlowControl, "flow control"},
		{"baud 0", Config{BaudRate: 0, DataBits: 8, StopBits: 1}, ErrBaudRateOutOfRange, "baud rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveLine(tt.cfg)
			if !errors.Is(err, tt.cause) {
				t.Errorf("Expected %v, got %v", tt.cause, err)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Expected *ConfigError, got %T", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestLineBitsApplyPreservesOtherBits(t *testing.T) {
	lb, err := resolveLine(Config{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: ParityOdd, FlowControl: FlowControlCTSRTS})
	if err != nil {
		t.Fatalf("resolveLine failed: %v", err)
	}

	priors := []uint32{
		0,
		0xffffffff,
		ControlTxEn | ControlRxEn | ControlRxIntEn | ControlTxIntEn,
		ControlTwoWire | ControlParEven | ControlXmitLen5,
		0xdeadbeef,
	}
	for _, prior := range priors {
		got := lb.apply(prior)
		if got&^lineConfigMask != prior&^lineConfigMask {
			t.Errorf("apply(%08x) = %08x changed bits outside the line fields", prior, got)
		}
		if got&lineConfigMask != lb.control {
			t.Errorf("apply(%08x) line fields = %08x, want %08x", prior, got&lineConfigMask, lb.control)
		}
	}
}
