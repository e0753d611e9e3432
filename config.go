package amluart

import "fmt"

// FlowControl represents the flow control mode
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlCTSRTS
)

func (fc FlowControl) String() string {
	switch fc {
	case FlowControlNone:
		return "none"
	case FlowControlCTSRTS:
		return "rtscts"
	default:
		return fmt.Sprintf("FlowControl(%d)", int(fc))
	}
}

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "N"
	case ParityEven:
		return "E"
	case ParityOdd:
		return "O"
	default:
		return fmt.Sprintf("Parity(%d)", int(p))
	}
}

// Config holds the line configuration for one UART port
type Config struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      Parity
	FlowControl FlowControl
}

// ConfigOption is a functional option for building a line configuration
type ConfigOption func(*Config) error

// DefaultConfig returns 115200 8N1 without flow control, the state every
// port is put in when the controller binds.
func DefaultConfig() Config {
	return Config{
		BaudRate:    115200,
		DataBits:    8,
		StopBits:    1,
		Parity:      ParityNone,
		FlowControl: FlowControlNone,
	}
}

// NewConfig applies opts on top of DefaultConfig.
func NewConfig(opts ...ConfigOption) (Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func (c Config) String() string {
	return fmt.Sprintf("%d %d%s%d flow=%s", c.BaudRate, c.DataBits, c.Parity, c.StopBits, c.FlowControl)
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) ConfigOption {
	return func(c *Config) error {
		if _, err := baudDivisor(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) ConfigOption {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return configError("data bits", bits, ErrInvalidDataBits)
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) ConfigOption {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return configError("stop bits", bits, ErrInvalidStopBits)
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) ConfigOption {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParityOdd {
			return configError("parity", int(parity), ErrInvalidParity)
		}
		c.Parity = parity
		return nil
	}
}

// WithFlowControl sets the flow control mode
func WithFlowControl(fc FlowControl) ConfigOption {
	return func(c *Config) error {
		if fc != FlowControlNone && fc != FlowControlCTSRTS {
			return configError("flow control", int(fc), ErrInvalidFlowControl)
		}
		c.FlowControl = fc
		return nil
	}
}

// Flags is the packed line format word of the serial driver protocol.
type Flags uint32

const (
	DataBits5    Flags = 0 << 0
	DataBits6    Flags = 1 << 0
	DataBits7    Flags = 2 << 0
	DataBits8    Flags = 3 << 0
	DataBitsMask Flags = 3 << 0

	StopBits1    Flags = 0 << 2
	StopBits2    Flags = 1 << 2
	StopBitsMask Flags = 1 << 2

	ParityNoneFlag Flags = 0 << 3
	ParityEvenFlag Flags = 1 << 3
	ParityOddFlag  Flags = 2 << 3
	ParityMask     Flags = 3 << 3

	FlowCtrlNone   Flags = 0 << 5
	FlowCtrlCTSRTS Flags = 1 << 5
	FlowCtrlMask   Flags = 1 << 5
)

// DefaultFlags is 8N1 without flow control.
const DefaultFlags = DataBits8 | StopBits1 | ParityNoneFlag | FlowCtrlNone

// ParseFlags decodes a format word and baud rate into a Config. Values that
// the format word can express but the hardware cannot are passed through and
// rejected by the codec, so Configure reports the precise field.
func ParseFlags(baudRate uint32, flags Flags) Config {
	cfg := Config{
		BaudRate: int(baudRate),
		DataBits: 5 + int(flags&DataBitsMask),
		StopBits: 1,
	}
	if flags&StopBitsMask == StopBits2 {
		cfg.StopBits = 2
	}
	switch flags & ParityMask {
	case ParityNoneFlag:
		cfg.Parity = ParityNone
	case ParityEvenFlag:
		cfg.Parity = ParityEven
	case ParityOddFlag:
		cfg.Parity = ParityOdd
	default:
		cfg.Parity = Parity(flags & ParityMask >> 3)
	}
	if flags&FlowCtrlMask == FlowCtrlCTSRTS {
		cfg.FlowControl = FlowControlCTSRTS
	}
	return cfg
}

// Flags encodes the line settings of c. Out-of-range fields yield an error
// instead of a truncated word.
func (c Config) Flags() (Flags, error) {
	if c.DataBits < 5 || c.DataBits > 8 {
		return 0, configError("data bits", c.DataBits, ErrInvalidDataBits)
	}
	f := Flags(c.DataBits - 5)

	switch c.StopBits {
	case 1:
		f |= StopBits1
	case 2:
		f |= StopBits2
	default:
		return 0, configError("stop bits", c.StopBits, ErrInvalidStopBits)
	}

	switch c.Parity {
	case ParityNone:
		f |= ParityNoneFlag
	case ParityEven:
		f |= ParityEvenFlag
	case ParityOdd:
		f |= ParityOddFlag
	default:
		return 0, configError("parity", int(c.Parity), ErrInvalidParity)
	}

	switch c.FlowControl {
	case FlowControlNone:
		f |= FlowCtrlNone
	case FlowControlCTSRTS:
		f |= FlowCtrlCTSRTS
	default:
		return 0, configError("flow control", int(c.FlowControl), ErrInvalidFlowControl)
	}
	return f, nil
}
