package amluart

// crystal clock speed
const clkXtal = 24000000

// lineBits is the register image of a line configuration. control is applied
// through lineConfigMask so the enable and reset bits of CONTROL survive.
type lineBits struct {
	control uint32
	reg5    uint32
}

// apply merges the line fields into a prior CONTROL value.
func (lb lineBits) apply(ctrl uint32) uint32 {
	return ctrl&^lineConfigMask | lb.control
}

// baudDivisor returns the REG5 divisor for rate, (xtal/3)/rate - 1.
func baudDivisor(rate int) (uint32, error) {
	if rate <= 0 {
		return 0, configError("baud rate", rate, ErrBaudRateOutOfRange)
	}
	div := (clkXtal/3)/rate - 1
	if div < 0 || div > Reg5BaudMask {
		return 0, configError("baud rate", rate, ErrBaudRateOutOfRange)
	}
	return uint32(div), nil
}

// resolveLine maps a line configuration to CONTROL and REG5 bit patterns.
func resolveLine(cfg Config) (lineBits, error) {
	var ctrl uint32

	switch cfg.DataBits {
	case 5:
		ctrl |= ControlXmitLen5
	case 6:
		ctrl |= ControlXmitLen6
	case 7:
		ctrl |= ControlXmitLen7
	case 8:
		ctrl |= ControlXmitLen8
	default:
		return lineBits{}, configError("data bits", cfg.DataBits, ErrInvalidDataBits)
	}

	switch cfg.StopBits {
	case 1:
		ctrl |= ControlStopLen1
	case 2:
		ctrl |= ControlStopLen2
	default:
		return lineBits{}, configError("stop bits", cfg.StopBits, ErrInvalidStopBits)
	}

	switch cfg.Parity {
	case ParityNone:
		ctrl |= ControlParNone
	case ParityEven:
		ctrl |= ControlParEven
	case ParityOdd:
		ctrl |= ControlParOdd
	default:
		return lineBits{}, configError("parity", int(cfg.Parity), ErrInvalidParity)
	}

	switch cfg.FlowControl {
	case FlowControlNone:
		ctrl |= ControlTwoWire
	case FlowControlCTSRTS:
		// CTS/RTS is on when two-wire mode is off
	default:
		return lineBits{}, configError("flow control", int(cfg.FlowControl), ErrInvalidFlowControl)
	}

	div, err := baudDivisor(cfg.BaudRate)
	if err != nil {
		return lineBits{}, err
	}

	return lineBits{
		control: ctrl,
		reg5:    div | Reg5UseXtalClk | Reg5UseNewBaudRate,
	}, nil
}
