package amluart

import "fmt"

// RegisterDump is a snapshot of a port's control registers.
type RegisterDump struct {
	Control uint32
	Status  uint32
	Misc    uint32
	Reg5    uint32
}

// DumpRegisters reads CONTROL, STATUS, MISC and REG5 under the port lock so
// the snapshot never splits a configure or reset sequence.
func (p *Port) DumpRegisters() (RegisterDump, error) {
	if p.released.Load() {
		return RegisterDump{}, ErrControllerClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return RegisterDump{
		Control: p.regs.Read32(RegControl),
		Status:  p.regs.Read32(RegStatus),
		Misc:    p.regs.Read32(RegMisc),
		Reg5:    p.regs.Read32(RegReg5),
	}, nil
}

func (d RegisterDump) String() string {
	return fmt.Sprintf("CONTROL: %08x\nSTATUS:  %08x\nMISC:    %08x\nREG5:    %08x\n",
		d.Control, d.Status, d.Misc, d.Reg5)
}

// LineConfig decodes the line settings currently programmed in CONTROL and
// REG5. The baud rate is derived from the divisor and may differ from the
// requested rate by integer truncation.
func (d RegisterDump) LineConfig() Config {
	cfg := Config{
		DataBits:    8 - int(d.Control&ControlXmitLenMask>>20),
		StopBits:    1,
		Parity:      ParityNone,
		FlowControl: FlowControlCTSRTS,
	}
	if d.Control&ControlStopLenMask == ControlStopLen2 {
		cfg.StopBits = 2
	}
	switch d.Control & ControlParMask {
	case ControlParEven:
		cfg.Parity = ParityEven
	case ControlParOdd:
		cfg.Parity = ParityOdd
	}
	if d.Control&ControlTwoWire != 0 {
		cfg.FlowControl = FlowControlNone
	}
	cfg.BaudRate = (clkXtal / 3) / (int(d.Reg5&Reg5BaudMask) + 1)
	return cfg
}

// RxCount returns the number of bytes waiting in the RX FIFO.
func (d RegisterDump) RxCount() int { return int(d.Status & StatusRxCountMask) }

// TxCount returns the number of bytes queued in the TX FIFO.
func (d RegisterDump) TxCount() int { return int(d.Status & StatusTxCountMask >> StatusTxCountPos) }
