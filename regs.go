package amluart

// Registers is one port's memory-mapped register window. Every call is a
// single ordered 32-bit access; implementations must not cache or reorder.
// Offsets outside the window are a programming error.
type Registers interface {
	Read32(offset uint32) uint32
	Write32(offset uint32, value uint32)
}

// register offsets

const (
	RegWFIFO   = 0x00 // transmit data port (W)
	RegRFIFO   = 0x04 // receive data port (R)
	RegControl = 0x08 // line, enable and reset control (RW)
	RegStatus  = 0x0c // fifo and line status (R)
	RegMisc    = 0x10 // interrupt fifo thresholds (RW)
	RegReg5    = 0x14 // baud rate divisor (RW)
)

// RegisterWindowSize is the span of the register block in bytes.
const RegisterWindowSize = 0x18

// CONTROL bits

const (
	ControlTxEn    = 1 << 12
	ControlRxEn    = 1 << 13
	ControlTwoWire = 1 << 15

	ControlStopLenMask = 3 << 16
	ControlStopLen1    = 0 << 16
	ControlStopLen2    = 1 << 16

	ControlParMask = 3 << 18
	ControlParNone = 0 << 18
	ControlParEven = 2 << 18
	ControlParOdd  = 3 << 18

	ControlXmitLenMask = 3 << 20
	ControlXmitLen8    = 0 << 20
	ControlXmitLen7    = 1 << 20
	ControlXmitLen6    = 2 << 20
	ControlXmitLen5    = 3 << 20

	ControlRstTx   = 1 << 22
	ControlRstRx   = 1 << 23
	ControlClrErr  = 1 << 24
	ControlInvRx   = 1 << 25
	ControlInvTx   = 1 << 26
	ControlRxIntEn = 1 << 27
	ControlTxIntEn = 1 << 28
	ControlInvCts  = 1 << 29
	ControlMaskErr = 1 << 30
	ControlInvRts  = 1 << 31
)

// lineConfigMask covers every CONTROL field written by the line codec.
const lineConfigMask = ControlXmitLenMask | ControlStopLenMask | ControlParMask | ControlTwoWire

// STATUS bits

const (
	StatusRxCountMask = 0x7f << 0
	StatusTxCountPos  = 8
	StatusTxCountMask = 0x7f << StatusTxCountPos
	StatusParErr      = 1 << 16
	StatusFrameErr    = 1 << 17
	StatusTxOverflow  = 1 << 18
	StatusRxFull      = 1 << 19
	StatusRxEmpty     = 1 << 20
	StatusTxFull      = 1 << 21
	StatusTxEmpty     = 1 << 22
	StatusCtsLevel    = 1 << 23
	StatusRxOverflow  = 1 << 24
	StatusTxBusy      = 1 << 25
	StatusRxBusy      = 1 << 26
)

// MISC fields

const (
	MiscRxIrqCountPos  = 0
	MiscTxIrqCountPos  = 8
	MiscIrqCountMask   = 0xffff
	MiscRxIrqCountMask = 0xff << MiscRxIrqCountPos
	MiscTxIrqCountMask = 0xff << MiscTxIrqCountPos
)

// REG5 fields

const (
	Reg5BaudMask       = 0x7fffff
	Reg5UseNewBaudRate = 1 << 23
	Reg5UseXtalClk     = 1 << 24
)

// modify performs a read-modify-write of one register. Callers that need the
// sequence to be atomic with respect to other register users hold the port lock.
func modify(r Registers, offset uint32, clear, set uint32) uint32 {
	v := r.Read32(offset)
	v = v&^clear | set
	r.Write32(offset, v)
	return v
}
