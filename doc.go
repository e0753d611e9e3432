// Package amluart is a driver for the multi-port UART controller found on
// Amlogic SoCs.
//
// The driver owns one register window and one interrupt object per port and
// exposes each port as a non-blocking byte stream with readiness
// notifications. Every enabled port runs a service goroutine that waits on
// its interrupt and re-evaluates readiness; callers either poll or register a
// callback and retry when the port becomes readable or writable.
//
// # Basic Usage
//
// Bind a controller on Linux through the UIO framework, one UIO device per
// port:
//
//	platform, err := amluart.OpenUIO("uio0", "uio1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctrl, err := amluart.New(platform, amluart.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctrl.Close()
//
//	// Non-blocking I/O
//	if err := ctrl.Enable(0, true); err != nil {
//	    log.Fatal(err)
//	}
//	n, err := ctrl.Write(0, []byte("Hello"))
//	buffer := make([]byte, 64)
//	n, err = ctrl.Read(0, buffer)
//	if errors.Is(err, amluart.ErrWouldBlock) {
//	    // nothing received yet
//	}
//
// # Line Configuration
//
// Use functional options or the packed format word of the serial driver
// protocol:
//
//	cfg, err := amluart.NewConfig(
//	    amluart.WithBaudRate(9600),
//	    amluart.WithParity(amluart.ParityEven),
//	    amluart.WithFlowControl(amluart.FlowControlCTSRTS),
//	)
//	err = ctrl.ConfigurePort(0, cfg)
//
//	err = ctrl.Configure(1, 115200, amluart.DataBits8|amluart.StopBits1)
//
// The baud divisor is (24 MHz / 3) / baud - 1 and must fit the 23-bit REG5
// field.
//
// # Readiness Notification
//
//	ready := make(chan amluart.State, 1)
//	ctrl.SetNotifyCallback(0, func(port uint32, s amluart.State) {
//	    select {
//	    case ready <- s:
//	    default:
//	    }
//	})
//
// The callback is called once right away with the current state and then
// whenever the state changes. It runs without driver locks held and may call
// back into the driver.
//
// # Error Handling
//
// Use errors.Is() for error type checking:
//
//	if errors.Is(err, amluart.ErrWouldBlock) {
//	    // retry after a WRITABLE or READABLE notification
//	}
//	if errors.Is(err, amluart.ErrInvalidConfig) {
//	    var ce *amluart.ConfigError
//	    errors.As(err, &ce) // ce.Field names the rejected setting
//	}
//
// # Default Configuration
//
//   - BaudRate: 115200
//   - DataBits: 8
//   - StopBits: 1
//   - Parity: None
//   - FlowControl: None
package amluart
