/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	amluart "github.com/allbin/go-amluart"
	"github.com/allbin/go-amluart/internal/hostlink"
	"github.com/allbin/go-amluart/internal/tui/styles"
	"github.com/spf13/cobra"
)

// selftestCmd represents the selftest command
var selftestCmd = &cobra.Command{
	Use:   "selftest <port>",
	Short: "Verify a port end to end against a host serial adapter",
	Long: `Send a test pattern through a port and read it back through a host
serial adapter wired to it (SoC TX to adapter RX and the reverse), then
repeat in the other direction. Both sides use the configured line
settings.

With --sim no adapter is needed: the simulated port is looped back and
the pattern is checked through the driver alone.

Examples:
  amluart selftest 0 --host /dev/ttyUSB0
  amluart selftest 1 --host /dev/ttyUSB0 --baud 9600 --size 1024
  amluart selftest 0 --sim`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := parsePort(args[0])
		if err != nil {
			return err
		}

		hostPath, _ := cmd.Flags().GetString("host")
		size, _ := cmd.Flags().GetInt("size")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		if size <= 0 {
			return fmt.Errorf("invalid pattern size %d", size)
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.ctrl.Enable(port, true); err != nil {
			return fmt.Errorf("failed to enable port %d: %w", port, err)
		}
		stream, err := s.ctrl.Stream(port, nil)
		if err != nil {
			return err
		}
		defer stream.Close()

		pattern := testPattern(size)

		if s.bus != nil {
			return report("loopback", func() error {
				return loopbackTest(stream, pattern, timeout)
			})
		}

		if hostPath == "" {
			ports, _ := hostlink.Ports()
			return fmt.Errorf("--host is required (host serial ports: %v)", ports)
		}
		cfg, err := lineConfig()
		if err != nil {
			return err
		}
		link, err := hostlink.Open(hostPath, cfg)
		if err != nil {
			return err
		}
		defer link.Close()

		s.log.Info("selftest", "port", port, "host", link.Path(), "line", cfg.String(), "size", size)

		errTX := report(fmt.Sprintf("port %d -> %s", port, hostPath), func() error {
			return driverToHost(stream, link, pattern, timeout)
		})
		errRX := report(fmt.Sprintf("%s -> port %d", hostPath, port), func() error {
			return hostToDriver(stream, link, pattern, timeout)
		})
		return errors.Join(errTX, errRX)
	},
}

func init() {
	rootCmd.AddCommand(selftestCmd)

	selftestCmd.Flags().String("host", "", "Host serial adapter wired to the port (e.g. /dev/ttyUSB0)")
	selftestCmd.Flags().Int("size", 256, "Pattern size in bytes")
	selftestCmd.Flags().Duration("timeout", 5*time.Second, "Timeout per direction")
}

// testPattern cycles through every byte value so stuck or swapped data
// lines show up as mismatches.
func testPattern(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i)
	}
	return p
}

func report(name string, run func() error) error {
	start := time.Now()
	err := run()
	if err != nil {
		fmt.Printf("%s %s: %v\n", styles.ErrorStyle.Render("✗"), name, err)
		return fmt.Errorf("%s: %w", name, err)
	}
	fmt.Printf("%s %s (%v)\n", styles.SuccessStyle.Render("✓"), name, time.Since(start).Round(time.Millisecond))
	return nil
}

func comparePattern(want, got []byte) error {
	if bytes.Equal(want, got) {
		return nil
	}
	for i := range got {
		if i >= len(want) || got[i] != want[i] {
			return fmt.Errorf("mismatch at byte %d of %d", i, len(want))
		}
	}
	return fmt.Errorf("short read: %d of %d bytes", len(got), len(want))
}

// readPattern reads len(want) bytes from the driver.
func readPattern(ctx context.Context, stream *amluart.Stream, want []byte) error {
	got := make([]byte, 0, len(want))
	buf := make([]byte, len(want))
	for len(got) < len(want) {
		n, err := stream.ReadContext(ctx, buf[:len(want)-len(got)])
		got = append(got, buf[:n]...)
		if err != nil {
			if cmpErr := comparePattern(want, got); cmpErr != nil {
				return fmt.Errorf("%w (%v)", cmpErr, err)
			}
			return err
		}
	}
	return comparePattern(want, got)
}

// loopbackChunk stays below the RX FIFO depth so a looped-back chunk
// never overruns the receiver before it is read.
const loopbackChunk = 32

func loopbackTest(stream *amluart.Stream, pattern []byte, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for off := 0; off < len(pattern); off += loopbackChunk {
		chunk := pattern[off:min(off+loopbackChunk, len(pattern))]
		if _, err := stream.WriteContext(ctx, chunk); err != nil {
			return fmt.Errorf("write at byte %d: %w", off, err)
		}
		if err := readPattern(ctx, stream, chunk); err != nil {
			return fmt.Errorf("at byte %d: %w", off, err)
		}
	}
	return nil
}

func driverToHost(stream *amluart.Stream, link *hostlink.Link, pattern []byte, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := link.ReadFull(ctx, len(pattern))
		done <- result{data, err}
	}()

	if _, err := stream.WriteContext(ctx, pattern); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	r := <-done
	if err := comparePattern(pattern, r.data); err != nil {
		return err
	}
	return r.err
}

func hostToDriver(stream *amluart.Stream, link *hostlink.Link, pattern []byte, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		_, err := link.Write(pattern)
		errc <- err
	}()
	if err := readPattern(ctx, stream, pattern); err != nil {
		return err
	}
	if err := <-errc; err != nil {
		return fmt.Errorf("host write: %w", err)
	}
	return nil
}
