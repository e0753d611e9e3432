/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <port> <output-file>",
	Short: "Capture received data to a file",
	Long: `Capture incoming data of a port to a file for later parsing.

Enables the port and copies every byte drained from its RX FIFO to the
output file. Runs until interrupted (Ctrl+C) or until --duration has
elapsed. Use "-" as output file to write to stdout.

The output file is opened in append mode, allowing you to resume captures
without overwriting existing data.

Example usage:
  amluart capture 0 data.log
  amluart capture 1 output.txt --baud 9600
  amluart capture 0 capture.log --console
  amluart capture 0 - --duration 10s`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := parsePort(args[0])
		if err != nil {
			return err
		}

		bufferSize, _ := cmd.Flags().GetInt("buffer")
		showConsole, _ := cmd.Flags().GetBool("console")
		duration, _ := cmd.Flags().GetDuration("duration")

		return runCapture(port, args[1], bufferSize, showConsole, duration)
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().Int("buffer", 4096, "Read buffer size")
	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
	captureCmd.Flags().Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
}

// interruptContext is canceled on SIGINT or SIGTERM, or after d if d > 0.
func interruptContext(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, func() {
		cancel()
		stop()
	}
}

func runCapture(port uint32, outputPath string, bufferSize int, showConsole bool, duration time.Duration) error {
	if bufferSize <= 0 {
		return fmt.Errorf("invalid buffer size %d", bufferSize)
	}

	var out io.Writer = os.Stdout
	if outputPath != "-" {
		file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open output file: %w", err)
		}
		defer file.Close()
		out = file
	} else {
		showConsole = false
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

	ctx, cancel := interruptContext(duration)
	defer cancel()
	s.feed(ctx, port, viper.GetDuration("sim-feed"))

	fmt.Fprintf(os.Stderr, "Capturing data from port %d to %s\n", port, outputPath)
	if showConsole {
		fmt.Fprintf(os.Stderr, "Console display enabled\n")
	}
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

	buffer := make([]byte, bufferSize)
	bytesWritten := int64(0)
	startTime := time.Now()

	for {
		n, err := stream.ReadContext(ctx, buffer)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v\n",
					bytesWritten, time.Since(startTime).Round(time.Millisecond))
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		written, err := out.Write(buffer[:n])
		if err != nil {
			return fmt.Errorf("write error: %w", err)
		}
		bytesWritten += int64(written)

		if showConsole {
			os.Stdout.Write(buffer[:n])
		}
	}
}
