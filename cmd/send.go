/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	amluart "github.com/allbin/go-amluart"
	"github.com/allbin/go-amluart/internal/tui/components"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] <port>",
	Short: "Send data to a UART port",
	Long: `Enable a port and queue data into its TX FIFO.

Data can be provided as:
- Command line argument: amluart send "Hello World" 0
- From stdin (pipe): echo "test data" | amluart send 0
- Interactive mode: amluart send 0 (prompts for input)

Whenever the TX FIFO is full the command waits for the port to report
WRITABLE again, up to --timeout. Before the port is disabled the command
waits, within the same timeout, for the TX FIFO to run empty.

Example usage:
  amluart send "Hello World" 0
  amluart send "AT+GMR" 1 --newline
  amluart send 48656c6c6f 0 --hex
  echo "test" | amluart send 0`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data string
		var portArg string

		// Parse arguments: either "send data port" or "send port"
		if len(args) == 1 {
			portArg = args[0]
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				data = promptForData()
			} else {
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("reading from stdin: %w", err)
				}
				data = strings.TrimRight(string(stdinData), "\r\n")
			}
		} else {
			data = args[0]
			portArg = args[1]
		}

		port, err := parsePort(portArg)
		if err != nil {
			return err
		}

		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		payload := []byte(data)
		if hexMode {
			if payload, err = components.ParseHex(data); err != nil {
				return fmt.Errorf("invalid hex data: %w", err)
			}
		} else if addNewline {
			payload = append(payload, '\n')
		}

		return sendData(port, payload, timeout)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().Duration("timeout", 5*time.Second, "Timeout for queueing data")
}

func promptForData() string {
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	fmt.Print(promptStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

func sendData(port uint32, data []byte, timeout time.Duration) error {
	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Bold(true)

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("40")).
		Bold(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	fmt.Printf("%s Enabling port %d...\n", infoStyle.Render("⚡"), port)

	s, err := openSession()
	if err != nil {
		return fmt.Errorf("%s %v", errorStyle.Render("✗"), err)
	}
	defer s.Close()

	if err := s.ctrl.Enable(port, true); err != nil {
		return fmt.Errorf("%s %v", errorStyle.Render("✗"), err)
	}
	stream, err := s.ctrl.Stream(port, nil)
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Printf("%s Port enabled\n", successStyle.Render("✓"))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("%s Sending %d bytes...\n", infoStyle.Render("📤"), len(data))

	n, err := stream.WriteContext(ctx, data)
	if err != nil {
		return fmt.Errorf("%s failed after %d of %d bytes: %v", errorStyle.Render("✗"), n, len(data), err)
	}

	if err := waitTxEmpty(ctx, s, port); err != nil {
		return fmt.Errorf("%s %d bytes queued but not drained: %v", errorStyle.Render("✗"), n, err)
	}

	fmt.Printf("%s Sent %d bytes\n", successStyle.Render("✓"), n)

	preview := string(data)
	if len(preview) > 50 {
		preview = preview[:50] + "..."
	}
	preview = strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '·'
		}
		return r
	}, preview)

	fmt.Printf("%s Data: %s\n", infoStyle.Render("📋"), preview)

	return nil
}

// waitTxEmpty polls STATUS until the transmitter has shifted out the FIFO.
func waitTxEmpty(ctx context.Context, s *session, port uint32) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		dump, err := s.ctrl.DumpRegisters(port)
		if err != nil {
			return err
		}
		if dump.Status&amluart.StatusTxEmpty != 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
