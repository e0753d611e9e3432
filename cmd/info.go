/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	amluart "github.com/allbin/go-amluart"
	"github.com/allbin/go-amluart/internal/tui/styles"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info [port]",
	Short: "Display the register state of the bound ports",
	Long: `Bind the controller and display, for every port or a single one, the
raw CONTROL, STATUS, MISC and REG5 registers together with the line
settings and FIFO levels decoded from them.

Binding programs every port with the configured line settings and
leaves it disabled.

Examples:
  amluart info
  amluart info 1 --uio uio3
  amluart info --sim --sim-ports 4`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		ports := make([]uint32, 0, s.ctrl.PortCount())
		if len(args) == 1 {
			port, err := parsePort(args[0])
			if err != nil {
				return err
			}
			ports = append(ports, port)
		} else {
			for i := uint32(0); i < s.ctrl.PortCount(); i++ {
				ports = append(ports, i)
			}
		}

		fmt.Printf("Controller: %d port(s)\n", s.ctrl.PortCount())
		for _, port := range ports {
			dump, err := s.ctrl.DumpRegisters(port)
			if err != nil {
				return fmt.Errorf("port %d: %w", port, err)
			}
			fmt.Println()
			printDump(port, dump)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func printDump(port uint32, dump amluart.RegisterDump) {
	field := func(label, value string) {
		fmt.Printf("  %s %s\n", styles.LabelStyle.Render(label), styles.ValueStyle.Render(value))
	}

	fmt.Println(styles.InfoStyle.Render(fmt.Sprintf("Port %d", port)))
	field("CONTROL", fmt.Sprintf("%08x", dump.Control))
	field("STATUS", fmt.Sprintf("%08x", dump.Status))
	field("MISC", fmt.Sprintf("%08x", dump.Misc))
	field("REG5", fmt.Sprintf("%08x", dump.Reg5))
	field("Line", dump.LineConfig().String())
	field("RX FIFO", fmt.Sprintf("%d", dump.RxCount()))
	field("TX FIFO", fmt.Sprintf("%d", dump.TxCount()))

	enabled := styles.StatusDisconnectedStyle.Render("disabled")
	if dump.Control&(amluart.ControlRxEn|amluart.ControlTxEn) != 0 {
		enabled = styles.StatusConnectedStyle.Render("enabled")
	}
	field("Engines", enabled)
}
