/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strconv"

	amluart "github.com/allbin/go-amluart"
	"github.com/allbin/go-amluart/internal/tui/styles"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config <port>",
	Short: "Program the line settings of a port",
	Long: `Encode the line settings as a packed format word, apply it to a port and
show the resulting CONTROL and REG5 registers.

The format word carries the data bits in bits 0-1 (5..8 as 0..3), the
stop bits in bit 2, parity in bits 3-4 (none, even, odd) and CTS/RTS
flow control in bit 5. Use --flags to pass a raw word instead of the
--data-bits, --stop-bits, --parity and --flow-control settings.

Examples:
  amluart config 0 --baud 9600 --parity even
  amluart config 1 --flags 0x23
  amluart config 0 --sim --baud 1000000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := parsePort(args[0])
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		var flags amluart.Flags
		if raw, _ := cmd.Flags().GetString("flags"); raw != "" {
			v, err := strconv.ParseUint(raw, 0, 32)
			if err != nil {
				return fmt.Errorf("invalid flags %q: %v", raw, err)
			}
			flags = amluart.Flags(v)
		} else {
			cfg, err := lineConfig()
			if err != nil {
				return err
			}
			if flags, err = cfg.Flags(); err != nil {
				return err
			}
		}

		baud := uint32(viper.GetInt("baud"))

		fmt.Printf("%s port %d: baud %d flags %#02x (%s)\n",
			styles.InfoStyle.Render("⚙"), port, baud, uint32(flags), amluart.ParseFlags(baud, flags))

		if err := s.ctrl.Configure(port, baud, flags); err != nil {
			return fmt.Errorf("%s %w", styles.ErrorStyle.Render("✗"), err)
		}

		dump, err := s.ctrl.DumpRegisters(port)
		if err != nil {
			return err
		}
		fmt.Printf("%s applied\n\n", styles.SuccessStyle.Render("✓"))
		printDump(port, dump)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().String("flags", "", "Raw packed format word (e.g. 0x03 for 8N1)")
}
