/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strings"

	amluart "github.com/allbin/go-amluart"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List UIO devices that can carry a UART port",
	Long: `List the UIO devices registered under /sys/class/uio.

By default only devices whose driver name looks like a UART register
window (aml-uart, meson-uart or anything containing "uart" or "serial")
are shown, in the order they would be bound to ports 0..n-1.

Filters:
  uart   UART-like devices (default)
  all    every UIO device`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		devices, err := listDevices(filterType)
		if err != nil {
			return fmt.Errorf("listing uio devices: %w", err)
		}

		if len(devices) == 0 {
			if filterType != "" {
				fmt.Printf("No UIO devices found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No UIO devices found")
			}
			return nil
		}

		if tableFormat {
			renderTable(devices)
		} else {
			renderSimple(devices)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("filter", "uart", "Filter by device type: uart, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

func listDevices(filterType string) ([]*amluart.UIODevice, error) {
	switch strings.ToLower(filterType) {
	case "", "uart":
		return amluart.ListUARTDevices()
	case "all":
		names, err := amluart.ListUIODevices()
		if err != nil {
			return nil, err
		}
		var devices []*amluart.UIODevice
		for _, name := range names {
			info, err := amluart.GetUIODeviceInfo(name)
			if err != nil {
				continue
			}
			devices = append(devices, info)
		}
		return devices, nil
	default:
		return nil, fmt.Errorf("unknown filter %q", filterType)
	}
}

// renderTable renders the device list in a styled static table format
func renderTable(devices []*amluart.UIODevice) {
	fmt.Printf("Found %d UIO device(s):\n\n", len(devices))

	nameWidth := 8
	pathWidth := 12
	driverWidth := 22
	mapWidth := 24

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("240")).
		PaddingBottom(1)

	cellStyle := lipgloss.NewStyle().
		PaddingRight(2)

	warnStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s %s",
		nameWidth, "Device",
		pathWidth, "Node",
		driverWidth, "Driver",
		mapWidth, "Map 0",
		"Kind")
	fmt.Println(headerStyle.Render(header))

	for _, d := range devices {
		kind := "other"
		if amluart.IsUARTDriver(d.Driver) {
			kind = "uart"
		}
		node := d.Path
		if !d.NodeReady {
			node = warnStyle.Render(fmt.Sprintf("%-*s", pathWidth, "missing"))
		} else {
			node = fmt.Sprintf("%-*s", pathWidth, node)
		}
		row := fmt.Sprintf("%-*s %s %-*s %-*s %s",
			nameWidth, d.Name,
			node,
			driverWidth, d.Driver,
			mapWidth, fmt.Sprintf("%#x+%#x", d.MapAddr+d.MapOffset, d.MapSize),
			kind)
		fmt.Println(cellStyle.Render(row))
	}
}

// renderSimple renders the device list in simple text format
func renderSimple(devices []*amluart.UIODevice) {
	for _, d := range devices {
		fmt.Printf("%s\t%s\n", d.Name, d.Driver)
	}
}
