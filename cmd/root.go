/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	amluart "github.com/allbin/go-amluart"
	"github.com/allbin/go-amluart/internal/sim"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "amluart",
	Short: "Drive the Amlogic SoC UART controller from userspace",
	Long: `amluart binds the UART ports of an Amlogic SoC through the Linux UIO
framework and exposes them as non-blocking byte streams with readiness
notification.

Each port is one uio_pdrv_genirq device whose first map is the UART
register window. Ports are numbered in the order the devices are given
with --uio, or in UIO number order when every UART-like UIO device is
used.

Use --sim to run any command against an in-process simulator whose TX
lines are looped back to RX.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.amluart.yaml)")
	pf.StringSlice("uio", nil, "UIO devices bound to ports 0..n-1 (default: every UART UIO device)")
	pf.Bool("sim", false, "Use the in-process loopback simulator instead of hardware")
	pf.Int("sim-ports", 2, "Number of simulated ports")
	pf.Duration("sim-feed", 0, "Inject a line into simulated ports at this interval")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")

	pf.IntP("baud", "b", 115200, "Baud rate")
	pf.Int("data-bits", 8, "Data bits: 5, 6, 7, 8")
	pf.Int("stop-bits", 1, "Stop bits: 1, 2")
	pf.String("parity", "none", "Parity: none, even, odd")
	pf.StringP("flow-control", "f", "none", "Flow control: none, rtscts")

	cobra.CheckErr(viper.BindPFlags(pf))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".amluart")
	}

	viper.SetEnvPrefix("AMLUART")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Error reading config %s: %v\n", cfgFile, err)
			os.Exit(1)
		}
	}
}

// newLogger builds the stderr logger at the configured level.
func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", viper.GetString("log-level"))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// lineConfig builds the line configuration from flags, env and config file.
func lineConfig() (amluart.Config, error) {
	parity, err := parseParity(viper.GetString("parity"))
	if err != nil {
		return amluart.Config{}, err
	}
	flow, err := parseFlowControl(viper.GetString("flow-control"))
	if err != nil {
		return amluart.Config{}, err
	}
	return amluart.NewConfig(
		amluart.WithBaudRate(viper.GetInt("baud")),
		amluart.WithDataBits(viper.GetInt("data-bits")),
		amluart.WithStopBits(viper.GetInt("stop-bits")),
		amluart.WithParity(parity),
		amluart.WithFlowControl(flow),
	)
}

func parseParity(s string) (amluart.Parity, error) {
	switch strings.ToLower(s) {
	case "none", "n", "":
		return amluart.ParityNone, nil
	case "even", "e":
		return amluart.ParityEven, nil
	case "odd", "o":
		return amluart.ParityOdd, nil
	}
	return 0, fmt.Errorf("invalid parity %q (none, even, odd)", s)
}

func parseFlowControl(s string) (amluart.FlowControl, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return amluart.FlowControlNone, nil
	case "rtscts", "cts", "hw":
		return amluart.FlowControlCTSRTS, nil
	}
	return 0, fmt.Errorf("invalid flow control %q (none, rtscts)", s)
}

// parsePort parses a port index argument.
func parsePort(arg string) (uint32, error) {
	n, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %v", arg, err)
	}
	return uint32(n), nil
}

// session is an open controller and, in --sim mode, its simulator.
type session struct {
	ctrl *amluart.Controller
	bus  *sim.Bus // nil on hardware
	log  *slog.Logger
}

func (s *session) Close() error {
	return s.ctrl.Close()
}

// feed injects a numbered line into a simulated port's RX FIFO every
// interval until ctx is done. It does nothing on hardware.
func (s *session) feed(ctx context.Context, port uint32, interval time.Duration) {
	if s.bus == nil || interval <= 0 || int(port) >= int(s.ctrl.PortCount()) {
		return
	}
	dev := s.bus.Device(int(port))
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for n := 1; ; n++ {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				dev.Inject([]byte(fmt.Sprintf("sim %d %s\r\n", n, t.Format("15:04:05.000"))))
			}
		}
	}()
}

// openSession binds a controller on the configured platform with every port
// set to the configured line settings.
func openSession(opts ...amluart.Option) (*session, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	cfg, err := lineConfig()
	if err != nil {
		return nil, err
	}

	var platform amluart.Platform
	var bus *sim.Bus
	if viper.GetBool("sim") {
		bus = sim.NewBus(viper.GetInt("sim-ports"), sim.WithLoopback())
		platform = bus
	} else {
		names := viper.GetStringSlice("uio")
		if len(names) == 0 {
			devices, err := amluart.ListUARTDevices()
			if err != nil {
				return nil, err
			}
			for _, d := range devices {
				names = append(names, d.Name)
			}
		}
		uio, err := amluart.OpenUIO(names...)
		if err != nil {
			return nil, err
		}
		platform = uio
	}

	opts = append([]amluart.Option{
		amluart.WithLogger(logger),
		amluart.WithDefaultConfig(cfg),
	}, opts...)
	ctrl, err := amluart.New(platform, opts...)
	if err != nil {
		return nil, err
	}
	return &session{ctrl: ctrl, bus: bus, log: logger}, nil
}
