package cmd

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	amluart "github.com/allbin/go-amluart"
	"github.com/allbin/go-amluart/internal/sim"
	"github.com/spf13/viper"
)

func TestParseParity(t *testing.T) {
	tests := []struct {
		in      string
		want    amluart.Parity
		wantErr bool
	}{
		{"none", amluart.ParityNone, false},
		{"", amluart.ParityNone, false},
		{"EVEN", amluart.ParityEven, false},
		{"o", amluart.ParityOdd, false},
		{"mark", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseParity(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseParity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseParity(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFlowControl(t *testing.T) {
	if fc, err := parseFlowControl("rtscts"); err != nil || fc != amluart.FlowControlCTSRTS {
		t.Errorf("parseFlowControl(rtscts) = %v, %v", fc, err)
	}
	if fc, err := parseFlowControl("none"); err != nil || fc != amluart.FlowControlNone {
		t.Errorf("parseFlowControl(none) = %v, %v", fc, err)
	}
	if _, err := parseFlowControl("xonxoff"); err == nil {
		t.Error("Expected error for xonxoff")
	}
}

func TestParsePort(t *testing.T) {
	if n, err := parsePort("3"); err != nil || n != 3 {
		t.Errorf("parsePort(3) = %d, %v", n, err)
	}
	for _, bad := range []string{"", "-1", "uio0", "4294967296"} {
		if _, err := parsePort(bad); err == nil {
			t.Errorf("parsePort(%q): expected error", bad)
		}
	}
}

func TestLineConfigFromViper(t *testing.T) {
	viper.Set("baud", 9600)
	viper.Set("parity", "even")
	viper.Set("stop-bits", 2)
	t.Cleanup(func() {
		viper.Set("baud", 115200)
		viper.Set("parity", "none")
		viper.Set("stop-bits", 1)
	})

	cfg, err := lineConfig()
	if err != nil {
		t.Fatalf("lineConfig failed: %v", err)
	}
	if cfg.BaudRate != 9600 || cfg.Parity != amluart.ParityEven || cfg.StopBits != 2 {
		t.Errorf("lineConfig = %+v", cfg)
	}

	viper.Set("parity", "bogus")
	if _, err := lineConfig(); err == nil {
		t.Error("Expected error for invalid parity")
	}
}

func TestComparePattern(t *testing.T) {
	want := testPattern(8)

	if err := comparePattern(want, testPattern(8)); err != nil {
		t.Errorf("Equal patterns: %v", err)
	}

	err := comparePattern(want, want[:5])
	if err == nil || !strings.Contains(err.Error(), "short read: 5 of 8") {
		t.Errorf("Short read: got %v", err)
	}

	bad := testPattern(8)
	bad[3] = 0xff
	err = comparePattern(want, bad)
	if err == nil || !strings.Contains(err.Error(), "byte 3") {
		t.Errorf("Mismatch: got %v", err)
	}
}

func TestTestPatternWraps(t *testing.T) {
	p := testPattern(300)
	if p[255] != 0xff || p[256] != 0x00 || p[299] != 43 {
		t.Errorf("Unexpected pattern bytes: %x %x %x", p[255], p[256], p[299])
	}
}

func TestLoopbackSelftest(t *testing.T) {
	ctrl, err := amluart.New(sim.NewBus(1, sim.WithLoopback()),
		amluart.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer ctrl.Close()

	if err := ctrl.Enable(0, true); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	stream, err := ctrl.Stream(0, nil)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	defer stream.Close()

	if err := loopbackTest(stream, testPattern(200), 2*time.Second); err != nil {
		t.Errorf("loopbackTest failed: %v", err)
	}
}

func TestSendDataSim(t *testing.T) {
	viper.Set("sim", true)
	t.Cleanup(func() { viper.Set("sim", false) })

	if err := sendData(0, []byte("hello\n"), 2*time.Second); err != nil {
		t.Errorf("sendData failed: %v", err)
	}
}

func TestOpenSessionSimPorts(t *testing.T) {
	viper.Set("sim", true)
	viper.Set("sim-ports", 3)
	t.Cleanup(func() {
		viper.Set("sim", false)
		viper.Set("sim-ports", 2)
	})

	s, err := openSession()
	if err != nil {
		t.Fatalf("openSession failed: %v", err)
	}
	defer s.Close()

	if s.ctrl.PortCount() != 3 {
		t.Errorf("PortCount = %d, want 3", s.ctrl.PortCount())
	}
	if s.bus == nil {
		t.Error("Expected simulator bus")
	}
}
