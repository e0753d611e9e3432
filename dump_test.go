package amluart

import (
	"strings"
	"testing"
)

func TestRegisterDumpString(t *testing.T) {
	d := RegisterDump{Control: 0x1803b000, Status: 0x00500000, Misc: 0x0101, Reg5: 0x01800044}
	want := "CONTROL: 1803b000\nSTATUS:  00500000\nMISC:    00000101\nREG5:    01800044\n"
	if got := d.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestRegisterDumpLineConfig(t *testing.T) {
	tests := []struct {
		cfg  Config
		baud int
	}{
		{DefaultConfig(), 115942},
		{Config{BaudRate: 9600, DataBits: 5, StopBits: 2, Parity: ParityOdd, FlowControl: FlowControlCTSRTS}, 9603},
		{Config{BaudRate: 1000000, DataBits: 6, StopBits: 1, Parity: ParityEven}, 1000000},
	}

	for _, tt := range tests {
		regs := newFakeRegs(4)
		p := newPort(0, regs, nil, testOptions())
		if err := p.Configure(tt.cfg); err != nil {
			t.Fatalf("Configure(%v) failed: %v", tt.cfg, err)
		}

		want := tt.cfg
		want.BaudRate = tt.baud
		dump, err := p.DumpRegisters()
		if err != nil {
			t.Fatalf("DumpRegisters failed: %v", err)
		}
		if got := dump.LineConfig(); got != want {
			t.Errorf("LineConfig() = %v, want %v", got, want)
		}
	}
}

func TestRegisterDumpCounts(t *testing.T) {
	d := RegisterDump{Status: 5 | 17<<StatusTxCountPos | StatusTxFull}
	if d.RxCount() != 5 {
		t.Errorf("RxCount() = %d, want 5", d.RxCount())
	}
	if d.TxCount() != 17 {
		t.Errorf("TxCount() = %d, want 17", d.TxCount())
	}
	if !strings.Contains(d.String(), "STATUS:  0020") {
		t.Errorf("unexpected dump %q", d.String())
	}
}
