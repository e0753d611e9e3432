package components

import (
	"bytes"
	"testing"
	"time"

	amluart "github.com/allbin/go-amluart"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    []byte
		wantErr bool
	}{
		{"48656C6C6F", []byte("Hello"), false},
		{"48 65 6c 6c 6f", []byte("Hello"), false},
		{"0x41 0x42", []byte("AB"), false},
		{"", []byte{}, false},
		{"ABC", nil, true},
		{"zz", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !bytes.Equal(got, tt.want) {
				t.Errorf("ParseHex(%q) = %x, want %x", tt.in, got, tt.want)
			}
		})
	}
}

func TestInputPayload(t *testing.T) {
	in := NewInput("")
	in.SetValue("AT")

	got, err := in.Payload()
	if err != nil || string(got) != "AT" {
		t.Errorf("Payload = %q, %v", got, err)
	}

	in.SetAppendNewline(true)
	if got, _ := in.Payload(); string(got) != "AT\n" {
		t.Errorf("Payload with newline = %q", got)
	}

	in.ToggleSendingMode()
	in.SetValue("0d0a")
	if got, _ := in.Payload(); !bytes.Equal(got, []byte{'\r', '\n'}) {
		t.Errorf("Hex payload = %x", got)
	}
}

func TestInputHistory(t *testing.T) {
	in := NewInput("")
	in.AddToHistory("one")
	in.AddToHistory("two")
	in.AddToHistory("two")
	in.AddToHistory("  ")

	in.SetValue("draft")
	in.NavigateHistoryUp()
	if in.Value() != "two" {
		t.Errorf("Up = %q, want two", in.Value())
	}
	in.NavigateHistoryUp()
	if in.Value() != "one" {
		t.Errorf("Up = %q, want one", in.Value())
	}
	in.NavigateHistoryDown()
	in.NavigateHistoryDown()
	if in.Value() != "draft" {
		t.Errorf("Down past end = %q, want draft", in.Value())
	}
}

func TestFormatMessage(t *testing.T) {
	df := NewDataFormatter(false, true)
	df.SetFormatOptions(true, true)

	msg := DataReceivedMsg{Timestamp: time.Now(), Data: []byte("hi\x1b[2J")}
	if got := df.FormatMessage(msg); got != "ASCII: hi.[2J" {
		t.Errorf("ASCII = %q", got)
	}

	df.ToggleHex()
	if got := df.FormatMessage(msg); got != "HEX: 68 69 1B 5B 32 4A  ASCII: hi.[2J" {
		t.Errorf("HEX+ASCII = %q", got)
	}

	df.ToggleHex()
	df.ToggleASCII()
	if got := df.FormatMessage(msg); got != "BYTES: 6" {
		t.Errorf("Neither = %q", got)
	}

	event := DataReceivedMsg{Event: amluart.StateReadable.String()}
	if got := df.FormatMessage(event); got != amluart.StateReadable.String() {
		t.Errorf("Event = %q", got)
	}
}

func TestPortTableSelected(t *testing.T) {
	pt := NewPortTable(100)
	if _, ok := pt.Selected(); ok {
		t.Error("Empty table should have no selection")
	}

	pt.SetRows([]PortRow{
		{Num: 0, Config: amluart.DefaultConfig()},
		{Num: 1, Enabled: true, State: amluart.StateWritable, Config: amluart.DefaultConfig()},
	})
	if num, ok := pt.Selected(); !ok || num != 0 {
		t.Errorf("Selected = %d, %v; want 0, true", num, ok)
	}
	if pt.View() == "" {
		t.Error("Empty view")
	}
}
