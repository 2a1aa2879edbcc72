package apdu

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/spk23/starcos/pkg/tlv"
)

func TestCommandBytes(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *Command
		expected []byte
		wantErr  bool
	}{
		{
			name: "Case 1: header only",
			cmd:  &Command{Cla: 0x00, Ins: 0x22, P1: 0x41, P2: 0xB6},
			expected: tlv.Hex(
				"00 22 41 B6",
			),
		},
		{
			name: "Case 2: Le only",
			cmd:  &Command{Cla: 0x00, Ins: InsReadBinary, Ne: 1},
			expected: tlv.Hex(
				"00 B0 00 00",
				"01",
			),
		},
		{
			name: "Case 2: Le 256 encoded as 00",
			cmd:  &Command{Cla: 0x00, Ins: InsPerformSecOp, P1: 0x9E, P2: 0x9A, Ne: 256},
			expected: tlv.Hex(
				"00 2A 9E 9A",
				"00",
			),
		},
		{
			name: "Case 3: data without response",
			cmd:  &Command{Cla: 0x00, Ins: InsSelect, P2: 0x0C, Data: tlv.Hex("3F 00")},
			expected: tlv.Hex(
				"00 A4 00 0C",
				"02",
				"3F 00",
			),
		},
		{
			name: "Case 4: data and Le",
			cmd:  &Command{Cla: 0x00, Ins: InsSelect, Data: tlv.Hex("3F 00"), Ne: 256},
			expected: tlv.Hex(
				"00 A4 00 00",
				"02",
				"3F 00",
				"00",
			),
		},
		{
			name:    "Nc beyond short limit",
			cmd:     &Command{Cla: 0x00, Ins: InsPerformSecOp, Data: make([]byte, 256)},
			wantErr: true,
		},
		{
			name:    "Ne beyond short limit",
			cmd:     &Command{Cla: 0x00, Ins: InsReadBinary, Ne: 257},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Bytes()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Bytes() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("Mismatch:\nExpected: %s\nGot:      %s",
					hex.EncodeToString(tt.expected),
					hex.EncodeToString(got))
			}
		})
	}
}

func TestParseResponse(t *testing.T) {
	resp, err := ParseResponse(tlv.Hex("6F 03 80 01 05 90 00"))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if !bytes.Equal(resp.Data, tlv.Hex("6F 03 80 01 05")) {
		t.Errorf("Data = %X", resp.Data)
	}
	if resp.Status != SWNoError {
		t.Errorf("Status = %s, want 9000", resp.Status)
	}

	if _, err := ParseResponse([]byte{0x90}); err == nil {
		t.Error("expected error for 1-byte response")
	}
}

func TestStatusWord(t *testing.T) {
	tests := []struct {
		sw        StatusWord
		isSuccess bool
		moreData  bool
		isCounter bool
	}{
		{SWNoError, true, false, false},
		{NewStatusWord(0x61, 0x10), true, true, false},
		{NewStatusWord(0x63, 0xC5), false, false, true},
		{NewStatusWord(0x63, 0x81), false, false, false},
		{SWFileNotFound, false, false, false},
		{SWFCIBadFormat, false, false, false},
	}

	for _, tt := range tests {
		if got := tt.sw.IsSuccess(); got != tt.isSuccess {
			t.Errorf("SW %s IsSuccess = %v, want %v", tt.sw, got, tt.isSuccess)
		}
		if got := tt.sw.HasMoreData(); got != tt.moreData {
			t.Errorf("SW %s HasMoreData = %v, want %v", tt.sw, got, tt.moreData)
		}
		if got := tt.sw.IsCounter(); got != tt.isCounter {
			t.Errorf("SW %s IsCounter = %v, want %v", tt.sw, got, tt.isCounter)
		}
	}

	if got := NewStatusWord(0x63, 0xC5).Counter(); got != 5 {
		t.Errorf("Counter = %d, want 5", got)
	}
	if got := NewStatusWord(0x61, 0x0B).SW2(); got != 0x0B {
		t.Errorf("SW2 = %02X, want 0B", got)
	}
}
