package apdu

import (
	"bytes"
	"fmt"
)

// APDU (Application Protocol Data Unit) structures and encodings according to
// ISO/IEC 7816-3 and 7816-4, restricted to the short-length forms.
//
// COMMAND APDU (C-APDU):
// A command consists of a mandatory Header (4 bytes) and an optional Body.
//
// 1. Header:
//   - CLA (Class): 0x00 for interindustry commands; STARCOS sets bit 8
//     (CLA | 0x80) for its proprietary administration commands.
//   - INS (Instruction): The specific command to execute.
//   - P1, P2 (Parameters): Command modifiers.
//
// 2. Body:
//   - Lc (Length Command): Number of bytes in the data field.
//   - Data: The command payload.
//   - Le (Length Expected): Maximum number of bytes expected in the response.
//
// ENCODING CASES (ISO 7816-3):
// - Case 1: No Data, No Response (Header only).
// - Case 2: No Data, Response Expected (Header + Le).
// - Case 3: Data Present, No Response (Header + Lc + Data).
// - Case 4: Data Present, Response Expected (Header + Lc + Data + Le).
//
// STARCOS SPK 2.3 cards only speak the short forms: Lc and Le are one byte,
// limiting Nc to 255 and Ne to 256 (Le byte 0x00 encodes 256). Extended
// length is rejected at encoding time rather than silently truncated.
//
// RESPONSE APDU (R-APDU):
// An optional data field followed by a mandatory two-byte Status Word
// (SW1 SW2), e.g. 0x9000 for success.

// Limits of the short APDU encoding.
const (
	// MaxShortLc is the maximum data length (Nc) encodable in a 1-byte Lc.
	MaxShortLc = 255

	// MaxShortLe is the maximum expected response length (Ne).
	// The Le byte 0x00 encodes 256.
	MaxShortLe = 256
)

// Standard instruction bytes used by the STARCOS protocol flows.
const (
	InsSelect          byte = 0xA4
	InsReadBinary      byte = 0xB0
	InsGetResponse     byte = 0xC0
	InsManageSecEnv    byte = 0x22
	InsPerformSecOp    byte = 0x2A
	InsInternalAuth    byte = 0x88
	InsCreateFile      byte = 0xE0
	InsRegisterDF      byte = 0x52
	InsDeleteFile      byte = 0xE4
)

// Command represents a command sent to the card (C-APDU).
type Command struct {
	Cla  byte
	Ins  byte
	P1   byte
	P2   byte
	Data []byte
	Ne   int // Expected response length (0 means none)

	// Sensitive marks commands whose response carries key material
	// (signatures, plaintext). The Client never logs such responses.
	Sensitive bool
}

// Bytes encodes the Command into its short-form byte representation.
func (c *Command) Bytes() ([]byte, error) {
	nc := len(c.Data)
	if nc > MaxShortLc {
		return nil, fmt.Errorf("data field too long for short APDU: %d > %d", nc, MaxShortLc)
	}
	if c.Ne > MaxShortLe {
		return nil, fmt.Errorf("expected length too large for short APDU: %d > %d", c.Ne, MaxShortLe)
	}

	buf := new(bytes.Buffer)
	buf.WriteByte(c.Cla)
	buf.WriteByte(c.Ins)
	buf.WriteByte(c.P1)
	buf.WriteByte(c.P2)

	// Case 3/4: Lc + Data
	if nc > 0 {
		buf.WriteByte(byte(nc))
		buf.Write(c.Data)
	}

	// Case 2/4: Le (0x00 encodes 256)
	if c.Ne > 0 {
		if c.Ne == MaxShortLe {
			buf.WriteByte(0x00)
		} else {
			buf.WriteByte(byte(c.Ne))
		}
	}

	return buf.Bytes(), nil
}

// String returns a readable representation of the command meta-data.
// The data field is omitted for sensitive commands.
func (c *Command) String() string {
	if c.Sensitive {
		return fmt.Sprintf("CLA: %02X INS: %02X P1: %02X P2: %02X | Lc: %d (sensitive) | Le: %d",
			c.Cla, c.Ins, c.P1, c.P2, len(c.Data), c.Ne)
	}
	return fmt.Sprintf("CLA: %02X INS: %02X P1: %02X P2: %02X | Data: %X | Le: %d",
		c.Cla, c.Ins, c.P1, c.P2, c.Data, c.Ne)
}

// Response represents the reply from the card (R-APDU).
type Response struct {
	Data   []byte
	Status StatusWord
}

// ParseResponse parses raw bytes received from the card.
// The input must contain at least the two status bytes.
func ParseResponse(raw []byte) (*Response, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}

	swIndex := len(raw) - 2
	return &Response{
		Data:   raw[:swIndex],
		Status: NewStatusWord(raw[swIndex], raw[swIndex+1]),
	}, nil
}

// String returns a readable representation of the response.
func (r *Response) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status)
}
