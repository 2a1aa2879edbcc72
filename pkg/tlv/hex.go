package tlv

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Hex builds a byte slice from hex string fragments, ignoring spaces so test
// fixtures can spell wire data the way trace logs do ("00 A4 04 0C"). It
// panics on malformed input; it is meant for constants and tests.
func Hex(parts ...string) []byte {
	joined := strings.ReplaceAll(strings.Join(parts, ""), " ", "")

	data, err := hex.DecodeString(joined)
	if err != nil {
		panic(fmt.Sprintf("invalid hex input '%s': %v", joined, err))
	}
	return data
}
