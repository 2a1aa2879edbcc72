// Package tlv provides the minimal tag-length-value scanning the STARCOS
// protocol logic needs, built on BER-TLV decoding from moov-io/bertlv.
package tlv

import (
	"fmt"
	"strings"

	"github.com/moov-io/bertlv"
)

// FindTag scans buf for the first top-level occurrence of a one-byte tag and
// returns its value. The second return value reports whether the tag was
// found. A buffer that does not decode as BER-TLV yields (nil, false): File
// Control Information content is card-vendor-specific and callers degrade to
// defaults rather than erroring.
func FindTag(buf []byte, tag byte) ([]byte, bool) {
	packets, err := bertlv.Decode(buf)
	if err != nil {
		return nil, false
	}

	want := fmt.Sprintf("%02X", tag)
	for _, p := range packets {
		if strings.EqualFold(p.Tag, want) {
			if len(p.TLVs) > 0 {
				if enc, err := bertlv.Encode(p.TLVs); err == nil {
					return enc, true
				}
			}
			return p.Value, true
		}
	}
	return nil, false
}
