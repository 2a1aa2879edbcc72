package starcos

import (
	"go.uber.org/zap"

	"github.com/spk23/starcos/pkg/tlv"
)

// FCI INTERPRETATION:
// A STARCOS SELECT may answer with File Control Information under tag 0x6F.
// The content is only partially documented: per the Starcos S 2.1 manual a
// SELECT DF may even return arbitrary bytes stored in an object file tagged
// 0x6F. Interpretation therefore never fails; unrecognised or malformed
// content degrades to the defaults (working EF of unknown structure).
//
// Recognised tags:
//   0x80  file size, first two bytes read big-endian
//   0x82  file descriptor:
//           01           transparent working EF
//           11           "object" EF; structure info is incomplete and the
//                        file is treated as transparent
//           XX 21 LL     record-organised EF: XX picks the structure
//                        (02 linear fixed, 07 cyclic, 17 compute), LL is
//                        the record length

// Descriptor bytes of tag 0x82.
const (
	fciDescTransparent  = 0x01
	fciDescObject       = 0x11
	fciDescRecordMarker = 0x21
	fciStructLinear     = 0x02
	fciStructCyclic     = 0x07
	fciStructCompute    = 0x17
)

// processFCI fills file metadata from raw FCI bytes. Defaults are applied
// first, so absent or malformed tags leave a working EF of unknown
// structure; the function never fails.
func processFCI(file *File, buf []byte, log *zap.Logger) {
	file.Type = FileTypeWorkingEF
	file.Structure = EFUnknown
	file.Shareable = false
	file.RecordLength = 0
	file.Size = 0

	if v, ok := tlv.FindTag(buf, 0x80); ok && len(v) >= 2 {
		file.Size = int(v[0])<<8 | int(v[1])
		log.Debug("fci: file size", zap.Int("bytes", file.Size))
	}

	v, ok := tlv.FindTag(buf, 0x82)
	if !ok {
		return
	}

	switch {
	case len(v) == 1 && v[0] == fciDescTransparent:
		file.Structure = EFTransparent

	case len(v) == 1 && v[0] == fciDescObject:
		// Object EFs carry structure information the descriptor does not
		// expose; treat them as transparent.
		file.Structure = EFTransparent

	case len(v) == 3 && v[1] == fciDescRecordMarker:
		file.RecordLength = int(v[2])
		switch v[0] {
		case fciStructLinear:
			file.Structure = EFLinearFixed
		case fciStructCyclic:
			file.Structure = EFCyclic
		case fciStructCompute:
			file.Structure = EFUnknown
		default:
			file.Structure = EFUnknown
			file.RecordLength = 0
		}
	}

	log.Debug("fci: descriptor",
		zap.String("structure", file.Structure.String()),
		zap.Int("record_length", file.RecordLength))
}
