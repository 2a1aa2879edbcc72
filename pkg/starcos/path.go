package starcos

import (
	"bytes"
	"fmt"
)

// PATH MODEL:
// A file on a STARCOS SPK 2.3 card can be addressed three ways:
//
// 1. By a two-byte file identifier (FID), resolved relative to the card's
//    current directory.
// 2. By a 1-16 byte dedicated-file name (AID), selecting an application DF.
// 3. By a full path: a sequence of FIDs starting at the master file. The
//    card supports a single level of subdirectories, so a path holds at most
//    three FIDs (MF, one DF, one EF) and is at most 6 bytes long.

// PathType discriminates the addressing modes of a Path.
type PathType int

const (
	// PathTypeFileID addresses a file by its two-byte identifier.
	PathTypeFileID PathType = iota
	// PathTypeDFName addresses a dedicated file by its name (AID).
	PathTypeDFName
	// PathTypeFilePath addresses a file by a sequence of FIDs from the MF.
	PathTypeFilePath
)

// MFID is the fixed file identifier of the master file (the filesystem root).
const MFID uint16 = 0x3F00

// Path addresses a file or application on the card.
type Path struct {
	Type  PathType
	Value []byte
}

// FileIDPath builds a Path addressing a file by its two-byte identifier.
func FileIDPath(id uint16) Path {
	return Path{Type: PathTypeFileID, Value: []byte{byte(id >> 8), byte(id)}}
}

// DFNamePath builds a Path addressing a dedicated file by name (AID).
func DFNamePath(name []byte) Path {
	return Path{Type: PathTypeDFName, Value: append([]byte(nil), name...)}
}

// FilePath builds a root-relative Path from a sequence of file identifiers.
func FilePath(ids ...uint16) Path {
	v := make([]byte, 0, 2*len(ids))
	for _, id := range ids {
		v = append(v, byte(id>>8), byte(id))
	}
	return Path{Type: PathTypeFilePath, Value: v}
}

// validate checks the structural invariants of the path.
func (p Path) validate() error {
	switch p.Type {
	case PathTypeFileID:
		if len(p.Value) != 2 {
			return fmt.Errorf("%w: file ID must be 2 bytes, got %d", ErrInvalidArguments, len(p.Value))
		}
	case PathTypeDFName:
		if len(p.Value) < 1 || len(p.Value) > 16 {
			return fmt.Errorf("%w: DF name must be 1-16 bytes, got %d", ErrInvalidArguments, len(p.Value))
		}
	case PathTypeFilePath:
		// One level of subdirectories: at most MF + DF + EF.
		if len(p.Value)%2 != 0 || len(p.Value) > 6 || len(p.Value) == 0 {
			return fmt.Errorf("%w: path length %d not an even value in 2..6", ErrInvalidArguments, len(p.Value))
		}
		if len(p.Value) == 6 && fidAt(p.Value, 0) != MFID {
			return fmt.Errorf("%w: 3-level path must start at the MF (3F00)", ErrInvalidArguments)
		}
	default:
		return fmt.Errorf("%w: unknown path type %d", ErrInvalidArguments, p.Type)
	}
	return nil
}

// unified returns the root-relative form of a file path: if the first FID is
// not the MF, the MF identifier is prepended. The path cache always stores
// unified paths, so comparisons happen in this form.
func (p Path) unified() Path {
	if p.Type != PathTypeFilePath {
		return p
	}
	if len(p.Value) >= 2 && fidAt(p.Value, 0) == MFID {
		return p
	}
	v := make([]byte, 0, len(p.Value)+2)
	v = append(v, 0x3F, 0x00)
	v = append(v, p.Value...)
	return Path{Type: PathTypeFilePath, Value: v}
}

// lastFID returns the final file identifier of a file path.
func (p Path) lastFID() uint16 {
	return fidAt(p.Value, len(p.Value)-2)
}

// Equal reports whether two paths have the same type and value.
func (p Path) Equal(o Path) bool {
	return p.Type == o.Type && bytes.Equal(p.Value, o.Value)
}

func (p Path) String() string {
	switch p.Type {
	case PathTypeDFName:
		return fmt.Sprintf("aid:%X", p.Value)
	default:
		return fmt.Sprintf("%X", p.Value)
	}
}

// clone returns an independent copy of the path.
func (p Path) clone() Path {
	return Path{Type: p.Type, Value: append([]byte(nil), p.Value...)}
}

func fidAt(v []byte, i int) uint16 {
	return uint16(v[i])<<8 | uint16(v[i+1])
}
