package starcos

import "fmt"

// FileType distinguishes the two filesystem node kinds of ISO 7816:
// dedicated files (directories) and working elementary files (data).
type FileType int

const (
	FileTypeWorkingEF FileType = iota
	FileTypeDF
)

func (t FileType) String() string {
	if t == FileTypeDF {
		return "DF"
	}
	return "working EF"
}

// EFStructure describes the record organisation of an elementary file.
type EFStructure int

const (
	EFUnknown EFStructure = iota
	EFTransparent
	EFLinearFixed
	EFCyclic
)

func (s EFStructure) String() string {
	switch s {
	case EFTransparent:
		return "transparent"
	case EFLinearFixed:
		return "linear fixed"
	case EFCyclic:
		return "cyclic"
	default:
		return "unknown"
	}
}

// File holds the metadata of a selected or to-be-created file. A fresh File
// is produced for every selection that asks for metadata; it carries no
// identity beyond that single result.
type File struct {
	ID   uint16
	Name []byte // DF name (AID), at most 16 bytes; nil for EFs
	Path Path

	Type         FileType
	Structure    EFStructure
	RecordLength int
	RecordCount  int // used when creating record-organised EFs
	Size         int
	Shareable    bool
}

func (f *File) String() string {
	if f.Type == FileTypeDF {
		if len(f.Name) > 0 {
			return fmt.Sprintf("DF %04X (name %X)", f.ID, f.Name)
		}
		return fmt.Sprintf("DF %04X", f.ID)
	}
	return fmt.Sprintf("EF %04X (%s, size %d)", f.ID, f.Structure, f.Size)
}
