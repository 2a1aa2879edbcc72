package starcos

import (
	"fmt"

	"github.com/spk23/starcos/pkg/apdu"
)

// FILE ADMINISTRATION:
// Creating and deleting files uses the STARCOS proprietary command set
// (CLA | 0x80). The record layouts below follow the SPK 2.3 reference:
// access conditions and secure-messaging bytes are fixed to "always" since
// the driver does not model the card's AC scheme.
//
// Both operations mutate the filesystem underneath the cached current
// location, so they invalidate the path cache.

// CreateFile creates f on the card. For a working EF the file's ID,
// structure and geometry (Size for transparent files, RecordCount and
// RecordLength for record-organised ones) must be set. For a DF the card is
// first asked to allocate the space (REGISTER DF), then the directory is
// created; a DF without a Name gets its two FID bytes as its AID, which the
// card requires.
func (c *Card) CreateFile(f *File) error {
	switch f.Type {
	case FileTypeWorkingEF:
		return c.createEF(f)
	case FileTypeDF:
		return c.createDF(f)
	}
	return fmt.Errorf("%w: unsupported file type", ErrInvalidArguments)
}

func (c *Card) createEF(f *File) error {
	// FID, 9 AC bytes, SM byte, SID, 3-byte EF descriptor.
	buf := make([]byte, 16)
	buf[0] = byte(f.ID >> 8)
	buf[1] = byte(f.ID)

	switch f.Structure {
	case EFLinearFixed:
		buf[13] = 0x82
		buf[14] = byte(f.RecordCount)
		buf[15] = byte(f.RecordLength)
	case EFCyclic:
		buf[13] = 0x84
		buf[14] = byte(f.RecordCount)
		buf[15] = byte(f.RecordLength)
	case EFTransparent:
		buf[13] = 0x81
		buf[14] = byte(f.Size >> 8)
		buf[15] = byte(f.Size)
	default:
		return fmt.Errorf("%w: cannot create EF with structure %s", ErrInvalidArguments, f.Structure)
	}

	res, err := c.exchange(&apdu.Command{
		Cla:  claProprietary,
		Ins:  apdu.InsCreateFile,
		P1:   0x03,
		Data: buf,
	})
	if err != nil {
		return err
	}
	c.InvalidateCache()
	return checkSW(res.Status)
}

func (c *Card) createDF(f *File) error {
	name := f.Name
	if len(name) == 0 {
		name = []byte{byte(f.ID >> 8), byte(f.ID)}
	}
	if len(name) > 16 {
		return fmt.Errorf("%w: DF name must be at most 16 bytes", ErrInvalidArguments)
	}

	// First step: REGISTER DF allocates the requested memory. The DF size
	// travels in P1/P2.
	reg := make([]byte, 0, 3+len(name))
	reg = append(reg, byte(f.ID>>8), byte(f.ID), byte(len(name)))
	reg = append(reg, name...)

	res, err := c.exchange(&apdu.Command{
		Cla:  claProprietary,
		Ins:  apdu.InsRegisterDF,
		P1:   byte(f.Size >> 8),
		P2:   byte(f.Size),
		Data: reg,
	})
	if err != nil {
		return err
	}
	if res.Status != apdu.SWNoError {
		return checkSW(res.Status)
	}

	// Second step: CREATE DF. FID and name again, ISF space, creation ACs
	// and SM bytes (all fixed).
	buf := make([]byte, 25)
	buf[0] = byte(f.ID >> 8)
	buf[1] = byte(f.ID)
	buf[2] = byte(len(name))
	copy(buf[3:], name)
	buf[19] = 0x00 // ISF space
	buf[20] = 0x80
	// buf[21..24]: AC CREATE EF, AC CREATE KEY, SM byte CR, SM byte ISF

	res, err = c.exchange(&apdu.Command{
		Cla:  claProprietary,
		Ins:  apdu.InsCreateFile,
		P1:   0x01,
		Data: buf,
	})
	if err != nil {
		return err
	}
	c.InvalidateCache()
	return checkSW(res.Status)
}

// DeleteFile erases the file addressed by path. STARCOS only supports
// deleting the MF, which clears the whole filesystem (and works only on
// test cards).
func (c *Card) DeleteFile(path Path) error {
	if path.Type != PathTypeFileID || len(path.Value) != 2 {
		return fmt.Errorf("%w: delete requires a file ID path", ErrInvalidArguments)
	}
	if fidAt(path.Value, 0) != MFID {
		return fmt.Errorf("%w: only the MF can be deleted", ErrInvalidArguments)
	}

	res, err := c.exchange(&apdu.Command{
		Cla:  claProprietary,
		Ins:  apdu.InsDeleteFile,
		Data: path.Value,
	})
	if err != nil {
		return err
	}
	c.InvalidateCache()
	return checkSW(res.Status)
}
