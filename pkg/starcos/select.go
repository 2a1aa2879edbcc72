package starcos

import (
	"bytes"

	"go.uber.org/zap"

	"github.com/spk23/starcos/pkg/apdu"
)

// FILE SELECTION:
// SelectFile translates a Path into the minimal sequence of SELECT commands.
// The session caches the card's current location (a DF name or a
// root-relative FID path) and compares it against the request, so selecting
// a sibling file costs one round-trip and re-selecting the current location
// costs none.
//
// DF/EF DISAMBIGUATION:
// A STARCOS SELECT by FID does not say whether it landed on a directory or a
// data file, so the reply is disambiguated in three steps:
//
//  1. Status 0x6284 ("no FCI"): the target is a DF. The select is re-issued
//     without requesting response data to finalise the cursor move.
//  2. Status 0x61XX/0x9000 with data: possibly an FCI, possibly not. A
//     1-byte READ BINARY probe is sent; if it fails with 0x6986 ("no current
//     EF") the target is a DF after all.
//  3. Any other status: the FID does not exist or access is denied; the
//     status word table decides.

// SelectFile selects the file addressed by path and returns its metadata.
// The returned File is nil when the selection was satisfied from the cache
// without touching the card (the caller already holds the metadata from the
// select that populated the cache). On failure the cache is left unchanged:
// the card's cursor did not move.
func (c *Card) SelectFile(path Path) (*File, error) {
	return c.selectFile(path, true)
}

func (c *Card) selectFile(path Path, wantFile bool) (*File, error) {
	if err := path.validate(); err != nil {
		return nil, err
	}

	c.log.Debug("select",
		zap.String("path", path.String()),
		zap.String("current", c.currentPath.String()),
		zap.Bool("cache_valid", c.cacheValid))

	switch path.Type {
	case PathTypeFileID:
		// Already in the right DF?
		if c.cacheValid &&
			c.currentPath.Type == PathTypeFilePath &&
			len(c.currentPath.Value) >= 2 &&
			c.currentPath.lastFID() == fidAt(path.Value, 0) {
			c.log.Debug("cache hit")
			return nil, nil
		}
		return c.selectFID(fidAt(path.Value, 0), wantFile)

	case PathTypeDFName:
		if c.cacheValid &&
			c.currentPath.Type == PathTypeDFName &&
			bytes.Equal(c.currentPath.Value, path.Value) {
			c.log.Debug("cache hit")
			return nil, nil
		}
		return c.selectAID(path.Value, wantFile)

	case PathTypeFilePath:
		return c.selectPath(path.unified(), wantFile)
	}

	return nil, ErrInternal
}

// selectPath resolves a unified (MF-first) sequence of FIDs, consuming the
// longest prefix already covered by the cache and descending one directory
// per step for the rest.
func (c *Card) selectPath(path Path, wantFile bool) (*File, error) {
	rest := path.Value

	if c.cacheValid &&
		c.currentPath.Type == PathTypeFilePath &&
		len(c.currentPath.Value) >= 2 &&
		len(c.currentPath.Value) <= len(rest) {

		// Longest common prefix in FID units, stopping at the first
		// mismatching pair.
		match := 0
		for match < len(c.currentPath.Value) &&
			fidAt(c.currentPath.Value, match) == fidAt(rest, match) {
			match += 2
		}
		rest = rest[match:]

		if len(rest) == 0 {
			// The requested directory is the current one. Re-selecting it
			// would reset its card-side status, so it is skipped unless the
			// session was configured otherwise.
			if c.reselectDF {
				return c.selectFID(path.lastFID(), wantFile)
			}
			c.log.Debug("cache hit")
			if !wantFile {
				return nil, nil
			}
			return &File{
				ID:        path.lastFID(),
				Path:      c.currentPath.clone(),
				Type:      FileTypeDF,
				Structure: EFUnknown,
			}, nil
		}
	}

	// Descend the remaining directories one hop at a time, then select the
	// terminal FID. Intermediate hops never request metadata; the first
	// failure aborts the walk.
	for len(rest) > 2 {
		if _, err := c.selectFID(fidAt(rest, 0), false); err != nil {
			return nil, err
		}
		rest = rest[2:]
	}
	return c.selectFID(fidAt(rest, 0), wantFile)
}

// selectAID selects an application DF by name. A 0x61XX reply counts as
// success alongside 0x9000.
func (c *Card) selectAID(aid []byte, wantFile bool) (*File, error) {
	res, err := c.exchange(&apdu.Command{
		Cla:  claStandard,
		Ins:  apdu.InsSelect,
		P1:   0x04, // select by DF name
		P2:   0x0C, // no response data
		Data: aid,
	})
	if err != nil {
		return nil, err
	}

	if res.Status != apdu.SWNoError && !res.Status.HasMoreData() {
		return nil, checkSW(res.Status)
	}

	c.currentPath = DFNamePath(aid)
	c.cacheValid = true

	if !wantFile {
		return nil, nil
	}
	return &File{
		Name:      append([]byte(nil), aid...),
		Type:      FileTypeDF,
		Structure: EFUnknown,
	}, nil
}

// selectFID selects a file by its two-byte identifier, requesting FCI to
// tell DFs and EFs apart (see the disambiguation notes above).
func (c *Card) selectFID(id uint16, wantFile bool) (*File, error) {
	data := []byte{byte(id >> 8), byte(id)}

	res, err := c.exchange(&apdu.Command{
		Cla:  claStandard,
		Ins:  apdu.InsSelect,
		P1:   0x00, // select by file ID, first occurrence
		P2:   0x00, // request FCI
		Data: data,
		Ne:   apdu.MaxShortLe,
	})
	if err != nil {
		return nil, err
	}

	isDF := false
	sw := res.Status

	switch {
	case sw == apdu.SWFCIBadFormat:
		// No FCI: the target is a DF. Re-issue without requesting response
		// data to finalise the cursor move.
		isDF = true
		res2, err := c.exchange(&apdu.Command{
			Cla:  claStandard,
			Ins:  apdu.InsSelect,
			P1:   0x00,
			P2:   0x0C, // no response data
			Data: data,
		})
		if err != nil {
			return nil, err
		}
		sw = res2.Status

	case sw.HasMoreData() || sw == apdu.SWNoError:
		// The select returned data (a possible FCI). Probe with a 1-byte
		// READ BINARY: if no EF is selected the target was a DF.
		probe, err := c.exchange(&apdu.Command{
			Cla: claStandard,
			Ins: apdu.InsReadBinary,
			Ne:  1,
		})
		if err != nil {
			return nil, err
		}
		if probe.Status == apdu.SWNoCurrentEF {
			isDF = true
		}
	}

	if !sw.HasMoreData() && sw != apdu.SWNoError {
		return nil, checkSW(sw)
	}

	if isDF {
		// The cursor now sits in the selected DF; cache it root-relative.
		if id == MFID {
			c.currentPath = FilePath(MFID)
		} else {
			c.currentPath = FilePath(MFID, id)
		}
		c.cacheValid = true
	}

	if !wantFile {
		return nil, nil
	}

	file := &File{
		ID:   id,
		Path: c.currentPath.clone(),
	}

	if isDF {
		file.Type = FileTypeDF
		file.Structure = EFUnknown
		return file, nil
	}

	// Assume an EF: the response must be an FCI template (tag 0x6F).
	if len(res.Data) < 2 || res.Data[0] != 0x6F {
		return nil, &CardError{Kind: ErrUnknownDataReceived, SW: res.Status, Message: "missing FCI template tag"}
	}
	if n := int(res.Data[1]); n <= len(res.Data)-2 {
		processFCI(file, res.Data[2:2+n], c.log)
	}
	return file, nil
}
