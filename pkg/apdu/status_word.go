package apdu

import "fmt"

// Status Word (SW1 SW2) handling according to ISO/IEC 7816-4.
//
// Most status words are static two-byte values, but some ranges carry
// contextual data:
//
// 1. '61XX' (SW1=0x61): Process completed, XX more response bytes are
//    available for retrieval with GET RESPONSE.
//
// 2. '6CXX' (SW1=0x6C): Wrong length. XX is the correct Le for the command.
//
// 3. '63CX' (Warning): The lower nibble of SW2 is a counter, typically the
//    number of remaining verification attempts.

// StatusWord represents the two-byte status (SW1 SW2) ending every response.
type StatusWord uint16

// NewStatusWord creates a StatusWord from its two bytes.
func NewStatusWord(sw1, sw2 byte) StatusWord {
	return StatusWord(uint16(sw1)<<8 | uint16(sw2))
}

// SW1 returns the high byte of the status word.
func (sw StatusWord) SW1() byte {
	return byte(sw >> 8)
}

// SW2 returns the low byte of the status word.
func (sw StatusWord) SW2() byte {
	return byte(sw)
}

// IsSuccess reports whether the command was processed successfully: either
// 0x9000 or 0x61XX (success with response data still available).
func (sw StatusWord) IsSuccess() bool {
	return sw == SWNoError || sw.SW1() == 0x61
}

// HasMoreData reports a 0x61XX status (response bytes waiting).
func (sw StatusWord) HasMoreData() bool {
	return sw.SW1() == 0x61
}

// IsWrongLength reports a 0x6CXX status (the card suggests the correct Le).
func (sw StatusWord) IsWrongLength() bool {
	return sw.SW1() == 0x6C
}

// IsCounter reports a 0x63CX status. The counter value is in the low nibble
// of SW2 (see Counter).
func (sw StatusWord) IsCounter() bool {
	return sw.SW1() == 0x63 && sw.SW2()&0xF0 == 0xC0
}

// Counter returns the counter value of a 0x63CX status word.
func (sw StatusWord) Counter() int {
	return int(sw.SW2() & 0x0F)
}

func (sw StatusWord) String() string {
	return fmt.Sprintf("%04X", uint16(sw))
}

// Status words referenced across the STARCOS protocol flows.
const (
	// SWNoError is the universal success status.
	SWNoError StatusWord = 0x9000

	// SWFCIBadFormat is returned by a STARCOS SELECT when the target is a
	// DF without File Control Information.
	SWFCIBadFormat StatusWord = 0x6284

	// SWNoCurrentEF is returned by READ BINARY when no elementary file is
	// currently selected.
	SWNoCurrentEF StatusWord = 0x6986

	SWSecurityNotSatisfied StatusWord = 0x6982
	SWAuthMethodBlocked    StatusWord = 0x6983
	SWConditionsNotSat     StatusWord = 0x6985
	SWWrongLength          StatusWord = 0x6700
	SWIncorrectParamsData  StatusWord = 0x6A80
	SWFuncNotSupported     StatusWord = 0x6A81
	SWFileNotFound         StatusWord = 0x6A82
	SWRecordNotFound       StatusWord = 0x6A83
	SWNotEnoughMemory      StatusWord = 0x6A84
	SWIncorrectP1P2        StatusWord = 0x6A86
	SWRefDataNotFound      StatusWord = 0x6A88
	SWFileAlreadyExists    StatusWord = 0x6A89
	SWDFNameAlreadyExists  StatusWord = 0x6A8A
	SWWrongP1P2            StatusWord = 0x6B00
	SWInsInvalid           StatusWord = 0x6D00
	SWClaNotSupported      StatusWord = 0x6E00
	SWUnknown              StatusWord = 0x6F00
)
