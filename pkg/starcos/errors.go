package starcos

import (
	"errors"
	"fmt"

	"github.com/spk23/starcos/pkg/apdu"
)

// Error kinds surfaced by the driver. Card replies are translated into one
// of these sentinels wrapped in a CardError (or CredentialError) carrying
// the raw status word for diagnostics; transport failures are propagated
// unchanged from the Transmitter.
var (
	ErrInvalidArguments    = errors.New("invalid arguments")
	ErrIncorrectParameters = errors.New("incorrect parameters")
	ErrNotAllowed          = errors.New("command not allowed")
	ErrAccessDenied        = errors.New("access denied")
	ErrFileAlreadyExists   = errors.New("file already exists")
	ErrFileNotFound        = errors.New("file not found")
	ErrUnknownDataReceived = errors.New("unexpected data received from card")
	ErrCardCommandFailed   = errors.New("card command failed")
	ErrCredentialIncorrect = errors.New("verification data incorrect")
	ErrInternal            = errors.New("internal error")
)

// CardError is a non-success card reply translated into an error kind,
// keeping the raw status word and the vendor message.
type CardError struct {
	Kind    error
	SW      apdu.StatusWord
	Message string
}

func (e *CardError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (SW %s)", e.Kind, e.Message, e.SW)
	}
	return fmt.Sprintf("%s (SW %s)", e.Kind, e.SW)
}

func (e *CardError) Unwrap() error { return e.Kind }

// CredentialError is a 63CX reply: the verification data was wrong and the
// low nibble of SW2 counts the remaining attempts.
type CredentialError struct {
	SW             apdu.StatusWord
	RemainingTries int
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("verification failed (remaining tries: %d)", e.RemainingTries)
}

func (e *CredentialError) Unwrap() error { return ErrCredentialIncorrect }

// STARCOS-specific status words. The card reuses a handful of codes outside
// the ISO 7816-4 assignments; these take precedence over the generic table.
var starcosErrors = []struct {
	sw      apdu.StatusWord
	kind    error
	message string
}{
	{0x6600, ErrIncorrectParameters, "error setting the security environment"},
	{0x66F0, ErrIncorrectParameters, "no space left for padding"},
	{0x69F0, ErrNotAllowed, "command not allowed"},
	{0x6A89, ErrFileAlreadyExists, "file exists"},
	{0x6A8A, ErrFileAlreadyExists, "application exists"},
	{0x6F01, ErrCardCommandFailed, "public key not complete"},
	{0x6F02, ErrCardCommandFailed, "data overflow"},
	{0x6F03, ErrCardCommandFailed, "invalid command sequence"},
	{0x6F05, ErrCardCommandFailed, "security environment invalid"},
	{0x6F07, ErrFileNotFound, "key part not found"},
	{0x6F08, ErrCardCommandFailed, "signature failed"},
	{0x6F0A, ErrIncorrectParameters, "key format does not match key length"},
	{0x6F0B, ErrIncorrectParameters, "length of key component inconsistent with algorithm"},
	{0x6F81, ErrCardCommandFailed, "system error"},
}

// Generic ISO 7816-4 status words, consulted when no vendor entry matches.
var isoErrors = []struct {
	sw      apdu.StatusWord
	kind    error
	message string
}{
	{apdu.SWWrongLength, ErrIncorrectParameters, "wrong length"},
	{apdu.SWSecurityNotSatisfied, ErrAccessDenied, "security status not satisfied"},
	{apdu.SWAuthMethodBlocked, ErrAccessDenied, "authentication method blocked"},
	{apdu.SWConditionsNotSat, ErrNotAllowed, "conditions of use not satisfied"},
	{apdu.SWNoCurrentEF, ErrNotAllowed, "no current EF selected"},
	{apdu.SWIncorrectParamsData, ErrIncorrectParameters, "incorrect parameters in data field"},
	{apdu.SWFuncNotSupported, ErrCardCommandFailed, "function not supported"},
	{apdu.SWFileNotFound, ErrFileNotFound, "file not found"},
	{apdu.SWRecordNotFound, ErrFileNotFound, "record not found"},
	{apdu.SWNotEnoughMemory, ErrCardCommandFailed, "not enough memory space in the file"},
	{apdu.SWIncorrectP1P2, ErrIncorrectParameters, "incorrect parameters P1-P2"},
	{apdu.SWRefDataNotFound, ErrFileNotFound, "referenced data not found"},
	{apdu.SWWrongP1P2, ErrIncorrectParameters, "wrong parameters P1-P2"},
	{apdu.SWInsInvalid, ErrCardCommandFailed, "instruction code not supported"},
	{apdu.SWClaNotSupported, ErrCardCommandFailed, "class not supported"},
	{apdu.SWUnknown, ErrCardCommandFailed, "no precise diagnosis"},
}

// checkSW translates a status word into a driver error. Any 90XX status is
// success. 63CX carries the remaining verification attempts. Vendor codes
// are matched first, then the generic ISO table.
func checkSW(sw apdu.StatusWord) error {
	if sw.SW1() == 0x90 {
		return nil
	}
	if sw.IsCounter() {
		return &CredentialError{SW: sw, RemainingTries: sw.Counter()}
	}

	for _, e := range starcosErrors {
		if e.sw == sw {
			return &CardError{Kind: e.kind, SW: sw, Message: e.message}
		}
	}
	for _, e := range isoErrors {
		if e.sw == sw {
			return &CardError{Kind: e.kind, SW: sw, Message: e.message}
		}
	}

	return &CardError{Kind: ErrCardCommandFailed, SW: sw}
}
