package starcos

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spk23/starcos/pkg/apdu"
)

// SECURITY ENVIRONMENT SEQUENCING:
// SetSecurityEnv does not talk to the card. It validates the requested
// operation, derives the MANAGE SECURITY ENVIRONMENT parameters and payload,
// and parks them in the session. The MSE command is issued immediately
// before the corresponding crypto operation by ComputeSignature or Decipher,
// and the parked state is zeroed once that operation completes, successfully
// or not, so a stale configuration can never leak into a later call.

// SecOperation designates the cryptographic operation an environment is
// established for.
type SecOperation int

const (
	SecOperationNone SecOperation = iota
	SecOperationDecipher
	SecOperationSign
	SecOperationAuthenticate
)

func (op SecOperation) String() string {
	switch op {
	case SecOperationDecipher:
		return "decipher"
	case SecOperationSign:
		return "sign"
	case SecOperationAuthenticate:
		return "authenticate"
	default:
		return "none"
	}
}

// SecurityEnv describes the environment to establish for one crypto
// operation. Exactly one of the card's operation templates is configured at
// a time; a new SetSecurityEnv fully replaces the previous configuration.
type SecurityEnv struct {
	Operation SecOperation

	// HasAlgorithmRef supplies an explicit algorithm reference (tag 0x80).
	HasAlgorithmRef bool
	AlgorithmRef    byte

	// RSAPadPKCS1 marks an RSA PKCS#1 operation without an explicit
	// algorithm reference; the driver then injects the card's default
	// padding-scheme byte (BT 2 for decipher, BT 1 for sign/authenticate).
	RSAPadPKCS1 bool

	// KeyRef selects the key to use (tag 0x83 for asymmetric keys, 0x84
	// for symmetric ones).
	KeyRef           []byte
	KeyRefAsymmetric bool
}

// Default padding-scheme bytes for RSA PKCS#1 operations.
const (
	padDecipherBT2 = 0x02
	padSignBT1     = 0x12
)

// mseState is the parked MANAGE SECURITY ENVIRONMENT command, consumed by
// the next crypto operation.
type mseState struct {
	op     SecOperation
	p1, p2 byte
	data   []byte
}

// SetSecurityEnv validates env and parks the MSE parameters for the next
// ComputeSignature or Decipher call. No card exchange happens here.
func (c *Card) SetSecurityEnv(env *SecurityEnv) error {
	var p1, p2 byte
	switch env.Operation {
	case SecOperationDecipher:
		p1, p2 = 0x81, 0xB8
	case SecOperationSign:
		p1, p2 = 0x41, 0xB6
	case SecOperationAuthenticate:
		p1, p2 = 0x41, 0xA4
	default:
		return fmt.Errorf("%w: unsupported security operation %d", ErrInvalidArguments, env.Operation)
	}

	var data []byte
	switch {
	case env.HasAlgorithmRef:
		data = append(data, 0x80, 0x01, env.AlgorithmRef)
	case env.RSAPadPKCS1:
		if env.Operation == SecOperationDecipher {
			data = append(data, 0x80, 0x01, padDecipherBT2)
		} else {
			data = append(data, 0x80, 0x01, padSignBT1)
		}
	}

	if len(env.KeyRef) > 0 {
		if env.KeyRefAsymmetric {
			data = append(data, 0x83)
		} else {
			data = append(data, 0x84)
		}
		data = append(data, byte(len(env.KeyRef)))
		data = append(data, env.KeyRef...)
	}

	c.mse = mseState{op: env.Operation, p1: p1, p2: p2, data: data}

	c.log.Debug("security environment parked",
		zap.String("operation", env.Operation.String()),
		zap.Int("payload_bytes", len(data)))
	return nil
}

// establishEnv issues the parked MSE command. Anything but 0x9000 aborts.
func (c *Card) establishEnv() error {
	res, err := c.exchange(&apdu.Command{
		Cla:  claStandard,
		Ins:  apdu.InsManageSecEnv,
		P1:   c.mse.p1,
		P2:   c.mse.p2,
		Data: c.mse.data,
	})
	if err != nil {
		return err
	}
	if res.Status != apdu.SWNoError {
		return checkSW(res.Status)
	}
	return nil
}

// clearEnv zeroes the parked environment. Every crypto operation that ran
// its command sequence ends here, regardless of outcome.
func (c *Card) clearEnv() {
	for i := range c.mse.data {
		c.mse.data[i] = 0
	}
	c.mse = mseState{}
}

// ComputeSignature signs a hash value with the environment parked by
// SetSecurityEnv (operation Sign or Authenticate) and copies the signature
// into out, truncating to len(out). It returns the number of bytes copied.
// The digest is at most 20 bytes (one hash block).
func (c *Card) ComputeSignature(digest, out []byte) (int, error) {
	if len(digest) > 20 {
		return 0, fmt.Errorf("%w: digest exceeds 20 bytes", ErrInvalidArguments)
	}
	if c.mse.op == SecOperationNone {
		return 0, fmt.Errorf("%w: no security environment configured", ErrInvalidArguments)
	}
	defer c.clearEnv()

	if err := c.establishEnv(); err != nil {
		return 0, err
	}

	switch c.mse.op {
	case SecOperationSign:
		// PSO: SET HASH VALUE, then PSO: COMPUTE DIGITAL SIGNATURE.
		res, err := c.exchange(&apdu.Command{
			Cla:  claStandard,
			Ins:  apdu.InsPerformSecOp,
			P1:   0x90,
			P2:   0x81,
			Data: digest,
		})
		if err != nil {
			return 0, err
		}
		if res.Status != apdu.SWNoError {
			return 0, checkSW(res.Status)
		}

		res, err = c.exchange(&apdu.Command{
			Cla:       claStandard,
			Ins:       apdu.InsPerformSecOp,
			P1:        0x9E,
			P2:        0x9A,
			Ne:        apdu.MaxShortLe,
			Sensitive: true,
		})
		if err != nil {
			return 0, err
		}
		if !res.Status.IsSuccess() {
			return 0, checkSW(res.Status)
		}
		return copy(out, res.Data), nil

	case SecOperationAuthenticate:
		// INTERNAL AUTHENTICATE carries the hash directly.
		res, err := c.exchange(&apdu.Command{
			Cla:       claStandard,
			Ins:       apdu.InsInternalAuth,
			P1:        0x10,
			P2:        0x00,
			Data:      digest,
			Ne:        apdu.MaxShortLe,
			Sensitive: true,
		})
		if err != nil {
			return 0, err
		}
		if !res.Status.IsSuccess() {
			return 0, checkSW(res.Status)
		}
		return copy(out, res.Data), nil
	}

	// The environment was established for deciphering.
	return 0, fmt.Errorf("%w: environment configured for %s", ErrInvalidArguments, c.mse.op)
}

// Decipher decrypts a cryptogram with the environment parked by
// SetSecurityEnv and copies the plaintext into out, truncating to len(out).
// It returns the number of bytes copied. The cryptogram is at most 255
// bytes (one short APDU minus the padding indicator).
func (c *Card) Decipher(cryptogram, out []byte) (int, error) {
	if len(cryptogram) > 255 {
		return 0, fmt.Errorf("%w: cryptogram exceeds 255 bytes", ErrInvalidArguments)
	}
	if c.mse.op == SecOperationNone {
		return 0, fmt.Errorf("%w: no security environment configured", ErrInvalidArguments)
	}
	defer c.clearEnv()

	if err := c.establishEnv(); err != nil {
		return 0, err
	}

	// PSO: DECIPHER. The data field is a padding-indicator byte (0x00 = no
	// further indication) followed by the cryptogram.
	data := make([]byte, 0, len(cryptogram)+1)
	data = append(data, 0x00)
	data = append(data, cryptogram...)

	res, err := c.exchange(&apdu.Command{
		Cla:       claStandard,
		Ins:       apdu.InsPerformSecOp,
		P1:        0x80,
		P2:        0x86,
		Data:      data,
		Ne:        apdu.MaxShortLe,
		Sensitive: true,
	})
	if err != nil {
		return 0, err
	}
	if !res.Status.IsSuccess() {
		return 0, checkSW(res.Status)
	}
	return copy(out, res.Data), nil
}
