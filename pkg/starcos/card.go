package starcos

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/spk23/starcos/pkg/apdu"
	"github.com/spk23/starcos/pkg/tlv"
)

// Class bytes: interindustry commands use 0x00; the STARCOS administration
// commands (create, register, delete) set the proprietary bit.
const (
	claStandard    byte = 0x00
	claProprietary byte = 0x80
)

// Answer-to-reset values of the known STARCOS SPK 2.3 card revisions.
var knownATRs = [][]byte{
	tlv.Hex("3B B7 94 00 C0 24 31 FE 65 53 50 4B 32 33 90 00 B4"),
	tlv.Hex("3B B7 94 00 81 31 FE 65 53 50 4B 32 33 90 00 D1"),
}

// Match reports whether atr identifies a supported STARCOS SPK 2.3 card.
func Match(atr []byte) bool {
	for _, known := range knownATRs {
		if bytes.Equal(atr, known) {
			return true
		}
	}
	return false
}

// AlgorithmFlags describe the padding schemes and hash functions an on-card
// RSA key can be used with.
type AlgorithmFlags uint

const (
	AlgRSAPadPKCS1 AlgorithmFlags = 1 << iota
	AlgRSAPadISO9796
	AlgRSAHashNone
	AlgRSAHashSHA1
	AlgRSAHashMD5
	AlgRSAHashRIPEMD160
)

// RSAAlgorithm describes one RSA capability of the card.
type RSAAlgorithm struct {
	KeyLength int
	Flags     AlgorithmFlags
	Exponent  uint32
}

// spk23Flags are the schemes every SPK 2.3 revision supports.
const spk23Flags = AlgRSAPadPKCS1 | AlgRSAPadISO9796 |
	AlgRSAHashNone | AlgRSAHashSHA1 | AlgRSAHashMD5 | AlgRSAHashRIPEMD160

// Card is one session against a STARCOS SPK 2.3 card. It owns the mutable
// protocol state: the cached current location of the card's selection cursor
// and the pending security-environment configuration. A Card must not be
// shared across goroutines; callers serialize all operations themselves.
type Card struct {
	client *apdu.Client
	log    *zap.Logger

	// reselectDF re-issues a SELECT when the requested directory is already
	// the cached current one. Off by default: re-selecting resets the
	// card-side status of the DF.
	reselectDF bool

	currentPath Path
	cacheValid  bool

	mse mseState

	algorithms []RSAAlgorithm
}

// Option configures a Card session.
type Option func(*Card)

// WithLogger routes the protocol debug log to l. Responses of sensitive
// commands are never logged.
func WithLogger(l *zap.Logger) Option {
	return func(c *Card) { c.log = l }
}

// WithReselectCurrentDF makes SelectFile re-issue a SELECT even when the
// requested directory equals the cached current one. Use it for cards whose
// applications depend on the DF status reset such a re-selection causes.
func WithReselectCurrentDF() Option {
	return func(c *Card) { c.reselectDF = true }
}

// NewCard opens a driver session over a card connection. The connection is
// typically a *scard.Card, but anything implementing apdu.Transmitter works.
func NewCard(t apdu.Transmitter, opts ...Option) *Card {
	c := &Card{
		client: apdu.NewClient(t),
		log:    zap.NewNop(),
		algorithms: []RSAAlgorithm{
			{KeyLength: 512, Flags: spk23Flags, Exponent: 0x10001},
			{KeyLength: 768, Flags: spk23Flags, Exponent: 0x10001},
			{KeyLength: 1024, Flags: spk23Flags, Exponent: 0x10001},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Algorithms returns the RSA capabilities of the card family.
func (c *Card) Algorithms() []RSAAlgorithm {
	return append([]RSAAlgorithm(nil), c.algorithms...)
}

// MaxReadLen is the largest Le the card accepts for READ BINARY and friends.
func (c *Card) MaxReadLen() int { return 0x80 }

// InvalidateCache discards the cached current location, forcing the next
// selection to resolve from the root. Any command that can move the card's
// selection cursor unpredictably must call this.
func (c *Card) InvalidateCache() {
	c.cacheValid = false
}

// exchange sends one logical command and logs the exchange. Status words are
// not interpreted here; callers decide what a given status means in context.
func (c *Card) exchange(cmd *apdu.Command) (*apdu.Result, error) {
	res, err := c.client.Exchange(cmd)
	if err != nil {
		c.log.Debug("exchange failed", zap.String("command", cmd.String()), zap.Error(err))
		return nil, err
	}

	if cmd.Sensitive {
		c.log.Debug("exchange",
			zap.String("command", cmd.String()),
			zap.String("sw", res.Status.String()),
			zap.Int("response_bytes", len(res.Data)))
	} else {
		c.log.Debug("exchange",
			zap.String("command", cmd.String()),
			zap.String("sw", res.Status.String()),
			zap.String("response", fmt.Sprintf("%X", res.Data)))
	}
	return res, nil
}
