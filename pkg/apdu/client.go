package apdu

import (
	"fmt"
)

// CLIENT & PROTOCOL LOGIC:
// The Client drives a physical card connection and absorbs the ISO 7816-3
// transport behaviors that T=0 cards expose to the application layer:
//
// 1. "61 XX" (Response Available):
//    The card indicates that XX bytes are waiting. The client sends a
//    GET RESPONSE command and appends the retrieved bytes to the result.
//
// 2. "6C XX" (Wrong Length):
//    The expected length (Le) was incorrect and the card suggests XX.
//    The client re-sends the original command with Le = XX.
//
// The status word of the INITIAL exchange is preserved in the Result: the
// STARCOS selection logic distinguishes 0x61XX, 0x9000 and 0x6284 replies,
// so the protocol handling must not mask the first status the card produced
// (a 6CXX correction is the exception: its replacement status stands in).

// Transmitter abstracts the physical card connection.
// *scard.Card satisfies this interface directly.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Exchange is one completed command/response pair.
type Exchange struct {
	Command  *Command
	Response *Response
}

// Result is the outcome of one logical command: the consolidated response
// data, the status word the caller should interpret, and the full exchange
// log for diagnostics.
type Result struct {
	Data   []byte
	Status StatusWord

	Exchanges []Exchange
}

// Client manages the high-level communication with the card.
type Client struct {
	card Transmitter
}

// NewClient creates a new Client over a card connection.
func NewClient(card Transmitter) *Client {
	return &Client{card: card}
}

// maxProtocolRounds bounds 61xx/6Cxx follow-ups so a misbehaving card
// cannot trap the client in an exchange loop.
const maxProtocolRounds = 8

// Exchange transmits a command and handles the 61xx/6Cxx protocol rounds.
// Transport failures are returned as-is; status words are never interpreted
// beyond the transport-level handling described above.
func (c *Client) Exchange(cmd *Command) (*Result, error) {
	res := &Result{}

	next := cmd
	for round := 0; round < maxProtocolRounds; round++ {
		resp, err := c.transmit(next)
		if err != nil {
			return nil, err
		}
		res.Exchanges = append(res.Exchanges, Exchange{Command: next, Response: resp})
		res.Data = append(res.Data, resp.Data...)

		sw := resp.Status

		switch {
		case sw.HasMoreData():
			// Keep the first meaningful status; follow-up GET RESPONSE
			// rounds only contribute data.
			if res.Status == 0 {
				res.Status = sw
			}
			next = &Command{
				Cla:       cmd.Cla,
				Ins:       InsGetResponse,
				Ne:        int(sw.SW2()),
				Sensitive: cmd.Sensitive,
			}

		case sw.IsWrongLength():
			// Re-issue the original command with the corrected Le.
			// Whatever came with the 6CXX reply is not response data.
			res.Data = res.Data[:len(res.Data)-len(resp.Data)]
			fixed := *next
			fixed.Ne = int(sw.SW2())
			next = &fixed

		default:
			if res.Status == 0 {
				res.Status = sw
			}
			return res, nil
		}
	}

	return nil, fmt.Errorf("card did not conclude exchange after %d rounds", maxProtocolRounds)
}

func (c *Client) transmit(cmd *Command) (*Response, error) {
	raw, err := cmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	rawResp, err := c.card.Transmit(raw)
	if err != nil {
		return nil, fmt.Errorf("transmission error: %w", err)
	}

	return ParseResponse(rawResp)
}
