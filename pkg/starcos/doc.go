/*
Package starcos implements the card-side protocol logic for STARCOS SPK 2.3
smart cards: it turns filesystem and cryptographic requests into the APDU
exchanges this card family expects, and interprets the replies back into
structured results.

# Sessions

All protocol state lives in a Card session bound to one physical connection.
Two pieces of state matter:

  - The path cache: the driver's belief about where the card's selection
    cursor currently sits. SelectFile consults it to skip redundant SELECT
    commands and updates it after every successful selection.
  - The parked security environment: SetSecurityEnv stores the operation and
    key/algorithm references; the next ComputeSignature or Decipher call
    establishes the environment on the card, runs the operation, and clears
    the parked state.

A session is synchronous and single-threaded: every operation is a sequence
of blocking exchanges, nothing is retried automatically, and callers
serialize access themselves.

# Selecting files

The card's SELECT response does not say outright whether the target is a
directory or a data file. The driver disambiguates using the status word
0x6284 (a DF without FCI), a 1-byte READ BINARY probe failing with 0x6986
(a DF after all), or an FCI template tagged 0x6F (an EF whose metadata is
then decoded).

# Usage

	card := starcos.NewCard(conn) // conn is e.g. a *scard.Card

	file, err := card.SelectFile(starcos.FilePath(0x3F00, 0x1001, 0x2001))
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(file)

	err = card.SetSecurityEnv(&starcos.SecurityEnv{
	    Operation:        starcos.SecOperationSign,
	    RSAPadPKCS1:      true,
	    KeyRef:           []byte{0x81},
	    KeyRefAsymmetric: true,
	})
	if err != nil {
	    log.Fatal(err)
	}

	sig := make([]byte, 128)
	n, err := card.ComputeSignature(digest, sig)

PIN verification, secure messaging and key generation are not part of this
package.
*/
package starcos
