package starcos

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spk23/starcos/pkg/tlv"
)

const testDigest = "00 01 02 03 04 05 06 07 08 09 0A 0B 0C 0D 0E 0F 10 11 12 13"

func TestSetSecurityEnvPayload(t *testing.T) {
	tests := []struct {
		name string
		env  SecurityEnv
		p1   byte
		p2   byte
		data string
	}{
		{
			name: "sign with default padding and asymmetric key",
			env:  SecurityEnv{Operation: SecOperationSign, RSAPadPKCS1: true, KeyRef: []byte{0x81}, KeyRefAsymmetric: true},
			p1:   0x41, p2: 0xB6,
			data: "80 01 12 83 01 81",
		},
		{
			name: "decipher with default padding",
			env:  SecurityEnv{Operation: SecOperationDecipher, RSAPadPKCS1: true, KeyRef: []byte{0x81}, KeyRefAsymmetric: true},
			p1:   0x81, p2: 0xB8,
			data: "80 01 02 83 01 81",
		},
		{
			name: "authenticate with explicit algorithm reference",
			env:  SecurityEnv{Operation: SecOperationAuthenticate, HasAlgorithmRef: true, AlgorithmRef: 0x11, KeyRef: []byte{0x82}, KeyRefAsymmetric: true},
			p1:   0x41, p2: 0xA4,
			data: "80 01 11 83 01 82",
		},
		{
			name: "symmetric key reference",
			env:  SecurityEnv{Operation: SecOperationDecipher, KeyRef: []byte{0x01, 0x02}},
			p1:   0x81, p2: 0xB8,
			data: "84 02 01 02",
		},
		{
			name: "no references at all",
			env:  SecurityEnv{Operation: SecOperationSign},
			p1:   0x41, p2: 0xB6,
			data: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := NewCard(newFakeCard(t))
			if err := card.SetSecurityEnv(&tt.env); err != nil {
				t.Fatalf("SetSecurityEnv: %v", err)
			}
			if card.mse.p1 != tt.p1 || card.mse.p2 != tt.p2 {
				t.Errorf("P1 P2 = %02X %02X, want %02X %02X", card.mse.p1, card.mse.p2, tt.p1, tt.p2)
			}
			if want := tlv.Hex(tt.data); !bytes.Equal(card.mse.data, want) {
				t.Errorf("payload = %X, want %X", card.mse.data, want)
			}
		})
	}
}

func TestSetSecurityEnvUnsupportedOperation(t *testing.T) {
	card := NewCard(newFakeCard(t))
	if err := card.SetSecurityEnv(&SecurityEnv{Operation: SecOperationNone}); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("got %v, want ErrInvalidArguments", err)
	}
}

func TestComputeSignatureSign(t *testing.T) {
	sig := "D0 D1 D2 D3 D4 D5 D6 D7"
	fake := newFakeCard(t,
		step{want: "00 22 41 B6 06 80 01 12 83 01 81", resp: "90 00"},
		step{want: "00 2A 90 81 14 " + testDigest, resp: "90 00"},
		step{want: "00 2A 9E 9A 00", resp: sig + " 90 00"},
	)
	card := NewCard(fake)

	env := &SecurityEnv{Operation: SecOperationSign, RSAPadPKCS1: true, KeyRef: []byte{0x81}, KeyRefAsymmetric: true}
	if err := card.SetSecurityEnv(env); err != nil {
		t.Fatalf("SetSecurityEnv: %v", err)
	}

	out := make([]byte, 8)
	n, err := card.ComputeSignature(tlv.Hex(testDigest), out)
	if err != nil {
		t.Fatalf("ComputeSignature: %v", err)
	}
	fake.verify()

	if n != 8 || !bytes.Equal(out, tlv.Hex(sig)) {
		t.Errorf("signature = %X (%d bytes), want %s", out[:n], n, sig)
	}

	// The environment is single-use; a second call must fail without
	// touching the card.
	if _, err := card.ComputeSignature(tlv.Hex(testDigest), out); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("reuse: got %v, want ErrInvalidArguments", err)
	}
}

func TestComputeSignatureAuthenticate(t *testing.T) {
	sig := "E0 E1 E2 E3"
	fake := newFakeCard(t,
		step{want: "00 22 41 A4 06 80 01 11 83 01 82", resp: "90 00"},
		step{want: "00 88 10 00 14 " + testDigest + " 00", resp: sig + " 90 00"},
	)
	card := NewCard(fake)

	env := &SecurityEnv{Operation: SecOperationAuthenticate, HasAlgorithmRef: true, AlgorithmRef: 0x11, KeyRef: []byte{0x82}, KeyRefAsymmetric: true}
	if err := card.SetSecurityEnv(env); err != nil {
		t.Fatalf("SetSecurityEnv: %v", err)
	}

	out := make([]byte, 16)
	n, err := card.ComputeSignature(tlv.Hex(testDigest), out)
	if err != nil {
		t.Fatalf("ComputeSignature: %v", err)
	}
	fake.verify()

	if n != 4 || !bytes.Equal(out[:n], tlv.Hex(sig)) {
		t.Errorf("signature = %X (%d bytes), want %s", out[:n], n, sig)
	}
}

func TestComputeSignatureDigestTooLong(t *testing.T) {
	fake := newFakeCard(t,
		step{want: "00 22 41 B6 03 80 01 12", resp: "90 00"},
		step{want: "00 2A 90 81 14 " + testDigest, resp: "90 00"},
		step{want: "00 2A 9E 9A 00", resp: "AA 90 00"},
	)
	card := NewCard(fake)

	if err := card.SetSecurityEnv(&SecurityEnv{Operation: SecOperationSign, RSAPadPKCS1: true}); err != nil {
		t.Fatalf("SetSecurityEnv: %v", err)
	}

	// An oversized digest is rejected up front; the parked environment
	// survives for a corrected retry.
	out := make([]byte, 8)
	if _, err := card.ComputeSignature(make([]byte, 21), out); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("got %v, want ErrInvalidArguments", err)
	}
	if _, err := card.ComputeSignature(tlv.Hex(testDigest), out); err != nil {
		t.Fatalf("retry: %v", err)
	}
	fake.verify()
}

func TestComputeSignatureWrongEnvironment(t *testing.T) {
	// A decipher environment cannot serve a signature. The sequencing error
	// surfaces after the MSE round, and the environment is consumed.
	fake := newFakeCard(t,
		step{want: "00 22 81 B8 03 80 01 02", resp: "90 00"},
	)
	card := NewCard(fake)

	if err := card.SetSecurityEnv(&SecurityEnv{Operation: SecOperationDecipher, RSAPadPKCS1: true}); err != nil {
		t.Fatalf("SetSecurityEnv: %v", err)
	}

	_, err := card.ComputeSignature(tlv.Hex(testDigest), make([]byte, 8))
	fake.verify()

	if !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("got %v, want ErrInvalidArguments", err)
	}
	if _, err := card.ComputeSignature(tlv.Hex(testDigest), make([]byte, 8)); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("reuse: got %v, want ErrInvalidArguments", err)
	}
}

func TestComputeSignatureEnvClearedOnFailure(t *testing.T) {
	fake := newFakeCard(t,
		step{want: "00 22 41 B6 03 80 01 12", resp: "6F 05"},
	)
	card := NewCard(fake)

	if err := card.SetSecurityEnv(&SecurityEnv{Operation: SecOperationSign, RSAPadPKCS1: true}); err != nil {
		t.Fatalf("SetSecurityEnv: %v", err)
	}

	_, err := card.ComputeSignature(tlv.Hex(testDigest), make([]byte, 8))
	if !errors.Is(err, ErrCardCommandFailed) {
		t.Fatalf("got %v, want ErrCardCommandFailed", err)
	}

	// The failed attempt consumed the environment all the same.
	if _, err := card.ComputeSignature(tlv.Hex(testDigest), make([]byte, 8)); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("reuse: got %v, want ErrInvalidArguments", err)
	}
	fake.verify()
}

func TestDecipher(t *testing.T) {
	crgram := "10 11 12 13 14 15 16 17"
	plain := "50 51 52 53"
	fake := newFakeCard(t,
		step{want: "00 22 81 B8 06 80 01 02 83 01 81", resp: "90 00"},
		step{want: "00 2A 80 86 09 00 " + crgram + " 00", resp: plain + " 90 00"},
	)
	card := NewCard(fake)

	env := &SecurityEnv{Operation: SecOperationDecipher, RSAPadPKCS1: true, KeyRef: []byte{0x81}, KeyRefAsymmetric: true}
	if err := card.SetSecurityEnv(env); err != nil {
		t.Fatalf("SetSecurityEnv: %v", err)
	}

	out := make([]byte, 16)
	n, err := card.Decipher(tlv.Hex(crgram), out)
	if err != nil {
		t.Fatalf("Decipher: %v", err)
	}
	fake.verify()

	if n != 4 || !bytes.Equal(out[:n], tlv.Hex(plain)) {
		t.Errorf("plaintext = %X (%d bytes), want %s", out[:n], n, plain)
	}

	if _, err := card.Decipher(tlv.Hex(crgram), out); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("reuse: got %v, want ErrInvalidArguments", err)
	}
}

func TestDecipherCryptogramTooLong(t *testing.T) {
	card := NewCard(newFakeCard(t))

	if err := card.SetSecurityEnv(&SecurityEnv{Operation: SecOperationDecipher, RSAPadPKCS1: true}); err != nil {
		t.Fatalf("SetSecurityEnv: %v", err)
	}
	if _, err := card.Decipher(make([]byte, 256), make([]byte, 8)); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("got %v, want ErrInvalidArguments", err)
	}
}

func TestCryptoWithoutEnvironment(t *testing.T) {
	card := NewCard(newFakeCard(t))

	if _, err := card.ComputeSignature(tlv.Hex(testDigest), make([]byte, 8)); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("ComputeSignature: got %v, want ErrInvalidArguments", err)
	}
	if _, err := card.Decipher(tlv.Hex("01 02"), make([]byte, 8)); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("Decipher: got %v, want ErrInvalidArguments", err)
	}
}
