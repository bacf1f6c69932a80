package lightning

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashSize is the length of a preimage hash in bytes.
const HashSize = sha256.Size

// Hash identifies an invoice or payment by the SHA-256 of its preimage.
type Hash []byte

func ParseHash(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != HashSize {
		return nil, fmt.Errorf("invalid hash length %d", len(b))
	}
	return Hash(b), nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h)
}

// Preimage is the secret whose hash identifies an invoice. Revealing it
// proves the payment.
type Preimage []byte

func ParsePreimage(s string) (Preimage, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid preimage %q: %w", s, err)
	}
	return Preimage(b), nil
}

func (p Preimage) Hash() Hash {
	sum := sha256.Sum256(p)
	return Hash(sum[:])
}

func (p Preimage) String() string {
	return hex.EncodeToString(p)
}
