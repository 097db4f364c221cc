// Package hash provides the fixed-width digest type used to identify
// MKVS nodes, transaction inputs/outputs, and block headers.
package hash

import (
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
)

// Size is the size of the hash in bytes.
const Size = 32

// Hash is a cryptographic hash, truncated SHA-512/256.
type Hash [Size]byte

// String returns the hex string representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h Hash) MarshalBinary() ([]byte, error) {
	out := make([]byte, Size)
	copy(out, h[:])
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (h *Hash) UnmarshalBinary(data []byte) error {
	if len(data) != Size {
		return fmt.Errorf("hash: unexpected size (got: %d, expected: %d)", len(data), Size)
	}
	copy(h[:], data)
	return nil
}

// Equal compares two hashes for equality.
func (h Hash) Equal(other Hash) bool {
	return h == other
}

// IsEmpty returns true iff the hash is the empty hash.
func (h Hash) IsEmpty() bool {
	return h == Empty()
}

// From sets the hash to the digest of data, the same value DigestBytes
// returns.
func (h *Hash) From(data []byte) {
	*h = DigestBytes(data)
}

// DigestBytes returns the hash of a byte slice.
func DigestBytes(data []byte) Hash {
	sum := sha512.Sum512_256(data)
	return Hash(sum)
}

// ErrMalformed is the error returned when a serialized hash is malformed.
var ErrMalformed = errors.New("hash: malformed hash")

var emptyHash Hash

func init() {
	emptyHash = DigestBytes(nil)
}

// Empty returns the hash of the empty byte string.
func Empty() Hash {
	return emptyHash
}
