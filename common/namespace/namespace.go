// Package namespace provides the runtime namespace identifier type.
package namespace

import "encoding/hex"

// Size is the size of a namespace identifier in bytes.
const Size = 32

// Namespace is a 32-byte runtime identifier.
type Namespace [Size]byte

// String returns the hex string representation of the namespace.
func (n Namespace) String() string {
	return hex.EncodeToString(n[:])
}

// Equal compares two namespaces for equality.
func (n Namespace) Equal(other Namespace) bool {
	return n == other
}
