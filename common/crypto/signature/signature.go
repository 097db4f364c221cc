// Package signature provides domain-separated signing for the runtime
// attestation key and other node-held keys.
//
// Signing uses github.com/oasisprotocol/curve25519-voi's ed25519
// implementation, a constant-time, side-channel-hardened drop-in for
// crypto/ed25519.
package signature

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
)

// PublicKeySize is the size of a public key in bytes.
const PublicKeySize = ed25519.PublicKeySize

// SignatureSize is the size of a raw signature in bytes.
const SignatureSize = ed25519.SignatureSize

// PublicKey is a public key used for signature verification.
type PublicKey [PublicKeySize]byte

// String returns the hex string representation of the public key.
func (p PublicKey) String() string {
	return hex.EncodeToString(p[:])
}

// IsValid returns true iff the public key is well-formed (non-zero).
func (p PublicKey) IsValid() bool {
	var empty PublicKey
	return p != empty
}

// RawSignature is a raw byte-level signature.
type RawSignature [SignatureSize]byte

// Signature is a signature bundled with the signer's public key.
type Signature struct {
	PublicKey PublicKey    `json:"public_key"`
	Signature RawSignature `json:"signature"`
}

// Context is a domain separation context used to prevent cross-protocol
// signature confusion.
type Context string

// PrepareSignerMessage prepends the domain separation context to the
// message being signed, so that a signature produced for one context can
// never be replayed as valid under another.
func PrepareSignerMessage(context Context, message []byte) []byte {
	out := make([]byte, 0, len(context)+len(message))
	out = append(out, []byte(context)...)
	out = append(out, message...)
	return out
}

// Signer signs messages under a given domain separation context.
type Signer interface {
	// Public returns the signer's public key.
	Public() PublicKey
	// ContextSign signs message under context and returns the raw signature.
	ContextSign(context Context, message []byte) (RawSignature, error)
}

// MemorySigner is a Signer backed by an in-memory ed25519 private key.
//
// It is suitable for tests and for the RAK when no TEE-backed keystore is
// available.
type MemorySigner struct {
	privateKey ed25519.PrivateKey
	publicKey  PublicKey
}

// NewMemorySigner generates a new random MemorySigner.
func NewMemorySigner() (*MemorySigner, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("signature: failed to generate key: %w", err)
	}
	var pk PublicKey
	copy(pk[:], pub)
	return &MemorySigner{privateKey: priv, publicKey: pk}, nil
}

// Public implements Signer.
func (s *MemorySigner) Public() PublicKey {
	return s.publicKey
}

// ContextSign implements Signer.
func (s *MemorySigner) ContextSign(context Context, message []byte) (RawSignature, error) {
	var sig RawSignature
	digest := PrepareSignerMessage(context, message)
	raw := ed25519.Sign(s.privateKey, digest)
	copy(sig[:], raw)
	return sig, nil
}

// VerifyWithContext verifies that sig is a valid signature of message under
// context by the holder of pub.
func VerifyWithContext(pub PublicKey, context Context, message []byte, sig RawSignature) bool {
	digest := PrepareSignerMessage(context, message)
	return ed25519.Verify(ed25519.PublicKey(pub[:]), digest, sig[:])
}
