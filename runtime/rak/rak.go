// Package rak wraps the runtime attestation key: the ed25519 key pair
// an enclave runtime uses to sign its compute results headers so a
// relying party can verify the result actually came from attested
// enclave code.
package rak

import (
	"github.com/linghuying/oasis-core/go/common/crypto/signature"
)

// ComputeResultsHeaderContext is the domain separator compute results
// headers are signed under.
const ComputeResultsHeaderContext signature.Context = "oasis-core/roothash: compute results header"

// RAK holds the runtime's attestation signing key. A RAK with no
// backing signer is valid and reports no public key: the dispatcher
// falls back to an empty signature in that case.
type RAK struct {
	signer signature.Signer
}

// New wraps signer as a RAK. A nil signer is a valid, keyless RAK.
func New(signer signature.Signer) *RAK {
	return &RAK{signer: signer}
}

// PublicKey returns the RAK's public key, or the zero key if this RAK
// has no backing signer.
func (r *RAK) PublicKey() (signature.PublicKey, bool) {
	if r == nil || r.signer == nil {
		return signature.PublicKey{}, false
	}
	return r.signer.Public(), true
}

// Sign signs message under the given domain-separation context. Callers
// must check PublicKey's ok return first; Sign on a keyless RAK returns
// the zero signature.
func (r *RAK) Sign(context signature.Context, message []byte) (signature.RawSignature, error) {
	if r == nil || r.signer == nil {
		return signature.RawSignature{}, nil
	}
	return r.signer.ContextSign(context, message)
}
