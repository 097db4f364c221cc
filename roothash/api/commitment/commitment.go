// Package commitment defines the ComputeResultsHeader that the
// dispatcher produces after a successful transaction batch execution and
// signs under the RAK.
package commitment

import (
	"github.com/linghuying/oasis-core/go/common/crypto/hash"
	"github.com/linghuying/oasis-core/go/common/crypto/signature"
)

// ComputeResultsHeaderContext is the domain separation context used when
// signing a ComputeResultsHeader with the RAK.
const ComputeResultsHeaderContext signature.Context = "oasis-core/roothash: compute results header"

// ComputeResultsHeader is the header of a computed batch, committed to
// consensus and (optionally) signed by the node's RAK.
type ComputeResultsHeader struct {
	// Round is the round for which this header is for.
	Round uint64 `json:"round"`
	// PreviousHash is the hash of the previous block header this batch was
	// computed against.
	PreviousHash hash.Hash `json:"previous_hash"`
	// IORoot is the I/O root committed to by the batch, if any.
	IORoot *hash.Hash `json:"io_root,omitempty"`
	// StateRoot is the state root committed to by the batch, if any.
	StateRoot *hash.Hash `json:"state_root,omitempty"`
	// MessagesHash is the hash of the emitted runtime messages, if any.
	MessagesHash *hash.Hash `json:"messages_hash,omitempty"`
}
