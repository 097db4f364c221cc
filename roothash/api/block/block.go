// Package block defines the runtime block header that the dispatcher
// replays transactions against and that it extends into a new
// ComputeResultsHeader after a successful execute.
package block

import (
	"github.com/linghuying/oasis-core/go/common/cbor"
	"github.com/linghuying/oasis-core/go/common/crypto/hash"
	"github.com/linghuying/oasis-core/go/common/namespace"
)

// Header is a runtime block header.
type Header struct {
	// Namespace is the runtime ID this block belongs to.
	Namespace namespace.Namespace `json:"namespace"`
	// Round is the block round.
	Round uint64 `json:"round"`
	// Timestamp is the block timestamp (seconds since the Unix epoch).
	Timestamp uint64 `json:"timestamp"`
	// StateRoot is the root hash of the state after applying this block.
	StateRoot hash.Hash `json:"state_root"`
	// IORoot is the root hash of the I/O tree for this block's batch.
	IORoot hash.Hash `json:"io_root"`
}

// EncodedHash returns the hash of the CBOR encoding of the header, used
// as the ComputeResultsHeader's PreviousHash.
func (h *Header) EncodedHash() hash.Hash {
	return hash.DigestBytes(cbor.Marshal(h))
}

// Block is a runtime block: a header plus nothing else at the dispatcher
// boundary (the full block also carries a commitment to the I/O batch
// root, which is represented separately as the IORoot field above).
type Block struct {
	Header Header `json:"header"`
}
