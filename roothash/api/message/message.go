// Package message defines runtime messages: the outbound events a
// runtime emits to consensus, and the inbound messages consensus
// delivers to a runtime.
package message

import (
	"github.com/linghuying/oasis-core/go/common/cbor"
	"github.com/linghuying/oasis-core/go/common/crypto/hash"
)

// Message is a message emitted by the runtime to be processed by
// consensus.
type Message struct {
	// Staking, Registry, etc. sub-messages would each get their own
	// optional field in a full implementation; the dispatcher only needs
	// to be able to hash and count them.
	Raw cbor.RawMessage `json:"raw"`
}

// MessagesHash returns the hash of a list of messages, used to populate
// ComputeResultsHeader.MessagesHash.
func MessagesHash(msgs []Message) hash.Hash {
	if len(msgs) == 0 {
		return hash.Empty()
	}
	return hash.DigestBytes(cbor.Marshal(msgs))
}

// IncomingMessage is a message incoming from the consensus layer into
// the runtime, as delivered on an ExecuteTxBatch request.
type IncomingMessage struct {
	// ID is the unique identifier of the message assigned by consensus.
	ID uint64 `json:"id"`
	// Data is the incoming message payload.
	Data []byte `json:"data,omitempty"`
}

// Event is the result of processing a runtime message emitted in a
// previous round, reported back to the runtime via RoundResults.
type Event struct {
	// Module is the error module in case the message failed.
	Module string `json:"module,omitempty"`
	// Code is the error code in case the message failed.
	Code uint32 `json:"code,omitempty"`
	// Index is the index of the message that triggered the event.
	Index uint32 `json:"index"`
}
