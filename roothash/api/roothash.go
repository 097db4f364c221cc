// Package api defines the roothash-level types threaded into a
// transaction batch dispatch: the results of the previous round, used by
// runtimes that need to react to what happened last round (for example
// to retry messages that failed to be processed by consensus).
package api

import "github.com/linghuying/oasis-core/go/roothash/api/message"

// RoundResults contains information about how a particular round was
// executed by consensus.
type RoundResults struct {
	// Messages are the results of processing the messages emitted in the
	// previous round.
	Messages []message.Event `json:"messages,omitempty"`
	// GoodComputeEntities are the node IDs of compute nodes that
	// positively contributed to the previous round.
	GoodComputeEntities [][]byte `json:"good_compute_entities,omitempty"`
	// BadComputeEntities are the node IDs of compute nodes that negatively
	// contributed to the previous round.
	BadComputeEntities [][]byte `json:"bad_compute_entities,omitempty"`
}
