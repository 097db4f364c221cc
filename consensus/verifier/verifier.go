// Package verifier defines the consensus light-client verification
// contract the dispatcher drives. The concrete verification algorithm —
// a Tendermint light client in production — is out of scope; this
// package only fixes the interface.
package verifier

import (
	consensusAPI "github.com/linghuying/oasis-core/go/consensus/api"
	"github.com/linghuying/oasis-core/go/roothash/api/block"
	"github.com/linghuying/oasis-core/go/roothash/api/commitment"
)

// State is an opaque, verified (or trusted-unverified) consensus state
// handle passed to the transaction sub-dispatcher.
type State interface {
	// Height returns the consensus height this state corresponds to.
	Height() int64
}

// Verifier is the consensus light-client verification contract.
//
// verify must fail-close: it is the dispatcher's only consensus-layer
// integrity check on the execute path.
type Verifier interface {
	// Sync advances the light client to the given consensus height.
	Sync(height uint64) error

	// Verify checks that header is consistent with the consensus state at
	// the given light block and returns a verified State on success.
	Verify(consensusBlock consensusAPI.LightBlock, header block.Header) (State, error)

	// UnverifiedState returns a State for the given light block without
	// performing any verification. Used on the check and query paths,
	// which accept a weaker trust model in exchange for not blocking on
	// light-client sync.
	UnverifiedState(consensusBlock consensusAPI.LightBlock) (State, error)

	// Trust registers a runtime-computed header as trusted without
	// re-verifying it, since the dispatcher itself just computed it.
	Trust(header *commitment.ComputeResultsHeader) error
}
