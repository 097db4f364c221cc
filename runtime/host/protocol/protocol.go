package protocol

import (
	"context"

	"github.com/linghuying/oasis-core/go/common/namespace"
)

// Protocol is the dispatcher's view of the host process: an external
// collaborator exposing SendResponse and GetRuntimeID. A synchronous
// Call is also exposed here, since the MKVS host read syncer and the
// untrusted local storage / consensus block fetch paths all need some
// host round trip; this is still wire format the host process owns,
// not a deviation from the dispatcher's own responsibilities.
type Protocol interface {
	// GetRuntimeID returns the runtime identity the host expects this
	// process to be serving. The dispatcher checks every execute/check/
	// query header against this and aborts on mismatch.
	GetRuntimeID() namespace.Namespace

	// SendResponse delivers the response body for the request with the
	// given id back to the host.
	SendResponse(id uint64, body Body) error

	// Call issues a synchronous request to the host and blocks for its
	// response, used for MKVS sync, local storage, and consensus block
	// fetches.
	Call(ctx context.Context, body Body) (*Body, error)
}
