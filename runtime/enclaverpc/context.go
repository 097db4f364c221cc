package enclaverpc

import (
	"context"

	"github.com/linghuying/oasis-core/go/runtime/rak"
)

// LocalStorage is the untrusted, node-local key/value store RPC
// handlers may use, backed by a HostLocalStorageGetRequest/
// HostLocalStorageSetRequest round trip to the host.
type LocalStorage interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Set(ctx context.Context, key, value []byte) error
}

// Context is the per-call context threaded through every RPC dispatch,
// on both the session and local paths.
type Context struct {
	Ctx context.Context

	RAK *rak.RAK

	// SessionInfo is nil on the local-call path: there is no session to
	// describe.
	SessionInfo *SessionInfo

	UntrustedLocalStorage LocalStorage
}
