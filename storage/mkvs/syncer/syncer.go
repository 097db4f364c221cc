// Package syncer defines the read-side of the MKVS remote sync protocol:
// the contract a Tree uses to fetch nodes it does not have materialized
// locally, such as a host-backed read syncer bound to the runtime
// endpoint.
package syncer

import (
	"context"
	"errors"

	storage "github.com/linghuying/oasis-core/go/storage/api"
)

// ErrUnsupported is returned by a ReadSyncer that cannot service a given
// request shape (e.g. NoopReadSyncer, which services none of them).
var ErrUnsupported = errors.New("mkvs/syncer: request not supported by this read syncer")

// ReadSyncer is the read side of the MKVS synchronization protocol.
type ReadSyncer interface {
	SyncGet(ctx context.Context, request *storage.GetRequest) (*storage.ProofResponse, error)
	SyncGetPrefixes(ctx context.Context, request *storage.GetPrefixesRequest) (*storage.ProofResponse, error)
	SyncIterate(ctx context.Context, request *storage.IterateRequest) (*storage.ProofResponse, error)
}

// NoopReadSyncer is a ReadSyncer that never has anything to serve: used
// to build the per-round I/O tree, which is always populated purely from
// locally known inputs and never needs to read through to the host.
type NoopReadSyncer struct{}

var _ ReadSyncer = NoopReadSyncer{}

// SyncGet implements ReadSyncer.
func (NoopReadSyncer) SyncGet(context.Context, *storage.GetRequest) (*storage.ProofResponse, error) {
	return nil, ErrUnsupported
}

// SyncGetPrefixes implements ReadSyncer.
func (NoopReadSyncer) SyncGetPrefixes(context.Context, *storage.GetPrefixesRequest) (*storage.ProofResponse, error) {
	return nil, ErrUnsupported
}

// SyncIterate implements ReadSyncer.
func (NoopReadSyncer) SyncIterate(context.Context, *storage.IterateRequest) (*storage.ProofResponse, error) {
	return nil, ErrUnsupported
}
