package dispatcher

import (
	"context"
	"fmt"

	"github.com/golang/snappy"

	"github.com/linghuying/oasis-core/go/runtime/host/protocol"
	storage "github.com/linghuying/oasis-core/go/storage/api"
)

// hostReadSyncer adapts a host Protocol round trip into a
// storage/mkvs/syncer.ReadSyncer, bound to one of the two host storage
// endpoints (runtime state, or consensus layer state).
type hostReadSyncer struct {
	proto    protocol.Protocol
	endpoint protocol.HostStorageEndpoint
}

func newHostReadSyncer(proto protocol.Protocol, endpoint protocol.HostStorageEndpoint) *hostReadSyncer {
	return &hostReadSyncer{proto: proto, endpoint: endpoint}
}

func (s *hostReadSyncer) call(ctx context.Context, req protocol.HostStorageSyncRequest) (*storage.ProofResponse, error) {
	req.Endpoint = s.endpoint
	rsp, err := s.proto.Call(ctx, protocol.Body{HostStorageSyncRequest: &req})
	if err != nil {
		return nil, err
	}
	if rsp.HostStorageSyncResponse == nil || rsp.HostStorageSyncResponse.ProofResponse == nil {
		return nil, fmt.Errorf("dispatcher: host returned no storage sync response")
	}
	return rsp.HostStorageSyncResponse.ProofResponse, nil
}

// SyncGet implements syncer.ReadSyncer.
func (s *hostReadSyncer) SyncGet(ctx context.Context, request *storage.GetRequest) (*storage.ProofResponse, error) {
	return s.call(ctx, protocol.HostStorageSyncRequest{SyncGet: request})
}

// SyncGetPrefixes implements syncer.ReadSyncer.
func (s *hostReadSyncer) SyncGetPrefixes(ctx context.Context, request *storage.GetPrefixesRequest) (*storage.ProofResponse, error) {
	return s.call(ctx, protocol.HostStorageSyncRequest{SyncGetPrefixes: request})
}

// SyncIterate implements syncer.ReadSyncer.
func (s *hostReadSyncer) SyncIterate(ctx context.Context, request *storage.IterateRequest) (*storage.ProofResponse, error) {
	return s.call(ctx, protocol.HostStorageSyncRequest{SyncIterate: request})
}

// hostLocalStorage adapts a host Protocol round trip into an
// enclaverpc.LocalStorage. Values are snappy-compressed on the wire:
// untrusted local storage blobs can carry arbitrary RPC handler state
// and are round-tripped through the host on every Get/Set, so shrinking
// them costs nothing in safety (the host already sees the ciphertext's
// length) while cutting the round trip's bytes on the wire.
type hostLocalStorage struct {
	proto protocol.Protocol
}

func (s *hostLocalStorage) Get(ctx context.Context, key []byte) ([]byte, error) {
	rsp, err := s.proto.Call(ctx, protocol.Body{HostLocalStorageGetRequest: &protocol.HostLocalStorageGetRequest{Key: key}})
	if err != nil {
		return nil, err
	}
	if rsp.HostLocalStorageGetResponse == nil {
		return nil, fmt.Errorf("dispatcher: host returned no local storage get response")
	}
	compressed := rsp.HostLocalStorageGetResponse.Value
	if len(compressed) == 0 {
		return nil, nil
	}
	value, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: decompressing local storage value: %w", err)
	}
	return value, nil
}

func (s *hostLocalStorage) Set(ctx context.Context, key, value []byte) error {
	compressed := snappy.Encode(nil, value)
	_, err := s.proto.Call(ctx, protocol.Body{HostLocalStorageSetRequest: &protocol.HostLocalStorageSetRequest{Key: key, Value: compressed}})
	return err
}
