package dispatcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linghuying/oasis-core/go/common/cbor"
	"github.com/linghuying/oasis-core/go/runtime/host/protocol"
	storage "github.com/linghuying/oasis-core/go/storage/api"
)

func TestHostReadSyncerSyncGet(t *testing.T) {
	proto := newFakeProtocol(testRuntimeID())
	proto.kv["k"] = []byte("v")

	rs := newHostReadSyncer(proto, protocol.HostStorageEndpointRuntime)
	resp, err := rs.SyncGet(context.Background(), &storage.GetRequest{Key: []byte("k")})
	require.NoError(t, err)
	require.Len(t, resp.Proof.Entries, 1)

	var entry storage.LogEntry
	require.NoError(t, cbor.Unmarshal(resp.Proof.Entries[0], &entry))
	require.Equal(t, []byte("v"), entry.Value)
}

func TestHostLocalStorageRoundTripsThroughSnappy(t *testing.T) {
	proto := newFakeProtocol(testRuntimeID())
	ls := &hostLocalStorage{proto: proto}

	require.NoError(t, ls.Set(context.Background(), []byte("k"), []byte("a local storage value")))

	// The host only ever sees the compressed bytes on the wire.
	require.NotEqual(t, []byte("a local storage value"), proto.localStore["k"])

	v, err := ls.Get(context.Background(), []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("a local storage value"), v)
}

func TestHostLocalStorageGetMissingKeyReturnsNil(t *testing.T) {
	proto := newFakeProtocol(testRuntimeID())
	ls := &hostLocalStorage{proto: proto}

	v, err := ls.Get(context.Background(), []byte("absent"))
	require.NoError(t, err)
	require.Nil(t, v)
}
