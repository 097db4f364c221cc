package mkvs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linghuying/oasis-core/go/common/cbor"
	"github.com/linghuying/oasis-core/go/common/namespace"
	storage "github.com/linghuying/oasis-core/go/storage/api"
	"github.com/linghuying/oasis-core/go/storage/mkvs/syncer"
)

func marshalLogEntry(key, value []byte) storage.ProofNode {
	return cbor.Marshal(storage.LogEntry{Key: key, Value: value})
}

// countingSyncer records how many SyncGet calls it serves, so tests can
// assert on the local cache actually being consulted first.
type countingSyncer struct {
	kv   map[string][]byte
	gets int
}

func newCountingSyncer(kv map[string][]byte) *countingSyncer {
	return &countingSyncer{kv: kv}
}

func (s *countingSyncer) SyncGet(ctx context.Context, req *storage.GetRequest) (*storage.ProofResponse, error) {
	s.gets++
	v, ok := s.kv[string(req.Key)]
	if !ok {
		return &storage.ProofResponse{}, nil
	}
	return &storage.ProofResponse{Proof: storage.Proof{
		Entries: []storage.ProofNode{marshalLogEntry(req.Key, v)},
	}}, nil
}

func (s *countingSyncer) SyncGetPrefixes(ctx context.Context, req *storage.GetPrefixesRequest) (*storage.ProofResponse, error) {
	return nil, syncer.ErrUnsupported
}

func (s *countingSyncer) SyncIterate(ctx context.Context, req *storage.IterateRequest) (*storage.ProofResponse, error) {
	return nil, syncer.ErrUnsupported
}

func testRoot(version uint64) storage.Root {
	var ns namespace.Namespace
	ns[0] = 1
	return storage.Root{Namespace: ns, Version: version, Type: storage.RootTypeState}
}

func TestTreeInsertThenGetReturnsPendingValue(t *testing.T) {
	tree := NewTree(testRoot(1), syncer.NoopReadSyncer{}, nil)
	require.NoError(t, tree.Insert(context.Background(), []byte("k"), []byte("v")))

	v, err := tree.Get(context.Background(), []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
}

func TestTreeRemoveShadowsPendingInsert(t *testing.T) {
	tree := NewTree(testRoot(1), syncer.NoopReadSyncer{}, nil)
	require.NoError(t, tree.Insert(context.Background(), []byte("k"), []byte("v")))
	require.NoError(t, tree.Remove(context.Background(), []byte("k")))

	v, err := tree.Get(context.Background(), []byte("k"))
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestTreeCommitProducesChainedRoot(t *testing.T) {
	root := testRoot(1)
	tree := NewTree(root, syncer.NoopReadSyncer{}, nil)
	require.NoError(t, tree.Insert(context.Background(), []byte("a"), []byte("1")))

	log1, root1, err := tree.Commit(context.Background(), root, 2)
	require.NoError(t, err)
	require.Len(t, log1, 1)
	require.NotEqual(t, root.Hash, root1)

	require.NoError(t, tree.Insert(context.Background(), []byte("b"), []byte("2")))
	_, root2, err := tree.Commit(context.Background(), root, 3)
	require.NoError(t, err)
	require.NotEqual(t, root1, root2, "committing a second write log must chain onto the prior root, not repeat it")
}

func TestTreeGetFallsThroughToSyncer(t *testing.T) {
	rs := newCountingSyncer(map[string][]byte{"remote": []byte("value")})
	tree := NewTree(testRoot(1), rs, nil)

	v, err := tree.Get(context.Background(), []byte("remote"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)
	require.Equal(t, 1, rs.gets)
}

func TestTreeGetUsesLocalCacheBeforeSyncer(t *testing.T) {
	cache, err := OpenLocalCache("")
	require.NoError(t, err)
	defer cache.Close()

	rs := newCountingSyncer(map[string][]byte{"remote": []byte("value")})
	root := testRoot(1)

	tree1 := NewTree(root, rs, cache)
	_, err = tree1.Get(context.Background(), []byte("remote"))
	require.NoError(t, err)
	require.Equal(t, 1, rs.gets)

	// A second, independent Tree bound to the same root reuses the
	// cached node instead of hitting the syncer again.
	tree2 := NewTree(root, rs, cache)
	v, err := tree2.Get(context.Background(), []byte("remote"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)
	require.Equal(t, 1, rs.gets, "second tree bound to the same root must hit the local cache, not the syncer")
}

func TestTreeGetWithNoSyncerOrCacheErrors(t *testing.T) {
	tree := NewTree(testRoot(1), nil, nil)
	_, err := tree.Get(context.Background(), []byte("missing"))
	require.Error(t, err)
}
