package dispatcher

import (
	"github.com/linghuying/oasis-core/go/common/crypto/hash"
	"github.com/linghuying/oasis-core/go/runtime/host/protocol"
	storage "github.com/linghuying/oasis-core/go/storage/api"
	"github.com/linghuying/oasis-core/go/storage/mkvs"
)

// Cache is the root-keyed MKVS cache: it holds one tree bound to the
// most recently seen root, replacing it only when the requested root
// changes, so that a run of executes against the same root reuses every
// node already materialized locally. Mirrors RootCache.GetTree from the
// storage layer: a cache entry is recreated wholesale on a root it
// doesn't recognize rather than patched in place.
type Cache struct {
	proto     protocol.Protocol
	endpoint  protocol.HostStorageEndpoint
	nodeCache *mkvs.LocalCache

	tree *mkvs.Tree
	root storage.Root
}

// NewCache constructs an empty cache bound to no root yet; the first
// MaybeReplace call always constructs a fresh tree. nodeCache is the
// node-materialization cache that reuses any nodes already materialized
// locally; it may be shared between the execute and check/query Cache
// instances, since node bytes keyed by root+path are identical
// regardless of which path fetched them, and only the root-keyed Cache
// structures themselves are required to stay independent.
func NewCache(proto protocol.Protocol, endpoint protocol.HostStorageEndpoint, nodeCache *mkvs.LocalCache) *Cache {
	return &Cache{proto: proto, endpoint: endpoint, nodeCache: nodeCache}
}

// MaybeReplace returns the cached tree if it is already bound to
// newRoot, or constructs and caches a fresh one otherwise.
func (c *Cache) MaybeReplace(newRoot storage.Root) *mkvs.Tree {
	if c.tree != nil && c.root == newRoot {
		return c.tree
	}
	rs := newHostReadSyncer(c.proto, c.endpoint)
	c.tree = mkvs.NewTree(newRoot, rs, c.nodeCache)
	c.root = newRoot
	return c.tree
}

// Commit repoints the cache at the root the just-finished execute
// produced, without discarding the tree: OverlayTree.CommitBoth already
// mutated c.tree (the same *mkvs.Tree instance) in place, so there is
// nothing left to do here but update the bookkeeping.
func (c *Cache) Commit(round uint64, newStateRoot hash.Hash) {
	c.root = storage.Root{Namespace: c.root.Namespace, Version: round, Type: c.root.Type, Hash: newStateRoot}
}
