package mkvs

import (
	"context"

	"github.com/google/btree"

	"github.com/linghuying/oasis-core/go/common/crypto/hash"
	storage "github.com/linghuying/oasis-core/go/storage/api"
)

// OverlayTree buffers writes against an underlying Tree without
// mutating it until CommitBoth is called. This is what the execute and
// check paths construct over the cached Tree; the check path never
// calls CommitBoth, so its writes are discarded once the call returns.
type OverlayTree struct {
	underlying *Tree
	pending    *btree.BTree
}

// NewOverlayTree wraps underlying in a fresh, empty overlay.
func NewOverlayTree(underlying *Tree) *OverlayTree {
	return &OverlayTree{underlying: underlying, pending: btree.New(btreeDegree)}
}

// Get consults the overlay's own pending writes before falling through
// to the underlying tree.
func (o *OverlayTree) Get(ctx context.Context, key []byte) ([]byte, error) {
	if item := o.pending.Get(&kvItem{key: key}); item != nil {
		kv := item.(*kvItem)
		if kv.deleted {
			return nil, nil
		}
		return kv.value, nil
	}
	return o.underlying.Get(ctx, key)
}

// Insert stages a write visible only within this overlay until
// CommitBoth.
func (o *OverlayTree) Insert(ctx context.Context, key, value []byte) error {
	o.pending.ReplaceOrInsert(&kvItem{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
	return nil
}

// Remove stages a delete visible only within this overlay.
func (o *OverlayTree) Remove(ctx context.Context, key []byte) error {
	o.pending.ReplaceOrInsert(&kvItem{key: append([]byte(nil), key...), deleted: true})
	return nil
}

// CommitBoth applies every pending write directly onto the underlying
// tree and commits it, returning the resulting WriteLog and new root.
// The underlying tree is mutated in place, which Cache.Commit relies
// on: committing an overlay updates the very tree the cache is holding
// a reference to, so the cache only ever needs to repoint its stored
// root, never reconstruct the tree.
func (o *OverlayTree) CommitBoth(ctx context.Context, ns storage.Root, version uint64) (storage.WriteLog, hash.Hash, error) {
	var applyErr error
	o.pending.Ascend(func(i btree.Item) bool {
		kv := i.(*kvItem)
		if kv.deleted {
			applyErr = o.underlying.Remove(ctx, kv.key)
		} else {
			applyErr = o.underlying.Insert(ctx, kv.key, kv.value)
		}
		return applyErr == nil
	})
	if applyErr != nil {
		return nil, hash.Hash{}, applyErr
	}

	return o.underlying.Commit(ctx, ns, version)
}

// pendingKeys returns the overlay's staged keys in ascending order, for
// callers (tests) that need to inspect buffered-but-uncommitted state.
func (o *OverlayTree) pendingKeys() [][]byte {
	var keys [][]byte
	o.pending.Ascend(func(i btree.Item) bool {
		keys = append(keys, i.(*kvItem).key)
		return true
	})
	return keys
}
