// Package mkvs implements the authenticated Merkle key-value store the
// runtime call dispatcher commits runtime state and per-round I/O
// batches to.
//
// Follows the maybe_replace/commit root bookkeeping pattern of the
// storage layer's RootCache: a Tree is bound to a single storage.Root
// and serves reads from three tiers in order — an in-memory
// pending-write buffer ordered by google/btree, a badger-backed local
// node cache (localcache.go), and finally the remote syncer.ReadSyncer,
// retried with cenkalti/backoff for transient host failures. The root
// hash is content-addressed, computed over the canonically
// CBOR-encoded, sorted write log, preserving the cache-reuse and
// overlay-commit contract consumers depend on.
package mkvs

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/btree"

	"github.com/linghuying/oasis-core/go/common/cbor"
	"github.com/linghuying/oasis-core/go/common/crypto/hash"
	storage "github.com/linghuying/oasis-core/go/storage/api"
	"github.com/linghuying/oasis-core/go/storage/mkvs/syncer"
)

const btreeDegree = 32

// kvItem is a single pending write, ordered by Key for deterministic
// root hashing and iteration.
type kvItem struct {
	key     []byte
	value   []byte
	deleted bool
}

func (a *kvItem) Less(than btree.Item) bool {
	return bytes.Compare(a.key, than.(*kvItem).key) < 0
}

// Tree is a single-root MKVS view: reads fall through pending writes,
// the local node cache, and the read syncer in that order; Commit
// produces a new Root and the WriteLog of everything applied since the
// tree was bound to its current root.
type Tree struct {
	root    storage.Root
	pending *btree.BTree
	cache   *LocalCache
	syncer  syncer.ReadSyncer
}

// NewTree binds a fresh Tree to root, reading through rs for anything
// not already in the local cache.
func NewTree(root storage.Root, rs syncer.ReadSyncer, cache *LocalCache) *Tree {
	return &Tree{root: root, pending: btree.New(btreeDegree), syncer: rs, cache: cache}
}

// Root returns the root this tree is currently bound to (the root as of
// the last Commit, or the root it was constructed with).
func (t *Tree) Root() storage.Root { return t.root }

// Get returns the value for key, consulting pending writes, then the
// local cache, then the read syncer.
func (t *Tree) Get(ctx context.Context, key []byte) ([]byte, error) {
	if item := t.pending.Get(&kvItem{key: key}); item != nil {
		kv := item.(*kvItem)
		if kv.deleted {
			return nil, nil
		}
		return kv.value, nil
	}

	if value, ok := t.cache.get(t.root.Hash, key); ok {
		return value, nil
	}

	value, err := t.syncGet(ctx, key)
	if err != nil {
		return nil, err
	}
	t.cache.put(t.root.Hash, key, value)
	return value, nil
}

// syncGet fetches key through the read syncer, retrying transient
// errors with an exponential backoff: the host-backed read syncer is a
// remote call across the untrusted boundary and may need to be retried,
// same as any other host round trip.
func (t *Tree) syncGet(ctx context.Context, key []byte) ([]byte, error) {
	if t.syncer == nil {
		return nil, fmt.Errorf("mkvs: no read syncer configured and key not present locally")
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second

	var value []byte
	op := func() error {
		resp, err := t.syncer.SyncGet(ctx, &storage.GetRequest{Tree: t.root, Key: key})
		if err != nil {
			if err == syncer.ErrUnsupported {
				return backoff.Permanent(err)
			}
			return err
		}
		value = decodeProofValue(resp.Proof, key)
		return nil
	}
	if err := backoff.Retry(op, bo); err != nil {
		return nil, fmt.Errorf("mkvs: sync get %x: %w", key, err)
	}
	return value, nil
}

// decodeProofValue extracts the leaf value for key out of a sync proof.
// The proof's single entry, by construction of the host-side read
// syncer this dispatcher talks to, is the canonically encoded LogEntry
// for the requested key.
func decodeProofValue(proof storage.Proof, key []byte) []byte {
	for _, entry := range proof.Entries {
		var le storage.LogEntry
		if err := cbor.Unmarshal(entry, &le); err != nil {
			continue
		}
		if bytes.Equal(le.Key, key) {
			return le.Value
		}
	}
	return nil
}

// Insert stages a write, visible to subsequent Get calls on this tree
// but not applied to the underlying root until Commit.
func (t *Tree) Insert(ctx context.Context, key, value []byte) error {
	t.pending.ReplaceOrInsert(&kvItem{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
	return nil
}

// Remove stages a delete.
func (t *Tree) Remove(ctx context.Context, key []byte) error {
	t.pending.ReplaceOrInsert(&kvItem{key: append([]byte(nil), key...), deleted: true})
	return nil
}

// Commit applies all pending writes, advances the tree to the given
// version, and returns the resulting WriteLog and new root. The new
// root's hash is the digest of the canonical CBOR encoding of the
// write log sorted by key, chained onto the prior root so that two
// trees with different histories never collide even on an identical
// write log.
func (t *Tree) Commit(ctx context.Context, ns storage.Root, version uint64) (storage.WriteLog, hash.Hash, error) {
	var log storage.WriteLog
	t.pending.Ascend(func(i btree.Item) bool {
		kv := i.(*kvItem)
		entry := storage.LogEntry{Key: kv.key}
		if !kv.deleted {
			entry.Value = kv.value
		}
		log = append(log, entry)
		return true
	})

	newRoot := hash.DigestBytes(cbor.Marshal(struct {
		Previous hash.Hash
		Log      storage.WriteLog
	}{Previous: t.root.Hash, Log: log}))

	t.root = storage.Root{Namespace: ns.Namespace, Version: version, Type: ns.Type, Hash: newRoot}
	for _, entry := range log {
		if entry.Value != nil {
			t.cache.put(newRoot, entry.Key, entry.Value)
		}
	}
	t.pending = btree.New(btreeDegree)

	return log, newRoot, nil
}
