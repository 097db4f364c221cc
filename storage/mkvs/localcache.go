package mkvs

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/golang/snappy"

	"github.com/linghuying/oasis-core/go/common/crypto/hash"
)

// LocalCache is the node-materialization cache: a store of MKVS node
// bytes already fetched through a ReadSyncer, keyed by root hash plus
// path, so that a Tree bound to a root already seen does not have to
// re-fetch nodes it holds. It backs onto disk through badger so the
// cache survives process restarts, trading memory for avoided host
// round trips on long-lived nodes.
//
// Values are snappy-compressed before being written: node payloads in
// this cache come from an untrusted host, so the content has already
// crossed a trust boundary and compressing it here costs nothing in
// safety while shrinking the on-disk footprint of a long-running
// enclave host process.
type LocalCache struct {
	db *badger.DB
}

// OpenLocalCache opens (or creates) a badger-backed node cache rooted
// at dir, or an in-memory one if dir is empty (the dispatcher's
// default: the enclave host process has no durable local disk of its
// own to assume). A nil *LocalCache is a valid, always-miss cache:
// callers that don't want a cache can skip this and fall straight to
// the read syncer.
func OpenLocalCache(dir string) (*LocalCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("mkvs: opening local node cache: %w", err)
	}
	return &LocalCache{db: db}, nil
}

// Close releases the cache's underlying storage.
func (c *LocalCache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

func cacheKey(root hash.Hash, key []byte) []byte {
	out := make([]byte, 0, hash.Size+len(key))
	out = append(out, root[:]...)
	out = append(out, key...)
	return out
}

// get returns the cached value for key under root, or (nil, false) on
// a cache miss.
func (c *LocalCache) get(root hash.Hash, key []byte) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(root, key))
		if err != nil {
			return err
		}
		return item.Value(func(compressed []byte) error {
			v, err := snappy.Decode(nil, compressed)
			if err != nil {
				return err
			}
			value = v
			return nil
		})
	})
	if err != nil {
		return nil, false
	}
	return value, true
}

// put materializes a fetched value into the cache so a later Tree bound
// to the same root does not need to fetch it again.
func (c *LocalCache) put(root hash.Hash, key, value []byte) {
	if c == nil {
		return
	}
	compressed := snappy.Encode(nil, value)
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(root, key), compressed)
	})
}
