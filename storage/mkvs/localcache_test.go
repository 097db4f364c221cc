package mkvs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linghuying/oasis-core/go/common/crypto/hash"
)

func TestLocalCachePutGetRoundTrip(t *testing.T) {
	cache, err := OpenLocalCache("")
	require.NoError(t, err)
	defer cache.Close()

	root := hash.DigestBytes([]byte("root"))
	cache.put(root, []byte("key"), []byte("value"))

	v, ok := cache.get(root, []byte("key"))
	require.True(t, ok)
	require.Equal(t, []byte("value"), v)
}

func TestLocalCacheMissForUnknownKey(t *testing.T) {
	cache, err := OpenLocalCache("")
	require.NoError(t, err)
	defer cache.Close()

	_, ok := cache.get(hash.DigestBytes([]byte("root")), []byte("missing"))
	require.False(t, ok)
}

func TestLocalCacheScopedByRoot(t *testing.T) {
	cache, err := OpenLocalCache("")
	require.NoError(t, err)
	defer cache.Close()

	rootA := hash.DigestBytes([]byte("a"))
	rootB := hash.DigestBytes([]byte("b"))
	cache.put(rootA, []byte("key"), []byte("value-a"))

	_, ok := cache.get(rootB, []byte("key"))
	require.False(t, ok, "a value cached under one root must not be visible under another")
}

func TestNilLocalCacheIsAlwaysMiss(t *testing.T) {
	var cache *LocalCache
	_, ok := cache.get(hash.DigestBytes([]byte("root")), []byte("key"))
	require.False(t, ok)
	cache.put(hash.DigestBytes([]byte("root")), []byte("key"), []byte("value"))
	require.NoError(t, cache.Close())
}
