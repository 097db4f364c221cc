package mkvs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linghuying/oasis-core/go/storage/mkvs/syncer"
)

func TestOverlayGetFallsThroughToUnderlying(t *testing.T) {
	root := testRoot(1)
	underlying := NewTree(root, syncer.NoopReadSyncer{}, nil)
	require.NoError(t, underlying.Insert(context.Background(), []byte("k"), []byte("v")))

	overlay := NewOverlayTree(underlying)
	v, err := overlay.Get(context.Background(), []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
}

func TestOverlayWritesAreInvisibleUntilCommit(t *testing.T) {
	root := testRoot(1)
	underlying := NewTree(root, syncer.NoopReadSyncer{}, nil)
	overlay := NewOverlayTree(underlying)

	require.NoError(t, overlay.Insert(context.Background(), []byte("k"), []byte("v")))

	// The underlying tree must not see the write before CommitBoth.
	uv, err := underlying.Get(context.Background(), []byte("k"))
	require.NoError(t, err)
	require.Nil(t, uv)

	// But the overlay itself sees its own pending write.
	ov, err := overlay.Get(context.Background(), []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), ov)
}

func TestOverlayCommitBothMutatesUnderlyingInPlace(t *testing.T) {
	root := testRoot(1)
	underlying := NewTree(root, syncer.NoopReadSyncer{}, nil)
	overlay := NewOverlayTree(underlying)

	require.NoError(t, overlay.Insert(context.Background(), []byte("k"), []byte("v")))
	log, newRoot, err := overlay.CommitBoth(context.Background(), root, 2)
	require.NoError(t, err)
	require.Len(t, log, 1)
	require.Equal(t, newRoot, underlying.Root().Hash)

	v, err := underlying.Get(context.Background(), []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
}

func TestOverlayRemoveStagesDelete(t *testing.T) {
	root := testRoot(1)
	underlying := NewTree(root, syncer.NoopReadSyncer{}, nil)
	require.NoError(t, underlying.Insert(context.Background(), []byte("k"), []byte("v")))
	_, _, err := underlying.Commit(context.Background(), root, 2)
	require.NoError(t, err)

	overlay := NewOverlayTree(underlying)
	require.NoError(t, overlay.Remove(context.Background(), []byte("k")))

	v, err := overlay.Get(context.Background(), []byte("k"))
	require.NoError(t, err)
	require.Nil(t, v)

	// Underlying is untouched until CommitBoth.
	uv, err := underlying.Get(context.Background(), []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), uv)
}
