package transaction

import (
	"context"
	"encoding/binary"

	"github.com/linghuying/oasis-core/go/common/cbor"
	"github.com/linghuying/oasis-core/go/common/crypto/hash"
	storage "github.com/linghuying/oasis-core/go/storage/api"
	"github.com/linghuying/oasis-core/go/storage/mkvs"
	"github.com/linghuying/oasis-core/go/storage/mkvs/syncer"
)

var (
	ioTreeInputPrefix = []byte{0x00}
	ioTreeOutputPrefix = []byte{0x01}
	ioTreeTagPrefix    = []byte{0x02}
)

// IOTree is the per-round I/O tree built purely from locally known
// inputs and outputs: it never reads through a host syncer, since
// everything it indexes was just produced in this same round.
type IOTree struct {
	tree *mkvs.Tree
}

// NewIOTree constructs an empty I/O tree rooted at the given empty
// root, read through a NoopReadSyncer since no host round trip is ever
// needed for it.
func NewIOTree(root storage.Root) *IOTree {
	return &IOTree{tree: mkvs.NewTree(root, syncer.NoopReadSyncer{}, nil)}
}

func indexKey(prefix []byte, digest hash.Hash) []byte {
	out := make([]byte, 0, len(prefix)+hash.Size)
	out = append(out, prefix...)
	return append(out, digest[:]...)
}

// AddInput records the index of the batch input with the given digest.
func (t *IOTree) AddInput(ctx context.Context, digest hash.Hash, index int) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(index))
	return t.tree.Insert(ctx, indexKey(ioTreeInputPrefix, digest), buf[:])
}

// ioOutputEntry is the value stored for a dispatched call's output plus
// the tags it emitted.
type ioOutputEntry struct {
	Output []byte `json:"output"`
	Tags   []Tag  `json:"tags,omitempty"`
}

// AddOutput records the raw output and tags produced by the batch
// input with the given digest.
func (t *IOTree) AddOutput(ctx context.Context, digest hash.Hash, output []byte, tags []Tag) error {
	return t.tree.Insert(ctx, indexKey(ioTreeOutputPrefix, digest), cbor.Marshal(ioOutputEntry{Output: output, Tags: tags}))
}

// AddBlockTags records the tags emitted outside the scope of any single
// call (the batch handler's start_batch/end_batch hooks).
func (t *IOTree) AddBlockTags(ctx context.Context, tags []Tag) error {
	if len(tags) == 0 {
		return nil
	}
	return t.tree.Insert(ctx, ioTreeTagPrefix, cbor.Marshal(tags))
}

// Commit finalizes everything staged since the tree was constructed (or
// since the last Commit) and returns the write log applied and the
// resulting root hash. Called twice per round: once after staging
// inputs, to sanity-check against the host-provided io_root, and again
// after staging outputs and tags, to produce the final root returned to
// the host.
func (t *IOTree) Commit(ctx context.Context, ns storage.Root, round uint64) (storage.WriteLog, hash.Hash, error) {
	return t.tree.Commit(ctx, ns, round)
}
