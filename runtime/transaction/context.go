package transaction

import (
	"context"

	"github.com/linghuying/oasis-core/go/consensus/beacon"
	"github.com/linghuying/oasis-core/go/consensus/verifier"
	"github.com/linghuying/oasis-core/go/roothash/api"
	"github.com/linghuying/oasis-core/go/roothash/api/block"
)

// Tree is the narrow read/write view onto an MKVS overlay that a
// transaction call handler is given access to through Context.Overlay.
// storage/mkvs.OverlayTree satisfies this; it is declared here rather
// than imported to keep this package free of any dependency on the
// storage tree implementation.
type Tree interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Insert(ctx context.Context, key, value []byte) error
	Remove(ctx context.Context, key []byte) error
}

// Context is the per-batch context threaded through every call to the
// sub-dispatcher: consensus state, the per-round storage overlay, the
// block header and epoch, and the batch-scoped bookkeeping (tags,
// current call index) a call handler needs.
type Context struct {
	// Ctx carries cancellation and any deadline a call handler might
	// need to observe.
	Ctx context.Context

	// State is the verified (execute path) or unverified (check/query
	// path) consensus state handle.
	State verifier.State

	// Overlay is the per-round MKVS overlay a call handler reads and
	// writes runtime state through. Nil on the RPC path, which must
	// never see storage.
	Overlay Tree

	Header       block.Header
	Epoch        beacon.EpochTime
	RoundResults *api.RoundResults
	MaxMessages  uint32
	CheckOnly    bool

	// TxnIndex is the index of the call currently being dispatched
	// within the batch, or TagTxnIndexBlock outside any single call's
	// scope (set by the batch handler's start/end hooks).
	TxnIndex int32

	// Tags holds the tags emitted in the current scope. The dispatcher
	// resets it before each call and before the end-batch hook, copying
	// what the previous scope emitted into that call's output or into
	// the batch's block tags.
	Tags []Tag
}

// NewContext constructs a fresh per-batch Context.
func NewContext(ctx context.Context, state verifier.State, overlay Tree, header block.Header, epoch beacon.EpochTime, roundResults *api.RoundResults, maxMessages uint32, checkOnly bool) *Context {
	return &Context{
		Ctx:          ctx,
		State:        state,
		Overlay:      overlay,
		Header:       header,
		Epoch:        epoch,
		RoundResults: roundResults,
		MaxMessages:  maxMessages,
		CheckOnly:    checkOnly,
		TxnIndex:     TagTxnIndexBlock,
	}
}

// EmitTag records a tag against the call currently being dispatched.
func (c *Context) EmitTag(key, value []byte) {
	c.Tags = append(c.Tags, Tag{Key: key, Value: value, TxnIndex: c.TxnIndex})
}
