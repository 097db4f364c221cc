package dispatcher

import (
	"github.com/linghuying/oasis-core/go/common/cbor"
	"github.com/linghuying/oasis-core/go/common/crypto/hash"
	"github.com/linghuying/oasis-core/go/runtime/enclaverpc"
	"github.com/linghuying/oasis-core/go/runtime/host/protocol"
	"github.com/linghuying/oasis-core/go/runtime/rak"
	"github.com/linghuying/oasis-core/go/runtime/transaction"
)

// SubDispatcher is the transaction sub-dispatcher contract.
// *transaction.Dispatcher satisfies this structurally; it is declared
// here so the host dispatcher depends only on the shape it needs, not
// on the transaction package's concrete type.
type SubDispatcher interface {
	SetAbortBatchFlag(flag *uint32)
	ExecuteBatch(ctx *transaction.Context, inputs transaction.RawBatch) (*transaction.BatchOutput, error)
	CheckBatch(ctx *transaction.Context, inputs transaction.RawBatch) (*transaction.CheckOutput, error)
	Query(ctx *transaction.Context, method string, args cbor.Value) (cbor.Value, error)
	Finalize(newStateRoot hash.Hash)
}

// Initializer builds the sub-dispatcher once the host has published the
// protocol handle. It mirrors the original's trait-plus-blanket-impl
// shape: Init sees the same four collaborators the original
// constructor does (protocol, rak, rpcDemux, rpcDispatcher), may
// register RPC methods on rpcDispatcher or wrap rpcDemux, and returns
// nil to fall back to the no-op sub-dispatcher.
type Initializer interface {
	Init(proto protocol.Protocol, rakKey *rak.RAK, rpcDemux enclaverpc.Demux, rpcDispatcher *enclaverpc.Dispatcher) SubDispatcher
}

// InitializerFunc adapts a plain function to an Initializer, mirroring
// the original's blanket impl<F> Initializer for F.
type InitializerFunc func(proto protocol.Protocol, rakKey *rak.RAK, rpcDemux enclaverpc.Demux, rpcDispatcher *enclaverpc.Dispatcher) SubDispatcher

// Init implements Initializer.
func (f InitializerFunc) Init(proto protocol.Protocol, rakKey *rak.RAK, rpcDemux enclaverpc.Demux, rpcDispatcher *enclaverpc.Dispatcher) SubDispatcher {
	return f(proto, rakKey, rpcDemux, rpcDispatcher)
}

// noopSubDispatcher is used when no Initializer is supplied: every call
// returns the appropriate empty/ok variant.
type noopSubDispatcher struct{}

func (noopSubDispatcher) SetAbortBatchFlag(*uint32) {}

func (noopSubDispatcher) ExecuteBatch(ctx *transaction.Context, inputs transaction.RawBatch) (*transaction.BatchOutput, error) {
	return &transaction.BatchOutput{Results: make([]transaction.TxOutput, len(inputs))}, nil
}

func (noopSubDispatcher) CheckBatch(ctx *transaction.Context, inputs transaction.RawBatch) (*transaction.CheckOutput, error) {
	return &transaction.CheckOutput{Results: make([]transaction.CheckTxResult, len(inputs))}, nil
}

func (noopSubDispatcher) Query(ctx *transaction.Context, method string, args cbor.Value) (cbor.Value, error) {
	return cbor.Marshal(nil), nil
}

func (noopSubDispatcher) Finalize(hash.Hash) {}

var _ SubDispatcher = noopSubDispatcher{}
