package transaction

import (
	"fmt"
	"sync/atomic"

	"github.com/linghuying/oasis-core/go/common/cbor"
	"github.com/linghuying/oasis-core/go/common/crypto/hash"
	"github.com/linghuying/oasis-core/go/roothash/api/message"
)

// ErrCheckOnlySuccess is the sentinel error a method handler returns to
// signal "this call would succeed" without actually producing output; the
// dispatcher recognizes it and converts it to a success: an error-free
// CheckTxResult on the check path, and a successful TxnOutput whose value
// is the sentinel's message on the execute path.
var ErrCheckOnlySuccess = fmt.Errorf("transaction: check successful")

// BatchOutput is the execute-path result of dispatching a full batch.
type BatchOutput struct {
	Results           []TxOutput
	Messages          []message.Message
	BlockTags         []Tag
	BatchWeightLimits map[string]uint64
}

// CheckOutput is the check-path result of dispatching a full batch.
type CheckOutput struct {
	Results []CheckTxResult
}

// BatchHandler, if installed, wraps the dispatch of a whole batch with
// start/end hooks.
type BatchHandler interface {
	StartBatch(ctx *Context)
	EndBatch(ctx *Context)
}

// ContextInitializer, if installed, mutates a freshly constructed
// Context before the first call in a batch is dispatched.
type ContextInitializer interface {
	Init(ctx *Context)
}

// ContextInitializerFunc adapts a plain function to a ContextInitializer.
type ContextInitializerFunc func(ctx *Context)

// Init implements ContextInitializer.
func (f ContextInitializerFunc) Init(ctx *Context) { f(ctx) }

// Finalizer, if installed, observes the post-commit state root. It is
// called after storage has been finalized, so ctx.Overlay must not be
// used from within Finalize.
type Finalizer interface {
	Finalize(newStateRoot hash.Hash)
}

// FinalizerFunc adapts a plain function to a Finalizer.
type FinalizerFunc func(newStateRoot hash.Hash)

// Finalize implements Finalizer.
func (f FinalizerFunc) Finalize(newStateRoot hash.Hash) { f(newStateRoot) }

// MethodHandler handles a single decoded runtime call and produces a
// typed output.
type MethodHandler[Call, Output any] interface {
	Handle(call *Call, ctx *Context) (Output, error)
}

// MethodHandlerFunc adapts a plain function to a MethodHandler.
type MethodHandlerFunc[Call, Output any] func(call *Call, ctx *Context) (Output, error)

// Handle implements MethodHandler.
func (f MethodHandlerFunc[Call, Output]) Handle(call *Call, ctx *Context) (Output, error) {
	return f(call, ctx)
}

// methodDispatch is the type-erased interface a registered Method
// exposes to the Dispatcher, hiding the Call/Output type parameters
// behind CBOR encode/decode at the boundary.
type methodDispatch interface {
	name() string
	dispatch(args cbor.Value, ctx *Context) (cbor.Value, error)
}

// Method binds a method name to a generic MethodHandler.
type Method[Call, Output any] struct {
	Name    string
	Handler MethodHandler[Call, Output]
}

// NewMethod constructs a Method from a plain handler function, the
// common case.
func NewMethod[Call, Output any](name string, handler func(call *Call, ctx *Context) (Output, error)) *Method[Call, Output] {
	return &Method[Call, Output]{Name: name, Handler: MethodHandlerFunc[Call, Output](handler)}
}

func (m *Method[Call, Output]) name() string { return m.Name }

func (m *Method[Call, Output]) dispatch(args cbor.Value, ctx *Context) (cbor.Value, error) {
	var call Call
	if err := cbor.Unmarshal(args, &call); err != nil {
		return nil, fmt.Errorf("unable to parse call arguments: %w", err)
	}
	output, err := m.Handler.Handle(&call, ctx)
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(output), nil
}

// Dispatcher routes decoded TxnCalls to registered methods and
// implements the host dispatcher's sub-dispatcher contract.
type Dispatcher struct {
	methods map[string]methodDispatch

	batchHandler       BatchHandler
	contextInitializer ContextInitializer
	finalizer          Finalizer

	abortBatch *uint32
}

// NewDispatcher constructs an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{methods: make(map[string]methodDispatch)}
}

// AddMethod registers a method in the dispatcher. Panics on a
// duplicate name, a programmer error caught at startup.
func AddMethod[Call, Output any](d *Dispatcher, m *Method[Call, Output]) {
	if _, ok := d.methods[m.Name]; ok {
		panic(fmt.Sprintf("transaction: method %q already registered", m.Name))
	}
	d.methods[m.Name] = m
}

// SetBatchHandler configures the batch start/end hook.
func (d *Dispatcher) SetBatchHandler(h BatchHandler) { d.batchHandler = h }

// SetContextInitializer configures the per-batch context initializer.
func (d *Dispatcher) SetContextInitializer(i ContextInitializer) { d.contextInitializer = i }

// SetFinalizer configures the post-commit finalizer.
func (d *Dispatcher) SetFinalizer(f Finalizer) { d.finalizer = f }

// SetAbortBatchFlag wires the dispatcher to the host dispatcher's
// cooperative abort flag: long-running batches may poll it between
// calls to bail out early.
func (d *Dispatcher) SetAbortBatchFlag(flag *uint32) { d.abortBatch = flag }

// aborted reports whether the host has asked this batch to stop.
func (d *Dispatcher) aborted() bool {
	return d.abortBatch != nil && atomic.LoadUint32(d.abortBatch) != 0
}

// ExecuteBatch dispatches every call in inputs against the execute-path
// context and returns the accumulated outputs, messages, and tags.
func (d *Dispatcher) ExecuteBatch(ctx *Context, inputs RawBatch) (*BatchOutput, error) {
	if d.contextInitializer != nil {
		d.contextInitializer.Init(ctx)
	}
	ctx.TxnIndex = TagTxnIndexBlock

	if d.batchHandler != nil {
		d.batchHandler.StartBatch(ctx)
	}
	blockTags := append([]Tag(nil), ctx.Tags...)

	results := make([]TxOutput, len(inputs))
	for idx, raw := range inputs {
		if d.aborted() {
			return nil, fmt.Errorf("transaction: batch aborted at call %d", idx)
		}
		ctx.TxnIndex = int32(idx)
		ctx.Tags = nil
		output := d.dispatchRaw(raw, ctx)
		results[idx] = TxOutput{Output: output, Tags: append([]Tag(nil), ctx.Tags...)}
	}

	ctx.TxnIndex = TagTxnIndexBlock
	if d.batchHandler != nil {
		ctx.Tags = nil
		d.batchHandler.EndBatch(ctx)
		blockTags = append(blockTags, ctx.Tags...)
	}

	return &BatchOutput{Results: results, BlockTags: blockTags}, nil
}

// CheckBatch dispatches every call in inputs against the check-path
// context, reporting per-call success/failure without producing
// committed side effects (the overlay on ctx must never be committed
// by the caller for this path).
func (d *Dispatcher) CheckBatch(ctx *Context, inputs RawBatch) (*CheckOutput, error) {
	if d.contextInitializer != nil {
		d.contextInitializer.Init(ctx)
	}
	ctx.TxnIndex = TagTxnIndexBlock

	if d.batchHandler != nil {
		d.batchHandler.StartBatch(ctx)
	}

	results := make([]CheckTxResult, len(inputs))
	for idx, raw := range inputs {
		ctx.TxnIndex = int32(idx)
		if _, err := d.dispatchFallible(raw, ctx); err != nil {
			if err == ErrCheckOnlySuccess {
				continue
			}
			results[idx] = CheckTxResult{Error: CheckTxError{Message: err.Error()}}
		}
	}

	ctx.TxnIndex = TagTxnIndexBlock
	if d.batchHandler != nil {
		d.batchHandler.EndBatch(ctx)
	}

	return &CheckOutput{Results: results}, nil
}

// Query dispatches a single read-only call and returns its raw CBOR
// result.
func (d *Dispatcher) Query(ctx *Context, method string, args cbor.Value) (cbor.Value, error) {
	handler, ok := d.methods[method]
	if !ok {
		return nil, fmt.Errorf("transaction: method not found: %s", method)
	}
	return handler.dispatch(args, ctx)
}

// Finalize invokes the configured finalizer, if any.
func (d *Dispatcher) Finalize(newStateRoot hash.Hash) {
	if d.finalizer != nil {
		d.finalizer.Finalize(newStateRoot)
	}
}

// dispatchRaw dispatches a single raw call and encodes the result as a
// TxnOutput.
func (d *Dispatcher) dispatchRaw(raw []byte, ctx *Context) []byte {
	value, err := d.dispatchFallible(raw, ctx)
	var out TxnOutput
	switch {
	case err == nil:
		out = TxnOutput{Success: true, Value: value}
	case err == ErrCheckOnlySuccess:
		out = TxnOutput{Success: true, Value: cbor.Marshal(err.Error())}
	default:
		out = TxnOutput{Success: false, Error: err.Error()}
	}
	data, encErr := out.MarshalCBOR()
	if encErr != nil {
		panic(encErr)
	}
	return data
}

func (d *Dispatcher) dispatchFallible(raw []byte, ctx *Context) (cbor.Value, error) {
	var call TxnCall
	if err := cbor.Unmarshal(raw, &call); err != nil {
		return nil, fmt.Errorf("unable to parse call: %w", err)
	}
	handler, ok := d.methods[call.Method]
	if !ok {
		return nil, fmt.Errorf("method not found: %s", call.Method)
	}
	return handler.dispatch(call.Args, ctx)
}
