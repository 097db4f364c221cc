package transaction

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linghuying/oasis-core/go/common/cbor"
	"github.com/linghuying/oasis-core/go/common/crypto/hash"
	"github.com/linghuying/oasis-core/go/roothash/api/block"
)

// memTree is a trivial in-memory Tree for tests that need ctx.Overlay
// without pulling in the MKVS package.
type memTree struct {
	kv map[string][]byte
}

func newMemTree() *memTree { return &memTree{kv: make(map[string][]byte)} }

func (t *memTree) Get(ctx context.Context, key []byte) ([]byte, error) {
	return t.kv[string(key)], nil
}

func (t *memTree) Insert(ctx context.Context, key, value []byte) error {
	t.kv[string(key)] = append([]byte(nil), value...)
	return nil
}

func (t *memTree) Remove(ctx context.Context, key []byte) error {
	delete(t.kv, string(key))
	return nil
}

func newTestContext(tree Tree, checkOnly bool) *Context {
	return NewContext(context.Background(), nil, tree, block.Header{}, 0, nil, 16, checkOnly)
}

func cborTxnCall(method string, args interface{}) []byte {
	return cbor.Marshal(TxnCall{Method: method, Args: cbor.Marshal(args)})
}

func setupDispatcher() *Dispatcher {
	d := NewDispatcher()
	AddMethod(d, NewMethod("double", func(call *int, ctx *Context) (int, error) {
		return *call * 2, nil
	}))
	AddMethod(d, NewMethod("fail", func(call *string, ctx *Context) (string, error) {
		return "", fmt.Errorf("handler failure: %s", *call)
	}))
	AddMethod(d, NewMethod("checkonly", func(call *string, ctx *Context) (string, error) {
		if ctx.CheckOnly {
			return "", ErrCheckOnlySuccess
		}
		return *call, nil
	}))
	AddMethod(d, NewMethod("put", func(call *putArgs, ctx *Context) (struct{}, error) {
		return struct{}{}, ctx.Overlay.Insert(ctx.Ctx, []byte(call.Key), []byte(call.Value))
	}))
	AddMethod(d, NewMethod("tag", func(call *string, ctx *Context) (struct{}, error) {
		ctx.EmitTag([]byte("k"), []byte(*call))
		return struct{}{}, nil
	}))
	return d
}

type putArgs struct {
	Key   string
	Value string
}

func TestExecuteBatchDispatchesEachCall(t *testing.T) {
	d := setupDispatcher()
	ctx := newTestContext(newMemTree(), false)

	inputs := RawBatch{
		cborTxnCall("double", 21),
		cborTxnCall("double", 2),
	}
	out, err := d.ExecuteBatch(ctx, inputs)
	require.NoError(t, err)
	require.Len(t, out.Results, 2)

	var first map[string]int
	require.NoError(t, cbor.Unmarshal(out.Results[0].Output, &first))
	require.Equal(t, 42, first["Success"])
}

func TestExecuteBatchCollectsTagsPerCall(t *testing.T) {
	d := setupDispatcher()
	ctx := newTestContext(newMemTree(), false)

	inputs := RawBatch{cborTxnCall("tag", "a"), cborTxnCall("tag", "b")}
	out, err := d.ExecuteBatch(ctx, inputs)
	require.NoError(t, err)
	require.Len(t, out.Results, 2)
	require.Len(t, out.Results[0].Tags, 1)
	require.Equal(t, []byte("a"), out.Results[0].Tags[0].Value)
	require.Equal(t, int32(0), out.Results[0].Tags[0].TxnIndex)
	require.Equal(t, int32(1), out.Results[1].Tags[0].TxnIndex)
}

func TestExecuteBatchFailureEncodesError(t *testing.T) {
	d := setupDispatcher()
	ctx := newTestContext(newMemTree(), false)

	out, err := d.ExecuteBatch(ctx, RawBatch{cborTxnCall("fail", "boom")})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)

	var wire map[string]string
	require.NoError(t, cbor.Unmarshal(out.Results[0].Output, &wire))
	require.Contains(t, wire["Error"], "boom")
}

func TestExecuteBatchUnknownMethodEncodesError(t *testing.T) {
	d := setupDispatcher()
	ctx := newTestContext(newMemTree(), false)

	out, err := d.ExecuteBatch(ctx, RawBatch{cborTxnCall("nonexistent", "x")})
	require.NoError(t, err)
	var wire map[string]string
	require.NoError(t, cbor.Unmarshal(out.Results[0].Output, &wire))
	require.Contains(t, wire["Error"], "method not found")
}

func TestCheckBatchSentinelSuppressesError(t *testing.T) {
	d := setupDispatcher()
	ctx := newTestContext(newMemTree(), true)

	out, err := d.CheckBatch(ctx, RawBatch{cborTxnCall("checkonly", "x")})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	require.Empty(t, out.Results[0].Error.Message)
}

func TestCheckBatchReportsHandlerError(t *testing.T) {
	d := setupDispatcher()
	ctx := newTestContext(newMemTree(), true)

	out, err := d.CheckBatch(ctx, RawBatch{cborTxnCall("fail", "nope")})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	require.Contains(t, out.Results[0].Error.Message, "nope")
}

func TestQueryDispatchesSingleCall(t *testing.T) {
	d := setupDispatcher()
	ctx := newTestContext(newMemTree(), true)

	result, err := d.Query(ctx, "double", cbor.Marshal(10))
	require.NoError(t, err)
	var out int
	require.NoError(t, cbor.Unmarshal(result, &out))
	require.Equal(t, 20, out)
}

func TestQueryUnknownMethod(t *testing.T) {
	d := setupDispatcher()
	ctx := newTestContext(newMemTree(), true)

	_, err := d.Query(ctx, "nope", cbor.Marshal(1))
	require.Error(t, err)
}

func TestBatchHandlerHooksRun(t *testing.T) {
	d := setupDispatcher()
	var started, ended bool
	d.SetBatchHandler(batchHandlerFuncs{
		start: func(ctx *Context) { started = true },
		end:   func(ctx *Context) { ended = true },
	})

	ctx := newTestContext(newMemTree(), false)
	_, err := d.ExecuteBatch(ctx, RawBatch{cborTxnCall("double", 1)})
	require.NoError(t, err)
	require.True(t, started)
	require.True(t, ended)
}

func TestAbortBatchFlagStopsExecution(t *testing.T) {
	d := setupDispatcher()
	var flag uint32 = 1
	d.SetAbortBatchFlag(&flag)

	ctx := newTestContext(newMemTree(), false)
	_, err := d.ExecuteBatch(ctx, RawBatch{cborTxnCall("double", 1), cborTxnCall("double", 2)})
	require.Error(t, err)
}

func TestFinalizerInvokedOnFinalize(t *testing.T) {
	d := setupDispatcher()
	var got bool
	d.SetFinalizer(FinalizerFunc(func(newStateRoot hash.Hash) { got = true }))
	d.Finalize(hash.Hash{})
	require.True(t, got)
}

func TestAddMethodDuplicatePanics(t *testing.T) {
	d := NewDispatcher()
	AddMethod(d, NewMethod("dup", func(call *int, ctx *Context) (int, error) { return *call, nil }))
	require.Panics(t, func() {
		AddMethod(d, NewMethod("dup", func(call *int, ctx *Context) (int, error) { return *call, nil }))
	})
}

func TestPutWritesThroughOverlay(t *testing.T) {
	d := setupDispatcher()
	tree := newMemTree()
	ctx := newTestContext(tree, false)

	_, err := d.ExecuteBatch(ctx, RawBatch{cborTxnCall("put", putArgs{Key: "k", Value: "v"})})
	require.NoError(t, err)
	require.Equal(t, []byte("v"), tree.kv["k"])
}

type batchHandlerFuncs struct {
	start func(ctx *Context)
	end   func(ctx *Context)
}

func (b batchHandlerFuncs) StartBatch(ctx *Context) { b.start(ctx) }
func (b batchHandlerFuncs) EndBatch(ctx *Context)   { b.end(ctx) }
