// Package dispatcher implements the runtime call dispatcher: the
// single-consumer event loop that drains a bounded backlog of host
// requests, routes each to a transaction sub-dispatcher, RPC demux, or
// consensus verifier, and returns exactly one response per request id.
//
// The worker loop follows the dedicated-goroutine-plus-select shape and
// structured logging idiom common to the committee worker code this
// runtime is descended from, and cache.go follows the root-keyed cache
// pattern from that same storage layer. The bounded backlog uses
// github.com/eapache/channels; the one-shot protocol/verifier hand-off
// uses a sync.Mutex/sync.Cond.
package dispatcher

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/eapache/channels"

	"github.com/linghuying/oasis-core/go/common/cbor"
	"github.com/linghuying/oasis-core/go/common/crypto/hash"
	"github.com/linghuying/oasis-core/go/common/crypto/signature"
	"github.com/linghuying/oasis-core/go/common/logging"
	"github.com/linghuying/oasis-core/go/common/namespace"
	"github.com/linghuying/oasis-core/go/consensus/verifier"
	"github.com/linghuying/oasis-core/go/roothash/api/commitment"
	"github.com/linghuying/oasis-core/go/roothash/api/message"
	"github.com/linghuying/oasis-core/go/runtime/enclaverpc"
	"github.com/linghuying/oasis-core/go/runtime/host/protocol"
	"github.com/linghuying/oasis-core/go/runtime/rak"
	"github.com/linghuying/oasis-core/go/runtime/transaction"
	storage "github.com/linghuying/oasis-core/go/storage/api"
	"github.com/linghuying/oasis-core/go/storage/mkvs"
)

// backlog is the bounded queue's capacity.
const backlog = 1000

// ErrQueueFull is returned by QueueRequest when the backlog is saturated.
var ErrQueueFull = fmt.Errorf("dispatcher: request queue is full")

// hostState is the one-shot {protocol, verifier} hand-off published by
// Start and consumed exactly once by the worker.
type hostState struct {
	protocol protocol.Protocol
	verifier verifier.Verifier
}

// requestItem is a single queued request envelope.
type requestItem struct {
	ctx context.Context
	id  uint64
	body protocol.Body
}

// Dispatcher is the runtime call dispatcher.
type Dispatcher struct {
	queue channels.Channel

	stateMu   sync.Mutex
	stateCond *sync.Cond
	state     *hostState
	started   bool

	abortBatch uint32
	abortAck   chan struct{}

	demux         enclaverpc.Demux
	rpcDispatcher *enclaverpc.Dispatcher
	rak           *rak.RAK
	initializer   Initializer
	subDispatcher SubDispatcher

	executeCache *Cache
	checkCache   *Cache
	localStorage *hostLocalStorage

	runtimeID namespace.Namespace
	logger    *logging.Logger

	done chan struct{}
}

// New constructs a Dispatcher and spawns its worker goroutine. The
// worker immediately blocks on the initialization hand-off until Start
// is called.
func New(demux enclaverpc.Demux, rakKey *rak.RAK, initializer Initializer) *Dispatcher {
	d := &Dispatcher{
		queue:         channels.NewNativeChannel(channels.BufferCap(backlog)),
		abortAck:      make(chan struct{}, 1),
		demux:         demux,
		rpcDispatcher: enclaverpc.NewDispatcher(),
		rak:           rakKey,
		initializer:   initializer,
		logger:        logging.GetLogger("runtime/host/dispatcher"),
		done:          make(chan struct{}),
	}
	d.stateCond = sync.NewCond(&d.stateMu)

	registerMetrics()
	go d.run()

	return d
}

// Start publishes the protocol and verifier handles, unblocking the
// worker. Calling Start more than once is a programmer error.
func (d *Dispatcher) Start(proto protocol.Protocol, v verifier.Verifier) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()

	if d.started {
		panic("dispatcher: start called more than once")
	}
	d.started = true
	d.state = &hostState{protocol: proto, verifier: v}
	d.stateCond.Signal()
}

// QueueRequest performs a non-blocking enqueue. It returns ErrQueueFull
// if the backlog is saturated.
func (d *Dispatcher) QueueRequest(ctx context.Context, id uint64, body protocol.Body) error {
	select {
	case d.queue.In() <- requestItem{ctx: ctx, id: id, body: body}:
		queueDepth.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// AbortAndWait sets the cooperative abort flag, enqueues a sentinel so
// an idle worker wakes up, and blocks until the worker acknowledges.
func (d *Dispatcher) AbortAndWait(ctx context.Context, id uint64) {
	atomic.StoreUint32(&d.abortBatch, 1)
	d.queue.In() <- requestItem{ctx: ctx, id: id, body: protocol.Body{RuntimeAbortRequest: &protocol.Empty{}}}
	queueDepth.Inc()
	<-d.abortAck
	abortCount.Inc()
}

// run is the worker's main loop: it blocks for the initialization
// hand-off, builds the sub-dispatcher, then drains the backlog one
// request at a time until the queue closes.
func (d *Dispatcher) run() {
	defer close(d.done)
	defer d.panicShield()

	d.stateMu.Lock()
	for d.state == nil {
		d.stateCond.Wait()
	}
	state := d.state
	d.stateMu.Unlock()

	d.runtimeID = state.protocol.GetRuntimeID()
	d.localStorage = &hostLocalStorage{proto: state.protocol}

	nodeCache, err := mkvs.OpenLocalCache("")
	if err != nil {
		panic(fmt.Sprintf("dispatcher: opening local node cache: %v", err))
	}
	defer nodeCache.Close()

	d.executeCache = NewCache(state.protocol, protocol.HostStorageEndpointRuntime, nodeCache)
	d.checkCache = NewCache(state.protocol, protocol.HostStorageEndpointRuntime, nodeCache)

	var sub SubDispatcher
	if d.initializer != nil {
		sub = d.initializer.Init(state.protocol, d.rak, d.demux, d.rpcDispatcher)
	}
	if sub == nil {
		sub = noopSubDispatcher{}
	}
	d.subDispatcher = sub
	d.subDispatcher.SetAbortBatchFlag(&d.abortBatch)

	for {
		raw, ok := <-d.queue.Out()
		if !ok {
			d.logger.Info("request queue closed, terminating")
			return
		}
		item := raw.(requestItem)
		queueDepth.Dec()
		requestCount.WithLabelValues(item.body.Type()).Inc()

		if atomic.CompareAndSwapUint32(&d.abortBatch, 1, 0) {
			d.abortAck <- struct{}{}
		}

		respBody, terminate := d.dispatchBody(item.ctx, state, item.body)
		if terminate {
			d.logger.Error("unsupported request variant, terminating loop", "type", item.body.Type())
			return
		}
		if respBody == nil {
			continue
		}
		if err := state.protocol.SendResponse(item.id, *respBody); err != nil {
			panic(fmt.Sprintf("dispatcher: send_response failed: %v", err))
		}
	}
}

// panicShield forcibly terminates the process if the worker goroutine
// is unwinding from a panic: enclave state may be partially mutated, so
// continuing risks attesting to an inconsistent view.
func (d *Dispatcher) panicShield() {
	if r := recover(); r != nil {
		d.logger.Error("fatal error in dispatch worker, aborting process", "panic", r, "stack", string(debug.Stack()))
		os.Exit(1)
	}
}

// dispatchBody routes a single request body by variant. The second
// return value is true for a variant this dispatcher version does not
// recognize, signaling the caller to terminate the loop.
func (d *Dispatcher) dispatchBody(ctx context.Context, state *hostState, body protocol.Body) (*protocol.Body, bool) {
	switch {
	case body.RuntimeExecuteTxBatchRequest != nil:
		return d.handleExecute(ctx, state, body.RuntimeExecuteTxBatchRequest), false
	case body.RuntimeCheckTxBatchRequest != nil:
		return d.handleCheck(ctx, state, body.RuntimeCheckTxBatchRequest), false
	case body.RuntimeQueryRequest != nil:
		return d.handleQuery(ctx, state, body.RuntimeQueryRequest), false
	case body.RuntimeRPCCallRequest != nil:
		return d.handleRPCCall(ctx, body.RuntimeRPCCallRequest), false
	case body.RuntimeLocalRPCCallRequest != nil:
		return d.handleLocalRPCCall(ctx, body.RuntimeLocalRPCCallRequest), false
	case body.RuntimeKeyManagerPolicyUpdateRequest != nil:
		return d.handleKMPolicyUpdate(body.RuntimeKeyManagerPolicyUpdateRequest), false
	case body.RuntimeConsensusSyncRequest != nil:
		return d.handleConsensusSync(state, body.RuntimeConsensusSyncRequest), false
	case body.RuntimeAbortRequest != nil:
		return &protocol.Body{RuntimeAbortResponse: &protocol.Empty{}}, false
	default:
		return nil, true
	}
}

// handleExecute implements the transaction execute path.
func (d *Dispatcher) handleExecute(ctx context.Context, state *hostState, req *protocol.RuntimeExecuteTxBatchRequest) *protocol.Body {
	header := req.Block.Header
	// A runtime-id mismatch means the host itself is broken, so it panics
	// (and the panic shield exits the process) instead of returning a typed
	// error the way a verifier failure below does. handleCheck and
	// handleQuery treat a mismatch the same way.
	if header.Namespace != d.runtimeID {
		panic(fmt.Sprintf("dispatcher: namespace mismatch: header=%s runtime=%s", header.Namespace, d.runtimeID))
	}

	vstate, err := state.verifier.Verify(req.ConsensusBlock, header)
	if err != nil {
		return errorBody(codeVerifierFailure, fmt.Sprintf("consensus verification failed: %v", err))
	}

	underlying := d.executeCache.MaybeReplace(storage.Root{Namespace: header.Namespace, Version: header.Round, Type: storage.RootTypeState, Hash: header.StateRoot})
	overlay := mkvs.NewOverlayTree(underlying)

	txnCtx := transaction.NewContext(ctx, vstate, overlay, header, req.Epoch, req.RoundResults, req.MaxMessages, false)
	results, err := d.subDispatcher.ExecuteBatch(txnCtx, req.Inputs)
	if err != nil {
		return errorBody(codeSubDispatchFailed, fmt.Sprintf("execute_batch failed: %v", err))
	}

	stateRootBase := storage.Root{Namespace: header.Namespace, Type: storage.RootTypeState}
	stateWriteLog, newStateRoot, err := overlay.CommitBoth(ctx, stateRootBase, header.Round+1)
	if err != nil {
		panic(fmt.Sprintf("dispatcher: overlay commit failed: %v", err))
	}

	d.subDispatcher.Finalize(newStateRoot)
	d.executeCache.Commit(header.Round+1, newStateRoot)

	ioRootBase := storage.Empty(header.Namespace, storage.RootTypeIO)
	ioRootBase.Version = header.Round + 1
	ioTree := transaction.NewIOTree(ioRootBase)

	for idx, input := range req.Inputs {
		digest := hash.DigestBytes(input)
		if err := ioTree.AddInput(ctx, digest, idx); err != nil {
			panic(fmt.Sprintf("dispatcher: io tree add_input failed: %v", err))
		}
	}
	inputLog, oldIORoot, err := ioTree.Commit(ctx, ioRootBase, header.Round+1)
	if err != nil {
		panic(fmt.Sprintf("dispatcher: io tree commit (inputs) failed: %v", err))
	}
	if oldIORoot != req.IORoot {
		panic(fmt.Sprintf("dispatcher: io root mismatch: host=%s computed=%s", req.IORoot, oldIORoot))
	}

	for idx, input := range req.Inputs {
		digest := hash.DigestBytes(input)
		out := results.Results[idx]
		if err := ioTree.AddOutput(ctx, digest, out.Output, out.Tags); err != nil {
			panic(fmt.Sprintf("dispatcher: io tree add_output failed: %v", err))
		}
	}
	if err := ioTree.AddBlockTags(ctx, results.BlockTags); err != nil {
		panic(fmt.Sprintf("dispatcher: io tree add_block_tags failed: %v", err))
	}
	outputLog, ioRoot, err := ioTree.Commit(ctx, ioRootBase, header.Round+1)
	if err != nil {
		panic(fmt.Sprintf("dispatcher: io tree commit (outputs) failed: %v", err))
	}

	msgsHash := message.MessagesHash(results.Messages)
	newHeader := commitment.ComputeResultsHeader{
		Round:        header.Round + 1,
		PreviousHash: header.EncodedHash(),
		IORoot:       &ioRoot,
		StateRoot:    &newStateRoot,
		MessagesHash: &msgsHash,
	}
	if err := state.verifier.Trust(&newHeader); err != nil {
		panic(fmt.Sprintf("dispatcher: verifier.Trust failed: %v", err))
	}

	var rakSig signature.RawSignature
	if _, ok := d.rak.PublicKey(); ok {
		sig, err := d.rak.Sign(rak.ComputeResultsHeaderContext, cbor.Marshal(newHeader))
		if err != nil {
			return errorBody(codeSigningFailed, fmt.Sprintf("rak sign failed: %v", err))
		}
		rakSig = sig
	}

	return &protocol.Body{RuntimeExecuteTxBatchResponse: &protocol.RuntimeExecuteTxBatchResponse{
		Batch: protocol.ComputedBatch{
			Header:        newHeader,
			IOWriteLog:    append(inputLog, outputLog...),
			StateWriteLog: stateWriteLog,
			RakSig:        rakSig,
			Messages:      results.Messages,
		},
		BatchWeightLimits: results.BatchWeightLimits,
	}}
}

// handleCheck implements the transaction check path.
func (d *Dispatcher) handleCheck(ctx context.Context, state *hostState, req *protocol.RuntimeCheckTxBatchRequest) *protocol.Body {
	header := req.Block.Header
	if header.Namespace != d.runtimeID {
		panic(fmt.Sprintf("dispatcher: namespace mismatch: header=%s runtime=%s", header.Namespace, d.runtimeID))
	}

	vstate, err := state.verifier.UnverifiedState(req.ConsensusBlock)
	if err != nil {
		return errorBody(codeVerifierFailure, fmt.Sprintf("unverified_state failed: %v", err))
	}

	underlying := d.checkCache.MaybeReplace(storage.Root{Namespace: header.Namespace, Version: header.Round, Type: storage.RootTypeState, Hash: header.StateRoot})
	overlay := mkvs.NewOverlayTree(underlying)

	txnCtx := transaction.NewContext(ctx, vstate, overlay, header, req.Epoch, nil, req.MaxMessages, true)
	results, err := d.subDispatcher.CheckBatch(txnCtx, req.Inputs)
	if err != nil {
		return errorBody(codeSubDispatchFailed, fmt.Sprintf("check_batch failed: %v", err))
	}

	return &protocol.Body{RuntimeCheckTxBatchResponse: &protocol.RuntimeCheckTxBatchResponse{Results: results.Results}}
}

// handleQuery implements the read-only query path.
func (d *Dispatcher) handleQuery(ctx context.Context, state *hostState, req *protocol.RuntimeQueryRequest) *protocol.Body {
	if req.Header.Namespace != d.runtimeID {
		panic(fmt.Sprintf("dispatcher: namespace mismatch: header=%s runtime=%s", req.Header.Namespace, d.runtimeID))
	}

	vstate, err := state.verifier.UnverifiedState(req.ConsensusBlock)
	if err != nil {
		return errorBody(codeVerifierFailure, fmt.Sprintf("unverified_state failed: %v", err))
	}

	underlying := d.checkCache.MaybeReplace(storage.Root{Namespace: req.Header.Namespace, Version: req.Header.Round, Type: storage.RootTypeState, Hash: req.Header.StateRoot})
	overlay := mkvs.NewOverlayTree(underlying)

	txnCtx := transaction.NewContext(ctx, vstate, overlay, req.Header, req.Epoch, nil, req.MaxMessages, true)
	data, err := d.subDispatcher.Query(txnCtx, req.Method, req.Args)
	if err != nil {
		return errorBody(codeSubDispatchFailed, fmt.Sprintf("query failed: %v", err))
	}

	return &protocol.Body{RuntimeQueryResponse: &protocol.RuntimeQueryResponse{Data: data}}
}

// handleRPCCall implements the encrypted RPC session path. It never
// constructs an overlay: RPC handlers must be globally side-effect free.
func (d *Dispatcher) handleRPCCall(ctx context.Context, req *protocol.RuntimeRPCCallRequest) *protocol.Body {
	var out []byte
	sessionID, info, msg, plaintext, ok, err := d.demux.ProcessFrame(ctx, req.Request, &out)
	if err != nil {
		return errorBody(codeInvalidMessage, fmt.Sprintf("demux error: %v", err))
	}
	if !ok {
		return &protocol.Body{RuntimeRPCCallResponse: &protocol.RuntimeRPCCallResponse{Response: out}}
	}

	switch msg.Kind {
	case enclaverpc.MessageRequest:
		if string(plaintext) != msg.Request.Method {
			return errorBody(codeInvalidMessage, "method confusion: untrusted plaintext does not match request method")
		}
		rpcCtx := &enclaverpc.Context{Ctx: ctx, RAK: d.rak, SessionInfo: info, UntrustedLocalStorage: d.localStorage}
		response := d.rpcDispatcher.Dispatch(rpcCtx, msg.Request)
		if err := d.demux.WriteMessage(ctx, sessionID, response, &out); err != nil {
			return errorBody(codeInvalidMessage, fmt.Sprintf("demux write_message failed: %v", err))
		}
		return &protocol.Body{RuntimeRPCCallResponse: &protocol.RuntimeRPCCallResponse{Response: out}}
	case enclaverpc.MessageClose:
		if err := d.demux.Close(ctx, sessionID, &out); err != nil {
			return errorBody(codeInvalidMessage, fmt.Sprintf("demux close failed: %v", err))
		}
		return &protocol.Body{RuntimeRPCCallResponse: &protocol.RuntimeRPCCallResponse{Response: out}}
	default:
		return errorBody(codeInvalidMessage, "invalid RPC message type")
	}
}

// handleLocalRPCCall implements the local, unencrypted RPC path.
func (d *Dispatcher) handleLocalRPCCall(ctx context.Context, req *protocol.RuntimeLocalRPCCallRequest) *protocol.Body {
	var rpcReq enclaverpc.Request
	if err := cbor.Unmarshal(req.Request, &rpcReq); err != nil {
		return errorBody(codeInvalidMessage, fmt.Sprintf("unable to decode local rpc request: %v", err))
	}

	rpcCtx := &enclaverpc.Context{Ctx: ctx, RAK: d.rak, SessionInfo: nil, UntrustedLocalStorage: d.localStorage}
	response := d.rpcDispatcher.DispatchLocal(rpcCtx, rpcReq)

	return &protocol.Body{RuntimeLocalRPCCallResponse: &protocol.RuntimeLocalRPCCallResponse{Response: cbor.Marshal(response)}}
}

// handleKMPolicyUpdate implements the key-manager policy update path.
func (d *Dispatcher) handleKMPolicyUpdate(req *protocol.RuntimeKeyManagerPolicyUpdateRequest) *protocol.Body {
	if err := d.rpcDispatcher.HandleKMPolicyUpdate(req.SignedPolicyRaw); err != nil {
		return errorBody(codeSubDispatchFailed, fmt.Sprintf("key manager policy update failed: %v", err))
	}
	return &protocol.Body{RuntimeKeyManagerPolicyUpdateResponse: &protocol.Empty{}}
}

// handleConsensusSync implements the consensus sync pass-through.
func (d *Dispatcher) handleConsensusSync(state *hostState, req *protocol.RuntimeConsensusSyncRequest) *protocol.Body {
	if err := state.verifier.Sync(req.Height); err != nil {
		return errorBody(codeVerifierFailure, fmt.Sprintf("consensus sync failed: %v", err))
	}
	return &protocol.Body{RuntimeConsensusSyncResponse: &protocol.Empty{}}
}
