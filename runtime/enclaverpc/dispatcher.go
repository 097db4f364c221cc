package enclaverpc

import (
	"fmt"

	"github.com/linghuying/oasis-core/go/common/cbor"
)

// Handler handles a single decoded RPC Request and produces a raw CBOR
// result, or an error which is reported back to the caller as
// Response.Error.
type Handler interface {
	Handle(ctx *Context, args cbor.Value) (cbor.Value, error)
}

// HandlerFunc adapts a plain function to a Handler.
type HandlerFunc func(ctx *Context, args cbor.Value) (cbor.Value, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx *Context, args cbor.Value) (cbor.Value, error) { return f(ctx, args) }

// PolicyUpdateHandler observes a freshly delivered, signed key manager
// policy document.
type PolicyUpdateHandler interface {
	HandleKeyManagerPolicyUpdate(signedPolicyRaw []byte) error
}

// PolicyUpdateHandlerFunc adapts a plain function to a
// PolicyUpdateHandler.
type PolicyUpdateHandlerFunc func(signedPolicyRaw []byte) error

// HandleKeyManagerPolicyUpdate implements PolicyUpdateHandler.
func (f PolicyUpdateHandlerFunc) HandleKeyManagerPolicyUpdate(signedPolicyRaw []byte) error {
	return f(signedPolicyRaw)
}

// Dispatcher routes decoded RPC Requests to registered method handlers,
// both for encrypted session calls and for local, unencrypted calls.
type Dispatcher struct {
	methods      map[string]Handler
	localMethods map[string]Handler
	policy       PolicyUpdateHandler
}

// NewDispatcher constructs an empty RPC Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{methods: make(map[string]Handler), localMethods: make(map[string]Handler)}
}

// AddMethod registers a handler reachable over an encrypted session.
func (d *Dispatcher) AddMethod(name string, h Handler) { d.methods[name] = h }

// AddLocalMethod registers a handler reachable only over the local,
// unencrypted path.
func (d *Dispatcher) AddLocalMethod(name string, h Handler) { d.localMethods[name] = h }

// SetPolicyUpdateHandler configures the key manager policy update hook.
func (d *Dispatcher) SetPolicyUpdateHandler(h PolicyUpdateHandler) { d.policy = h }

// Dispatch routes an encrypted-session Request. RPC handlers are
// side-effect free and must not be given storage access: the RPC path
// must never commit to MKVS.
func (d *Dispatcher) Dispatch(ctx *Context, req Request) Response {
	return dispatch(d.methods, ctx, req)
}

// DispatchLocal routes a local, unencrypted Request.
func (d *Dispatcher) DispatchLocal(ctx *Context, req Request) Response {
	return dispatch(d.localMethods, ctx, req)
}

func dispatch(methods map[string]Handler, ctx *Context, req Request) Response {
	handler, ok := methods[req.Method]
	if !ok {
		msg := fmt.Sprintf("method not found: %s", req.Method)
		return Response{Error: &msg}
	}
	value, err := handler.Handle(ctx, req.Args)
	if err != nil {
		msg := err.Error()
		return Response{Error: &msg}
	}
	return Response{Success: &value}
}

// HandleKMPolicyUpdate invokes the configured policy update handler, if
// any.
func (d *Dispatcher) HandleKMPolicyUpdate(signedPolicyRaw []byte) error {
	if d.policy == nil {
		return nil
	}
	return d.policy.HandleKeyManagerPolicyUpdate(signedPolicyRaw)
}
