package enclaverpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linghuying/oasis-core/go/common/cbor"
)

func TestDispatchRoutesToRegisteredMethod(t *testing.T) {
	d := NewDispatcher()
	d.AddMethod("echo", HandlerFunc(func(ctx *Context, args cbor.Value) (cbor.Value, error) {
		return args, nil
	}))

	rpcCtx := &Context{Ctx: context.Background()}
	resp := d.Dispatch(rpcCtx, Request{Method: "echo", Args: cbor.Marshal("hi")})
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Success)

	var out string
	require.NoError(t, cbor.Unmarshal(*resp.Success, &out))
	require.Equal(t, "hi", out)
}

func TestDispatchUnknownMethodReturnsError(t *testing.T) {
	d := NewDispatcher()
	rpcCtx := &Context{Ctx: context.Background()}

	resp := d.Dispatch(rpcCtx, Request{Method: "nope"})
	require.Nil(t, resp.Success)
	require.NotNil(t, resp.Error)
	require.Contains(t, *resp.Error, "method not found")
}

func TestDispatchHandlerErrorSurfacesAsResponseError(t *testing.T) {
	d := NewDispatcher()
	d.AddMethod("boom", HandlerFunc(func(ctx *Context, args cbor.Value) (cbor.Value, error) {
		return nil, context.DeadlineExceeded
	}))

	resp := d.Dispatch(&Context{Ctx: context.Background()}, Request{Method: "boom"})
	require.Nil(t, resp.Success)
	require.NotNil(t, resp.Error)
	require.Equal(t, context.DeadlineExceeded.Error(), *resp.Error)
}

func TestDispatchLocalOnlyReachesLocalMethods(t *testing.T) {
	d := NewDispatcher()
	d.AddLocalMethod("local-only", HandlerFunc(func(ctx *Context, args cbor.Value) (cbor.Value, error) {
		return cbor.Marshal("ok"), nil
	}))

	// Not reachable through the encrypted-session path.
	sessionResp := d.Dispatch(&Context{Ctx: context.Background()}, Request{Method: "local-only"})
	require.NotNil(t, sessionResp.Error)

	localResp := d.DispatchLocal(&Context{Ctx: context.Background()}, Request{Method: "local-only"})
	require.Nil(t, localResp.Error)
	require.NotNil(t, localResp.Success)
}

func TestHandleKMPolicyUpdateInvokesHandler(t *testing.T) {
	d := NewDispatcher()
	var received []byte
	d.SetPolicyUpdateHandler(PolicyUpdateHandlerFunc(func(signedPolicyRaw []byte) error {
		received = signedPolicyRaw
		return nil
	}))

	require.NoError(t, d.HandleKMPolicyUpdate([]byte("policy-bytes")))
	require.Equal(t, []byte("policy-bytes"), received)
}

func TestHandleKMPolicyUpdateNoopWithoutHandler(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.HandleKMPolicyUpdate([]byte("anything")))
}

// fakeLocalStorage satisfies the LocalStorage contract a Context may
// carry, exercised here only to confirm Context threads it through
// untouched by the dispatcher itself.
type fakeLocalStorage struct {
	store map[string][]byte
}

func (f *fakeLocalStorage) Get(ctx context.Context, key []byte) ([]byte, error) {
	return f.store[string(key)], nil
}

func (f *fakeLocalStorage) Set(ctx context.Context, key, value []byte) error {
	f.store[string(key)] = value
	return nil
}

func TestContextCarriesLocalStorage(t *testing.T) {
	d := NewDispatcher()
	ls := &fakeLocalStorage{store: map[string][]byte{"k": []byte("v")}}
	d.AddMethod("read-local", HandlerFunc(func(ctx *Context, args cbor.Value) (cbor.Value, error) {
		v, err := ctx.UntrustedLocalStorage.Get(ctx.Ctx, []byte("k"))
		if err != nil {
			return nil, err
		}
		return cbor.Marshal(string(v)), nil
	}))

	resp := d.Dispatch(&Context{Ctx: context.Background(), UntrustedLocalStorage: ls}, Request{Method: "read-local"})
	require.Nil(t, resp.Error)
	var out string
	require.NoError(t, cbor.Unmarshal(*resp.Success, &out))
	require.Equal(t, "v", out)
}
