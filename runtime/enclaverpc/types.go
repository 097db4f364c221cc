// Package enclaverpc defines the RPC session demultiplexer and
// sub-dispatcher contracts the host call dispatcher drives on the
// session-call and local-call paths. The wire format of a session frame
// and the session cryptography that turns one into a typed Message are
// out of scope; Demux is fixed only as the interface the host
// dispatcher calls through.
package enclaverpc

import (
	"github.com/linghuying/oasis-core/go/common/cbor"
)

// SessionID identifies an open encrypted RPC session.
type SessionID [16]byte

// MessageKind distinguishes the decoded contents of a session frame.
type MessageKind uint8

const (
	// MessageRequest carries a method invocation.
	MessageRequest MessageKind = iota
	// MessageClose asks the session to be torn down.
	MessageClose
)

// Request is a decoded RPC method invocation.
type Request struct {
	Method string     `json:"method"`
	Args   cbor.Value `json:"args"`
}

// Response is the result of dispatching a Request.
type Response struct {
	Success *cbor.Value `json:"success,omitempty"`
	Error   *string     `json:"error,omitempty"`
}

// Message is a single decoded session frame: exactly one of Request's
// validity or Kind == MessageClose applies, matching the tagged-union
// shape ProcessFrame decodes a frame into.
type Message struct {
	Kind    MessageKind
	Request Request
}

// SessionInfo is opaque, attested information about the session's peer,
// threaded through to call handlers via Context but never
// interpreted by the dispatcher itself.
type SessionInfo struct {
	Data []byte
}
