package enclaverpc

import "context"

// Demux is the session-layer multiplexer: it turns raw frame bytes
// into a typed Message under a session id, and turns a typed Response
// back into framed bytes to return to the host. Its cryptography and
// wire format are out of scope; this package only fixes the shape the
// host dispatcher drives it through.
type Demux interface {
	// ProcessFrame decodes a single incoming frame. A nil returned
	// Message with ok == false means the handshake is still in
	// progress and out has been filled with a handshake response to
	// return to the peer verbatim. A non-nil Message means the frame
	// decoded to application data; out is left empty in that case.
	ProcessFrame(ctx context.Context, frame []byte, out *[]byte) (sessionID SessionID, info *SessionInfo, msg *Message, plaintext []byte, ok bool, err error)

	// WriteMessage frames resp for sessionID into out.
	WriteMessage(ctx context.Context, sessionID SessionID, resp Response, out *[]byte) error

	// Close tears down sessionID, framing any final bytes into out.
	Close(ctx context.Context, sessionID SessionID, out *[]byte) error
}
