package main

import (
	"context"

	"github.com/linghuying/oasis-core/go/common/cbor"
	consensusAPI "github.com/linghuying/oasis-core/go/consensus/api"
	"github.com/linghuying/oasis-core/go/consensus/verifier"
	"github.com/linghuying/oasis-core/go/roothash/api/block"
	"github.com/linghuying/oasis-core/go/roothash/api/commitment"
	"github.com/linghuying/oasis-core/go/runtime/enclaverpc"
)

// plaintextDemux is a toy Demux with no session handshake or
// encryption: every frame is a canonically CBOR-encoded
// enclaverpc.Message, and the "untrusted plaintext" is just the
// method name copied back out verbatim. It exists only so dispatcherd
// has something concrete wired into the RPC call path to exercise; the
// real session cryptography is out of scope.
type plaintextDemux struct{}

func (plaintextDemux) ProcessFrame(ctx context.Context, frame []byte, out *[]byte) (sessionID enclaverpc.SessionID, info *enclaverpc.SessionInfo, msg *enclaverpc.Message, plaintext []byte, ok bool, err error) {
	var m enclaverpc.Message
	if err = cbor.Unmarshal(frame, &m); err != nil {
		return
	}
	msg = &m
	ok = true
	if m.Kind == enclaverpc.MessageRequest {
		plaintext = []byte(m.Request.Method)
	}
	return
}

func (plaintextDemux) WriteMessage(ctx context.Context, sessionID enclaverpc.SessionID, resp enclaverpc.Response, out *[]byte) error {
	*out = cbor.Marshal(resp)
	return nil
}

func (plaintextDemux) Close(ctx context.Context, sessionID enclaverpc.SessionID, out *[]byte) error {
	*out = nil
	return nil
}

// trustingState is the verifier.State returned by trustingVerifier.
type trustingState struct{ height int64 }

func (s trustingState) Height() int64 { return s.height }

// trustingVerifier is a toy verifier.Verifier that accepts every header
// and light block without actually checking anything against a
// consensus light client. The real light-client verification algorithm
// is an external collaborator the spec leaves unspecified.
type trustingVerifier struct{}

func (trustingVerifier) Sync(height uint64) error { return nil }

func (trustingVerifier) Verify(consensusBlock consensusAPI.LightBlock, header block.Header) (verifier.State, error) {
	return trustingState{height: consensusBlock.Height}, nil
}

func (trustingVerifier) UnverifiedState(consensusBlock consensusAPI.LightBlock) (verifier.State, error) {
	return trustingState{height: consensusBlock.Height}, nil
}

func (trustingVerifier) Trust(header *commitment.ComputeResultsHeader) error { return nil }

var (
	_ verifier.Verifier = trustingVerifier{}
	_ enclaverpc.Demux  = plaintextDemux{}
)
