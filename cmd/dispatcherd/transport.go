package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/linghuying/oasis-core/go/common/cbor"
	"github.com/linghuying/oasis-core/go/common/namespace"
	"github.com/linghuying/oasis-core/go/runtime/host/protocol"
)

// stdioProtocol is a toy protocol.Protocol implementation for exercising
// the dispatcher end to end over a pair of pipes: every frame is a
// uint32 big-endian length prefix followed by a canonically
// CBOR-encoded protocol.Message. It is not a production transport (the
// spec explicitly leaves the wire-framed transport to the host out of
// scope); it exists so cmd/dispatcherd has something concrete to drive.
type stdioProtocol struct {
	runtimeID namespace.Namespace

	w      *bufio.Writer
	writeMu sync.Mutex

	nextID uint64

	pending   map[uint64]chan *protocol.Body
	pendingMu sync.Mutex
}

func newStdioProtocol(runtimeID namespace.Namespace, w io.Writer) *stdioProtocol {
	return &stdioProtocol{
		runtimeID: runtimeID,
		w:         bufio.NewWriter(w),
		pending:   make(map[uint64]chan *protocol.Body),
	}
}

func (p *stdioProtocol) GetRuntimeID() namespace.Namespace { return p.runtimeID }

func (p *stdioProtocol) writeMessage(msg protocol.Message) error {
	data := cbor.Marshal(msg)

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := p.w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := p.w.Write(data); err != nil {
		return err
	}
	return p.w.Flush()
}

// SendResponse implements protocol.Protocol.
func (p *stdioProtocol) SendResponse(id uint64, body protocol.Body) error {
	return p.writeMessage(protocol.Message{ID: id, MessageType: protocol.MessageResponse, Body: body})
}

// Call implements protocol.Protocol: it sends a request frame and
// blocks for the matching response, read back in by the frame reader
// loop and delivered through the pending map.
func (p *stdioProtocol) Call(ctx context.Context, body protocol.Body) (*protocol.Body, error) {
	id := atomic.AddUint64(&p.nextID, 1)
	ch := make(chan *protocol.Body, 1)

	p.pendingMu.Lock()
	p.pending[id] = ch
	p.pendingMu.Unlock()

	if err := p.writeMessage(protocol.Message{ID: id, MessageType: protocol.MessageRequest, Body: body}); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// deliver routes a response frame read off the wire to the Call that is
// waiting for it.
func (p *stdioProtocol) deliver(id uint64, body protocol.Body) {
	p.pendingMu.Lock()
	ch, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
	}
	p.pendingMu.Unlock()

	if ok {
		ch <- &body
	}
}

// readFrames reads length-prefixed messages from r until it returns an
// error, dispatching requests to handleRequest and routing responses
// back to whichever Call is waiting on them.
func readFrames(r io.Reader, p *stdioProtocol, handleRequest func(ctx context.Context, id uint64, body protocol.Body)) error {
	br := bufio.NewReader(r)
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return err
		}
		size := binary.BigEndian.Uint32(lenBuf[:])
		frame := make([]byte, size)
		if _, err := io.ReadFull(br, frame); err != nil {
			return err
		}

		var msg protocol.Message
		if err := cbor.Unmarshal(frame, &msg); err != nil {
			return fmt.Errorf("dispatcherd: malformed frame: %w", err)
		}

		switch msg.MessageType {
		case protocol.MessageResponse:
			p.deliver(msg.ID, msg.Body)
		case protocol.MessageRequest:
			handleRequest(context.Background(), msg.ID, msg.Body)
		}
	}
}
