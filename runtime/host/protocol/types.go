// Package protocol defines the wire message envelope exchanged between
// the host process and the runtime dispatcher: a request envelope and
// the external runtime/host interfaces built on top of it.
//
// Body is a set of mutually exclusive optional fields covering the
// runtime and host request/response pairs this dispatcher implements
// (ConsensusSync, KeyManagerPolicyUpdate, Abort, and the transaction
// execute/check/query calls); capability/attestation and P2P-facing
// fields outside that scope are omitted.
package protocol

import (
	"reflect"

	beacon "github.com/linghuying/oasis-core/go/consensus/beacon"
	consensus "github.com/linghuying/oasis-core/go/consensus/api"
	"github.com/linghuying/oasis-core/go/common/crypto/hash"
	"github.com/linghuying/oasis-core/go/common/crypto/signature"
	commonerrors "github.com/linghuying/oasis-core/go/common/errors"
	roothash "github.com/linghuying/oasis-core/go/roothash/api"
	"github.com/linghuying/oasis-core/go/roothash/api/block"
	"github.com/linghuying/oasis-core/go/roothash/api/commitment"
	"github.com/linghuying/oasis-core/go/roothash/api/message"
	"github.com/linghuying/oasis-core/go/runtime/transaction"
	storage "github.com/linghuying/oasis-core/go/storage/api"
)

// Message is an envelope carrying a single request or response body.
type Message struct {
	ID          uint64      `json:"id"`
	MessageType MessageType `json:"message_type"`
	Body        Body        `json:"body"`
}

// MessageType distinguishes a request frame from a response frame.
type MessageType uint8

const (
	MessageInvalid  MessageType = 0
	MessageRequest  MessageType = 1
	MessageResponse MessageType = 2
)

// Body is a protocol message body: exactly one field is set.
type Body struct {
	Empty *Empty              `json:",omitempty"`
	Error *commonerrors.Error `json:",omitempty"`

	// Runtime interface (host -> runtime requests, runtime -> host responses).
	RuntimeRPCCallRequest                 *RuntimeRPCCallRequest                `json:",omitempty"`
	RuntimeRPCCallResponse                *RuntimeRPCCallResponse               `json:",omitempty"`
	RuntimeLocalRPCCallRequest             *RuntimeLocalRPCCallRequest           `json:",omitempty"`
	RuntimeLocalRPCCallResponse            *RuntimeLocalRPCCallResponse          `json:",omitempty"`
	RuntimeCheckTxBatchRequest             *RuntimeCheckTxBatchRequest           `json:",omitempty"`
	RuntimeCheckTxBatchResponse            *RuntimeCheckTxBatchResponse          `json:",omitempty"`
	RuntimeExecuteTxBatchRequest           *RuntimeExecuteTxBatchRequest         `json:",omitempty"`
	RuntimeExecuteTxBatchResponse          *RuntimeExecuteTxBatchResponse        `json:",omitempty"`
	RuntimeQueryRequest                    *RuntimeQueryRequest                  `json:",omitempty"`
	RuntimeQueryResponse                   *RuntimeQueryResponse                 `json:",omitempty"`
	RuntimeConsensusSyncRequest            *RuntimeConsensusSyncRequest          `json:",omitempty"`
	RuntimeConsensusSyncResponse           *Empty                                `json:",omitempty"`
	RuntimeKeyManagerPolicyUpdateRequest   *RuntimeKeyManagerPolicyUpdateRequest `json:",omitempty"`
	RuntimeKeyManagerPolicyUpdateResponse  *Empty                                `json:",omitempty"`
	RuntimeAbortRequest                    *Empty                                `json:",omitempty"`
	RuntimeAbortResponse                   *Empty                                `json:",omitempty"`

	// Host interface (runtime -> host requests, host -> runtime responses).
	HostStorageSyncRequest          *HostStorageSyncRequest          `json:",omitempty"`
	HostStorageSyncResponse         *HostStorageSyncResponse         `json:",omitempty"`
	HostLocalStorageGetRequest      *HostLocalStorageGetRequest      `json:",omitempty"`
	HostLocalStorageGetResponse     *HostLocalStorageGetResponse     `json:",omitempty"`
	HostLocalStorageSetRequest      *HostLocalStorageSetRequest      `json:",omitempty"`
	HostLocalStorageSetResponse     *Empty                           `json:",omitempty"`
	HostFetchConsensusBlockRequest  *HostFetchConsensusBlockRequest  `json:",omitempty"`
	HostFetchConsensusBlockResponse *HostFetchConsensusBlockResponse `json:",omitempty"`
}

// Type returns the name of the first non-nil field of Body, used for
// logging and metrics labels.
func (body Body) Type() string {
	b := reflect.ValueOf(body)
	for i := 0; i < b.NumField(); i++ {
		if !b.Field(i).IsNil() {
			return reflect.TypeOf(body).Field(i).Name
		}
	}
	return ""
}

// Empty is an empty message body.
type Empty struct{}

// RuntimeRPCCallRequest is an encrypted-session RPC call request.
type RuntimeRPCCallRequest struct {
	Request []byte `json:"request"`
}

// RuntimeRPCCallResponse is an encrypted-session RPC call response.
type RuntimeRPCCallResponse struct {
	Response []byte `json:"response"`
}

// RuntimeLocalRPCCallRequest is a local (unencrypted, in-process) RPC call
// request.
type RuntimeLocalRPCCallRequest struct {
	Request []byte `json:"request"`
}

// RuntimeLocalRPCCallResponse is a local RPC call response.
type RuntimeLocalRPCCallResponse struct {
	Response []byte `json:"response"`
}

// RuntimeCheckTxBatchRequest is a transaction check-batch request.
type RuntimeCheckTxBatchRequest struct {
	ConsensusBlock consensus.LightBlock `json:"consensus_block"`
	Inputs         transaction.RawBatch `json:"inputs"`
	Block          block.Block          `json:"block"`
	Epoch          beacon.EpochTime     `json:"epoch"`
	MaxMessages    uint32               `json:"max_messages"`
}

// RuntimeCheckTxBatchResponse is a transaction check-batch response.
type RuntimeCheckTxBatchResponse struct {
	Results []transaction.CheckTxResult `json:"results"`
}

// ComputedBatch is the result of a successful execute batch.
type ComputedBatch struct {
	Header        commitment.ComputeResultsHeader `json:"header"`
	IOWriteLog    storage.WriteLog                `json:"io_write_log"`
	StateWriteLog storage.WriteLog                `json:"state_write_log"`
	RakSig        signature.RawSignature           `json:"rak_sig"`
	Messages      []message.Message               `json:"messages"`
}

// RuntimeExecuteTxBatchRequest is a transaction execute-batch request.
type RuntimeExecuteTxBatchRequest struct {
	ConsensusBlock consensus.LightBlock       `json:"consensus_block"`
	RoundResults   *roothash.RoundResults     `json:"round_results"`
	IORoot         hash.Hash                  `json:"io_root"`
	Inputs         transaction.RawBatch       `json:"inputs"`
	InMessages     []*message.IncomingMessage `json:"in_msgs,omitempty"`
	Block          block.Block                `json:"block"`
	Epoch          beacon.EpochTime           `json:"epoch"`
	MaxMessages    uint32                     `json:"max_messages"`
}

// RuntimeExecuteTxBatchResponse is a transaction execute-batch response.
type RuntimeExecuteTxBatchResponse struct {
	Batch             ComputedBatch     `json:"batch"`
	BatchWeightLimits map[string]uint64 `json:"batch_weight_limits,omitempty"`
}

// RuntimeQueryRequest is a read-only runtime query request.
type RuntimeQueryRequest struct {
	ConsensusBlock consensus.LightBlock `json:"consensus_block"`
	Header         block.Header         `json:"header"`
	Epoch          beacon.EpochTime     `json:"epoch"`
	MaxMessages    uint32               `json:"max_messages"`
	Method         string               `json:"method"`
	Args           []byte               `json:"args,omitempty"`
}

// RuntimeQueryResponse is a runtime query response.
type RuntimeQueryResponse struct {
	Data []byte `json:"data,omitempty"`
}

// RuntimeConsensusSyncRequest asks the runtime's consensus verifier to
// sync to the given height.
type RuntimeConsensusSyncRequest struct {
	Height uint64 `json:"height"`
}

// RuntimeKeyManagerPolicyUpdateRequest delivers a signed key manager
// policy document to the RPC dispatcher.
type RuntimeKeyManagerPolicyUpdateRequest struct {
	SignedPolicyRaw []byte `json:"signed_policy_raw"`
}

// HostStorageEndpoint selects which host-side storage backend a sync
// request should be routed to.
type HostStorageEndpoint uint8

const (
	// HostStorageEndpointRuntime is the runtime state storage endpoint.
	HostStorageEndpointRuntime HostStorageEndpoint = 0
	// HostStorageEndpointConsensus is the consensus layer state storage
	// endpoint.
	HostStorageEndpointConsensus HostStorageEndpoint = 1
)

// HostStorageSyncRequest is a host MKVS read-syncer request.
type HostStorageSyncRequest struct {
	Endpoint HostStorageEndpoint `json:"endpoint,omitempty"`

	SyncGet         *storage.GetRequest         `json:",omitempty"`
	SyncGetPrefixes *storage.GetPrefixesRequest `json:",omitempty"`
	SyncIterate     *storage.IterateRequest     `json:",omitempty"`
}

// HostStorageSyncResponse is a host MKVS read-syncer response.
type HostStorageSyncResponse struct {
	ProofResponse *storage.ProofResponse `json:",omitempty"`
}

// HostLocalStorageGetRequest fetches a value from untrusted, node-local
// storage keyed by runtime ID.
type HostLocalStorageGetRequest struct {
	Key []byte `json:"key"`
}

// HostLocalStorageGetResponse carries the requested value (nil if absent).
type HostLocalStorageGetResponse struct {
	Value []byte `json:"value"`
}

// HostLocalStorageSetRequest writes a value to untrusted, node-local
// storage keyed by runtime ID.
type HostLocalStorageSetRequest struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// HostFetchConsensusBlockRequest asks the host for a consensus light
// block at the given height.
type HostFetchConsensusBlockRequest struct {
	Height uint64 `json:"height"`
}

// HostFetchConsensusBlockResponse carries the requested light block.
type HostFetchConsensusBlockResponse struct {
	Block consensus.LightBlock `json:"block"`
}
