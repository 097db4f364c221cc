// Package transaction defines the transaction sub-dispatcher contract
// and the wire types it exchanges with the runtime call dispatcher:
// batches of opaque call/output bytes, and the tags each call's
// execution may emit into the I/O tree's per-round side index.
//
// TxnCall/TxnOutput/TxnBatch and the generic Method[Call, Output]
// handler registration lean on Go generics for type-safe dispatch,
// encoded with github.com/fxamacker/cbor/v2.
package transaction

import (
	"github.com/linghuying/oasis-core/go/common/cbor"
)

// RawBatch is a batch of opaque, CBOR-encoded transaction inputs or
// outputs, exactly as carried across the host/runtime wire boundary.
type RawBatch [][]byte

// TxnCall is a decoded transaction call: a method name plus its
// CBOR-encoded arguments.
type TxnCall struct {
	Method string     `json:"method"`
	Args   cbor.Value `json:"args"`
}

// TxnOutput is the result of dispatching a single TxnCall: exactly one
// of the two fields is meaningful, distinguished by Success.
type TxnOutput struct {
	Success bool       `json:"-"`
	Value   cbor.Value `json:"value,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// MarshalCBOR encodes the output as a single-key map distinguishing the
// two outcomes on the wire: {"Success": value} or {"Error": message}.
func (o TxnOutput) MarshalCBOR() ([]byte, error) {
	if o.Success {
		return cbor.Marshal(map[string]cbor.Value{"Success": o.Value}), nil
	}
	return cbor.Marshal(map[string]string{"Error": o.Error}), nil
}

// Tag is a key/value pair a transaction call may emit, indexed against
// the I/O tree's per-round side index so the host can look up which
// transaction produced a given effect without replaying the batch.
type Tag struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value,omitempty"`
	// TxnIndex is the index of the call that emitted this tag within
	// the batch, or TagTxnIndexBlock if emitted outside any single
	// call (the batch handler's start_batch/end_batch hooks).
	TxnIndex int32 `json:"txn_index"`
}

// TagTxnIndexBlock marks a Tag as emitted outside the scope of any
// single transaction call.
const TagTxnIndexBlock int32 = -1

// CheckTxResult is the check-batch counterpart of TxnOutput: whether
// the call would succeed, and if not, why.
type CheckTxResult struct {
	Error CheckTxError `json:"error"`
}

// CheckTxError carries the module/code/message of a failed check,
// mirroring common/errors.Error's wire shape so a check failure can be
// reported the same way a typed runtime error would be.
type CheckTxError struct {
	Module  string `json:"module,omitempty"`
	Code    uint32 `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// TxOutput pairs a dispatched call's raw output bytes with the tags it
// emitted, the shape of each entry in BatchOutput.Results.
type TxOutput struct {
	Output []byte `json:"output"`
	Tags   []Tag  `json:"tags,omitempty"`
}
