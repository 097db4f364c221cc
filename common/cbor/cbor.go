// Package cbor provides the canonical CBOR encoding used for the
// host-runtime wire protocol and for transaction call/output payloads.
//
// All encoding goes through a single pair of shared EncMode/DecMode
// instances configured for deterministic (RFC 7049 canonical, sorted-map-key)
// output, so two dispatcher processes given the same Go value always
// produce byte-identical wire frames.
package cbor

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	encOpts := cbor.CanonicalEncOptions()
	encOpts.Time = cbor.TimeUnix
	var err error
	if encMode, err = encOpts.EncMode(); err != nil {
		panic(fmt.Sprintf("cbor: failed to build encoding mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}
	if decMode, err = decOpts.DecMode(); err != nil {
		panic(fmt.Sprintf("cbor: failed to build decoding mode: %v", err))
	}
}

// Marshal serializes v into canonical CBOR.
func Marshal(v interface{}) []byte {
	data, err := encMode.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("cbor: failed to marshal: %v", err))
	}
	return data
}

// Unmarshal deserializes CBOR data into v.
func Unmarshal(data []byte, v interface{}) error {
	return decMode.Unmarshal(data, v)
}

// RawMessage is a raw encoded CBOR value, analogous to json.RawMessage.
type RawMessage = cbor.RawMessage

// Value is an opaque, already-encoded CBOR value threaded through the
// transaction call/output and query boundaries without being decoded by
// the dispatcher itself.
type Value = cbor.RawMessage
