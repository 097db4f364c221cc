// Package api defines the minimum consensus-layer surface the dispatcher
// consumes. The actual consensus backend (a Tendermint light client in
// production) is an external collaborator and is not implemented here.
package api

// LightBlock is an opaque, consensus-backend-specific light block handle.
// The dispatcher threads it through to the Verifier unexamined.
type LightBlock struct {
	Height int64  `json:"height"`
	Meta   []byte `json:"meta"`
}
