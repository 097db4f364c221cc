// Package beacon provides the epoch coordinate exposed to runtime
// handlers.
package beacon

// EpochTime is a consensus epoch number.
type EpochTime uint64
