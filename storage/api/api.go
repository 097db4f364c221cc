// Package api defines the MKVS wire types shared between the dispatcher
// and the host-backed read syncer: roots, write logs, and the sync
// request/response shapes carried inside HostStorageSyncRequest/Response.
package api

import (
	"github.com/linghuying/oasis-core/go/common/crypto/hash"
	"github.com/linghuying/oasis-core/go/common/namespace"
)

// RootType distinguishes the two kinds of authenticated tree a Root can
// pin: the runtime's persistent state, or the per-round I/O batch tree.
type RootType uint8

const (
	// RootTypeInvalid is the invalid root type, used as a zero value
	// sentinel so an uninitialized Root never compares equal to a real one.
	RootTypeInvalid RootType = 0
	// RootTypeState is the runtime state root type.
	RootTypeState RootType = 1
	// RootTypeIO is the I/O root type.
	RootTypeIO RootType = 2
)

// Root is a root hash pinned to a specific namespace, round, and tree
// kind.
type Root struct {
	Namespace namespace.Namespace `json:"ns"`
	Version   uint64              `json:"version"`
	Type      RootType            `json:"root_type"`
	Hash      hash.Hash           `json:"hash"`
}

// Empty returns the empty root of the given type at version 0.
func Empty(ns namespace.Namespace, typ RootType) Root {
	return Root{Namespace: ns, Version: 0, Type: typ, Hash: hash.Empty()}
}

// LogEntry is a single write operation within a WriteLog: Value == nil
// signifies a delete.
type LogEntry struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value,omitempty"`
}

// WriteLog is an ordered list of Set/Remove operations, the output of a
// tree Commit.
type WriteLog []LogEntry

// GetRequest is a single-key MKVS sync request.
type GetRequest struct {
	Tree Root   `json:"tree"`
	Key  []byte `json:"key"`
}

// GetPrefixesRequest is a multi-prefix MKVS sync request.
type GetPrefixesRequest struct {
	Tree     Root     `json:"tree"`
	Prefixes [][]byte `json:"prefixes"`
	Limit    uint32   `json:"limit"`
}

// IterateRequest is a range-iteration MKVS sync request.
type IterateRequest struct {
	Tree  Root   `json:"tree"`
	Key   []byte `json:"key"`
	Limit uint32 `json:"limit"`
}

// ProofNode is a single node's serialized contents within a sync proof.
type ProofNode []byte

// Proof is a Merkle inclusion/exclusion proof.
type Proof struct {
	// UntrustedRoot is the root hash this proof is relative to, for sanity
	// checking by the caller.
	UntrustedRoot hash.Hash   `json:"untrusted_root"`
	Entries       []ProofNode `json:"entries"`
}

// ProofResponse carries a Proof back from the host for any of the three
// request shapes above.
type ProofResponse struct {
	Proof Proof `json:"proof"`
}
