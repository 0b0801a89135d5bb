// Copyright (c) 2024-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txnvalidator

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// TxSource identifies the submission channel a candidate transaction arrived
// through.  The source does not change how a transaction is validated, but it
// is carried through the pipeline for logging and for peer-specific side
// effects such as future relay decisions.
type TxSource uint8

// Constants for the supported transaction submission channels.
const (
	SourceUnknown TxSource = iota
	SourceWallet
	SourceRPC
	SourceFile
	SourceP2P
	SourceReorg
	SourceFinalised
)

// txSourceStrings is a map of transaction sources back to their constant
// names for pretty printing.
var txSourceStrings = map[TxSource]string{
	SourceUnknown:   "unknown",
	SourceWallet:    "wallet",
	SourceRPC:       "rpc",
	SourceFile:      "file",
	SourceP2P:       "p2p",
	SourceReorg:     "reorg",
	SourceFinalised: "finalised",
}

// String returns the TxSource in human-readable form.
func (s TxSource) String() string {
	if str, ok := txSourceStrings[s]; ok {
		return str
	}
	return "unknown"
}

// Priority is the validation priority requested by the submitter.  High
// priority transactions are not validated differently; the priority exists so
// that integrating nodes can segregate latency-sensitive work.
type Priority uint8

// Constants for the supported validation priorities.
const (
	PriorityNormal Priority = iota
	PriorityHigh
)

// PeerTag is a non-owning identifier for the peer connection a transaction
// was relayed from.  It never extends the peer's lifetime; callers resolve it
// through a PeerLookup when a live connection is actually needed.  The zero
// value means the transaction did not originate from a peer.
type PeerTag uint64

// ValidationRecord wraps one candidate transaction together with its
// submission metadata.  A record is immutable once created: it is handed to
// the validator and consumed when validation concludes.
type ValidationRecord struct {
	// Tx is the already-decoded transaction under consideration.  The
	// btcutil wrapper is shared, not copied, since multiple subsystems may
	// hold a reference to the same transaction.
	Tx *btcutil.Tx

	// Source is the channel the transaction was submitted through.
	Source TxSource

	// Priority is the requested validation priority.
	Priority Priority

	// AcceptTime is the time the transaction was handed to the validator.
	AcceptTime time.Time

	// LimitFree indicates the transaction is subject to the free-relay
	// rate limit applied by the fee policy collaborator.
	LimitFree bool

	// AbsurdFee is a policy ceiling guarding against fat-fingered fees.
	// Zero disables the guard.
	AbsurdFee btcutil.Amount

	// Peer identifies the originating peer connection, if any.
	Peer PeerTag
}

// NewValidationRecord returns a validation record for the passed transaction
// and submission source with normal priority and the acceptance time set to
// now.
func NewValidationRecord(tx *btcutil.Tx, source TxSource) *ValidationRecord {
	return &ValidationRecord{
		Tx:         tx,
		Source:     source,
		Priority:   PriorityNormal,
		AcceptTime: time.Now(),
	}
}

// TxHash returns the identifier of the wrapped transaction.
func (r *ValidationRecord) TxHash() *chainhash.Hash {
	return r.Tx.Hash()
}
