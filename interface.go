// Copyright (c) 2024-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txnvalidator

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// TxPool defines the narrow view of the pending-transaction pool consumed by
// the validator.  The pool is the single source of truth for "already
// accepted"; the validator is the only component that mutates it.
type TxPool interface {
	// Contains returns whether the passed transaction id is already in
	// the pool.
	Contains(hash *chainhash.Hash) bool

	// HasConflict returns the id of an unconfirmed pool transaction that
	// spends one of the passed transaction's inputs, or nil when no such
	// spender exists.
	HasConflict(tx *btcutil.Tx) *chainhash.Hash

	// Insert adds a validated transaction to the pool and marks its
	// inputs as spent by the pool.
	Insert(record *ValidationRecord) error

	// Size returns the number of transactions in the pool.
	Size() int

	// Clear removes all transactions from the pool.  Test and reset use
	// only.
	Clear()
}

// ConsensusChecker is the external validation engine: script and signature
// verification, input availability, and fee policy.  Consensus rule
// evaluation itself is assumed correct and is only invoked here.
type ConsensusChecker interface {
	// CheckTransaction validates the passed record against consensus and
	// policy rules.  It returns the ids of any missing parent
	// transactions, in which case the transaction is an orphan and the
	// returned error is nil.  Rule failures are reported as TxRuleError
	// values so the validator can classify them; a ValueError reports an
	// out-of-range monetary value.
	CheckTransaction(record *ValidationRecord) (missingParents []chainhash.Hash, err error)
}

// ConsensusCheckerFunc is an adapter allowing an ordinary function to be used
// as a ConsensusChecker.
type ConsensusCheckerFunc func(record *ValidationRecord) ([]chainhash.Hash, error)

// CheckTransaction calls f(record).
func (f ConsensusCheckerFunc) CheckTransaction(record *ValidationRecord) ([]chainhash.Hash, error) {
	return f(record)
}

// ChangeSetSink receives fire-and-forget notifications about pool insertions,
// consumed by downstream block-template builders.  Implementations must not
// block; a nil sink is treated as a no-op.
type ChangeSetSink interface {
	// NotifyInserted reports that the passed transaction id was inserted
	// into the pool.
	NotifyInserted(hash chainhash.Hash)
}

// PeerLookup resolves non-owning peer tags carried by validation records.
// The validator only ever reads through this interface; it never takes
// ownership of peer resources.
type PeerLookup interface {
	// Connected returns whether the peer identified by the passed tag is
	// still connected.
	Connected(tag PeerTag) bool
}
