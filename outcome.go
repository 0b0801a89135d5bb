// Copyright (c) 2024-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txnvalidator

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// RejectReason describes why a transaction was refused admission.  The set is
// closed: every consumption site is expected to switch over it exhaustively
// so new reasons cannot be silently ignored.
type RejectReason uint8

// Constants for the supported rejection reasons.  Exactly one reason applies
// to any rejected transaction.
const (
	// ReasonNone is the zero value and never appears on a rejection.
	ReasonNone RejectReason = iota

	// ReasonDuplicate indicates the transaction id is already in the pool
	// or already under active validation.
	ReasonDuplicate

	// ReasonDoubleSpend indicates another in-flight transaction in the
	// same validation pass already reserved one of the inputs.
	ReasonDoubleSpend

	// ReasonMempoolConflict indicates an unconfirmed transaction already
	// in the pool spends one of the inputs.
	ReasonMempoolConflict

	// ReasonConsensus indicates the transaction failed a consensus rule
	// (script, signature, or input validity).
	ReasonConsensus

	// ReasonPolicy indicates the transaction violated a relay policy such
	// as standardness or fee requirements.  Insufficient fee is the
	// retryable sub-case, flagged separately on the outcome.
	ReasonPolicy

	// ReasonValueOutOfRange indicates a declared output value, or the sum
	// of output values, falls outside the representable monetary range.
	// Always fatal for the transaction.
	ReasonValueOutOfRange

	// ReasonInternal indicates an unexpected internal fault while
	// validating the transaction.  The fault is contained to the single
	// entry; the rest of the batch proceeds.
	ReasonInternal
)

// rejectReasonStrings is a map of rejection reasons back to their constant
// names for pretty printing.
var rejectReasonStrings = map[RejectReason]string{
	ReasonNone:            "none",
	ReasonDuplicate:       "duplicate",
	ReasonDoubleSpend:     "double-spend-detected",
	ReasonMempoolConflict: "mempool-conflict-detected",
	ReasonConsensus:       "consensus-rule-violation",
	ReasonPolicy:          "policy-violation",
	ReasonValueOutOfRange: "value-out-of-range",
	ReasonInternal:        "internal-error",
}

// String returns the RejectReason in human-readable form.
func (r RejectReason) String() string {
	if str, ok := rejectReasonStrings[r]; ok {
		return str
	}
	return fmt.Sprintf("unknown reason (%d)", uint8(r))
}

// Outcome is the terminal validation result for a single transaction.  It is
// a tagged variant: either valid, orphaned (held for a missing parent, not
// finalized), or rejected with exactly one RejectReason.
type Outcome struct {
	reason          RejectReason
	orphaned        bool
	insufficientFee bool
	detail          string
}

// Valid returns the outcome of a successfully admitted transaction.
func Valid() Outcome {
	return Outcome{}
}

// Reject returns a rejection outcome carrying the passed reason and a
// human-readable detail string.
func Reject(reason RejectReason, detail string) Outcome {
	return Outcome{reason: reason, detail: detail}
}

// rejectInsufficientFee returns the retryable policy rejection applied to
// transactions refused solely for not paying enough fee.
func rejectInsufficientFee(detail string) Outcome {
	return Outcome{
		reason:          ReasonPolicy,
		insufficientFee: true,
		detail:          detail,
	}
}

// orphanedOutcome marks a transaction held in the orphan buffer.  It is not a
// terminal rejection and is never recorded in a RejectedTxns result.
func orphanedOutcome() Outcome {
	return Outcome{orphaned: true}
}

// IsValid returns whether the transaction was admitted to the pool.
func (o Outcome) IsValid() bool {
	return o.reason == ReasonNone && !o.orphaned
}

// IsOrphaned returns whether the transaction was buffered pending the arrival
// of a missing parent rather than finalized.
func (o Outcome) IsOrphaned() bool {
	return o.orphaned
}

// Reason returns the rejection reason, or ReasonNone for valid and orphaned
// outcomes.
func (o Outcome) Reason() RejectReason {
	return o.reason
}

// Detail returns the human-readable rejection detail.
func (o Outcome) Detail() string {
	return o.detail
}

// IsDuplicate returns whether the transaction was refused as already known.
func (o Outcome) IsDuplicate() bool {
	return o.reason == ReasonDuplicate
}

// IsDoubleSpendDetected returns whether the transaction lost an intra-batch
// input reservation to another in-flight transaction.
func (o Outcome) IsDoubleSpendDetected() bool {
	return o.reason == ReasonDoubleSpend
}

// IsMempoolConflictDetected returns whether an unconfirmed pool transaction
// already spends one of the inputs.
func (o Outcome) IsMempoolConflictDetected() bool {
	return o.reason == ReasonMempoolConflict
}

// IsValueOutOfRange returns whether a declared monetary value was outside the
// representable range.
func (o Outcome) IsValueOutOfRange() bool {
	return o.reason == ReasonValueOutOfRange
}

// IsInsufficientFee returns whether the transaction was rejected solely for
// not paying enough fee.  Such rejections are retryable and are reported
// separately from invalidity.
func (o Outcome) IsInsufficientFee() bool {
	return o.insufficientFee
}

// String returns the Outcome in human-readable form.
func (o Outcome) String() string {
	switch {
	case o.orphaned:
		return "orphaned"
	case o.reason == ReasonNone:
		return "valid"
	case o.detail == "":
		return o.reason.String()
	default:
		return fmt.Sprintf("%v: %s", o.reason, o.detail)
	}
}

// RejectedTxns is the result of a synchronous batch validation.  Transactions
// rejected as invalid are kept separate from transactions rejected solely for
// insufficient fee, since the latter are retryable.
type RejectedTxns struct {
	// Invalid maps transaction ids to their terminal rejection outcome.
	Invalid map[chainhash.Hash]Outcome

	// InsufficientFee maps transaction ids rejected only for fee reasons
	// to their outcome.
	InsufficientFee map[chainhash.Hash]Outcome
}

// newRejectedTxns returns an empty batch result.
func newRejectedTxns() RejectedTxns {
	return RejectedTxns{
		Invalid:         make(map[chainhash.Hash]Outcome),
		InsufficientFee: make(map[chainhash.Hash]Outcome),
	}
}

// add records a rejection outcome in the appropriate map.
func (r *RejectedTxns) add(hash chainhash.Hash, outcome Outcome) {
	if outcome.IsInsufficientFee() {
		r.InsufficientFee[hash] = outcome
		return
	}
	r.Invalid[hash] = outcome
}
