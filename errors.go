// Copyright (c) 2024-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txnvalidator

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// TxRuleError identifies a rule violation related to a transaction.  It is
// used to indicate that processing of the transaction failed due to one of
// the many validation rules.  The caller can use type assertions to determine
// if a failure was specifically due to a rule violation and access the
// wire.RejectCode field for classification.
type TxRuleError struct {
	RejectCode  wire.RejectCode // The code to send with reject messages
	Description string          // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e TxRuleError) Error() string {
	return e.Description
}

// txRuleError creates a TxRuleError given a set of arguments.
func txRuleError(c wire.RejectCode, desc string) TxRuleError {
	return TxRuleError{RejectCode: c, Description: desc}
}

// ValueError identifies a monetary value that falls outside the representable
// range.  It is raised by the value-range guard and converted into a
// value-out-of-range outcome at the validation boundary; it never propagates
// out of the validator.
type ValueError struct {
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e ValueError) Error() string {
	return e.Description
}

// valueError creates a ValueError given a format specifier and arguments.
func valueError(format string, args ...interface{}) ValueError {
	return ValueError{Description: fmt.Sprintf(format, args...)}
}

// extractRejectCode attempts to return a relevant reject code for a given
// error by examining the error for a TxRuleError.
func extractRejectCode(err error) (wire.RejectCode, bool) {
	var ruleErr TxRuleError
	if errors.As(err, &ruleErr) {
		return ruleErr.RejectCode, true
	}
	return wire.RejectInvalid, false
}

// classifyError converts an error returned by the consensus checker, the
// pool, or an internal guard into a terminal rejection outcome.  Unknown
// error types classify as internal faults so that one bad entry can never
// abort a batch.
func classifyError(err error) Outcome {
	var valErr ValueError
	if errors.As(err, &valErr) {
		return Reject(ReasonValueOutOfRange, valErr.Description)
	}

	if code, ok := extractRejectCode(err); ok {
		switch code {
		case wire.RejectInsufficientFee:
			return rejectInsufficientFee(err.Error())

		case wire.RejectNonstandard, wire.RejectDust:
			return Reject(ReasonPolicy, err.Error())

		case wire.RejectDuplicate:
			return Reject(ReasonDuplicate, err.Error())

		default:
			return Reject(ReasonConsensus, err.Error())
		}
	}

	return Reject(ReasonInternal, err.Error())
}
