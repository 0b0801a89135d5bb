// Copyright (c) 2024-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txnvalidator

import (
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// DoubleSpendDetector tracks the prior outputs reserved by in-flight, not yet
// committed transactions.  Within one validation pass two transactions may
// spend the same prior output while neither is in the pool yet, so a
// pool-only conflict check would admit both.  The detector closes that window
// by reserving outpoints eagerly, in submission order, for the duration of
// the pass.
//
// The detector is safe for concurrent access and is shared between the
// asynchronous worker and the synchronous validation entry points.
type DoubleSpendDetector struct {
	mtx   sync.Mutex
	spent map[wire.OutPoint]chainhash.Hash
}

// NewDoubleSpendDetector returns an empty detector.
func NewDoubleSpendDetector() *DoubleSpendDetector {
	return &DoubleSpendDetector{
		spent: make(map[wire.OutPoint]chainhash.Hash),
	}
}

// RegisterSpends reserves every input outpoint of the passed transaction.
// The reservation is all-or-nothing: if any outpoint is already held by
// another in-flight transaction, no reservation is taken and false is
// returned.  Re-registering outpoints already held by the same transaction
// succeeds.
func (d *DoubleSpendDetector) RegisterSpends(tx *btcutil.Tx) bool {
	txHash := *tx.Hash()

	d.mtx.Lock()
	defer d.mtx.Unlock()

	registered := make([]wire.OutPoint, 0, len(tx.MsgTx().TxIn))
	for _, txIn := range tx.MsgTx().TxIn {
		prevOut := txIn.PreviousOutPoint
		if owner, exists := d.spent[prevOut]; exists {
			if owner == txHash {
				continue
			}

			// Roll back the reservations taken so far.
			for _, op := range registered {
				delete(d.spent, op)
			}
			return false
		}

		d.spent[prevOut] = txHash
		registered = append(registered, prevOut)
	}

	return true
}

// ReleaseSpends removes the reservations held by the passed transaction.  It
// is called once the transaction's validation pass has finalized, whether the
// outcome was acceptance or rejection.
func (d *DoubleSpendDetector) ReleaseSpends(tx *btcutil.Tx) {
	txHash := *tx.Hash()

	d.mtx.Lock()
	for _, txIn := range tx.MsgTx().TxIn {
		prevOut := txIn.PreviousOutPoint
		if owner, exists := d.spent[prevOut]; exists && owner == txHash {
			delete(d.spent, prevOut)
		}
	}
	d.mtx.Unlock()
}

// Size returns the number of outpoints currently reserved.
func (d *DoubleSpendDetector) Size() int {
	d.mtx.Lock()
	size := len(d.spent)
	d.mtx.Unlock()

	return size
}
