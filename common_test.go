// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txnvalidator

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// testTxValue is the output value used by test transactions.
const testTxValue = 11000000

// createSpendTx returns a transaction spending the passed outpoint.  The
// lock time differentiates otherwise identical transactions so conflicting
// spends get unique ids.
func createSpendTx(prevOut wire.OutPoint, lockTime uint32) *btcutil.Tx {
	mtx := wire.NewMsgTx(wire.TxVersion)
	mtx.LockTime = lockTime
	mtx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: prevOut,
		Sequence:         wire.MaxTxInSequenceNum - 1,
	})
	mtx.AddTxOut(&wire.TxOut{
		Value:    testTxValue,
		PkScript: []byte{0x51}, // OP_TRUE
	})
	return btcutil.NewTx(mtx)
}

// testOutPoint returns a unique outpoint derived from the passed seed.
func testOutPoint(seed byte, index uint32) wire.OutPoint {
	var hash chainhash.Hash
	hash[0] = seed
	return wire.OutPoint{Hash: hash, Index: index}
}

// newLargeTxOut returns an output with a bulky script for padding test
// transactions to a target serialized size.
func newLargeTxOut() *wire.TxOut {
	return &wire.TxOut{
		Value:    testTxValue,
		PkScript: make([]byte, 50),
	}
}

// newTestTx wraps the passed message in a btcutil.Tx.
func newTestTx(mtx *wire.MsgTx) *btcutil.Tx {
	return btcutil.NewTx(mtx)
}
