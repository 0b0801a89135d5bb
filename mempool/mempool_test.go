// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/txnvalidator"
	"github.com/stretchr/testify/require"
)

// testOutPoint returns a unique outpoint derived from the passed seed.
func testOutPoint(seed byte, index uint32) wire.OutPoint {
	var hash chainhash.Hash
	hash[0] = seed
	return wire.OutPoint{Hash: hash, Index: index}
}

// createSpendTx returns a transaction spending the passed outpoint.
func createSpendTx(prevOut wire.OutPoint, lockTime uint32) *btcutil.Tx {
	mtx := wire.NewMsgTx(wire.TxVersion)
	mtx.LockTime = lockTime
	mtx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: prevOut,
		Sequence:         wire.MaxTxInSequenceNum - 1,
	})
	mtx.AddTxOut(&wire.TxOut{
		Value:    11000000,
		PkScript: []byte{0x51}, // OP_TRUE
	})
	return btcutil.NewTx(mtx)
}

// insertTx admits the passed transaction into the pool.
func insertTx(t *testing.T, mp *TxPool, tx *btcutil.Tx) {
	t.Helper()

	record := txnvalidator.NewValidationRecord(tx, txnvalidator.SourceP2P)
	require.NoError(t, mp.Insert(record))
}

// TestPoolInsert verifies insertion, lookup, and the duplicate and conflict
// guards.
func TestPoolInsert(t *testing.T) {
	t.Parallel()

	mp := New()
	require.Equal(t, 0, mp.Size())

	prevOut := testOutPoint(1, 0)
	tx := createSpendTx(prevOut, 1)
	insertTx(t, mp, tx)

	require.Equal(t, 1, mp.Size())
	require.True(t, mp.Contains(tx.Hash()))

	// Duplicate ids are refused.
	record := txnvalidator.NewValidationRecord(tx, txnvalidator.SourceP2P)
	require.Error(t, mp.Insert(record))
	require.Equal(t, 1, mp.Size())

	// A conflicting spender of the same outpoint is refused.
	conflict := createSpendTx(prevOut, 2)
	record = txnvalidator.NewValidationRecord(conflict, txnvalidator.SourceP2P)
	require.Error(t, mp.Insert(record))
	require.False(t, mp.Contains(conflict.Hash()))
}

// TestPoolHasConflict verifies spent-output conflict detection.
func TestPoolHasConflict(t *testing.T) {
	t.Parallel()

	mp := New()
	prevOut := testOutPoint(2, 0)
	tx := createSpendTx(prevOut, 1)

	require.Nil(t, mp.HasConflict(tx))
	insertTx(t, mp, tx)

	conflict := createSpendTx(prevOut, 2)
	spender := mp.HasConflict(conflict)
	require.NotNil(t, spender)
	require.Equal(t, tx.Hash(), spender)

	// An unrelated spend does not conflict.
	other := createSpendTx(testOutPoint(2, 1), 1)
	require.Nil(t, mp.HasConflict(other))
}

// TestPoolFetchAndEnumerate verifies FetchTransaction, TxHashes, and TxDescs.
func TestPoolFetchAndEnumerate(t *testing.T) {
	t.Parallel()

	mp := New()
	tx := createSpendTx(testOutPoint(3, 0), 1)
	insertTx(t, mp, tx)

	fetched, err := mp.FetchTransaction(tx.Hash())
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), fetched.Hash())

	missing := createSpendTx(testOutPoint(3, 1), 1)
	_, err = mp.FetchTransaction(missing.Hash())
	require.Error(t, err)

	hashes := mp.TxHashes()
	require.Len(t, hashes, 1)
	require.Equal(t, tx.Hash(), hashes[0])

	descs := mp.TxDescs()
	require.Len(t, descs, 1)
	require.Equal(t, tx.Hash(), descs[0].Record.TxHash())
	require.False(t, descs[0].Added.IsZero())
}

// TestPoolCheckSpend verifies outpoint spend lookups.
func TestPoolCheckSpend(t *testing.T) {
	t.Parallel()

	mp := New()
	prevOut := testOutPoint(4, 0)

	require.Nil(t, mp.CheckSpend(prevOut))

	tx := createSpendTx(prevOut, 1)
	insertTx(t, mp, tx)

	spender := mp.CheckSpend(prevOut)
	require.NotNil(t, spender)
	require.Equal(t, tx.Hash(), spender.Hash())
}

// TestPoolClear verifies that clearing drops both the pool and the outpoint
// index.
func TestPoolClear(t *testing.T) {
	t.Parallel()

	mp := New()
	prevOut := testOutPoint(5, 0)
	tx := createSpendTx(prevOut, 1)
	insertTx(t, mp, tx)

	mp.Clear()

	require.Equal(t, 0, mp.Size())
	require.False(t, mp.Contains(tx.Hash()))
	require.Nil(t, mp.CheckSpend(prevOut))

	// The same transaction can be admitted again after a clear.
	insertTx(t, mp, tx)
	require.Equal(t, 1, mp.Size())
}

// TestPoolRemoveRedeemers verifies recursive removal of a transaction chain.
func TestPoolRemoveRedeemers(t *testing.T) {
	t.Parallel()

	mp := New()

	parent := createSpendTx(testOutPoint(6, 0), 1)
	child := createSpendTx(wire.OutPoint{Hash: *parent.Hash()}, 1)
	grandchild := createSpendTx(wire.OutPoint{Hash: *child.Hash()}, 1)

	insertTx(t, mp, parent)
	insertTx(t, mp, child)
	insertTx(t, mp, grandchild)
	require.Equal(t, 3, mp.Size())

	// Removing without the redeemer flag leaves the descendants.
	mp.RemoveTransaction(parent, false)
	require.Equal(t, 2, mp.Size())
	require.True(t, mp.Contains(child.Hash()))

	// Removing the child with the flag also removes the grandchild.
	mp.RemoveTransaction(child, true)
	require.Equal(t, 0, mp.Size())

	// Removing a transaction that is not in the pool is a no-op.
	mp.RemoveTransaction(parent, true)
	require.Equal(t, 0, mp.Size())
}

// TestPoolNotifications verifies that subscribers observe insertions and
// removals after the corresponding mutation is visible.
func TestPoolNotifications(t *testing.T) {
	t.Parallel()

	mp := New()

	var notifications []*Notification
	mp.Subscribe(func(n *Notification) {
		hash, ok := n.Data.(*chainhash.Hash)
		require.True(t, ok)

		// The mutation must be visible to the callback.
		switch n.Type {
		case NTTxAccepted:
			require.True(t, mp.Contains(hash))
		case NTTxRemoved:
			require.False(t, mp.Contains(hash))
		}
		notifications = append(notifications, n)
	})

	tx := createSpendTx(testOutPoint(7, 0), 1)
	insertTx(t, mp, tx)
	mp.RemoveTransaction(tx, false)

	require.Len(t, notifications, 2)
	require.Equal(t, NTTxAccepted, notifications[0].Type)
	require.Equal(t, tx.Hash(), notifications[0].Data.(*chainhash.Hash))
	require.Equal(t, NTTxRemoved, notifications[1].Type)
	require.Equal(t, tx.Hash(), notifications[1].Data.(*chainhash.Hash))
}

// TestPoolLastUpdated verifies the last-updated timestamp moves with
// mutations.
func TestPoolLastUpdated(t *testing.T) {
	t.Parallel()

	mp := New()
	require.Equal(t, time.Unix(0, 0), mp.LastUpdated())

	tx := createSpendTx(testOutPoint(8, 0), 1)
	insertTx(t, mp, tx)
	require.False(t, mp.LastUpdated().IsZero())
	require.WithinDuration(t, time.Now(), mp.LastUpdated(), time.Minute)
}
