// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txnvalidator

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

// bufferOrphan stores a fresh orphan spending the passed parent and returns
// its record.
func bufferOrphan(t *testing.T, ob *OrphanBuffer, parent chainhash.Hash,
	lockTime uint32) *ValidationRecord {

	t.Helper()

	tx := createSpendTx(testOutPoint(0, 0), lockTime)
	record := NewValidationRecord(tx, SourceP2P)
	require.True(t, ob.BufferIfOrphan(record, []chainhash.Hash{parent}))
	return record
}

// TestOrphanBufferStoreAndDrain verifies the buffer/drain round trip keyed by
// missing parent id.
func TestOrphanBufferStoreAndDrain(t *testing.T) {
	t.Parallel()

	ob := NewOrphanBuffer(10)

	var parent chainhash.Hash
	parent[0] = 0x30

	record := bufferOrphan(t, ob, parent, 1)
	require.Equal(t, 1, ob.Count())
	require.True(t, ob.Contains(record.TxHash()))

	// A record with no missing parents is not consumed.
	other := NewValidationRecord(createSpendTx(testOutPoint(0, 1), 2), SourceP2P)
	require.False(t, ob.BufferIfOrphan(other, nil))

	// Draining an unrelated parent returns nothing.
	var unrelated chainhash.Hash
	unrelated[0] = 0x31
	require.Empty(t, ob.DrainDependents(&unrelated))
	require.Equal(t, 1, ob.Count())

	drained := ob.DrainDependents(&parent)
	require.Len(t, drained, 1)
	require.Equal(t, record, drained[0])
	require.Equal(t, 0, ob.Count())

	// Draining is destructive.
	require.Empty(t, ob.DrainDependents(&parent))
}

// TestOrphanBufferDuplicate verifies that the same orphan id is stored only
// once.
func TestOrphanBufferDuplicate(t *testing.T) {
	t.Parallel()

	ob := NewOrphanBuffer(10)

	var parent chainhash.Hash
	parent[0] = 0x32

	tx := createSpendTx(testOutPoint(0, 2), 1)
	record := NewValidationRecord(tx, SourceWallet)
	require.True(t, ob.BufferIfOrphan(record, []chainhash.Hash{parent}))
	require.False(t, ob.BufferIfOrphan(record, []chainhash.Hash{parent}))
	require.Equal(t, 1, ob.Count())
}

// TestOrphanBufferMultipleParents verifies that an orphan waiting on several
// parents is drained by whichever arrives first and then fully removed.
func TestOrphanBufferMultipleParents(t *testing.T) {
	t.Parallel()

	ob := NewOrphanBuffer(10)

	var parentA, parentB chainhash.Hash
	parentA[0] = 0x33
	parentB[0] = 0x34

	tx := createSpendTx(testOutPoint(0, 3), 1)
	record := NewValidationRecord(tx, SourceP2P)
	require.True(t, ob.BufferIfOrphan(record,
		[]chainhash.Hash{parentA, parentB}))

	drained := ob.DrainDependents(&parentA)
	require.Len(t, drained, 1)

	// The second parent index must have been cleaned up too.
	require.Empty(t, ob.DrainDependents(&parentB))
	require.Equal(t, 0, ob.Count())
}

// TestOrphanBufferEviction verifies oldest-first eviction once the buffer is
// full.
func TestOrphanBufferEviction(t *testing.T) {
	t.Parallel()

	ob := NewOrphanBuffer(2)

	var parent chainhash.Hash
	parent[0] = 0x35

	oldest := bufferOrphan(t, ob, parent, 1)
	middle := bufferOrphan(t, ob, parent, 2)
	newest := bufferOrphan(t, ob, parent, 3)

	require.Equal(t, 2, ob.Count())
	require.False(t, ob.Contains(oldest.TxHash()))
	require.True(t, ob.Contains(middle.TxHash()))
	require.True(t, ob.Contains(newest.TxHash()))
}
