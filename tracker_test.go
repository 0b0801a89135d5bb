// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txnvalidator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTrackerInsertRemove verifies insert-if-absent semantics and removal.
func TestTrackerInsertRemove(t *testing.T) {
	t.Parallel()

	tracker := NewTxIdTracker()
	hash := createSpendTx(testOutPoint(10, 0), 1).Hash()

	require.False(t, tracker.Contains(hash))
	require.True(t, tracker.Insert(hash))
	require.True(t, tracker.Contains(hash))
	require.Equal(t, 1, tracker.Count())

	// A second insert of the same id must fail while tracked.
	require.False(t, tracker.Insert(hash))

	tracker.Remove(hash)
	require.False(t, tracker.Contains(hash))
	require.Equal(t, 0, tracker.Count())

	// Once removed the id may be tracked again.
	require.True(t, tracker.Insert(hash))
}
