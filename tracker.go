// Copyright (c) 2024-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txnvalidator

import (
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// TxIdTracker is a process-wide registry of transaction ids that are
// currently queued or under active validation.  An id is inserted when its
// transaction enters the submission queue or begins synchronous validation
// and removed when validation concludes, so an id tracked here is never
// concurrently accepted twice.
//
// The tracker is safe for concurrent access.
type TxIdTracker struct {
	mtx sync.RWMutex
	ids map[chainhash.Hash]struct{}
}

// NewTxIdTracker returns an empty tracker.
func NewTxIdTracker() *TxIdTracker {
	return &TxIdTracker{
		ids: make(map[chainhash.Hash]struct{}),
	}
}

// Insert registers the passed id as in-flight.  It returns false when the id
// is already tracked, in which case the caller must not begin validating it.
func (t *TxIdTracker) Insert(hash *chainhash.Hash) bool {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	if _, exists := t.ids[*hash]; exists {
		return false
	}

	t.ids[*hash] = struct{}{}
	return true
}

// Remove unregisters the passed id once its validation has concluded.
func (t *TxIdTracker) Remove(hash *chainhash.Hash) {
	t.mtx.Lock()
	delete(t.ids, *hash)
	t.mtx.Unlock()
}

// Contains returns whether the passed id is queued or under active
// validation.
func (t *TxIdTracker) Contains(hash *chainhash.Hash) bool {
	t.mtx.RLock()
	_, exists := t.ids[*hash]
	t.mtx.RUnlock()

	return exists
}

// Count returns the number of tracked ids.
func (t *TxIdTracker) Count() int {
	t.mtx.RLock()
	count := len(t.ids)
	t.mtx.RUnlock()

	return count
}
