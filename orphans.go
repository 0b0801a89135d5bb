// Copyright (c) 2024-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txnvalidator

import (
	"container/list"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// orphanEntry is a buffered orphan together with the parent ids it is waiting
// on and its position in the eviction order.
type orphanEntry struct {
	record  *ValidationRecord
	parents []chainhash.Hash
	elem    *list.Element
}

// OrphanBuffer holds transactions whose inputs reference not-yet-seen parent
// transactions, keyed by each missing parent id so they can be re-submitted
// once the parent arrives.  The buffer is bounded: when full, the oldest
// orphan is evicted to make room.
//
// The buffer is safe for concurrent access.
type OrphanBuffer struct {
	mtx        sync.Mutex
	maxOrphans int
	orphans    map[chainhash.Hash]*orphanEntry
	byParent   map[chainhash.Hash]map[chainhash.Hash]*orphanEntry

	// order tracks insertion order for oldest-first eviction.  Elements
	// hold the orphan's transaction id.
	order *list.List
}

// NewOrphanBuffer returns an orphan buffer holding up to maxOrphans
// transactions.  A non-positive maxOrphans selects the default limit.
func NewOrphanBuffer(maxOrphans int) *OrphanBuffer {
	if maxOrphans <= 0 {
		maxOrphans = DefaultMaxOrphans
	}
	return &OrphanBuffer{
		maxOrphans: maxOrphans,
		orphans:    make(map[chainhash.Hash]*orphanEntry),
		byParent:   make(map[chainhash.Hash]map[chainhash.Hash]*orphanEntry),
		order:      list.New(),
	}
}

// BufferIfOrphan stores the passed record keyed by each missing parent id and
// returns true, consuming the record.  It returns false, leaving the record
// untouched, when no parents are missing or the record is already buffered.
func (ob *OrphanBuffer) BufferIfOrphan(record *ValidationRecord,
	missingParents []chainhash.Hash) bool {

	if len(missingParents) == 0 {
		return false
	}

	txHash := *record.Tx.Hash()

	ob.mtx.Lock()
	defer ob.mtx.Unlock()

	if _, exists := ob.orphans[txHash]; exists {
		return false
	}

	// Evict the oldest orphan when the buffer is full.
	for len(ob.orphans) >= ob.maxOrphans {
		oldest := ob.order.Front()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(chainhash.Hash)
		ob.remove(&evicted)
		log.Debugf("Evicted orphan transaction %v (buffer full)", evicted)
	}

	entry := &orphanEntry{
		record:  record,
		parents: missingParents,
	}
	entry.elem = ob.order.PushBack(txHash)
	ob.orphans[txHash] = entry

	for _, parent := range missingParents {
		dependents, exists := ob.byParent[parent]
		if !exists {
			dependents = make(map[chainhash.Hash]*orphanEntry)
			ob.byParent[parent] = dependents
		}
		dependents[txHash] = entry
	}

	log.Debugf("Stored orphan transaction %v (total: %d)", txHash,
		len(ob.orphans))

	return true
}

// DrainDependents removes and returns the orphans that were waiting on the
// passed parent id, for re-submission now that the parent has arrived.
func (ob *OrphanBuffer) DrainDependents(parentHash *chainhash.Hash) []*ValidationRecord {
	ob.mtx.Lock()
	defer ob.mtx.Unlock()

	dependents, exists := ob.byParent[*parentHash]
	if !exists {
		return nil
	}

	records := make([]*ValidationRecord, 0, len(dependents))
	for txHash, entry := range dependents {
		records = append(records, entry.record)
		hashCopy := txHash
		ob.remove(&hashCopy)
	}

	return records
}

// remove deletes the passed orphan from all indexes.
//
// This function MUST be called with the buffer lock held (for writes).
func (ob *OrphanBuffer) remove(txHash *chainhash.Hash) {
	entry, exists := ob.orphans[*txHash]
	if !exists {
		return
	}

	for _, parent := range entry.parents {
		if dependents, ok := ob.byParent[parent]; ok {
			delete(dependents, *txHash)
			if len(dependents) == 0 {
				delete(ob.byParent, parent)
			}
		}
	}

	ob.order.Remove(entry.elem)
	delete(ob.orphans, *txHash)
}

// Contains returns whether the passed id is currently buffered as an orphan.
func (ob *OrphanBuffer) Contains(hash *chainhash.Hash) bool {
	ob.mtx.Lock()
	_, exists := ob.orphans[*hash]
	ob.mtx.Unlock()

	return exists
}

// Count returns the number of buffered orphans.
func (ob *OrphanBuffer) Count() int {
	ob.mtx.Lock()
	count := len(ob.orphans)
	ob.mtx.Unlock()

	return count
}
