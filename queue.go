// Copyright (c) 2024-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txnvalidator

import (
	"container/list"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
)

// TxClass is the standardness classification used to charge a transaction
// against the correct sub-queue's byte budget.
type TxClass uint8

// Constants for the supported transaction classes.
const (
	ClassStandard TxClass = iota
	ClassNonStandard
)

// String returns the TxClass in human-readable form.
func (c TxClass) String() string {
	if c == ClassStandard {
		return "standard"
	}
	return "non-standard"
}

// Classifier decides which sub-queue a transaction is charged against.  The
// classification boundary is a policy decision, so integrating nodes may
// substitute their own.
type Classifier func(tx *btcutil.Tx) TxClass

// defaultClassifier treats transactions up to the maximum standard
// transaction size as standard.  Oversized-but-otherwise-ordinary
// transactions therefore still land in the standard queue.
func defaultClassifier(tx *btcutil.Tx) TxClass {
	if tx.MsgTx().SerializeSize() <= DefaultMaxStandardTxSize {
		return ClassStandard
	}
	return ClassNonStandard
}

// queueEntry is a validation record plus the serialized size and class used
// for byte accounting.
type queueEntry struct {
	record *ValidationRecord
	size   int64
	class  TxClass
}

// classQueue is one FIFO sub-queue with its live byte usage.
type classQueue struct {
	entries *list.List
	bytes   int64
}

// submissionQueue is the bounded submission queue feeding the asynchronous
// validation worker.  Standard and non-standard transactions are queued and
// budgeted independently: once a sub-queue's cumulative byte usage would
// exceed its budget, further entries for that class are silently dropped.
// Insertion order is preserved within a class; there is no cross-class
// ordering guarantee.
type submissionQueue struct {
	mtx sync.Mutex

	// maxBytes is the byte budget applied to each sub-queue
	// independently.  Zero means unlimited.
	maxBytes int64

	std    classQueue
	nonStd classQueue
}

// newSubmissionQueue returns a submission queue whose sub-queues are each
// capped at maxBytes.  A maxBytes of zero leaves both sub-queues unbounded.
func newSubmissionQueue(maxBytes int64) *submissionQueue {
	return &submissionQueue{
		maxBytes: maxBytes,
		std:      classQueue{entries: list.New()},
		nonStd:   classQueue{entries: list.New()},
	}
}

// tryEnqueue appends the passed entry to its class's sub-queue and returns
// whether it was admitted.  An entry that would push the sub-queue past its
// byte budget is dropped, not retried; the caller can detect the shortfall
// only by comparing submitted count to count().
func (q *submissionQueue) tryEnqueue(entry *queueEntry) bool {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	cq := &q.std
	if entry.class == ClassNonStandard {
		cq = &q.nonStd
	}

	if q.maxBytes > 0 && cq.bytes+entry.size > q.maxBytes {
		return false
	}

	cq.entries.PushBack(entry)
	cq.bytes += entry.size
	return true
}

// count returns the total number of queued entries across both classes.
func (q *submissionQueue) count() int {
	q.mtx.Lock()
	count := q.std.entries.Len() + q.nonStd.entries.Len()
	q.mtx.Unlock()

	return count
}

// byteUsage returns the live byte usage of the passed class's sub-queue.
func (q *submissionQueue) byteUsage(class TxClass) int64 {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if class == ClassNonStandard {
		return q.nonStd.bytes
	}
	return q.std.bytes
}

// dequeueBatch atomically removes and returns up to max entries, preferring
// standard-class entries in arrival order.  A non-positive max drains the
// whole queue.
func (q *submissionQueue) dequeueBatch(max int) []*queueEntry {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	total := q.std.entries.Len() + q.nonStd.entries.Len()
	if total == 0 {
		return nil
	}
	if max <= 0 || max > total {
		max = total
	}

	batch := make([]*queueEntry, 0, max)
	for _, cq := range []*classQueue{&q.std, &q.nonStd} {
		for len(batch) < max {
			front := cq.entries.Front()
			if front == nil {
				break
			}
			entry := cq.entries.Remove(front).(*queueEntry)
			cq.bytes -= entry.size
			batch = append(batch, entry)
		}
	}

	return batch
}
