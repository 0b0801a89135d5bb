// Copyright (c) 2024-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txnvalidator

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// DefaultRunFrequency is the default interval between wake-ups of the
	// background validation worker.
	DefaultRunFrequency = 100 * time.Millisecond

	// DefaultMaxBatchSize is the default maximum number of queued entries
	// the worker drains per pass.
	DefaultMaxBatchSize = 1024

	// DefaultRecentRejectsSize is the default capacity of the
	// recent-rejection cache.
	DefaultRecentRejectsSize = 40960

	// DefaultMaxOrphans is the default maximum number of orphan
	// transactions held pending their parents.
	DefaultMaxOrphans = 100

	// DefaultMaxStandardTxSize is the maximum serialized size, in bytes,
	// the default classifier still considers standard.
	DefaultMaxStandardTxSize = 100000
)

// Config is a descriptor containing the transaction validator configuration.
type Config struct {
	// Pool is the pending-transaction pool the validator admits
	// transactions into.  Required.
	Pool TxPool

	// Checker is the external consensus and policy validation engine.
	// Required.
	Checker ConsensusChecker

	// Detector tracks in-flight spent outputs.  A shared instance lets
	// multiple validators coordinate; nil constructs a private one.
	Detector *DoubleSpendDetector

	// IdTracker registers ids queued or under active validation.  A
	// shared instance lets submission channels perform their own known-id
	// checks; nil constructs a private one.
	IdTracker *TxIdTracker

	// ChangeSink, when non-nil, receives a notification for every pool
	// insertion.
	ChangeSink ChangeSetSink

	// PeerLookup, when non-nil, resolves the non-owning peer tags carried
	// by p2p-sourced records.
	PeerLookup PeerLookup

	// Classifier decides the standardness class used for queue byte
	// accounting.  Nil selects the default size-based classifier.
	Classifier Classifier

	// QueueByteBudget is the byte budget applied independently to each of
	// the two submission sub-queues.  Zero means unlimited.
	QueueByteBudget int64

	// RunFrequency is the interval between background worker wake-ups.
	// Zero selects DefaultRunFrequency.
	RunFrequency time.Duration

	// MaxBatchSize is the maximum number of entries drained per worker
	// pass.  Zero selects DefaultMaxBatchSize.
	MaxBatchSize int

	// RecentRejectsSize is the capacity of the recent-rejection cache.
	// Zero selects DefaultRecentRejectsSize.
	RecentRejectsSize uint

	// MaxOrphans is the orphan buffer capacity.  Zero selects
	// DefaultMaxOrphans.
	MaxOrphans int
}

// txResult is the internal resolution of one record: its outcome and whether
// the record still holds outpoint reservations that the enclosing validation
// pass must release.
type txResult struct {
	outcome  Outcome
	reserved bool
}

// TxnValidator orchestrates transaction admission: it owns the bounded
// submission queues and the background worker, runs the per-transaction
// validation state machine, and mutates the pool on acceptance.  Both the
// asynchronous and synchronous entry points share the same id tracker and
// double-spend detector, so they cannot race on the same outpoints.
type TxnValidator struct {
	shutdown int32

	cfg      Config
	pool     TxPool
	checker  ConsensusChecker
	detector *DoubleSpendDetector
	tracker  *TxIdTracker
	rejects  *RecentRejects
	orphans  *OrphanBuffer
	queue    *submissionQueue

	freqMtx sync.RWMutex
	runFreq time.Duration

	// pending counts entries that are queued or part of the worker's
	// in-flight batch.  pendingCond signals waiters when it reaches zero.
	pendingMtx  sync.Mutex
	pendingCond *sync.Cond
	pending     int

	quit chan struct{}
	wg   sync.WaitGroup
}

// New returns a transaction validator for the passed configuration and starts
// its background validation worker.  The caller must invoke Shutdown when
// finished with it.
func New(cfg *Config) (*TxnValidator, error) {
	if cfg == nil {
		return nil, errors.New("txnvalidator: config cannot be nil")
	}
	if cfg.Pool == nil {
		return nil, errors.New("txnvalidator: config requires a pool")
	}
	if cfg.Checker == nil {
		return nil, errors.New("txnvalidator: config requires a " +
			"consensus checker")
	}

	detector := cfg.Detector
	if detector == nil {
		detector = NewDoubleSpendDetector()
	}
	tracker := cfg.IdTracker
	if tracker == nil {
		tracker = NewTxIdTracker()
	}
	runFreq := cfg.RunFrequency
	if runFreq <= 0 {
		runFreq = DefaultRunFrequency
	}

	v := &TxnValidator{
		cfg:      *cfg,
		pool:     cfg.Pool,
		checker:  cfg.Checker,
		detector: detector,
		tracker:  tracker,
		rejects:  NewRecentRejects(cfg.RecentRejectsSize),
		orphans:  NewOrphanBuffer(cfg.MaxOrphans),
		queue:    newSubmissionQueue(cfg.QueueByteBudget),
		runFreq:  runFreq,
		quit:     make(chan struct{}),
	}
	v.pendingCond = sync.NewCond(&v.pendingMtx)
	if v.cfg.Classifier == nil {
		v.cfg.Classifier = defaultClassifier
	}
	if v.cfg.MaxBatchSize <= 0 {
		v.cfg.MaxBatchSize = DefaultMaxBatchSize
	}

	v.wg.Add(1)
	go v.validationWorker()

	log.Tracef("Transaction validator started (run frequency %v)", runFreq)

	return v, nil
}

// Shutdown stops the background worker and blocks until its in-flight batch,
// if any, has completed.  Queued entries that have not started validating are
// discarded.
func (v *TxnValidator) Shutdown() {
	if atomic.AddInt32(&v.shutdown, 1) != 1 {
		log.Warnf("Transaction validator is already in the process " +
			"of shutting down")
		return
	}

	log.Tracef("Transaction validator shutting down")
	close(v.quit)
	v.wg.Wait()

	// Release any waiters observing the discarded queue.
	v.pendingMtx.Lock()
	v.pending = 0
	v.pendingCond.Broadcast()
	v.pendingMtx.Unlock()
}

// RunFrequency returns the interval between background worker wake-ups.
func (v *TxnValidator) RunFrequency() time.Duration {
	v.freqMtx.RLock()
	freq := v.runFreq
	v.freqMtx.RUnlock()

	return freq
}

// SetRunFrequency changes the interval between background worker wake-ups.
// The new interval takes effect after the worker's next wake-up.
func (v *TxnValidator) SetRunFrequency(freq time.Duration) {
	if freq <= 0 {
		freq = DefaultRunFrequency
	}

	v.freqMtx.Lock()
	v.runFreq = freq
	v.freqMtx.Unlock()
}

// IsKnown returns whether the passed id is currently queued or under active
// validation.  It turns false once the transaction resolves either way.
func (v *TxnValidator) IsKnown(hash *chainhash.Hash) bool {
	return v.tracker.Contains(hash)
}

// OrphanBuffer returns the validator's orphan buffer.
func (v *TxnValidator) OrphanBuffer() *OrphanBuffer {
	return v.orphans
}

// RecentRejects returns the validator's recent-rejection cache.
func (v *TxnValidator) RecentRejects() *RecentRejects {
	return v.rejects
}

// QueuedCount returns the number of entries waiting in the submission queue.
func (v *TxnValidator) QueuedCount() int {
	return v.queue.count()
}

// QueueByteUsage returns the live byte usage of the passed class's
// sub-queue.
func (v *TxnValidator) QueueByteUsage(class TxClass) int64 {
	return v.queue.byteUsage(class)
}

// SubmitAsync enqueues the passed records for background validation and
// returns immediately.  Records whose ids are already queued or under active
// validation are skipped, and records that would push their sub-queue past
// its byte budget are silently dropped; neither condition is an error.
// Validation failures surface only through logging and pool state, never to
// this call's caller.
func (v *TxnValidator) SubmitAsync(records []*ValidationRecord) {
	for _, record := range records {
		if record == nil || record.Tx == nil {
			continue
		}

		// Transactions relayed by a peer that has since disconnected
		// are not worth queueing.
		if record.Peer != 0 && v.cfg.PeerLookup != nil &&
			!v.cfg.PeerLookup.Connected(record.Peer) {

			log.Tracef("Skipping transaction %v from disconnected "+
				"peer %d", record.Tx.Hash(), record.Peer)
			continue
		}

		txHash := record.Tx.Hash()
		if !v.tracker.Insert(txHash) {
			log.Tracef("Skipping already-known transaction %v "+
				"from %v", txHash, record.Source)
			continue
		}

		entry := &queueEntry{
			record: record,
			size:   int64(record.Tx.MsgTx().SerializeSize()),
			class:  v.cfg.Classifier(record.Tx),
		}

		// Count the entry before it becomes visible to the worker so the
		// worker's decrement can never precede this increment.
		v.addPending(1)

		if !v.queue.tryEnqueue(entry) {
			v.tracker.Remove(txHash)
			v.donePending(1)
			log.Debugf("Submission queue %v budget exhausted, "+
				"dropping transaction %v from %v", entry.class,
				txHash, record.Source)
			continue
		}
	}
}

// ValidateSync validates exactly one record on the caller's goroutine,
// bypassing the queue but sharing the id tracker and double-spend detector
// with the background worker, and returns its outcome.  Ordinary validation
// failures are reported through the outcome, never as panics or errors.
func (v *TxnValidator) ValidateSync(record *ValidationRecord) Outcome {
	if record == nil || record.Tx == nil {
		return Reject(ReasonInternal, "nil validation record")
	}

	txHash := record.Tx.Hash()
	if !v.tracker.Insert(txHash) {
		return Reject(ReasonDuplicate, fmt.Sprintf("transaction %v is "+
			"already queued or being validated", txHash))
	}

	res := v.processRecord(record)
	if res.reserved {
		v.detector.ReleaseSpends(record.Tx)
	}

	return res.outcome
}

// ValidateSyncBatch validates the passed records on the caller's goroutine in
// submission order, mirroring the asynchronous batch semantics: conflicting
// transactions are resolved by submission order and the first to reserve an
// outpoint wins.  The returned result maps rejected ids to outcomes, with
// fee-only rejections reported separately from invalidity.
func (v *TxnValidator) ValidateSyncBatch(records []*ValidationRecord) RejectedTxns {
	rejected := newRejectedTxns()

	tracked := make([]*ValidationRecord, 0, len(records))
	for _, record := range records {
		if record == nil || record.Tx == nil {
			continue
		}

		txHash := record.Tx.Hash()
		if !v.tracker.Insert(txHash) {
			rejected.add(*txHash, Reject(ReasonDuplicate,
				fmt.Sprintf("transaction %v is already queued "+
					"or being validated", txHash)))
			continue
		}
		tracked = append(tracked, record)
	}

	v.processBatch(tracked, &rejected)

	return rejected
}

// WaitForQueueDrained blocks the caller until the submission queue is empty
// and the worker has no in-flight batch.  There is no timeout; callers
// needing a bounded wait must layer their own.
func (v *TxnValidator) WaitForQueueDrained() {
	v.pendingMtx.Lock()
	for v.pending > 0 {
		v.pendingCond.Wait()
	}
	v.pendingMtx.Unlock()
}

// validationWorker is the dedicated background worker.  It wakes on the
// configured run frequency and drains the submission queue in batches.
//
// It must be run as a goroutine.
func (v *TxnValidator) validationWorker() {
	defer v.wg.Done()

	timer := time.NewTimer(v.RunFrequency())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			v.drainQueue()
			timer.Reset(v.RunFrequency())

		case <-v.quit:
			return
		}
	}
}

// drainQueue removes and validates every currently queued entry in
// batch-sized passes.
func (v *TxnValidator) drainQueue() {
	for {
		batch := v.queue.dequeueBatch(v.cfg.MaxBatchSize)
		if len(batch) == 0 {
			return
		}

		records := make([]*ValidationRecord, len(batch))
		for i, entry := range batch {
			records[i] = entry.record
		}

		rejected := newRejectedTxns()
		v.processBatch(records, &rejected)

		if n := len(rejected.Invalid) + len(rejected.InsufficientFee); n > 0 {
			log.Debugf("Validated batch of %d transactions "+
				"(%d rejected)", len(batch), n)
		}

		v.donePending(len(batch))
	}
}

// addPending counts n entries toward the drain barrier.  Every entry must be
// counted before it is made visible to the worker.
func (v *TxnValidator) addPending(n int) {
	v.pendingMtx.Lock()
	v.pending += n
	v.pendingMtx.Unlock()
}

// donePending uncounts n resolved or dropped entries and wakes drain-barrier
// waiters once nothing is left.  Increments always precede the matching
// decrement, so the counter never goes negative.
func (v *TxnValidator) donePending(n int) {
	v.pendingMtx.Lock()
	v.pending -= n
	if v.pending == 0 {
		v.pendingCond.Broadcast()
	}
	v.pendingMtx.Unlock()
}

// processBatch runs the validation state machine over the passed records in
// submission order, recording rejections in the passed result.  Every
// record's id must already be registered with the id tracker.  Outpoint
// reservations taken during the pass are held until the whole batch has
// resolved so that later in-batch conflicts classify deterministically.
func (v *TxnValidator) processBatch(records []*ValidationRecord,
	rejected *RejectedTxns) {

	var reserved []*btcutil.Tx
	for _, record := range records {
		txHash := *record.Tx.Hash()

		res := v.processRecord(record)
		if res.reserved {
			reserved = append(reserved, record.Tx)
		}

		switch {
		case res.outcome.IsValid(), res.outcome.IsOrphaned():
			// Nothing to record.

		default:
			rejected.add(txHash, res.outcome)
			log.Debugf("Rejected transaction %v from %v: %v",
				txHash, record.Source, res.outcome)
		}
	}

	// The validation pass is over: release every reservation it took.
	// Accepted transactions are now guarded by the pool itself.
	for _, tx := range reserved {
		v.detector.ReleaseSpends(tx)
	}
}

// processRecord resolves a single record to a terminal or orphaned state.
// The record's id must already be registered with the id tracker; it is
// unregistered when this function returns.  Unexpected internal faults are
// contained here so one bad entry cannot abort a batch or kill the worker.
func (v *TxnValidator) processRecord(record *ValidationRecord) (res txResult) {
	txHash := record.Tx.Hash()
	defer v.tracker.Remove(txHash)

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Recovered from panic while validating "+
				"transaction %v: %v", txHash, r)
			res = txResult{outcome: Reject(ReasonInternal,
				fmt.Sprintf("internal fault: %v", r))}
		}
	}()

	// Short-circuit ids the pool already accepted without re-running
	// consensus checks.
	if v.pool.Contains(txHash) {
		return txResult{outcome: Reject(ReasonDuplicate,
			fmt.Sprintf("already have transaction %v", txHash))}
	}

	// Short-circuit ids rejected recently; they are treated as still bad
	// without re-validation.
	if v.rejects.WasRejected(txHash) {
		return txResult{outcome: Reject(ReasonConsensus,
			fmt.Sprintf("transaction %v was recently rejected",
				txHash))}
	}

	// Guard the monetary range before anything downstream consumes the
	// output values.  An out-of-range value is fatal for the transaction
	// and must never escape as a fault.
	if err := checkValueRange(record.Tx); err != nil {
		v.rejects.Remember(txHash)
		return txResult{outcome: classifyError(err)}
	}

	missingParents, err := v.checker.CheckTransaction(record)
	if err != nil {
		outcome := classifyError(err)

		// Fee-only rejections are retryable, duplicates depend on
		// pool state, and internal faults say nothing about the
		// transaction itself, so none of those are remembered.
		switch {
		case outcome.IsInsufficientFee():
		case outcome.Reason() == ReasonDuplicate:
		case outcome.Reason() == ReasonInternal:
		default:
			v.rejects.Remember(txHash)
		}
		return txResult{outcome: outcome}
	}

	if len(missingParents) > 0 {
		if v.orphans.BufferIfOrphan(record, missingParents) {
			log.Debugf("Transaction %v is an orphan (missing %d "+
				"parents)", txHash, len(missingParents))
		}
		return txResult{outcome: orphanedOutcome()}
	}

	// Reserve the inputs against other in-flight transactions.  The
	// reservation is released by the enclosing validation pass.
	if !v.detector.RegisterSpends(record.Tx) {
		return txResult{outcome: Reject(ReasonDoubleSpend,
			fmt.Sprintf("transaction %v spends an output already "+
				"reserved by an in-flight transaction", txHash))}
	}

	// The inputs may still conflict with unconfirmed spenders already in
	// the pool.
	if spender := v.pool.HasConflict(record.Tx); spender != nil {
		return txResult{
			outcome: Reject(ReasonMempoolConflict,
				fmt.Sprintf("output already spent by "+
					"transaction %v in the pool", spender)),
			reserved: true,
		}
	}

	if err := v.pool.Insert(record); err != nil {
		return txResult{outcome: classifyError(err), reserved: true}
	}

	if v.cfg.ChangeSink != nil {
		v.cfg.ChangeSink.NotifyInserted(*txHash)
	}

	log.Debugf("Accepted transaction %v from %v (pool size: %d)", txHash,
		record.Source, v.pool.Size())

	// Any orphans unblocked by this acceptance re-enter through the
	// asynchronous queue.
	if dependents := v.orphans.DrainDependents(txHash); len(dependents) > 0 {
		log.Debugf("Re-submitting %d orphans unblocked by %v",
			len(dependents), txHash)
		v.SubmitAsync(dependents)
	}

	return txResult{outcome: Valid(), reserved: true}
}

// checkValueRange verifies every declared output value, and their sum, is
// within the representable monetary range.
func checkValueRange(tx *btcutil.Tx) error {
	var total int64
	for _, txOut := range tx.MsgTx().TxOut {
		switch {
		case txOut.Value < 0:
			return valueError("transaction output value of %v is "+
				"negative", txOut.Value)

		case txOut.Value > btcutil.MaxSatoshi:
			return valueError("transaction output value of %v is "+
				"higher than max allowed value of %v",
				txOut.Value, int64(btcutil.MaxSatoshi))
		}

		total += txOut.Value
		if total < 0 || total > btcutil.MaxSatoshi {
			return valueError("total value of all transaction "+
				"outputs is %v which is out of range", total)
		}
	}

	return nil
}
