// Copyright (c) 2024-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/txnvalidator"
)

// TxDesc is a descriptor containing a transaction in the pool along with
// additional metadata.
type TxDesc struct {
	// Record is the validation record the transaction was admitted with.
	Record *txnvalidator.ValidationRecord

	// Added is the time when the entry was added to the pool.
	Added time.Time
}

// TxPool holds validated, not-yet-confirmed transactions together with an
// index of the outputs they spend.  It implements the txnvalidator.TxPool
// interface and is only mutated by the validator orchestrator; downstream
// consumers observe mutations through Subscribe.
//
// It is safe for concurrent access from multiple peers.
type TxPool struct {
	// The following variables must only be used atomically.
	lastUpdated int64 // last time pool was updated

	mtx       sync.RWMutex
	pool      map[chainhash.Hash]*TxDesc
	outpoints map[wire.OutPoint]*btcutil.Tx

	notificationsLock sync.RWMutex
	notifications     []NotificationCallback
}

// Ensure the TxPool type implements the txnvalidator.TxPool interface.
var _ txnvalidator.TxPool = (*TxPool)(nil)

// New returns a new memory pool for storing validated standalone transactions
// until they are mined into a block.
func New() *TxPool {
	return &TxPool{
		pool:      make(map[chainhash.Hash]*TxDesc),
		outpoints: make(map[wire.OutPoint]*btcutil.Tx),
	}
}

// Contains returns whether or not the passed transaction already exists in
// the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) Contains(hash *chainhash.Hash) bool {
	mp.mtx.RLock()
	_, exists := mp.pool[*hash]
	mp.mtx.RUnlock()

	return exists
}

// HasConflict returns the id of an unconfirmed pool transaction that already
// spends one of the passed transaction's inputs, or nil when no such spender
// exists.  It does not check for double spends against transactions already
// in the main chain.
//
// This function is safe for concurrent access.
func (mp *TxPool) HasConflict(tx *btcutil.Tx) *chainhash.Hash {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	for _, txIn := range tx.MsgTx().TxIn {
		if spender, exists := mp.outpoints[txIn.PreviousOutPoint]; exists {
			return spender.Hash()
		}
	}

	return nil
}

// Insert adds the passed validated transaction to the pool and marks the
// referenced outpoints as spent by the pool.  It is expected to be called
// only by the validator orchestrator, which has already resolved duplicates
// and conflicts; both conditions are still rejected here to keep the indexes
// consistent.
//
// This function is safe for concurrent access.
func (mp *TxPool) Insert(record *txnvalidator.ValidationRecord) error {
	tx := record.Tx
	txHash := tx.Hash()

	mp.mtx.Lock()
	if _, exists := mp.pool[*txHash]; exists {
		mp.mtx.Unlock()
		return fmt.Errorf("already have transaction %v", txHash)
	}
	for _, txIn := range tx.MsgTx().TxIn {
		if spender, exists := mp.outpoints[txIn.PreviousOutPoint]; exists {
			mp.mtx.Unlock()
			return fmt.Errorf("output %v already spent by "+
				"transaction %v in the pool",
				txIn.PreviousOutPoint, spender.Hash())
		}
	}

	mp.pool[*txHash] = &TxDesc{
		Record: record,
		Added:  time.Now(),
	}
	for _, txIn := range tx.MsgTx().TxIn {
		mp.outpoints[txIn.PreviousOutPoint] = tx
	}
	atomic.StoreInt64(&mp.lastUpdated, time.Now().Unix())
	poolSize := len(mp.pool)
	mp.mtx.Unlock()

	log.Debugf("Inserted transaction %v (pool size: %v)", txHash, poolSize)

	// Notify outside the pool lock so subscribers may query the pool.
	mp.sendNotification(NTTxAccepted, txHash)

	return nil
}

// Size returns the number of transactions in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) Size() int {
	mp.mtx.RLock()
	size := len(mp.pool)
	mp.mtx.RUnlock()

	return size
}

// Clear removes all transactions from the pool.  Test and reset use only.
//
// This function is safe for concurrent access.
func (mp *TxPool) Clear() {
	mp.mtx.Lock()
	mp.pool = make(map[chainhash.Hash]*TxDesc)
	mp.outpoints = make(map[wire.OutPoint]*btcutil.Tx)
	atomic.StoreInt64(&mp.lastUpdated, time.Now().Unix())
	mp.mtx.Unlock()
}

// FetchTransaction returns the requested transaction from the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) FetchTransaction(txHash *chainhash.Hash) (*btcutil.Tx, error) {
	mp.mtx.RLock()
	txDesc, exists := mp.pool[*txHash]
	mp.mtx.RUnlock()

	if exists {
		return txDesc.Record.Tx, nil
	}

	return nil, fmt.Errorf("transaction is not in the pool")
}

// TxHashes returns a slice of hashes for all of the transactions in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) TxHashes() []*chainhash.Hash {
	mp.mtx.RLock()
	hashes := make([]*chainhash.Hash, 0, len(mp.pool))
	for hash := range mp.pool {
		hashCopy := hash
		hashes = append(hashes, &hashCopy)
	}
	mp.mtx.RUnlock()

	return hashes
}

// TxDescs returns a slice of descriptors for all the transactions in the
// pool.  The descriptors are to be treated as read only.
//
// This function is safe for concurrent access.
func (mp *TxPool) TxDescs() []*TxDesc {
	mp.mtx.RLock()
	descs := make([]*TxDesc, 0, len(mp.pool))
	for _, desc := range mp.pool {
		descs = append(descs, desc)
	}
	mp.mtx.RUnlock()

	return descs
}

// CheckSpend checks whether the passed outpoint is already spent by a
// transaction in the pool.  If that's the case the spending transaction will
// be returned, if not nil will be returned.
//
// This function is safe for concurrent access.
func (mp *TxPool) CheckSpend(op wire.OutPoint) *btcutil.Tx {
	mp.mtx.RLock()
	txR := mp.outpoints[op]
	mp.mtx.RUnlock()

	return txR
}

// removeTransaction is the internal function which implements the public
// RemoveTransaction.  See the comment for RemoveTransaction for more details.
//
// This function MUST be called with the pool lock held (for writes).  The
// hashes of the removed transactions are appended to removed.
func (mp *TxPool) removeTransaction(tx *btcutil.Tx, removeRedeemers bool,
	removed *[]*chainhash.Hash) {

	txHash := tx.Hash()
	if removeRedeemers {
		// Remove any transactions which rely on this one.
		for i := uint32(0); i < uint32(len(tx.MsgTx().TxOut)); i++ {
			prevOut := wire.OutPoint{Hash: *txHash, Index: i}
			if txRedeemer, exists := mp.outpoints[prevOut]; exists {
				mp.removeTransaction(txRedeemer, true, removed)
			}
		}
	}

	if txDesc, exists := mp.pool[*txHash]; exists {
		// Mark the referenced outpoints as unspent by the pool.
		for _, txIn := range txDesc.Record.Tx.MsgTx().TxIn {
			delete(mp.outpoints, txIn.PreviousOutPoint)
		}
		delete(mp.pool, *txHash)
		atomic.StoreInt64(&mp.lastUpdated, time.Now().Unix())

		*removed = append(*removed, txHash)
	}
}

// RemoveTransaction removes the passed transaction from the pool.  When the
// removeRedeemers flag is set, any transactions that redeem outputs from the
// removed transaction will also be removed recursively from the pool, as
// they would otherwise become orphans.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveTransaction(tx *btcutil.Tx, removeRedeemers bool) {
	var removed []*chainhash.Hash
	mp.mtx.Lock()
	mp.removeTransaction(tx, removeRedeemers, &removed)
	mp.mtx.Unlock()

	for _, hash := range removed {
		mp.sendNotification(NTTxRemoved, hash)
	}
}

// LastUpdated returns the last time a transaction was added to or removed
// from the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) LastUpdated() time.Time {
	return time.Unix(atomic.LoadInt64(&mp.lastUpdated), 0)
}
