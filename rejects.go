// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txnvalidator

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/lru"
)

// RecentRejects is a bounded record of recently rejected transaction ids used
// to short-circuit repeated resubmission, typically of known-bad transactions
// relayed again by peers.  The backing cache evicts the least recently used
// entry once full, so a miss only costs a full re-validation.  A hit is
// always genuine: the cache stores exact ids and can never claim rejection
// for an id that was never rejected.
//
// Retryable rejections (insufficient fee) are intentionally never recorded
// here since the same transaction may become acceptable later.
type RecentRejects struct {
	cache lru.Cache
}

// NewRecentRejects returns a rejection cache holding up to maxEntries ids.
// A zero maxEntries selects the default capacity.
func NewRecentRejects(maxEntries uint) *RecentRejects {
	if maxEntries == 0 {
		maxEntries = DefaultRecentRejectsSize
	}
	return &RecentRejects{
		cache: lru.NewCache(maxEntries),
	}
}

// Remember records the passed id as recently rejected.
func (rr *RecentRejects) Remember(hash *chainhash.Hash) {
	rr.cache.Add(*hash)
}

// WasRejected returns whether the passed id was recently rejected.  False
// negatives are possible after eviction; false positives are not.
func (rr *RecentRejects) WasRejected(hash *chainhash.Hash) bool {
	return rr.cache.Contains(*hash)
}
