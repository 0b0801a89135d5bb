// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txnvalidator

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/mock"
)

// MockTxPool is a mock implementation of the TxPool interface.
type MockTxPool struct {
	mock.Mock
}

// Ensure the MockTxPool implements the TxPool interface.
var _ TxPool = (*MockTxPool)(nil)

// Contains returns whether the passed transaction id is already in the pool.
func (m *MockTxPool) Contains(hash *chainhash.Hash) bool {
	args := m.Called(hash)
	return args.Get(0).(bool)
}

// HasConflict returns the id of an unconfirmed pool transaction that spends
// one of the passed transaction's inputs, or nil when no such spender exists.
func (m *MockTxPool) HasConflict(tx *btcutil.Tx) *chainhash.Hash {
	args := m.Called(tx)

	if args.Get(0) == nil {
		return nil
	}

	return args.Get(0).(*chainhash.Hash)
}

// Insert adds a validated transaction to the pool and marks its inputs as
// spent by the pool.
func (m *MockTxPool) Insert(record *ValidationRecord) error {
	args := m.Called(record)
	return args.Error(0)
}

// Size returns the number of transactions in the pool.
func (m *MockTxPool) Size() int {
	args := m.Called()
	return args.Get(0).(int)
}

// Clear removes all transactions from the pool.
func (m *MockTxPool) Clear() {
	m.Called()
}

// MockConsensusChecker is a mock implementation of the ConsensusChecker
// interface.
type MockConsensusChecker struct {
	mock.Mock
}

// Ensure the MockConsensusChecker implements the ConsensusChecker interface.
var _ ConsensusChecker = (*MockConsensusChecker)(nil)

// CheckTransaction validates the passed record against consensus and policy
// rules.
func (m *MockConsensusChecker) CheckTransaction(
	record *ValidationRecord) ([]chainhash.Hash, error) {

	args := m.Called(record)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]chainhash.Hash), args.Error(1)
}

// MockChangeSetSink is a mock implementation of the ChangeSetSink interface.
type MockChangeSetSink struct {
	mock.Mock
}

// Ensure the MockChangeSetSink implements the ChangeSetSink interface.
var _ ChangeSetSink = (*MockChangeSetSink)(nil)

// NotifyInserted reports that the passed transaction id was inserted into the
// pool.
func (m *MockChangeSetSink) NotifyInserted(hash chainhash.Hash) {
	m.Called(hash)
}
