package handler

import (
	"context"
	"sync"
	"time"

	"github.com/juju/errors"
)

type Transaction struct {
	Id            int
	ChargePointId string
	ConnectorId   int
	IdTag         string
	MeterStart    int
	StartedAt     time.Time
	MeterStop     *int
	StoppedAt     *time.Time
	StopReason    string
}

// Transactions allocates transaction ids and records their end. StopTransaction
// returns an errors.NotFound error for ids it never allocated.
type Transactions interface {
	StartTransaction(ctx context.Context, tx Transaction) (int, error)
	StopTransaction(ctx context.Context, chargePointId string, transactionId int, meterStop int, stoppedAt time.Time, reason string) error
}

// MemoryTransactions keeps transactions for the lifetime of the process.
type MemoryTransactions struct {
	mu           sync.Mutex
	lastId       int
	transactions map[int]*Transaction
}

func NewMemoryTransactions() *MemoryTransactions {
	return &MemoryTransactions{transactions: make(map[int]*Transaction)}
}

func (m *MemoryTransactions) StartTransaction(_ context.Context, tx Transaction) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastId++
	tx.Id = m.lastId
	m.transactions[tx.Id] = &tx
	return tx.Id, nil
}

func (m *MemoryTransactions) StopTransaction(_ context.Context, chargePointId string, transactionId int, meterStop int, stoppedAt time.Time, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[transactionId]
	if !ok || tx.ChargePointId != chargePointId {
		return errors.NotFoundf("transaction %d of %s", transactionId, chargePointId)
	}
	tx.MeterStop = &meterStop
	tx.StoppedAt = &stoppedAt
	tx.StopReason = reason
	return nil
}

// Get returns a copy of the transaction.
func (m *MemoryTransactions) Get(transactionId int) (Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[transactionId]
	if !ok {
		return Transaction{}, false
	}
	return *tx, true
}
