package services

import (
	"context"
	"io"
	"log"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/ruralpay/deposits/internal/audit"
	"github.com/ruralpay/deposits/internal/config"
	"github.com/ruralpay/deposits/internal/models"
	"github.com/ruralpay/deposits/internal/store"
)

type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) LogPosting(transactionID int64, accountNumber, txType string, amount, balance decimal.Decimal) {
	m.Called(transactionID, accountNumber, txType, amount, balance)
}

func (m *MockAuditLogger) LogRejection(accountNumber, txType string, amount decimal.Decimal, err error) {
	m.Called(accountNumber, txType, amount, err)
}

func (m *MockAuditLogger) LogDeletion(transactionID int64, accountNumber string) {
	m.Called(transactionID, accountNumber)
}

func discardAudit() *audit.AuditLogger {
	return audit.NewAuditLoggerTo(log.New(io.Discard, "", 0))
}

func testLedgerConfig() *config.LedgerConfig {
	return &config.LedgerConfig{
		AccountNumberPrefix: "100",
		AccountNumberBase:   1000,
		PageDefaultLimit:    100,
		PageMaxLimit:        1000,
		SerializePostings:   true,
	}
}

// readBarrierStore holds the first `parties` LatestTransaction callers until
// all of them have read, forcing concurrent postings onto the same prior
// balance.
type readBarrierStore struct {
	*store.MemoryStore
	parties int32
	arrived int32
	release chan struct{}
}

func newReadBarrierStore(parties int) *readBarrierStore {
	return &readBarrierStore{
		MemoryStore: store.NewMemoryStore(),
		parties:     int32(parties),
		release:     make(chan struct{}),
	}
}

func (s *readBarrierStore) LatestTransaction(ctx context.Context, accountNumber string) (*models.Transaction, error) {
	txn, err := s.MemoryStore.LatestTransaction(ctx, accountNumber)
	n := atomic.AddInt32(&s.arrived, 1)
	if n > s.parties {
		return txn, err
	}
	if n == s.parties {
		close(s.release)
	}
	<-s.release
	return txn, err
}

// staleCountStore under-reports the account count once, as a concurrent
// creator that has not committed yet would see it.
type staleCountStore struct {
	*store.MemoryStore
	stale int32
}

func (s *staleCountStore) CountAccounts(ctx context.Context) (int, error) {
	n, err := s.MemoryStore.CountAccounts(ctx)
	if atomic.CompareAndSwapInt32(&s.stale, 1, 0) && n > 0 {
		return n - 1, err
	}
	return n, err
}
