package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ruralpay/deposits/internal/config"
	"github.com/ruralpay/deposits/internal/models"
	"github.com/ruralpay/deposits/internal/observability"
	"github.com/ruralpay/deposits/internal/store"
)

// AuditLogger receives one event per ledger mutation or rejected posting
type AuditLogger interface {
	LogPosting(transactionID int64, accountNumber, txType string, amount, balance decimal.Decimal)
	LogRejection(accountNumber, txType string, amount decimal.Decimal, err error)
	LogDeletion(transactionID int64, accountNumber string)
}

// LedgerService posts transactions and derives balances. The balance of an
// account is the balance_after_transaction of its latest entry, or its
// initial deposit when nothing has been posted.
type LedgerService struct {
	store     store.Store
	validator *ConsistencyValidator
	cache     *BalanceCache
	audit     AuditLogger
	metrics   *observability.Metrics
	serialize bool
}

func NewLedgerService(st store.Store, cache *BalanceCache, audit AuditLogger, metrics *observability.Metrics, cfg *config.LedgerConfig) *LedgerService {
	return &LedgerService{
		store:     st,
		validator: NewConsistencyValidator(st),
		cache:     cache,
		audit:     audit,
		metrics:   metrics,
		serialize: cfg.SerializePostings,
	}
}

// ApplyPosting computes the balance after moving amount in the direction of
// txType. A withdrawal larger than prior fails with InsufficientFunds; a
// deposit taking the balance past MaxAmount is a ValidationError.
func ApplyPosting(prior decimal.Decimal, txType models.TransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, errNonPositiveAmount
	}
	switch txType {
	case models.TransactionTypeDeposit:
		balance := prior.Add(amount)
		if balance.GreaterThan(models.MaxAmount) {
			return decimal.Zero, errBalanceOutOfRange
		}
		return balance, nil
	case models.TransactionTypeWithdrawal:
		if prior.LessThan(amount) {
			return decimal.Zero, models.NewInsufficientFunds()
		}
		return prior.Sub(amount), nil
	default:
		return decimal.Zero, errUnknownTransactionType
	}
}

var (
	errNonPositiveAmount      = models.NewValidation("transaction_amount must be greater than 0")
	errUnknownTransactionType = models.NewValidation("transaction_type must be 1 (deposit) or 2 (withdrawal)")
	errBalanceOutOfRange      = models.NewValidation("balance_after_transaction would exceed " + models.MaxAmount.String())
)

func checkPosting(req models.TransactionRequest) error {
	if !req.TransactionAmount.IsPositive() {
		return errNonPositiveAmount
	}
	if req.TransactionType != models.TransactionTypeDeposit && req.TransactionType != models.TransactionTypeWithdrawal {
		return errUnknownTransactionType
	}
	return nil
}

// derive reads the current balance of an account through q
func derive(ctx context.Context, q store.Querier, accountNumber string) (*models.Balance, error) {
	latest, err := q.LatestTransaction(ctx, accountNumber)
	if err == nil {
		return &models.Balance{
			AccountNumber: accountNumber,
			TransactionID: latest.TransactionID,
			Balance:       latest.BalanceAfterTransaction,
		}, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	account, err := q.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	return &models.Balance{AccountNumber: accountNumber, Balance: account.InitialDepositAmount}, nil
}

// Post appends a ledger entry for req. Any caller-supplied balance is
// ignored. Nothing is written when the posting is rejected.
func (s *LedgerService) Post(ctx context.Context, req models.TransactionRequest) (*models.Transaction, error) {
	start := time.Now()
	txType := req.TransactionType.String()

	txn, err := s.post(ctx, req)
	if err != nil {
		s.metrics.ObservePosting(txType, models.Code(err), time.Since(start))
		s.audit.LogRejection(req.AccountNumber, txType, req.TransactionAmount, err)
		return nil, err
	}

	s.metrics.ObservePosting(txType, "posted", time.Since(start))
	s.audit.LogPosting(txn.TransactionID, txn.AccountNumber, txType, txn.TransactionAmount, txn.BalanceAfterTransaction)
	log.Printf("[LEDGER] Posted %s of %s to %s, balance %s", txType, txn.TransactionAmount, txn.AccountNumber, txn.BalanceAfterTransaction)
	return txn, nil
}

func (s *LedgerService) post(ctx context.Context, req models.TransactionRequest) (*models.Transaction, error) {
	if err := checkPosting(req); err != nil {
		return nil, err
	}
	if _, err := s.validator.RequireAccount(ctx, req.AccountNumber); err != nil {
		return nil, err
	}

	var posted *models.Transaction
	write := func(q store.Querier) error {
		prior, err := derive(ctx, q, req.AccountNumber)
		if err != nil {
			return err
		}
		balance, err := ApplyPosting(prior.Balance, req.TransactionType, req.TransactionAmount)
		if err != nil {
			return err
		}

		txn := &models.Transaction{
			AccountNumber:           req.AccountNumber,
			TransactionDate:         req.TransactionDate,
			TransactionType:         req.TransactionType,
			TransactionAmount:       req.TransactionAmount,
			BalanceAfterTransaction: balance,
		}
		if err := q.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		posted = txn
		// cache writes stay ordered with the ledger while the account is held
		s.refreshCache(ctx, req.AccountNumber, q)
		return nil
	}

	if !s.serialize {
		if err := write(s.store); err != nil {
			return nil, err
		}
		return posted, nil
	}

	if err := s.store.WithAccountLock(ctx, req.AccountNumber, write); err != nil {
		if posted != nil {
			s.dropCache(ctx, req.AccountNumber)
		}
		return nil, err
	}
	return posted, nil
}

// refreshCache stores the account's derived balance. A backdated entry is not
// necessarily the latest, so the balance is re-derived rather than taken from
// the new entry.
func (s *LedgerService) refreshCache(ctx context.Context, accountNumber string, q store.Querier) {
	if !s.cache.Enabled() {
		return
	}
	b, err := derive(ctx, q, accountNumber)
	if err == nil {
		err = s.cache.Set(ctx, b)
	}
	if err != nil {
		log.Printf("[LEDGER] Balance cache refresh for %s failed: %v", accountNumber, err)
		s.dropCache(ctx, accountNumber)
	}
}

func (s *LedgerService) dropCache(ctx context.Context, accountNumber string) {
	if err := s.cache.Invalidate(ctx, accountNumber); err != nil {
		log.Printf("[LEDGER] Balance cache invalidation for %s failed: %v", accountNumber, err)
	}
}

// CurrentBalance serves the account balance from the cache, deriving it from
// the ledger on a miss.
func (s *LedgerService) CurrentBalance(ctx context.Context, accountNumber string) (*models.Balance, error) {
	if _, err := s.store.GetAccount(ctx, accountNumber); err != nil {
		return nil, err
	}
	return s.cache.Load(ctx, accountNumber, func(ctx context.Context) (*models.Balance, error) {
		return derive(ctx, s.store, accountNumber)
	})
}

// Reconcile re-derives the balance from the ledger, overwrites the cached
// value and reports whether the two disagreed.
func (s *LedgerService) Reconcile(ctx context.Context, accountNumber string) (*models.Reconciliation, error) {
	if _, err := s.store.GetAccount(ctx, accountNumber); err != nil {
		return nil, err
	}
	derived, err := derive(ctx, s.store, accountNumber)
	if err != nil {
		return nil, err
	}

	rec := &models.Reconciliation{Balance: *derived}
	cached, ok, err := s.cache.Get(ctx, accountNumber)
	if err != nil {
		log.Printf("[LEDGER] Reading cached balance for %s failed: %v", accountNumber, err)
	}
	if ok {
		rec.CachedBalance = &cached.Balance
		rec.Diverged = !cached.Balance.Equal(derived.Balance) || cached.TransactionID != derived.TransactionID
	}
	if rec.Diverged {
		log.Printf("[LEDGER] Cached balance for %s diverged from ledger (cached %s, ledger %s)",
			accountNumber, cached.Balance, derived.Balance)
	}

	if err := s.cache.Set(ctx, derived); err != nil {
		log.Printf("[LEDGER] Balance cache refresh for %s failed: %v", accountNumber, err)
	}
	return rec, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, transactionID int64) (*models.Transaction, error) {
	return s.store.GetTransaction(ctx, transactionID)
}

func (s *LedgerService) ListTransactions(ctx context.Context, page models.Page) ([]models.Transaction, error) {
	return s.store.ListTransactions(ctx, page)
}

func (s *LedgerService) ListAccountTransactions(ctx context.Context, accountNumber string, page models.Page) ([]models.Transaction, error) {
	if _, err := s.store.GetAccount(ctx, accountNumber); err != nil {
		return nil, err
	}
	return s.store.ListTransactionsByAccount(ctx, accountNumber, page)
}

// DeleteTransaction removes a single entry. Later entries keep the running
// balances they were posted with.
func (s *LedgerService) DeleteTransaction(ctx context.Context, transactionID int64) error {
	txn, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, transactionID); err != nil {
		return err
	}
	s.dropCache(ctx, txn.AccountNumber)
	s.audit.LogDeletion(transactionID, txn.AccountNumber)
	log.Printf("[LEDGER] Deleted transaction %d from %s", transactionID, txn.AccountNumber)
	return nil
}
