package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ruralpay/deposits/internal/config"
	"github.com/ruralpay/deposits/internal/models"
	"github.com/ruralpay/deposits/internal/store"
)

// openAccount creates a customer, a product and an account funded with
// initial in cash, returning the account number.
func openAccount(t *testing.T, st store.Store, cfg *config.LedgerConfig, initial int64) string {
	t.Helper()
	ctx := context.Background()

	customer, err := NewCustomerService(st).Create(ctx, models.CustomerRequest{
		CustomerName:                 "Hong Gildong",
		CustomerType:                 models.CustomerTypeIndividual,
		RealNameIdentificationNumber: "9001011234567",
	})
	require.NoError(t, err)

	products := NewProductService(st)
	if _, err := products.Get(ctx, "123456"); err != nil {
		_, err = products.Create(ctx, models.ProductRequest{
			ProductCode:            "123456",
			ProductName:            "Basic Savings",
			EligibleCustomerType:   models.CustomerTypeIndividual,
			TaxationCode:           "1",
			BaseInterestRate:       decimal.RequireFromString("3.500"),
			AdditionalInterestRate: decimal.RequireFromString("0.500"),
			AppliedInterestRate:    decimal.RequireFromString("4.000"),
		})
		require.NoError(t, err)
	}

	account, err := NewAccountService(st, cfg).Create(ctx, models.AccountRequest{
		CustomerID:                   customer.CustomerID,
		ProductCode:                  "123456",
		RealNameIdentificationNumber: customer.RealNameIdentificationNumber,
		CustomerType:                 customer.CustomerType,
		TaxationCode:                 "1",
		InitialDepositAmount:         decimal.NewFromInt(initial),
		BaseInterestRate:             decimal.RequireFromString("3.500"),
		AdditionalInterestRate:       decimal.RequireFromString("0.500"),
		AppliedInterestRate:          decimal.RequireFromString("4.000"),
		AccountPassword:              "1234",
		CashAmount:                   decimal.NewFromInt(initial),
		LinkedSubstituteAmount:       decimal.Zero,
	})
	require.NoError(t, err)
	return account.AccountNumber
}

func posting(accountNumber string, txType models.TransactionType, amount int64) models.TransactionRequest {
	return models.TransactionRequest{
		AccountNumber:     accountNumber,
		TransactionDate:   time.Now().UTC(),
		TransactionType:   txType,
		TransactionAmount: decimal.NewFromInt(amount),
	}
}

func TestApplyPosting(t *testing.T) {
	tests := []struct {
		name    string
		prior   string
		txType  models.TransactionType
		amount  string
		want    string
		wantErr error
	}{
		{"deposit", "1000000", models.TransactionTypeDeposit, "500000", "1500000", nil},
		{"withdrawal", "1500000", models.TransactionTypeWithdrawal, "500000", "1000000", nil},
		{"withdrawal of entire balance", "700", models.TransactionTypeWithdrawal, "700", "0", nil},
		{"withdrawal over balance", "1500000", models.TransactionTypeWithdrawal, "2000000", "", models.ErrInsufficientFunds},
		{"exact decimal arithmetic", "0.1", models.TransactionTypeDeposit, "0.2", "0.3", nil},
		{"deposit up to the column limit", "999999999000", models.TransactionTypeDeposit, "999", "999999999999", nil},
		{"deposit past the column limit", "999999999999", models.TransactionTypeDeposit, "1", "", models.ErrValidation},
		{"zero amount", "100", models.TransactionTypeDeposit, "0", "", models.ErrValidation},
		{"negative amount", "100", models.TransactionTypeWithdrawal, "-5", "", models.ErrValidation},
		{"unknown type", "100", models.TransactionType(3), "5", "", models.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyPosting(decimal.RequireFromString(tt.prior), tt.txType, decimal.RequireFromString(tt.amount))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestLedgerService_Post(t *testing.T) {
	ctx := context.Background()
	cfg := testLedgerConfig()

	t.Run("first deposit builds on the initial deposit", func(t *testing.T) {
		st := store.NewMemoryStore()
		number := openAccount(t, st, cfg, 1000)
		ledger := NewLedgerService(st, nil, discardAudit(), nil, cfg)

		txn, err := ledger.Post(ctx, posting(number, models.TransactionTypeDeposit, 250))
		require.NoError(t, err)
		assert.NotZero(t, txn.TransactionID)
		assert.False(t, txn.RegistrationDate.IsZero())
		assert.True(t, txn.BalanceAfterTransaction.Equal(decimal.NewFromInt(1250)))
	})

	t.Run("caller supplied balance is discarded", func(t *testing.T) {
		st := store.NewMemoryStore()
		number := openAccount(t, st, cfg, 1000)
		ledger := NewLedgerService(st, nil, discardAudit(), nil, cfg)

		req := posting(number, models.TransactionTypeWithdrawal, 400)
		bogus := decimal.NewFromInt(999999)
		req.BalanceAfterTransaction = &bogus

		txn, err := ledger.Post(ctx, req)
		require.NoError(t, err)
		assert.True(t, txn.BalanceAfterTransaction.Equal(decimal.NewFromInt(600)))
	})

	t.Run("insufficient funds writes nothing", func(t *testing.T) {
		st := store.NewMemoryStore()
		number := openAccount(t, st, cfg, 1000)
		auditLog := new(MockAuditLogger)
		auditLog.On("LogPosting", mock.Anything, number, "DEPOSIT", mock.Anything, mock.Anything).Once()
		auditLog.On("LogRejection", number, "WITHDRAWAL", decimal.NewFromInt(5000), mock.Anything).Once()
		ledger := NewLedgerService(st, nil, auditLog, nil, cfg)

		_, err := ledger.Post(ctx, posting(number, models.TransactionTypeDeposit, 100))
		require.NoError(t, err)
		before, err := ledger.ListAccountTransactions(ctx, number, models.Page{Limit: 100})
		require.NoError(t, err)

		_, err = ledger.Post(ctx, posting(number, models.TransactionTypeWithdrawal, 5000))
		assert.True(t, errors.Is(err, models.ErrInsufficientFunds))

		after, err := ledger.ListAccountTransactions(ctx, number, models.Page{Limit: 100})
		require.NoError(t, err)
		assert.Equal(t, before, after)
		auditLog.AssertExpectations(t)
	})

	t.Run("missing account is a referenced not found", func(t *testing.T) {
		ledger := NewLedgerService(store.NewMemoryStore(), nil, discardAudit(), nil, cfg)

		_, err := ledger.Post(ctx, posting("100-0009999", models.TransactionTypeDeposit, 100))
		var domainErr *models.Error
		require.True(t, errors.As(err, &domainErr))
		assert.True(t, domainErr.Referenced)
		assert.Equal(t, "Account", domainErr.Entity)
	})

	t.Run("non-positive amount is a validation error", func(t *testing.T) {
		st := store.NewMemoryStore()
		number := openAccount(t, st, cfg, 1000)
		ledger := NewLedgerService(st, nil, discardAudit(), nil, cfg)

		_, err := ledger.Post(ctx, posting(number, models.TransactionTypeDeposit, 0))
		assert.True(t, errors.Is(err, models.ErrValidation))
	})

	t.Run("prior balance follows transaction date, not insertion order", func(t *testing.T) {
		st := store.NewMemoryStore()
		number := openAccount(t, st, cfg, 1000)
		ledger := NewLedgerService(st, nil, discardAudit(), nil, cfg)

		now := time.Now().UTC()
		req := posting(number, models.TransactionTypeDeposit, 500)
		req.TransactionDate = now
		_, err := ledger.Post(ctx, req)
		require.NoError(t, err)

		backdated := posting(number, models.TransactionTypeDeposit, 1)
		backdated.TransactionDate = now.Add(-time.Hour)
		txn, err := ledger.Post(ctx, backdated)
		require.NoError(t, err)
		assert.True(t, txn.BalanceAfterTransaction.Equal(decimal.NewFromInt(1501)))

		balance, err := ledger.CurrentBalance(ctx, number)
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(decimal.NewFromInt(1500)), "latest by date still wins")
	})
}

func TestLedgerService_CurrentBalanceIsStableBetweenWrites(t *testing.T) {
	ctx := context.Background()
	cfg := testLedgerConfig()
	st := store.NewMemoryStore()
	number := openAccount(t, st, cfg, 1000)
	ledger := NewLedgerService(st, nil, discardAudit(), nil, cfg)

	initial, err := ledger.CurrentBalance(ctx, number)
	require.NoError(t, err)
	assert.Zero(t, initial.TransactionID)
	assert.True(t, initial.Balance.Equal(decimal.NewFromInt(1000)))

	posted, err := ledger.Post(ctx, posting(number, models.TransactionTypeDeposit, 10))
	require.NoError(t, err)

	first, err := ledger.CurrentBalance(ctx, number)
	require.NoError(t, err)
	second, err := ledger.CurrentBalance(ctx, number)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, posted.TransactionID, first.TransactionID)
}

func TestLedgerService_DeleteTransaction(t *testing.T) {
	ctx := context.Background()
	cfg := testLedgerConfig()
	st := store.NewMemoryStore()
	number := openAccount(t, st, cfg, 1000)
	auditLog := new(MockAuditLogger)
	auditLog.On("LogPosting", mock.Anything, number, mock.Anything, mock.Anything, mock.Anything)
	ledger := NewLedgerService(st, nil, auditLog, nil, cfg)

	first, err := ledger.Post(ctx, posting(number, models.TransactionTypeDeposit, 100))
	require.NoError(t, err)
	second, err := ledger.Post(ctx, posting(number, models.TransactionTypeDeposit, 100))
	require.NoError(t, err)

	auditLog.On("LogDeletion", first.TransactionID, number).Once()
	require.NoError(t, ledger.DeleteTransaction(ctx, first.TransactionID))

	_, err = ledger.GetTransaction(ctx, first.TransactionID)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	kept, err := ledger.GetTransaction(ctx, second.TransactionID)
	require.NoError(t, err)
	assert.True(t, kept.BalanceAfterTransaction.Equal(decimal.NewFromInt(1200)), "later entries are not recomputed")

	assert.True(t, errors.Is(ledger.DeleteTransaction(ctx, first.TransactionID), models.ErrNotFound))
	auditLog.AssertExpectations(t)
}

func TestLedgerService_ConcurrentWithdrawals(t *testing.T) {
	ctx := context.Background()

	t.Run("serialized postings never overdraw", func(t *testing.T) {
		cfg := testLedgerConfig()
		st := store.NewMemoryStore()
		number := openAccount(t, st, cfg, 1000)
		ledger := NewLedgerService(st, nil, discardAudit(), nil, cfg)

		const attempts = 50
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			rejected  int
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := ledger.Post(ctx, posting(number, models.TransactionTypeWithdrawal, 100))
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					succeeded++
				} else if errors.Is(err, models.ErrInsufficientFunds) {
					rejected++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 10, succeeded)
		assert.Equal(t, attempts-10, rejected)

		balance, err := ledger.CurrentBalance(ctx, number)
		require.NoError(t, err)
		assert.True(t, balance.Balance.IsZero())
	})

	t.Run("unserialized postings can both spend the same balance", func(t *testing.T) {
		cfg := testLedgerConfig()
		cfg.SerializePostings = false
		st := newReadBarrierStore(2)
		number := openAccount(t, st, cfg, 1000)
		ledger := NewLedgerService(st, nil, discardAudit(), nil, cfg)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = ledger.Post(ctx, posting(number, models.TransactionTypeWithdrawal, 700))
			}(i)
		}
		wg.Wait()

		assert.NoError(t, errs[0])
		assert.NoError(t, errs[1])

		txns, err := ledger.ListAccountTransactions(ctx, number, models.Page{Limit: 10})
		require.NoError(t, err)
		require.Len(t, txns, 2)
		for _, txn := range txns {
			assert.True(t, txn.BalanceAfterTransaction.Equal(decimal.NewFromInt(300)),
				"both withdrawals read the same prior balance of 1000")
		}
	})
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	cfg := testLedgerConfig()
	st := store.NewMemoryStore()

	customer, err := NewCustomerService(st).Create(ctx, models.CustomerRequest{
		CustomerName:                 "Kim Cheolsu",
		CustomerType:                 models.CustomerTypeIndividual,
		RealNameIdentificationNumber: "8505051234567",
	})
	require.NoError(t, err)

	product, err := NewProductService(st).Create(ctx, models.ProductRequest{
		ProductCode:            "123456",
		ProductName:            "Regular Savings",
		EligibleCustomerType:   models.CustomerTypeIndividual,
		TaxationCode:           "1",
		BaseInterestRate:       decimal.RequireFromString("3.500"),
		AdditionalInterestRate: decimal.RequireFromString("0.500"),
		AppliedInterestRate:    decimal.RequireFromString("4.000"),
	})
	require.NoError(t, err)

	account, err := NewAccountService(st, cfg).Create(ctx, models.AccountRequest{
		CustomerID:                   customer.CustomerID,
		ProductCode:                  product.ProductCode,
		RealNameIdentificationNumber: customer.RealNameIdentificationNumber,
		CustomerType:                 customer.CustomerType,
		TaxationCode:                 product.TaxationCode,
		InitialDepositAmount:         decimal.NewFromInt(1000000),
		BaseInterestRate:             product.BaseInterestRate,
		AdditionalInterestRate:       product.AdditionalInterestRate,
		AppliedInterestRate:          product.AppliedInterestRate,
		AccountPassword:              "0000",
		CashAmount:                   decimal.NewFromInt(1000000),
		LinkedSubstituteAmount:       decimal.Zero,
	})
	require.NoError(t, err)
	assert.True(t, account.InitialDepositAmount.Equal(decimal.NewFromInt(1000000)))
	assert.Regexp(t, `^100-\d{7}$`, account.AccountNumber)

	ledger := NewLedgerService(st, nil, discardAudit(), nil, cfg)

	deposit, err := ledger.Post(ctx, posting(account.AccountNumber, models.TransactionTypeDeposit, 500000))
	require.NoError(t, err)
	assert.True(t, deposit.BalanceAfterTransaction.Equal(decimal.NewFromInt(1500000)))

	_, err = ledger.Post(ctx, posting(account.AccountNumber, models.TransactionTypeWithdrawal, 2000000))
	assert.True(t, errors.Is(err, models.ErrInsufficientFunds))

	txns, err := ledger.ListAccountTransactions(ctx, account.AccountNumber, models.Page{Limit: 100})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.True(t, txns[0].BalanceAfterTransaction.Equal(decimal.NewFromInt(1500000)))
}
