package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralpay/deposits/internal/models"
	"github.com/ruralpay/deposits/internal/observability"
	"github.com/ruralpay/deposits/internal/store"
)

func encodeBalance(t *testing.T, b models.Balance) string {
	t.Helper()
	data, err := json.Marshal(b)
	require.NoError(t, err)
	return string(data)
}

func TestBalanceCache_Load(t *testing.T) {
	ctx := context.Background()
	ttl := 10 * time.Minute
	stored := models.Balance{AccountNumber: "100-0001000", TransactionID: 4, Balance: decimal.NewFromInt(1500)}

	t.Run("hit skips the loader", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewBalanceCache(client, ttl, observability.NewMetrics())

		mock.ExpectGet("balance:100-0001000").SetVal(encodeBalance(t, stored))

		got, err := cache.Load(ctx, "100-0001000", func(context.Context) (*models.Balance, error) {
			t.Fatal("loader must not run on a hit")
			return nil, nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), got.TransactionID)
		assert.True(t, got.Balance.Equal(decimal.NewFromInt(1500)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss loads and stores", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewBalanceCache(client, ttl, nil)

		mock.ExpectGet("balance:100-0001000").RedisNil()
		mock.ExpectSet("balance:100-0001000", encodeBalance(t, stored), ttl).SetVal("OK")

		got, err := cache.Load(ctx, "100-0001000", func(context.Context) (*models.Balance, error) {
			b := stored
			return &b, nil
		})
		require.NoError(t, err)
		assert.Equal(t, stored.TransactionID, got.TransactionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("loader failure is returned and nothing stored", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewBalanceCache(client, ttl, nil)

		mock.ExpectGet("balance:100-0001000").RedisNil()

		_, err := cache.Load(ctx, "100-0001000", func(context.Context) (*models.Balance, error) {
			return nil, models.NewNotFound("Account")
		})
		assert.True(t, errors.Is(err, models.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis failure falls through to the loader", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewBalanceCache(client, ttl, nil)

		mock.ExpectGet("balance:100-0001000").SetErr(errors.New("connection refused"))
		mock.ExpectSet("balance:100-0001000", encodeBalance(t, stored), ttl).SetErr(errors.New("connection refused"))

		got, err := cache.Load(ctx, "100-0001000", func(context.Context) (*models.Balance, error) {
			b := stored
			return &b, nil
		})
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(decimal.NewFromInt(1500)))
	})

	t.Run("nil client always loads", func(t *testing.T) {
		cache := NewBalanceCache(nil, ttl, nil)
		assert.False(t, cache.Enabled())

		calls := 0
		for i := 0; i < 2; i++ {
			_, err := cache.Load(ctx, "100-0001000", func(context.Context) (*models.Balance, error) {
				calls++
				b := stored
				return &b, nil
			})
			require.NoError(t, err)
		}
		assert.Equal(t, 2, calls)
		assert.NoError(t, cache.Invalidate(ctx, "100-0001000"))
	})
}

func TestLedgerService_CacheWriteThrough(t *testing.T) {
	ctx := context.Background()
	cfg := testLedgerConfig()
	st := store.NewMemoryStore()
	number := openAccount(t, st, cfg, 1000)

	client, mock := redismock.NewClientMock()
	cache := NewBalanceCache(client, time.Minute, nil)
	ledger := NewLedgerService(st, cache, discardAudit(), nil, cfg)

	mock.ExpectSet("balance:"+number,
		encodeBalance(t, models.Balance{AccountNumber: number, TransactionID: 1, Balance: decimal.NewFromInt(1200)}),
		time.Minute).SetVal("OK")

	txn, err := ledger.Post(ctx, posting(number, models.TransactionTypeDeposit, 200))
	require.NoError(t, err)
	assert.Equal(t, int64(1), txn.TransactionID)

	mock.ExpectDel("balance:" + number).SetVal(1)
	require.NoError(t, ledger.DeleteTransaction(ctx, txn.TransactionID))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_Reconcile(t *testing.T) {
	ctx := context.Background()
	cfg := testLedgerConfig()
	st := store.NewMemoryStore()
	number := openAccount(t, st, cfg, 1000)

	client, mock := redismock.NewClientMock()
	cache := NewBalanceCache(client, time.Minute, nil)
	ledger := NewLedgerService(st, cache, discardAudit(), nil, cfg)

	ledgerBalance := models.Balance{AccountNumber: number, Balance: decimal.NewFromInt(1000)}
	stale := models.Balance{AccountNumber: number, TransactionID: 9, Balance: decimal.NewFromInt(77)}

	mock.ExpectGet("balance:" + number).SetVal(encodeBalance(t, stale))
	mock.ExpectSet("balance:"+number, encodeBalance(t, ledgerBalance), time.Minute).SetVal("OK")

	rec, err := ledger.Reconcile(ctx, number)
	require.NoError(t, err)
	assert.True(t, rec.Diverged)
	require.NotNil(t, rec.CachedBalance)
	assert.True(t, rec.CachedBalance.Equal(decimal.NewFromInt(77)))
	assert.True(t, rec.Balance.Balance.Equal(decimal.NewFromInt(1000)))
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectGet("balance:" + number).SetVal(encodeBalance(t, ledgerBalance))
	mock.ExpectSet("balance:"+number, encodeBalance(t, ledgerBalance), time.Minute).SetVal("OK")

	rec, err = ledger.Reconcile(ctx, number)
	require.NoError(t, err)
	assert.False(t, rec.Diverged)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = ledger.Reconcile(ctx, "100-0009999")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
