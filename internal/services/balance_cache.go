package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/singleflight"

	"github.com/ruralpay/deposits/internal/models"
	"github.com/ruralpay/deposits/internal/observability"
)

// BalanceCache keeps the latest derived balance per account in Redis. The
// ledger stays authoritative; a nil client turns every method into a no-op
// or a direct load.
type BalanceCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
	group   singleflight.Group
}

func NewBalanceCache(client *redis.Client, ttl time.Duration, metrics *observability.Metrics) *BalanceCache {
	return &BalanceCache{client: client, ttl: ttl, metrics: metrics}
}

func (c *BalanceCache) Enabled() bool {
	return c != nil && c.client != nil
}

func balanceKey(accountNumber string) string {
	return "balance:" + accountNumber
}

// Get reports a cached balance, with ok false on a miss.
func (c *BalanceCache) Get(ctx context.Context, accountNumber string) (*models.Balance, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, balanceKey(accountNumber)).Result()
	if errors.Is(err, redis.Nil) {
		c.metrics.ObserveCacheLookup(false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached balance: %w", err)
	}

	var b models.Balance
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, false, fmt.Errorf("decode cached balance: %w", err)
	}
	c.metrics.ObserveCacheLookup(true)
	return &b, true, nil
}

func (c *BalanceCache) Set(ctx context.Context, b *models.Balance) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, balanceKey(b.AccountNumber), string(data), c.ttl).Err()
}

func (c *BalanceCache) Invalidate(ctx context.Context, accountNumber string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, balanceKey(accountNumber)).Err()
}

// Load returns the cached balance or runs load once per account across
// concurrent callers, storing its result. Cache read failures fall through
// to load.
func (c *BalanceCache) Load(ctx context.Context, accountNumber string, load func(context.Context) (*models.Balance, error)) (*models.Balance, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}

	cached, ok, err := c.Get(ctx, accountNumber)
	if err != nil {
		log.Printf("[CACHE] %v", err)
	}
	if ok {
		return cached, nil
	}

	result := c.group.DoChan(accountNumber, func() (interface{}, error) {
		b, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, b); err != nil {
			log.Printf("[CACHE] Failed to store balance for %s: %v", accountNumber, err)
		}
		return b, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Balance), nil
	}
}
