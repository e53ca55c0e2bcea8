package services

import (
	"context"
	"fmt"

	"github.com/ruralpay/deposits/internal/config"
	"github.com/ruralpay/deposits/internal/store"
)

// AccountNumberGenerator derives the next account number from the current
// account count. Two creations that read the same count produce the same
// number; the store's primary key rejects the second with DuplicateKey.
type AccountNumberGenerator struct {
	prefix string
	base   int
}

func NewAccountNumberGenerator(cfg *config.LedgerConfig) *AccountNumberGenerator {
	return &AccountNumberGenerator{prefix: cfg.AccountNumberPrefix, base: cfg.AccountNumberBase}
}

func (g *AccountNumberGenerator) Next(ctx context.Context, q store.Querier) (string, error) {
	count, err := q.CountAccounts(ctx)
	if err != nil {
		return "", fmt.Errorf("count accounts: %w", err)
	}
	return g.Format(g.base + count), nil
}

// Format renders a sequence number as PREFIX-NNNNNNN
func (g *AccountNumberGenerator) Format(seq int) string {
	return fmt.Sprintf("%s-%07d", g.prefix, seq)
}
