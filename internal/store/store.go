// Package store persists customers, products, accounts and ledger entries.
package store

import (
	"context"

	"github.com/ruralpay/deposits/internal/models"
)

// Querier is the keyed persistence surface shared by the PostgreSQL and
// in-memory stores. Lookups of a missing key return a models.Error wrapping
// models.ErrNotFound; creates on an existing key wrap models.ErrDuplicateKey.
type Querier interface {
	CreateCustomer(ctx context.Context, c *models.Customer) error
	GetCustomer(ctx context.Context, customerID string) (*models.Customer, error)
	ListCustomers(ctx context.Context, page models.Page) ([]models.Customer, error)
	UpdateCustomer(ctx context.Context, c *models.Customer) error
	DeleteCustomer(ctx context.Context, customerID string) error

	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, productCode string) (*models.Product, error)
	ListProducts(ctx context.Context, page models.Page) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, productCode string) error

	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccount(ctx context.Context, accountNumber string) (*models.Account, error)
	ListAccounts(ctx context.Context, page models.Page) ([]models.Account, error)
	UpdateAccount(ctx context.Context, a *models.Account) error
	DeleteAccount(ctx context.Context, accountNumber string) error
	CountAccounts(ctx context.Context) (int, error)
	CountAccountsByCustomer(ctx context.Context, customerID string) (int, error)
	CountAccountsByProduct(ctx context.Context, productCode string) (int, error)

	// CreateTransaction assigns TransactionID and RegistrationDate.
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	GetTransaction(ctx context.Context, transactionID int64) (*models.Transaction, error)
	ListTransactions(ctx context.Context, page models.Page) ([]models.Transaction, error)
	ListTransactionsByAccount(ctx context.Context, accountNumber string, page models.Page) ([]models.Transaction, error)
	// LatestTransaction returns the entry with the greatest transaction date
	// for the account, the newest insert winning ties.
	LatestTransaction(ctx context.Context, accountNumber string) (*models.Transaction, error)
	CountTransactionsByAccount(ctx context.Context, accountNumber string) (int, error)
	DeleteTransaction(ctx context.Context, transactionID int64) error
}

// Store adds per-account serialization on top of Querier.
type Store interface {
	Querier

	// WithAccountLock runs fn while holding an exclusive hold on the account,
	// handing it a Querier bound to the same unit of work. A missing account
	// fails with NotFound before fn is called. Any error from fn discards the
	// work done through the Querier.
	WithAccountLock(ctx context.Context, accountNumber string, fn func(q Querier) error) error
}
