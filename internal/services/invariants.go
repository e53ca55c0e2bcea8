package services

import (
	"context"
	"errors"

	"github.com/ruralpay/deposits/internal/models"
	"github.com/ruralpay/deposits/internal/store"
)

// ConsistencyValidator runs the existence, dependent and composition checks
// that guard every mutation.
type ConsistencyValidator struct {
	store store.Querier
}

func NewConsistencyValidator(q store.Querier) *ConsistencyValidator {
	return &ConsistencyValidator{store: q}
}

// referenced turns a primary NotFound into one naming a referenced entity
func referenced(err error, entity string) error {
	if errors.Is(err, models.ErrNotFound) {
		return models.NewReferenceNotFound(entity)
	}
	return err
}

func (v *ConsistencyValidator) RequireCustomer(ctx context.Context, customerID string) (*models.Customer, error) {
	c, err := v.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, referenced(err, "Customer")
	}
	return c, nil
}

func (v *ConsistencyValidator) RequireProduct(ctx context.Context, productCode string) (*models.Product, error) {
	p, err := v.store.GetProduct(ctx, productCode)
	if err != nil {
		return nil, referenced(err, "Product")
	}
	return p, nil
}

func (v *ConsistencyValidator) RequireAccount(ctx context.Context, accountNumber string) (*models.Account, error) {
	a, err := v.store.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, referenced(err, "Account")
	}
	return a, nil
}

// CheckDepositComposition requires initial = cash + linked, compared exactly
func (v *ConsistencyValidator) CheckDepositComposition(a *models.Account) error {
	if !a.InitialDepositAmount.Equal(a.CashAmount.Add(a.LinkedSubstituteAmount)) {
		return models.NewInvariantViolation("Account",
			"Initial deposit amount must equal cash amount plus linked substitute amount")
	}
	return nil
}

func (v *ConsistencyValidator) EnsureCustomerDeletable(ctx context.Context, customerID string) error {
	n, err := v.store.CountAccountsByCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	if n > 0 {
		return models.NewHasDependents("customer", "accounts")
	}
	return nil
}

func (v *ConsistencyValidator) EnsureProductDeletable(ctx context.Context, productCode string) error {
	n, err := v.store.CountAccountsByProduct(ctx, productCode)
	if err != nil {
		return err
	}
	if n > 0 {
		return models.NewHasDependents("product", "accounts")
	}
	return nil
}

func (v *ConsistencyValidator) EnsureAccountDeletable(ctx context.Context, accountNumber string) error {
	n, err := v.store.CountTransactionsByAccount(ctx, accountNumber)
	if err != nil {
		return err
	}
	if n > 0 {
		return models.NewHasDependents("account", "transactions")
	}
	return nil
}
