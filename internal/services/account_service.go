package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ruralpay/deposits/internal/config"
	"github.com/ruralpay/deposits/internal/models"
	"github.com/ruralpay/deposits/internal/store"
)

type AccountService struct {
	store     store.Store
	validator *ConsistencyValidator
	numbers   *AccountNumberGenerator
	retries   int
	now       func() time.Time
}

func NewAccountService(st store.Store, cfg *config.LedgerConfig) *AccountService {
	return &AccountService{
		store:     st,
		validator: NewConsistencyValidator(st),
		numbers:   NewAccountNumberGenerator(cfg),
		retries:   cfg.AccountNumberRetries,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create opens an account for an existing customer and product. A number
// collision surfaces as DuplicateKey unless retries are configured, in which
// case the number is regenerated up to that many times.
func (s *AccountService) Create(ctx context.Context, req models.AccountRequest) (*models.Account, error) {
	customer, err := s.validator.RequireCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	product, err := s.validator.RequireProduct(ctx, req.ProductCode)
	if err != nil {
		return nil, err
	}

	now := s.now()
	a := &models.Account{AccountOpeningDate: now, LastModifiedDate: now}
	req.Apply(a)
	a.Snapshot(customer, product)
	if err := s.validator.CheckDepositComposition(a); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		number, err := s.numbers.Next(ctx, s.store)
		if err != nil {
			return nil, err
		}
		a.AccountNumber = number

		err = s.store.CreateAccount(ctx, a)
		if err == nil {
			break
		}
		if errors.Is(err, models.ErrDuplicateKey) && attempt < s.retries {
			log.Printf("[ACCOUNT] Account number %s already taken, regenerating (attempt %d)", number, attempt+1)
			continue
		}
		return nil, err
	}

	log.Printf("[ACCOUNT] Opened account %s for customer %s", a.AccountNumber, a.CustomerID)
	return a, nil
}

func (s *AccountService) Get(ctx context.Context, accountNumber string) (*models.Account, error) {
	return s.store.GetAccount(ctx, accountNumber)
}

func (s *AccountService) List(ctx context.Context, page models.Page) ([]models.Account, error) {
	return s.store.ListAccounts(ctx, page)
}

func (s *AccountService) Update(ctx context.Context, accountNumber string, req models.AccountRequest) (*models.Account, error) {
	a, err := s.store.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	customer, err := s.validator.RequireCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	product, err := s.validator.RequireProduct(ctx, req.ProductCode)
	if err != nil {
		return nil, err
	}

	req.Apply(a)
	a.Snapshot(customer, product)
	if err := s.validator.CheckDepositComposition(a); err != nil {
		return nil, err
	}
	a.LastModifiedDate = s.now()

	if err := s.store.UpdateAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AccountService) Delete(ctx context.Context, accountNumber string) error {
	if _, err := s.store.GetAccount(ctx, accountNumber); err != nil {
		return err
	}
	if err := s.validator.EnsureAccountDeletable(ctx, accountNumber); err != nil {
		return err
	}
	if err := s.store.DeleteAccount(ctx, accountNumber); err != nil {
		return err
	}
	log.Printf("[ACCOUNT] Deleted account %s", accountNumber)
	return nil
}
