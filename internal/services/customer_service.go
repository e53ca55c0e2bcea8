package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ruralpay/deposits/internal/models"
	"github.com/ruralpay/deposits/internal/store"
)

type CustomerService struct {
	store     store.Store
	validator *ConsistencyValidator
	now       func() time.Time
}

func NewCustomerService(st store.Store) *CustomerService {
	return &CustomerService{
		store:     st,
		validator: NewConsistencyValidator(st),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *CustomerService) Create(ctx context.Context, req models.CustomerRequest) (*models.Customer, error) {
	now := s.now()
	c := &models.Customer{
		CustomerID:                   uuid.NewString(),
		CustomerName:                 req.CustomerName,
		CustomerType:                 req.CustomerType,
		RealNameIdentificationNumber: req.RealNameIdentificationNumber,
		RegistrationDate:             now,
		LastModifiedDate:             now,
	}
	if err := s.store.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}
	log.Printf("[CUSTOMER] Created customer %s", c.CustomerID)
	return c, nil
}

func (s *CustomerService) Get(ctx context.Context, customerID string) (*models.Customer, error) {
	return s.store.GetCustomer(ctx, customerID)
}

func (s *CustomerService) List(ctx context.Context, page models.Page) ([]models.Customer, error) {
	return s.store.ListCustomers(ctx, page)
}

func (s *CustomerService) Update(ctx context.Context, customerID string, req models.CustomerRequest) (*models.Customer, error) {
	c, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	c.CustomerName = req.CustomerName
	c.CustomerType = req.CustomerType
	c.RealNameIdentificationNumber = req.RealNameIdentificationNumber
	c.LastModifiedDate = s.now()

	if err := s.store.UpdateCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CustomerService) Delete(ctx context.Context, customerID string) error {
	if _, err := s.store.GetCustomer(ctx, customerID); err != nil {
		return err
	}
	if err := s.validator.EnsureCustomerDeletable(ctx, customerID); err != nil {
		return err
	}
	if err := s.store.DeleteCustomer(ctx, customerID); err != nil {
		return err
	}
	log.Printf("[CUSTOMER] Deleted customer %s", customerID)
	return nil
}
