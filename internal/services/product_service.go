package services

import (
	"context"
	"log"
	"time"

	"github.com/ruralpay/deposits/internal/models"
	"github.com/ruralpay/deposits/internal/store"
)

type ProductService struct {
	store     store.Store
	validator *ConsistencyValidator
	now       func() time.Time
}

func NewProductService(st store.Store) *ProductService {
	return &ProductService{
		store:     st,
		validator: NewConsistencyValidator(st),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *ProductService) Create(ctx context.Context, req models.ProductRequest) (*models.Product, error) {
	now := s.now()
	p := &models.Product{
		ProductCode:      req.ProductCode,
		RegistrationDate: now,
		LastModifiedDate: now,
	}
	applyProduct(p, req)
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	log.Printf("[PRODUCT] Created product %s", p.ProductCode)
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, productCode string) (*models.Product, error) {
	return s.store.GetProduct(ctx, productCode)
}

func (s *ProductService) List(ctx context.Context, page models.Page) ([]models.Product, error) {
	return s.store.ListProducts(ctx, page)
}

// Update rewrites every field except the code, which stays as addressed
func (s *ProductService) Update(ctx context.Context, productCode string, req models.ProductRequest) (*models.Product, error) {
	p, err := s.store.GetProduct(ctx, productCode)
	if err != nil {
		return nil, err
	}
	applyProduct(p, req)
	p.LastModifiedDate = s.now()

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, productCode string) error {
	if _, err := s.store.GetProduct(ctx, productCode); err != nil {
		return err
	}
	if err := s.validator.EnsureProductDeletable(ctx, productCode); err != nil {
		return err
	}
	if err := s.store.DeleteProduct(ctx, productCode); err != nil {
		return err
	}
	log.Printf("[PRODUCT] Deleted product %s", productCode)
	return nil
}

func applyProduct(p *models.Product, req models.ProductRequest) {
	p.ProductName = req.ProductName
	p.EligibleCustomerType = req.EligibleCustomerType
	p.TaxationCode = req.TaxationCode
	p.EligibleAge = req.EligibleAge
	p.BaseInterestRate = req.BaseInterestRate
	p.AdditionalInterestRate = req.AdditionalInterestRate
	p.AppliedInterestRate = req.AppliedInterestRate
}
