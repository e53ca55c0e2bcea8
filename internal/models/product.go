package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a deposit product. Interest rates are percentages with three
// fractional digits; they are stored and copied onto accounts but never applied.
type Product struct {
	ProductCode            string          `json:"product_code" db:"product_code"`
	ProductName            string          `json:"product_name" db:"product_name"`
	EligibleCustomerType   CustomerType    `json:"eligible_customer_type" db:"eligible_customer_type"`
	TaxationCode           string          `json:"taxation_code" db:"taxation_code"`
	EligibleAge            *int            `json:"eligible_age" db:"eligible_age"`
	BaseInterestRate       decimal.Decimal `json:"base_interest_rate" db:"base_interest_rate"`
	AdditionalInterestRate decimal.Decimal `json:"additional_interest_rate" db:"additional_interest_rate"`
	AppliedInterestRate    decimal.Decimal `json:"applied_interest_rate" db:"applied_interest_rate"`
	RegistrationDate       time.Time       `json:"registration_date" db:"registration_date"`
	LastModifiedDate       time.Time       `json:"last_modified_date" db:"last_modified_date"`
}

// ProductRequest is the payload accepted on product create and update.
// ProductCode is ignored on update; the path identifies the product.
type ProductRequest struct {
	ProductCode            string          `json:"product_code" validate:"required,len=6"`
	ProductName            string          `json:"product_name" validate:"required,max=100"`
	EligibleCustomerType   CustomerType    `json:"eligible_customer_type" validate:"required,oneof=1 2"`
	TaxationCode           string          `json:"taxation_code" validate:"required,len=1"`
	EligibleAge            *int            `json:"eligible_age" validate:"omitempty,gte=0,lte=150"`
	BaseInterestRate       decimal.Decimal `json:"base_interest_rate" validate:"dgte=0,dlte=100,dscale=3"`
	AdditionalInterestRate decimal.Decimal `json:"additional_interest_rate" validate:"dgte=0,dlte=100,dscale=3"`
	AppliedInterestRate    decimal.Decimal `json:"applied_interest_rate" validate:"dgte=0,dlte=100,dscale=3"`
}
