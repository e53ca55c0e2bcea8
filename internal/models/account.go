package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a deposit account. The owner's identification number and type and
// the product's taxation and rate fields are copied from the customer and
// product when the account is written (see Snapshot); later customer or
// product edits are not propagated.
//
// The current balance is not stored here. It is derived from the ledger.
type Account struct {
	AccountNumber                 string          `json:"account_number" db:"account_number"`
	CustomerID                    string          `json:"customer_id" db:"customer_id"`
	ProductCode                   string          `json:"product_code" db:"product_code"`
	RealNameIdentificationNumber  string          `json:"real_name_identification_number" db:"real_name_identification_number"`
	CustomerType                  CustomerType    `json:"customer_type" db:"customer_type"`
	TaxationCode                  string          `json:"taxation_code" db:"taxation_code"`
	InitialDepositAmount          decimal.Decimal `json:"initial_deposit_amount" db:"initial_deposit_amount"`
	PassbookExemptionFlag         bool            `json:"passbook_exemption_flag" db:"passbook_exemption_flag"`
	BaseInterestRate              decimal.Decimal `json:"base_interest_rate" db:"base_interest_rate"`
	AdditionalInterestRate        decimal.Decimal `json:"additional_interest_rate" db:"additional_interest_rate"`
	AppliedInterestRate           decimal.Decimal `json:"applied_interest_rate" db:"applied_interest_rate"`
	AccountPassword               string          `json:"account_password" db:"account_password"`
	CashAmount                    decimal.Decimal `json:"cash_amount" db:"cash_amount"`
	LinkedSubstituteAmount        decimal.Decimal `json:"linked_substitute_amount" db:"linked_substitute_amount"`
	LinkedSubstituteAccountNumber *string         `json:"linked_substitute_account_number" db:"linked_substitute_account_number"`
	AccountOpeningDate            time.Time       `json:"account_opening_date" db:"account_opening_date"`
	LastModifiedDate              time.Time       `json:"last_modified_date" db:"last_modified_date"`
}

// AccountRequest is the payload accepted on account create and update. The
// owner and product fields it carries are overwritten by Snapshot.
type AccountRequest struct {
	CustomerID                    string          `json:"customer_id" validate:"required"`
	ProductCode                   string          `json:"product_code" validate:"required,len=6"`
	RealNameIdentificationNumber  string          `json:"real_name_identification_number" validate:"omitempty,len=13"`
	CustomerType                  CustomerType    `json:"customer_type" validate:"omitempty,oneof=1 2"`
	TaxationCode                  string          `json:"taxation_code" validate:"omitempty,len=1"`
	InitialDepositAmount          decimal.Decimal `json:"initial_deposit_amount" validate:"dgte=0,dlte=999999999999,dint"`
	PassbookExemptionFlag         bool            `json:"passbook_exemption_flag"`
	BaseInterestRate              decimal.Decimal `json:"base_interest_rate" validate:"dgte=0,dlte=100,dscale=3"`
	AdditionalInterestRate        decimal.Decimal `json:"additional_interest_rate" validate:"dgte=0,dlte=100,dscale=3"`
	AppliedInterestRate           decimal.Decimal `json:"applied_interest_rate" validate:"dgte=0,dlte=100,dscale=3"`
	AccountPassword               string          `json:"account_password" validate:"required,len=4"`
	CashAmount                    decimal.Decimal `json:"cash_amount" validate:"dgte=0,dlte=999999999999,dint"`
	LinkedSubstituteAmount        decimal.Decimal `json:"linked_substitute_amount" validate:"dgte=0,dlte=999999999999,dint"`
	LinkedSubstituteAccountNumber *string         `json:"linked_substitute_account_number" validate:"omitempty,len=10"`
}

// Apply copies the request fields onto the account, leaving identity and
// timestamps untouched.
func (r AccountRequest) Apply(a *Account) {
	a.CustomerID = r.CustomerID
	a.ProductCode = r.ProductCode
	a.RealNameIdentificationNumber = r.RealNameIdentificationNumber
	a.CustomerType = r.CustomerType
	a.TaxationCode = r.TaxationCode
	a.InitialDepositAmount = r.InitialDepositAmount
	a.PassbookExemptionFlag = r.PassbookExemptionFlag
	a.BaseInterestRate = r.BaseInterestRate
	a.AdditionalInterestRate = r.AdditionalInterestRate
	a.AppliedInterestRate = r.AppliedInterestRate
	a.AccountPassword = r.AccountPassword
	a.CashAmount = r.CashAmount
	a.LinkedSubstituteAmount = r.LinkedSubstituteAmount
	a.LinkedSubstituteAccountNumber = r.LinkedSubstituteAccountNumber
}

// Snapshot copies the owner's identity fields and the product's taxation and
// rate fields onto the account.
func (a *Account) Snapshot(c *Customer, p *Product) {
	a.RealNameIdentificationNumber = c.RealNameIdentificationNumber
	a.CustomerType = c.CustomerType
	a.TaxationCode = p.TaxationCode
	a.BaseInterestRate = p.BaseInterestRate
	a.AdditionalInterestRate = p.AdditionalInterestRate
	a.AppliedInterestRate = p.AppliedInterestRate
}
