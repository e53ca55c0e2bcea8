package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount or running balance the ledger columns
// (NUMERIC(12,0)) can hold. Keep in step with the dlte bound on amount tags.
var MaxAmount = decimal.New(999999999999, 0)

// TransactionType is the direction of a ledger entry
type TransactionType int

const (
	TransactionTypeDeposit    TransactionType = 1
	TransactionTypeWithdrawal TransactionType = 2
)

func (t TransactionType) String() string {
	switch t {
	case TransactionTypeDeposit:
		return "DEPOSIT"
	case TransactionTypeWithdrawal:
		return "WITHDRAWAL"
	default:
		return "UNKNOWN"
	}
}

// Transaction is an immutable ledger entry carrying the running balance of
// its account after the entry was applied.
type Transaction struct {
	TransactionID           int64           `json:"transaction_id" db:"transaction_id"`
	AccountNumber           string          `json:"account_number" db:"account_number"`
	TransactionDate         time.Time       `json:"transaction_date" db:"transaction_date"`
	TransactionType         TransactionType `json:"transaction_type" db:"transaction_type"`
	TransactionAmount       decimal.Decimal `json:"transaction_amount" db:"transaction_amount"`
	BalanceAfterTransaction decimal.Decimal `json:"balance_after_transaction" db:"balance_after_transaction"`
	RegistrationDate        time.Time       `json:"registration_date" db:"registration_date"`
}

// TransactionRequest is the payload accepted on transaction create.
// BalanceAfterTransaction is tolerated for compatibility and always discarded.
type TransactionRequest struct {
	AccountNumber           string           `json:"account_number" validate:"required"`
	TransactionDate         time.Time        `json:"transaction_date" validate:"required"`
	TransactionType         TransactionType  `json:"transaction_type" validate:"required,oneof=1 2"`
	TransactionAmount       decimal.Decimal  `json:"transaction_amount" validate:"dgt=0,dlte=999999999999,dint"`
	BalanceAfterTransaction *decimal.Decimal `json:"balance_after_transaction,omitempty"`
}

// Balance is the derived balance of an account at a point in the ledger.
// TransactionID is zero when no entry has been posted yet.
type Balance struct {
	AccountNumber string          `json:"account_number"`
	TransactionID int64           `json:"transaction_id"`
	Balance       decimal.Decimal `json:"balance"`
}

// Reconciliation compares the cached balance of an account with the one
// derived from its ledger. The ledger value always wins.
type Reconciliation struct {
	Balance
	CachedBalance *decimal.Decimal `json:"cached_balance"`
	Diverged      bool             `json:"diverged"`
}
