package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

type AuditEvent struct {
	Timestamp     time.Time        `json:"timestamp"`
	EventType     string           `json:"event_type"`
	TransactionID int64            `json:"transaction_id,omitempty"`
	AccountNumber string           `json:"account_number"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Status        string           `json:"status"`
	Details       any              `json:"details,omitempty"`
}

// AuditLogger writes one JSON line per ledger event.
type AuditLogger struct {
	out *log.Logger
}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{out: log.Default()}
}

// NewAuditLoggerTo writes events to the given logger instead of the default one.
func NewAuditLoggerTo(out *log.Logger) *AuditLogger {
	return &AuditLogger{out: out}
}

func (a *AuditLogger) LogPosting(transactionID int64, accountNumber, txType string, amount, balance decimal.Decimal) {
	event := AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "POSTED",
		TransactionID: transactionID,
		AccountNumber: accountNumber,
		Amount:        &amount,
		Status:        "SUCCESS",
		Details: map[string]string{
			"transaction_type":          txType,
			"balance_after_transaction": balance.String(),
		},
	}
	a.log(event)
}

func (a *AuditLogger) LogRejection(accountNumber, txType string, amount decimal.Decimal, err error) {
	event := AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "REJECTED",
		AccountNumber: accountNumber,
		Amount:        &amount,
		Status:        "FAILED",
		Details: map[string]string{
			"transaction_type": txType,
			"error":            err.Error(),
		},
	}
	a.log(event)
}

func (a *AuditLogger) LogDeletion(transactionID int64, accountNumber string) {
	event := AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "DELETED",
		TransactionID: transactionID,
		AccountNumber: accountNumber,
		Status:        "SUCCESS",
	}
	a.log(event)
}

func (a *AuditLogger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	a.out.Printf("AUDIT: %s", string(data))
}
