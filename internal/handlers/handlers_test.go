package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralpay/deposits/internal/audit"
	"github.com/ruralpay/deposits/internal/config"
	"github.com/ruralpay/deposits/internal/models"
	"github.com/ruralpay/deposits/internal/services"
	"github.com/ruralpay/deposits/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.LedgerConfig{
		AccountNumberPrefix: "100",
		AccountNumberBase:   1000,
		PageDefaultLimit:    100,
		PageMaxLimit:        1000,
		SerializePostings:   true,
	}
	st := store.NewMemoryStore()
	ledger := services.NewLedgerService(st, nil, audit.NewAuditLoggerTo(log.New(io.Discard, "", 0)), nil, cfg)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		NewCustomerHandler(services.NewCustomerService(st), cfg).Register(r)
		NewProductHandler(services.NewProductService(st), cfg).Register(r)
		NewAccountHandler(services.NewAccountService(st, cfg), ledger, cfg).Register(r)
		NewTransactionHandler(ledger, cfg).Register(r)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return buf.String()
}

// seed creates a customer and the product 123456 and returns the customer id
func seed(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/api/v1/customers",
		`{"customer_name":"Kim Cheolsu","customer_type":1,"real_name_identification_number":"8505051234567"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	customer := decode[models.Customer](t, rr)

	rr = do(t, h, http.MethodPost, "/api/v1/products",
		`{"product_code":"123456","product_name":"Regular Savings","eligible_customer_type":1,"taxation_code":"1",
		  "base_interest_rate":"3.500","additional_interest_rate":"0.500","applied_interest_rate":"4.000"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return customer.CustomerID
}

func accountBody(t *testing.T, customerID string, initial, cash, linked int64) string {
	return mustJSON(t, map[string]any{
		"customer_id":                     customerID,
		"product_code":                    "123456",
		"real_name_identification_number": "8505051234567",
		"customer_type":                   1,
		"taxation_code":                   "1",
		"initial_deposit_amount":          initial,
		"passbook_exemption_flag":         false,
		"base_interest_rate":              "3.500",
		"additional_interest_rate":        "0.500",
		"applied_interest_rate":           "4.000",
		"account_password":                "1234",
		"cash_amount":                     cash,
		"linked_substitute_amount":        linked,
	})
}

func TestEndToEndOverHTTP(t *testing.T) {
	h := newTestRouter(t)
	customerID := seed(t, h)

	rr := do(t, h, http.MethodPost, "/api/v1/accounts", accountBody(t, customerID, 1000000, 1000000, 0))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	account := decode[models.Account](t, rr)
	assert.Equal(t, "100-0001000", account.AccountNumber)
	assert.True(t, account.InitialDepositAmount.Equal(decimal.NewFromInt(1000000)))

	rr = do(t, h, http.MethodPost, "/api/v1/transactions", `{"account_number":"100-0001000",
		"transaction_date":"2024-03-01T10:00:00Z","transaction_type":1,"transaction_amount":"500000",
		"balance_after_transaction":"1"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	deposit := decode[models.Transaction](t, rr)
	assert.True(t, deposit.BalanceAfterTransaction.Equal(decimal.NewFromInt(1500000)))
	assert.NotZero(t, deposit.TransactionID)

	rr = do(t, h, http.MethodPost, "/api/v1/transactions", `{"account_number":"100-0001000",
		"transaction_date":"2024-03-01T11:00:00Z","transaction_type":2,"transaction_amount":"2000000"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	failure := decode[services.ErrorResponse](t, rr)
	assert.Equal(t, "insufficient_funds", failure.Code)
	assert.Equal(t, "Insufficient funds", failure.Error)

	rr = do(t, h, http.MethodGet, "/api/v1/accounts/100-0001000/transactions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	txns := decode[[]models.Transaction](t, rr)
	require.Len(t, txns, 1)
	assert.True(t, txns[0].BalanceAfterTransaction.Equal(decimal.NewFromInt(1500000)))

	rr = do(t, h, http.MethodGet, "/api/v1/accounts/100-0001000/balance", "")
	require.Equal(t, http.StatusOK, rr.Code)
	balance := decode[models.Balance](t, rr)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(1500000)))
	assert.Equal(t, deposit.TransactionID, balance.TransactionID)

	rr = do(t, h, http.MethodGet, "/api/v1/accounts/100-0001000/balance?reconcile=true", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rec := decode[models.Reconciliation](t, rr)
	assert.False(t, rec.Diverged)
	assert.Nil(t, rec.CachedBalance)
}

func TestErrorMapping(t *testing.T) {
	h := newTestRouter(t)
	customerID := seed(t, h)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"missing customer", http.MethodGet, "/api/v1/customers/nope", "", http.StatusNotFound, "not_found"},
		{"missing product", http.MethodGet, "/api/v1/products/000000", "", http.StatusNotFound, "not_found"},
		{"missing account", http.MethodGet, "/api/v1/accounts/100-0009999", "", http.StatusNotFound, "not_found"},
		{"missing transaction", http.MethodGet, "/api/v1/transactions/99", "", http.StatusNotFound, "not_found"},
		{"non-numeric transaction id", http.MethodGet, "/api/v1/transactions/abc", "", http.StatusBadRequest, "validation_error"},
		{"duplicate product", http.MethodPost, "/api/v1/products",
			`{"product_code":"123456","product_name":"Again","eligible_customer_type":1,"taxation_code":"1",
			  "base_interest_rate":"1","additional_interest_rate":"0","applied_interest_rate":"1"}`,
			http.StatusConflict, "duplicate_key"},
		{"deposit composition", http.MethodPost, "/api/v1/accounts", accountBody(t, customerID, 1000, 500, 400),
			http.StatusBadRequest, "invariant_violation"},
		{"account for missing customer", http.MethodPost, "/api/v1/accounts", accountBody(t, "ghost", 1000, 1000, 0),
			http.StatusNotFound, "not_found"},
		{"customer with accounts", http.MethodDelete, "/api/v1/customers/" + customerID, "",
			http.StatusBadRequest, "has_dependents"},
		{"rate out of range", http.MethodPost, "/api/v1/products",
			`{"product_code":"654321","product_name":"Bad","eligible_customer_type":1,"taxation_code":"1",
			  "base_interest_rate":"100.5","additional_interest_rate":"0","applied_interest_rate":"1"}`,
			http.StatusBadRequest, "validation_error"},
		{"zero amount", http.MethodPost, "/api/v1/transactions",
			`{"account_number":"100-0001000","transaction_date":"2024-03-01T10:00:00Z","transaction_type":1,"transaction_amount":"0"}`,
			http.StatusBadRequest, "validation_error"},
		{"unknown field", http.MethodPost, "/api/v1/customers",
			`{"customer_name":"X","customer_type":1,"real_name_identification_number":"8505051234567","vip":true}`,
			http.StatusBadRequest, "validation_error"},
		{"two objects", http.MethodPost, "/api/v1/customers",
			`{"customer_name":"X","customer_type":1,"real_name_identification_number":"8505051234567"}{}`,
			http.StatusBadRequest, "validation_error"},
		{"negative skip", http.MethodGet, "/api/v1/customers?skip=-1", "", http.StatusBadRequest, "validation_error"},
		{"thirteen digit amount", http.MethodPost, "/api/v1/transactions",
			`{"account_number":"100-0001000","transaction_date":"2024-03-01T10:00:00Z","transaction_type":1,"transaction_amount":"10000000000000"}`,
			http.StatusBadRequest, "validation_error"},
		{"thirteen digit opening deposit", http.MethodPost, "/api/v1/accounts",
			accountBody(t, customerID, 10000000000000, 10000000000000, 0),
			http.StatusBadRequest, "validation_error"},
		{"deposit past the balance limit", http.MethodPost, "/api/v1/transactions",
			`{"account_number":"100-0001000","transaction_date":"2024-03-01T10:00:00Z","transaction_type":1,"transaction_amount":"999999999999"}`,
			http.StatusBadRequest, "validation_error"},
	}

	// the has_dependents case needs an account to exist
	rr := do(t, h, http.MethodPost, "/api/v1/accounts", accountBody(t, customerID, 1000, 1000, 0))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			resp := decode[services.ErrorResponse](t, rr)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestDeleteFlow(t *testing.T) {
	h := newTestRouter(t)
	customerID := seed(t, h)

	rr := do(t, h, http.MethodPost, "/api/v1/accounts", accountBody(t, customerID, 1000, 1000, 0))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/v1/transactions",
		`{"account_number":"100-0001000","transaction_date":"2024-03-01T10:00:00Z","transaction_type":2,"transaction_amount":"300"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	txn := decode[models.Transaction](t, rr)

	rr = do(t, h, http.MethodDelete, "/api/v1/accounts/100-0001000", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Cannot delete account with existing transactions", decode[services.ErrorResponse](t, rr).Error)

	rr = do(t, h, http.MethodDelete, "/api/v1/transactions/"+strconv.FormatInt(txn.TransactionID, 10), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Transaction deleted successfully", decode[MessageResponse](t, rr).Message)

	for _, path := range []string{"/api/v1/accounts/100-0001000", "/api/v1/customers/" + customerID, "/api/v1/products/123456"} {
		rr = do(t, h, http.MethodDelete, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
		rr = do(t, h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
	}
}

func TestListPagination(t *testing.T) {
	h := newTestRouter(t)
	customerID := seed(t, h)

	for i := 0; i < 3; i++ {
		rr := do(t, h, http.MethodPost, "/api/v1/accounts", accountBody(t, customerID, 1000, 1000, 0))
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := do(t, h, http.MethodGet, "/api/v1/accounts?skip=1&limit=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	accounts := decode[[]models.Account](t, rr)
	require.Len(t, accounts, 1)
	assert.Equal(t, "100-0001001", accounts[0].AccountNumber)

	rr = do(t, h, http.MethodGet, "/api/v1/accounts?limit=5000", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]models.Account](t, rr), 3)

	rr = do(t, h, http.MethodGet, "/api/v1/transactions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestParsePage(t *testing.T) {
	cfg := &config.LedgerConfig{PageDefaultLimit: 100, PageMaxLimit: 1000}

	page, err := parsePage(httptest.NewRequest(http.MethodGet, "/x", nil), cfg)
	require.NoError(t, err)
	assert.Equal(t, models.Page{Skip: 0, Limit: 100}, page)

	page, err = parsePage(httptest.NewRequest(http.MethodGet, "/x?skip=20&limit=0", nil), cfg)
	require.NoError(t, err)
	assert.Equal(t, models.Page{Skip: 20, Limit: 0}, page)

	page, err = parsePage(httptest.NewRequest(http.MethodGet, "/x?limit=99999", nil), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1000, page.Limit)

	_, err = parsePage(httptest.NewRequest(http.MethodGet, "/x?limit=ten", nil), cfg)
	assert.Error(t, err)
}
