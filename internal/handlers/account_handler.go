package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ruralpay/deposits/internal/config"
	"github.com/ruralpay/deposits/internal/models"
	"github.com/ruralpay/deposits/internal/services"
)

type AccountHandler struct {
	accounts  *services.AccountService
	ledger    *services.LedgerService
	validator *services.ValidationHelper
	cfg       *config.LedgerConfig
}

func NewAccountHandler(accounts *services.AccountService, ledger *services.LedgerService, cfg *config.LedgerConfig) *AccountHandler {
	return &AccountHandler{
		accounts:  accounts,
		ledger:    ledger,
		validator: services.NewValidationHelper(),
		cfg:       cfg,
	}
}

func (h *AccountHandler) Register(r chi.Router) {
	r.Post("/accounts", h.Create)
	r.Get("/accounts", h.List)
	r.Get("/accounts/{accountNumber}", h.Get)
	r.Put("/accounts/{accountNumber}", h.Update)
	r.Delete("/accounts/{accountNumber}", h.Delete)
	r.Get("/accounts/{accountNumber}/transactions", h.Transactions)
	r.Get("/accounts/{accountNumber}/balance", h.Balance)
}

// Create opens an account with a generated account number
// @Summary Open account
// @Description Opens an account for an existing customer and product. The initial deposit must equal cash plus linked substitute amount. A 409 means the generated number collided and the request can be retried.
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body models.AccountRequest true "Account"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.AccountRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	account, err := h.accounts.Create(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// @Summary List accounts
// @Tags Accounts
// @Produce json
// @Param skip query int false "Entries to skip"
// @Param limit query int false "Maximum entries"
// @Success 200 {array} models.Account
// @Router /accounts [get]
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, h.cfg)
	if err != nil {
		respondError(w, r, err)
		return
	}
	accounts, err := h.accounts.List(r.Context(), page)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// @Summary Get account
// @Tags Accounts
// @Produce json
// @Param accountNumber path string true "Account number"
// @Success 200 {object} models.Account
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountNumber} [get]
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Get(r.Context(), chi.URLParam(r, "accountNumber"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// @Summary Update account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param accountNumber path string true "Account number"
// @Param request body models.AccountRequest true "Account"
// @Success 200 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountNumber} [put]
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.AccountRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	account, err := h.accounts.Update(r.Context(), chi.URLParam(r, "accountNumber"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// @Summary Delete account
// @Tags Accounts
// @Produce json
// @Param accountNumber path string true "Account number"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountNumber} [delete]
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Delete(r.Context(), chi.URLParam(r, "accountNumber")); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Account deleted successfully"})
}

// Transactions lists the ledger entries of one account
// @Summary List account transactions
// @Tags Accounts
// @Produce json
// @Param accountNumber path string true "Account number"
// @Param skip query int false "Entries to skip"
// @Param limit query int false "Maximum entries"
// @Success 200 {array} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountNumber}/transactions [get]
func (h *AccountHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, h.cfg)
	if err != nil {
		respondError(w, r, err)
		return
	}
	txns, err := h.ledger.ListAccountTransactions(r.Context(), chi.URLParam(r, "accountNumber"), page)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

// Balance returns the current derived balance. With reconcile=true the cached
// value is checked against the ledger and overwritten.
// @Summary Account balance
// @Tags Accounts
// @Produce json
// @Param accountNumber path string true "Account number"
// @Param reconcile query bool false "Re-derive from the ledger and report cache divergence"
// @Success 200 {object} models.Balance
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountNumber}/balance [get]
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	accountNumber := chi.URLParam(r, "accountNumber")

	if r.URL.Query().Get("reconcile") == "true" {
		rec, err := h.ledger.Reconcile(r.Context(), accountNumber)
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}

	balance, err := h.ledger.CurrentBalance(r.Context(), accountNumber)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}
