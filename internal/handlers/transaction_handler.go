package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ruralpay/deposits/internal/config"
	"github.com/ruralpay/deposits/internal/models"
	"github.com/ruralpay/deposits/internal/services"
)

type TransactionHandler struct {
	ledger    *services.LedgerService
	validator *services.ValidationHelper
	cfg       *config.LedgerConfig
}

func NewTransactionHandler(ledger *services.LedgerService, cfg *config.LedgerConfig) *TransactionHandler {
	return &TransactionHandler{
		ledger:    ledger,
		validator: services.NewValidationHelper(),
		cfg:       cfg,
	}
}

func (h *TransactionHandler) Register(r chi.Router) {
	r.Post("/transactions", h.Create)
	r.Get("/transactions", h.List)
	r.Get("/transactions/{transactionID}", h.Get)
	r.Delete("/transactions/{transactionID}", h.Delete)
}

// Create posts a deposit or withdrawal
// @Summary Post transaction
// @Description Derives the prior balance from the latest entry (or the initial deposit), applies the amount and stores a new entry. Any balance_after_transaction in the request is ignored.
// @Tags Transactions
// @Accept json
// @Produce json
// @Param request body models.TransactionRequest true "Transaction"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions [post]
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.TransactionRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	log.Printf("[TRANSACTION] Create - account=%s, type=%s, amount=%s", req.AccountNumber, req.TransactionType, req.TransactionAmount)

	txn, err := h.ledger.Post(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

// @Summary List transactions
// @Tags Transactions
// @Produce json
// @Param skip query int false "Entries to skip"
// @Param limit query int false "Maximum entries"
// @Success 200 {array} models.Transaction
// @Router /transactions [get]
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, h.cfg)
	if err != nil {
		respondError(w, r, err)
		return
	}
	txns, err := h.ledger.ListTransactions(r.Context(), page)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

// @Summary Get transaction
// @Tags Transactions
// @Produce json
// @Param transactionID path int true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{transactionID} [get]
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	txn, err := h.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// Delete removes one entry without recomputing later balances
// @Summary Delete transaction
// @Tags Transactions
// @Produce json
// @Param transactionID path int true "Transaction ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{transactionID} [delete]
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.ledger.DeleteTransaction(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Transaction deleted successfully"})
}

func transactionID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "transactionID"), 10, 64)
	if err != nil {
		return 0, models.NewValidation("transaction id must be an integer")
	}
	return id, nil
}
