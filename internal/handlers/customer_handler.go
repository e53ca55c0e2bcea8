package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ruralpay/deposits/internal/config"
	"github.com/ruralpay/deposits/internal/models"
	"github.com/ruralpay/deposits/internal/services"
)

type CustomerHandler struct {
	service   *services.CustomerService
	validator *services.ValidationHelper
	cfg       *config.LedgerConfig
}

func NewCustomerHandler(service *services.CustomerService, cfg *config.LedgerConfig) *CustomerHandler {
	return &CustomerHandler{
		service:   service,
		validator: services.NewValidationHelper(),
		cfg:       cfg,
	}
}

func (h *CustomerHandler) Register(r chi.Router) {
	r.Post("/customers", h.Create)
	r.Get("/customers", h.List)
	r.Get("/customers/{customerID}", h.Get)
	r.Put("/customers/{customerID}", h.Update)
	r.Delete("/customers/{customerID}", h.Delete)
}

// Create registers a customer
// @Summary Create customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body models.CustomerRequest true "Customer"
// @Success 201 {object} models.Customer
// @Failure 400 {object} services.ErrorResponse
// @Router /customers [post]
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CustomerRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	customer, err := h.service.Create(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

// List returns customers in registration order
// @Summary List customers
// @Tags Customers
// @Produce json
// @Param skip query int false "Entries to skip"
// @Param limit query int false "Maximum entries"
// @Success 200 {array} models.Customer
// @Failure 400 {object} services.ErrorResponse
// @Router /customers [get]
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, h.cfg)
	if err != nil {
		respondError(w, r, err)
		return
	}
	customers, err := h.service.List(r.Context(), page)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

// Get returns a single customer
// @Summary Get customer
// @Tags Customers
// @Produce json
// @Param customerID path string true "Customer ID"
// @Success 200 {object} models.Customer
// @Failure 404 {object} services.ErrorResponse
// @Router /customers/{customerID} [get]
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	customer, err := h.service.Get(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// Update replaces a customer's fields
// @Summary Update customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param customerID path string true "Customer ID"
// @Param request body models.CustomerRequest true "Customer"
// @Success 200 {object} models.Customer
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /customers/{customerID} [put]
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.CustomerRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	customer, err := h.service.Update(r.Context(), chi.URLParam(r, "customerID"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// Delete removes a customer that owns no accounts
// @Summary Delete customer
// @Tags Customers
// @Produce json
// @Param customerID path string true "Customer ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /customers/{customerID} [delete]
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "customerID")); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Customer deleted successfully"})
}
