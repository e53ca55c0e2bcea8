package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ruralpay/deposits/internal/config"
	"github.com/ruralpay/deposits/internal/models"
	"github.com/ruralpay/deposits/internal/services"
)

type ProductHandler struct {
	service   *services.ProductService
	validator *services.ValidationHelper
	cfg       *config.LedgerConfig
}

func NewProductHandler(service *services.ProductService, cfg *config.LedgerConfig) *ProductHandler {
	return &ProductHandler{
		service:   service,
		validator: services.NewValidationHelper(),
		cfg:       cfg,
	}
}

func (h *ProductHandler) Register(r chi.Router) {
	r.Post("/products", h.Create)
	r.Get("/products", h.List)
	r.Get("/products/{productCode}", h.Get)
	r.Put("/products/{productCode}", h.Update)
	r.Delete("/products/{productCode}", h.Delete)
}

// Create registers a deposit product
// @Summary Create product
// @Tags Products
// @Accept json
// @Produce json
// @Param request body models.ProductRequest true "Product"
// @Success 201 {object} models.Product
// @Failure 400 {object} services.ErrorResponse
// @Router /products [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.ProductRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	product, err := h.service.Create(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// List returns products in registration order
// @Summary List products
// @Tags Products
// @Produce json
// @Param skip query int false "Entries to skip"
// @Param limit query int false "Maximum entries"
// @Success 200 {array} models.Product
// @Failure 400 {object} services.ErrorResponse
// @Router /products [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, h.cfg)
	if err != nil {
		respondError(w, r, err)
		return
	}
	products, err := h.service.List(r.Context(), page)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// Get returns a single product
// @Summary Get product
// @Tags Products
// @Produce json
// @Param productCode path string true "Product code"
// @Success 200 {object} models.Product
// @Failure 404 {object} services.ErrorResponse
// @Router /products/{productCode} [get]
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Get(r.Context(), chi.URLParam(r, "productCode"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// Update replaces every field except the product code
// @Summary Update product
// @Tags Products
// @Accept json
// @Produce json
// @Param productCode path string true "Product code"
// @Param request body models.ProductRequest true "Product"
// @Success 200 {object} models.Product
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /products/{productCode} [put]
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.ProductRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	product, err := h.service.Update(r.Context(), chi.URLParam(r, "productCode"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// Delete removes a product no account is opened on
// @Summary Delete product
// @Tags Products
// @Produce json
// @Param productCode path string true "Product code"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /products/{productCode} [delete]
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "productCode")); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Product deleted successfully"})
}
