package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/ruralpay/deposits/internal/config"
	"github.com/ruralpay/deposits/internal/models"
	"github.com/ruralpay/deposits/internal/services"
)

const maxBodyBytes = 1_048_576

// MessageResponse is returned by delete endpoints
type MessageResponse struct {
	Message string `json:"message"`
}

// decodeBody reads a single JSON object into dst and runs struct validation.
// It writes the error response itself and reports false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, validator *services.ValidationHelper, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		log.Printf("[HTTP] %s %s - Decode error: %v", r.Method, r.URL.Path, err)
		services.SendCodedErrorResponse(w, "Invalid request body", "validation_error", http.StatusBadRequest)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendCodedErrorResponse(w, "Request body must only contain a single JSON object", "validation_error", http.StatusBadRequest)
		return false
	}

	if err := validator.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// statusFor maps a domain error kind onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, models.ErrHasDependents),
		errors.Is(err, models.ErrInvariantViolation),
		errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[HTTP] %s %s - %v", r.Method, r.URL.Path, err)
		message = "Internal server error"
	}
	services.SendCodedErrorResponse(w, message, models.Code(err), status)
}

// parsePage reads skip and limit from the query string. A missing limit takes
// the configured default and a larger one is clamped to the maximum.
func parsePage(r *http.Request, cfg *config.LedgerConfig) (models.Page, error) {
	page := models.Page{Skip: 0, Limit: cfg.PageDefaultLimit}

	if raw := r.URL.Query().Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return page, models.NewValidation("skip must be a non-negative integer")
		}
		page.Skip = skip
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return page, models.NewValidation("limit must be a non-negative integer")
		}
		page.Limit = limit
	}
	if page.Limit > cfg.PageMaxLimit {
		page.Limit = cfg.PageMaxLimit
	}
	return page, nil
}
