package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/service"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/upstream"
)

type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps the service error taxonomy onto HTTP statuses:
// validation failures are 400s, auth gaps are 401 with the login entry
// point, conflicts on the single in-flight attempt are 409, and upstream
// rejections surface the server-provided message behind a 502.
func handleServiceError(w http.ResponseWriter, loginURL string, err error) {
	var apiErr *upstream.APIError
	switch {
	case errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidPrice):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, service.ErrStockExceeded):
		respondError(w, http.StatusBadRequest, "stock_exceeded", err.Error())
	case errors.Is(err, service.ErrLineNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, service.ErrNotAuthenticated):
		respondJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:      err.Error(),
			Code:       "unauthenticated",
			RedirectTo: loginURL,
		})
	case errors.Is(err, service.ErrAttemptInFlight):
		respondError(w, http.StatusConflict, "attempt_in_flight", err.Error())
	case errors.Is(err, service.ErrNoAttempt):
		respondError(w, http.StatusConflict, "no_attempt", err.Error())
	case errors.As(err, &apiErr):
		respondError(w, http.StatusBadGateway, "upstream_rejected", apiErr.Error())
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
