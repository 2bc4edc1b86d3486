package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/auth"
)

type AuthHandler struct {
	store    *auth.Store
	loginURL string
}

func NewAuthHandler(store *auth.Store, loginURL string) *AuthHandler {
	return &AuthHandler{store: store, loginURL: loginURL}
}

// SetCredentials stores the token pair the login flow obtained upstream.
// Token contents stay opaque; decoding is the issuer's business.
func (h *AuthHandler) SetCredentials(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if creds.AccessToken == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "access_token is required")
		return
	}

	sessionID := sessionIDFromContext(r.Context())
	if err := h.store.Set(r.Context(), sessionID, &creds); err != nil {
		handleServiceError(w, h.loginURL, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Whoami returns the stored identity fields, or 401 with the login entry
// point when the session has no credential.
func (h *AuthHandler) Whoami(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFromContext(r.Context())

	creds, err := h.store.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, auth.ErrNoCredential) {
			respondJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:      err.Error(),
				Code:       "unauthenticated",
				RedirectTo: h.loginURL,
			})
			return
		}
		handleServiceError(w, h.loginURL, err)
		return
	}

	// never echo raw tokens back out
	respondJSON(w, http.StatusOK, map[string]string{
		"role":    creds.Role,
		"email":   creds.Email,
		"user_id": creds.UserID,
	})
}

// Logout removes the stored credentials for the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFromContext(r.Context())
	if err := h.store.Clear(r.Context(), sessionID); err != nil {
		handleServiceError(w, h.loginURL, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
