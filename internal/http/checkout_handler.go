package http

import (
	"net/http"
	"strconv"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/journal"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/service"
)

type CheckoutHandler struct {
	sessions *service.SessionManager
	journal  journal.Journal
	loginURL string
}

func NewCheckoutHandler(sessions *service.SessionManager, jnl journal.Journal, loginURL string) *CheckoutHandler {
	return &CheckoutHandler{
		sessions: sessions,
		journal:  jnl,
		loginURL: loginURL,
	}
}

// Begin submits the current cart as a sale. The response carries the
// reference(s) the client must verify next.
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Get(r.Context(), sessionIDFromContext(r.Context()))

	result, err := sess.Checkout.Begin(r.Context())
	if err != nil {
		handleServiceError(w, h.loginURL, err)
		return
	}

	respondJSON(w, http.StatusAccepted, result)
}

// Verify checks payment for the in-flight attempt's reference(s).
func (h *CheckoutHandler) Verify(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Get(r.Context(), sessionIDFromContext(r.Context()))

	result, err := sess.Checkout.Verify(r.Context())
	if err != nil {
		handleServiceError(w, h.loginURL, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Status reports the state machine position plus the last result, the way
// the page reads its own projection.
func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Get(r.Context(), sessionIDFromContext(r.Context()))

	st, err := sess.Checkout.State(r.Context())
	if err != nil {
		handleServiceError(w, h.loginURL, err)
		return
	}

	respondJSON(w, http.StatusOK, st)
}

// RecentAttempts feeds the report dashboard from the checkout journal.
func (h *CheckoutHandler) RecentAttempts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	entries, err := h.journal.RecentAttempts(r.Context(), limit)
	if err != nil {
		handleServiceError(w, h.loginURL, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}

	respondJSON(w, http.StatusOK, entries)
}
