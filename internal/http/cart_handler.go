package http

import (
	"encoding/json"
	"net/http"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/domain"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type CartHandler struct {
	sessions *service.SessionManager
}

func NewCartHandler(sessions *service.SessionManager) *CartHandler {
	return &CartHandler{sessions: sessions}
}

type AddItemRequestDTO struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	MaxQuantity int             `json:"max_quantity"`
}

type UpdateQuantityRequestDTO struct {
	Delta int `json:"delta"`
}

// CartResponseDTO is the render projection: lines plus derived totals.
type CartResponseDTO struct {
	Lines  []domain.Line `json:"lines"`
	Totals domain.Totals `json:"totals"`
}

func (h *CartHandler) session(r *http.Request) *service.Session {
	return h.sessions.Get(r.Context(), sessionIDFromContext(r.Context()))
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)

	var resp CartResponseDTO
	if err := sess.Loop.Do(r.Context(), func() {
		resp = CartResponseDTO{Lines: sess.Cart.Lines(), Totals: sess.Cart.Totals()}
	}); err != nil {
		handleServiceError(w, "", err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *CartHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)

	var totals domain.Totals
	if err := sess.Loop.Do(r.Context(), func() {
		totals = sess.Cart.Totals()
	}); err != nil {
		handleServiceError(w, "", err)
		return
	}

	respondJSON(w, http.StatusOK, totals)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sess := h.session(r)

	var opErr error
	if err := sess.Loop.Do(r.Context(), func() {
		opErr = sess.Cart.Add(r.Context(), req.ProductID, req.Name, req.UnitPrice, req.Quantity, req.MaxQuantity)
	}); err != nil {
		handleServiceError(w, "", err)
		return
	}
	if opErr != nil {
		handleServiceError(w, "", opErr)
		return
	}

	h.respondCart(w, r, sess, http.StatusCreated)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sess := h.session(r)

	var opErr error
	if err := sess.Loop.Do(r.Context(), func() {
		opErr = sess.Cart.UpdateQuantity(r.Context(), productID, req.Delta)
	}); err != nil {
		handleServiceError(w, "", err)
		return
	}
	if opErr != nil {
		handleServiceError(w, "", opErr)
		return
	}

	h.respondCart(w, r, sess, http.StatusOK)
}

// Step serves the per-line +/- controls; a decrement below one is a no-op.
func (h *CartHandler) Step(delta int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID := chi.URLParam(r, "product_id")
		if productID == "" {
			respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
			return
		}

		sess := h.session(r)

		var opErr error
		if err := sess.Loop.Do(r.Context(), func() {
			opErr = sess.Cart.Step(r.Context(), productID, delta)
		}); err != nil {
			handleServiceError(w, "", err)
			return
		}
		if opErr != nil {
			handleServiceError(w, "", opErr)
			return
		}

		h.respondCart(w, r, sess, http.StatusOK)
	}
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	sess := h.session(r)

	var opErr error
	if err := sess.Loop.Do(r.Context(), func() {
		opErr = sess.Cart.Remove(r.Context(), productID)
	}); err != nil {
		handleServiceError(w, "", err)
		return
	}
	if opErr != nil {
		handleServiceError(w, "", opErr)
		return
	}

	h.respondCart(w, r, sess, http.StatusOK)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)

	if err := sess.Loop.Do(r.Context(), func() {
		sess.Cart.Clear(r.Context())
	}); err != nil {
		handleServiceError(w, "", err)
		return
	}

	h.respondCart(w, r, sess, http.StatusOK)
}

func (h *CartHandler) respondCart(w http.ResponseWriter, r *http.Request, sess *service.Session, status int) {
	var resp CartResponseDTO
	if err := sess.Loop.Do(r.Context(), func() {
		resp = CartResponseDTO{Lines: sess.Cart.Lines(), Totals: sess.Cart.Totals()}
	}); err != nil {
		handleServiceError(w, "", err)
		return
	}
	respondJSON(w, status, resp)
}
