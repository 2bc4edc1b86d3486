package http

import (
	"net/http"
	"time"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/auth"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/journal"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RouterConfig wires the handlers' collaborators.
type RouterConfig struct {
	Sessions       *service.SessionManager
	AuthStore      *auth.Store
	Journal        journal.Journal
	Catalog        Catalog
	LoginURL       string
	RequestTimeout time.Duration
}

// NewRouter builds the API surface for the POS session service.
func NewRouter(cfg RouterConfig) http.Handler {
	cart := NewCartHandler(cfg.Sessions)
	checkout := NewCheckoutHandler(cfg.Sessions, cfg.Journal, cfg.LoginURL)
	products := NewProductHandler(cfg.Catalog)
	authh := NewAuthHandler(cfg.AuthStore, cfg.LoginURL)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(SessionMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cart.GetCart)
			r.Delete("/", cart.ClearCart)
			r.Get("/totals", cart.GetTotals)
			r.Post("/items", cart.AddItem)
			r.Put("/items/{product_id}", cart.UpdateQuantity)
			r.Post("/items/{product_id}/increment", cart.Step(1))
			r.Post("/items/{product_id}/decrement", cart.Step(-1))
			r.Delete("/items/{product_id}", cart.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkout.Begin)
			r.Post("/verify", checkout.Verify)
			r.Get("/status", checkout.Status)
			r.Get("/attempts", checkout.RecentAttempts)
		})

		r.Get("/products", products.List)

		r.Route("/auth", func(r chi.Router) {
			r.Put("/credentials", authh.SetCredentials)
			r.Get("/whoami", authh.Whoami)
			r.Delete("/credentials", authh.Logout)
		})
	})

	return otelhttp.NewHandler(r, "pos-gateway")
}
