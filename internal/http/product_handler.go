package http

import (
	"context"
	"net/http"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/upstream"
	"github.com/shopspring/decimal"
)

// Catalog is the product listing surface the grid renders from.
type Catalog interface {
	Available(ctx context.Context) ([]upstream.Product, error)
}

type ProductHandler struct {
	catalog Catalog
}

func NewProductHandler(catalog Catalog) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// ProductDTO is a grid entry: catalog fields plus the derived stock bound
// and price the add-to-cart control uses.
type ProductDTO struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Image             string          `json:"image,omitempty"`
	RemainingQuantity int             `json:"remaining_quantity"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Available(r.Context())
	if err != nil {
		handleServiceError(w, "", err)
		return
	}

	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, ProductDTO{
			ID:                p.ID,
			Name:              p.Name,
			Description:       p.Description,
			Image:             p.Image,
			RemainingQuantity: p.RemainingQuantity(),
			SellingPrice:      p.SellingPrice(),
		})
	}

	respondJSON(w, http.StatusOK, out)
}
