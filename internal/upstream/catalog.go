package upstream

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// StockItem is one stock entry of a product as the remote API reports it.
type StockItem struct {
	RemainingQuantity int             `json:"remaining_quantity"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	AddedDate         time.Time       `json:"added_date"`
}

// Product is a catalog entry with its nested stock items.
type Product struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image,omitempty"`
	StockItems  []StockItem `json:"stock_items,omitempty"`
}

// RemainingQuantity sums the remaining stock across all entries. This is the
// max_quantity bound the cart enforces at add-time.
func (p Product) RemainingQuantity() int {
	total := 0
	for _, s := range p.StockItems {
		total += s.RemainingQuantity
	}
	return total
}

// SellingPrice is the price of the first stock entry, zero when none exist.
// The product grid prices from the first entry; batches are consumed oldest
// first upstream, so the first entry is the one a sale draws from.
func (p Product) SellingPrice() decimal.Decimal {
	if len(p.StockItems) == 0 {
		return decimal.Zero
	}
	return p.StockItems[0].SellingPrice
}

type listProductsResponse struct {
	Status   bool      `json:"status"`
	Message  string    `json:"message,omitempty"`
	Products []Product `json:"products"`
}

type getProductResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
	Product
}

// CatalogClient reads the product catalog. Detail lookups are deduplicated
// with singleflight so a burst of sessions rendering the same grid does not
// fan duplicate requests upstream.
type CatalogClient struct {
	baseURL string
	http    *http.Client
	sfg     singleflight.Group
}

func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		baseURL: baseURL,
		http: &http.Client{
			Transport: NewTransport("catalog-api", nil),
		},
	}
}

// List returns the product name listing from GET /product.
func (c *CatalogClient) List(ctx context.Context) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/product", nil)
	if err != nil {
		return nil, fmt.Errorf("build list request failed: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list products call failed: %w", err)
	}
	defer resp.Body.Close()

	var out listProductsResponse
	if err2 := decodeOrFail(resp, &out, &out.Status, &out.Message); err2 != nil {
		return nil, err2
	}
	return out.Products, nil
}

// Get fetches one product by name, with its stock items resolved.
func (c *CatalogClient) Get(ctx context.Context, name string) (*Product, error) {
	v, err, _ := c.sfg.Do(name, func() (interface{}, error) {
		u := fmt.Sprintf("%s/product/product?name=%s", c.baseURL, url.QueryEscape(name))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("build get request failed: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("get product call failed: %w", err)
		}
		defer resp.Body.Close()

		var out getProductResponse
		if err2 := decodeOrFail(resp, &out, &out.Status, &out.Message); err2 != nil {
			return nil, err2
		}
		return &out.Product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Product), nil
}

// Available lists products that still have stock, with remaining quantity
// and selling price resolved the way the sales grid shows them. A product
// whose detail fetch fails is skipped, not fatal; the grid renders the rest.
func (c *CatalogClient) Available(ctx context.Context) ([]Product, error) {
	listed, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Product, 0, len(listed))
	for _, p := range listed {
		detail, err := c.Get(ctx, p.Name)
		if err != nil {
			log.Printf("product detail fetch failed for %q: %v", p.Name, err)
			continue
		}
		if detail.RemainingQuantity() <= 0 {
			continue
		}
		out = append(out, *detail)
	}
	return out, nil
}
