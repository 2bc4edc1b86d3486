package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate is the flat sales tax applied to the cart subtotal.
var TaxRate = decimal.NewFromFloat(0.10)

// DefaultLineName is used when a product is added without a display name.
const DefaultLineName = "Product"

// Line is one product's presence in the cart.
type Line struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	MaxQuantity int             `json:"max_quantity,omitempty"` // 0 means unbounded
	AddedAt     time.Time       `json:"added_at"`
}

// Subtotal returns quantity * unit price for this line.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds the session's line items in insertion order.
// Keys are unique per product; order matters only for rendering.
type Cart struct {
	SessionID string    `json:"session_id"`
	Lines     []Line    `json:"lines"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Totals is a derived read over the cart, never stored.
type Totals struct {
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Find returns a pointer to the line for productID, or nil.
func (c *Cart) Find(productID string) *Line {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

// Totals computes item count, subtotal, tax and total over surviving lines.
func (c *Cart) Totals() Totals {
	t := Totals{
		Subtotal: decimal.Zero,
	}
	for _, l := range c.Lines {
		t.ItemCount += l.Quantity
		t.Subtotal = t.Subtotal.Add(l.Subtotal())
	}
	t.Tax = t.Subtotal.Mul(TaxRate)
	t.Total = t.Subtotal.Add(t.Tax)
	return t
}

// Clone returns a deep copy, used to snapshot the cart at checkout time.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Lines = make([]Line, len(c.Lines))
	copy(cp.Lines, c.Lines)
	return &cp
}
