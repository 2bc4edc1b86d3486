package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CheckoutStatus string

const (
	CheckoutStatusIdle                 CheckoutStatus = "IDLE"
	CheckoutStatusSubmitting           CheckoutStatus = "SUBMITTING"
	CheckoutStatusAwaitingVerification CheckoutStatus = "AWAITING_VERIFICATION"
	CheckoutStatusVerified             CheckoutStatus = "VERIFIED"
	CheckoutStatusFailed               CheckoutStatus = "FAILED"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusVerified || s == CheckoutStatusFailed
}

// InFlight reports whether a checkout attempt is currently being processed.
// The triggering controls stay disabled while this is true.
func (s CheckoutStatus) InFlight() bool {
	return s == CheckoutStatusSubmitting || s == CheckoutStatusAwaitingVerification
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

// CanTransitionTo encodes the legal moves of the checkout state machine.
func CanTransitionTo(from, to CheckoutStatus) bool {
	switch from {
	case CheckoutStatusIdle:
		return to == CheckoutStatusSubmitting
	case CheckoutStatusSubmitting:
		return to == CheckoutStatusAwaitingVerification || to == CheckoutStatusFailed
	case CheckoutStatusAwaitingVerification:
		return to == CheckoutStatusVerified || to == CheckoutStatusFailed
	case CheckoutStatusFailed:
		// A fresh attempt starts over with whatever is in the cart, or a
		// failed verification is retried against the recorded references.
		return to == CheckoutStatusSubmitting || to == CheckoutStatusIdle ||
			to == CheckoutStatusAwaitingVerification
	case CheckoutStatusVerified:
		return to == CheckoutStatusIdle
	}
	return false
}

// SaleItem is one line of an outbound sale creation request.
type SaleItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// SaleResult is the server-assigned outcome for one created sale.
type SaleResult struct {
	SaleID      string          `json:"sale_id"`
	ProductID   string          `json:"product_id"`
	Quantity    int             `json:"quantity"`
	Reference   string          `json:"reference"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// CheckoutResult is what one attempt produced: the reference(s) awaiting
// verification plus the per-sale results returned by the remote service.
type CheckoutResult struct {
	AttemptID   string          `json:"attempt_id"`
	References  []string        `json:"references"`
	Sales       []SaleResult    `json:"sales"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	SubmittedAt time.Time       `json:"submitted_at"`
	VerifiedAt  *time.Time      `json:"verified_at,omitempty"`
}

// Clone deep-copies the result. Callers outside the session loop must only
// ever hold a copy; the loop keeps mutating its own.
func (r *CheckoutResult) Clone() *CheckoutResult {
	if r == nil {
		return nil
	}
	cp := *r
	cp.References = append([]string(nil), r.References...)
	cp.Sales = append([]SaleResult(nil), r.Sales...)
	if r.VerifiedAt != nil {
		v := *r.VerifiedAt
		cp.VerifiedAt = &v
	}
	return &cp
}
