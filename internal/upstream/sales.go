package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/domain"
	"github.com/shopspring/decimal"
)

// APIError is an application-level rejection from the remote service:
// either an HTTP failure status or a 200 carrying status:false.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("remote service returned status %d", e.StatusCode)
}

// SalesClient drives the two remote calls of the checkout protocol:
// sale creation and payment verification.
type SalesClient struct {
	baseURL string
	http    *http.Client
}

func NewSalesClient(baseURL string) *SalesClient {
	return &SalesClient{
		baseURL: baseURL,
		http: &http.Client{
			Transport: NewTransport("sales-api", nil),
		},
	}
}

type createSaleRequest struct {
	Items []domain.SaleItem `json:"items"`
}

// CreateSaleResponse is the upstream reply to POST /sales. Older responses
// carry the amount under "amount" instead of "total_amount".
type CreateSaleResponse struct {
	Status           bool            `json:"status"`
	Message          string          `json:"message,omitempty"`
	Reference        string          `json:"reference"`
	AuthorizationURL string          `json:"authorization_url,omitempty"`
	AccessCode       string          `json:"access_code,omitempty"`
	SaleID           string          `json:"sale_id,omitempty"`
	ProductID        string          `json:"product_id,omitempty"`
	Quantity         int             `json:"quantity,omitempty"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Amount           decimal.Decimal `json:"amount"`
}

// EffectiveAmount resolves the total_amount/amount field divergence.
func (r *CreateSaleResponse) EffectiveAmount() decimal.Decimal {
	if !r.TotalAmount.IsZero() {
		return r.TotalAmount
	}
	return r.Amount
}

// VerifyResponse is the upstream reply to GET /sales/verify/{reference}.
type VerifyResponse struct {
	Status        bool   `json:"status"`
	Message       string `json:"message,omitempty"`
	SaleID        string `json:"sale_id,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`
}

// CreateSale posts one sale creation request for the given items.
func (c *SalesClient) CreateSale(ctx context.Context, token string, items []domain.SaleItem) (*CreateSaleResponse, error) {
	body, err := json.Marshal(createSaleRequest{Items: items})
	if err != nil {
		return nil, fmt.Errorf("marshal sale request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sales", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build sale request failed: %w", err)
	}
	setHeaders(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create sale call failed: %w", err)
	}
	defer resp.Body.Close()

	var out CreateSaleResponse
	if err2 := decodeOrFail(resp, &out, &out.Status, &out.Message); err2 != nil {
		return nil, err2
	}
	return &out, nil
}

// VerifyPayment checks the payment state for a sale reference.
func (c *SalesClient) VerifyPayment(ctx context.Context, token, reference string) (*VerifyResponse, error) {
	url := fmt.Sprintf("%s/sales/verify/%s", c.baseURL, reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build verify request failed: %w", err)
	}
	setHeaders(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify call failed: %w", err)
	}
	defer resp.Body.Close()

	var out VerifyResponse
	if err2 := decodeOrFail(resp, &out, &out.Status, &out.Message); err2 != nil {
		return nil, err2
	}
	return &out, nil
}

func setHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// errorBody is the failure shape the remote service uses: FastAPI puts the
// message under "detail", application-level failures under "message".
type errorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func (b errorBody) text() string {
	if b.Detail != "" {
		return b.Detail
	}
	return b.Message
}

// decodeOrFail decodes a JSON reply and normalizes the two failure modes
// into *APIError: a non-2xx status, or a 2xx carrying status:false.
func decodeOrFail(resp *http.Response, out interface{}, status *bool, message *string) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		return &APIError{StatusCode: resp.StatusCode, Message: eb.text()}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response failed: %w", err)
	}

	if !*status {
		return &APIError{StatusCode: resp.StatusCode, Message: *message}
	}
	return nil
}
