package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Payment statuses delivered by the processor. Only "finished" confirms an
// order; everything else is acknowledged and ignored.
const StatusFinished = "finished"

// Payload is the processor's ipn delivery.
type Payload struct {
	PaymentID     int64   `json:"payment_id"`
	OrderID       string  `json:"order_id"`
	PaymentStatus string  `json:"payment_status"`
	PayAddress    string  `json:"pay_address"`
	PayAmount     float64 `json:"pay_amount"`
	ActuallyPaid  float64 `json:"actually_paid"`
	PayCurrency   string  `json:"pay_currency"`
	PriceAmount   float64 `json:"price_amount"`
	PriceCurrency string  `json:"price_currency"`
	PayinHash     string  `json:"payin_hash"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// ProcessorClient looks payments up on the processor api, used to fetch the
// settlement tx hash when an ipn arrives without one.
type ProcessorClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewProcessorClient(baseURL, apiKey string) *ProcessorClient {
	return &ProcessorClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// PayinHash returns the settlement transaction hash of a payment.
func (c *ProcessorClient) PayinHash(ctx context.Context, paymentID int64) (string, error) {
	url := fmt.Sprintf("%s/v1/payment/%d", c.baseURL, paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("payment lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("payment lookup status %s", resp.Status)
	}

	var p Payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return "", fmt.Errorf("decode payment: %w", err)
	}
	if p.PayinHash == "" {
		return "", fmt.Errorf("payment %d has no settlement tx yet", paymentID)
	}
	return p.PayinHash, nil
}
