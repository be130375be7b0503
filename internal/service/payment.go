package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrPaymentDeclined wraps every way a charge can fail: a decline from
// the processor, a transport error, or a timeout. The checkout treats
// them all the same way (release reservations, ok=false).
var ErrPaymentDeclined = errors.New("payment declined")

// PaymentGateway is the external payment processor boundary. Charge is
// expected to be idempotent per token on the processor side; this
// service calls it at most once per checkout attempt.
type PaymentGateway interface {
	Charge(ctx context.Context, amount decimal.Decimal, token string) error
}

type chargeRequest struct {
	Amount string `json:"amount"`
	Token  string `json:"token"`
}

// HTTPPaymentGateway posts charges to the processor's endpoint.
type HTTPPaymentGateway struct {
	url    string
	client *http.Client
}

func NewHTTPPaymentGateway(url string, timeout time.Duration) *HTTPPaymentGateway {
	return &HTTPPaymentGateway{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (g *HTTPPaymentGateway) Charge(ctx context.Context, amount decimal.Decimal, token string) error {
	body, err := json.Marshal(chargeRequest{Amount: amount.StringFixed(2), Token: token})
	if err != nil {
		return fmt.Errorf("marshal charge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		// Timeouts and transport failures count as declines.
		return fmt.Errorf("%w: %v", ErrPaymentDeclined, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: processor returned %d", ErrPaymentDeclined, resp.StatusCode)
	}
	return nil
}

// MockPaymentGateway approves every charge. Default in local and dev
// environments where no processor is running.
type MockPaymentGateway struct{}

func (MockPaymentGateway) Charge(_ context.Context, amount decimal.Decimal, token string) error {
	log.Printf("[MockPayment] approved amount=%s token=%s", amount.StringFixed(2), token)
	return nil
}
