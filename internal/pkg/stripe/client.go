package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andinosoft/contaflow/internal/pkg/env"
)

const defaultBaseURL = "https://api.stripe.com/v1"

// APIError carries Stripe's HTTP status and body for non-success responses.
type APIError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stripe request failed: %v", e.Err)
	}
	return fmt.Sprintf("stripe request failed: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// Client is a narrow, read-only Stripe client: it only retrieves checkout
// session state for display. Checkout creation happens on the Stripe-hosted
// side and is out of scope here.
type Client struct {
	SecretKey  string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClientFromEnv builds the client from STRIPE_SECRET_KEY.
func NewClientFromEnv() *Client {
	return &Client{
		SecretKey: strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		BaseURL:   strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CheckoutSession is the subset of a Stripe checkout session surfaced to
// clients.
type CheckoutSession struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customer_email"`
}

// GetCheckoutSession retrieves a checkout session by id.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	if strings.TrimSpace(c.SecretKey) == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("checkout session id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/checkout/sessions/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &APIError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out CheckoutSession
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, errors.New("stripe checkout session response missing id")
	}
	return &out, nil
}
