package wompi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Wompi transaction statuses as reported by the API.
const (
	TxStatusPending  = "PENDING"
	TxStatusApproved = "APPROVED"
	TxStatusDeclined = "DECLINED"
	TxStatusVoided   = "VOIDED"
	TxStatusError    = "ERROR"
)

// ProviderError carries the provider's HTTP status and response body for
// non-success responses, including timeouts (which are ambiguous outcomes,
// not failures).
type ProviderError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wompi request failed: %v", e.Err)
	}
	return fmt.Sprintf("wompi request failed: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Client talks to the Wompi REST API for one resolved environment.
type Client struct {
	cfg        *Config
	httpClient *http.Client
}

// NewClient creates a client from an immutable configuration.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Config exposes the client's resolved configuration.
func (c *Client) Config() *Config { return c.cfg }

// CustomerData identifies the paying customer on a transaction.
type CustomerData struct {
	FullName    string `json:"full_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	LegalID     string `json:"legal_id,omitempty"`
	LegalIDType string `json:"legal_id_type,omitempty"`
}

// PaymentMethod selects how the transaction is paid.
type PaymentMethod struct {
	Type         string `json:"type"`
	Installments int    `json:"installments,omitempty"`
	Token        string `json:"token,omitempty"`
}

// TransactionRequest is the outbound payload for POST /transactions.
type TransactionRequest struct {
	AmountInCents   int64          `json:"amount_in_cents"`
	Currency        string         `json:"currency"`
	CustomerEmail   string         `json:"customer_email"`
	Reference       string         `json:"reference"`
	Signature       string         `json:"signature"`
	AcceptanceToken string         `json:"acceptance_token"`
	RedirectURL     string         `json:"redirect_url,omitempty"`
	PaymentMethod   *PaymentMethod `json:"payment_method,omitempty"`
	CustomerData    *CustomerData  `json:"customer_data,omitempty"`
}

// Transaction is the provider's view of a payment attempt. CheckoutURL is
// optional: sync payment methods never produce one.
type Transaction struct {
	ID                string  `json:"id"`
	Status            string  `json:"status"`
	StatusMessage     string  `json:"status_message"`
	Reference         string  `json:"reference"`
	AmountInCents     int64   `json:"amount_in_cents"`
	Currency          string  `json:"currency"`
	PaymentMethodType string  `json:"payment_method_type"`
	CheckoutURL       *string `json:"-"`
	RawJSON           []byte  `json:"-"`
}

// Event is an inbound webhook payload. Data stays untyped because the
// checksum must be recomputed over the exact values the provider sent.
type Event struct {
	Event     string                 `json:"event"`
	Data      map[string]interface{} `json:"data"`
	Signature struct {
		Properties []string `json:"properties"`
		Checksum   string   `json:"checksum"`
	} `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	SentAt    string `json:"sent_at"`
}

// ParseEvent decodes a webhook body.
func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ev.Event) == "" {
		return nil, errors.New("wompi event payload missing event type")
	}
	return &ev, nil
}

// TransactionField reads a string field of the event's embedded transaction.
func (e *Event) TransactionField(field string) string {
	v, _ := e.lookupProperty("transaction." + field)
	return v
}

// GetAcceptanceToken fetches the merchant's current pre-signed acceptance
// token, required on every transaction creation.
func (c *Client) GetAcceptanceToken(ctx context.Context) (string, error) {
	var out struct {
		Data struct {
			PresignedAcceptance struct {
				AcceptanceToken string `json:"acceptance_token"`
			} `json:"presigned_acceptance"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/merchants/"+c.cfg.PublicKey, nil, false, &out); err != nil {
		return "", err
	}
	token := strings.TrimSpace(out.Data.PresignedAcceptance.AcceptanceToken)
	if token == "" {
		return "", errors.New("wompi merchant response missing acceptance token")
	}
	return token, nil
}

// CreateTransaction issues the remote payment creation call. Callers must
// not assume CheckoutURL is present.
func (c *Client) CreateTransaction(ctx context.Context, req TransactionRequest) (*Transaction, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	raw, err := c.doRaw(ctx, http.MethodPost, "/transactions", body, true)
	if err != nil {
		return nil, err
	}
	return parseTransaction(raw)
}

// GetTransaction fetches a transaction by provider id; used by the status
// endpoints and the reconcile worker.
func (c *Client) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("transaction id is required")
	}
	raw, err := c.doRaw(ctx, http.MethodGet, "/transactions/"+id, nil, false)
	if err != nil {
		return nil, err
	}
	return parseTransaction(raw)
}

// WebhookSubscription is a registered event endpoint on the Wompi side.
type WebhookSubscription struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ListWebhookSubscriptions returns the endpoints currently registered for
// the merchant.
func (c *Client) ListWebhookSubscriptions(ctx context.Context) ([]WebhookSubscription, error) {
	var out struct {
		Data []WebhookSubscription `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/webhooks", nil, true, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateWebhookSubscription registers an event endpoint.
func (c *Client) CreateWebhookSubscription(ctx context.Context, url string) (*WebhookSubscription, error) {
	body, err := json.Marshal(map[string]string{"url": url})
	if err != nil {
		return nil, err
	}
	var out struct {
		Data WebhookSubscription `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/webhooks", body, true, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func parseTransaction(raw []byte) (*Transaction, error) {
	var envelope struct {
		Data struct {
			Transaction
			PaymentMethod struct {
				Extra struct {
					AsyncPaymentURL string `json:"async_payment_url"`
				} `json:"extra"`
			} `json:"payment_method"`
			PaymentLinkURL string `json:"payment_link_url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	if strings.TrimSpace(envelope.Data.ID) == "" {
		return nil, errors.New("wompi transaction response missing id")
	}

	tx := envelope.Data.Transaction
	tx.RawJSON = raw
	if u := strings.TrimSpace(envelope.Data.PaymentMethod.Extra.AsyncPaymentURL); u != "" {
		tx.CheckoutURL = &u
	} else if u := strings.TrimSpace(envelope.Data.PaymentLinkURL); u != "" {
		tx.CheckoutURL = &u
	}
	return &tx, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, private bool, out interface{}) error {
	raw, err := c.doRaw(ctx, method, path, body, private)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) doRaw(ctx context.Context, method, path string, body []byte, private bool) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if private {
		req.Header.Set("Authorization", "Bearer "+c.cfg.PrivateKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A timeout is ambiguous: the provider may still have processed the
		// request. Surface it as a provider error, never as a cancellation.
		return nil, &ProviderError{Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
