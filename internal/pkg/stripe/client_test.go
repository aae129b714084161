package stripe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	return &Client{
		SecretKey:  "sk_test_abc",
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
	}
}

func TestGetCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout/sessions/cs_test_123", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_abc", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{
			"id": "cs_test_123",
			"status": "complete",
			"payment_status": "paid",
			"amount_total": 129900,
			"currency": "usd",
			"customer_email": "owner@acme.co"
		}`))
	}))
	defer srv.Close()

	session, err := testClient(srv.URL).GetCheckoutSession(context.Background(), "cs_test_123")
	require.NoError(t, err)
	assert.Equal(t, "complete", session.Status)
	assert.Equal(t, "paid", session.PaymentStatus)
	assert.Equal(t, int64(129900), session.AmountTotal)
}

func TestGetCheckoutSessionValidation(t *testing.T) {
	c := testClient("http://localhost:0")

	_, err := c.GetCheckoutSession(context.Background(), " ")
	assert.Error(t, err)

	c.SecretKey = ""
	_, err = c.GetCheckoutSession(context.Background(), "cs_test_123")
	assert.Error(t, err)
}

func TestGetCheckoutSessionAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).GetCheckoutSession(context.Background(), "cs_test_missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
