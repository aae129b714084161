package controllers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/andinosoft/contaflow/app/models"
	"github.com/andinosoft/contaflow/app/repository"
	"github.com/andinosoft/contaflow/internal/pkg/database"
	"github.com/andinosoft/contaflow/internal/pkg/payments"
	"github.com/andinosoft/contaflow/internal/pkg/wompi"
)

const testEventsSecret = "test_events_secret"

func setupWebhookTest(t *testing.T) (*fiber.App, *repository.Repositories) {
	t.Helper()

	// unique in-memory DB per test name to avoid leakage via shared cache
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Company{}, &models.User{}, &models.UserSettings{},
		&models.Subscription{}, &models.Payment{}, &models.PaymentWebhookEvent{},
	))

	database.SetDB(db)
	repository.ResetFactoryForTest(db)
	repos := repository.GetGlobalRepositories()

	wompiClient = wompi.NewClient(&wompi.Config{
		Environment:     wompi.EnvSandbox,
		PublicKey:       "pub_test_abc",
		PrivateKey:      "prv_test_abc",
		IntegritySecret: "test_integrity",
		EventsSecret:    testEventsSecret,
	})
	paymentService = payments.NewService(db, repos, wompiClient)

	app := fiber.New()
	app.Post("/api/v1/webhooks/wompi", HandleWompiWebhook)
	return app, repos
}

func seedPendingPayment(t *testing.T, repos *repository.Repositories, reference string) {
	t.Helper()

	meta, _ := json.Marshal(map[string]interface{}{
		"plan_id":       "professional",
		"billing_cycle": "monthly",
	})
	require.NoError(t, repos.Payment.Create(&models.Payment{
		CompanyID:     1,
		Reference:     reference,
		Provider:      models.PaymentProviderWompi,
		Status:        models.PaymentStatusPending,
		AmountInCents: 77350000,
		Currency:      "COP",
		Metadata:      datatypes.JSON(meta),
	}))
	require.NoError(t, repos.Subscription.Create(models.NewTrialSubscription(1, 10)))
}

// transactionEventBody builds a signed provider event the way the provider
// concatenates its checksum properties.
func transactionEventBody(t *testing.T, reference, txID, status, secret string) []byte {
	t.Helper()

	const (
		amount    = int64(77350000)
		timestamp = int64(1700000000)
	)
	concat := fmt.Sprintf("%s%s%d%d%s", txID, status, amount, timestamp, secret)
	sum := sha256.Sum256([]byte(concat))

	body := map[string]interface{}{
		"event": "transaction.updated",
		"data": map[string]interface{}{
			"transaction": map[string]interface{}{
				"id":              txID,
				"status":          status,
				"amount_in_cents": amount,
				"reference":       reference,
				"status_message":  "provider message",
			},
		},
		"signature": map[string]interface{}{
			"properties": []string{"transaction.id", "transaction.status", "transaction.amount_in_cents"},
			"checksum":   hex.EncodeToString(sum[:]),
		},
		"timestamp": timestamp,
		"sent_at":   "2023-11-14T22:13:20.000Z",
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return raw
}

func postWebhook(t *testing.T, app *fiber.App, body []byte) (*http.Response, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/wompi", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func TestWompiWebhookApprovedCompletesPayment(t *testing.T) {
	app, repos := setupWebhookTest(t)
	seedPendingPayment(t, repos, "CFLOW-1")

	body := transactionEventBody(t, "CFLOW-1", "tx-1", "APPROVED", testEventsSecret)
	resp, decoded := postWebhook(t, app, body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decoded["ok"])

	payment, err := repos.Payment.GetByReference("CFLOW-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, "tx-1", payment.ProviderTransactionID)

	sub, err := repos.Subscription.GetByCompanyID(1)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, "professional", sub.Plan)
}

func TestWompiWebhookDuplicateDelivery(t *testing.T) {
	app, repos := setupWebhookTest(t)
	seedPendingPayment(t, repos, "CFLOW-1")

	body := transactionEventBody(t, "CFLOW-1", "tx-1", "APPROVED", testEventsSecret)
	resp, _ := postWebhook(t, app, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sub, err := repos.Subscription.GetByCompanyID(1)
	require.NoError(t, err)
	firstEnd := *sub.CurrentPeriodEnd

	// Exact replay: acknowledged, not reprocessed.
	resp, decoded := postWebhook(t, app, body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decoded["duplicate"])

	sub, err = repos.Subscription.GetByCompanyID(1)
	require.NoError(t, err)
	assert.True(t, firstEnd.Equal(*sub.CurrentPeriodEnd), "duplicate delivery extended the period")
}

func TestWompiWebhookInvalidChecksum(t *testing.T) {
	app, repos := setupWebhookTest(t)
	seedPendingPayment(t, repos, "CFLOW-1")

	body := transactionEventBody(t, "CFLOW-1", "tx-1", "APPROVED", "wrong_secret")
	resp, decoded := postWebhook(t, app, body)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_signature", decoded["error"])

	// The payment must be untouched, but the event must still be on file.
	payment, err := repos.Payment.GetByReference("CFLOW-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)

	var events []models.PaymentWebhookEvent
	require.NoError(t, database.GetDB().Find(&events).Error)
	require.Len(t, events, 1)
	assert.False(t, events[0].SignatureValid)
	assert.NotNil(t, events[0].ProcessedAt)
}

func TestWompiWebhookUnknownReference(t *testing.T) {
	app, repos := setupWebhookTest(t)

	body := transactionEventBody(t, "CFLOW-NOPE", "tx-1", "APPROVED", testEventsSecret)
	resp, _ := postWebhook(t, app, body)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// A webhook for a reference we never issued must not create a payment.
	list, err := repos.Payment.List(0, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWompiWebhookDeclinedFailsPayment(t *testing.T) {
	app, repos := setupWebhookTest(t)
	seedPendingPayment(t, repos, "CFLOW-1")

	body := transactionEventBody(t, "CFLOW-1", "tx-1", "DECLINED", testEventsSecret)
	resp, _ := postWebhook(t, app, body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	payment, err := repos.Payment.GetByReference("CFLOW-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "provider message", payment.FailureReason)

	sub, err := repos.Subscription.GetByCompanyID(1)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusTrial, sub.Status)
}

func TestWompiWebhookConflictingTerminalStates(t *testing.T) {
	app, repos := setupWebhookTest(t)
	seedPendingPayment(t, repos, "CFLOW-1")

	resp, _ := postWebhook(t, app, transactionEventBody(t, "CFLOW-1", "tx-1", "DECLINED", testEventsSecret))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A later APPROVED for the same payment contradicts the stored FAILED.
	resp, decoded := postWebhook(t, app, transactionEventBody(t, "CFLOW-1", "tx-2", "APPROVED", testEventsSecret))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.PaymentStatusFailed, decoded["current_status"])
}

func TestWompiWebhookMalformedBody(t *testing.T) {
	app, _ := setupWebhookTest(t)

	resp, _ := postWebhook(t, app, []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWompiWebhookIgnoresNonTransactionEvents(t *testing.T) {
	app, _ := setupWebhookTest(t)

	const timestamp = int64(1700000000)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d%s", timestamp, testEventsSecret)))
	body, err := json.Marshal(map[string]interface{}{
		"event": "nequi_token.updated",
		"data":  map[string]interface{}{},
		"signature": map[string]interface{}{
			"properties": []string{},
			"checksum":   hex.EncodeToString(sum[:]),
		},
		"timestamp": timestamp,
	})
	require.NoError(t, err)

	resp, decoded := postWebhook(t, app, body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decoded["ignored"])
}
