package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/andinosoft/contaflow/app/models"
	"github.com/andinosoft/contaflow/app/repository"
	"github.com/andinosoft/contaflow/internal/pkg/wompi"
)

type fakeProvider struct {
	cfg *wompi.Config

	acceptanceErr error
	createErr     error
	createdTx     *wompi.Transaction
	createReqs    []wompi.TransactionRequest

	getTx    *wompi.Transaction
	getErr   error
	getCalls int
}

func (f *fakeProvider) GetAcceptanceToken(ctx context.Context) (string, error) {
	if f.acceptanceErr != nil {
		return "", f.acceptanceErr
	}
	return "acceptance-token", nil
}

func (f *fakeProvider) CreateTransaction(ctx context.Context, req wompi.TransactionRequest) (*wompi.Transaction, error) {
	f.createReqs = append(f.createReqs, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createdTx != nil {
		return f.createdTx, nil
	}
	url := "https://checkout.example/tx-1"
	return &wompi.Transaction{
		ID:          "tx-1",
		Status:      wompi.TxStatusPending,
		Reference:   req.Reference,
		CheckoutURL: &url,
		RawJSON:     []byte(`{"data":{"id":"tx-1","status":"PENDING"}}`),
	}, nil
}

func (f *fakeProvider) GetTransaction(ctx context.Context, id string) (*wompi.Transaction, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getTx, nil
}

func (f *fakeProvider) Config() *wompi.Config {
	if f.cfg == nil {
		f.cfg = &wompi.Config{
			Environment:     wompi.EnvSandbox,
			PublicKey:       "pub_test_abc",
			PrivateKey:      "prv_test_abc",
			IntegritySecret: "test_integrity",
			EventsSecret:    "test_events",
			RedirectURL:     "https://app.example/checkout/result",
		}
	}
	return f.cfg
}

func setupService(t *testing.T) (*Service, *fakeProvider, *repository.Repositories) {
	t.Helper()

	// unique in-memory DB per test name to avoid leakage via shared cache
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Company{}, &models.Subscription{}, &models.Payment{},
	))

	repos := repository.NewRepositories(db)
	provider := &fakeProvider{}
	return NewService(db, repos, provider), provider, repos
}

func seedTrialSubscription(t *testing.T, repos *repository.Repositories, companyID uint) *models.Subscription {
	t.Helper()
	sub := models.NewTrialSubscription(companyID, 10)
	require.NoError(t, repos.Subscription.Create(sub))
	return sub
}

func proInput() InitiateInput {
	return InitiateInput{
		PlanID:        "professional",
		BillingCycle:  "monthly",
		CustomerEmail: "owner@acme.co",
		CustomerName:  "Ana Acme",
	}
}

func TestInitiateCreatesPendingPayment(t *testing.T) {
	svc, provider, repos := setupService(t)

	payment, checkout, err := svc.Initiate(context.Background(), 1, proInput())
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, uint(1), payment.CompanyID)
	assert.Equal(t, "COP", payment.Currency)
	assert.Equal(t, models.PaymentProviderWompi, payment.Provider)
	// 650,000 COP + 19% IVA = 773,500 pesos = 77,350,000 cents.
	assert.Equal(t, int64(77350000), payment.AmountInCents)
	assert.Equal(t, "tx-1", payment.ProviderTransactionID)

	require.NotNil(t, checkout)
	assert.Equal(t, payment.Reference, checkout.Reference)
	require.NotNil(t, checkout.CheckoutURL)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(payment.Metadata, &meta))
	assert.Equal(t, "professional", meta["plan_id"])
	assert.Equal(t, "monthly", meta["billing_cycle"])
	assert.EqualValues(t, 650000, meta["subtotal"])
	assert.EqualValues(t, 123500, meta["iva"])
	assert.EqualValues(t, 773500, meta["total"])
	assert.Contains(t, meta, "provider_response")

	// The remote call carried the integrity signature for the persisted amounts.
	require.Len(t, provider.createReqs, 1)
	req := provider.createReqs[0]
	assert.Equal(t, wompi.TransactionIntegrity(payment.Reference, 77350000, "COP", "test_integrity"), req.Signature)
	assert.Equal(t, "acceptance-token", req.AcceptanceToken)

	stored, err := repos.Payment.GetByReference(payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
}

func TestInitiateValidation(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	var vErr *ValidationError

	_, _, err := svc.Initiate(ctx, 0, proInput())
	require.True(t, errors.As(err, &vErr))

	in := proInput()
	in.CustomerEmail = "  "
	_, _, err = svc.Initiate(ctx, 1, in)
	require.True(t, errors.As(err, &vErr))

	in = proInput()
	in.PlanID = "platinum"
	_, _, err = svc.Initiate(ctx, 1, in)
	require.True(t, errors.As(err, &vErr))

	in = proInput()
	in.Amount = -5
	_, _, err = svc.Initiate(ctx, 1, in)
	require.True(t, errors.As(err, &vErr))
}

func TestInitiateReferencesAreUnique(t *testing.T) {
	svc, _, _ := setupService(t)

	seen := make(map[string]struct{})
	for i := 0; i < 10; i++ {
		payment, _, err := svc.Initiate(context.Background(), 1, proInput())
		require.NoError(t, err)
		if _, dup := seen[payment.Reference]; dup {
			t.Fatalf("duplicate reference %s", payment.Reference)
		}
		seen[payment.Reference] = struct{}{}
	}
}

func TestInitiateProviderFailureKeepsPendingRecord(t *testing.T) {
	svc, provider, repos := setupService(t)
	provider.createErr = &wompi.ProviderError{StatusCode: 503, Body: "unavailable"}

	payment, checkout, err := svc.Initiate(context.Background(), 1, proInput())
	require.Error(t, err)
	assert.Nil(t, checkout)
	require.NotNil(t, payment)

	// The attempt must stay inspectable: PENDING, no provider id.
	stored, getErr := repos.Payment.GetByReference(payment.Reference)
	require.NoError(t, getErr)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
	assert.Empty(t, stored.ProviderTransactionID)

	var provErr *wompi.ProviderError
	assert.True(t, errors.As(err, &provErr))
}

func TestInitiateNonCOPSkipsIVA(t *testing.T) {
	svc, _, _ := setupService(t)

	in := proInput()
	in.Currency = "usd"
	in.Amount = 150
	payment, _, err := svc.Initiate(context.Background(), 1, in)
	require.NoError(t, err)

	assert.Equal(t, "USD", payment.Currency)
	assert.Equal(t, int64(150), payment.AmountInCents)
}

func TestUpdateStatusUnknownReference(t *testing.T) {
	svc, _, repos := setupService(t)

	_, err := svc.UpdateStatus(context.Background(), "CFLOW-NOPE", models.PaymentStatusFailed, UpdateStatusOptions{})
	assert.ErrorIs(t, err, ErrNotFound)

	// A webhook for an unknown reference must never create a row.
	payments, err := repos.Payment.List(0, 10)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestUpdateStatusRejectsCompletedAndPending(t *testing.T) {
	svc, _, _ := setupService(t)
	var vErr *ValidationError

	_, err := svc.UpdateStatus(context.Background(), "R", models.PaymentStatusCompleted, UpdateStatusOptions{})
	assert.True(t, errors.As(err, &vErr))

	_, err = svc.UpdateStatus(context.Background(), "R", models.PaymentStatusPending, UpdateStatusOptions{})
	assert.True(t, errors.As(err, &vErr))

	_, err = svc.UpdateStatus(context.Background(), "R", "REFUNDED", UpdateStatusOptions{})
	assert.True(t, errors.As(err, &vErr))
}

func TestUpdateStatusIdempotentAndTerminal(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	payment, _, err := svc.Initiate(ctx, 1, proInput())
	require.NoError(t, err)

	failed, err := svc.UpdateStatus(ctx, payment.Reference, models.PaymentStatusFailed, UpdateStatusOptions{
		FailureReason: "card declined",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, failed.Status)
	assert.Equal(t, "card declined", failed.FailureReason)
	assert.NotNil(t, failed.FailedAt)

	// Same status again: no-op success.
	again, err := svc.UpdateStatus(ctx, payment.Reference, models.PaymentStatusFailed, UpdateStatusOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, again.Status)

	// Different terminal status: reject-and-report.
	_, err = svc.UpdateStatus(ctx, payment.Reference, models.PaymentStatusCanceled, UpdateStatusOptions{})
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.PaymentStatusFailed, conflict.CurrentStatus)
	assert.Equal(t, models.PaymentStatusCanceled, conflict.AttemptedStatus)
}

func TestCompleteActivatesSubscription(t *testing.T) {
	svc, _, repos := setupService(t)
	ctx := context.Background()
	seedTrialSubscription(t, repos, 1)

	payment, _, err := svc.Initiate(ctx, 1, proInput())
	require.NoError(t, err)

	before := time.Now()
	completed, sub, err := svc.Complete(ctx, payment.Reference, "tx-1")
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusCompleted, completed.Status)
	require.NotNil(t, completed.PaidAt)

	require.NotNil(t, sub)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, "professional", sub.Plan)
	assert.Equal(t, "monthly", sub.BillingCycle)
	assert.Equal(t, 200, sub.ReportsLimit)
	assert.Nil(t, sub.TrialEndsAt)
	assert.False(t, sub.CancelAtPeriodEnd)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.WithinDuration(t, before.AddDate(0, 1, 0), *sub.CurrentPeriodEnd, 5*time.Second)
}

func TestCompleteIsIdempotent(t *testing.T) {
	svc, _, repos := setupService(t)
	ctx := context.Background()
	seedTrialSubscription(t, repos, 1)

	payment, _, err := svc.Initiate(ctx, 1, proInput())
	require.NoError(t, err)

	_, first, err := svc.Complete(ctx, payment.Reference, "tx-1")
	require.NoError(t, err)

	// A duplicate delivery must not extend the period a second time.
	completed, second, err := svc.Complete(ctx, payment.Reference, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, completed.Status)
	require.NotNil(t, second.CurrentPeriodEnd)
	assert.True(t, first.CurrentPeriodEnd.Equal(*second.CurrentPeriodEnd),
		"period end moved from %v to %v", first.CurrentPeriodEnd, second.CurrentPeriodEnd)
}

func TestCompleteAfterFailedConflicts(t *testing.T) {
	svc, _, repos := setupService(t)
	ctx := context.Background()
	seedTrialSubscription(t, repos, 1)

	payment, _, err := svc.Initiate(ctx, 1, proInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, payment.Reference, models.PaymentStatusFailed, UpdateStatusOptions{})
	require.NoError(t, err)

	_, _, err = svc.Complete(ctx, payment.Reference, "tx-1")
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.PaymentStatusFailed, conflict.CurrentStatus)

	// The failed attempt must not have activated anything.
	sub, err := repos.Subscription.GetByCompanyID(1)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusTrial, sub.Status)
}

func TestCompleteUnknownReference(t *testing.T) {
	svc, _, _ := setupService(t)

	_, _, err := svc.Complete(context.Background(), "CFLOW-NOPE", "tx-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteRenewalExtendsFromPeriodEnd(t *testing.T) {
	svc, _, repos := setupService(t)
	ctx := context.Background()
	seedTrialSubscription(t, repos, 1)

	first, _, err := svc.Initiate(ctx, 1, proInput())
	require.NoError(t, err)
	_, afterFirst, err := svc.Complete(ctx, first.Reference, "tx-1")
	require.NoError(t, err)

	// Paying again before the period lapses stacks on top of the remaining time.
	second, _, err := svc.Initiate(ctx, 1, proInput())
	require.NoError(t, err)
	_, afterSecond, err := svc.Complete(ctx, second.Reference, "tx-2")
	require.NoError(t, err)

	want := afterFirst.CurrentPeriodEnd.AddDate(0, 1, 0)
	assert.WithinDuration(t, want, *afterSecond.CurrentPeriodEnd, time.Second)
}

func TestReconcile(t *testing.T) {
	svc, provider, repos := setupService(t)
	ctx := context.Background()
	seedTrialSubscription(t, repos, 1)

	payment, _, err := svc.Initiate(ctx, 1, proInput())
	require.NoError(t, err)

	provider.getTx = &wompi.Transaction{ID: "tx-1", Status: wompi.TxStatusApproved, Reference: payment.Reference}
	stored, err := repos.Payment.GetByReference(payment.Reference)
	require.NoError(t, err)
	require.NoError(t, svc.Reconcile(ctx, stored))

	stored, err = repos.Payment.GetByReference(payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)

	sub, err := repos.Subscription.GetByCompanyID(1)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
}

func TestReconcileDeclined(t *testing.T) {
	svc, provider, repos := setupService(t)
	ctx := context.Background()

	payment, _, err := svc.Initiate(ctx, 1, proInput())
	require.NoError(t, err)

	provider.getTx = &wompi.Transaction{ID: "tx-1", Status: wompi.TxStatusDeclined, StatusMessage: "insufficient funds"}
	stored, err := repos.Payment.GetByReference(payment.Reference)
	require.NoError(t, err)
	require.NoError(t, svc.Reconcile(ctx, stored))

	stored, err = repos.Payment.GetByReference(payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, stored.Status)
	assert.Equal(t, "insufficient funds", stored.FailureReason)
}

func TestReconcileSkipsWithoutProviderID(t *testing.T) {
	svc, provider, _ := setupService(t)

	payment := &models.Payment{Status: models.PaymentStatusPending, Reference: "CFLOW-X"}
	require.NoError(t, svc.Reconcile(context.Background(), payment))
	assert.Zero(t, provider.getCalls)

	// Terminal payments are never polled either.
	payment = &models.Payment{Status: models.PaymentStatusCompleted, ProviderTransactionID: "tx-9"}
	require.NoError(t, svc.Reconcile(context.Background(), payment))
	assert.Zero(t, provider.getCalls)
}

func TestReconcilePendingRemoteStatusIsNoop(t *testing.T) {
	svc, provider, repos := setupService(t)
	ctx := context.Background()

	payment, _, err := svc.Initiate(ctx, 1, proInput())
	require.NoError(t, err)

	provider.getTx = &wompi.Transaction{ID: "tx-1", Status: wompi.TxStatusPending}
	stored, err := repos.Payment.GetByReference(payment.Reference)
	require.NoError(t, err)
	require.NoError(t, svc.Reconcile(ctx, stored))

	stored, err = repos.Payment.GetByReference(payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
}
