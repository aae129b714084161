package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/andinosoft/contaflow/app/models"
)

func setupRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// unique in-memory DB per test name to avoid leakage via shared cache
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Payment{}, &models.PaymentWebhookEvent{}, &models.Subscription{},
	))
	return db
}

func pendingPayment(reference string) *models.Payment {
	return &models.Payment{
		CompanyID:     1,
		Reference:     reference,
		Provider:      models.PaymentProviderWompi,
		Status:        models.PaymentStatusPending,
		AmountInCents: 77350000,
		Currency:      "COP",
	}
}

func TestCompletePendingWinsOnce(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewPaymentRepository(db)
	require.NoError(t, repo.Create(pendingPayment("CFLOW-1")))

	now := time.Now()
	fields := map[string]interface{}{
		"status":  models.PaymentStatusCompleted,
		"paid_at": &now,
	}

	rows, err := repo.CompletePending(db, "CFLOW-1", fields)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// The row is no longer PENDING, so the conditional update misses.
	rows, err = repo.CompletePending(db, "CFLOW-1", fields)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	stored, err := repo.GetByReference("CFLOW-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)
	assert.NotNil(t, stored.PaidAt)
}

func TestCompletePendingUnknownReference(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewPaymentRepository(db)

	rows, err := repo.CompletePending(db, "CFLOW-NOPE", map[string]interface{}{
		"status": models.PaymentStatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestUpdateByReferenceNeverInserts(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewPaymentRepository(db)

	_, err := repo.UpdateByReference("CFLOW-NOPE", map[string]interface{}{
		"status": models.PaymentStatusFailed,
	})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListStalePending(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewPaymentRepository(db)

	old := pendingPayment("CFLOW-OLD")
	require.NoError(t, repo.Create(old))
	require.NoError(t, db.Model(old).Update("created_at", time.Now().Add(-time.Hour)).Error)

	require.NoError(t, repo.Create(pendingPayment("CFLOW-FRESH")))

	done := pendingPayment("CFLOW-DONE")
	done.Status = models.PaymentStatusCompleted
	require.NoError(t, repo.Create(done))
	require.NoError(t, db.Model(done).Update("created_at", time.Now().Add(-time.Hour)).Error)

	stale, err := repo.ListStalePending(time.Now().Add(-15*time.Minute), 50)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "CFLOW-OLD", stale[0].Reference)
}

func TestSumCompletedAmount(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewPaymentRepository(db)

	sum, err := repo.SumCompletedAmount()
	require.NoError(t, err)
	assert.Zero(t, sum)

	a := pendingPayment("CFLOW-A")
	a.Status = models.PaymentStatusCompleted
	a.AmountInCents = 100
	require.NoError(t, repo.Create(a))

	b := pendingPayment("CFLOW-B")
	b.Status = models.PaymentStatusCompleted
	b.AmountInCents = 250
	require.NoError(t, repo.Create(b))

	require.NoError(t, repo.Create(pendingPayment("CFLOW-C")))

	sum, err = repo.SumCompletedAmount()
	require.NoError(t, err)
	assert.Equal(t, int64(350), sum)
}

func TestWebhookEventCreateIfNotExists(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewWebhookEventRepository(db)

	event := &models.PaymentWebhookEvent{
		Provider:        models.PaymentProviderWompi,
		ProviderEventID: "sha256:abc",
		EventType:       "transaction.updated",
		Reference:       "CFLOW-1",
		PayloadJSON:     `{"event":"transaction.updated"}`,
		SignatureValid:  true,
	}
	created, stored, err := repo.CreateIfNotExists(event)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, stored)

	// Same provider event id: the original row wins.
	dup := &models.PaymentWebhookEvent{
		Provider:        models.PaymentProviderWompi,
		ProviderEventID: "sha256:abc",
		EventType:       "transaction.updated",
		PayloadJSON:     `{"event":"transaction.updated","replayed":true}`,
	}
	created, storedDup, err := repo.CreateIfNotExists(dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ID, storedDup.ID)
	assert.Equal(t, stored.PayloadJSON, storedDup.PayloadJSON)

	// Same id under a different provider is a distinct event.
	other := &models.PaymentWebhookEvent{
		Provider:        models.PaymentProviderStripe,
		ProviderEventID: "sha256:abc",
		EventType:       "checkout.session.completed",
		PayloadJSON:     `{}`,
	}
	created, _, err = repo.CreateIfNotExists(other)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestWebhookEventMarkProcessedAndArchived(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewWebhookEventRepository(db)

	_, stored, err := repo.CreateIfNotExists(&models.PaymentWebhookEvent{
		Provider:        models.PaymentProviderWompi,
		ProviderEventID: "sha256:def",
		EventType:       "transaction.updated",
		PayloadJSON:     `{}`,
	})
	require.NoError(t, err)

	require.NoError(t, repo.MarkProcessed(stored.ID, "invalid event checksum"))
	require.NoError(t, repo.MarkArchived(stored.ID))

	reloaded, err := repo.GetByID(stored.ID)
	require.NoError(t, err)
	assert.NotNil(t, reloaded.ProcessedAt)
	assert.NotNil(t, reloaded.ArchivedAt)
	assert.Equal(t, "invalid event checksum", reloaded.ProcessingError)
}

func TestSubscriptionExpireStaleTrials(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewSubscriptionRepository(db)

	lapsed := models.NewTrialSubscription(1, 10)
	past := time.Now().Add(-time.Hour)
	lapsed.TrialEndsAt = &past
	require.NoError(t, repo.Create(lapsed))

	current := models.NewTrialSubscription(2, 10)
	require.NoError(t, repo.Create(current))

	expired, err := repo.ExpireStaleTrials(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	sub, err := repo.GetByCompanyID(1)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusExpired, sub.Status)

	sub, err = repo.GetByCompanyID(2)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusTrial, sub.Status)
}
