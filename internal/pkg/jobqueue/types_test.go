package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycleTransitions(t *testing.T) {
	job := &Job{
		ID:         "job-1",
		Type:       JobTypeWebhookArchive,
		Status:     JobStatusPending,
		MaxRetries: DefaultMaxRetries,
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.NotNil(t, job.ProcessedAt)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
}

func TestJobRetryAccounting(t *testing.T) {
	job := &Job{MaxRetries: 2}

	assert.True(t, job.IsRetryable())
	job.MarkAsRetrying()
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())
	job.MarkAsRetrying()
	assert.False(t, job.IsRetryable())

	job.MarkAsFailed("provider unreachable")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "provider unreachable", job.ErrorMsg)
}

func TestWebhookArchivePayloadRoundTrip(t *testing.T) {
	payload := WebhookArchiveJobPayload{EventID: 42}

	restored, err := WebhookArchiveJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, uint(42), restored.EventID)
}

func TestPaymentReconcilePayloadRoundTrip(t *testing.T) {
	payload := PaymentReconcileJobPayload{PaymentID: 7, Reference: "CFLOW-7"}

	restored, err := PaymentReconcileJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, uint(7), restored.PaymentID)
	assert.Equal(t, "CFLOW-7", restored.Reference)
}
