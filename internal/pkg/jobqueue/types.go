package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeWebhookArchive   JobType = "webhook_archive"
	JobTypePaymentReconcile JobType = "payment_reconcile"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// MarkAsProcessing transitions the job to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.ProcessedAt = &now
	j.UpdatedAt = now
}

// MarkAsCompleted transitions the job to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkAsFailed records the failure message
func (j *Job) MarkAsFailed(msg string) {
	j.Status = JobStatusFailed
	j.ErrorMsg = msg
	j.UpdatedAt = time.Now()
}

// MarkAsRetrying increments the retry counter
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.RetryCount++
	j.UpdatedAt = time.Now()
}

// IsRetryable reports whether the job has retries left
func (j *Job) IsRetryable() bool {
	return j.RetryCount < j.MaxRetries
}

// WebhookArchiveJobPayload contains the payload for webhook archive jobs
type WebhookArchiveJobPayload struct {
	EventID uint `json:"event_id"`
}

// ToMap converts the payload to a map for storage
func (p WebhookArchiveJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"event_id": p.EventID,
	}
}

// WebhookArchiveJobPayloadFromMap creates a payload from a map
func WebhookArchiveJobPayloadFromMap(data map[string]interface{}) (*WebhookArchiveJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload WebhookArchiveJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// PaymentReconcileJobPayload contains the payload for payment reconcile jobs
type PaymentReconcileJobPayload struct {
	PaymentID uint   `json:"payment_id"`
	Reference string `json:"reference"`
}

// ToMap converts the payload to a map for storage
func (p PaymentReconcileJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"payment_id": p.PaymentID,
		"reference":  p.Reference,
	}
}

// PaymentReconcileJobPayloadFromMap creates a payload from a map
func PaymentReconcileJobPayloadFromMap(data map[string]interface{}) (*PaymentReconcileJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload PaymentReconcileJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}
