package jobqueue

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/andinosoft/contaflow/app/repository"
	"github.com/andinosoft/contaflow/internal/pkg/s3archive"
)

var (
	archiveClient     *s3archive.Client
	archiveClientErr  error
	archiveClientOnce sync.Once
)

// getArchiveClient lazily builds the shared S3 archive client.
func getArchiveClient() (*s3archive.Client, error) {
	archiveClientOnce.Do(func() {
		cfg, err := s3archive.LoadConfig()
		if err != nil {
			archiveClientErr = err
			return
		}
		if !cfg.IsEnabled() {
			archiveClientErr = fmt.Errorf("S3 archiving is disabled")
			return
		}
		archiveClient, archiveClientErr = s3archive.NewClient(cfg)
	})
	return archiveClient, archiveClientErr
}

// processWebhookArchiveJob uploads a stored webhook payload to S3 and marks
// the event row as archived.
func (q *Queue) processWebhookArchiveJob(ctx context.Context, job *Job) error {
	payload, err := WebhookArchiveJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid webhook archive payload: %w", err)
	}

	repo := repository.GetGlobalFactory().GetWebhookEventRepository()
	event, err := repo.GetByID(payload.EventID)
	if err != nil {
		return fmt.Errorf("webhook event %d not found: %w", payload.EventID, err)
	}
	if event.ArchivedAt != nil {
		log.Infof("[JobQueue] Webhook event %d already archived", event.ID)
		return nil
	}

	client, err := getArchiveClient()
	if err != nil {
		// Archiving disabled is not a job failure; the event stays in the DB.
		log.Warnf("[JobQueue] Skipping archive for event %d: %v", event.ID, err)
		return nil
	}

	key := client.ObjectKey(event.Provider, event.ID, event.CreatedAt)
	if err := client.ArchivePayload(ctx, key, []byte(event.PayloadJSON)); err != nil {
		return err
	}

	return repo.MarkArchived(event.ID)
}
