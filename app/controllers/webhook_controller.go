package controllers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/andinosoft/contaflow/app/models"
	"github.com/andinosoft/contaflow/app/repository"
	"github.com/andinosoft/contaflow/internal/pkg/database"
	"github.com/andinosoft/contaflow/internal/pkg/jobqueue"
	"github.com/andinosoft/contaflow/internal/pkg/mail"
	"github.com/andinosoft/contaflow/internal/pkg/payments"
	"github.com/andinosoft/contaflow/internal/pkg/wompi"
)

// HandleWompiWebhook ingests provider event notifications. Every payload is
// stored before any processing; duplicates are detected by the provider
// event id (or a payload hash when the provider sends none) and acknowledged
// without reprocessing.
func HandleWompiWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	event, parseErr := wompi.ParseEvent(rawBody)
	if parseErr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid event payload"})
	}

	// Wompi events carry no stable id, so duplicates are keyed by the exact
	// payload bytes.
	sum := sha256.Sum256(rawBody)
	eventID := "sha256:" + hex.EncodeToString(sum[:])

	signatureValid := wompi.VerifyEventChecksum(event, WompiClient().Config().EventsSecret)
	reference := event.TransactionField("reference")

	repos := repository.GetGlobalRepositories()
	created, stored, err := repos.WebhookEvent.CreateIfNotExists(&models.PaymentWebhookEvent{
		Provider:        models.PaymentProviderWompi,
		ProviderEventID: eventID,
		EventType:       event.Event,
		Reference:       reference,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		log.Printf("webhook persist failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	if !signatureValid {
		_ = repos.WebhookEvent.MarkProcessed(stored.ID, "invalid event checksum")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	// Archive asynchronously; ingestion never waits on S3.
	if err := jobqueue.EnqueueWebhookArchive(stored.ID); err != nil {
		log.Printf("failed to enqueue archive for event %d: %v", stored.ID, err)
	}

	if !isTransactionEvent(event.Event) {
		_ = repos.WebhookEvent.MarkProcessed(stored.ID, "")
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	if reference == "" {
		_ = repos.WebhookEvent.MarkProcessed(stored.ID, "event without transaction reference")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	txID := event.TransactionField("id")
	txStatus := strings.ToUpper(event.TransactionField("status"))

	processErr := applyTransactionEvent(ctx, reference, txID, txStatus, event)

	switch {
	case processErr == nil:
		_ = repos.WebhookEvent.MarkProcessed(stored.ID, "")
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	case errors.Is(processErr, payments.ErrNotFound):
		// A reference we never issued must not create a payment row.
		_ = repos.WebhookEvent.MarkProcessed(stored.ID, "unknown payment reference")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "unknown payment reference"})
	default:
		var conflictErr *payments.ConflictError
		if errors.As(processErr, &conflictErr) {
			_ = repos.WebhookEvent.MarkProcessed(stored.ID, conflictErr.Error())
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":          "conflict",
				"message":        conflictErr.Error(),
				"current_status": conflictErr.CurrentStatus,
			})
		}
		_ = repos.WebhookEvent.MarkProcessed(stored.ID, processErr.Error())
		log.Printf("webhook processing failed for %s: %v", reference, processErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}
}

// applyTransactionEvent maps a provider transaction status onto the payment
// lifecycle.
func applyTransactionEvent(ctx context.Context, reference, txID, txStatus string, event *wompi.Event) error {
	switch txStatus {
	case wompi.TxStatusApproved:
		payment, sub, err := paymentService.Complete(ctx, reference, txID)
		if err != nil {
			return err
		}
		go sendReceiptForPayment(payment, sub)
		return nil
	case wompi.TxStatusDeclined, wompi.TxStatusError:
		_, err := paymentService.UpdateStatus(ctx, reference, models.PaymentStatusFailed, payments.UpdateStatusOptions{
			ProviderTransactionID: txID,
			PaymentMethod:         event.TransactionField("payment_method_type"),
			FailureReason:         event.TransactionField("status_message"),
		})
		return err
	case wompi.TxStatusVoided:
		_, err := paymentService.UpdateStatus(ctx, reference, models.PaymentStatusCanceled, payments.UpdateStatusOptions{
			ProviderTransactionID: txID,
			FailureReason:         event.TransactionField("status_message"),
		})
		return err
	case wompi.TxStatusPending, "":
		// Nothing to transition yet.
		return nil
	default:
		return payments.NewValidationError("unknown provider status %q", txStatus)
	}
}

// sendReceiptForPayment mails the receipt to the company owner unless they
// opted out.
func sendReceiptForPayment(payment *models.Payment, sub *models.Subscription) {
	db := database.GetDB()

	var owner models.User
	if err := db.Where("company_id = ? AND is_owner = ?", payment.CompanyID, true).First(&owner).Error; err != nil {
		log.Printf("receipt: no owner found for company %d: %v", payment.CompanyID, err)
		return
	}

	settings, err := models.GetOrCreateUserSettings(db, owner.ID)
	if err == nil && !settings.NotifyReceipts {
		return
	}

	amountPesos := payment.AmountInCents / 100
	plan := ""
	if sub != nil {
		plan = sub.Plan
	}
	if err := mail.SendPaymentReceiptMail(owner.Email, owner.Name, payment.Reference, amountPesos, plan); err != nil {
		log.Printf("receipt mail for %s failed: %v", payment.Reference, err)
	}
}

func isTransactionEvent(eventType string) bool {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "transaction.updated", "transaction.created":
		return true
	default:
		return false
	}
}
