package controllers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/andinosoft/contaflow/app/models"
	"github.com/andinosoft/contaflow/app/repository"
	"github.com/andinosoft/contaflow/internal/pkg/payments"
	"github.com/andinosoft/contaflow/internal/pkg/usercontext"
	"github.com/andinosoft/contaflow/internal/pkg/wompi"
)

type updatePaymentStatusRequest struct {
	Status                string `json:"status"`
	ProviderTransactionID string `json:"provider_transaction_id"`
	FailureReason         string `json:"failure_reason"`
}

// HandleGetPayment returns a payment by reference, scoped to the caller's
// company. Staff may read any payment.
func HandleGetPayment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	reference := strings.TrimSpace(c.Params("reference"))

	payment, err := paymentService.GetByReference(c.Context(), reference)
	if err != nil {
		return renderError(c, err)
	}
	if payment.CompanyID != userCtx.CompanyID && !userCtx.IsStaff {
		// Hide existence of other tenants' payments.
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "payment not found"})
	}

	return c.JSON(fiber.Map{"payment": paymentJSON(payment)})
}

// HandleListPayments returns the caller company's payment history.
func HandleListPayments(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	list, err := repository.GetGlobalRepositories().Payment.ListByCompany(userCtx.CompanyID, offset, limit)
	if err != nil {
		log.Printf("payment list failed for company %d: %v", userCtx.CompanyID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "list failed"})
	}

	out := make([]fiber.Map, 0, len(list))
	for i := range list {
		out = append(out, paymentJSON(&list[i]))
	}
	return c.JSON(fiber.Map{"payments": out, "offset": offset, "limit": limit})
}

// HandleUpdatePaymentStatus applies a client-reported status transition. A
// reported COMPLETED is never trusted as-is: the transaction is re-read from
// the provider and completion only happens when the provider confirms
// approval.
func HandleUpdatePaymentStatus(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	reference := strings.TrimSpace(c.Params("reference"))

	var req updatePaymentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))

	existing, err := paymentService.GetByReference(c.Context(), reference)
	if err != nil {
		return renderError(c, err)
	}
	if existing.CompanyID != userCtx.CompanyID && !userCtx.IsStaff {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "payment not found"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if status == models.PaymentStatusCompleted {
		txID := strings.TrimSpace(req.ProviderTransactionID)
		if txID == "" {
			txID = existing.ProviderTransactionID
		}
		if txID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "provider_transaction_id required to confirm completion"})
		}

		tx, err := WompiClient().GetTransaction(ctx, txID)
		if err != nil {
			return renderError(c, err)
		}
		if tx.Reference != reference {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "transaction does not belong to this payment"})
		}
		if tx.Status != wompi.TxStatusApproved {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":           "conflict",
				"message":         "provider has not approved this transaction",
				"provider_status": tx.Status,
			})
		}

		payment, sub, err := paymentService.Complete(ctx, reference, tx.ID)
		if err != nil {
			return renderError(c, err)
		}
		return c.JSON(fiber.Map{"payment": paymentJSON(payment), "subscription": sub})
	}

	payment, err := paymentService.UpdateStatus(ctx, reference, status, payments.UpdateStatusOptions{
		ProviderTransactionID: strings.TrimSpace(req.ProviderTransactionID),
		FailureReason:         strings.TrimSpace(req.FailureReason),
	})
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(fiber.Map{"payment": paymentJSON(payment)})
}

// paymentJSON is the wire shape for a payment record.
func paymentJSON(p *models.Payment) fiber.Map {
	return fiber.Map{
		"id":                      p.ID,
		"company_id":              p.CompanyID,
		"reference":               p.Reference,
		"provider":                p.Provider,
		"provider_transaction_id": p.ProviderTransactionID,
		"status":                  p.Status,
		"amount_in_cents":         p.AmountInCents,
		"currency":                p.Currency,
		"payment_method":          p.PaymentMethod,
		"failure_reason":          p.FailureReason,
		"paid_at":                 formatTimePtr(p.PaidAt),
		"failed_at":               formatTimePtr(p.FailedAt),
		"created_at":              p.CreatedAt.Format(time.RFC3339),
	}
}
