package controllers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/andinosoft/contaflow/app/models"
	"github.com/andinosoft/contaflow/app/repository"
	"github.com/andinosoft/contaflow/internal/pkg/metrics/counter"
	"github.com/andinosoft/contaflow/internal/pkg/usercontext"
)

// HandleGetSubscription returns the caller company's subscription state.
func HandleGetSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	sub, err := repository.GetGlobalRepositories().Subscription.GetByCompanyID(userCtx.CompanyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "no subscription for this company"})
		}
		log.Printf("subscription lookup failed for company %d: %v", userCtx.CompanyID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "lookup failed"})
	}

	return c.JSON(fiber.Map{"subscription": subscriptionJSON(sub)})
}

// HandleCancelSubscription flags the subscription to lapse at period end.
// Access stays intact until then.
func HandleCancelSubscription(c *fiber.Ctx) error {
	return cancelSubscriptionForCompany(c, usercontext.GetCompanyID(c))
}

func cancelSubscriptionForCompany(c *fiber.Ctx, companyID uint) error {
	repos := repository.GetGlobalRepositories()

	sub, err := repos.Subscription.GetByCompanyID(companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "no subscription for this company"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "lookup failed"})
	}

	if sub.Status != models.SubscriptionStatusActive {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "only an active subscription can be canceled"})
	}
	if sub.CancelAtPeriodEnd {
		return c.JSON(fiber.Map{"subscription": subscriptionJSON(sub)})
	}

	now := time.Now()
	sub.CancelAtPeriodEnd = true
	sub.CanceledAt = &now
	if err := repos.Subscription.Save(sub); err != nil {
		log.Printf("subscription cancel failed for company %d: %v", companyID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "cancel failed"})
	}

	return c.JSON(fiber.Map{"subscription": subscriptionJSON(sub)})
}

// HandleReactivateSubscription undoes a pending cancellation before the
// period lapses.
func HandleReactivateSubscription(c *fiber.Ctx) error {
	return reactivateSubscriptionForCompany(c, usercontext.GetCompanyID(c))
}

func reactivateSubscriptionForCompany(c *fiber.Ctx, companyID uint) error {
	repos := repository.GetGlobalRepositories()

	sub, err := repos.Subscription.GetByCompanyID(companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "no subscription for this company"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "lookup failed"})
	}

	if !sub.CancelAtPeriodEnd {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "subscription is not scheduled for cancellation"})
	}
	if sub.Status != models.SubscriptionStatusActive {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "subscription period has already lapsed, start a new checkout"})
	}

	sub.CancelAtPeriodEnd = false
	sub.CanceledAt = nil
	if err := repos.Subscription.Save(sub); err != nil {
		log.Printf("subscription reactivate failed for company %d: %v", companyID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "reactivate failed"})
	}

	return c.JSON(fiber.Map{"subscription": subscriptionJSON(sub)})
}

// HandleConsumeReport checks the company's report allowance and counts one
// report generation against it. The DB counter is updated asynchronously by
// the flush worker.
func HandleConsumeReport(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	sub, err := repository.GetGlobalRepositories().Subscription.GetByCompanyID(userCtx.CompanyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "no subscription for this company"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "lookup failed"})
	}

	if !sub.CanGenerateReport() {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":         "report_limit_reached",
			"message":       "report allowance exhausted or subscription not usable",
			"reports_used":  sub.ReportsUsed,
			"reports_limit": sub.ReportsLimit,
		})
	}

	if err := counter.AddReportGenerated(userCtx.CompanyID); err != nil {
		log.Printf("report counter increment failed for company %d: %v", userCtx.CompanyID, err)
		// Fall back to a synchronous DB increment so usage is never lost.
		if err := repository.GetGlobalRepositories().Subscription.AddReportsUsed(userCtx.CompanyID, 1); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "usage tracking failed"})
		}
	}

	return c.JSON(fiber.Map{
		"ok":            true,
		"reports_used":  sub.ReportsUsed + 1,
		"reports_limit": sub.ReportsLimit,
	})
}

func subscriptionJSON(s *models.Subscription) fiber.Map {
	return fiber.Map{
		"id":                   s.ID,
		"company_id":           s.CompanyID,
		"plan":                 s.Plan,
		"status":               s.Status,
		"billing_cycle":        s.BillingCycle,
		"current_period_start": formatTimePtr(s.CurrentPeriodStart),
		"current_period_end":   formatTimePtr(s.CurrentPeriodEnd),
		"trial_ends_at":        formatTimePtr(s.TrialEndsAt),
		"cancel_at_period_end": s.CancelAtPeriodEnd,
		"canceled_at":          formatTimePtr(s.CanceledAt),
		"reports_used":         s.ReportsUsed,
		"reports_limit":        s.ReportsLimit,
		"is_usable":            s.IsUsable(),
	}
}
