package controllers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/andinosoft/contaflow/app/repository"
	"github.com/andinosoft/contaflow/internal/pkg/jobqueue"
	"github.com/andinosoft/contaflow/internal/pkg/metrics/counter"
	"github.com/andinosoft/contaflow/internal/pkg/statistics"
)

// HandleAdminListCompanies returns all registered companies (staff only).
func HandleAdminListCompanies(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	repos := repository.GetGlobalRepositories()
	companies, err := repos.Company.List(offset, limit)
	if err != nil {
		log.Printf("admin company list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "list failed"})
	}
	total, err := repos.Company.Count()
	if err != nil {
		log.Printf("admin company count failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "list failed"})
	}

	return c.JSON(fiber.Map{"companies": companies, "total": total, "offset": offset, "limit": limit})
}

// HandleAdminListPayments returns payments across all companies (staff only).
func HandleAdminListPayments(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	list, err := repository.GetGlobalRepositories().Payment.List(offset, limit)
	if err != nil {
		log.Printf("admin payment list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "list failed"})
	}

	out := make([]fiber.Map, 0, len(list))
	for i := range list {
		out = append(out, paymentJSON(&list[i]))
	}
	return c.JSON(fiber.Map{"payments": out, "offset": offset, "limit": limit})
}

// HandleAdminCancelSubscription schedules cancellation for any company's
// subscription (staff only).
func HandleAdminCancelSubscription(c *fiber.Ctx) error {
	companyID, err := c.ParamsInt("id")
	if err != nil || companyID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid company id"})
	}
	return cancelSubscriptionForCompany(c, uint(companyID))
}

// HandleAdminReactivateSubscription undoes a scheduled cancellation for any
// company's subscription (staff only).
func HandleAdminReactivateSubscription(c *fiber.Ctx) error {
	companyID, err := c.ParamsInt("id")
	if err != nil || companyID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid company id"})
	}
	return reactivateSubscriptionForCompany(c, uint(companyID))
}

// HandleAdminStats returns cached platform aggregates plus live job queue
// state (staff only).
func HandleAdminStats(c *fiber.Ctx) error {
	stats := statistics.GetStatistics()

	queue := jobqueue.GetManager().GetQueue()
	ctx := context.Background()
	queueSize, _ := queue.GetQueueSize(ctx)
	processingSize, _ := queue.GetProcessingSize(ctx)
	jobStats, _ := queue.GetJobStats(ctx)
	apiUsage, _ := counter.APIRequestTotals()

	return c.JSON(fiber.Map{
		"statistics":   stats,
		"api_requests": apiUsage,
		"jobs": fiber.Map{
			"pending":    queueSize,
			"processing": processingSize,
			"stats":      jobStats,
		},
	})
}
