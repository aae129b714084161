package controllers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/andinosoft/contaflow/app/repository"
	"github.com/andinosoft/contaflow/internal/pkg/payments"
	"github.com/andinosoft/contaflow/internal/pkg/plans"
	"github.com/andinosoft/contaflow/internal/pkg/usercontext"
	"github.com/andinosoft/contaflow/internal/pkg/wompi"
)

type checkoutRequest struct {
	PlanID        string `json:"plan_id"`
	BillingCycle  string `json:"billing_cycle"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method"`
	RedirectURL   string `json:"redirect_url"`
	LegalID       string `json:"legal_id"`
	LegalIDType   string `json:"legal_id_type"`
}

// HandleCheckout starts a payment for a plan: the pending record is created
// locally first, then the provider transaction.
func HandleCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}

	user, err := repository.GetGlobalRepositories().User.GetByID(userCtx.UserID)
	if err != nil {
		log.Printf("checkout user lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "checkout failed"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	payment, checkout, err := paymentService.Initiate(ctx, userCtx.CompanyID, payments.InitiateInput{
		PlanID:        req.PlanID,
		BillingCycle:  req.BillingCycle,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		CustomerEmail: user.Email,
		CustomerName:  user.Name,
		LegalID:       req.LegalID,
		LegalIDType:   req.LegalIDType,
		RedirectURL:   req.RedirectURL,
	})
	if err != nil {
		// The pending record may exist even when the provider call failed;
		// surface its reference so the client can poll or retry against it.
		if payment != nil {
			log.Printf("checkout for payment %s failed after persist: %v", payment.Reference, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":     "provider_error",
				"message":   "payment provider request failed",
				"reference": payment.Reference,
			})
		}
		return renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"payment":  paymentJSON(payment),
		"checkout": checkout,
	})
}

// HandleListPlans returns the plan catalog with COP price breakdowns.
func HandleListPlans(c *fiber.Ctx) error {
	type planView struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		MonthlyPrice int64  `json:"monthly_price"`
		YearlyPrice  int64  `json:"yearly_price"`
		ReportLimit  int    `json:"report_limit"`
		IVA          int64  `json:"iva"`
		TotalWithIVA int64  `json:"total_with_iva"`
	}

	all := plans.All()
	out := make([]planView, 0, len(all))
	for _, p := range all {
		out = append(out, planView{
			ID:           p.ID,
			Name:         p.Name,
			MonthlyPrice: p.MonthlyPrice,
			YearlyPrice:  p.YearlyPrice,
			ReportLimit:  p.ReportLimit,
			IVA:          wompi.CalculateIVA(p.MonthlyPrice, wompi.IVARate),
			TotalWithIVA: wompi.CalculateTotalWithIVA(p.MonthlyPrice, wompi.IVARate),
		})
	}
	return c.JSON(fiber.Map{"plans": out, "iva_rate": wompi.IVARate, "trial_days": 14})
}
