package plans

import (
	"strings"
	"time"

	"github.com/andinosoft/contaflow/app/models"
)

// Plan describes a purchasable tier. Prices are in COP pesos (not provider
// cents); ReportLimit < 0 means unlimited.
type Plan struct {
	ID           string
	Name         string
	MonthlyPrice int64
	YearlyPrice  int64
	ReportLimit  int
}

const (
	PlanStarter      = "starter"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// TrialReportLimit is the allowance granted to trial subscriptions.
const TrialReportLimit = 10

var catalog = map[string]Plan{
	PlanStarter: {
		ID:           PlanStarter,
		Name:         "Starter",
		MonthlyPrice: 250000,
		YearlyPrice:  2500000,
		ReportLimit:  50,
	},
	PlanProfessional: {
		ID:           PlanProfessional,
		Name:         "Professional",
		MonthlyPrice: 650000,
		YearlyPrice:  6500000,
		ReportLimit:  200,
	},
	PlanEnterprise: {
		ID:           PlanEnterprise,
		Name:         "Enterprise",
		MonthlyPrice: 1500000,
		YearlyPrice:  15000000,
		ReportLimit:  -1,
	},
}

// ByID resolves a plan id to its catalog entry.
func ByID(id string) (Plan, bool) {
	p, ok := catalog[strings.ToLower(strings.TrimSpace(id))]
	return p, ok
}

// All returns the catalog in rank order.
func All() []Plan {
	return []Plan{catalog[PlanStarter], catalog[PlanProfessional], catalog[PlanEnterprise]}
}

// Price returns the plan price for a billing cycle, in COP pesos.
func (p Plan) Price(cycle string) int64 {
	if NormalizeCycle(cycle) == models.BillingCycleYearly {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}

// NormalizeCycle maps arbitrary input to a known billing cycle, defaulting
// to monthly.
func NormalizeCycle(cycle string) string {
	switch strings.ToLower(strings.TrimSpace(cycle)) {
	case models.BillingCycleYearly:
		return models.BillingCycleYearly
	default:
		return models.BillingCycleMonthly
	}
}

// ExtendPeriod returns the end of one billing cycle starting at from.
func ExtendPeriod(from time.Time, cycle string) time.Time {
	if NormalizeCycle(cycle) == models.BillingCycleYearly {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

// Rank orders plans for upgrade/downgrade comparisons; unknown plans rank
// below starter.
func Rank(id string) int {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case PlanEnterprise:
		return 3
	case PlanProfessional:
		return 2
	case PlanStarter:
		return 1
	default:
		return 0
	}
}
