package models

import "time"

const (
	SubscriptionStatusTrial    = "trial"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusExpired  = "expired"
)

const (
	BillingCycleMonthly = "monthly"
	BillingCycleYearly  = "yearly"
)

// TrialDays is the registration trial window.
const TrialDays = 14

// Subscription is a company's current plan and billing state. There is at
// most one row per company. Status becomes "active" only through the payment
// lifecycle's completion step; cancel/reactivate flip CancelAtPeriodEnd
// without touching Status.
type Subscription struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	CompanyID          uint       `gorm:"not null;uniqueIndex" json:"company_id"`
	Plan               string     `gorm:"type:varchar(50);not null;default:'trial';index" json:"plan"`
	Status             string     `gorm:"type:varchar(32);not null;default:'trial';index" json:"status"`
	BillingCycle       string     `gorm:"type:varchar(16);not null;default:'monthly'" json:"billing_cycle"`
	CurrentPeriodStart *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	TrialEndsAt        *time.Time `gorm:"type:timestamp;default:null" json:"trial_ends_at,omitempty"`
	CancelAtPeriodEnd  bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CanceledAt         *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	ReportsUsed        int        `gorm:"not null;default:0" json:"reports_used"`
	ReportsLimit       int        `gorm:"not null;default:0" json:"reports_limit"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewTrialSubscription builds the subscription created at company
// registration: a 14-day trial with the given report allowance.
func NewTrialSubscription(companyID uint, reportsLimit int) *Subscription {
	trialEnd := time.Now().AddDate(0, 0, TrialDays)
	return &Subscription{
		CompanyID:    companyID,
		Plan:         "trial",
		Status:       SubscriptionStatusTrial,
		BillingCycle: BillingCycleMonthly,
		TrialEndsAt:  &trialEnd,
		ReportsLimit: reportsLimit,
	}
}

// IsTrial reports whether the subscription is inside its trial window.
func (s *Subscription) IsTrial() bool {
	return s.Status == SubscriptionStatusTrial &&
		s.TrialEndsAt != nil && s.TrialEndsAt.After(time.Now())
}

// IsUsable reports whether the company may currently use paid features:
// either an unexpired trial or an active subscription whose period has not
// lapsed.
func (s *Subscription) IsUsable() bool {
	if s.IsTrial() {
		return true
	}
	if s.Status != SubscriptionStatusActive {
		return false
	}
	return s.CurrentPeriodEnd == nil || s.CurrentPeriodEnd.After(time.Now())
}

// CanGenerateReport checks the usage counters. A negative limit means
// unlimited.
func (s *Subscription) CanGenerateReport() bool {
	if !s.IsUsable() {
		return false
	}
	if s.ReportsLimit < 0 {
		return true
	}
	return s.ReportsUsed < s.ReportsLimit
}
