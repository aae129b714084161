package models

import (
	"time"

	"gorm.io/datatypes"
)

// Payment statuses follow the provider convention (upper case). PENDING is
// the only non-terminal state; a terminal state is never overwritten.
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusCanceled  = "CANCELED"
)

const (
	PaymentProviderWompi  = "wompi"
	PaymentProviderStripe = "stripe"
)

// Payment is one attempt to collect money from a company. Reference is the
// merchant-generated correlation key: unique, immutable and the only lookup
// path available to inbound webhook callers. ProviderTransactionID stays
// empty until the provider's creation call returns, so a PENDING row without
// one is a detectable partial state, not data loss.
type Payment struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	CompanyID             uint           `gorm:"not null;index" json:"company_id"`
	Reference             string         `gorm:"type:varchar(100);not null;uniqueIndex" json:"reference"`
	Provider              string         `gorm:"type:varchar(20);not null;index" json:"provider"`
	ProviderTransactionID string         `gorm:"type:varchar(191);default:'';index" json:"provider_transaction_id"`
	Status                string         `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	AmountInCents         int64          `gorm:"not null" json:"amount_in_cents"`
	Currency              string         `gorm:"type:varchar(3);not null" json:"currency"`
	PaymentMethod         string         `gorm:"type:varchar(50);default:''" json:"payment_method"`
	FailureReason         string         `gorm:"type:text" json:"failure_reason,omitempty"`
	Metadata              datatypes.JSON `gorm:"type:json" json:"metadata,omitempty"`
	PaidAt                *time.Time     `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	FailedAt              *time.Time     `gorm:"type:timestamp;default:null" json:"failed_at,omitempty"`
	CreatedAt             time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the status may never change again.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCanceled:
		return true
	default:
		return false
	}
}

// IsValidPaymentStatus reports whether s is one of the known statuses.
func IsValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCanceled:
		return true
	default:
		return false
	}
}
