package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	COMPANY_STATUS_ACTIVE   = "active"
	COMPANY_STATUS_INACTIVE = "inactive"
	COMPANY_STATUS_DISABLED = "disabled"
)

// Company is the tenant boundary. It owns users, exactly one subscription
// and any number of payments.
type Company struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=2,max=200"`
	NIT       string         `gorm:"column:nit;type:varchar(20);uniqueIndex" json:"nit" validate:"required,min=5,max=20"`
	Email     string         `gorm:"type:varchar(200)" json:"email" validate:"omitempty,email,max=200"`
	Phone     string         `gorm:"type:varchar(30);default:null" json:"phone" validate:"max=30"`
	Address   string         `gorm:"type:varchar(255);default:null" json:"address" validate:"max=255"`
	City      string         `gorm:"type:varchar(100);default:null" json:"city" validate:"max=100"`
	Status    string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Users        []User        `gorm:"foreignKey:CompanyID" json:"-"`
	Subscription *Subscription `gorm:"foreignKey:CompanyID" json:"-"`
	Payments     []Payment     `gorm:"foreignKey:CompanyID" json:"-"`
}

func (co *Company) Validate() error {
	v := validator.New()

	return v.Struct(co)
}

// IsActive reports whether the company may use the platform at all.
func (co *Company) IsActive() bool {
	return co.Status == COMPANY_STATUS_ACTIVE
}
