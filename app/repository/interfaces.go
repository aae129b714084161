package repository

import (
	"time"

	"github.com/andinosoft/contaflow/app/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error)
	Update(user *models.User) error
	ListByCompany(companyID uint) ([]models.User, error)
	Count() (int64, error)
}

// CompanyRepository defines the interface for company-related database operations
type CompanyRepository interface {
	Create(company *models.Company) error
	GetByID(id uint) (*models.Company, error)
	GetByNIT(nit string) (*models.Company, error)
	Update(company *models.Company) error
	List(offset, limit int) ([]models.Company, error)
	Count() (int64, error)
}

// PaymentRepository is the payment record store. GetByReference is the only
// lookup path usable by inbound webhook callers; UpdateByReference never
// creates a row as a side effect.
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetByReference(reference string) (*models.Payment, error)
	GetByReferenceTx(tx *gorm.DB, reference string) (*models.Payment, error)
	UpdateByReference(reference string, fields map[string]interface{}) (*models.Payment, error)
	AttachProviderResult(id uint, providerTransactionID string, metadata datatypes.JSON) error
	// CompletePending applies fields only to a row still in PENDING and
	// returns the number of rows affected, allowing callers to detect a lost
	// completion race without a second round trip.
	CompletePending(tx *gorm.DB, reference string, fields map[string]interface{}) (int64, error)
	ListByCompany(companyID uint, offset, limit int) ([]models.Payment, error)
	ListStalePending(olderThan time.Time, limit int) ([]models.Payment, error)
	List(offset, limit int) ([]models.Payment, error)
	CountByStatus(status string) (int64, error)
	SumCompletedAmount() (int64, error)
}

// SubscriptionRepository defines the interface for subscription state.
type SubscriptionRepository interface {
	Create(sub *models.Subscription) error
	GetByCompanyID(companyID uint) (*models.Subscription, error)
	GetByCompanyIDTx(tx *gorm.DB, companyID uint) (*models.Subscription, error)
	Save(sub *models.Subscription) error
	SaveTx(tx *gorm.DB, sub *models.Subscription) error
	AddReportsUsed(companyID uint, n int) error
	ExpireStaleTrials(now time.Time) (int64, error)
	CountByStatus(status string) (int64, error)
}

// WebhookEventRepository persists inbound webhook payloads idempotently.
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkProcessed(id uint, processingError string) error
	MarkArchived(id uint) error
	GetByID(id uint) (*models.PaymentWebhookEvent, error)
}

// Repositories holds all repository instances
type Repositories struct {
	User         UserRepository
	Company      CompanyRepository
	Payment      PaymentRepository
	Subscription SubscriptionRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Company:      NewCompanyRepository(db),
		Payment:      NewPaymentRepository(db),
		Subscription: NewSubscriptionRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}
