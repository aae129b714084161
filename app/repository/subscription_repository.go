package repository

import (
	"time"

	"github.com/andinosoft/contaflow/app/models"
	"gorm.io/gorm"
)

// subscriptionRepository implements the SubscriptionRepository interface.
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *subscriptionRepository) GetByCompanyID(companyID uint) (*models.Subscription, error) {
	return r.GetByCompanyIDTx(r.db, companyID)
}

func (r *subscriptionRepository) GetByCompanyIDTx(tx *gorm.DB, companyID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := tx.Where("company_id = ?", companyID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) Save(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *subscriptionRepository) SaveTx(tx *gorm.DB, sub *models.Subscription) error {
	return tx.Save(sub).Error
}

// AddReportsUsed applies a batched usage increment from the counter flush.
func (r *subscriptionRepository) AddReportsUsed(companyID uint, n int) error {
	return r.db.Model(&models.Subscription{}).
		Where("company_id = ?", companyID).
		UpdateColumn("reports_used", gorm.Expr("reports_used + ?", n)).Error
}

// ExpireStaleTrials flips trial subscriptions whose window has lapsed to
// expired. Activation never resurrects them; only a completed payment does.
func (r *subscriptionRepository) ExpireStaleTrials(now time.Time) (int64, error) {
	res := r.db.Model(&models.Subscription{}).
		Where("status = ? AND trial_ends_at IS NOT NULL AND trial_ends_at < ?", models.SubscriptionStatusTrial, now).
		Updates(map[string]interface{}{"status": models.SubscriptionStatusExpired})
	return res.RowsAffected, res.Error
}

func (r *subscriptionRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Subscription{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
