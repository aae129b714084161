package repository

import (
	"time"

	"github.com/andinosoft/contaflow/app/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// paymentRepository implements the PaymentRepository interface.
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *paymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) GetByReference(reference string) (*models.Payment, error) {
	return r.GetByReferenceTx(r.db, reference)
}

func (r *paymentRepository) GetByReferenceTx(tx *gorm.DB, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := tx.Where("reference = ?", reference).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdateByReference applies partial fields to an existing payment. It fails
// with gorm.ErrRecordNotFound when no row matches and never inserts one.
func (r *paymentRepository) UpdateByReference(reference string, fields map[string]interface{}) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Where("reference = ?", reference).First(&payment).Error; err != nil {
		return nil, err
	}

	if err := r.db.Model(&models.Payment{}).
		Where("reference = ?", reference).
		Updates(fields).Error; err != nil {
		return nil, err
	}

	if err := r.db.Where("reference = ?", reference).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// AttachProviderResult stores the provider transaction id and the normalized
// provider payload after the remote creation call returns.
func (r *paymentRepository) AttachProviderResult(id uint, providerTransactionID string, metadata datatypes.JSON) error {
	updates := map[string]interface{}{
		"provider_transaction_id": providerTransactionID,
	}
	if metadata != nil {
		updates["metadata"] = metadata
	}
	return r.db.Model(&models.Payment{}).Where("id = ?", id).Updates(updates).Error
}

// CompletePending is the conditional half of the completion check-and-set:
// the update matches only a row still in PENDING, so concurrent completions
// resolve to exactly one winner at the database.
func (r *paymentRepository) CompletePending(tx *gorm.DB, reference string, fields map[string]interface{}) (int64, error) {
	res := tx.Model(&models.Payment{}).
		Where("reference = ? AND status = ?", reference, models.PaymentStatusPending).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *paymentRepository) ListByCompany(companyID uint, offset, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("company_id = ?", companyID).
		Order("created_at desc").Offset(offset).Limit(limit).Find(&payments).Error
	return payments, err
}

// ListStalePending returns PENDING payments created before the given cutoff;
// the reconcile worker polls the provider for these.
func (r *paymentRepository) ListStalePending(olderThan time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("status = ? AND created_at < ?", models.PaymentStatusPending, olderThan).
		Order("created_at asc").Limit(limit).Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) List(offset, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Order("created_at desc").Offset(offset).Limit(limit).Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// SumCompletedAmount returns total collected revenue in provider cents.
func (r *paymentRepository) SumCompletedAmount() (int64, error) {
	var sum *int64
	err := r.db.Model(&models.Payment{}).
		Select("SUM(amount_in_cents)").
		Where("status = ?", models.PaymentStatusCompleted).
		Scan(&sum).Error
	if err != nil || sum == nil {
		return 0, err
	}
	return *sum, nil
}
