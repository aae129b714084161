package repository

import (
	"github.com/andinosoft/contaflow/app/models"
	"gorm.io/gorm"
)

// companyRepository implements the CompanyRepository interface
type companyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a new company repository instance
func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) Create(company *models.Company) error {
	return r.db.Create(company).Error
}

func (r *companyRepository) GetByID(id uint) (*models.Company, error) {
	var company models.Company
	err := r.db.First(&company, id).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) GetByNIT(nit string) (*models.Company, error) {
	var company models.Company
	err := r.db.Where("nit = ?", nit).First(&company).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) Update(company *models.Company) error {
	return r.db.Save(company).Error
}

func (r *companyRepository) List(offset, limit int) ([]models.Company, error) {
	var companies []models.Company
	err := r.db.Order("id asc").Offset(offset).Limit(limit).Find(&companies).Error
	return companies, err
}

func (r *companyRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Company{}).Count(&count).Error
	return count, err
}
