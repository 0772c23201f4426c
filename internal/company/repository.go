// File: internal/company/repository.go
package company

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AryanBhardwaj123/placement-tracker/internal/common"
)

// Repository defines the interface for company data operations.
type Repository interface {
	Create(ctx context.Context, company *Company) error
	FindByID(ctx context.Context, id uuid.UUID) (*Company, error)
	FindAll(ctx context.Context) ([]Company, error)
	FindWithDeadlineBetween(ctx context.Context, from, to time.Time) ([]Company, error)
	Update(ctx context.Context, company *Company) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM company repository and ensures
// the companies table exists.
func NewGORMRepository(db *gorm.DB) (Repository, error) {
	if err := db.AutoMigrate(&Company{}); err != nil {
		return nil, fmt.Errorf("failed to migrate companies table: %w", err)
	}
	return &gormRepository{db: db}, nil
}

func (r *gormRepository) Create(ctx context.Context, company *Company) error {
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(company).Error
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Company, error) {
	var company Company
	err := r.db.WithContext(ctx).First(&company, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Company not found")
		}
		return nil, err
	}
	return &company, nil
}

func (r *gormRepository) FindAll(ctx context.Context) ([]Company, error) {
	var companies []Company
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&companies).Error
	return companies, err
}

func (r *gormRepository) FindWithDeadlineBetween(ctx context.Context, from, to time.Time) ([]Company, error) {
	var companies []Company
	err := r.db.WithContext(ctx).
		Where("deadline IS NOT NULL AND deadline >= ? AND deadline <= ?", from, to).
		Order("deadline ASC").
		Find(&companies).Error
	return companies, err
}

func (r *gormRepository) Update(ctx context.Context, company *Company) error {
	return r.db.WithContext(ctx).Save(company).Error
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Company{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Company not found")
	}
	return nil
}
