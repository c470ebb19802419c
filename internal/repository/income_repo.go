package repository

import (
	"context"

	"buildledger/internal/model"
	"buildledger/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordFilter narrows income and expense listings. A zero Limit returns every
// matching row.
type RecordFilter struct {
	ProjectID *uuid.UUID
	Type      string // expenses only
	Page      int
	Limit     int
}

func (f RecordFilter) paginate(db *gorm.DB) *gorm.DB {
	return db.Scopes(pagination.Scope(f.Page, f.Limit))
}

type IncomeRepository interface {
	Create(ctx context.Context, income *model.Income) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Income, error)
	List(ctx context.Context, filter RecordFilter) ([]model.Income, int64, error)
	Update(ctx context.Context, income *model.Income) error
}

type incomeRepository struct {
	db *gorm.DB
}

func NewIncomeRepository(db *gorm.DB) IncomeRepository {
	return &incomeRepository{db: db}
}

func (r *incomeRepository) Create(ctx context.Context, income *model.Income) error {
	return GetDB(ctx, r.db).Create(income).Error
}

func (r *incomeRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Income, error) {
	var income model.Income
	if err := GetDB(ctx, r.db).Preload("Project").First(&income, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &income, nil
}

func (r *incomeRepository) List(ctx context.Context, filter RecordFilter) ([]model.Income, int64, error) {
	var incomes []model.Income
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Income{})
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetch := db.Preload("Project")
	if filter.ProjectID != nil {
		fetch = fetch.Where("project_id = ?", *filter.ProjectID)
	}
	if err := filter.paginate(fetch).Order("date DESC, created_at DESC").Find(&incomes).Error; err != nil {
		return nil, 0, err
	}
	return incomes, total, nil
}

func (r *incomeRepository) Update(ctx context.Context, income *model.Income) error {
	return GetDB(ctx, r.db).Omit("Project", "EnteredBy").Save(income).Error
}
