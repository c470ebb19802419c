package repository

import (
	"context"

	"buildledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Project, error)
	List(ctx context.Context, status string) ([]model.Project, error)
	Update(ctx context.Context, project *model.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
	// HasTransactions reports whether any income, expense, loan or vendor
	// payment references the project.
	HasTransactions(ctx context.Context, id uuid.UUID) (bool, error)
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *model.Project) error {
	return GetDB(ctx, r.db).Create(project).Error
}

func (r *projectRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	if err := GetDB(ctx, r.db).First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) List(ctx context.Context, status string) ([]model.Project, error) {
	var projects []model.Project
	query := GetDB(ctx, r.db)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *projectRepository) Update(ctx context.Context, project *model.Project) error {
	return GetDB(ctx, r.db).Save(project).Error
}

func (r *projectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Project{}).Error
}

func (r *projectRepository) HasTransactions(ctx context.Context, id uuid.UUID) (bool, error) {
	db := GetDB(ctx, r.db)
	checks := []struct {
		model  any
		column string
	}{
		{&model.Income{}, "project_id"},
		{&model.Expense{}, "project_id"},
		{&model.Loan{}, "project_id"},
		{&model.Loan{}, "linked_project_id"},
		{&model.VendorPayment{}, "project_id"},
	}
	for _, c := range checks {
		var count int64
		if err := db.Model(c.model).Where(c.column+" = ?", id).Limit(1).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}
