package repository

import (
	"context"

	"buildledger/internal/model"
	"buildledger/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EditRequestRepository interface {
	Create(ctx context.Context, req *model.EditRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.EditRequest, error)
	// FindByIDForUpdate locks the request so two reviewers cannot process it.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.EditRequest, error)
	List(ctx context.Context, status string, page, limit int) ([]model.EditRequest, int64, error)
	Update(ctx context.Context, req *model.EditRequest) error
}

type editRequestRepository struct {
	db *gorm.DB
}

func NewEditRequestRepository(db *gorm.DB) EditRequestRepository {
	return &editRequestRepository{db: db}
}

func (r *editRequestRepository) Create(ctx context.Context, req *model.EditRequest) error {
	return GetDB(ctx, r.db).Omit("Requester", "Reviewer").Create(req).Error
}

func (r *editRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.EditRequest, error) {
	var req model.EditRequest
	if err := GetDB(ctx, r.db).Preload("Requester").Preload("Reviewer").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *editRequestRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.EditRequest, error) {
	var req model.EditRequest
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *editRequestRepository) List(ctx context.Context, status string, page, limit int) ([]model.EditRequest, int64, error) {
	var requests []model.EditRequest
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.EditRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetchQuery := db.Preload("Requester").Preload("Reviewer")
	if status != "" {
		fetchQuery = fetchQuery.Where("status = ?", status)
	}
	if err := fetchQuery.Scopes(pagination.Scope(page, limit)).Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func (r *editRequestRepository) Update(ctx context.Context, req *model.EditRequest) error {
	return GetDB(ctx, r.db).Omit("Requester", "Reviewer").Save(req).Error
}
