package repository

import (
	"context"
	"strings"

	"buildledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PartyFilter narrows vendor and contractor listings. With a ProjectID set,
// IncludeGeneral also returns parties that belong to no project.
type PartyFilter struct {
	ProjectID      *uuid.UUID
	IncludeGeneral bool
}

func (f PartyFilter) apply(db *gorm.DB) *gorm.DB {
	if f.ProjectID == nil {
		return db
	}
	if f.IncludeGeneral {
		return db.Where("project_id = ? OR project_id IS NULL", *f.ProjectID)
	}
	return db.Where("project_id = ?", *f.ProjectID)
}

// scopeByName matches a party name case-insensitively inside one project
// scope; a nil project is the general scope.
func scopeByName(db *gorm.DB, name string, projectID *uuid.UUID) *gorm.DB {
	db = db.Where("LOWER(TRIM(name)) = ?", strings.ToLower(strings.TrimSpace(name)))
	if projectID == nil {
		return db.Where("project_id IS NULL")
	}
	return db.Where("project_id = ?", *projectID)
}

type VendorRepository interface {
	Create(ctx context.Context, vendor *model.Vendor) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error)
	FindByName(ctx context.Context, name string, projectID *uuid.UUID) (*model.Vendor, error)
	List(ctx context.Context, filter PartyFilter) ([]model.Vendor, error)
	Update(ctx context.Context, vendor *model.Vendor) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type vendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{db: db}
}

func (r *vendorRepository) Create(ctx context.Context, vendor *model.Vendor) error {
	return GetDB(ctx, r.db).Create(vendor).Error
}

func (r *vendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error) {
	var vendor model.Vendor
	if err := GetDB(ctx, r.db).First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepository) FindByName(ctx context.Context, name string, projectID *uuid.UUID) (*model.Vendor, error) {
	var vendor model.Vendor
	if err := scopeByName(GetDB(ctx, r.db), name, projectID).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepository) List(ctx context.Context, filter PartyFilter) ([]model.Vendor, error) {
	var vendors []model.Vendor
	if err := filter.apply(GetDB(ctx, r.db)).Order("name ASC").Find(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

func (r *vendorRepository) Update(ctx context.Context, vendor *model.Vendor) error {
	return GetDB(ctx, r.db).Save(vendor).Error
}

func (r *vendorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Vendor{}).Error
}

type ContractorRepository interface {
	Create(ctx context.Context, contractor *model.Contractor) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Contractor, error)
	FindByName(ctx context.Context, name string, projectID *uuid.UUID) (*model.Contractor, error)
	List(ctx context.Context, filter PartyFilter) ([]model.Contractor, error)
	Update(ctx context.Context, contractor *model.Contractor) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type contractorRepository struct {
	db *gorm.DB
}

func NewContractorRepository(db *gorm.DB) ContractorRepository {
	return &contractorRepository{db: db}
}

func (r *contractorRepository) Create(ctx context.Context, contractor *model.Contractor) error {
	return GetDB(ctx, r.db).Create(contractor).Error
}

func (r *contractorRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Contractor, error) {
	var contractor model.Contractor
	if err := GetDB(ctx, r.db).First(&contractor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &contractor, nil
}

func (r *contractorRepository) FindByName(ctx context.Context, name string, projectID *uuid.UUID) (*model.Contractor, error) {
	var contractor model.Contractor
	if err := scopeByName(GetDB(ctx, r.db), name, projectID).First(&contractor).Error; err != nil {
		return nil, err
	}
	return &contractor, nil
}

func (r *contractorRepository) List(ctx context.Context, filter PartyFilter) ([]model.Contractor, error) {
	var contractors []model.Contractor
	if err := filter.apply(GetDB(ctx, r.db)).Order("name ASC").Find(&contractors).Error; err != nil {
		return nil, err
	}
	return contractors, nil
}

func (r *contractorRepository) Update(ctx context.Context, contractor *model.Contractor) error {
	return GetDB(ctx, r.db).Save(contractor).Error
}

func (r *contractorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Contractor{}).Error
}
