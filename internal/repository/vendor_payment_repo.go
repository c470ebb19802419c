package repository

import (
	"context"

	"buildledger/internal/model"
	"buildledger/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VendorPaymentFilter struct {
	VendorID  *uuid.UUID
	ProjectID *uuid.UUID
	Page      int
	Limit     int
}

type VendorPaymentRepository interface {
	Create(ctx context.Context, payment *model.VendorPayment) error
	// UpdateAllocation persists the outcome of the allocator walk.
	UpdateAllocation(ctx context.Context, payment *model.VendorPayment) error
	List(ctx context.Context, filter VendorPaymentFilter) ([]model.VendorPayment, int64, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]model.VendorPayment, error)
}

type vendorPaymentRepository struct {
	db *gorm.DB
}

func NewVendorPaymentRepository(db *gorm.DB) VendorPaymentRepository {
	return &vendorPaymentRepository{db: db}
}

func (r *vendorPaymentRepository) Create(ctx context.Context, payment *model.VendorPayment) error {
	return GetDB(ctx, r.db).Omit("Vendor").Create(payment).Error
}

func (r *vendorPaymentRepository) UpdateAllocation(ctx context.Context, payment *model.VendorPayment) error {
	result := GetDB(ctx, r.db).Model(payment).
		Select("applied_to_expenses", "unapplied_amount", "updated_at").
		Updates(payment)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *vendorPaymentRepository) List(ctx context.Context, filter VendorPaymentFilter) ([]model.VendorPayment, int64, error) {
	var payments []model.VendorPayment
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.VendorID != nil {
			db = db.Where("vendor_id = ?", *filter.VendorID)
		}
		if filter.ProjectID != nil {
			db = db.Where("project_id = ?", *filter.ProjectID)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.VendorPayment{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetch := db.Preload("Vendor").Scopes(scope).Order("date DESC, created_at DESC")
	if err := fetch.Scopes(pagination.Scope(filter.Page, filter.Limit)).Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (r *vendorPaymentRepository) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]model.VendorPayment, error) {
	var payments []model.VendorPayment
	if err := GetDB(ctx, r.db).Where("vendor_id = ?", vendorID).
		Order("date DESC, created_at DESC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
