package repository

import (
	"context"
	"strings"

	"buildledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// paymentColumns are written only through UpdatePayment, never by a general
// edit.
var paymentColumns = []string{
	"vendor_payment_status",
	"vendor_paid_amount",
	"payments_by_source_bank",
	"payments_by_source_locker1",
	"payments_by_source_locker2",
}

type ExpenseRepository interface {
	Create(ctx context.Context, expense *model.Expense) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Expense, error)
	// FindByIDForUpdate locks the row until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Expense, error)
	List(ctx context.Context, filter RecordFilter) ([]model.Expense, int64, error)
	// Update saves every column except the vendor payment fields.
	Update(ctx context.Context, expense *model.Expense) error
	// UpdatePayment persists the vendor payment fields of one expense and
	// fails unless exactly that row was written.
	UpdatePayment(ctx context.Context, expense *model.Expense) error
	// ListForVendor returns the material expenses bought from v, oldest
	// first. Rows without a vendor id match by name inside v's project scope.
	// With forUpdate the rows stay locked until the transaction ends.
	ListForVendor(ctx context.Context, v *model.Vendor, projectID *uuid.UUID, forUpdate bool) ([]model.Expense, error)
	ListForContractor(ctx context.Context, c *model.Contractor) ([]model.Expense, error)
}

type expenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	return GetDB(ctx, r.db).Create(expense).Error
}

func (r *expenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	var expense model.Expense
	if err := GetDB(ctx, r.db).Preload("Project").First(&expense, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *expenseRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	var expense model.Expense
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).Preload("Project").
		First(&expense, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *expenseRepository) List(ctx context.Context, filter RecordFilter) ([]model.Expense, int64, error) {
	var expenses []model.Expense
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.ProjectID != nil {
			db = db.Where("project_id = ?", *filter.ProjectID)
		}
		if filter.Type != "" {
			db = db.Where("type = ?", filter.Type)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Expense{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := filter.paginate(db.Preload("Project").Scopes(scope)).
		Order("date DESC, created_at DESC").Find(&expenses).Error; err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}

func (r *expenseRepository) Update(ctx context.Context, expense *model.Expense) error {
	return GetDB(ctx, r.db).Omit(append([]string{"Project"}, paymentColumns...)...).Save(expense).Error
}

func (r *expenseRepository) UpdatePayment(ctx context.Context, expense *model.Expense) error {
	result := GetDB(ctx, r.db).Model(expense).Select(append(paymentColumns, "updated_at")).Updates(expense)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *expenseRepository) ListForVendor(ctx context.Context, v *model.Vendor, projectID *uuid.UUID, forUpdate bool) ([]model.Expense, error) {
	cond := "vendor_id = ? OR (vendor_id IS NULL AND LOWER(TRIM(vendor_name)) = ?"
	args := []any{v.ID, strings.ToLower(strings.TrimSpace(v.Name))}
	if v.ProjectID != nil {
		cond += " AND project_id = ?"
		args = append(args, *v.ProjectID)
	}
	cond += ")"

	query := GetDB(ctx, r.db).Where("type = ?", model.ExpenseMaterial).Where(cond, args...)
	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var expenses []model.Expense
	if err := query.Order("date ASC, created_at ASC, id ASC").Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *expenseRepository) ListForContractor(ctx context.Context, c *model.Contractor) ([]model.Expense, error) {
	cond := "contractor_id = ? OR (contractor_id IS NULL AND LOWER(TRIM(contractor_name)) = ?"
	args := []any{c.ID, strings.ToLower(strings.TrimSpace(c.Name))}
	if c.ProjectID != nil {
		cond += " AND project_id = ?"
		args = append(args, *c.ProjectID)
	}
	cond += ")"

	var expenses []model.Expense
	if err := GetDB(ctx, r.db).
		Where("type = ?", model.ExpenseLabor).
		Where(cond, args...).
		Order("date DESC, created_at DESC").
		Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}
