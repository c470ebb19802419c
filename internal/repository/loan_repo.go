package repository

import (
	"context"

	"buildledger/internal/model"
	"buildledger/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// loanSharedColumns are mirrored between the two rows of an inter-project loan.
var loanSharedColumns = []string{
	"borrower_name",
	"amount_given",
	"date_given",
	"amount_returned",
	"date_returned",
	"status",
	"description",
	"updated_at",
}

type LoanFilter struct {
	ProjectID *uuid.UUID
	LoanType  string
	Direction string
	Page      int
	Limit     int
}

type LoanRepository interface {
	Create(ctx context.Context, loan *model.Loan) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Loan, error)
	// FindByIDForUpdate locks the row until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Loan, error)
	List(ctx context.Context, filter LoanFilter) ([]model.Loan, int64, error)
	// UpdateTerms writes the shared columns of one row and returns how many
	// rows were affected.
	UpdateTerms(ctx context.Context, loan *model.Loan) (int64, error)
	SetLinkedLoan(ctx context.Context, id, linkedID uuid.UUID) error
}

type loanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *model.Loan) error {
	return GetDB(ctx, r.db).Omit("Project", "LinkedProject").Create(loan).Error
}

func (r *loanRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	var loan model.Loan
	if err := GetDB(ctx, r.db).Preload("Project").Preload("LinkedProject").First(&loan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	var loan model.Loan
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&loan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context, filter LoanFilter) ([]model.Loan, int64, error) {
	var loans []model.Loan
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.ProjectID != nil {
			db = db.Where("project_id = ?", *filter.ProjectID)
		}
		if filter.LoanType != "" {
			db = db.Where("loan_type = ?", filter.LoanType)
		}
		if filter.Direction != "" {
			db = db.Where("direction = ?", filter.Direction)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Loan{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetch := db.Preload("Project").Preload("LinkedProject").Scopes(scope).Order("date_given DESC, created_at DESC")
	if err := fetch.Scopes(pagination.Scope(filter.Page, filter.Limit)).Find(&loans).Error; err != nil {
		return nil, 0, err
	}
	return loans, total, nil
}

func (r *loanRepository) UpdateTerms(ctx context.Context, loan *model.Loan) (int64, error) {
	result := GetDB(ctx, r.db).Model(loan).Select(loanSharedColumns).Updates(loan)
	return result.RowsAffected, result.Error
}

func (r *loanRepository) SetLinkedLoan(ctx context.Context, id, linkedID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.Loan{}).Where("id = ?", id).Update("linked_loan_id", linkedID).Error
}
