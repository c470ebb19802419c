package repository

import (
	"context"

	"buildledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentHistoryRepository appends to and reads the per-expense payment trail.
type PaymentHistoryRepository interface {
	Create(ctx context.Context, entry *model.ExpensePaymentHistory) error
	ListByExpense(ctx context.Context, expenseID uuid.UUID) ([]model.ExpensePaymentHistory, error)
}

type paymentHistoryRepository struct {
	db *gorm.DB
}

func NewPaymentHistoryRepository(db *gorm.DB) PaymentHistoryRepository {
	return &paymentHistoryRepository{db: db}
}

func (r *paymentHistoryRepository) Create(ctx context.Context, entry *model.ExpensePaymentHistory) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *paymentHistoryRepository) ListByExpense(ctx context.Context, expenseID uuid.UUID) ([]model.ExpensePaymentHistory, error) {
	var entries []model.ExpensePaymentHistory
	if err := GetDB(ctx, r.db).Where("expense_id = ?", expenseID).
		Order("date ASC, created_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
