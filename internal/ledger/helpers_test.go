package ledger

import (
	"time"

	"buildledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

var (
	bank    = model.FundingDetails{Mode: model.ModeBank}
	locker1 = model.FundingDetails{Mode: model.ModeCash, CashLocation: model.CashLocker1}
	locker2 = model.FundingDetails{Mode: model.ModeCash, CashLocation: model.CashLocker2}
)

func material(amount string, funding model.FundingDetails) model.Expense {
	return model.Expense{
		ID:                  uuid.New(),
		Type:                model.ExpenseMaterial,
		Amount:              dec(amount),
		FundingDetails:      funding,
		VendorPaymentStatus: model.VendorPaymentPending,
	}
}

func labor(amount string, funding model.FundingDetails) model.Expense {
	return model.Expense{
		ID:             uuid.New(),
		Type:           model.ExpenseLabor,
		Amount:         dec(amount),
		FundingDetails: funding,
	}
}

func income(amount string, funding model.FundingDetails) model.Income {
	return model.Income{ID: uuid.New(), Amount: dec(amount), FundingDetails: funding}
}

func counterSum(e *model.Expense) decimal.Decimal {
	return e.PaymentsBySourceBank.Add(e.PaymentsBySourceLocker1).Add(e.PaymentsBySourceLocker2)
}
