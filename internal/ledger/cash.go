package ledger

import (
	"buildledger/internal/model"

	"github.com/shopspring/decimal"
)

// CashPosition is the balance held in each funding source.
type CashPosition struct {
	Bank    decimal.Decimal `json:"bank"`
	Locker1 decimal.Decimal `json:"locker1"`
	Locker2 decimal.Decimal `json:"locker2"`
	Total   decimal.Decimal `json:"total"`
}

// Of returns the balance of one source.
func (p CashPosition) Of(src Source) decimal.Decimal {
	switch src {
	case SourceBank:
		return p.Bank
	case SourceLocker1:
		return p.Locker1
	case SourceLocker2:
		return p.Locker2
	}
	return decimal.Zero
}

// IncomeInflow is the part of an income record received into src.
func IncomeInflow(i *model.Income, src Source) decimal.Decimal {
	if src.Matches(i.FundingDetails) {
		return i.Amount
	}
	return decimal.Zero
}

// ExpenseOutflow is the part of an expense that left src.
//
// Material purchases prefer the counter for src, which follows vendor payments
// made from a different source than the one declared on the expense. When that
// counter is zero the payment status decides, counted only against the
// expense's own declared channel.
func ExpenseOutflow(e *model.Expense, src Source) decimal.Decimal {
	if !e.IsMaterial() {
		if src.Matches(e.FundingDetails) {
			return e.Amount
		}
		return decimal.Zero
	}

	if paid := PaidFrom(e, src); paid.IsPositive() {
		return paid
	}
	if !src.Matches(e.FundingDetails) {
		return decimal.Zero
	}
	switch e.VendorPaymentStatus {
	case model.VendorPaymentPartial:
		return decimal.Min(e.VendorPaidAmount, e.Amount)
	case model.VendorPaymentFull:
		return e.Amount
	default:
		return decimal.Zero
	}
}

// SourceBalance is income minus effective outflow for one source. Overdrafts
// come out negative.
func SourceBalance(incomes []model.Income, expenses []model.Expense, src Source) decimal.Decimal {
	balance := decimal.Zero
	for i := range incomes {
		balance = balance.Add(IncomeInflow(&incomes[i], src))
	}
	for i := range expenses {
		balance = balance.Sub(ExpenseOutflow(&expenses[i], src))
	}
	return balance
}

// CalculateCashPosition derives every source balance from the full record set.
func CalculateCashPosition(incomes []model.Income, expenses []model.Expense) CashPosition {
	pos := CashPosition{
		Bank:    SourceBalance(incomes, expenses, SourceBank),
		Locker1: SourceBalance(incomes, expenses, SourceLocker1),
		Locker2: SourceBalance(incomes, expenses, SourceLocker2),
	}
	pos.Total = pos.Bank.Add(pos.Locker1).Add(pos.Locker2)
	return pos
}
