package ledger

import (
	"sort"

	"buildledger/internal/model"

	"github.com/shopspring/decimal"
)

// Allocation is the slice of a vendor payment applied to one expense.
type Allocation struct {
	Expense *model.Expense
	Applied decimal.Decimal
}

// AllocateFIFO walks the material expenses of one vendor oldest first (by
// transaction date, then entry time) and pays each outstanding balance from
// amount until it runs out. Expenses are mutated in place. The returned
// remainder is what could not be applied.
func AllocateFIFO(expenses []*model.Expense, amount decimal.Decimal, src Source) ([]Allocation, decimal.Decimal, error) {
	if !amount.IsPositive() {
		return nil, amount, ErrNonPositiveAmount
	}
	if !src.valid() {
		return nil, amount, ErrInvalidSource
	}

	ordered := make([]*model.Expense, len(expenses))
	copy(ordered, expenses)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	var allocations []Allocation
	remaining := amount
	for _, e := range ordered {
		if !remaining.IsPositive() {
			break
		}
		if !Outstanding(e).IsPositive() {
			continue
		}
		applied, err := ApplyPayment(e, remaining, src)
		if err != nil {
			return nil, amount, err
		}
		allocations = append(allocations, Allocation{Expense: e, Applied: applied})
		remaining = remaining.Sub(applied)
	}
	return allocations, remaining, nil
}
