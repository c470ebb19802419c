package ledger

import (
	"testing"

	"buildledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	incomes := []model.Income{income("5000", bank), income("700", locker1)}

	qty := dec("20")
	cement := material("1000", bank)
	cement.MaterialName = "Cement"
	cement.MaterialUnit = "bag"
	cement.MaterialQuantity = &qty
	_, err := ApplyPayment(&cement, dec("400"), SourceBank)
	require.NoError(t, err)

	moreQty := dec("5")
	moreCement := material("250", locker1)
	moreCement.MaterialName = "Cement"
	moreCement.MaterialQuantity = &moreQty

	overhead := labor("300", locker1)
	overhead.Type = model.ExpenseFactoryOverhead

	expenses := []model.Expense{cement, moreCement, labor("600", bank), overhead}
	loans := []model.Loan{
		{AmountGiven: dec("1000"), AmountReturned: dec("400"), Status: model.LoanPartial},
		{AmountGiven: dec("200"), Status: model.LoanActive},
	}

	s := Summarize(incomes, expenses, loans)

	assert.True(t, dec("5700").Equal(s.Income.Total))
	assert.True(t, dec("5000").Equal(s.Income.Bank))
	assert.True(t, dec("700").Equal(s.Income.Cash))
	assert.Equal(t, 2, s.Income.Count)

	assert.True(t, dec("1300").Equal(s.Expenses.Total), "effective total %s", s.Expenses.Total)
	assert.True(t, dec("400").Equal(s.Expenses.ByType.Material))
	assert.True(t, dec("600").Equal(s.Expenses.ByType.Labor))
	assert.True(t, dec("300").Equal(s.Expenses.ByType.FactoryOverhead))
	assert.True(t, dec("1000").Equal(s.Expenses.ByMode.Bank))
	assert.True(t, dec("300").Equal(s.Expenses.ByMode.Cash))
	assert.Equal(t, 4, s.Expenses.Count)

	line := s.MaterialSummary["Cement"]
	assert.True(t, dec("25").Equal(line.Quantity))
	assert.True(t, dec("1250").Equal(line.TotalCost))
	assert.Equal(t, "bag", line.Unit)

	assert.True(t, dec("4000").Equal(s.CashPosition.Bank))
	assert.True(t, dec("400").Equal(s.CashPosition.Locker1))

	assert.True(t, dec("1200").Equal(s.Loans.TotalGiven))
	assert.True(t, dec("400").Equal(s.Loans.TotalReturned))
	assert.True(t, dec("800").Equal(s.Loans.Outstanding))
	assert.Equal(t, 1, s.Loans.ActiveCount)

	assert.True(t, dec("4400").Equal(s.Profit))
}
