package ledger

import (
	"buildledger/internal/model"

	"github.com/shopspring/decimal"
)

type IncomeTotals struct {
	Total decimal.Decimal `json:"total"`
	Bank  decimal.Decimal `json:"bank"`
	Cash  decimal.Decimal `json:"cash"`
	Count int             `json:"count"`
}

type ExpenseByType struct {
	Material        decimal.Decimal `json:"material"`
	Labor           decimal.Decimal `json:"labor"`
	FactoryOverhead decimal.Decimal `json:"factory_overhead"`
	PettyCash       decimal.Decimal `json:"petty_cash"`
}

type ExpenseByMode struct {
	Bank decimal.Decimal `json:"bank"`
	Cash decimal.Decimal `json:"cash"`
}

// ExpenseTotals are effective amounts, not face values.
type ExpenseTotals struct {
	Total  decimal.Decimal `json:"total"`
	ByType ExpenseByType   `json:"by_type"`
	ByMode ExpenseByMode   `json:"by_mode"`
	Count  int             `json:"count"`
}

type MaterialLine struct {
	Quantity  decimal.Decimal `json:"quantity"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Unit      string          `json:"unit"`
}

type LoanTotals struct {
	TotalGiven    decimal.Decimal `json:"total_given"`
	TotalReturned decimal.Decimal `json:"total_returned"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	ActiveCount   int             `json:"active_count"`
}

// Summary is the owner's financial overview of one project or all projects.
type Summary struct {
	Income          IncomeTotals            `json:"income"`
	Expenses        ExpenseTotals           `json:"expenses"`
	MaterialSummary map[string]MaterialLine `json:"material_summary"`
	CashPosition    CashPosition            `json:"cash_position"`
	Loans           LoanTotals              `json:"loans"`
	Profit          decimal.Decimal         `json:"profit"`
}

// Summarize aggregates the record set in scope. It holds no state, so calling
// it twice on the same records gives the same result.
func Summarize(incomes []model.Income, expenses []model.Expense, loans []model.Loan) Summary {
	s := Summary{MaterialSummary: make(map[string]MaterialLine)}

	for i := range incomes {
		inc := &incomes[i]
		s.Income.Total = s.Income.Total.Add(inc.Amount)
		switch inc.Mode {
		case model.ModeBank:
			s.Income.Bank = s.Income.Bank.Add(inc.Amount)
		case model.ModeCash:
			s.Income.Cash = s.Income.Cash.Add(inc.Amount)
		}
	}
	s.Income.Count = len(incomes)

	for i := range expenses {
		e := &expenses[i]
		spent := EffectiveAmount(e)
		s.Expenses.Total = s.Expenses.Total.Add(spent)

		switch e.Type {
		case model.ExpenseMaterial:
			s.Expenses.ByType.Material = s.Expenses.ByType.Material.Add(spent)
		case model.ExpenseLabor:
			s.Expenses.ByType.Labor = s.Expenses.ByType.Labor.Add(spent)
		case model.ExpenseFactoryOverhead:
			s.Expenses.ByType.FactoryOverhead = s.Expenses.ByType.FactoryOverhead.Add(spent)
		case model.ExpensePettyCash:
			s.Expenses.ByType.PettyCash = s.Expenses.ByType.PettyCash.Add(spent)
		}
		switch e.Mode {
		case model.ModeBank:
			s.Expenses.ByMode.Bank = s.Expenses.ByMode.Bank.Add(spent)
		case model.ModeCash:
			s.Expenses.ByMode.Cash = s.Expenses.ByMode.Cash.Add(spent)
		}

		if e.IsMaterial() && (e.MaterialName != "" || e.MaterialQuantity != nil) {
			line, ok := s.MaterialSummary[e.MaterialName]
			if !ok {
				line.Unit = e.MaterialUnit
			}
			if e.MaterialQuantity != nil {
				line.Quantity = line.Quantity.Add(*e.MaterialQuantity)
			}
			line.TotalCost = line.TotalCost.Add(e.Amount)
			s.MaterialSummary[e.MaterialName] = line
		}
	}
	s.Expenses.Count = len(expenses)

	s.CashPosition = CalculateCashPosition(incomes, expenses)

	for i := range loans {
		l := &loans[i]
		s.Loans.TotalGiven = s.Loans.TotalGiven.Add(l.AmountGiven)
		s.Loans.TotalReturned = s.Loans.TotalReturned.Add(l.AmountReturned)
		if l.Status == model.LoanActive {
			s.Loans.ActiveCount++
		}
	}
	s.Loans.Outstanding = s.Loans.TotalGiven.Sub(s.Loans.TotalReturned)

	s.Profit = s.Income.Total.Sub(s.Expenses.Total)
	return s
}
