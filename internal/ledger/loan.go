package ledger

import (
	"errors"
	"time"

	"buildledger/internal/model"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeReturn = errors.New("amount_returned cannot be negative")
	ErrOverReturn     = errors.New("amount_returned cannot exceed amount_given")
)

// LoanStatus derives the status of a loan from what has come back.
func LoanStatus(given, returned decimal.Decimal) string {
	switch {
	case returned.IsPositive() && returned.GreaterThanOrEqual(given):
		return model.LoanReturned
	case returned.IsPositive():
		return model.LoanPartial
	default:
		return model.LoanActive
	}
}

// ApplyReturn sets the cumulative returned amount of a loan.
func ApplyReturn(l *model.Loan, amountReturned decimal.Decimal, dateReturned *time.Time) error {
	if amountReturned.IsNegative() {
		return ErrNegativeReturn
	}
	if amountReturned.GreaterThan(l.AmountGiven) {
		return ErrOverReturn
	}
	l.AmountReturned = amountReturned
	if dateReturned != nil {
		d := *dateReturned
		l.DateReturned = &d
	}
	l.Status = LoanStatus(l.AmountGiven, l.AmountReturned)
	return nil
}

// MirrorLoan copies the shared terms and return state of an inter-project loan
// onto its linked row.
func MirrorLoan(from, to *model.Loan) {
	to.BorrowerName = from.BorrowerName
	to.AmountGiven = from.AmountGiven
	to.DateGiven = from.DateGiven
	to.Description = from.Description
	to.AmountReturned = from.AmountReturned
	to.DateReturned = from.DateReturned
	to.Status = from.Status
}
