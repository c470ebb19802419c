package ledger

import (
	"errors"

	"buildledger/internal/model"

	"github.com/shopspring/decimal"
)

// ErrBelowPaid is returned when a material expense would be repriced under the
// amount already paid to its vendor.
var ErrBelowPaid = errors.New("amount cannot be lower than the amount already paid to the vendor")

// DeriveStatus maps a paid amount onto the vendor payment status.
func DeriveStatus(paid, amount decimal.Decimal) string {
	switch {
	case !paid.IsPositive():
		return model.VendorPaymentPending
	case paid.GreaterThanOrEqual(amount):
		return model.VendorPaymentFull
	default:
		return model.VendorPaymentPartial
	}
}

// Outstanding is what is still owed to the vendor on a material expense.
func Outstanding(e *model.Expense) decimal.Decimal {
	if !e.IsMaterial() {
		return decimal.Zero
	}
	rest := e.Amount.Sub(e.VendorPaidAmount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// PaidFrom returns the part of the vendor payments on e that came from src.
func PaidFrom(e *model.Expense, src Source) decimal.Decimal {
	switch src {
	case SourceBank:
		return e.PaymentsBySourceBank
	case SourceLocker1:
		return e.PaymentsBySourceLocker1
	case SourceLocker2:
		return e.PaymentsBySourceLocker2
	}
	return decimal.Zero
}

// ApplyPayment is the only mutator of the vendor payment fields. It pays up to
// amount against the outstanding balance of e from src, keeps the per-source
// counters summing to the paid amount, re-derives the status and returns what
// was applied.
func ApplyPayment(e *model.Expense, amount decimal.Decimal, src Source) (decimal.Decimal, error) {
	if !e.IsMaterial() || !amount.IsPositive() {
		return decimal.Zero, nil
	}
	if !src.valid() {
		return decimal.Zero, ErrInvalidSource
	}
	applied := decimal.Min(Outstanding(e), amount)
	if !applied.IsPositive() {
		return decimal.Zero, nil
	}

	e.VendorPaidAmount = e.VendorPaidAmount.Add(applied)
	switch src {
	case SourceBank:
		e.PaymentsBySourceBank = e.PaymentsBySourceBank.Add(applied)
	case SourceLocker1:
		e.PaymentsBySourceLocker1 = e.PaymentsBySourceLocker1.Add(applied)
	case SourceLocker2:
		e.PaymentsBySourceLocker2 = e.PaymentsBySourceLocker2.Add(applied)
	}
	e.VendorPaymentStatus = DeriveStatus(e.VendorPaidAmount, e.Amount)
	return applied, nil
}

// SeedPayment initializes the payment fields of a new expense from what the
// user declared at entry time: full pays the whole amount, partial pays the
// requested amount clamped to [0, amount], anything else pays nothing.
func SeedPayment(e *model.Expense, requestedStatus string, requestedPaid decimal.Decimal, src Source) (decimal.Decimal, error) {
	e.VendorPaidAmount = decimal.Zero
	e.PaymentsBySourceBank = decimal.Zero
	e.PaymentsBySourceLocker1 = decimal.Zero
	e.PaymentsBySourceLocker2 = decimal.Zero
	e.VendorPaymentStatus = model.VendorPaymentPending

	if !e.IsMaterial() {
		return decimal.Zero, nil
	}

	target := decimal.Zero
	switch requestedStatus {
	case model.VendorPaymentFull:
		target = e.Amount
	case model.VendorPaymentPartial:
		target = clamp(requestedPaid, decimal.Zero, e.Amount)
	}
	return ApplyPayment(e, target, src)
}

// Reprice changes the face amount of an expense. Material expenses keep their
// paid amount and get their status re-derived.
func Reprice(e *model.Expense, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if e.IsMaterial() && amount.LessThan(e.VendorPaidAmount) {
		return ErrBelowPaid
	}
	e.Amount = amount
	if e.IsMaterial() {
		e.VendorPaymentStatus = DeriveStatus(e.VendorPaidAmount, e.Amount)
	}
	return nil
}
