package ledger

import (
	"buildledger/internal/model"

	"github.com/shopspring/decimal"
)

// EffectiveAmount returns the part of an expense that counts as money spent.
// Labor, overhead and petty cash are spent in full when recorded. A material
// purchase only counts what has actually been paid to the vendor.
func EffectiveAmount(e *model.Expense) decimal.Decimal {
	if !e.IsMaterial() {
		return e.Amount
	}
	switch e.VendorPaymentStatus {
	case model.VendorPaymentPartial, model.VendorPaymentFull:
		return clamp(e.VendorPaidAmount, decimal.Zero, e.Amount)
	default:
		return decimal.Zero
	}
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
