package ledger

import (
	"buildledger/internal/model"

	"github.com/shopspring/decimal"
)

// VendorBalance is what a vendor has supplied against what it has been paid.
// Credit is manual payment money that found no outstanding expense.
type VendorBalance struct {
	TotalPurchased decimal.Decimal `json:"total_purchased"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	Credit         decimal.Decimal `json:"credit"`
	Balance        decimal.Decimal `json:"balance"`
}

// ComputeVendorBalance resolves every expense reference against v before
// summing, so legacy name-only rows count toward the right vendor.
func ComputeVendorBalance(v *model.Vendor, expenses []model.Expense, payments []model.VendorPayment) VendorBalance {
	var b VendorBalance
	paid := decimal.Zero
	for i := range expenses {
		e := &expenses[i]
		if !BelongsToVendor(e, v) {
			continue
		}
		b.TotalPurchased = b.TotalPurchased.Add(e.Amount)
		paid = paid.Add(clamp(e.VendorPaidAmount, decimal.Zero, e.Amount))
	}
	for i := range payments {
		p := &payments[i]
		if p.VendorID != v.ID || p.SourceType != model.PaymentSourceManual {
			continue
		}
		b.Credit = b.Credit.Add(p.UnappliedAmount)
	}
	b.TotalPaid = paid.Add(b.Credit)
	b.Balance = b.TotalPurchased.Sub(b.TotalPaid)
	return b
}

// ContractorBalance is the agreed amount against labor actually paid.
type ContractorBalance struct {
	AgreedAmount decimal.Decimal `json:"agreed_amount"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	Balance      decimal.Decimal `json:"balance"`
}

func ComputeContractorBalance(c *model.Contractor, expenses []model.Expense) ContractorBalance {
	b := ContractorBalance{AgreedAmount: c.AgreedAmount}
	for i := range expenses {
		e := &expenses[i]
		if BelongsToContractor(e, c) {
			b.TotalPaid = b.TotalPaid.Add(EffectiveAmount(e))
		}
	}
	b.Balance = b.AgreedAmount.Sub(b.TotalPaid)
	return b
}
