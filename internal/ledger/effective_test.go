package ledger

import (
	"testing"

	"buildledger/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveAmount(t *testing.T) {
	tests := []struct {
		name    string
		expense func() model.Expense
		want    string
	}{
		{
			name:    "labor counts in full",
			expense: func() model.Expense { return labor("250", bank) },
			want:    "250",
		},
		{
			name: "petty cash counts in full",
			expense: func() model.Expense {
				e := labor("40", locker1)
				e.Type = model.ExpensePettyCash
				return e
			},
			want: "40",
		},
		{
			name:    "pending material counts nothing",
			expense: func() model.Expense { return material("500", bank) },
			want:    "0",
		},
		{
			name: "partial material counts paid amount",
			expense: func() model.Expense {
				e := material("500", bank)
				e.VendorPaymentStatus = model.VendorPaymentPartial
				e.VendorPaidAmount = dec("120")
				return e
			},
			want: "120",
		},
		{
			name: "full material is clamped to face amount",
			expense: func() model.Expense {
				e := material("500", bank)
				e.VendorPaymentStatus = model.VendorPaymentFull
				e.VendorPaidAmount = dec("650")
				return e
			},
			want: "500",
		},
		{
			name: "pending material ignores a stray paid amount",
			expense: func() model.Expense {
				e := material("500", bank)
				e.VendorPaidAmount = dec("100")
				return e
			},
			want: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.expense()
			got := EffectiveAmount(&e)
			assert.True(t, dec(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}
