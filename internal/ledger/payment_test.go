package ledger

import (
	"testing"

	"buildledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	assert.Equal(t, model.VendorPaymentPending, DeriveStatus(dec("0"), dec("100")))
	assert.Equal(t, model.VendorPaymentPartial, DeriveStatus(dec("0.01"), dec("100")))
	assert.Equal(t, model.VendorPaymentPartial, DeriveStatus(dec("99.99"), dec("100")))
	assert.Equal(t, model.VendorPaymentFull, DeriveStatus(dec("100"), dec("100")))
}

func TestApplyPayment(t *testing.T) {
	t.Run("increments counter of the paying source", func(t *testing.T) {
		e := material("300", bank)

		applied, err := ApplyPayment(&e, dec("100"), SourceLocker1)
		require.NoError(t, err)
		assert.True(t, dec("100").Equal(applied))
		assert.True(t, dec("100").Equal(e.PaymentsBySourceLocker1))
		assert.True(t, e.PaymentsBySourceBank.IsZero())
		assert.Equal(t, model.VendorPaymentPartial, e.VendorPaymentStatus)

		applied, err = ApplyPayment(&e, dec("500"), SourceBank)
		require.NoError(t, err)
		assert.True(t, dec("200").Equal(applied), "capped at outstanding")
		assert.True(t, dec("300").Equal(e.VendorPaidAmount))
		assert.Equal(t, model.VendorPaymentFull, e.VendorPaymentStatus)
		assert.True(t, counterSum(&e).Equal(e.VendorPaidAmount))
	})

	t.Run("fully paid expense takes nothing", func(t *testing.T) {
		e := material("50", bank)
		_, err := ApplyPayment(&e, dec("50"), SourceBank)
		require.NoError(t, err)

		applied, err := ApplyPayment(&e, dec("10"), SourceBank)
		require.NoError(t, err)
		assert.True(t, applied.IsZero())
		assert.True(t, dec("50").Equal(e.VendorPaidAmount))
	})

	t.Run("non material is untouched", func(t *testing.T) {
		e := labor("80", bank)
		applied, err := ApplyPayment(&e, dec("10"), SourceBank)
		require.NoError(t, err)
		assert.True(t, applied.IsZero())
		assert.True(t, e.VendorPaidAmount.IsZero())
	})

	t.Run("unknown source is rejected", func(t *testing.T) {
		e := material("80", bank)
		_, err := ApplyPayment(&e, dec("10"), Source("vault"))
		assert.ErrorIs(t, err, ErrInvalidSource)
		assert.True(t, e.VendorPaidAmount.IsZero())
	})
}

func TestSeedPayment(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		requested  string
		wantPaid   string
		wantStatus string
	}{
		{"full pays face amount", model.VendorPaymentFull, "0", "400", model.VendorPaymentFull},
		{"partial pays requested", model.VendorPaymentPartial, "150", "150", model.VendorPaymentPartial},
		{"partial is clamped to amount", model.VendorPaymentPartial, "900", "400", model.VendorPaymentFull},
		{"partial below zero pays nothing", model.VendorPaymentPartial, "-20", "0", model.VendorPaymentPending},
		{"pending pays nothing", model.VendorPaymentPending, "150", "0", model.VendorPaymentPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := material("400", locker2)
			_, err := SeedPayment(&e, tt.status, dec(tt.requested), SourceLocker2)
			require.NoError(t, err)
			assert.True(t, dec(tt.wantPaid).Equal(e.VendorPaidAmount), "paid %s", e.VendorPaidAmount)
			assert.Equal(t, tt.wantStatus, e.VendorPaymentStatus)
			assert.True(t, counterSum(&e).Equal(e.VendorPaidAmount))
			assert.True(t, e.PaymentsBySourceLocker2.Equal(e.VendorPaidAmount))
		})
	}

	t.Run("non material keeps zero payment state", func(t *testing.T) {
		e := labor("400", bank)
		_, err := SeedPayment(&e, model.VendorPaymentFull, dec("0"), SourceBank)
		require.NoError(t, err)
		assert.True(t, e.VendorPaidAmount.IsZero())
		assert.True(t, counterSum(&e).IsZero())
	})
}

func TestReprice(t *testing.T) {
	e := material("100", bank)
	_, err := ApplyPayment(&e, dec("100"), SourceBank)
	require.NoError(t, err)

	require.NoError(t, Reprice(&e, dec("160")))
	assert.Equal(t, model.VendorPaymentPartial, e.VendorPaymentStatus)
	assert.True(t, dec("100").Equal(e.VendorPaidAmount))

	assert.ErrorIs(t, Reprice(&e, dec("90")), ErrBelowPaid)
	assert.ErrorIs(t, Reprice(&e, dec("0")), ErrNonPositiveAmount)
	assert.True(t, dec("160").Equal(e.Amount))
}
