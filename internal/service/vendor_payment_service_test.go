package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"buildledger/internal/apperror"
	"buildledger/internal/model"
	"buildledger/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPayment_FIFO(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProject(t, "Tower A")
	v := env.seedVendor(t, "Steel Co", &p.ID)
	e1 := env.seedMaterial(t, p.ID, v, "2024-01-01", "100")
	e2 := env.seedMaterial(t, p.ID, v, "2024-02-01", "200")

	res, err := env.payments.RecordPayment(ctx, env.accountant, RecordVendorPaymentRequest{
		VendorID:       v.ID.String(),
		Amount:         dec("150"),
		Date:           "2024-03-01",
		FundingRequest: bank(),
	})
	require.NoError(t, err)

	require.Len(t, res.Allocations, 2)
	assert.Equal(t, e1.ID, res.Allocations[0].ExpenseID)
	assertDecimal(t, "100", res.Allocations[0].Applied)
	assert.Equal(t, e2.ID, res.Allocations[1].ExpenseID)
	assertDecimal(t, "50", res.Allocations[1].Applied)
	assert.True(t, res.Payment.AppliedToExpenses)
	assertDecimal(t, "0", res.Payment.UnappliedAmount)
	assert.Equal(t, model.PaymentSourceManual, res.Payment.SourceType)

	got1 := env.reloadExpense(t, e1.ID)
	assert.Equal(t, model.VendorPaymentFull, got1.VendorPaymentStatus)
	assertDecimal(t, "100", got1.VendorPaidAmount)
	assertDecimal(t, "100", got1.PaymentsBySourceBank)

	got2 := env.reloadExpense(t, e2.ID)
	assert.Equal(t, model.VendorPaymentPartial, got2.VendorPaymentStatus)
	assertDecimal(t, "50", got2.VendorPaidAmount)
	assertDecimal(t, "50", got2.PaymentsBySourceBank)

	history, err := env.historyRepo.ListByExpense(ctx, e2.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assertDecimal(t, "50", history[0].Amount)
	require.NotNil(t, history[0].VendorPaymentID)
	assert.Equal(t, res.Payment.ID, *history[0].VendorPaymentID)

	assert.Equal(t, []string{EventVendorPaymentRecorded}, env.events.types())
	assert.Equal(t, int64(1), env.count(t, &model.AuditLog{}))
}

func TestRecordPayment_ExcessBecomesCredit(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProject(t, "Tower A")
	v := env.seedVendor(t, "Steel Co", &p.ID)
	e := env.seedMaterial(t, p.ID, v, "2024-01-01", "100")

	res, err := env.payments.RecordPayment(context.Background(), env.owner, RecordVendorPaymentRequest{
		VendorID:       v.ID.String(),
		Amount:         dec("150"),
		Date:           "2024-03-01",
		FundingRequest: locker(model.CashLocker1),
	})
	require.NoError(t, err)

	assertDecimal(t, "150", res.Payment.Amount)
	assert.True(t, res.Payment.AppliedToExpenses)
	assertDecimal(t, "50", res.Payment.UnappliedAmount)

	got := env.reloadExpense(t, e.ID)
	assert.Equal(t, model.VendorPaymentFull, got.VendorPaymentStatus)
	assertDecimal(t, "100", got.VendorPaidAmount)
	assertDecimal(t, "100", got.PaymentsBySourceLocker1)
	assertDecimal(t, "0", got.PaymentsBySourceBank)

	stored, err := env.paymentRepo.ListByVendor(context.Background(), v.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assertDecimal(t, "50", stored[0].UnappliedAmount)
}

func TestRecordPayment_NothingOutstanding(t *testing.T) {
	env := newTestEnv(t)
	v := env.seedVendor(t, "Cement Ltd", nil)

	res, err := env.payments.RecordPayment(context.Background(), env.owner, RecordVendorPaymentRequest{
		VendorID:       v.ID.String(),
		Amount:         dec("75"),
		Date:           "2024-03-01",
		FundingRequest: bank(),
	})
	require.NoError(t, err)

	assert.Empty(t, res.Allocations)
	assert.NotNil(t, res.Allocations)
	assert.False(t, res.Payment.AppliedToExpenses)
	assertDecimal(t, "75", res.Payment.UnappliedAmount)
	assert.Equal(t, int64(0), env.count(t, &model.ExpensePaymentHistory{}))
}

func TestRecordPayment_Validation(t *testing.T) {
	env := newTestEnv(t)
	v := env.seedVendor(t, "Cement Ltd", nil)

	tests := []struct {
		name string
		req  RecordVendorPaymentRequest
		kind apperror.Kind
	}{
		{
			name: "zero amount",
			req:  RecordVendorPaymentRequest{VendorID: v.ID.String(), Amount: dec("0"), Date: "2024-03-01", FundingRequest: bank()},
			kind: apperror.KindValidation,
		},
		{
			name: "cash without locker",
			req:  RecordVendorPaymentRequest{VendorID: v.ID.String(), Amount: dec("10"), Date: "2024-03-01", FundingRequest: FundingRequest{Mode: model.ModeCash}},
			kind: apperror.KindValidation,
		},
		{
			name: "bad date",
			req:  RecordVendorPaymentRequest{VendorID: v.ID.String(), Amount: dec("10"), Date: "03/01/2024", FundingRequest: bank()},
			kind: apperror.KindValidation,
		},
		{
			name: "unknown vendor",
			req:  RecordVendorPaymentRequest{VendorID: "8f0c6a4e-3d5b-4b59-9a43-6a3c1f0d2e11", Amount: dec("10"), Date: "2024-03-01", FundingRequest: bank()},
			kind: apperror.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.payments.RecordPayment(context.Background(), env.owner, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}
	assert.Equal(t, int64(0), env.count(t, &model.VendorPayment{}))
}

func TestRecordPayment_ConcurrentPaymentsNeverOverAllocate(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProject(t, "Tower A")
	v := env.seedVendor(t, "Steel Co", &p.ID)
	e1 := env.seedMaterial(t, p.ID, v, "2024-01-01", "100")
	e2 := env.seedMaterial(t, p.ID, v, "2024-01-15", "60")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.payments.RecordPayment(context.Background(), env.accountant, RecordVendorPaymentRequest{
				VendorID:       v.ID.String(),
				Amount:         dec("30"),
				Date:           "2024-03-01",
				FundingRequest: bank(),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got1 := env.reloadExpense(t, e1.ID)
	got2 := env.reloadExpense(t, e2.ID)
	assertDecimal(t, "100", got1.VendorPaidAmount)
	assertDecimal(t, "60", got2.VendorPaidAmount)
	assert.Equal(t, model.VendorPaymentFull, got1.VendorPaymentStatus)
	assert.Equal(t, model.VendorPaymentFull, got2.VendorPaymentStatus)

	payments, err := env.paymentRepo.ListByVendor(context.Background(), v.ID)
	require.NoError(t, err)
	require.Len(t, payments, workers)
	credit := dec("0")
	for _, pay := range payments {
		credit = credit.Add(pay.UnappliedAmount)
	}
	// 8 x 30 = 240 paid against 160 outstanding.
	assertDecimal(t, "80", credit)
}

// failingExpenseRepo fails the nth payment update.
type failingExpenseRepo struct {
	repository.ExpenseRepository
	failOn int
	calls  int
}

var errDiskFull = errors.New("disk full")

func (r *failingExpenseRepo) UpdatePayment(ctx context.Context, e *model.Expense) error {
	r.calls++
	if r.calls == r.failOn {
		return errDiskFull
	}
	return r.ExpenseRepository.UpdatePayment(ctx, e)
}

func TestRecordPayment_FailureRollsBackEverything(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProject(t, "Tower A")
	v := env.seedVendor(t, "Steel Co", &p.ID)
	e1 := env.seedMaterial(t, p.ID, v, "2024-01-01", "100")
	e2 := env.seedMaterial(t, p.ID, v, "2024-02-01", "200")

	svc := env.paymentService(&failingExpenseRepo{ExpenseRepository: env.expenseRepo, failOn: 2})
	_, err := svc.RecordPayment(context.Background(), env.owner, RecordVendorPaymentRequest{
		VendorID:       v.ID.String(),
		Amount:         dec("150"),
		Date:           "2024-03-01",
		FundingRequest: bank(),
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindTransaction, apperror.KindOf(err))
	assert.ErrorIs(t, err, errDiskFull)

	for _, id := range []any{e1.ID, e2.ID} {
		var e model.Expense
		require.NoError(t, env.db.First(&e, "id = ?", id).Error)
		assert.Equal(t, model.VendorPaymentPending, e.VendorPaymentStatus)
		assertDecimal(t, "0", e.VendorPaidAmount)
	}
	assert.Equal(t, int64(0), env.count(t, &model.VendorPayment{}))
	assert.Equal(t, int64(0), env.count(t, &model.ExpensePaymentHistory{}))
	assert.Equal(t, int64(0), env.count(t, &model.AuditLog{}))
	assert.Empty(t, env.events.types())
}

func TestListPayments(t *testing.T) {
	env := newTestEnv(t)
	v := env.seedVendor(t, "Cement Ltd", nil)
	other := env.seedVendor(t, "Bricks", nil)
	for _, vendor := range []string{v.ID.String(), v.ID.String(), other.ID.String()} {
		_, err := env.payments.RecordPayment(context.Background(), env.owner, RecordVendorPaymentRequest{
			VendorID: vendor, Amount: dec("10"), Date: "2024-03-01", FundingRequest: bank(),
		})
		require.NoError(t, err)
	}

	payments, total, err := env.payments.ListPayments(context.Background(), VendorPaymentFilter{VendorID: v.ID.String(), Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, payments, 2)

	_, _, err = env.payments.ListPayments(context.Background(), VendorPaymentFilter{VendorID: "nope"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}
