package service

import (
	"context"
	"encoding/json"
	"testing"

	"buildledger/internal/apperror"
	"buildledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func materialRequest(projectID string) CreateExpenseRequest {
	return CreateExpenseRequest{
		ProjectID:      projectID,
		Type:           "Material",
		Amount:         dec("100"),
		Date:           "2024-01-10",
		FundingRequest: bank(),
		MaterialName:   "cement",
		MaterialUnit:   "bag",
	}
}

func TestCreateExpense_SeededPaymentCreatesCompanion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProject(t, "Tower A")
	v := env.seedVendor(t, "Steel Co", &p.ID)

	req := materialRequest(p.ID.String())
	req.VendorName = "  steel co "
	req.VendorPaymentStatus = model.VendorPaymentPartial
	req.VendorPaidAmount = dec("40")

	resp, err := env.expenses.CreateExpense(ctx, env.accountant, req)
	require.NoError(t, err)

	assert.Equal(t, model.ExpenseMaterial, resp.Type)
	require.NotNil(t, resp.VendorID)
	assert.Equal(t, v.ID, *resp.VendorID)
	assert.Equal(t, "Steel Co", resp.VendorName)
	assert.Equal(t, model.VendorPaymentPartial, resp.VendorPaymentStatus)
	assertDecimal(t, "40", resp.VendorPaidAmount)
	assertDecimal(t, "40", resp.PaymentsBySourceBank)
	assertDecimal(t, "40", resp.EffectiveAmount)

	payments, err := env.paymentRepo.ListByVendor(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, model.PaymentSourceExpense, payments[0].SourceType)
	assert.True(t, payments[0].AppliedToExpenses)
	assertDecimal(t, "40", payments[0].Amount)
	assertDecimal(t, "0", payments[0].UnappliedAmount)

	detail, err := env.expenses.GetExpense(ctx, resp.ID.String())
	require.NoError(t, err)
	require.Len(t, detail.PaymentHistory, 1)
	require.NotNil(t, detail.PaymentHistory[0].VendorPaymentID)
	assert.Equal(t, payments[0].ID, *detail.PaymentHistory[0].VendorPaymentID)

	assert.Equal(t, []string{EventExpenseCreated}, env.events.types())
}

func TestCreateExpense_LegacyVendorNameKept(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProject(t, "Tower A")

	req := materialRequest(p.ID.String())
	req.VendorName = "Unknown Supplier"
	req.VendorPaymentStatus = model.VendorPaymentFull

	resp, err := env.expenses.CreateExpense(context.Background(), env.owner, req)
	require.NoError(t, err)

	assert.Nil(t, resp.VendorID)
	assert.Equal(t, "Unknown Supplier", resp.VendorName)
	assert.Equal(t, model.VendorPaymentFull, resp.VendorPaymentStatus)
	assertDecimal(t, "100", resp.EffectiveAmount)
	assert.Equal(t, int64(0), env.count(t, &model.VendorPayment{}))
	assert.Equal(t, int64(1), env.count(t, &model.ExpensePaymentHistory{}))
}

func TestCreateExpense_NonMaterialIgnoresPaymentFields(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProject(t, "Tower A")

	resp, err := env.expenses.CreateExpense(context.Background(), env.owner, CreateExpenseRequest{
		ProjectID:           p.ID.String(),
		Type:                "labor",
		Amount:              dec("250"),
		Date:                "2024-01-10",
		FundingRequest:      locker(model.CashLocker2),
		ContractorName:      "Ali Builders",
		VendorPaymentStatus: model.VendorPaymentFull,
	})
	require.NoError(t, err)

	assert.Equal(t, model.LaborDirect, resp.LaborType)
	assert.Equal(t, model.VendorPaymentPending, resp.VendorPaymentStatus)
	assertDecimal(t, "0", resp.VendorPaidAmount)
	assertDecimal(t, "250", resp.EffectiveAmount)
	assert.Equal(t, int64(0), env.count(t, &model.ExpensePaymentHistory{}))
}

func TestCreateExpense_Validation(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProject(t, "Tower A")

	tests := []struct {
		name   string
		mutate func(r *CreateExpenseRequest)
		kind   apperror.Kind
	}{
		{"negative amount", func(r *CreateExpenseRequest) { r.Amount = dec("-5") }, apperror.KindValidation},
		{"unknown type", func(r *CreateExpenseRequest) { r.Type = "fuel" }, apperror.KindValidation},
		{"bad mode", func(r *CreateExpenseRequest) { r.FundingRequest = FundingRequest{Mode: "cheque"} }, apperror.KindValidation},
		{"missing project", func(r *CreateExpenseRequest) { r.ProjectID = "6b2f3c1e-8a7d-4e0f-9b1c-2d3e4f5a6b7c" }, apperror.KindNotFound},
		{"missing vendor id", func(r *CreateExpenseRequest) { r.VendorID = "6b2f3c1e-8a7d-4e0f-9b1c-2d3e4f5a6b7c" }, apperror.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := materialRequest(p.ID.String())
			tt.mutate(&req)
			_, err := env.expenses.CreateExpense(context.Background(), env.owner, req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}
	assert.Equal(t, int64(0), env.count(t, &model.Expense{}))
}

func TestUpdateExpense(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProject(t, "Tower A")

	req := materialRequest(p.ID.String())
	req.VendorPaymentStatus = model.VendorPaymentFull
	created, err := env.expenses.CreateExpense(ctx, env.owner, req)
	require.NoError(t, err)
	id := created.ID.String()

	t.Run("accountant is forbidden", func(t *testing.T) {
		amount := dec("120")
		_, err := env.expenses.UpdateExpense(ctx, env.accountant, id, UpdateExpenseRequest{Amount: &amount})
		assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
	})

	t.Run("raising the amount reopens the payment", func(t *testing.T) {
		amount := dec("160")
		resp, err := env.expenses.UpdateExpense(ctx, env.owner, id, UpdateExpenseRequest{Amount: &amount})
		require.NoError(t, err)
		assert.Equal(t, model.VendorPaymentPartial, resp.VendorPaymentStatus)
		assertDecimal(t, "100", resp.EffectiveAmount)
	})

	t.Run("amount below paid is rejected", func(t *testing.T) {
		amount := dec("60")
		_, err := env.expenses.UpdateExpense(ctx, env.owner, id, UpdateExpenseRequest{Amount: &amount})
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

		got := env.reloadExpense(t, created.ID)
		assertDecimal(t, "160", got.Amount)
	})
}

func TestListExpenses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProject(t, "Tower A")

	for _, date := range []string{"2024-01-01", "2024-03-01", "2024-02-01"} {
		req := materialRequest(p.ID.String())
		req.Date = date
		_, err := env.expenses.CreateExpense(ctx, env.owner, req)
		require.NoError(t, err)
	}

	list, total, err := env.expenses.ListExpenses(ctx, ExpenseFilter{ProjectID: p.ID.String(), Type: "material", Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 2)
	assert.True(t, list[0].Date.Equal(day("2024-03-01")))
	assertDecimal(t, "0", list[0].EffectiveAmount)
}

func TestUpdateExpense_KeepsVendorPayments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProject(t, "Tower A")
	v := env.seedVendor(t, "Steel Co", &p.ID)
	e := env.seedMaterial(t, p.ID, v, "2024-01-01", "300")

	_, err := env.payments.RecordPayment(ctx, env.owner, RecordVendorPaymentRequest{
		VendorID:       v.ID.String(),
		Amount:         dec("120"),
		Date:           "2024-02-01",
		FundingRequest: locker(model.CashLocker1),
	})
	require.NoError(t, err)

	assertPaid := func(t *testing.T, status, paid string) {
		t.Helper()
		got := env.reloadExpense(t, e.ID)
		assert.Equal(t, status, got.VendorPaymentStatus)
		assertDecimal(t, paid, got.VendorPaidAmount)
		assertDecimal(t, "0", got.PaymentsBySourceBank)
		assertDecimal(t, "120", got.PaymentsBySourceLocker1)
		assertDecimal(t, "0", got.PaymentsBySourceLocker2)
	}

	t.Run("owner edit", func(t *testing.T) {
		desc := "rebar delivery"
		_, err := env.expenses.UpdateExpense(ctx, env.owner, e.ID.String(), UpdateExpenseRequest{Description: &desc})
		require.NoError(t, err)

		assert.Equal(t, "rebar delivery", env.reloadExpense(t, e.ID).Description)
		assertPaid(t, model.VendorPaymentPartial, "120")
	})

	t.Run("approved edit request", func(t *testing.T) {
		req, err := env.requests.CreateRequest(ctx, env.accountant, CreateEditRequestDTO{
			Collection: model.EditCollectionExpense,
			OriginalID: e.ID.String(),
			NewData:    json.RawMessage(`{"description": "rebar, second load", "material_name": "rebar"}`),
		})
		require.NoError(t, err)
		_, err = env.requests.ApproveRequest(ctx, env.owner, req.ID.String())
		require.NoError(t, err)

		got := env.reloadExpense(t, e.ID)
		assert.Equal(t, "rebar, second load", got.Description)
		assert.Equal(t, "rebar", got.MaterialName)
		assertPaid(t, model.VendorPaymentPartial, "120")
	})

	t.Run("repricing persists the derived status", func(t *testing.T) {
		amount := dec("120")
		_, err := env.expenses.UpdateExpense(ctx, env.owner, e.ID.String(), UpdateExpenseRequest{Amount: &amount})
		require.NoError(t, err)

		assertDecimal(t, "120", env.reloadExpense(t, e.ID).Amount)
		assertPaid(t, model.VendorPaymentFull, "120")
	})
}

