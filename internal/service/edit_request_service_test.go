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

func TestEditRequest_ApproveAppliesEdit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProject(t, "Tower A")

	income, err := env.income.CreateIncome(ctx, env.accountant, CreateIncomeRequest{
		ProjectID: p.ID.String(), Amount: dec("100"), Date: "2024-01-01", FundingRequest: bank(),
	})
	require.NoError(t, err)

	req, err := env.requests.CreateRequest(ctx, env.accountant, CreateEditRequestDTO{
		Collection: model.EditCollectionIncome,
		OriginalID: income.ID.String(),
		NewData:    json.RawMessage(`{"amount": "250", "description": "corrected"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, model.EditPending, req.Status)
	require.NotNil(t, req.ProjectID)
	assert.Equal(t, p.ID, *req.ProjectID)

	_, _, err = env.requests.ListRequests(ctx, env.accountant, "", 1, 10)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	pending, total, err := env.requests.ListRequests(ctx, env.owner, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, pending, 1)

	approved, err := env.requests.ApproveRequest(ctx, env.owner, req.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.EditApproved, approved.Status)
	require.NotNil(t, approved.ReviewedAt)

	got, err := env.income.GetIncome(ctx, income.ID.String())
	require.NoError(t, err)
	assertDecimal(t, "250", got.Amount)
	assert.Equal(t, "corrected", got.Description)

	_, err = env.requests.ApproveRequest(ctx, env.owner, req.ID.String())
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	assert.Equal(t, "request already processed", apperror.Message(err))

	_, err = env.requests.RejectRequest(ctx, env.owner, req.ID.String(), "late")
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestEditRequest_FailedEditLeavesRequestPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProject(t, "Tower A")

	req := materialRequest(p.ID.String())
	req.VendorPaymentStatus = model.VendorPaymentFull
	expense, err := env.expenses.CreateExpense(ctx, env.owner, req)
	require.NoError(t, err)

	edit, err := env.requests.CreateRequest(ctx, env.accountant, CreateEditRequestDTO{
		Collection: model.EditCollectionExpense,
		OriginalID: expense.ID.String(),
		NewData:    json.RawMessage(`{"amount": 50}`),
	})
	require.NoError(t, err)

	_, err = env.requests.ApproveRequest(ctx, env.owner, edit.ID.String())
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	stored, err := env.requestRepo.FindByID(ctx, edit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EditPending, stored.Status)
	assertDecimal(t, "100", env.reloadExpense(t, expense.ID).Amount)

	rejected, err := env.requests.RejectRequest(ctx, env.owner, edit.ID.String(), "  below paid  ")
	require.NoError(t, err)
	assert.Equal(t, model.EditRejected, rejected.Status)
	assert.Equal(t, "below paid", rejected.RejectionReason)
}

func TestEditRequest_LoanEditMirrorsPair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lender := env.seedProject(t, "Tower A")
	borrower := env.seedProject(t, "Villa B")

	pair, err := env.loans.CreateLoan(ctx, env.owner, CreateLoanRequest{
		ProjectID: lender.ID.String(), LoanType: model.LoanInterProject,
		LinkedProjectID: borrower.ID.String(), AmountGiven: dec("1000"), DateGiven: "2024-02-01",
	})
	require.NoError(t, err)

	edit, err := env.requests.CreateRequest(ctx, env.accountant, CreateEditRequestDTO{
		Collection: model.EditCollectionLoan,
		OriginalID: pair[1].ID.String(),
		NewData:    json.RawMessage(`{"description": "bridge funding"}`),
	})
	require.NoError(t, err)
	_, err = env.requests.ApproveRequest(ctx, env.owner, edit.ID.String())
	require.NoError(t, err)

	var payable model.Loan
	require.NoError(t, env.db.First(&payable, "id = ?", pair[0].ID).Error)
	assert.Equal(t, "bridge funding", payable.Description)
}

func TestEditRequest_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProject(t, "Tower A")
	income, err := env.income.CreateIncome(ctx, env.owner, CreateIncomeRequest{
		ProjectID: p.ID.String(), Amount: dec("100"), Date: "2024-01-01", FundingRequest: bank(),
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		dto  CreateEditRequestDTO
		kind apperror.Kind
	}{
		{"not an object", CreateEditRequestDTO{Collection: model.EditCollectionIncome, OriginalID: income.ID.String(), NewData: json.RawMessage(`[1]`)}, apperror.KindValidation},
		{"empty object", CreateEditRequestDTO{Collection: model.EditCollectionIncome, OriginalID: income.ID.String(), NewData: json.RawMessage(`{}`)}, apperror.KindValidation},
		{"unknown field", CreateEditRequestDTO{Collection: model.EditCollectionIncome, OriginalID: income.ID.String(), NewData: json.RawMessage(`{"amout": 5}`)}, apperror.KindValidation},
		{"unknown collection", CreateEditRequestDTO{Collection: "Vendor", OriginalID: income.ID.String(), NewData: json.RawMessage(`{"name": "x"}`)}, apperror.KindValidation},
		{"missing record", CreateEditRequestDTO{Collection: model.EditCollectionExpense, OriginalID: income.ID.String(), NewData: json.RawMessage(`{"amount": 5}`)}, apperror.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.requests.CreateRequest(ctx, env.accountant, tt.dto)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}
	assert.Equal(t, int64(0), env.count(t, &model.EditRequest{}))
}
