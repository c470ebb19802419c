package service

import (
	"context"
	"testing"

	"buildledger/internal/apperror"
	"buildledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterProjectLoanMirroring(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lender := env.seedProject(t, "Tower A")
	borrower := env.seedProject(t, "Villa B")

	pair, err := env.loans.CreateLoan(ctx, env.owner, CreateLoanRequest{
		ProjectID:       lender.ID.String(),
		LoanType:        model.LoanInterProject,
		LinkedProjectID: borrower.ID.String(),
		AmountGiven:     dec("1000"),
		DateGiven:       "2024-02-01",
	})
	require.NoError(t, err)
	require.Len(t, pair, 2)

	payable, receivable := pair[0], pair[1]
	assert.Equal(t, model.LoanPayable, payable.Direction)
	assert.Equal(t, lender.ID, payable.ProjectID)
	assert.Equal(t, model.LoanReceivable, receivable.Direction)
	assert.Equal(t, borrower.ID, receivable.ProjectID)
	assert.Equal(t, "Villa B", payable.BorrowerName)
	require.NotNil(t, payable.LinkedLoanID)
	require.NotNil(t, receivable.LinkedLoanID)
	assert.Equal(t, receivable.ID, *payable.LinkedLoanID)
	assert.Equal(t, payable.ID, *receivable.LinkedLoanID)

	steps := []struct {
		via      model.Loan
		amount   string
		status   string
		returned string
	}{
		{payable, "400", model.LoanPartial, "400"},
		{receivable, "1000", model.LoanReturned, "1000"},
		{payable, "0", model.LoanActive, "0"},
	}
	for _, step := range steps {
		loan, err := env.loans.RecordReturn(ctx, env.accountant, step.via.ID.String(), ReturnLoanRequest{
			AmountReturned: dec(step.amount),
			DateReturned:   "2024-03-01",
		})
		require.NoError(t, err)
		assert.Equal(t, step.status, loan.Status)

		for _, id := range []any{payable.ID, receivable.ID} {
			var stored model.Loan
			require.NoError(t, env.db.First(&stored, "id = ?", id).Error)
			assert.Equal(t, step.status, stored.Status, "after returning %s", step.amount)
			assertDecimal(t, step.returned, stored.AmountReturned)
			assertDecimal(t, "1000", stored.AmountGiven)
		}
	}

	// Direction survives mirroring.
	var stored model.Loan
	require.NoError(t, env.db.First(&stored, "id = ?", receivable.ID).Error)
	assert.Equal(t, model.LoanReceivable, stored.Direction)
	assert.Equal(t, borrower.ID, stored.ProjectID)
}

func TestRecordReturn_Bounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProject(t, "Tower A")

	loans, err := env.loans.CreateLoan(ctx, env.owner, CreateLoanRequest{
		ProjectID:    p.ID.String(),
		BorrowerName: "Mr. Karim",
		AmountGiven:  dec("500"),
		DateGiven:    "2024-02-01",
	})
	require.NoError(t, err)
	require.Len(t, loans, 1)
	id := loans[0].ID.String()
	assert.Equal(t, model.LoanExternal, loans[0].LoanType)

	_, err = env.loans.RecordReturn(ctx, env.owner, id, ReturnLoanRequest{AmountReturned: dec("600")})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = env.loans.RecordReturn(ctx, env.owner, id, ReturnLoanRequest{AmountReturned: dec("-1")})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	loan, err := env.loans.RecordReturn(ctx, env.owner, id, ReturnLoanRequest{AmountReturned: dec("500")})
	require.NoError(t, err)
	assert.Equal(t, model.LoanReturned, loan.Status)
	assert.Nil(t, loan.DateReturned)
}

func TestCreateLoan_Validation(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProject(t, "Tower A")

	tests := []struct {
		name string
		req  CreateLoanRequest
		kind apperror.Kind
	}{
		{
			name: "external without borrower",
			req:  CreateLoanRequest{ProjectID: p.ID.String(), AmountGiven: dec("10"), DateGiven: "2024-01-01"},
			kind: apperror.KindValidation,
		},
		{
			name: "lending to itself",
			req: CreateLoanRequest{ProjectID: p.ID.String(), LoanType: model.LoanInterProject,
				LinkedProjectID: p.ID.String(), AmountGiven: dec("10"), DateGiven: "2024-01-01"},
			kind: apperror.KindValidation,
		},
		{
			name: "unknown linked project",
			req: CreateLoanRequest{ProjectID: p.ID.String(), LoanType: model.LoanInterProject,
				LinkedProjectID: "0d1e2f3a-4b5c-4d6e-8f70-8192a3b4c5d6", AmountGiven: dec("10"), DateGiven: "2024-01-01"},
			kind: apperror.KindNotFound,
		},
		{
			name: "zero amount",
			req:  CreateLoanRequest{ProjectID: p.ID.String(), BorrowerName: "X", AmountGiven: dec("0"), DateGiven: "2024-01-01"},
			kind: apperror.KindValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.loans.CreateLoan(context.Background(), env.owner, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}
	assert.Equal(t, int64(0), env.count(t, &model.Loan{}))
}

func TestUpdateLoan_MirrorsPair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lender := env.seedProject(t, "Tower A")
	borrower := env.seedProject(t, "Villa B")

	pair, err := env.loans.CreateLoan(ctx, env.owner, CreateLoanRequest{
		ProjectID:       lender.ID.String(),
		LoanType:        model.LoanInterProject,
		LinkedProjectID: borrower.ID.String(),
		AmountGiven:     dec("1000"),
		DateGiven:       "2024-02-01",
	})
	require.NoError(t, err)
	_, err = env.loans.RecordReturn(ctx, env.owner, pair[0].ID.String(), ReturnLoanRequest{AmountReturned: dec("1000")})
	require.NoError(t, err)

	amount := dec("1500")
	note := "top-up"
	_, err = env.loans.UpdateLoan(ctx, env.accountant, pair[0].ID.String(), UpdateLoanRequest{AmountGiven: &amount})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	loan, err := env.loans.UpdateLoan(ctx, env.owner, pair[0].ID.String(), UpdateLoanRequest{AmountGiven: &amount, Description: &note})
	require.NoError(t, err)
	assert.Equal(t, model.LoanPartial, loan.Status)

	var other model.Loan
	require.NoError(t, env.db.First(&other, "id = ?", pair[1].ID).Error)
	assertDecimal(t, "1500", other.AmountGiven)
	assert.Equal(t, model.LoanPartial, other.Status)
	assert.Equal(t, "top-up", other.Description)

	name := "Someone else"
	_, err = env.loans.UpdateLoan(ctx, env.owner, pair[0].ID.String(), UpdateLoanRequest{BorrowerName: &name})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	low := dec("900")
	_, err = env.loans.UpdateLoan(ctx, env.owner, pair[0].ID.String(), UpdateLoanRequest{AmountGiven: &low})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestListLoans_DirectionFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lender := env.seedProject(t, "Tower A")
	borrower := env.seedProject(t, "Villa B")

	_, err := env.loans.CreateLoan(ctx, env.owner, CreateLoanRequest{
		ProjectID: lender.ID.String(), LoanType: model.LoanInterProject,
		LinkedProjectID: borrower.ID.String(), AmountGiven: dec("100"), DateGiven: "2024-02-01",
	})
	require.NoError(t, err)
	_, err = env.loans.CreateLoan(ctx, env.owner, CreateLoanRequest{
		ProjectID: lender.ID.String(), BorrowerName: "Mr. Karim", AmountGiven: dec("50"), DateGiven: "2024-01-01",
	})
	require.NoError(t, err)

	loans, total, err := env.loans.ListLoans(ctx, LoanFilter{Direction: model.LoanReceivable})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, loans, 1)
	assert.Equal(t, borrower.ID, loans[0].ProjectID)

	_, total, err = env.loans.ListLoans(ctx, LoanFilter{ProjectID: lender.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, _, err = env.loans.ListLoans(ctx, LoanFilter{Direction: "sideways"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}
