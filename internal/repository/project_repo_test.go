package repository

import (
	"context"
	"testing"

	"buildledger/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestProjectRepository_HasTransactions(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		seed func(t *testing.T, db *gorm.DB, p, other *model.Project)
		want bool
	}{
		{"no records", func(*testing.T, *gorm.DB, *model.Project, *model.Project) {}, false},
		{"income", func(t *testing.T, db *gorm.DB, p, _ *model.Project) {
			require.NoError(t, db.Create(&model.Income{ProjectID: p.ID, Amount: decimal.NewFromInt(1),
				Date: day("2024-01-01"), FundingDetails: model.FundingDetails{Mode: model.ModeBank}}).Error)
		}, true},
		{"expense", func(t *testing.T, db *gorm.DB, p, _ *model.Project) {
			seedExpense(t, db, model.Expense{ProjectID: p.ID})
		}, true},
		{"borrowed from another project", func(t *testing.T, db *gorm.DB, p, other *model.Project) {
			require.NoError(t, db.Create(&model.Loan{ProjectID: other.ID, LinkedProjectID: idPtr(p.ID),
				AmountGiven: decimal.NewFromInt(1), DateGiven: day("2024-01-01"), Status: model.LoanActive,
				LoanType: model.LoanInterProject, Direction: model.LoanPayable}).Error)
		}, true},
		{"vendor payment", func(t *testing.T, db *gorm.DB, p, _ *model.Project) {
			require.NoError(t, db.Create(&model.VendorPayment{ProjectID: idPtr(p.ID), Amount: decimal.NewFromInt(1),
				Date: day("2024-01-01"), FundingDetails: model.FundingDetails{Mode: model.ModeBank}}).Error)
		}, true},
		{"another project's records", func(t *testing.T, db *gorm.DB, _, other *model.Project) {
			seedExpense(t, db, model.Expense{ProjectID: other.ID})
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := newTestDB(t)
			p := seedProject(t, db, "Tower")
			other := seedProject(t, db, "Villa")
			tc.seed(t, db, p, other)

			got, err := NewProjectRepository(db).HasTransactions(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestProjectRepository_ListAndUpdate(t *testing.T) {
	db := newTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	p := seedProject(t, db, "Tower")
	done := seedProject(t, db, "Villa")
	done.Status = model.ProjectCompleted
	done.Vendors = append(done.Vendors, "Acme Steel")
	require.NoError(t, repo.Update(ctx, done))

	active, err := repo.List(ctx, model.ProjectActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, p.ID, active[0].ID)

	stored, err := repo.FindByID(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme Steel"}, []string(stored.Vendors))

	require.NoError(t, repo.Delete(ctx, p.ID))
	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
