package service

import (
	"context"
	"testing"

	"buildledger/internal/apperror"
	"buildledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateVendor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProject(t, "Tower A")

	resp, err := env.vendors.CreateVendor(ctx, env.accountant, CreateVendorRequest{
		Name:      " Steel Co ",
		Phone:     "0100",
		ProjectID: p.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Steel Co", resp.Name)
	assertDecimal(t, "0", resp.Balance)

	project, err := env.projectRepo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Steel Co"}, []string(project.Vendors))

	_, err = env.vendors.CreateVendor(ctx, env.accountant, CreateVendorRequest{Name: "STEEL CO", Phone: "0200", ProjectID: p.ID.String()})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	_, err = env.vendors.CreateVendor(ctx, env.accountant, CreateVendorRequest{Name: "Steel Co", Phone: "0200"})
	assert.NoError(t, err, "a general vendor may share a project vendor's name")

	_, err = env.vendors.CreateVendor(ctx, env.accountant, CreateVendorRequest{Name: "No Phone", Phone: "  "})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestVendorBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProject(t, "Tower A")
	v := env.seedVendor(t, "Steel Co", &p.ID)
	env.seedMaterial(t, p.ID, v, "2024-01-01", "100")
	env.seedMaterial(t, p.ID, v, "2024-02-01", "200")

	_, err := env.payments.RecordPayment(ctx, env.owner, RecordVendorPaymentRequest{
		VendorID: v.ID.String(), Amount: dec("120"), Date: "2024-03-01", FundingRequest: bank(),
	})
	require.NoError(t, err)

	vendors, err := env.vendors.ListVendors(ctx, PartyListFilter{ProjectID: p.ID.String()})
	require.NoError(t, err)
	require.Len(t, vendors, 1)
	assertDecimal(t, "300", vendors[0].TotalPurchased)
	assertDecimal(t, "120", vendors[0].TotalPaid)
	assertDecimal(t, "180", vendors[0].Balance)

	detail, err := env.vendors.GetVendor(ctx, v.ID.String())
	require.NoError(t, err)
	assert.Len(t, detail.Expenses, 2)
	assert.Len(t, detail.Payments, 1)
}

func TestDeleteGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProject(t, "Tower A")

	t.Run("vendor with expenses", func(t *testing.T) {
		v := env.seedVendor(t, "Steel Co", &p.ID)
		env.seedMaterial(t, p.ID, v, "2024-01-01", "100")

		err := env.vendors.DeleteVendor(ctx, env.owner, v.ID.String())
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	})

	t.Run("vendor with only a payment", func(t *testing.T) {
		v := env.seedVendor(t, "Cement Ltd", nil)
		_, err := env.payments.RecordPayment(ctx, env.owner, RecordVendorPaymentRequest{
			VendorID: v.ID.String(), Amount: dec("10"), Date: "2024-03-01", FundingRequest: bank(),
		})
		require.NoError(t, err)

		err = env.vendors.DeleteVendor(ctx, env.owner, v.ID.String())
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	})

	t.Run("vendor without transactions", func(t *testing.T) {
		v := env.seedVendor(t, "Bricks", nil)

		err := env.vendors.DeleteVendor(ctx, env.accountant, v.ID.String())
		assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

		require.NoError(t, env.vendors.DeleteVendor(ctx, env.owner, v.ID.String()))
		_, err = env.vendors.GetVendor(ctx, v.ID.String())
		assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	})

	t.Run("contractor matched by legacy name", func(t *testing.T) {
		c := env.seedContractor(t, "Ali Builders", &p.ID)
		require.NoError(t, env.db.Create(&model.Expense{
			ProjectID:      p.ID,
			Type:           model.ExpenseLabor,
			Amount:         dec("50"),
			Date:           day("2024-01-05"),
			FundingDetails: model.FundingDetails{Mode: model.ModeBank},
			LaborType:      model.LaborContractor,
			ContractorName: "ali builders",
		}).Error)

		err := env.contractors.DeleteContractor(ctx, env.owner, c.ID.String())
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

		detail, err := env.contractors.GetContractor(ctx, c.ID.String())
		require.NoError(t, err)
		assertDecimal(t, "50", detail.TotalPaid)
		assertDecimal(t, "950", detail.Balance)
	})

	t.Run("project with transactions", func(t *testing.T) {
		err := env.projects.DeleteProject(ctx, env.owner, p.ID.String())
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	})

	t.Run("empty project", func(t *testing.T) {
		empty := env.seedProject(t, "Empty")
		require.NoError(t, env.projects.DeleteProject(ctx, env.owner, empty.ID.String()))
	})
}

func TestCreateContractor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProject(t, "Tower A")

	resp, err := env.contractors.CreateContractor(ctx, env.owner, CreateContractorRequest{
		Name:         "Ali Builders",
		AgreedAmount: dec("5000"),
		ProjectID:    p.ID.String(),
	})
	require.NoError(t, err)
	assertDecimal(t, "5000", resp.Balance)

	_, err = env.contractors.CreateContractor(ctx, env.owner, CreateContractorRequest{
		Name: "Negative", AgreedAmount: dec("-1"),
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}
