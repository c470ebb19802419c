package repository

import (
	"context"
	"testing"

	"buildledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestVendorRepository_FindByName(t *testing.T) {
	db := newTestDB(t)
	repo := NewVendorRepository(db)
	ctx := context.Background()
	project := seedProject(t, db, "Tower")

	scoped := &model.Vendor{Name: "Acme Steel", Phone: "1", ProjectID: idPtr(project.ID)}
	general := &model.Vendor{Name: "Acme Steel", Phone: "2"}
	require.NoError(t, repo.Create(ctx, scoped))
	require.NoError(t, repo.Create(ctx, general))

	got, err := repo.FindByName(ctx, "  acme STEEL ", idPtr(project.ID))
	require.NoError(t, err)
	assert.Equal(t, scoped.ID, got.ID)

	got, err = repo.FindByName(ctx, "acme steel", nil)
	require.NoError(t, err)
	assert.Equal(t, general.ID, got.ID)

	_, err = repo.FindByName(ctx, "Other", nil)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestVendorRepository_List(t *testing.T) {
	db := newTestDB(t)
	repo := NewVendorRepository(db)
	ctx := context.Background()
	tower := seedProject(t, db, "Tower")
	villa := seedProject(t, db, "Villa")

	require.NoError(t, repo.Create(ctx, &model.Vendor{Name: "Zeta", Phone: "1", ProjectID: idPtr(tower.ID)}))
	require.NoError(t, repo.Create(ctx, &model.Vendor{Name: "Alpha", Phone: "2"}))
	require.NoError(t, repo.Create(ctx, &model.Vendor{Name: "Beta", Phone: "3", ProjectID: idPtr(villa.ID)}))

	all, err := repo.List(ctx, PartyFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "Alpha", all[0].Name)

	only, err := repo.List(ctx, PartyFilter{ProjectID: idPtr(tower.ID)})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "Zeta", only[0].Name)

	withGeneral, err := repo.List(ctx, PartyFilter{ProjectID: idPtr(tower.ID), IncludeGeneral: true})
	require.NoError(t, err)
	require.Len(t, withGeneral, 2)
	assert.Equal(t, "Alpha", withGeneral[0].Name)
	assert.Equal(t, "Zeta", withGeneral[1].Name)
}

func TestContractorRepository_CRUD(t *testing.T) {
	db := newTestDB(t)
	repo := NewContractorRepository(db)
	ctx := context.Background()

	c := &model.Contractor{Name: "Bricks & Co"}
	require.NoError(t, repo.Create(ctx, c))

	c.Phone = "555"
	require.NoError(t, repo.Update(ctx, c))

	got, err := repo.FindByName(ctx, "BRICKS & CO", nil)
	require.NoError(t, err)
	assert.Equal(t, "555", got.Phone)

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err = repo.FindByID(ctx, c.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
