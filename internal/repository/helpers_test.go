package repository

import (
	"testing"
	"time"

	"buildledger/internal/database"
	"buildledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedProject(t *testing.T, db *gorm.DB, name string) *model.Project {
	t.Helper()
	p := &model.Project{
		Name:               name,
		Type:               model.ProjectTypeCompany,
		AgreementStartDate: day("2024-01-01"),
		AgreementEndDate:   day("2024-12-31"),
		Status:             model.ProjectActive,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedExpense(t *testing.T, db *gorm.DB, e model.Expense) *model.Expense {
	t.Helper()
	if e.Mode == "" {
		e.Mode = model.ModeBank
	}
	if e.Type == "" {
		e.Type = model.ExpenseMaterial
	}
	if e.Date.IsZero() {
		e.Date = day("2024-01-01")
	}
	if e.Amount.IsZero() {
		e.Amount = decimal.NewFromInt(100)
	}
	require.NoError(t, db.Create(&e).Error)
	return &e
}

func idPtr(id uuid.UUID) *uuid.UUID { return &id }
