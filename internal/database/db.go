package database

import (
	"fmt"
	"time"

	"buildledger/internal/config"
	"buildledger/internal/logger"
	"buildledger/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(cfg config.DatabaseConfig, logLevel string, zapLogger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.NewGormLogger(zapLogger, logger.MapGormLogLevel(logLevel),
			logger.WithSlowThreshold(cfg.SlowThreshold)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	return db, nil
}

// Migrate creates or updates the schema of every persisted model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Vendor{},
		&model.Contractor{},
		&model.Income{},
		&model.Expense{},
		&model.ExpensePaymentHistory{},
		&model.VendorPayment{},
		&model.Loan{},
		&model.EditRequest{},
		&model.AuditLog{},
	)
}
