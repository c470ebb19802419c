package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Income is money received by a project into the bank or a cash locker
type Income struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"project_id"`
	Project     *Project        `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	Description string          `gorm:"type:text" json:"description"`
	FundingDetails
	EnteredByID *uuid.UUID `gorm:"type:uuid;index" json:"entered_by_id"`
	EnteredBy   *User      `gorm:"foreignKey:EnteredByID" json:"entered_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (i *Income) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
