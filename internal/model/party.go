package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Vendor supplies materials. A nil ProjectID marks a general vendor shared by
// all projects.
type Vendor struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID *uuid.UUID `gorm:"type:uuid;index" json:"project_id"`
	Name      string     `gorm:"type:varchar(255);not null;index" json:"name"`
	Phone     string     `gorm:"type:varchar(50);not null" json:"phone"`
	Email     string     `gorm:"type:varchar(255)" json:"email"`
	Address   string     `gorm:"type:text" json:"address"`
	Notes     string     `gorm:"type:text" json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (v *Vendor) BeforeCreate(tx *gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// Contractor performs labor under an agreed amount
type Contractor struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID    *uuid.UUID      `gorm:"type:uuid;index" json:"project_id"`
	Name         string          `gorm:"type:varchar(255);not null;index" json:"name"`
	Phone        string          `gorm:"type:varchar(50)" json:"phone"`
	Email        string          `gorm:"type:varchar(255)" json:"email"`
	Address      string          `gorm:"type:text" json:"address"`
	Notes        string          `gorm:"type:text" json:"notes"`
	AgreedAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"agreed_amount"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (c *Contractor) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
