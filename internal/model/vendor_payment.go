package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VendorPaymentSource enum constants
const (
	PaymentSourceManual  = "manual"  // lump sum entered by a user and allocated FIFO
	PaymentSourceExpense = "expense" // created together with a pre-paid material expense
)

// VendorPayment is money handed to a vendor
type VendorPayment struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	VendorID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Vendor      *Vendor         `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	ProjectID   *uuid.UUID      `gorm:"type:uuid;index" json:"project_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	Description string          `gorm:"type:text" json:"description"`
	FundingDetails
	SourceType        string          `gorm:"type:varchar(10);not null;default:'manual'" json:"source_type"`
	SourceExpenseID   *uuid.UUID      `gorm:"type:uuid;index" json:"source_expense_id"`
	AppliedToExpenses bool            `gorm:"not null;default:false" json:"applied_to_expenses"`
	UnappliedAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"unapplied_amount"` // vendor credit left after allocation
	EnteredByID       *uuid.UUID      `gorm:"type:uuid;index" json:"entered_by_id"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (p *VendorPayment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
