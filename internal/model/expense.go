package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseType enum constants
const (
	ExpenseMaterial        = "material"
	ExpenseLabor           = "labor"
	ExpenseFactoryOverhead = "factory_overhead"
	ExpensePettyCash       = "petty_cash"
)

// VendorPaymentStatus enum constants
const (
	VendorPaymentPending = "pending"
	VendorPaymentPartial = "partial"
	VendorPaymentFull    = "full"
)

// LaborType enum constants
const (
	LaborDirect     = "direct"
	LaborContractor = "contractor"
)

// Expense is money committed by a project. For material purchases the face
// amount may be paid to the vendor later, tracked by the vendor payment fields.
type Expense struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"project_id"`
	Project     *Project        `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Type        string          `gorm:"type:varchar(20);not null;index" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	Description string          `gorm:"type:text" json:"description"`
	PaidBy      string          `gorm:"type:varchar(20);not null;default:'company'" json:"paid_by"`
	FundingDetails

	// Material
	VendorID         *uuid.UUID       `gorm:"type:uuid;index" json:"vendor_id"`
	VendorName       string           `gorm:"type:varchar(255);index" json:"vendor_name"`
	MaterialName     string           `gorm:"type:varchar(255)" json:"material_name"`
	MaterialQuantity *decimal.Decimal `gorm:"type:decimal(18,4)" json:"material_quantity"`
	MaterialUnit     string           `gorm:"type:varchar(50)" json:"material_unit"`

	// Vendor payment state, written only through the ledger package
	VendorPaymentStatus     string          `gorm:"type:varchar(10);not null;default:'pending'" json:"vendor_payment_status"`
	VendorPaidAmount        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"vendor_paid_amount"`
	PaymentsBySourceBank    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"payments_by_source_bank"`
	PaymentsBySourceLocker1 decimal.Decimal `gorm:"column:payments_by_source_locker1;type:decimal(18,4);not null;default:0" json:"payments_by_source_locker1"`
	PaymentsBySourceLocker2 decimal.Decimal `gorm:"column:payments_by_source_locker2;type:decimal(18,4);not null;default:0" json:"payments_by_source_locker2"`

	// Labor
	LaborType      string     `gorm:"type:varchar(20)" json:"labor_type"`
	ContractorID   *uuid.UUID `gorm:"type:uuid;index" json:"contractor_id"`
	ContractorName string     `gorm:"type:varchar(255)" json:"contractor_name"`
	TeamName       string     `gorm:"type:varchar(255)" json:"team_name"`
	LaborName      string     `gorm:"type:varchar(255)" json:"labor_name"`

	// Petty cash
	SupervisorName string     `gorm:"type:varchar(255)" json:"supervisor_name"`
	Summary        string     `gorm:"type:text" json:"summary"`
	WeekEnding     *time.Time `json:"week_ending"`

	EnteredByID *uuid.UUID `gorm:"type:uuid;index" json:"entered_by_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	if e.VendorPaymentStatus == "" {
		e.VendorPaymentStatus = VendorPaymentPending
	}
	return nil
}

func (e *Expense) IsMaterial() bool { return e.Type == ExpenseMaterial }

// ExpensePaymentHistory records one slice of a payment applied to an expense.
// Rows are append-only.
type ExpensePaymentHistory struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ExpenseID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"expense_id"`
	VendorPaymentID *uuid.UUID      `gorm:"type:uuid;index" json:"vendor_payment_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Date            time.Time       `gorm:"not null" json:"date"`
	FundingDetails
	CreatedAt time.Time `json:"created_at"`
}

func (h *ExpensePaymentHistory) BeforeCreate(tx *gorm.DB) error {
	ensureID(&h.ID)
	return nil
}
