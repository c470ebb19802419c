package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LoanType enum constants
const (
	LoanExternal     = "external"
	LoanInterProject = "inter_project"
)

// LoanDirection enum constants
const (
	LoanPayable    = "payable"    // row held by the lending project
	LoanReceivable = "receivable" // row held by the borrowing project
)

// LoanStatus enum constants
const (
	LoanActive   = "active"
	LoanPartial  = "partial"
	LoanReturned = "returned"
)

// Loan is money lent by a project. Inter-project loans are stored as a linked
// payable/receivable pair that must always carry the same return state.
type Loan struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"project_id"`
	Project         *Project        `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	BorrowerName    string          `gorm:"type:varchar(255)" json:"borrower_name"`
	AmountGiven     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount_given"`
	DateGiven       time.Time       `gorm:"not null;index" json:"date_given"`
	AmountReturned  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount_returned"`
	DateReturned    *time.Time      `json:"date_returned"`
	Status          string          `gorm:"type:varchar(10);not null;default:'active';index" json:"status"`
	Description     string          `gorm:"type:text" json:"description"`
	LoanType        string          `gorm:"type:varchar(20);not null;default:'external';index" json:"loan_type"`
	Direction       string          `gorm:"type:varchar(20)" json:"direction"`
	LinkedProjectID *uuid.UUID      `gorm:"type:uuid;index" json:"linked_project_id"`
	LinkedProject   *Project        `gorm:"foreignKey:LinkedProjectID" json:"linked_project,omitempty"`
	LinkedLoanID    *uuid.UUID      `gorm:"type:uuid" json:"linked_loan_id"`
	EnteredByID     *uuid.UUID      `gorm:"type:uuid;index" json:"entered_by_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (l *Loan) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

func (l *Loan) IsInterProject() bool { return l.LoanType == LoanInterProject }
