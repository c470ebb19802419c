package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EditCollection enum constants
const (
	EditCollectionExpense = "Expense"
	EditCollectionIncome  = "Income"
	EditCollectionLoan    = "Loan"
)

// EditRequestStatus enum constants
const (
	EditPending  = "pending"
	EditApproved = "approved"
	EditRejected = "rejected"
)

// EditRequest is an accountant's proposed change to a recorded transaction.
// Nothing changes until an owner approves it.
type EditRequest struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Collection      string         `gorm:"type:varchar(20);not null;index" json:"collection_name"` // Expense, Income, Loan
	OriginalID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"original_id"`
	ProjectID       *uuid.UUID     `gorm:"type:uuid;index" json:"project_id"`
	NewData         datatypes.JSON `gorm:"not null" json:"new_data"`
	Status          string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RequestedBy     *uuid.UUID     `gorm:"type:uuid;index" json:"requested_by"`
	Requester       *User          `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	ReviewedBy      *uuid.UUID     `gorm:"type:uuid" json:"reviewed_by"`
	Reviewer        *User          `gorm:"foreignKey:ReviewedBy" json:"reviewer,omitempty"`
	ReviewedAt      *time.Time     `json:"reviewed_at"`
	RejectionReason string         `gorm:"type:text" json:"rejection_reason"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (r *EditRequest) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
