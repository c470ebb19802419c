package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateProject = "CREATE_PROJECT"
	ActionUpdateProject = "UPDATE_PROJECT"
	ActionDeleteProject = "DELETE_PROJECT"

	ActionCreateVendor     = "CREATE_VENDOR"
	ActionUpdateVendor     = "UPDATE_VENDOR"
	ActionDeleteVendor     = "DELETE_VENDOR"
	ActionCreateContractor = "CREATE_CONTRACTOR"
	ActionUpdateContractor = "UPDATE_CONTRACTOR"
	ActionDeleteContractor = "DELETE_CONTRACTOR"

	ActionCreateIncome        = "CREATE_INCOME"
	ActionUpdateIncome        = "UPDATE_INCOME"
	ActionCreateExpense       = "CREATE_EXPENSE"
	ActionUpdateExpense       = "UPDATE_EXPENSE"
	ActionRecordVendorPayment = "RECORD_VENDOR_PAYMENT"
	ActionCreateLoan          = "CREATE_LOAN"
	ActionUpdateLoan          = "UPDATE_LOAN"
	ActionReturnLoan          = "RETURN_LOAN"

	// Edit request workflow actions
	ActionCreateEditRequest  = "CREATE_EDIT_REQUEST"
	ActionApproveEditRequest = "APPROVE_EDIT_REQUEST"
	ActionRejectEditRequest  = "REJECT_EDIT_REQUEST"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
