package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProjectType enum constants
const (
	ProjectTypeCustomer = "customer"
	ProjectTypeCompany  = "company"
	ProjectTypeInvestor = "investor"
)

// ProjectStatus enum constants
const (
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectOnHold    = "on_hold"
)

// Project is a construction job whose money is tracked separately
type Project struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Type         string    `gorm:"type:varchar(20);not null;index" json:"type"` // customer, company, investor
	CustomerName string    `gorm:"type:varchar(255)" json:"customer_name"`

	InvestorCustomerPercentage *decimal.Decimal `gorm:"type:decimal(7,4)" json:"investor_customer_percentage"`
	InvestorCompanyPercentage  *decimal.Decimal `gorm:"type:decimal(7,4)" json:"investor_company_percentage"`

	AgreementTotalAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"agreement_total_amount"`
	AgreementStartDate   time.Time       `gorm:"not null" json:"agreement_start_date"`
	AgreementEndDate     time.Time       `gorm:"not null" json:"agreement_end_date"`
	AgreementDescription string          `gorm:"type:text" json:"agreement_description"`

	Supervisor  string                      `gorm:"type:varchar(255)" json:"supervisor"`
	Vendors     datatypes.JSONSlice[string] `json:"vendors"`     // vendor names used on this project
	Contractors datatypes.JSONSlice[string] `json:"contractors"` // contractor names used on this project
	Status      string                      `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
