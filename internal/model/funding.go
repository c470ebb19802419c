package model

// PaymentMode enum constants
const (
	ModeBank = "bank"
	ModeCash = "cash"
)

// CashLocation enum constants
const (
	CashLocker1 = "locker1"
	CashLocker2 = "locker2"
)

// PaidBy enum constants
const (
	PaidByCustomer = "customer"
	PaidByCompany  = "company"
)

// FundingDetails is embedded by every record that moves money through a
// funding source.
type FundingDetails struct {
	Mode          string `gorm:"type:varchar(10);not null" json:"mode"` // bank or cash
	CashLocation  string `gorm:"type:varchar(10)" json:"cash_location"` // locker1 or locker2 when mode is cash
	BankName      string `gorm:"type:varchar(255)" json:"bank_name"`
	AccountNumber string `gorm:"type:varchar(100)" json:"account_number"`
}

// IsBank reports whether the money moved through the bank account.
func (f FundingDetails) IsBank() bool { return f.Mode == ModeBank }

// InLocker reports whether the money moved as cash through the given locker.
func (f FundingDetails) InLocker(location string) bool {
	return f.Mode == ModeCash && f.CashLocation == location
}
