package salary

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal/core/period"
)

// DeductionLine is one ordered entry of a record's deduction list. Stored as
// JSON on the record: lines are written once per computation run and only
// ever read back whole.
type DeductionLine struct {
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	LoanID      *string         `json:"loan_id,omitempty"`
}

// SalaryRecord is the persistence model for one employee's computed salary
// in one period. Unique per (employee, period); immutable once PAID.
type SalaryRecord struct {
	ID               string          `json:"id" gorm:"primaryKey"`
	EmployeeID       string          `json:"employee_id" gorm:"column:employee_id;not null;uniqueIndex:idx_salary_employee_period"`
	Period           period.Period   `json:"period" gorm:"column:period;type:varchar(7);not null;uniqueIndex:idx_salary_employee_period"`
	Department       string          `json:"department" gorm:"column:department;index"`
	AttendedShifts   int             `json:"attended_shifts" gorm:"column:attended_shifts;not null"`
	TotalShifts      int             `json:"total_shifts" gorm:"column:total_shifts;not null"`
	BaseSalary       decimal.Decimal `json:"base_salary" gorm:"column:base_salary;type:numeric(14,2);not null"`
	Basic            decimal.Decimal `json:"basic" gorm:"column:basic;type:numeric(14,2);not null"`
	HRA              decimal.Decimal `json:"hra" gorm:"column:hra;type:numeric(14,2);not null"`
	Allowance        decimal.Decimal `json:"allowance" gorm:"column:allowance;type:numeric(14,2);not null"`
	Gross            decimal.Decimal `json:"gross" gorm:"column:gross;type:numeric(14,2);not null"`
	TotalDeductions  decimal.Decimal `json:"total_deductions" gorm:"column:total_deductions;type:numeric(14,2);not null"`
	Net              decimal.Decimal `json:"net" gorm:"column:net;type:numeric(14,2);not null"`
	Deductions       []DeductionLine `json:"deductions" gorm:"column:deductions;serializer:json"`
	Status           string          `json:"status" gorm:"column:status;default:READY_TO_PAY"`
	HoldReason       *string         `json:"hold_reason,omitempty" gorm:"column:hold_reason"`
	HeldBy           *string         `json:"held_by,omitempty" gorm:"column:held_by"`
	PaymentRequestID *string         `json:"payment_request_id,omitempty" gorm:"column:payment_request_id;index"`
	ComputedAt       time.Time       `json:"computed_at" gorm:"column:computed_at"`
	PaidAt           *time.Time      `json:"paid_at,omitempty" gorm:"column:paid_at"`
	CreatedAt        time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (SalaryRecord) TableName() string {
	return "salary_records"
}
