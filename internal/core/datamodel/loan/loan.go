package loan

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal/core/period"
)

// Loan is the persistence model for an employee loan. Status is the loan
// lifecycle; AccountsStatus is the orthogonal approval-pipeline tracker that
// gates lifecycle transitions.
type Loan struct {
	ID             string          `json:"id" gorm:"primaryKey"`
	EmployeeID     string          `json:"employee_id" gorm:"column:employee_id;not null;index"`
	LoanType       string          `json:"loan_type" gorm:"column:loan_type;not null"`
	Principal      decimal.Decimal `json:"principal" gorm:"column:principal;type:numeric(14,2);not null"`
	EMIMonths      int             `json:"emi_months" gorm:"column:emi_months;not null"`
	MonthlySalary  decimal.Decimal `json:"monthly_salary" gorm:"column:monthly_salary;type:numeric(14,2);not null"`
	Balance        decimal.Decimal `json:"balance" gorm:"column:balance;type:numeric(14,2);not null"`
	Status         string          `json:"status" gorm:"column:status;default:REQUESTED"`
	AccountsStatus string          `json:"accounts_status" gorm:"column:accounts_status;default:DRAFT"`
	Reason         string          `json:"reason" gorm:"column:reason"`
	RequestedBy    string          `json:"requested_by" gorm:"column:requested_by"`
	DecidedBy      *string         `json:"decided_by,omitempty" gorm:"column:decided_by"`
	DecisionNote   *string         `json:"decision_note,omitempty" gorm:"column:decision_note"`
	DecidedAt      *time.Time      `json:"decided_at,omitempty" gorm:"column:decided_at"`
	ActivatedAt    *time.Time      `json:"activated_at,omitempty" gorm:"column:activated_at"`
	ClosedAt       *time.Time      `json:"closed_at,omitempty" gorm:"column:closed_at"`
	CreatedAt      time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (Loan) TableName() string {
	return "loans"
}

// Installment is one row of a loan's amortization schedule. The schedule is
// generated in full at activation and never regenerated.
type Installment struct {
	ID        string          `json:"id" gorm:"primaryKey"`
	LoanID    string          `json:"loan_id" gorm:"column:loan_id;not null;index"`
	Sequence  int             `json:"sequence" gorm:"column:sequence;not null"`
	DuePeriod period.Period   `json:"due_period" gorm:"column:due_period;type:varchar(7);index"`
	DueDate   time.Time       `json:"due_date" gorm:"column:due_date;not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(14,2);not null"`
	Status    string          `json:"status" gorm:"column:status;default:PENDING"`
	PaidAt    *time.Time      `json:"paid_at,omitempty" gorm:"column:paid_at"`
	CreatedAt time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (Installment) TableName() string {
	return "loan_installments"
}
