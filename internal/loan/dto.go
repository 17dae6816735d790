package loan

import (
	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal"
)

// RequestLoanDTO is the payload for requesting a new loan.
type RequestLoanDTO struct {
	EmployeeID    string          `json:"employee_id"`
	LoanType      string          `json:"loan_type"`
	Principal     decimal.Decimal `json:"principal"`
	EMIMonths     int             `json:"emi_months"`
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
	Reason        string          `json:"reason"`
}

func (dto RequestLoanDTO) Validate() error {
	if dto.EmployeeID == "" {
		return internal.NewValidationError("employee_id is required", internal.ErrCodeValidationFailed)
	}
	if !ValidType(dto.LoanType) {
		return internal.NewValidationError("unknown loan type", internal.ErrCodeValidationFailed)
	}
	if !dto.Principal.IsPositive() {
		return internal.NewValidationError("principal must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if dto.EMIMonths < 1 {
		return internal.NewValidationError("emi_months must be at least 1", internal.ErrCodeValidationFailed)
	}
	if !dto.MonthlySalary.IsPositive() {
		return internal.NewValidationError("monthly_salary must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	return nil
}

// DecideLoanDTO is the Accounts decision payload.
type DecideLoanDTO struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note,omitempty"`
}

func (dto DecideLoanDTO) Validate() error {
	if !dto.Approve && dto.Note == "" {
		return internal.NewValidationError("note is required when rejecting a loan", internal.ErrCodeValidationFailed)
	}
	return nil
}

// ActivateLoanDTO optionally carries the employee's current salary so the
// deduction cap can be re-checked at activation; zero means "unchanged".
type ActivateLoanDTO struct {
	CurrentSalary decimal.Decimal `json:"current_salary"`
}

// RecordPaymentDTO marks one installment paid.
type RecordPaymentDTO struct {
	PaidOn string `json:"paid_on"` // RFC 3339 date
}

// InstallmentCharge is what the salary engine needs from an active loan in
// one period: the line it must deduct.
type InstallmentCharge struct {
	LoanID        string          `json:"loan_id"`
	InstallmentID string          `json:"installment_id"`
	LoanType      string          `json:"loan_type"`
	Amount        decimal.Decimal `json:"amount"`
}
