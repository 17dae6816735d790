package salary

import (
	"time"

	"github.com/shopspring/decimal"

	salaryDatamodel "github.com/guardline/payroll-engine/internal/core/datamodel/salary"
	"github.com/guardline/payroll-engine/internal/core/period"
)

const (
	StatusReadyToPay = "READY_TO_PAY"
	StatusHeld       = "HELD"
	StatusPaid       = "PAID"
)

// Deduction kinds, in the order they appear on a record.
const (
	DeductionPF    = "PF"
	DeductionESI   = "ESI"
	DeductionPT    = "PT"
	DeductionTDS   = "TDS"
	DeductionLoan  = "LOAN"
	DeductionMess  = "MESS"
	DeductionOther = "OTHER"
)

// DeductionLine is one ordered entry of the record's deduction list.
// Amounts are always positive; the sign convention lives in the adjustment
// inputs, not here.
type DeductionLine struct {
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	LoanID      *string         `json:"loan_id,omitempty"`
}

// Record is one employee's computed salary for one period. Recomputation
// replaces the numbers but preserves an existing hold; a PAID record is
// immutable.
type Record struct {
	ID               string          `json:"id"`
	EmployeeID       string          `json:"employee_id"`
	Period           period.Period   `json:"period"`
	Department       string          `json:"department"`
	AttendedShifts   int             `json:"attended_shifts"`
	TotalShifts      int             `json:"total_shifts"`
	BaseSalary       decimal.Decimal `json:"base_salary"`
	Basic            decimal.Decimal `json:"basic"`
	HRA              decimal.Decimal `json:"hra"`
	Allowance        decimal.Decimal `json:"allowance"`
	Gross            decimal.Decimal `json:"gross"`
	TotalDeductions  decimal.Decimal `json:"total_deductions"`
	Net              decimal.Decimal `json:"net"`
	Deductions       []DeductionLine `json:"deductions"`
	Status           string          `json:"status"`
	HoldReason       *string         `json:"hold_reason,omitempty"`
	HeldBy           *string         `json:"held_by,omitempty"`
	PaymentRequestID *string         `json:"payment_request_id,omitempty"`
	ComputedAt       time.Time       `json:"computed_at"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (r *Record) IsHeld() bool {
	return r.Status == StatusHeld
}

func (r *Record) IsPaid() bool {
	return r.Status == StatusPaid
}

func (r *Record) Hold(reason, actorID string) {
	r.Status = StatusHeld
	r.HoldReason = &reason
	r.HeldBy = &actorID
	r.UpdatedAt = time.Now()
}

func (r *Record) Release() {
	r.Status = StatusReadyToPay
	r.HoldReason = nil
	r.HeldBy = nil
	r.UpdatedAt = time.Now()
}

func ToDataModel(r *Record) *salaryDatamodel.SalaryRecord {
	lines := make([]salaryDatamodel.DeductionLine, len(r.Deductions))
	for i, d := range r.Deductions {
		lines[i] = salaryDatamodel.DeductionLine(d)
	}
	return &salaryDatamodel.SalaryRecord{
		ID:               r.ID,
		EmployeeID:       r.EmployeeID,
		Period:           r.Period,
		Department:       r.Department,
		AttendedShifts:   r.AttendedShifts,
		TotalShifts:      r.TotalShifts,
		BaseSalary:       r.BaseSalary,
		Basic:            r.Basic,
		HRA:              r.HRA,
		Allowance:        r.Allowance,
		Gross:            r.Gross,
		TotalDeductions:  r.TotalDeductions,
		Net:              r.Net,
		Deductions:       lines,
		Status:           r.Status,
		HoldReason:       r.HoldReason,
		HeldBy:           r.HeldBy,
		PaymentRequestID: r.PaymentRequestID,
		ComputedAt:       r.ComputedAt,
		PaidAt:           r.PaidAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func FromDataModel(m *salaryDatamodel.SalaryRecord) *Record {
	lines := make([]DeductionLine, len(m.Deductions))
	for i, d := range m.Deductions {
		lines[i] = DeductionLine(d)
	}
	return &Record{
		ID:               m.ID,
		EmployeeID:       m.EmployeeID,
		Period:           m.Period,
		Department:       m.Department,
		AttendedShifts:   m.AttendedShifts,
		TotalShifts:      m.TotalShifts,
		BaseSalary:       m.BaseSalary,
		Basic:            m.Basic,
		HRA:              m.HRA,
		Allowance:        m.Allowance,
		Gross:            m.Gross,
		TotalDeductions:  m.TotalDeductions,
		Net:              m.Net,
		Deductions:       lines,
		Status:           m.Status,
		HoldReason:       m.HoldReason,
		HeldBy:           m.HeldBy,
		PaymentRequestID: m.PaymentRequestID,
		ComputedAt:       m.ComputedAt,
		PaidAt:           m.PaidAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func FromDataModelSlice(records []*salaryDatamodel.SalaryRecord) []*Record {
	result := make([]*Record, len(records))
	for i, m := range records {
		result[i] = FromDataModel(m)
	}
	return result
}
