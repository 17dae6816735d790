package salary

import (
	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/core/period"
)

// Adjustment is an ad-hoc signed pay line for one computation run. Earnings
// carry positive amounts; deduction-type adjustments carry negative ones,
// so a run's adjustments compose by plain summation.
type Adjustment struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// ComputeDTO is everything the engine needs to compute one employee's
// salary for one period. Attendance and base pay come from the external
// attendance and personnel systems; the engine only consumes the numbers.
type ComputeDTO struct {
	EmployeeID     string          `json:"employee_id"`
	Period         period.Period   `json:"period"`
	Department     string          `json:"department"`
	AttendedShifts int             `json:"attended_shifts"`
	TotalShifts    int             `json:"total_shifts"`
	BaseSalary     decimal.Decimal `json:"base_salary"`
	Jurisdiction   string          `json:"jurisdiction,omitempty"`
	Adjustments    []Adjustment    `json:"adjustments,omitempty"`
	MessCharges    decimal.Decimal `json:"mess_charges"`
}

func (dto ComputeDTO) Validate() error {
	if dto.EmployeeID == "" {
		return internal.NewValidationError("employee_id is required", internal.ErrCodeValidationFailed)
	}
	if dto.Period.IsZero() {
		return internal.NewValidationError("period is required", internal.ErrCodeInvalidPeriod)
	}
	if dto.TotalShifts <= 0 {
		return internal.ErrInvalidAttendance
	}
	if dto.AttendedShifts < 0 || dto.AttendedShifts > dto.TotalShifts {
		return internal.NewValidationError("attended shifts must be between 0 and total shifts", internal.ErrCodeInvalidAttendance)
	}
	if dto.BaseSalary.IsNegative() {
		return internal.NewValidationError("base salary must not be negative", internal.ErrCodeInvalidAmount)
	}
	if dto.MessCharges.IsNegative() {
		return internal.NewValidationError("mess charges must not be negative", internal.ErrCodeInvalidAmount)
	}
	return nil
}

// ComputeBatchDTO computes a whole department for a period in one run.
type ComputeBatchDTO struct {
	Inputs []ComputeDTO `json:"inputs"`
}

// BatchFailure reports one employee whose computation failed; the rest of
// the batch is unaffected.
type BatchFailure struct {
	EmployeeID string `json:"employee_id"`
	Message    string `json:"message"`
}

// HoldDTO places an administrative hold on a record.
type HoldDTO struct {
	Reason string `json:"reason"`
}

func (dto HoldDTO) Validate() error {
	if dto.Reason == "" {
		return internal.NewValidationError("reason is required to hold a salary", internal.ErrCodeValidationFailed)
	}
	return nil
}

// Totals aggregates a period's computed records for compliance filings.
type Totals struct {
	Period           period.Period              `json:"period"`
	RecordCount      int                        `json:"record_count"`
	GrossTotal       decimal.Decimal            `json:"gross_total"`
	NetTotal         decimal.Decimal            `json:"net_total"`
	DeductionsByKind map[string]decimal.Decimal `json:"deductions_by_kind"`
}
