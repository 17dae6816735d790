package compliance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/core/period"
)

// EnsureDTO creates the obligation row for a (type, period) pair. Amount
// defaults to the period's salary totals for the statutory kind when zero.
type EnsureDTO struct {
	StatutoryType string          `json:"statutory_type"`
	Period        period.Period   `json:"period"`
	DueDate       time.Time       `json:"due_date"`
	Amount        decimal.Decimal `json:"amount"`
}

func (dto EnsureDTO) Validate() error {
	if !ValidType(dto.StatutoryType) {
		return internal.NewValidationError("unknown statutory type", internal.ErrCodeValidationFailed)
	}
	if dto.Period.IsZero() {
		return internal.NewValidationError("period is required", internal.ErrCodeInvalidPeriod)
	}
	if dto.DueDate.IsZero() {
		return internal.NewValidationError("due_date is required", internal.ErrCodeValidationFailed)
	}
	if dto.Amount.IsNegative() {
		return internal.NewValidationError("amount must not be negative", internal.ErrCodeInvalidAmount)
	}
	return nil
}

// FileDTO records the statutory filing against an obligation.
type FileDTO struct {
	ChallanNumber string `json:"challan_number"`
	FiledOn       string `json:"filed_on,omitempty"` // YYYY-MM-DD, defaults to today
}

func (dto FileDTO) Validate() error {
	if dto.ChallanNumber == "" {
		return internal.ErrMissingChallan
	}
	return nil
}

// ObligationView is an obligation with its derived fields resolved for one
// point in time.
type ObligationView struct {
	*Obligation
	EffectiveStatus string `json:"effective_status"`
	FiledLate       bool   `json:"filed_late"`
}

func NewView(o *Obligation, asOf time.Time) ObligationView {
	return ObligationView{
		Obligation:      o,
		EffectiveStatus: o.EffectiveStatus(asOf),
		FiledLate:       o.FiledLate(),
	}
}
