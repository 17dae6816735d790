package paymentreq

import (
	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/core/period"
)

// BuildDTO assembles a draft request from a department's computed records.
// EmployeeIDs narrows the batch when set; empty means the whole department.
type BuildDTO struct {
	Department  string        `json:"department"`
	Period      period.Period `json:"period"`
	EmployeeIDs []string      `json:"employee_ids,omitempty"`
}

func (dto BuildDTO) Validate() error {
	if dto.Department == "" {
		return internal.NewValidationError("department is required", internal.ErrCodeValidationFailed)
	}
	if dto.Period.IsZero() {
		return internal.NewValidationError("period is required", internal.ErrCodeInvalidPeriod)
	}
	return nil
}

// DecideDTO records the Accounts decision on a submitted request.
type DecideDTO struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note,omitempty"`
}

func (dto DecideDTO) Validate() error {
	if !dto.Approve && dto.Note == "" {
		return internal.NewValidationError("a note is required when rejecting a payment request", internal.ErrCodeValidationFailed)
	}
	return nil
}

// MarkPaidDTO completes an approved request with the bank payment reference.
type MarkPaidDTO struct {
	PaymentRef string `json:"payment_ref"`
}

func (dto MarkPaidDTO) Validate() error {
	if dto.PaymentRef == "" {
		return internal.ErrMissingPaymentRef
	}
	return nil
}
