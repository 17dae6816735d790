package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeSalaryHeld     = "salary.held"
	EventTypeSalaryReleased = "salary.released"

	EventTypePaymentRequestSubmitted = "payment_request.submitted"
	EventTypePaymentRequestApproved  = "payment_request.approved"
	EventTypePaymentRequestRejected  = "payment_request.rejected"
	EventTypePaymentRequestPaid      = "payment_request.paid"

	EventTypeLoanRequested = "loan.requested"
	EventTypeLoanRejected  = "loan.rejected"
	EventTypeLoanActivated = "loan.activated"
	EventTypeLoanClosed    = "loan.closed"

	EventTypeComplianceGenerated = "compliance.generated"
	EventTypeComplianceFiled     = "compliance.filed"
)

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

type SalaryHoldEvent struct {
	BaseEvent
	EmployeeID string `json:"employee_id"`
	Period     string `json:"period"`
	Reason     string `json:"reason,omitempty"`
	ActorID    string `json:"actor_id"`
}

func NewSalaryHeldEvent(employeeID, period, reason, actorID string) *SalaryHoldEvent {
	return &SalaryHoldEvent{
		BaseEvent: newBase(EventTypeSalaryHeld, map[string]interface{}{
			"employee_id": employeeID,
			"period":      period,
			"reason":      reason,
			"actor_id":    actorID,
		}),
		EmployeeID: employeeID,
		Period:     period,
		Reason:     reason,
		ActorID:    actorID,
	}
}

func NewSalaryReleasedEvent(employeeID, period, actorID string) *SalaryHoldEvent {
	return &SalaryHoldEvent{
		BaseEvent: newBase(EventTypeSalaryReleased, map[string]interface{}{
			"employee_id": employeeID,
			"period":      period,
			"actor_id":    actorID,
		}),
		EmployeeID: employeeID,
		Period:     period,
		ActorID:    actorID,
	}
}

type PaymentRequestEvent struct {
	BaseEvent
	PaymentRequestID string          `json:"payment_request_id"`
	Department       string          `json:"department"`
	Period           string          `json:"period"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	ActorID          string          `json:"actor_id"`
	Note             string          `json:"note,omitempty"`
}

func NewPaymentRequestEvent(eventType, requestID, department, period string, total decimal.Decimal, actorID, note string) *PaymentRequestEvent {
	return &PaymentRequestEvent{
		BaseEvent: newBase(eventType, map[string]interface{}{
			"payment_request_id": requestID,
			"department":         department,
			"period":             period,
			"total_amount":       total.String(),
			"actor_id":           actorID,
			"note":               note,
		}),
		PaymentRequestID: requestID,
		Department:       department,
		Period:           period,
		TotalAmount:      total,
		ActorID:          actorID,
		Note:             note,
	}
}

type LoanEvent struct {
	BaseEvent
	LoanID     string          `json:"loan_id"`
	EmployeeID string          `json:"employee_id"`
	LoanType   string          `json:"loan_type"`
	Principal  decimal.Decimal `json:"principal"`
	ActorID    string          `json:"actor_id"`
}

func NewLoanEvent(eventType, loanID, employeeID, loanType string, principal decimal.Decimal, actorID string) *LoanEvent {
	return &LoanEvent{
		BaseEvent: newBase(eventType, map[string]interface{}{
			"loan_id":     loanID,
			"employee_id": employeeID,
			"loan_type":   loanType,
			"principal":   principal.String(),
			"actor_id":    actorID,
		}),
		LoanID:     loanID,
		EmployeeID: employeeID,
		LoanType:   loanType,
		Principal:  principal,
		ActorID:    actorID,
	}
}

type ComplianceEvent struct {
	BaseEvent
	ObligationID  string `json:"obligation_id"`
	StatutoryType string `json:"statutory_type"`
	Period        string `json:"period"`
	FiledLate     bool   `json:"filed_late,omitempty"`
	ActorID       string `json:"actor_id"`
}

func NewComplianceEvent(eventType, obligationID, statutoryType, period string, filedLate bool, actorID string) *ComplianceEvent {
	return &ComplianceEvent{
		BaseEvent: newBase(eventType, map[string]interface{}{
			"obligation_id":  obligationID,
			"statutory_type": statutoryType,
			"period":         period,
			"filed_late":     filedLate,
			"actor_id":       actorID,
		}),
		ObligationID:  obligationID,
		StatutoryType: statutoryType,
		Period:        period,
		FiledLate:     filedLate,
		ActorID:       actorID,
	}
}
