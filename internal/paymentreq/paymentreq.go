package paymentreq

import (
	"time"

	"github.com/shopspring/decimal"

	datamodel "github.com/guardline/payroll-engine/internal/core/datamodel/paymentreq"
	"github.com/guardline/payroll-engine/internal/core/period"
)

const (
	StatusDraft     = "DRAFT"
	StatusSent      = "SENT_TO_ACCOUNTS"
	StatusApproved  = "APPROVED_BY_ACCOUNTS"
	StatusRejected  = "REJECTED_BY_ACCOUNTS"
	StatusCompleted = "COMPLETED"
)

// Item pins one salary record into a request. The net amount is frozen at
// build time so a later recompute never changes what Accounts approved.
type Item struct {
	ID               string          `json:"id"`
	PaymentRequestID string          `json:"payment_request_id"`
	SalaryRecordID   string          `json:"salary_record_id"`
	EmployeeID       string          `json:"employee_id"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	CreatedAt        time.Time       `json:"created_at"`
}

// PaymentRequest is a department's payroll for one period moving through
// the HR -> Accounts pipeline. DRAFT and REJECTED_BY_ACCOUNTS are the only
// editable states; COMPLETED is terminal.
type PaymentRequest struct {
	ID            string          `json:"id"`
	Department    string          `json:"department"`
	Period        period.Period   `json:"period"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        string          `json:"status"`
	PaymentRef    *string         `json:"payment_ref,omitempty"`
	RejectionNote *string         `json:"rejection_note,omitempty"`
	CreatedBy     string          `json:"created_by"`
	SubmittedBy   *string         `json:"submitted_by,omitempty"`
	SubmittedAt   *time.Time      `json:"submitted_at,omitempty"`
	DecidedBy     *string         `json:"decided_by,omitempty"`
	DecidedAt     *time.Time      `json:"decided_at,omitempty"`
	PaidBy        *string         `json:"paid_by,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Items []Item `json:"items"`
}

func (pr *PaymentRequest) CanSubmit() bool {
	return pr.Status == StatusDraft
}

func (pr *PaymentRequest) CanDecide() bool {
	return pr.Status == StatusSent
}

func (pr *PaymentRequest) CanAcknowledge() bool {
	return pr.Status == StatusRejected
}

func (pr *PaymentRequest) CanMarkPaid() bool {
	return pr.Status == StatusApproved
}

func (pr *PaymentRequest) Submit(actorID string, at time.Time) {
	pr.Status = StatusSent
	pr.SubmittedBy = &actorID
	pr.SubmittedAt = &at
	pr.UpdatedAt = at
}

func (pr *PaymentRequest) Approve(actorID string, at time.Time) {
	pr.Status = StatusApproved
	pr.DecidedBy = &actorID
	pr.DecidedAt = &at
	pr.RejectionNote = nil
	pr.UpdatedAt = at
}

func (pr *PaymentRequest) Reject(actorID, note string, at time.Time) {
	pr.Status = StatusRejected
	pr.DecidedBy = &actorID
	pr.DecidedAt = &at
	pr.RejectionNote = &note
	pr.UpdatedAt = at
}

// Acknowledge returns a rejected request to DRAFT so HR can correct and
// resubmit. The rejection note stays on the request for the audit trail.
func (pr *PaymentRequest) Acknowledge(at time.Time) {
	pr.Status = StatusDraft
	pr.SubmittedBy = nil
	pr.SubmittedAt = nil
	pr.DecidedBy = nil
	pr.DecidedAt = nil
	pr.UpdatedAt = at
}

func (pr *PaymentRequest) MarkPaid(actorID, paymentRef string, at time.Time) {
	pr.Status = StatusCompleted
	pr.PaidBy = &actorID
	pr.PaidAt = &at
	pr.PaymentRef = &paymentRef
	pr.UpdatedAt = at
}

func ToDataModel(pr *PaymentRequest) *datamodel.PaymentRequest {
	items := make([]datamodel.Item, len(pr.Items))
	for i, it := range pr.Items {
		items[i] = datamodel.Item(it)
	}
	return &datamodel.PaymentRequest{
		ID:            pr.ID,
		Department:    pr.Department,
		Period:        pr.Period,
		TotalAmount:   pr.TotalAmount,
		Status:        pr.Status,
		PaymentRef:    pr.PaymentRef,
		RejectionNote: pr.RejectionNote,
		CreatedBy:     pr.CreatedBy,
		SubmittedBy:   pr.SubmittedBy,
		SubmittedAt:   pr.SubmittedAt,
		DecidedBy:     pr.DecidedBy,
		DecidedAt:     pr.DecidedAt,
		PaidBy:        pr.PaidBy,
		PaidAt:        pr.PaidAt,
		CreatedAt:     pr.CreatedAt,
		UpdatedAt:     pr.UpdatedAt,
		Items:         items,
	}
}

func FromDataModel(dm *datamodel.PaymentRequest) *PaymentRequest {
	items := make([]Item, len(dm.Items))
	for i, it := range dm.Items {
		items[i] = Item(it)
	}
	return &PaymentRequest{
		ID:            dm.ID,
		Department:    dm.Department,
		Period:        dm.Period,
		TotalAmount:   dm.TotalAmount,
		Status:        dm.Status,
		PaymentRef:    dm.PaymentRef,
		RejectionNote: dm.RejectionNote,
		CreatedBy:     dm.CreatedBy,
		SubmittedBy:   dm.SubmittedBy,
		SubmittedAt:   dm.SubmittedAt,
		DecidedBy:     dm.DecidedBy,
		DecidedAt:     dm.DecidedAt,
		PaidBy:        dm.PaidBy,
		PaidAt:        dm.PaidAt,
		CreatedAt:     dm.CreatedAt,
		UpdatedAt:     dm.UpdatedAt,
		Items:         items,
	}
}

func FromDataModelSlice(dms []*datamodel.PaymentRequest) []*PaymentRequest {
	out := make([]*PaymentRequest, len(dms))
	for i, dm := range dms {
		out[i] = FromDataModel(dm)
	}
	return out
}
