package paymentreq

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal/core/period"
)

// PaymentRequest aggregates a department's salary records for one period
// and carries them through the HR -> Accounts approval pipeline.
type PaymentRequest struct {
	ID            string          `json:"id" gorm:"primaryKey"`
	Department    string          `json:"department" gorm:"column:department;not null;index"`
	Period        period.Period   `json:"period" gorm:"column:period;type:varchar(7);not null;index"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"column:total_amount;type:numeric(14,2);not null"`
	Status        string          `json:"status" gorm:"column:status;default:DRAFT"`
	PaymentRef    *string         `json:"payment_ref,omitempty" gorm:"column:payment_ref"`
	RejectionNote *string         `json:"rejection_note,omitempty" gorm:"column:rejection_note"`
	CreatedBy     string          `json:"created_by" gorm:"column:created_by"`
	SubmittedBy   *string         `json:"submitted_by,omitempty" gorm:"column:submitted_by"`
	SubmittedAt   *time.Time      `json:"submitted_at,omitempty" gorm:"column:submitted_at"`
	DecidedBy     *string         `json:"decided_by,omitempty" gorm:"column:decided_by"`
	DecidedAt     *time.Time      `json:"decided_at,omitempty" gorm:"column:decided_at"`
	PaidBy        *string         `json:"paid_by,omitempty" gorm:"column:paid_by"`
	PaidAt        *time.Time      `json:"paid_at,omitempty" gorm:"column:paid_at"`
	CreatedAt     time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`

	Items []Item `json:"items" gorm:"foreignKey:PaymentRequestID"`
}

func (PaymentRequest) TableName() string {
	return "payment_requests"
}

// Item pins one salary record into a request with the net amount frozen at
// build time.
type Item struct {
	ID               string          `json:"id" gorm:"primaryKey"`
	PaymentRequestID string          `json:"payment_request_id" gorm:"column:payment_request_id;not null;index"`
	SalaryRecordID   string          `json:"salary_record_id" gorm:"column:salary_record_id;not null"`
	EmployeeID       string          `json:"employee_id" gorm:"column:employee_id;not null"`
	NetAmount        decimal.Decimal `json:"net_amount" gorm:"column:net_amount;type:numeric(14,2);not null"`
	CreatedAt        time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (Item) TableName() string {
	return "payment_request_items"
}
