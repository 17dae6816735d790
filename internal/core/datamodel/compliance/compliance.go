package compliance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal/core/period"
)

// Obligation tracks one statutory filing for one (type, period) pair.
// Obligations are never deleted; the row is the audit trail. The stored
// status never holds OVERDUE, that is derived at read time.
type Obligation struct {
	ID            string          `json:"id" gorm:"primaryKey"`
	StatutoryType string          `json:"statutory_type" gorm:"column:statutory_type;not null;uniqueIndex:idx_obligation_type_period"`
	Period        period.Period   `json:"period" gorm:"column:period;type:varchar(7);not null;uniqueIndex:idx_obligation_type_period"`
	DueDate       time.Time       `json:"due_date" gorm:"column:due_date;not null"`
	Amount        decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(14,2);not null"`
	Status        string          `json:"status" gorm:"column:status;default:PENDING"`
	ChallanNumber *string         `json:"challan_number,omitempty" gorm:"column:challan_number"`
	DocumentRefs  []string        `json:"document_refs" gorm:"column:document_refs;serializer:json"`
	GeneratedBy   *string         `json:"generated_by,omitempty" gorm:"column:generated_by"`
	GeneratedAt   *time.Time      `json:"generated_at,omitempty" gorm:"column:generated_at"`
	FiledBy       *string         `json:"filed_by,omitempty" gorm:"column:filed_by"`
	FiledAt       *time.Time      `json:"filed_at,omitempty" gorm:"column:filed_at"`
	VerifiedBy    *string         `json:"verified_by,omitempty" gorm:"column:verified_by"`
	VerifiedAt    *time.Time      `json:"verified_at,omitempty" gorm:"column:verified_at"`
	CreatedAt     time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (Obligation) TableName() string {
	return "compliance_obligations"
}
