package compliance

import (
	"time"

	"github.com/shopspring/decimal"

	datamodel "github.com/guardline/payroll-engine/internal/core/datamodel/compliance"
	"github.com/guardline/payroll-engine/internal/core/period"
)

// Statutory filing types tracked by the compliance calendar.
const (
	TypePF       = "PF"
	TypeESIC     = "ESIC"
	TypePT       = "PT"
	TypeTDS      = "TDS"
	TypeBonus    = "BONUS"
	TypeGratuity = "GRATUITY"
)

// Stored statuses. OVERDUE is never written; it is derived from the due
// date at read time so a lapsed obligation can never be masked by a stale
// row.
const (
	StatusPending   = "PENDING"
	StatusGenerated = "GENERATED"
	StatusFiled     = "FILED"
	StatusVerified  = "VERIFIED"

	StatusOverdue = "OVERDUE"
)

// Obligation is one statutory filing for one (type, period) pair.
type Obligation struct {
	ID            string          `json:"id"`
	StatutoryType string          `json:"statutory_type"`
	Period        period.Period   `json:"period"`
	DueDate       time.Time       `json:"due_date"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	ChallanNumber *string         `json:"challan_number,omitempty"`
	DocumentRefs  []string        `json:"document_refs"`
	GeneratedBy   *string         `json:"generated_by,omitempty"`
	GeneratedAt   *time.Time      `json:"generated_at,omitempty"`
	FiledBy       *string         `json:"filed_by,omitempty"`
	FiledAt       *time.Time      `json:"filed_at,omitempty"`
	VerifiedBy    *string         `json:"verified_by,omitempty"`
	VerifiedAt    *time.Time      `json:"verified_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func ValidType(statutoryType string) bool {
	switch statutoryType {
	case TypePF, TypeESIC, TypePT, TypeTDS, TypeBonus, TypeGratuity:
		return true
	}
	return false
}

// EffectiveStatus is what the calendar shows: an unfiled obligation past
// its due date reads OVERDUE regardless of what is stored.
func (o *Obligation) EffectiveStatus(asOf time.Time) string {
	if o.FiledAt == nil && asOf.After(o.DueDate) {
		return StatusOverdue
	}
	return o.Status
}

// FiledLate reports whether the return went in after the due date. The
// flag is derived, so it survives any later status change.
func (o *Obligation) FiledLate() bool {
	return o.FiledAt != nil && o.FiledAt.After(o.DueDate)
}

func (o *Obligation) CanFile() bool {
	return o.Status == StatusPending || o.Status == StatusGenerated
}

func (o *Obligation) CanVerify() bool {
	return o.Status == StatusFiled
}

// RecordGeneration attaches a document reference. From PENDING the status
// advances to GENERATED; a filed or verified obligation keeps its status,
// documents may still be attached to it afterward.
func (o *Obligation) RecordGeneration(documentRef, actorID string, at time.Time) {
	if o.Status == StatusPending || o.Status == StatusGenerated {
		o.Status = StatusGenerated
	}
	o.DocumentRefs = append(o.DocumentRefs, documentRef)
	o.GeneratedBy = &actorID
	o.GeneratedAt = &at
	o.UpdatedAt = at
}

func (o *Obligation) File(challanNumber, actorID string, filedAt time.Time) {
	o.Status = StatusFiled
	o.ChallanNumber = &challanNumber
	o.FiledBy = &actorID
	o.FiledAt = &filedAt
	o.UpdatedAt = time.Now()
}

func (o *Obligation) Verify(actorID string, at time.Time) {
	o.Status = StatusVerified
	o.VerifiedBy = &actorID
	o.VerifiedAt = &at
	o.UpdatedAt = at
}

func ToDataModel(o *Obligation) *datamodel.Obligation {
	return &datamodel.Obligation{
		ID:            o.ID,
		StatutoryType: o.StatutoryType,
		Period:        o.Period,
		DueDate:       o.DueDate,
		Amount:        o.Amount,
		Status:        o.Status,
		ChallanNumber: o.ChallanNumber,
		DocumentRefs:  o.DocumentRefs,
		GeneratedBy:   o.GeneratedBy,
		GeneratedAt:   o.GeneratedAt,
		FiledBy:       o.FiledBy,
		FiledAt:       o.FiledAt,
		VerifiedBy:    o.VerifiedBy,
		VerifiedAt:    o.VerifiedAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func FromDataModel(dm *datamodel.Obligation) *Obligation {
	return &Obligation{
		ID:            dm.ID,
		StatutoryType: dm.StatutoryType,
		Period:        dm.Period,
		DueDate:       dm.DueDate,
		Amount:        dm.Amount,
		Status:        dm.Status,
		ChallanNumber: dm.ChallanNumber,
		DocumentRefs:  dm.DocumentRefs,
		GeneratedBy:   dm.GeneratedBy,
		GeneratedAt:   dm.GeneratedAt,
		FiledBy:       dm.FiledBy,
		FiledAt:       dm.FiledAt,
		VerifiedBy:    dm.VerifiedBy,
		VerifiedAt:    dm.VerifiedAt,
		CreatedAt:     dm.CreatedAt,
		UpdatedAt:     dm.UpdatedAt,
	}
}

func FromDataModelSlice(dms []*datamodel.Obligation) []*Obligation {
	out := make([]*Obligation, len(dms))
	for i, dm := range dms {
		out[i] = FromDataModel(dm)
	}
	return out
}
