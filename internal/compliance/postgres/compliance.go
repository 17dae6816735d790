package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/compliance"
	datamodel "github.com/guardline/payroll-engine/internal/core/datamodel/compliance"
	"github.com/guardline/payroll-engine/internal/core/period"
)

// ObligationRepository implements the compliance.Repository interface using
// GORM.
type ObligationRepository struct {
	db *gorm.DB
}

func NewObligationRepository(db *gorm.DB) compliance.Repository {
	return &ObligationRepository{db: db}
}

func (r *ObligationRepository) Create(o *compliance.Obligation) error {
	return r.db.Create(compliance.ToDataModel(o)).Error
}

func (r *ObligationRepository) GetByID(id string) (*compliance.Obligation, error) {
	var dm datamodel.Obligation
	err := r.db.Where("id = ?", id).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrObligationNotFound
		}
		return nil, err
	}
	return compliance.FromDataModel(&dm), nil
}

func (r *ObligationRepository) GetByTypePeriod(statutoryType string, p period.Period) (*compliance.Obligation, error) {
	var dm datamodel.Obligation
	err := r.db.Where("statutory_type = ? AND period = ?", statutoryType, p.String()).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrObligationNotFound
		}
		return nil, err
	}
	return compliance.FromDataModel(&dm), nil
}

func (r *ObligationRepository) ListByPeriod(p period.Period) ([]*compliance.Obligation, error) {
	var dms []*datamodel.Obligation
	err := r.db.Where("period = ?", p.String()).
		Order("due_date ASC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return compliance.FromDataModelSlice(dms), nil
}

func (r *ObligationRepository) ListUnfiledDueBefore(cutoff time.Time) ([]*compliance.Obligation, error) {
	var dms []*datamodel.Obligation
	err := r.db.Where("filed_at IS NULL AND due_date < ?", cutoff).
		Order("due_date ASC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return compliance.FromDataModelSlice(dms), nil
}

func (r *ObligationRepository) Update(o *compliance.Obligation) error {
	o.UpdatedAt = time.Now()
	return r.db.Save(compliance.ToDataModel(o)).Error
}
