package postgres

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/guardline/payroll-engine/internal"
	salaryDatamodel "github.com/guardline/payroll-engine/internal/core/datamodel/salary"
	"github.com/guardline/payroll-engine/internal/core/period"
	"github.com/guardline/payroll-engine/internal/salary"
)

// SalaryRepository implements the salary.Repository interface using GORM.
type SalaryRepository struct {
	db *gorm.DB
}

func NewSalaryRepository(db *gorm.DB) salary.Repository {
	return &SalaryRepository{db: db}
}

// Upsert writes the record keyed by (employee, period). Recomputation hits
// the unique index and overwrites the existing row in place.
func (r *SalaryRepository) Upsert(rec *salary.Record) error {
	rec.UpdatedAt = time.Now()
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "employee_id"}, {Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"department", "attended_shifts", "total_shifts", "base_salary",
			"basic", "hra", "allowance", "gross", "total_deductions", "net",
			"deductions", "status", "hold_reason", "held_by", "computed_at",
			"updated_at",
		}),
	}).Create(salary.ToDataModel(rec)).Error
}

func (r *SalaryRepository) GetByID(id string) (*salary.Record, error) {
	var dm salaryDatamodel.SalaryRecord
	err := r.db.Where("id = ?", id).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrSalaryRecordNotFound
		}
		return nil, err
	}
	return salary.FromDataModel(&dm), nil
}

func (r *SalaryRepository) GetByEmployeePeriod(employeeID string, p period.Period) (*salary.Record, error) {
	var dm salaryDatamodel.SalaryRecord
	err := r.db.Where("employee_id = ? AND period = ?", employeeID, p.String()).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrSalaryRecordNotFound
		}
		return nil, err
	}
	return salary.FromDataModel(&dm), nil
}

func (r *SalaryRepository) ListByPeriod(p period.Period) ([]*salary.Record, error) {
	var dms []*salaryDatamodel.SalaryRecord
	err := r.db.Where("period = ?", p.String()).
		Order("employee_id ASC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return salary.FromDataModelSlice(dms), nil
}

func (r *SalaryRepository) ListByPeriodAndEmployees(p period.Period, employeeIDs []string) ([]*salary.Record, error) {
	var dms []*salaryDatamodel.SalaryRecord
	err := r.db.Where("period = ? AND employee_id IN ?", p.String(), employeeIDs).
		Order("employee_id ASC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return salary.FromDataModelSlice(dms), nil
}

func (r *SalaryRepository) Update(rec *salary.Record) error {
	rec.UpdatedAt = time.Now()
	return r.db.Save(salary.ToDataModel(rec)).Error
}
