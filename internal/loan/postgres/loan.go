package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/guardline/payroll-engine/internal"
	loanDatamodel "github.com/guardline/payroll-engine/internal/core/datamodel/loan"
	"github.com/guardline/payroll-engine/internal/core/period"
	"github.com/guardline/payroll-engine/internal/loan"
)

// LoanRepository implements the loan.Repository interface using GORM.
type LoanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) loan.Repository {
	return &LoanRepository{db: db}
}

func (r *LoanRepository) Create(l *loan.Loan) error {
	return r.db.Create(loan.ToDataModel(l)).Error
}

func (r *LoanRepository) GetByID(id string) (*loan.Loan, error) {
	var dm loanDatamodel.Loan
	err := r.db.Where("id = ?", id).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrLoanNotFound
		}
		return nil, err
	}
	return loan.FromDataModel(&dm), nil
}

func (r *LoanRepository) GetByEmployee(employeeID string) ([]*loan.Loan, error) {
	var dms []*loanDatamodel.Loan
	err := r.db.Where("employee_id = ?", employeeID).
		Order("created_at DESC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return loan.FromDataModelSlice(dms), nil
}

func (r *LoanRepository) GetAll(limit, offset int) ([]*loan.Loan, error) {
	var dms []*loanDatamodel.Loan
	err := r.db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return loan.FromDataModelSlice(dms), nil
}

func (r *LoanRepository) Update(l *loan.Loan) error {
	l.UpdatedAt = time.Now()
	return r.db.Save(loan.ToDataModel(l)).Error
}

func (r *LoanRepository) GetInstallment(id string) (*loan.Installment, error) {
	var dm loanDatamodel.Installment
	err := r.db.Where("id = ?", id).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrInstallmentNotFound
		}
		return nil, err
	}
	return loan.InstallmentFromDataModel(&dm), nil
}

func (r *LoanRepository) GetInstallmentsByLoan(loanID string) ([]*loan.Installment, error) {
	var dms []*loanDatamodel.Installment
	err := r.db.Where("loan_id = ?", loanID).
		Order("sequence ASC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return loan.InstallmentsFromDataModelSlice(dms), nil
}

func (r *LoanRepository) ListUnpaidDueBefore(cutoff time.Time) ([]*loan.Installment, error) {
	var dms []*loanDatamodel.Installment
	err := r.db.Where("status = ? AND due_date < ?", loan.InstallmentPending, cutoff).
		Order("due_date ASC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return loan.InstallmentsFromDataModelSlice(dms), nil
}

func (r *LoanRepository) UpdateInstallment(i *loan.Installment) error {
	return r.db.Save(loan.InstallmentToDataModel(i)).Error
}

func (r *LoanRepository) ActivateWithSchedule(l *loan.Loan, schedule []*loan.Installment) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(loan.ToDataModel(l)).Error; err != nil {
			return err
		}
		for _, inst := range schedule {
			if err := tx.Create(loan.InstallmentToDataModel(inst)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *LoanRepository) SettleInstallment(l *loan.Loan, i *loan.Installment) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(loan.InstallmentToDataModel(i)).Error; err != nil {
			return err
		}
		return tx.Save(loan.ToDataModel(l)).Error
	})
}

func (r *LoanRepository) ChargesForPeriod(employeeID string, p period.Period) ([]loan.InstallmentCharge, error) {
	var installments []*loanDatamodel.Installment
	err := r.db.
		Joins("JOIN loans ON loans.id = loan_installments.loan_id").
		Where("loans.employee_id = ? AND loans.status = ? AND loan_installments.due_period = ? AND loan_installments.status <> ?",
			employeeID, loan.StatusActive, p.String(), loan.InstallmentPaid).
		Order("loan_installments.due_date ASC").
		Find(&installments).Error
	if err != nil {
		return nil, err
	}

	charges := make([]loan.InstallmentCharge, 0, len(installments))
	for _, inst := range installments {
		l, err := r.GetByID(inst.LoanID)
		if err != nil {
			return nil, err
		}
		charges = append(charges, loan.InstallmentCharge{
			LoanID:        inst.LoanID,
			InstallmentID: inst.ID,
			LoanType:      l.LoanType,
			Amount:        inst.Amount,
		})
	}
	return charges, nil
}
