package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/guardline/payroll-engine/internal"
	datamodel "github.com/guardline/payroll-engine/internal/core/datamodel/paymentreq"
	salaryDatamodel "github.com/guardline/payroll-engine/internal/core/datamodel/salary"
	"github.com/guardline/payroll-engine/internal/core/period"
	"github.com/guardline/payroll-engine/internal/paymentreq"
	"github.com/guardline/payroll-engine/internal/salary"
)

// PaymentRequestRepository implements the paymentreq.Repository interface
// using GORM.
type PaymentRequestRepository struct {
	db *gorm.DB
}

func NewPaymentRequestRepository(db *gorm.DB) paymentreq.Repository {
	return &PaymentRequestRepository{db: db}
}

func (r *PaymentRequestRepository) CreateWithRecordLinks(pr *paymentreq.PaymentRequest, recordIDs []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(paymentreq.ToDataModel(pr)).Error; err != nil {
			return err
		}
		return tx.Model(&salaryDatamodel.SalaryRecord{}).
			Where("id IN ?", recordIDs).
			Updates(map[string]interface{}{
				"payment_request_id": pr.ID,
				"updated_at":         time.Now(),
			}).Error
	})
}

func (r *PaymentRequestRepository) GetByID(id string) (*paymentreq.PaymentRequest, error) {
	var dm datamodel.PaymentRequest
	err := r.db.Preload("Items").Where("id = ?", id).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrPaymentRequestNotFound
		}
		return nil, err
	}
	return paymentreq.FromDataModel(&dm), nil
}

func (r *PaymentRequestRepository) List(filter paymentreq.Filter) ([]*paymentreq.PaymentRequest, error) {
	q := r.db.Preload("Items").Order("created_at DESC")
	if filter.Department != "" {
		q = q.Where("department = ?", filter.Department)
	}
	if filter.Period != nil {
		q = q.Where("period = ?", filter.Period.String())
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var dms []*datamodel.PaymentRequest
	if err := q.Find(&dms).Error; err != nil {
		return nil, err
	}
	return paymentreq.FromDataModelSlice(dms), nil
}

func (r *PaymentRequestRepository) ActiveForDepartmentPeriod(department string, p period.Period) (*paymentreq.PaymentRequest, error) {
	var dm datamodel.PaymentRequest
	err := r.db.Where("department = ? AND period = ? AND status <> ?",
		department, p.String(), paymentreq.StatusCompleted).
		First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrPaymentRequestNotFound
		}
		return nil, err
	}
	return paymentreq.FromDataModel(&dm), nil
}

func (r *PaymentRequestRepository) Update(pr *paymentreq.PaymentRequest) error {
	pr.UpdatedAt = time.Now()
	dm := paymentreq.ToDataModel(pr)
	// Items never change after build; save the request row only.
	return r.db.Omit("Items").Save(dm).Error
}

// CompleteWithRecords finishes the batch: the request goes COMPLETED and
// every linked salary record flips to PAID, atomically.
func (r *PaymentRequestRepository) CompleteWithRecords(pr *paymentreq.PaymentRequest, recordIDs []string, paidAt time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(paymentreq.ToDataModel(pr)).Error; err != nil {
			return err
		}
		return tx.Model(&salaryDatamodel.SalaryRecord{}).
			Where("id IN ?", recordIDs).
			Updates(map[string]interface{}{
				"status":     salary.StatusPaid,
				"paid_at":    paidAt,
				"updated_at": paidAt,
			}).Error
	})
}
