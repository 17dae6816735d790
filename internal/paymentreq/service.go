package paymentreq

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/core/period"
	"github.com/guardline/payroll-engine/internal/salary"
)

// SalarySource is the salary engine view the workflow needs: the computed
// records a request can draw from.
type SalarySource interface {
	ListByPeriod(p period.Period) ([]*salary.Record, error)
	ListByPeriodAndEmployees(p period.Period, employeeIDs []string) ([]*salary.Record, error)
}

// Filter narrows request listings. Zero-valued fields match everything, so
// filters compose by just setting the fields that matter.
type Filter struct {
	Department string
	Period     *period.Period
	Status     string
}

// Repository defines the data access methods for payment requests.
type Repository interface {
	// CreateWithRecordLinks persists the draft and stamps its ID onto the
	// underlying salary records atomically.
	CreateWithRecordLinks(pr *PaymentRequest, recordIDs []string) error
	GetByID(id string) (*PaymentRequest, error)
	List(filter Filter) ([]*PaymentRequest, error)
	ActiveForDepartmentPeriod(department string, p period.Period) (*PaymentRequest, error)
	Update(pr *PaymentRequest) error
	// CompleteWithRecords marks the request COMPLETED and flips every linked
	// salary record to PAID in one transaction.
	CompleteWithRecords(pr *PaymentRequest, recordIDs []string, paidAt time.Time) error
}

// Service is the payment request workflow: batch assembly, the HR to
// Accounts handoff, and the terminal mark-paid that freezes payroll.
type Service struct {
	repo     Repository
	salaries SalarySource
	logger   *slog.Logger
}

func NewService(repo Repository, salaries SalarySource, logger *slog.Logger) *Service {
	return &Service{repo: repo, salaries: salaries, logger: logger}
}

// Build assembles a DRAFT request from the department's eligible records.
// Held records are skipped, as are records already riding another request.
func (s *Service) Build(dto BuildDTO, actor internal.Actor) (*PaymentRequest, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.repo.ActiveForDepartmentPeriod(dto.Department, dto.Period); err == nil && existing != nil {
		return nil, internal.NewConflictError(
			"an open payment request already exists for this department and period",
			internal.ErrCodePaymentRequestOpen).
			WithDetails(map[string]string{"payment_request_id": existing.ID})
	}

	var records []*salary.Record
	var err error
	if len(dto.EmployeeIDs) > 0 {
		records, err = s.salaries.ListByPeriodAndEmployees(dto.Period, dto.EmployeeIDs)
	} else {
		records, err = s.salaries.ListByPeriod(dto.Period)
	}
	if err != nil {
		return nil, internal.NewInternalError("failed to load salary records", err)
	}

	now := time.Now()
	pr := &PaymentRequest{
		ID:          uuid.New().String(),
		Department:  dto.Department,
		Period:      dto.Period,
		TotalAmount: decimal.Zero,
		Status:      StatusDraft,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var recordIDs []string
	skippedHeld := 0
	for _, rec := range records {
		if rec.Department != dto.Department {
			continue
		}
		if rec.IsHeld() {
			skippedHeld++
			continue
		}
		if rec.IsPaid() || rec.PaymentRequestID != nil {
			continue
		}
		pr.Items = append(pr.Items, Item{
			ID:               uuid.New().String(),
			PaymentRequestID: pr.ID,
			SalaryRecordID:   rec.ID,
			EmployeeID:       rec.EmployeeID,
			NetAmount:        rec.Net,
			CreatedAt:        now,
		})
		pr.TotalAmount = pr.TotalAmount.Add(rec.Net)
		recordIDs = append(recordIDs, rec.ID)
	}

	if len(pr.Items) == 0 {
		s.logger.Warn("no eligible employees for payment request",
			"department", dto.Department,
			"period", dto.Period.String(),
			"skipped_held", skippedHeld)
		return nil, internal.ErrNoEligibleEmployees
	}

	if err := s.repo.CreateWithRecordLinks(pr, recordIDs); err != nil {
		s.logger.Error("failed to create payment request", "error", err, "department", dto.Department)
		return nil, internal.NewInternalError("failed to create payment request", err)
	}

	s.logger.Info("payment request built",
		"payment_request_id", pr.ID,
		"department", pr.Department,
		"period", pr.Period.String(),
		"items", len(pr.Items),
		"total", pr.TotalAmount,
		"skipped_held", skippedHeld)

	return pr, nil
}

// Submit hands a draft to Accounts.
func (s *Service) Submit(requestID string, actor internal.Actor) (*PaymentRequest, error) {
	pr, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	if !pr.CanSubmit() {
		s.logger.Warn("cannot submit payment request in current state",
			"payment_request_id", requestID, "status", pr.Status)
		return nil, internal.ErrInvalidStateTransition.WithMessage(
			"payment request %s cannot be submitted from %s", requestID, pr.Status)
	}

	pr.Submit(actor.ID, time.Now())
	if err := s.repo.Update(pr); err != nil {
		return nil, internal.NewInternalError("failed to update payment request", err)
	}

	s.logger.Info("payment request submitted",
		"payment_request_id", requestID,
		"submitted_by", actor.ID,
		"total", pr.TotalAmount)

	return pr, nil
}

// Decide records the Accounts verdict on a submitted request. Approval
// locks the batch for payment; rejection sends it back to HR with a note.
func (s *Service) Decide(requestID string, dto DecideDTO, actor internal.Actor) (*PaymentRequest, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	pr, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	if !pr.CanDecide() {
		s.logger.Warn("cannot decide payment request in current state",
			"payment_request_id", requestID, "status", pr.Status)
		return nil, internal.ErrInvalidStateTransition.WithMessage(
			"payment request %s has no pending accounts decision", requestID)
	}

	now := time.Now()
	if dto.Approve {
		pr.Approve(actor.ID, now)
	} else {
		pr.Reject(actor.ID, dto.Note, now)
	}

	if err := s.repo.Update(pr); err != nil {
		return nil, internal.NewInternalError("failed to update payment request", err)
	}

	s.logger.Info("payment request decided",
		"payment_request_id", requestID,
		"approved", dto.Approve,
		"decided_by", actor.ID)

	return pr, nil
}

// Acknowledge returns a rejected request to DRAFT so HR can correct and
// resubmit it.
func (s *Service) Acknowledge(requestID string, actor internal.Actor) (*PaymentRequest, error) {
	pr, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	if !pr.CanAcknowledge() {
		return nil, internal.ErrInvalidStateTransition.WithMessage(
			"payment request %s is not rejected", requestID)
	}

	pr.Acknowledge(time.Now())
	if err := s.repo.Update(pr); err != nil {
		return nil, internal.NewInternalError("failed to update payment request", err)
	}

	s.logger.Info("payment request rejection acknowledged",
		"payment_request_id", requestID, "acknowledged_by", actor.ID)

	return pr, nil
}

// MarkPaid completes an approved request and flips every linked salary
// record to PAID in the same transaction, so payroll never half-pays a
// batch.
func (s *Service) MarkPaid(requestID string, dto MarkPaidDTO, actor internal.Actor) (*PaymentRequest, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	pr, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	if !pr.CanMarkPaid() {
		s.logger.Warn("cannot mark payment request paid in current state",
			"payment_request_id", requestID, "status", pr.Status)
		return nil, internal.ErrInvalidStateTransition.WithMessage(
			"payment request %s is not approved for payment", requestID)
	}

	// A hold can land between approval and payment. Re-read the linked
	// records so the batch never pays over one; the caller must release the
	// hold or rebuild the request.
	recordIDs := make([]string, len(pr.Items))
	employeeIDs := make([]string, len(pr.Items))
	linked := make(map[string]bool, len(pr.Items))
	for i, item := range pr.Items {
		recordIDs[i] = item.SalaryRecordID
		employeeIDs[i] = item.EmployeeID
		linked[item.SalaryRecordID] = true
	}

	records, err := s.salaries.ListByPeriodAndEmployees(pr.Period, employeeIDs)
	if err != nil {
		return nil, internal.NewInternalError("failed to load salary records", err)
	}
	for _, rec := range records {
		if linked[rec.ID] && rec.IsHeld() {
			s.logger.Warn("held salary record in approved payment request",
				"payment_request_id", requestID,
				"salary_record_id", rec.ID,
				"employee_id", rec.EmployeeID)
			return nil, internal.NewConflictError(
				"a salary record in this request was held after approval; release the hold or rebuild the request",
				internal.ErrCodeHeldRecordInBatch).
				WithDetails(map[string]string{"employee_id": rec.EmployeeID})
		}
	}

	now := time.Now()
	pr.MarkPaid(actor.ID, dto.PaymentRef, now)

	if err := s.repo.CompleteWithRecords(pr, recordIDs, now); err != nil {
		s.logger.Error("failed to complete payment request", "error", err, "payment_request_id", requestID)
		return nil, internal.NewInternalError("failed to complete payment request", err)
	}

	s.logger.Info("payment request completed",
		"payment_request_id", requestID,
		"payment_ref", dto.PaymentRef,
		"records_paid", len(recordIDs),
		"paid_by", actor.ID)

	return pr, nil
}

func (s *Service) GetByID(requestID string) (*PaymentRequest, error) {
	return s.repo.GetByID(requestID)
}

func (s *Service) List(filter Filter) ([]*PaymentRequest, error) {
	return s.repo.List(filter)
}
