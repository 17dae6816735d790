package paymentreq_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/core/period"
	"github.com/guardline/payroll-engine/internal/paymentreq"
	"github.com/guardline/payroll-engine/internal/salary"
)

func TestPaymentRequestService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "PaymentRequest Service Suite")
}

// Mock repository for testing
type mockRequestRepository struct {
	requests    map[string]*paymentreq.PaymentRequest
	linked      map[string]string // salary record ID -> request ID
	paid        map[string]bool   // salary record IDs flipped to PAID
	createError error
	updateError error
}

func newMockRequestRepository() *mockRequestRepository {
	return &mockRequestRepository{
		requests: make(map[string]*paymentreq.PaymentRequest),
		linked:   make(map[string]string),
		paid:     make(map[string]bool),
	}
}

func (m *mockRequestRepository) CreateWithRecordLinks(pr *paymentreq.PaymentRequest, recordIDs []string) error {
	if m.createError != nil {
		return m.createError
	}
	m.requests[pr.ID] = pr
	for _, id := range recordIDs {
		m.linked[id] = pr.ID
	}
	return nil
}

func (m *mockRequestRepository) GetByID(id string) (*paymentreq.PaymentRequest, error) {
	pr, ok := m.requests[id]
	if !ok {
		return nil, internal.ErrPaymentRequestNotFound
	}
	return pr, nil
}

func (m *mockRequestRepository) List(filter paymentreq.Filter) ([]*paymentreq.PaymentRequest, error) {
	var out []*paymentreq.PaymentRequest
	for _, pr := range m.requests {
		if filter.Department != "" && pr.Department != filter.Department {
			continue
		}
		if filter.Period != nil && pr.Period != *filter.Period {
			continue
		}
		if filter.Status != "" && pr.Status != filter.Status {
			continue
		}
		out = append(out, pr)
	}
	return out, nil
}

func (m *mockRequestRepository) ActiveForDepartmentPeriod(department string, p period.Period) (*paymentreq.PaymentRequest, error) {
	for _, pr := range m.requests {
		if pr.Department == department && pr.Period == p && pr.Status != paymentreq.StatusCompleted {
			return pr, nil
		}
	}
	return nil, internal.ErrPaymentRequestNotFound
}

func (m *mockRequestRepository) Update(pr *paymentreq.PaymentRequest) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.requests[pr.ID] = pr
	return nil
}

func (m *mockRequestRepository) CompleteWithRecords(pr *paymentreq.PaymentRequest, recordIDs []string, paidAt time.Time) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.requests[pr.ID] = pr
	for _, id := range recordIDs {
		m.paid[id] = true
	}
	return nil
}

// Mock salary source for testing
type mockSalarySource struct {
	records   []*salary.Record
	listError error
}

func (m *mockSalarySource) ListByPeriod(p period.Period) ([]*salary.Record, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	var out []*salary.Record
	for _, rec := range m.records {
		if rec.Period == p {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockSalarySource) ListByPeriodAndEmployees(p period.Period, employeeIDs []string) ([]*salary.Record, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	want := make(map[string]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		want[id] = true
	}
	var out []*salary.Record
	for _, rec := range m.records {
		if rec.Period == p && want[rec.EmployeeID] {
			out = append(out, rec)
		}
	}
	return out, nil
}

var _ = Describe("PaymentRequestService", func() {
	var (
		svc      *paymentreq.Service
		mockRepo *mockRequestRepository
		salaries *mockSalarySource
		aug      period.Period
		hr       internal.Actor
		accounts internal.Actor
	)

	record := func(employeeID string, net int64) *salary.Record {
		return &salary.Record{
			ID:         "rec-" + employeeID,
			EmployeeID: employeeID,
			Period:     aug,
			Department: "OPERATIONS",
			Net:        decimal.NewFromInt(net),
			Status:     salary.StatusReadyToPay,
		}
	}

	BeforeEach(func() {
		mockRepo = newMockRequestRepository()
		salaries = &mockSalarySource{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = paymentreq.NewService(mockRepo, salaries, logger)
		aug = period.New(2025, 8)
		hr = internal.Actor{ID: "hr-1", Name: "Asha", Department: "HR"}
		accounts = internal.Actor{ID: "acc-1", Name: "Ravi", Department: "ACCOUNTS"}

		salaries.records = []*salary.Record{
			record("emp-100", 15000),
			record("emp-101", 16400),
		}
	})

	buildDTO := paymentreq.BuildDTO{Department: "OPERATIONS", Period: period.New(2025, 8)}

	Describe("Build", func() {
		It("assembles a draft from the department's ready records", func() {
			pr, err := svc.Build(buildDTO, hr)

			Expect(err).ToNot(HaveOccurred())
			Expect(pr.Status).To(Equal(paymentreq.StatusDraft))
			Expect(pr.Items).To(HaveLen(2))
			Expect(pr.TotalAmount.Equal(decimal.NewFromInt(31400))).To(BeTrue())
			Expect(pr.CreatedBy).To(Equal("hr-1"))
		})

		It("freezes each item's net amount at build time", func() {
			pr, err := svc.Build(buildDTO, hr)

			Expect(err).ToNot(HaveOccurred())
			salaries.records[0].Net = decimal.NewFromInt(1)

			Expect(pr.Items[0].NetAmount.Equal(decimal.NewFromInt(15000))).To(BeTrue())
		})

		It("skips held records", func() {
			held := record("emp-102", 9000)
			held.Status = salary.StatusHeld
			salaries.records = append(salaries.records, held)

			pr, err := svc.Build(buildDTO, hr)

			Expect(err).ToNot(HaveOccurred())
			Expect(pr.Items).To(HaveLen(2))
			for _, item := range pr.Items {
				Expect(item.EmployeeID).ToNot(Equal("emp-102"))
			}
		})

		It("skips records already riding another request", func() {
			reqID := "other-request"
			salaries.records[0].PaymentRequestID = &reqID

			pr, err := svc.Build(buildDTO, hr)

			Expect(err).ToNot(HaveOccurred())
			Expect(pr.Items).To(HaveLen(1))
		})

		It("fails when every record is held", func() {
			for _, rec := range salaries.records {
				rec.Status = salary.StatusHeld
			}

			_, err := svc.Build(buildDTO, hr)

			Expect(err).To(MatchError(internal.ErrNoEligibleEmployees))
		})

		It("refuses a second open request for the same department and period", func() {
			_, err := svc.Build(buildDTO, hr)
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.Build(buildDTO, hr)
			Expect(err).To(HaveOccurred())
		})

		It("narrows to the named employees when given", func() {
			dto := buildDTO
			dto.EmployeeIDs = []string{"emp-101"}

			pr, err := svc.Build(dto, hr)

			Expect(err).ToNot(HaveOccurred())
			Expect(pr.Items).To(HaveLen(1))
			Expect(pr.Items[0].EmployeeID).To(Equal("emp-101"))
		})
	})

	Describe("approval pipeline", func() {
		var requestID string

		BeforeEach(func() {
			pr, err := svc.Build(buildDTO, hr)
			Expect(err).ToNot(HaveOccurred())
			requestID = pr.ID
		})

		It("walks draft, submitted, approved, completed", func() {
			pr, err := svc.Submit(requestID, hr)
			Expect(err).ToNot(HaveOccurred())
			Expect(pr.Status).To(Equal(paymentreq.StatusSent))
			Expect(*pr.SubmittedBy).To(Equal("hr-1"))

			pr, err = svc.Decide(requestID, paymentreq.DecideDTO{Approve: true}, accounts)
			Expect(err).ToNot(HaveOccurred())
			Expect(pr.Status).To(Equal(paymentreq.StatusApproved))
			Expect(*pr.DecidedBy).To(Equal("acc-1"))

			pr, err = svc.MarkPaid(requestID, paymentreq.MarkPaidDTO{PaymentRef: "NEFT-2025-08-881"}, accounts)
			Expect(err).ToNot(HaveOccurred())
			Expect(pr.Status).To(Equal(paymentreq.StatusCompleted))
			Expect(*pr.PaymentRef).To(Equal("NEFT-2025-08-881"))
		})

		It("flips every linked salary record to paid on completion", func() {
			_, err := svc.Submit(requestID, hr)
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.Decide(requestID, paymentreq.DecideDTO{Approve: true}, accounts)
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.MarkPaid(requestID, paymentreq.MarkPaidDTO{PaymentRef: "NEFT-1"}, accounts)
			Expect(err).ToNot(HaveOccurred())

			Expect(mockRepo.paid).To(HaveKey("rec-emp-100"))
			Expect(mockRepo.paid).To(HaveKey("rec-emp-101"))
		})

		It("refuses to pay over a record held after approval", func() {
			_, err := svc.Submit(requestID, hr)
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.Decide(requestID, paymentreq.DecideDTO{Approve: true}, accounts)
			Expect(err).ToNot(HaveOccurred())

			salaries.records[0].Status = salary.StatusHeld

			_, err = svc.MarkPaid(requestID, paymentreq.MarkPaidDTO{PaymentRef: "NEFT-1"}, accounts)

			Expect(err).To(HaveOccurred())
			Expect(mockRepo.paid).To(BeEmpty())
			pr, err := svc.GetByID(requestID)
			Expect(err).ToNot(HaveOccurred())
			Expect(pr.Status).To(Equal(paymentreq.StatusApproved))
		})

		It("allows submit, reject, acknowledge, submit again", func() {
			_, err := svc.Submit(requestID, hr)
			Expect(err).ToNot(HaveOccurred())

			pr, err := svc.Decide(requestID, paymentreq.DecideDTO{Approve: false, Note: "headcount mismatch"}, accounts)
			Expect(err).ToNot(HaveOccurred())
			Expect(pr.Status).To(Equal(paymentreq.StatusRejected))
			Expect(*pr.RejectionNote).To(Equal("headcount mismatch"))

			pr, err = svc.Acknowledge(requestID, hr)
			Expect(err).ToNot(HaveOccurred())
			Expect(pr.Status).To(Equal(paymentreq.StatusDraft))

			pr, err = svc.Submit(requestID, hr)
			Expect(err).ToNot(HaveOccurred())
			Expect(pr.Status).To(Equal(paymentreq.StatusSent))
		})

		It("keeps the rejection note through acknowledgement", func() {
			_, err := svc.Submit(requestID, hr)
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.Decide(requestID, paymentreq.DecideDTO{Approve: false, Note: "headcount mismatch"}, accounts)
			Expect(err).ToNot(HaveOccurred())

			pr, err := svc.Acknowledge(requestID, hr)

			Expect(err).ToNot(HaveOccurred())
			Expect(pr.RejectionNote).ToNot(BeNil())
		})

		It("refuses to reject an already approved request", func() {
			_, err := svc.Submit(requestID, hr)
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.Decide(requestID, paymentreq.DecideDTO{Approve: true}, accounts)
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.Decide(requestID, paymentreq.DecideDTO{Approve: false, Note: "too late"}, accounts)

			Expect(err).To(MatchError(internal.ErrInvalidStateTransition))
		})

		It("refuses to submit a request twice", func() {
			_, err := svc.Submit(requestID, hr)
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.Submit(requestID, hr)
			Expect(err).To(MatchError(internal.ErrInvalidStateTransition))
		})

		It("refuses to mark an unapproved request paid", func() {
			_, err := svc.MarkPaid(requestID, paymentreq.MarkPaidDTO{PaymentRef: "NEFT-1"}, accounts)
			Expect(err).To(MatchError(internal.ErrInvalidStateTransition))
		})

		It("requires a payment reference", func() {
			_, err := svc.Submit(requestID, hr)
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.Decide(requestID, paymentreq.DecideDTO{Approve: true}, accounts)
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.MarkPaid(requestID, paymentreq.MarkPaidDTO{}, accounts)

			Expect(err).To(MatchError(internal.ErrMissingPaymentRef))
		})

		It("requires a note when rejecting", func() {
			_, err := svc.Submit(requestID, hr)
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.Decide(requestID, paymentreq.DecideDTO{Approve: false}, accounts)
			Expect(err).To(HaveOccurred())
		})

		It("refuses any further transition once completed", func() {
			_, err := svc.Submit(requestID, hr)
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.Decide(requestID, paymentreq.DecideDTO{Approve: true}, accounts)
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.MarkPaid(requestID, paymentreq.MarkPaidDTO{PaymentRef: "NEFT-1"}, accounts)
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.Submit(requestID, hr)
			Expect(err).To(MatchError(internal.ErrInvalidStateTransition))
			_, err = svc.Decide(requestID, paymentreq.DecideDTO{Approve: false, Note: "no"}, accounts)
			Expect(err).To(MatchError(internal.ErrInvalidStateTransition))
		})
	})

	Describe("List", func() {
		It("filters by status", func() {
			pr, err := svc.Build(buildDTO, hr)
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.Submit(pr.ID, hr)
			Expect(err).ToNot(HaveOccurred())

			sent, err := svc.List(paymentreq.Filter{Status: paymentreq.StatusSent})
			Expect(err).ToNot(HaveOccurred())
			Expect(sent).To(HaveLen(1))

			drafts, err := svc.List(paymentreq.Filter{Status: paymentreq.StatusDraft})
			Expect(err).ToNot(HaveOccurred())
			Expect(drafts).To(BeEmpty())
		})
	})
})
