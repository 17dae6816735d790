package orchestrator_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/core/events"
	"github.com/guardline/payroll-engine/internal/core/period"
	"github.com/guardline/payroll-engine/internal/orchestrator"
	"github.com/guardline/payroll-engine/internal/paymentreq"
	"github.com/guardline/payroll-engine/internal/salary"
)

func TestOrchestrator(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Orchestrator Suite")
}

// In-memory repository; a short delay inside Update widens the read-check-
// write window so an unserialized race would actually be caught.
type raceyRequestRepository struct {
	mu       sync.Mutex
	requests map[string]*paymentreq.PaymentRequest
}

func newRaceyRequestRepository() *raceyRequestRepository {
	return &raceyRequestRepository{requests: make(map[string]*paymentreq.PaymentRequest)}
}

func (m *raceyRequestRepository) get(id string) (*paymentreq.PaymentRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.requests[id]
	if !ok {
		return nil, false
	}
	cp := *pr
	return &cp, true
}

func (m *raceyRequestRepository) CreateWithRecordLinks(pr *paymentreq.PaymentRequest, recordIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pr
	m.requests[pr.ID] = &cp
	return nil
}

func (m *raceyRequestRepository) GetByID(id string) (*paymentreq.PaymentRequest, error) {
	pr, ok := m.get(id)
	if !ok {
		return nil, internal.ErrPaymentRequestNotFound
	}
	return pr, nil
}

func (m *raceyRequestRepository) List(filter paymentreq.Filter) ([]*paymentreq.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*paymentreq.PaymentRequest
	for _, pr := range m.requests {
		cp := *pr
		out = append(out, &cp)
	}
	return out, nil
}

func (m *raceyRequestRepository) ActiveForDepartmentPeriod(department string, p period.Period) (*paymentreq.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pr := range m.requests {
		if pr.Department == department && pr.Period == p && pr.Status != paymentreq.StatusCompleted {
			cp := *pr
			return &cp, nil
		}
	}
	return nil, internal.ErrPaymentRequestNotFound
}

func (m *raceyRequestRepository) Update(pr *paymentreq.PaymentRequest) error {
	time.Sleep(2 * time.Millisecond)
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pr
	m.requests[pr.ID] = &cp
	return nil
}

func (m *raceyRequestRepository) CompleteWithRecords(pr *paymentreq.PaymentRequest, recordIDs []string, paidAt time.Time) error {
	return m.Update(pr)
}

type staticSalarySource struct {
	records []*salary.Record
}

func (s *staticSalarySource) ListByPeriod(p period.Period) ([]*salary.Record, error) {
	return s.records, nil
}

func (s *staticSalarySource) ListByPeriodAndEmployees(p period.Period, employeeIDs []string) ([]*salary.Record, error) {
	return s.records, nil
}

var _ = Describe("Orchestrator", func() {
	var (
		orch     *orchestrator.Orchestrator
		repo     *raceyRequestRepository
		bus      *events.EventBus
		seen     []string
		seenMu   sync.Mutex
		hr       internal.Actor
		accounts internal.Actor
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo = newRaceyRequestRepository()
		source := &staticSalarySource{records: []*salary.Record{
			{
				ID:         "rec-1",
				EmployeeID: "emp-100",
				Period:     period.New(2025, 8),
				Department: "OPERATIONS",
				Net:        decimal.NewFromInt(15000),
				Status:     salary.StatusReadyToPay,
			},
		}}
		requests := paymentreq.NewService(repo, source, logger)

		bus = events.NewEventBus(logger)
		seen = nil
		bus.Subscribe(events.EventTypePaymentRequestSubmitted, func(ctx context.Context, e events.Event) error {
			seenMu.Lock()
			seen = append(seen, e.EventType())
			seenMu.Unlock()
			return nil
		})
		bus.Subscribe(events.EventTypePaymentRequestApproved, func(ctx context.Context, e events.Event) error {
			seenMu.Lock()
			seen = append(seen, e.EventType())
			seenMu.Unlock()
			return nil
		})

		orch = orchestrator.New(nil, nil, requests, nil, bus, logger)
		hr = internal.Actor{ID: "hr-1", Name: "Asha", Department: "HR"}
		accounts = internal.Actor{ID: "acc-1", Name: "Ravi", Department: "ACCOUNTS"}
	})

	// Handlers dispatch asynchronously; flush them so a late append from one
	// spec cannot land in the next spec's slice.
	AfterEach(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		Expect(bus.Drain(ctx)).To(Succeed())
	})

	buildAndSubmit := func() string {
		pr, err := orch.BuildPaymentRequest(paymentreq.BuildDTO{
			Department: "OPERATIONS",
			Period:     period.New(2025, 8),
		}, hr)
		Expect(err).ToNot(HaveOccurred())
		_, err = orch.SubmitPaymentRequest(pr.ID, hr)
		Expect(err).ToNot(HaveOccurred())
		return pr.ID
	}

	It("lets exactly one of two racing decisions through", func() {
		requestID := buildAndSubmit()

		var wg sync.WaitGroup
		results := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, results[0] = orch.DecidePaymentRequest(requestID, paymentreq.DecideDTO{Approve: true}, accounts)
		}()
		go func() {
			defer wg.Done()
			_, results[1] = orch.DecidePaymentRequest(requestID, paymentreq.DecideDTO{Approve: false, Note: "contested"}, accounts)
		}()
		wg.Wait()

		succeeded := 0
		for _, err := range results {
			if err == nil {
				succeeded++
			} else {
				Expect(err).To(MatchError(internal.ErrInvalidStateTransition))
			}
		}
		Expect(succeeded).To(Equal(1))
	})

	It("leaves the entity unchanged when a guard rejects the command", func() {
		requestID := buildAndSubmit()

		_, err := orch.DecidePaymentRequest(requestID, paymentreq.DecideDTO{Approve: true}, accounts)
		Expect(err).ToNot(HaveOccurred())

		before, err := orch.GetPaymentRequest(requestID)
		Expect(err).ToNot(HaveOccurred())

		_, err = orch.DecidePaymentRequest(requestID, paymentreq.DecideDTO{Approve: false, Note: "too late"}, accounts)
		Expect(err).To(MatchError(internal.ErrInvalidStateTransition))

		after, err := orch.GetPaymentRequest(requestID)
		Expect(err).ToNot(HaveOccurred())
		Expect(after.Status).To(Equal(before.Status))
		Expect(after.RejectionNote).To(BeNil())
	})

	It("publishes workflow events after successful commands", func() {
		requestID := buildAndSubmit()

		_, err := orch.DecidePaymentRequest(requestID, paymentreq.DecideDTO{Approve: true}, accounts)
		Expect(err).ToNot(HaveOccurred())

		Eventually(func() []string {
			seenMu.Lock()
			defer seenMu.Unlock()
			return append([]string(nil), seen...)
		}).Should(ContainElements(
			events.EventTypePaymentRequestSubmitted,
			events.EventTypePaymentRequestApproved,
		))
	})

	It("does not publish an event when the command fails", func() {
		requestID := buildAndSubmit()

		Eventually(func() int {
			seenMu.Lock()
			defer seenMu.Unlock()
			return len(seen)
		}).Should(Equal(1))

		// Guard failure: a draft-only command on a submitted request.
		_, err := orch.SubmitPaymentRequest(requestID, hr)
		Expect(err).To(MatchError(internal.ErrInvalidStateTransition))

		Consistently(func() int {
			seenMu.Lock()
			defer seenMu.Unlock()
			return len(seen)
		}, "100ms").Should(Equal(1))
	})
})
