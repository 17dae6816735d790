package compliance_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/compliance"
	"github.com/guardline/payroll-engine/internal/core/period"
	"github.com/guardline/payroll-engine/internal/docgen"
	"github.com/guardline/payroll-engine/internal/salary"
)

func TestComplianceService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Compliance Service Suite")
}

// Mock repository for testing
type mockObligationRepository struct {
	obligations map[string]*compliance.Obligation
	createError error
	updateError error
}

func newMockObligationRepository() *mockObligationRepository {
	return &mockObligationRepository{obligations: make(map[string]*compliance.Obligation)}
}

func (m *mockObligationRepository) Create(o *compliance.Obligation) error {
	if m.createError != nil {
		return m.createError
	}
	m.obligations[o.ID] = o
	return nil
}

func (m *mockObligationRepository) GetByID(id string) (*compliance.Obligation, error) {
	o, ok := m.obligations[id]
	if !ok {
		return nil, internal.ErrObligationNotFound
	}
	return o, nil
}

func (m *mockObligationRepository) GetByTypePeriod(statutoryType string, p period.Period) (*compliance.Obligation, error) {
	for _, o := range m.obligations {
		if o.StatutoryType == statutoryType && o.Period == p {
			return o, nil
		}
	}
	return nil, internal.ErrObligationNotFound
}

func (m *mockObligationRepository) ListByPeriod(p period.Period) ([]*compliance.Obligation, error) {
	var out []*compliance.Obligation
	for _, o := range m.obligations {
		if o.Period == p {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockObligationRepository) ListUnfiledDueBefore(cutoff time.Time) ([]*compliance.Obligation, error) {
	var out []*compliance.Obligation
	for _, o := range m.obligations {
		if o.FiledAt == nil && o.DueDate.Before(cutoff) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockObligationRepository) Update(o *compliance.Obligation) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.obligations[o.ID] = o
	return nil
}

// Mock document generator for testing
type mockGenerator struct {
	generateError error
	queueError    error
	lastRequest   docgen.RenderRequest
	queued        []docgen.RenderRequest
}

func (m *mockGenerator) Generate(req docgen.RenderRequest) (docgen.RenderResult, error) {
	m.lastRequest = req
	if m.generateError != nil {
		return docgen.RenderResult{}, m.generateError
	}
	return docgen.RenderResult{
		DocumentRef: "docs/" + req.StatutoryType + "/" + req.Period.String(),
		GeneratedAt: time.Now(),
	}, nil
}

func (m *mockGenerator) QueueRender(req docgen.RenderRequest) error {
	if m.queueError != nil {
		return m.queueError
	}
	m.queued = append(m.queued, req)
	return nil
}

// Mock salary totals source for testing
type mockTotalsSource struct {
	totals      salary.Totals
	totalsError error
}

func (m *mockTotalsSource) TotalsForPeriod(p period.Period) (salary.Totals, error) {
	if m.totalsError != nil {
		return salary.Totals{}, m.totalsError
	}
	return m.totals, nil
}

var _ = Describe("ComplianceService", func() {
	var (
		svc       *compliance.Service
		mockRepo  *mockObligationRepository
		generator *mockGenerator
		totals    *mockTotalsSource
		actor     internal.Actor
	)

	BeforeEach(func() {
		mockRepo = newMockObligationRepository()
		generator = &mockGenerator{}
		totals = &mockTotalsSource{
			totals: salary.Totals{
				Period:      period.New(2025, 8),
				RecordCount: 12,
				GrossTotal:  decimal.NewFromInt(240000),
				DeductionsByKind: map[string]decimal.Decimal{
					salary.DeductionPF:  decimal.NewFromInt(17280),
					salary.DeductionESI: decimal.NewFromInt(1700),
				},
			},
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = compliance.NewService(mockRepo, generator, totals, logger)
		actor = internal.Actor{ID: "acc-1", Name: "Ravi", Department: "ACCOUNTS"}
	})

	ensureDTO := func() compliance.EnsureDTO {
		return compliance.EnsureDTO{
			StatutoryType: compliance.TypePF,
			Period:        period.New(2025, 8),
			DueDate:       time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC),
			Amount:        decimal.NewFromInt(17280),
		}
	}

	Describe("Ensure", func() {
		It("creates a pending obligation", func() {
			o, err := svc.Ensure(ensureDTO())

			Expect(err).ToNot(HaveOccurred())
			Expect(o.Status).To(Equal(compliance.StatusPending))
			Expect(o.StatutoryType).To(Equal(compliance.TypePF))
		})

		It("pulls the amount from salary totals when not given", func() {
			dto := ensureDTO()
			dto.Amount = decimal.Zero

			o, err := svc.Ensure(dto)

			Expect(err).ToNot(HaveOccurred())
			Expect(o.Amount.Equal(decimal.NewFromInt(17280))).To(BeTrue())
		})

		It("refuses a duplicate for the same type and period", func() {
			_, err := svc.Ensure(ensureDTO())
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.Ensure(ensureDTO())
			Expect(err).To(MatchError(internal.ErrObligationExists))
		})

		It("rejects an unknown statutory type", func() {
			dto := ensureDTO()
			dto.StatutoryType = "LUNCH_TAX"

			_, err := svc.Ensure(dto)
			Expect(err).To(HaveOccurred())
		})

		It("requires an explicit amount for bonus filings", func() {
			dto := ensureDTO()
			dto.StatutoryType = compliance.TypeBonus
			dto.Amount = decimal.Zero

			_, err := svc.Ensure(dto)

			Expect(err).To(HaveOccurred())
			Expect(mockRepo.obligations).To(BeEmpty())
		})

		It("requires an explicit amount for gratuity filings", func() {
			dto := ensureDTO()
			dto.StatutoryType = compliance.TypeGratuity
			dto.Amount = decimal.Zero

			_, err := svc.Ensure(dto)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GenerateDocument", func() {
		var obligationID string

		BeforeEach(func() {
			o, err := svc.Ensure(ensureDTO())
			Expect(err).ToNot(HaveOccurred())
			obligationID = o.ID
		})

		It("attaches the document reference and advances to generated", func() {
			o, err := svc.GenerateDocument(obligationID, actor)

			Expect(err).ToNot(HaveOccurred())
			Expect(o.Status).To(Equal(compliance.StatusGenerated))
			Expect(o.DocumentRefs).To(HaveLen(1))
			Expect(*o.GeneratedBy).To(Equal("acc-1"))
			Expect(generator.lastRequest.StatutoryType).To(Equal(compliance.TypePF))
		})

		It("fails when no salary data exists for the period", func() {
			totals.totals.RecordCount = 0

			_, err := svc.GenerateDocument(obligationID, actor)

			Expect(err).To(MatchError(internal.ErrGenerationFailed))
		})

		It("fails and leaves the obligation pending when rendering errors", func() {
			generator.generateError = errors.New("render service down")

			_, err := svc.GenerateDocument(obligationID, actor)
			Expect(err).To(MatchError(internal.ErrGenerationFailed))

			o, err := mockRepo.GetByID(obligationID)
			Expect(err).ToNot(HaveOccurred())
			Expect(o.Status).To(Equal(compliance.StatusPending))
			Expect(o.DocumentRefs).To(BeEmpty())
		})

		It("can attach further documents after filing", func() {
			_, err := svc.GenerateDocument(obligationID, actor)
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.FileReturn(obligationID, compliance.FileDTO{ChallanNumber: "CHLN-001"}, actor)
			Expect(err).ToNot(HaveOccurred())

			o, err := svc.GenerateDocument(obligationID, actor)

			Expect(err).ToNot(HaveOccurred())
			Expect(o.Status).To(Equal(compliance.StatusFiled))
			Expect(o.DocumentRefs).To(HaveLen(2))
		})
	})

	Describe("queued rendering", func() {
		var obligationID string

		BeforeEach(func() {
			o, err := svc.Ensure(ensureDTO())
			Expect(err).ToNot(HaveOccurred())
			obligationID = o.ID
		})

		It("enqueues a render job without touching the obligation", func() {
			o, err := svc.QueueDocumentRender(obligationID, actor)

			Expect(err).ToNot(HaveOccurred())
			Expect(o.Status).To(Equal(compliance.StatusPending))
			Expect(generator.queued).To(HaveLen(1))
			Expect(generator.queued[0].ObligationID).To(Equal(obligationID))
		})

		It("refuses to queue when no salary data exists for the period", func() {
			totals.totals.RecordCount = 0

			_, err := svc.QueueDocumentRender(obligationID, actor)

			Expect(err).To(MatchError(internal.ErrGenerationFailed))
			Expect(generator.queued).To(BeEmpty())
		})

		It("surfaces a full queue as a generation failure", func() {
			generator.queueError = errors.New("render queue full")

			_, err := svc.QueueDocumentRender(obligationID, actor)

			Expect(err).To(MatchError(internal.ErrGenerationFailed))
		})

		It("attaches the callback's document reference and advances the status", func() {
			o, err := svc.AttachRenderedDocument(obligationID, "docs/PF/2025-08/challan.pdf")

			Expect(err).ToNot(HaveOccurred())
			Expect(o.Status).To(Equal(compliance.StatusGenerated))
			Expect(o.DocumentRefs).To(ConsistOf("docs/PF/2025-08/challan.pdf"))
		})

		It("rejects a callback without a document reference", func() {
			_, err := svc.AttachRenderedDocument(obligationID, "")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("FileReturn", func() {
		var obligationID string

		BeforeEach(func() {
			o, err := svc.Ensure(ensureDTO())
			Expect(err).ToNot(HaveOccurred())
			obligationID = o.ID
		})

		It("records the challan and filer", func() {
			o, err := svc.FileReturn(obligationID, compliance.FileDTO{ChallanNumber: "CHLN-001"}, actor)

			Expect(err).ToNot(HaveOccurred())
			Expect(o.Status).To(Equal(compliance.StatusFiled))
			Expect(*o.ChallanNumber).To(Equal("CHLN-001"))
			Expect(*o.FiledBy).To(Equal("acc-1"))
		})

		It("requires a challan number", func() {
			_, err := svc.FileReturn(obligationID, compliance.FileDTO{}, actor)
			Expect(err).To(MatchError(internal.ErrMissingChallan))
		})

		It("refuses to file twice", func() {
			_, err := svc.FileReturn(obligationID, compliance.FileDTO{ChallanNumber: "CHLN-001"}, actor)
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.FileReturn(obligationID, compliance.FileDTO{ChallanNumber: "CHLN-002"}, actor)
			Expect(err).To(MatchError(internal.ErrInvalidStateTransition))
		})
	})

	Describe("derived overdue status", func() {
		It("reads overdue after the due date while unfiled", func() {
			o, err := svc.Ensure(ensureDTO())
			Expect(err).ToNot(HaveOccurred())

			view, err := svc.GetByID(o.ID, time.Date(2025, 9, 16, 0, 0, 0, 0, time.UTC))

			Expect(err).ToNot(HaveOccurred())
			Expect(view.EffectiveStatus).To(Equal(compliance.StatusOverdue))
			Expect(view.Status).To(Equal(compliance.StatusPending))
		})

		It("reads its stored status before the due date", func() {
			o, err := svc.Ensure(ensureDTO())
			Expect(err).ToNot(HaveOccurred())

			view, err := svc.GetByID(o.ID, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))

			Expect(err).ToNot(HaveOccurred())
			Expect(view.EffectiveStatus).To(Equal(compliance.StatusPending))
		})

		It("keeps the late-filing flag after a late filing", func() {
			o, err := svc.Ensure(ensureDTO())
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.FileReturn(o.ID, compliance.FileDTO{
				ChallanNumber: "CHLN-009",
				FiledOn:       "2025-09-20",
			}, actor)
			Expect(err).ToNot(HaveOccurred())

			view, err := svc.GetByID(o.ID, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))

			Expect(err).ToNot(HaveOccurred())
			Expect(view.EffectiveStatus).To(Equal(compliance.StatusFiled))
			Expect(view.FiledLate).To(BeTrue())
		})

		It("does not flag an on-time filing as late", func() {
			o, err := svc.Ensure(ensureDTO())
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.FileReturn(o.ID, compliance.FileDTO{
				ChallanNumber: "CHLN-010",
				FiledOn:       "2025-09-10",
			}, actor)
			Expect(err).ToNot(HaveOccurred())

			view, err := svc.GetByID(o.ID, time.Now())

			Expect(err).ToNot(HaveOccurred())
			Expect(view.FiledLate).To(BeFalse())
		})
	})

	Describe("Verify", func() {
		It("verifies a filed obligation", func() {
			o, err := svc.Ensure(ensureDTO())
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.FileReturn(o.ID, compliance.FileDTO{ChallanNumber: "CHLN-001"}, actor)
			Expect(err).ToNot(HaveOccurred())

			verified, err := svc.Verify(o.ID, actor)

			Expect(err).ToNot(HaveOccurred())
			Expect(verified.Status).To(Equal(compliance.StatusVerified))
			Expect(*verified.VerifiedBy).To(Equal("acc-1"))
		})

		It("refuses to verify an unfiled obligation", func() {
			o, err := svc.Ensure(ensureDTO())
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.Verify(o.ID, actor)
			Expect(err).To(MatchError(internal.ErrInvalidStateTransition))
		})
	})

	Describe("ListOverdue", func() {
		It("returns unfiled obligations past the cutoff", func() {
			_, err := svc.Ensure(ensureDTO())
			Expect(err).ToNot(HaveOccurred())

			esic := ensureDTO()
			esic.StatutoryType = compliance.TypeESIC
			esic.DueDate = time.Date(2025, 9, 21, 0, 0, 0, 0, time.UTC)
			_, err = svc.Ensure(esic)
			Expect(err).ToNot(HaveOccurred())

			views, err := svc.ListOverdue(time.Date(2025, 9, 18, 0, 0, 0, 0, time.UTC))

			Expect(err).ToNot(HaveOccurred())
			Expect(views).To(HaveLen(1))
			Expect(views[0].StatutoryType).To(Equal(compliance.TypePF))
			Expect(views[0].EffectiveStatus).To(Equal(compliance.StatusOverdue))
		})
	})

})
