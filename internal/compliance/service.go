package compliance

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/core/period"
	"github.com/guardline/payroll-engine/internal/docgen"
	"github.com/guardline/payroll-engine/internal/salary"
)

// DocumentGenerator renders the challan or return document for an
// obligation; the docgen client implements it. Generate is synchronous,
// QueueRender hands the job to the background pool and reports back through
// the render webhook.
type DocumentGenerator interface {
	Generate(req docgen.RenderRequest) (docgen.RenderResult, error)
	QueueRender(req docgen.RenderRequest) error
}

// SalaryTotalsSource supplies the period aggregates a filing is based on.
type SalaryTotalsSource interface {
	TotalsForPeriod(p period.Period) (salary.Totals, error)
}

// Repository defines the data access methods for compliance obligations.
type Repository interface {
	Create(o *Obligation) error
	GetByID(id string) (*Obligation, error)
	GetByTypePeriod(statutoryType string, p period.Period) (*Obligation, error)
	ListByPeriod(p period.Period) ([]*Obligation, error)
	ListUnfiledDueBefore(cutoff time.Time) ([]*Obligation, error)
	Update(o *Obligation) error
}

// Service is the compliance filing tracker: one obligation per statutory
// type and period, walked through generation, filing and verification.
type Service struct {
	repo   Repository
	docs   DocumentGenerator
	totals SalaryTotalsSource
	logger *slog.Logger
}

func NewService(repo Repository, docs DocumentGenerator, totals SalaryTotalsSource, logger *slog.Logger) *Service {
	return &Service{repo: repo, docs: docs, totals: totals, logger: logger}
}

// Ensure creates the obligation row for a (type, period) pair. An amount of
// zero pulls the figure from the period's computed salary totals.
func (s *Service) Ensure(dto EnsureDTO) (*Obligation, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByTypePeriod(dto.StatutoryType, dto.Period); err == nil && existing != nil {
		return nil, internal.ErrObligationExists.WithDetails(map[string]string{"obligation_id": existing.ID})
	}

	amount := dto.Amount
	if amount.IsZero() {
		kind := deductionKindFor(dto.StatutoryType)
		if kind == "" {
			// Bonus and gratuity have no deduction line to aggregate from.
			return nil, internal.NewValidationError(
				"amount is required for this statutory type",
				internal.ErrCodeInvalidAmount)
		}
		totals, err := s.totals.TotalsForPeriod(dto.Period)
		if err != nil {
			return nil, internal.NewInternalError("failed to load salary totals", err)
		}
		amount = totals.DeductionsByKind[kind]
	}

	now := time.Now()
	o := &Obligation{
		ID:            uuid.New().String(),
		StatutoryType: dto.StatutoryType,
		Period:        dto.Period,
		DueDate:       dto.DueDate,
		Amount:        amount,
		Status:        StatusPending,
		DocumentRefs:  []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(o); err != nil {
		s.logger.Error("failed to create obligation", "error", err, "statutory_type", dto.StatutoryType)
		return nil, internal.NewInternalError("failed to create obligation", err)
	}

	s.logger.Info("compliance obligation created",
		"obligation_id", o.ID,
		"statutory_type", o.StatutoryType,
		"period", o.Period.String(),
		"due_date", o.DueDate,
		"amount", o.Amount)

	return o, nil
}

// GenerateDocument renders the filing document and attaches its reference.
// It fails when no salary data exists for the period, since the document
// would be empty.
func (s *Service) GenerateDocument(obligationID string, actor internal.Actor) (*Obligation, error) {
	o, err := s.repo.GetByID(obligationID)
	if err != nil {
		return nil, err
	}

	totals, err := s.totals.TotalsForPeriod(o.Period)
	if err != nil {
		return nil, internal.NewInternalError("failed to load salary totals", err)
	}
	if totals.RecordCount == 0 {
		s.logger.Warn("no salary data for obligation period",
			"obligation_id", obligationID, "period", o.Period.String())
		return nil, internal.ErrGenerationFailed.WithMessage(
			"no computed salary records exist for %s", o.Period.String())
	}

	result, err := s.docs.Generate(docgen.RenderRequest{
		ObligationID:  o.ID,
		StatutoryType: o.StatutoryType,
		Period:        o.Period,
		Amount:        o.Amount,
	})
	if err != nil {
		s.logger.Error("document generation failed",
			"error", err, "obligation_id", obligationID)
		return nil, internal.ErrGenerationFailed.WithCause(err)
	}

	o.RecordGeneration(result.DocumentRef, actor.ID, result.GeneratedAt)
	if err := s.repo.Update(o); err != nil {
		return nil, internal.NewInternalError("failed to update obligation", err)
	}

	s.logger.Info("compliance document generated",
		"obligation_id", obligationID,
		"document_ref", result.DocumentRef,
		"generated_by", actor.ID)

	return o, nil
}

// QueueDocumentRender enqueues the document for the background render pool.
// The same empty-period guard as the synchronous path applies; the document
// reference arrives later through AttachRenderedDocument.
func (s *Service) QueueDocumentRender(obligationID string, actor internal.Actor) (*Obligation, error) {
	o, err := s.repo.GetByID(obligationID)
	if err != nil {
		return nil, err
	}

	totals, err := s.totals.TotalsForPeriod(o.Period)
	if err != nil {
		return nil, internal.NewInternalError("failed to load salary totals", err)
	}
	if totals.RecordCount == 0 {
		return nil, internal.ErrGenerationFailed.WithMessage(
			"no computed salary records exist for %s", o.Period.String())
	}

	if err := s.docs.QueueRender(docgen.RenderRequest{
		ObligationID:  o.ID,
		StatutoryType: o.StatutoryType,
		Period:        o.Period,
		Amount:        o.Amount,
	}); err != nil {
		return nil, internal.ErrGenerationFailed.WithCause(err)
	}

	s.logger.Info("compliance document render queued",
		"obligation_id", obligationID, "queued_by", actor.ID)

	return o, nil
}

// AttachRenderedDocument records a document reference delivered by the
// render service's callback.
func (s *Service) AttachRenderedDocument(obligationID, documentRef string) (*Obligation, error) {
	if documentRef == "" {
		return nil, internal.NewValidationError("document_ref is required", internal.ErrCodeValidationFailed)
	}

	o, err := s.repo.GetByID(obligationID)
	if err != nil {
		return nil, err
	}

	o.RecordGeneration(documentRef, "docgen", time.Now())
	if err := s.repo.Update(o); err != nil {
		return nil, internal.NewInternalError("failed to update obligation", err)
	}

	s.logger.Info("rendered document attached",
		"obligation_id", obligationID, "document_ref", documentRef)

	return o, nil
}

// FileReturn records the statutory filing with its challan number. Filing
// past the due date still succeeds; the lateness stays visible through the
// derived flag.
func (s *Service) FileReturn(obligationID string, dto FileDTO, actor internal.Actor) (*Obligation, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	o, err := s.repo.GetByID(obligationID)
	if err != nil {
		return nil, err
	}

	if !o.CanFile() {
		s.logger.Warn("cannot file obligation in current state",
			"obligation_id", obligationID, "status", o.Status)
		return nil, internal.ErrInvalidStateTransition.WithMessage(
			"obligation %s is already %s", obligationID, o.Status)
	}

	filedAt := time.Now()
	if dto.FiledOn != "" {
		parsed, err := time.Parse("2006-01-02", dto.FiledOn)
		if err != nil {
			return nil, internal.NewValidationError("filed_on must be YYYY-MM-DD", internal.ErrCodeValidationFailed)
		}
		filedAt = parsed
	}

	o.File(dto.ChallanNumber, actor.ID, filedAt)
	if err := s.repo.Update(o); err != nil {
		return nil, internal.NewInternalError("failed to update obligation", err)
	}

	s.logger.Info("compliance return filed",
		"obligation_id", obligationID,
		"challan_number", dto.ChallanNumber,
		"filed_by", actor.ID,
		"filed_late", o.FiledLate())

	return o, nil
}

// Verify marks a filed obligation as verified against the statutory portal.
func (s *Service) Verify(obligationID string, actor internal.Actor) (*Obligation, error) {
	o, err := s.repo.GetByID(obligationID)
	if err != nil {
		return nil, err
	}

	if !o.CanVerify() {
		return nil, internal.ErrInvalidStateTransition.WithMessage(
			"obligation %s is not filed", obligationID)
	}

	o.Verify(actor.ID, time.Now())
	if err := s.repo.Update(o); err != nil {
		return nil, internal.NewInternalError("failed to update obligation", err)
	}

	s.logger.Info("compliance filing verified",
		"obligation_id", obligationID, "verified_by", actor.ID)

	return o, nil
}

func (s *Service) GetByID(obligationID string, asOf time.Time) (ObligationView, error) {
	o, err := s.repo.GetByID(obligationID)
	if err != nil {
		return ObligationView{}, err
	}
	return NewView(o, asOf), nil
}

// ListForPeriod resolves the period's calendar with derived statuses as of
// the given time.
func (s *Service) ListForPeriod(p period.Period, asOf time.Time) ([]ObligationView, error) {
	obligations, err := s.repo.ListByPeriod(p)
	if err != nil {
		return nil, internal.NewInternalError("failed to list obligations", err)
	}

	views := make([]ObligationView, len(obligations))
	for i, o := range obligations {
		views[i] = NewView(o, asOf)
	}
	return views, nil
}

// ListOverdue returns every unfiled obligation past its due date.
func (s *Service) ListOverdue(asOf time.Time) ([]ObligationView, error) {
	obligations, err := s.repo.ListUnfiledDueBefore(asOf)
	if err != nil {
		return nil, internal.NewInternalError("failed to list overdue obligations", err)
	}

	views := make([]ObligationView, len(obligations))
	for i, o := range obligations {
		views[i] = NewView(o, asOf)
	}
	return views, nil
}

// deductionKindFor maps a statutory filing type to the salary deduction
// kind it aggregates. Bonus and gratuity filings have no payroll deduction
// line; their amounts are always supplied explicitly.
func deductionKindFor(statutoryType string) string {
	switch statutoryType {
	case TypePF:
		return salary.DeductionPF
	case TypeESIC:
		return salary.DeductionESI
	case TypePT:
		return salary.DeductionPT
	case TypeTDS:
		return salary.DeductionTDS
	default:
		return ""
	}
}
