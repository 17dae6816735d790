package salary

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/core/period"
	"github.com/guardline/payroll-engine/internal/loan"
	"github.com/guardline/payroll-engine/internal/statutory"
)

// LoanChargeSource feeds the engine the per-period installment of every
// active loan; the loan ledger implements it.
type LoanChargeSource interface {
	ChargesForPeriod(employeeID string, p period.Period) ([]loan.InstallmentCharge, error)
}

// Repository defines the data access methods for salary records.
type Repository interface {
	Upsert(rec *Record) error
	GetByID(id string) (*Record, error)
	GetByEmployeePeriod(employeeID string, p period.Period) (*Record, error)
	ListByPeriod(p period.Period) ([]*Record, error)
	ListByPeriodAndEmployees(p period.Period, employeeIDs []string) ([]*Record, error)
	Update(rec *Record) error
}

// Service is the salary computation engine: attendance proration, statutory
// deductions, loan installments and holds folded into one record per
// employee per period.
type Service struct {
	repo    Repository
	rates   *statutory.Registry
	loans   LoanChargeSource
	cfg     internal.PayrollConfig
	logger  *slog.Logger
	baseJur string
}

func NewService(repo Repository, rates *statutory.Registry, loans LoanChargeSource, cfg internal.PayrollConfig, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		rates:   rates,
		loans:   loans,
		cfg:     cfg,
		logger:  logger,
		baseJur: cfg.DefaultJurisdiction,
	}
}

// Compute derives one employee's salary record for a period and persists
// it. Recomputation overwrites the numbers but keeps an existing hold; a
// PAID record is immutable and recomputation fails.
func (s *Service) Compute(dto ComputeDTO) (*Record, error) {
	rec, err := s.computeRecord(dto)
	if err != nil {
		return nil, err
	}

	if err := s.carryForwardState(rec); err != nil {
		return nil, err
	}

	if err := s.repo.Upsert(rec); err != nil {
		s.logger.Error("failed to persist salary record", "error", err, "employee_id", dto.EmployeeID)
		return nil, internal.NewInternalError("failed to persist salary record", err)
	}

	s.logger.Info("salary computed",
		"employee_id", rec.EmployeeID,
		"period", rec.Period.String(),
		"gross", rec.Gross,
		"net", rec.Net,
		"status", rec.Status)

	return rec, nil
}

// ComputeBatch computes a set of employees for one period. The pure
// computation runs concurrently; persistence happens after every
// computation has finished, so a payment request built afterwards sees the
// whole batch or none of it.
func (s *Service) ComputeBatch(dto ComputeBatchDTO) ([]*Record, []BatchFailure, error) {
	type result struct {
		idx int
		rec *Record
		err error
	}

	results := make([]result, len(dto.Inputs))
	var wg sync.WaitGroup
	for i, input := range dto.Inputs {
		wg.Add(1)
		go func(i int, input ComputeDTO) {
			defer wg.Done()
			rec, err := s.computeRecord(input)
			results[i] = result{idx: i, rec: rec, err: err}
		}(i, input)
	}
	wg.Wait()

	records := make([]*Record, 0, len(dto.Inputs))
	var failures []BatchFailure
	for i, res := range results {
		if res.err != nil {
			failures = append(failures, BatchFailure{
				EmployeeID: dto.Inputs[i].EmployeeID,
				Message:    res.err.Error(),
			})
			continue
		}

		if err := s.carryForwardState(res.rec); err != nil {
			failures = append(failures, BatchFailure{
				EmployeeID: dto.Inputs[i].EmployeeID,
				Message:    err.Error(),
			})
			continue
		}

		if err := s.repo.Upsert(res.rec); err != nil {
			s.logger.Error("failed to persist salary record in batch",
				"error", err, "employee_id", res.rec.EmployeeID)
			failures = append(failures, BatchFailure{
				EmployeeID: dto.Inputs[i].EmployeeID,
				Message:    "failed to persist salary record",
			})
			continue
		}
		records = append(records, res.rec)
	}

	s.logger.Info("salary batch computed",
		"requested", len(dto.Inputs),
		"computed", len(records),
		"failed", len(failures))

	return records, failures, nil
}

// computeRecord is the pure part: no reads, no writes, deterministic for a
// given input and rate table.
func (s *Service) computeRecord(dto ComputeDTO) (*Record, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ratio := decimal.NewFromInt(int64(dto.AttendedShifts)).
		Div(decimal.NewFromInt(int64(dto.TotalShifts)))

	basic := dto.BaseSalary.Mul(decimal.NewFromFloat(s.cfg.BasicPct)).Round(2)
	hra := dto.BaseSalary.Mul(decimal.NewFromFloat(s.cfg.HRAPct)).Round(2)
	allowance := dto.BaseSalary.Sub(basic).Sub(hra)

	prorated := dto.BaseSalary.Mul(ratio).Round(2)

	// Signed adjustments: earnings raise gross, deduction-type adjustments
	// become OTHER lines further down.
	gross := prorated
	var otherLines []DeductionLine
	for _, adj := range dto.Adjustments {
		if adj.Amount.IsNegative() {
			otherLines = append(otherLines, DeductionLine{
				Kind:        DeductionOther,
				Description: adj.Description,
				Amount:      adj.Amount.Neg(),
			})
			continue
		}
		gross = gross.Add(adj.Amount)
	}

	jurisdiction := dto.Jurisdiction
	if jurisdiction == "" {
		jurisdiction = s.baseJur
	}
	statRates := s.rates.Lookup(jurisdiction)

	// PF is assessed on the full basic, not the prorated figure; ESI and
	// the bracket taxes go by what the employee actually grossed.
	stat, err := statutory.ComputeDeductions(basic, gross, statRates)
	if err != nil {
		return nil, err
	}

	lines := make([]DeductionLine, 0, 8)
	lines = append(lines, DeductionLine{Kind: DeductionPF, Description: "Provident Fund (employee)", Amount: stat.EmployeePF})
	if stat.EmployeeESI.IsPositive() {
		lines = append(lines, DeductionLine{Kind: DeductionESI, Description: "ESI (employee)", Amount: stat.EmployeeESI})
	}
	if stat.ProfessionalTax.IsPositive() {
		lines = append(lines, DeductionLine{Kind: DeductionPT, Description: "Professional Tax", Amount: stat.ProfessionalTax})
	}
	if stat.TDS.IsPositive() {
		lines = append(lines, DeductionLine{Kind: DeductionTDS, Description: "Tax Deducted at Source", Amount: stat.TDS})
	}

	charges, err := s.loans.ChargesForPeriod(dto.EmployeeID, dto.Period)
	if err != nil {
		return nil, internal.NewInternalError("failed to load loan charges", err)
	}
	for _, c := range charges {
		loanID := c.LoanID
		lines = append(lines, DeductionLine{
			Kind:        DeductionLoan,
			Description: fmt.Sprintf("Loan EMI (%s)", c.LoanType),
			Amount:      c.Amount,
			LoanID:      &loanID,
		})
	}

	if dto.MessCharges.IsPositive() {
		lines = append(lines, DeductionLine{Kind: DeductionMess, Description: "Mess charges", Amount: dto.MessCharges})
	}
	lines = append(lines, otherLines...)

	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}

	// Net never goes negative: the shortfall is absorbed, not carried
	// forward as debt. A negative-balance loan models recovery explicitly
	// when the firm wants it back.
	net := gross.Sub(total)
	if net.IsNegative() {
		net = decimal.Zero
	}

	now := time.Now()
	return &Record{
		ID:              uuid.New().String(),
		EmployeeID:      dto.EmployeeID,
		Period:          dto.Period,
		Department:      dto.Department,
		AttendedShifts:  dto.AttendedShifts,
		TotalShifts:     dto.TotalShifts,
		BaseSalary:      dto.BaseSalary,
		Basic:           basic,
		HRA:             hra,
		Allowance:       allowance,
		Gross:           gross,
		TotalDeductions: total.Round(2),
		Net:             net.Round(2),
		Deductions:      lines,
		Status:          StatusReadyToPay,
		ComputedAt:      now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// carryForwardState merges the new computation with what already exists for
// the (employee, period): PAID blocks recomputation, HELD survives it.
func (s *Service) carryForwardState(rec *Record) error {
	existing, err := s.repo.GetByEmployeePeriod(rec.EmployeeID, rec.Period)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Code == internal.ErrCodeSalaryRecordNotFound {
			return nil
		}
		return internal.NewInternalError("failed to load existing salary record", err)
	}

	if existing.IsPaid() {
		s.logger.Warn("recompute rejected for paid record",
			"employee_id", rec.EmployeeID, "period", rec.Period.String())
		return internal.ErrRecordPaid
	}

	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	if existing.IsHeld() {
		rec.Status = StatusHeld
		rec.HoldReason = existing.HoldReason
		rec.HeldBy = existing.HeldBy
	}
	return nil
}

// Hold places an administrative hold; holding an already-held record is a
// no-op success.
func (s *Service) Hold(employeeID string, p period.Period, dto HoldDTO, actor internal.Actor) (*Record, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	rec, err := s.repo.GetByEmployeePeriod(employeeID, p)
	if err != nil {
		return nil, err
	}

	if rec.IsPaid() {
		return nil, internal.ErrInvalidStateTransition.WithMessage(
			"salary for %s in %s is already paid", employeeID, p.String())
	}
	if rec.IsHeld() {
		return rec, nil
	}

	rec.Hold(dto.Reason, actor.ID)
	if err := s.repo.Update(rec); err != nil {
		return nil, internal.NewInternalError("failed to hold salary record", err)
	}

	s.logger.Info("salary held",
		"employee_id", employeeID,
		"period", p.String(),
		"reason", dto.Reason,
		"held_by", actor.ID)

	return rec, nil
}

// Release lifts a hold; releasing a record that is not held is a no-op
// success.
func (s *Service) Release(employeeID string, p period.Period) (*Record, error) {
	rec, err := s.repo.GetByEmployeePeriod(employeeID, p)
	if err != nil {
		return nil, err
	}

	if rec.IsPaid() {
		return nil, internal.ErrInvalidStateTransition.WithMessage(
			"salary for %s in %s is already paid", employeeID, p.String())
	}
	if !rec.IsHeld() {
		return rec, nil
	}

	rec.Release()
	if err := s.repo.Update(rec); err != nil {
		return nil, internal.NewInternalError("failed to release salary record", err)
	}

	s.logger.Info("salary released", "employee_id", employeeID, "period", p.String())

	return rec, nil
}

func (s *Service) GetByEmployeePeriod(employeeID string, p period.Period) (*Record, error) {
	return s.repo.GetByEmployeePeriod(employeeID, p)
}

func (s *Service) ListByPeriod(p period.Period) ([]*Record, error) {
	return s.repo.ListByPeriod(p)
}

func (s *Service) ListByPeriodAndEmployees(p period.Period, employeeIDs []string) ([]*Record, error) {
	return s.repo.ListByPeriodAndEmployees(p, employeeIDs)
}

// TotalsForPeriod folds the period's records into the aggregates the
// compliance tracker files against.
func (s *Service) TotalsForPeriod(p period.Period) (Totals, error) {
	records, err := s.repo.ListByPeriod(p)
	if err != nil {
		return Totals{}, internal.NewInternalError("failed to list salary records", err)
	}

	totals := Totals{
		Period:           p,
		RecordCount:      len(records),
		GrossTotal:       decimal.Zero,
		NetTotal:         decimal.Zero,
		DeductionsByKind: make(map[string]decimal.Decimal),
	}
	for _, rec := range records {
		totals.GrossTotal = totals.GrossTotal.Add(rec.Gross)
		totals.NetTotal = totals.NetTotal.Add(rec.Net)
		for _, line := range rec.Deductions {
			totals.DeductionsByKind[line.Kind] = totals.DeductionsByKind[line.Kind].Add(line.Amount)
		}
	}
	return totals, nil
}
