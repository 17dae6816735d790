package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/compliance"
	"github.com/guardline/payroll-engine/internal/core/events"
	"github.com/guardline/payroll-engine/internal/core/period"
	"github.com/guardline/payroll-engine/internal/loan"
	"github.com/guardline/payroll-engine/internal/paymentreq"
	"github.com/guardline/payroll-engine/internal/salary"
)

// Orchestrator is the composition root the transport layer calls into. It
// serializes every state-machine command through a per-entity lock and
// raises workflow events after the fact; the domain services underneath
// stay free of cross-module concerns.
type Orchestrator struct {
	loans       *loan.Service
	salaries    *salary.Service
	requests    *paymentreq.Service
	obligations *compliance.Service
	bus         *events.EventBus
	logger      *slog.Logger
	locks       *keyedMutex
}

func New(
	loans *loan.Service,
	salaries *salary.Service,
	requests *paymentreq.Service,
	obligations *compliance.Service,
	bus *events.EventBus,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		loans:       loans,
		salaries:    salaries,
		requests:    requests,
		obligations: obligations,
		bus:         bus,
		logger:      logger,
		locks:       newKeyedMutex(),
	}
}

func (o *Orchestrator) publish(event events.Event) {
	if o.bus == nil {
		return
	}
	if err := o.bus.Publish(context.Background(), event); err != nil {
		o.logger.Warn("event publish failed", "event_type", event.EventType(), "error", err)
	}
}

// --- Loan ledger commands ---

func (o *Orchestrator) RequestLoan(dto loan.RequestLoanDTO, actor internal.Actor) (*loan.Loan, error) {
	l, err := o.loans.Request(dto, actor)
	if err != nil {
		return nil, err
	}
	o.publish(events.NewLoanEvent(events.EventTypeLoanRequested, l.ID, l.EmployeeID, l.LoanType, l.Principal, actor.ID))
	return l, nil
}

func (o *Orchestrator) SendLoanToAccounts(loanID string, actor internal.Actor) (*loan.Loan, error) {
	defer o.locks.Lock("loan:" + loanID)()
	return o.loans.SendToAccounts(loanID)
}

func (o *Orchestrator) DecideLoanAccounts(loanID string, dto loan.DecideLoanDTO, actor internal.Actor) (*loan.Loan, error) {
	unlock := o.locks.Lock("loan:" + loanID)
	l, err := o.loans.DecideAccounts(loanID, dto, actor)
	unlock()
	if err != nil {
		return nil, err
	}
	if !dto.Approve {
		o.publish(events.NewLoanEvent(events.EventTypeLoanRejected, l.ID, l.EmployeeID, l.LoanType, l.Principal, actor.ID))
	}
	return l, nil
}

func (o *Orchestrator) ActivateLoan(loanID string, dto loan.ActivateLoanDTO, actor internal.Actor) (*loan.Loan, error) {
	unlock := o.locks.Lock("loan:" + loanID)
	l, err := o.loans.Activate(loanID, dto)
	unlock()
	if err != nil {
		return nil, err
	}
	o.publish(events.NewLoanEvent(events.EventTypeLoanActivated, l.ID, l.EmployeeID, l.LoanType, l.Principal, actor.ID))
	return l, nil
}

func (o *Orchestrator) RecordInstallmentPayment(installmentID string, paidOn time.Time, actor internal.Actor) (*loan.Loan, error) {
	unlock := o.locks.Lock("installment:" + installmentID)
	l, err := o.loans.RecordInstallmentPayment(installmentID, paidOn)
	unlock()
	if err != nil {
		return nil, err
	}
	if l.Status == loan.StatusClosed {
		o.publish(events.NewLoanEvent(events.EventTypeLoanClosed, l.ID, l.EmployeeID, l.LoanType, l.Principal, actor.ID))
	}
	return l, nil
}

func (o *Orchestrator) SweepOverdueInstallments(asOf time.Time) (int, error) {
	return o.loans.MarkOverdue(asOf)
}

func (o *Orchestrator) GetLoan(loanID string) (*loan.Loan, error) {
	return o.loans.GetByID(loanID)
}

func (o *Orchestrator) LoanSchedule(loanID string) ([]*loan.Installment, error) {
	return o.loans.Schedule(loanID)
}

func (o *Orchestrator) ListLoans(limit, offset int) ([]*loan.Loan, error) {
	return o.loans.GetAll(limit, offset)
}

func (o *Orchestrator) ListEmployeeLoans(employeeID string) ([]*loan.Loan, error) {
	return o.loans.GetByEmployee(employeeID)
}

func (o *Orchestrator) LoanChargesForPeriod(employeeID string, p period.Period) ([]loan.InstallmentCharge, error) {
	return o.loans.ChargesForPeriod(employeeID, p)
}

// --- Salary engine commands ---

func (o *Orchestrator) ComputeSalary(dto salary.ComputeDTO, actor internal.Actor) (*salary.Record, error) {
	defer o.locks.Lock(salaryKey(dto.EmployeeID, dto.Period))()
	return o.salaries.Compute(dto)
}

// ComputeSalaryBatch intentionally takes no per-record locks: the batch is
// the write barrier, callers build payment requests only after it returns.
func (o *Orchestrator) ComputeSalaryBatch(dto salary.ComputeBatchDTO, actor internal.Actor) ([]*salary.Record, []salary.BatchFailure, error) {
	return o.salaries.ComputeBatch(dto)
}

func (o *Orchestrator) HoldSalary(employeeID string, p period.Period, dto salary.HoldDTO, actor internal.Actor) (*salary.Record, error) {
	unlock := o.locks.Lock(salaryKey(employeeID, p))
	rec, err := o.salaries.Hold(employeeID, p, dto, actor)
	unlock()
	if err != nil {
		return nil, err
	}
	o.publish(events.NewSalaryHeldEvent(employeeID, p.String(), dto.Reason, actor.ID))
	return rec, nil
}

func (o *Orchestrator) ReleaseSalary(employeeID string, p period.Period, actor internal.Actor) (*salary.Record, error) {
	unlock := o.locks.Lock(salaryKey(employeeID, p))
	rec, err := o.salaries.Release(employeeID, p)
	unlock()
	if err != nil {
		return nil, err
	}
	o.publish(events.NewSalaryReleasedEvent(employeeID, p.String(), actor.ID))
	return rec, nil
}

func (o *Orchestrator) GetSalary(employeeID string, p period.Period) (*salary.Record, error) {
	return o.salaries.GetByEmployeePeriod(employeeID, p)
}

func (o *Orchestrator) ListSalaries(p period.Period) ([]*salary.Record, error) {
	return o.salaries.ListByPeriod(p)
}

func (o *Orchestrator) SalaryTotals(p period.Period) (salary.Totals, error) {
	return o.salaries.TotalsForPeriod(p)
}

// --- Payment request workflow commands ---

func (o *Orchestrator) BuildPaymentRequest(dto paymentreq.BuildDTO, actor internal.Actor) (*paymentreq.PaymentRequest, error) {
	// One lock per department and period, the unit a request is built on.
	defer o.locks.Lock("paymentreq-build:" + dto.Department + ":" + dto.Period.String())()
	return o.requests.Build(dto, actor)
}

func (o *Orchestrator) SubmitPaymentRequest(requestID string, actor internal.Actor) (*paymentreq.PaymentRequest, error) {
	unlock := o.locks.Lock("paymentreq:" + requestID)
	pr, err := o.requests.Submit(requestID, actor)
	unlock()
	if err != nil {
		return nil, err
	}
	o.publish(events.NewPaymentRequestEvent(events.EventTypePaymentRequestSubmitted,
		pr.ID, pr.Department, pr.Period.String(), pr.TotalAmount, actor.ID, ""))
	return pr, nil
}

func (o *Orchestrator) DecidePaymentRequest(requestID string, dto paymentreq.DecideDTO, actor internal.Actor) (*paymentreq.PaymentRequest, error) {
	unlock := o.locks.Lock("paymentreq:" + requestID)
	pr, err := o.requests.Decide(requestID, dto, actor)
	unlock()
	if err != nil {
		return nil, err
	}
	eventType := events.EventTypePaymentRequestApproved
	if !dto.Approve {
		eventType = events.EventTypePaymentRequestRejected
	}
	o.publish(events.NewPaymentRequestEvent(eventType,
		pr.ID, pr.Department, pr.Period.String(), pr.TotalAmount, actor.ID, dto.Note))
	return pr, nil
}

func (o *Orchestrator) AcknowledgeRejection(requestID string, actor internal.Actor) (*paymentreq.PaymentRequest, error) {
	defer o.locks.Lock("paymentreq:" + requestID)()
	return o.requests.Acknowledge(requestID, actor)
}

func (o *Orchestrator) MarkPaymentRequestPaid(requestID string, dto paymentreq.MarkPaidDTO, actor internal.Actor) (*paymentreq.PaymentRequest, error) {
	unlock := o.locks.Lock("paymentreq:" + requestID)
	pr, err := o.requests.MarkPaid(requestID, dto, actor)
	unlock()
	if err != nil {
		return nil, err
	}
	o.publish(events.NewPaymentRequestEvent(events.EventTypePaymentRequestPaid,
		pr.ID, pr.Department, pr.Period.String(), pr.TotalAmount, actor.ID, ""))
	return pr, nil
}

func (o *Orchestrator) GetPaymentRequest(requestID string) (*paymentreq.PaymentRequest, error) {
	return o.requests.GetByID(requestID)
}

func (o *Orchestrator) ListPaymentRequests(filter paymentreq.Filter) ([]*paymentreq.PaymentRequest, error) {
	return o.requests.List(filter)
}

// --- Compliance tracker commands ---

func (o *Orchestrator) EnsureObligation(dto compliance.EnsureDTO, actor internal.Actor) (*compliance.Obligation, error) {
	defer o.locks.Lock("obligation-ensure:" + dto.StatutoryType + ":" + dto.Period.String())()
	return o.obligations.Ensure(dto)
}

func (o *Orchestrator) GenerateObligationDocument(obligationID string, actor internal.Actor) (*compliance.Obligation, error) {
	unlock := o.locks.Lock("obligation:" + obligationID)
	ob, err := o.obligations.GenerateDocument(obligationID, actor)
	unlock()
	if err != nil {
		return nil, err
	}
	o.publish(events.NewComplianceEvent(events.EventTypeComplianceGenerated,
		ob.ID, ob.StatutoryType, ob.Period.String(), false, actor.ID))
	return ob, nil
}

func (o *Orchestrator) QueueObligationDocument(obligationID string, actor internal.Actor) (*compliance.Obligation, error) {
	return o.obligations.QueueDocumentRender(obligationID, actor)
}

func (o *Orchestrator) AttachObligationDocument(obligationID, documentRef string) (*compliance.Obligation, error) {
	unlock := o.locks.Lock("obligation:" + obligationID)
	ob, err := o.obligations.AttachRenderedDocument(obligationID, documentRef)
	unlock()
	if err != nil {
		return nil, err
	}
	o.publish(events.NewComplianceEvent(events.EventTypeComplianceGenerated,
		ob.ID, ob.StatutoryType, ob.Period.String(), false, "docgen"))
	return ob, nil
}

func (o *Orchestrator) FileObligationReturn(obligationID string, dto compliance.FileDTO, actor internal.Actor) (*compliance.Obligation, error) {
	unlock := o.locks.Lock("obligation:" + obligationID)
	ob, err := o.obligations.FileReturn(obligationID, dto, actor)
	unlock()
	if err != nil {
		return nil, err
	}
	o.publish(events.NewComplianceEvent(events.EventTypeComplianceFiled,
		ob.ID, ob.StatutoryType, ob.Period.String(), ob.FiledLate(), actor.ID))
	return ob, nil
}

func (o *Orchestrator) VerifyObligation(obligationID string, actor internal.Actor) (*compliance.Obligation, error) {
	defer o.locks.Lock("obligation:" + obligationID)()
	return o.obligations.Verify(obligationID, actor)
}

func (o *Orchestrator) GetObligation(obligationID string, asOf time.Time) (compliance.ObligationView, error) {
	return o.obligations.GetByID(obligationID, asOf)
}

func (o *Orchestrator) ListObligations(p period.Period, asOf time.Time) ([]compliance.ObligationView, error) {
	return o.obligations.ListForPeriod(p, asOf)
}

func (o *Orchestrator) ListOverdueObligations(asOf time.Time) ([]compliance.ObligationView, error) {
	return o.obligations.ListOverdue(asOf)
}

func salaryKey(employeeID string, p period.Period) string {
	return "salary:" + employeeID + ":" + p.String()
}
