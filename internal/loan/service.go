package loan

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/core/period"
)

// Type-specific principal ceilings. Advances scale with salary, recovery
// loans are capped at half of it, fee loans have fixed ceilings.
var (
	advanceSalaryMultiple  = decimal.NewFromInt(3)
	negativeBalanceFaction = decimal.RequireFromString("0.5")
	uniformFeeCeiling      = decimal.NewFromInt(5000)
	trainingFeeCeiling     = decimal.NewFromInt(10000)
)

// Repository defines the data access methods for loans and installments.
type Repository interface {
	Create(l *Loan) error
	GetByID(id string) (*Loan, error)
	GetByEmployee(employeeID string) ([]*Loan, error)
	GetAll(limit, offset int) ([]*Loan, error)
	Update(l *Loan) error
	GetInstallment(id string) (*Installment, error)
	GetInstallmentsByLoan(loanID string) ([]*Installment, error)
	ListUnpaidDueBefore(cutoff time.Time) ([]*Installment, error)
	UpdateInstallment(i *Installment) error
	// ActivateWithSchedule persists the loan transition and its full
	// schedule atomically.
	ActivateWithSchedule(l *Loan, schedule []*Installment) error
	// SettleInstallment persists an installment payment and the loan's new
	// balance atomically.
	SettleInstallment(l *Loan, i *Installment) error
	// ChargesForPeriod returns the unpaid installment of every ACTIVE loan
	// of the employee that falls due in the period.
	ChargesForPeriod(employeeID string, p period.Period) ([]InstallmentCharge, error)
}

// Service is the loan ledger: ceilings, the wage-protection cap, and the
// request/approval/activation lifecycle.
type Service struct {
	repo   Repository
	capPct decimal.Decimal
	logger *slog.Logger
}

func NewService(repo Repository, capPct decimal.Decimal, logger *slog.Logger) *Service {
	return &Service{repo: repo, capPct: capPct, logger: logger}
}

// MaxLoanAmount returns the principal ceiling for a loan type given the
// employee's monthly salary.
func (s *Service) MaxLoanAmount(employeeSalary decimal.Decimal, loanType string) (decimal.Decimal, error) {
	switch loanType {
	case TypeAdvanceSalary:
		return employeeSalary.Mul(advanceSalaryMultiple), nil
	case TypeNegativeBalance:
		return employeeSalary.Mul(negativeBalanceFaction), nil
	case TypeUniformFee:
		return uniformFeeCeiling, nil
	case TypeTrainingFee:
		return trainingFeeCeiling, nil
	default:
		return decimal.Zero, internal.NewValidationError("unknown loan type", internal.ErrCodeValidationFailed)
	}
}

// ValidateMonthlyDeduction enforces the wage-protection cap: the monthly
// installment may not exceed capPct of the employee's salary. The boundary
// value is allowed.
func (s *Service) ValidateMonthlyDeduction(principal decimal.Decimal, emiMonths int, employeeSalary decimal.Decimal) error {
	if emiMonths < 1 {
		return internal.NewValidationError("emi_months must be at least 1", internal.ErrCodeValidationFailed)
	}
	monthly := principal.Div(decimal.NewFromInt(int64(emiMonths)))
	cap := employeeSalary.Mul(s.capPct)
	if monthly.GreaterThan(cap) {
		return internal.ErrDeductionLimitExceeded.WithDetails(map[string]string{
			"monthly_deduction": monthly.Round(2).String(),
			"cap":               cap.Round(2).String(),
		})
	}
	return nil
}

// Request validates ceilings and the deduction cap, then records a loan in
// REQUESTED / DRAFT.
func (s *Service) Request(dto RequestLoanDTO, actor internal.Actor) (*Loan, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("loan request validation failed", "error", err, "employee_id", dto.EmployeeID)
		return nil, err
	}

	maxAmount, err := s.MaxLoanAmount(dto.MonthlySalary, dto.LoanType)
	if err != nil {
		return nil, err
	}
	if dto.Principal.GreaterThan(maxAmount) {
		s.logger.Warn("loan principal above type ceiling",
			"employee_id", dto.EmployeeID,
			"loan_type", dto.LoanType,
			"principal", dto.Principal,
			"ceiling", maxAmount)
		return nil, internal.NewValidationError("principal exceeds the ceiling for this loan type", internal.ErrCodeInvalidAmount).
			WithDetails(map[string]string{"ceiling": maxAmount.Round(2).String()})
	}

	if err := s.ValidateMonthlyDeduction(dto.Principal, dto.EMIMonths, dto.MonthlySalary); err != nil {
		return nil, err
	}

	now := time.Now()
	l := &Loan{
		ID:             uuid.New().String(),
		EmployeeID:     dto.EmployeeID,
		LoanType:       dto.LoanType,
		Principal:      dto.Principal,
		EMIMonths:      dto.EMIMonths,
		MonthlySalary:  dto.MonthlySalary,
		Balance:        dto.Principal,
		Status:         StatusRequested,
		AccountsStatus: AccountsDraft,
		Reason:         dto.Reason,
		RequestedBy:    actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(l); err != nil {
		s.logger.Error("failed to create loan", "error", err, "employee_id", dto.EmployeeID)
		return nil, internal.NewInternalError("failed to create loan", err)
	}

	s.logger.Info("loan requested",
		"loan_id", l.ID,
		"employee_id", l.EmployeeID,
		"loan_type", l.LoanType,
		"principal", l.Principal,
		"emi_months", l.EMIMonths)

	return l, nil
}

// SendToAccounts moves a DRAFT request into the Accounts queue.
func (s *Service) SendToAccounts(loanID string) (*Loan, error) {
	l, err := s.repo.GetByID(loanID)
	if err != nil {
		return nil, err
	}

	if !l.CanSendToAccounts() {
		s.logger.Warn("cannot send loan to accounts in current state",
			"loan_id", loanID,
			"status", l.Status,
			"accounts_status", l.AccountsStatus)
		return nil, internal.ErrInvalidStateTransition.WithMessage(
			"loan %s cannot be sent to accounts from %s/%s", loanID, l.Status, l.AccountsStatus)
	}

	l.SendToAccounts()
	if err := s.repo.Update(l); err != nil {
		return nil, internal.NewInternalError("failed to update loan", err)
	}

	s.logger.Info("loan sent to accounts", "loan_id", loanID)
	return l, nil
}

// DecideAccounts records the Accounts decision. Rejection is terminal.
func (s *Service) DecideAccounts(loanID string, dto DecideLoanDTO, actor internal.Actor) (*Loan, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	l, err := s.repo.GetByID(loanID)
	if err != nil {
		return nil, err
	}

	if !l.CanDecide() {
		s.logger.Warn("cannot decide loan in current state",
			"loan_id", loanID,
			"status", l.Status,
			"accounts_status", l.AccountsStatus)
		return nil, internal.ErrInvalidStateTransition.WithMessage(
			"loan %s has no pending accounts decision", loanID)
	}

	if dto.Approve {
		l.ApproveByAccounts(actor.ID, dto.Note)
	} else {
		l.RejectByAccounts(actor.ID, dto.Note)
	}

	if err := s.repo.Update(l); err != nil {
		return nil, internal.NewInternalError("failed to update loan", err)
	}

	s.logger.Info("loan decided",
		"loan_id", loanID,
		"approved", dto.Approve,
		"decided_by", actor.ID)

	return l, nil
}

// Activate turns an approved loan into an active one and generates its full
// amortization schedule. The deduction cap is re-checked against the
// employee's current salary in case it changed since the request.
func (s *Service) Activate(loanID string, dto ActivateLoanDTO) (*Loan, error) {
	l, err := s.repo.GetByID(loanID)
	if err != nil {
		return nil, err
	}

	if !l.CanActivate() {
		s.logger.Warn("cannot activate loan in current state",
			"loan_id", loanID,
			"status", l.Status,
			"accounts_status", l.AccountsStatus)
		return nil, internal.ErrInvalidStateTransition.WithMessage(
			"loan %s is not approved for activation", loanID)
	}

	salary := l.MonthlySalary
	if dto.CurrentSalary.IsPositive() {
		salary = dto.CurrentSalary
	}
	if err := s.ValidateMonthlyDeduction(l.Principal, l.EMIMonths, salary); err != nil {
		s.logger.Warn("deduction cap violated at activation",
			"loan_id", loanID,
			"salary_at_request", l.MonthlySalary,
			"salary_now", salary)
		return nil, err
	}

	now := time.Now()
	l.Activate(now)
	schedule := BuildSchedule(l.ID, l.Principal, l.EMIMonths, now)

	if err := s.repo.ActivateWithSchedule(l, schedule); err != nil {
		return nil, internal.NewInternalError("failed to activate loan", err)
	}

	s.logger.Info("loan activated",
		"loan_id", loanID,
		"installments", len(schedule),
		"first_due", schedule[0].DueDate)

	return l, nil
}

// RecordInstallmentPayment marks an installment paid and decrements the loan
// balance; at zero the loan closes.
func (s *Service) RecordInstallmentPayment(installmentID string, paidOn time.Time) (*Loan, error) {
	inst, err := s.repo.GetInstallment(installmentID)
	if err != nil {
		return nil, err
	}

	if !inst.CanSettle() {
		s.logger.Warn("installment not settleable", "installment_id", installmentID, "status", inst.Status)
		return nil, internal.ErrInvalidStateTransition.WithMessage(
			"installment %s is already %s", installmentID, inst.Status)
	}

	l, err := s.repo.GetByID(inst.LoanID)
	if err != nil {
		return nil, err
	}
	if l.Status != StatusActive {
		return nil, internal.ErrInvalidStateTransition.WithMessage(
			"loan %s is not active", l.ID)
	}

	inst.MarkPaid(paidOn)
	l.ApplySettlement(inst.Amount, paidOn)

	if err := s.repo.SettleInstallment(l, inst); err != nil {
		return nil, internal.NewInternalError("failed to settle installment", err)
	}

	s.logger.Info("installment paid",
		"installment_id", installmentID,
		"loan_id", l.ID,
		"amount", inst.Amount,
		"balance", l.Balance,
		"closed", l.Status == StatusClosed)

	return l, nil
}

// MarkOverdue sweeps unpaid installments past their due date to OVERDUE.
// Advisory only; an overdue installment never blocks payroll.
func (s *Service) MarkOverdue(asOf time.Time) (int, error) {
	due, err := s.repo.ListUnpaidDueBefore(asOf)
	if err != nil {
		return 0, internal.NewInternalError("failed to list due installments", err)
	}

	swept := 0
	for _, inst := range due {
		if inst.Status != InstallmentPending {
			continue
		}
		inst.Status = InstallmentOverdue
		inst.UpdatedAt = time.Now()
		if err := s.repo.UpdateInstallment(inst); err != nil {
			s.logger.Error("failed to mark installment overdue", "error", err, "installment_id", inst.ID)
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.Info("installments marked overdue", "count", swept, "as_of", asOf)
	}
	return swept, nil
}

func (s *Service) GetByID(loanID string) (*Loan, error) {
	return s.repo.GetByID(loanID)
}

func (s *Service) GetByEmployee(employeeID string) ([]*Loan, error) {
	return s.repo.GetByEmployee(employeeID)
}

func (s *Service) GetAll(limit, offset int) ([]*Loan, error) {
	return s.repo.GetAll(limit, offset)
}

func (s *Service) Schedule(loanID string) ([]*Installment, error) {
	if _, err := s.repo.GetByID(loanID); err != nil {
		return nil, err
	}
	return s.repo.GetInstallmentsByLoan(loanID)
}

// ChargesForPeriod feeds the salary engine the deduction line of every
// active loan in the period.
func (s *Service) ChargesForPeriod(employeeID string, p period.Period) ([]InstallmentCharge, error) {
	return s.repo.ChargesForPeriod(employeeID, p)
}
