package loan

import (
	"time"

	"github.com/shopspring/decimal"

	loanDatamodel "github.com/guardline/payroll-engine/internal/core/datamodel/loan"
	"github.com/guardline/payroll-engine/internal/core/period"
)

const (
	TypeAdvanceSalary   = "ADVANCE_SALARY"
	TypeNegativeBalance = "NEGATIVE_BALANCE"
	TypeUniformFee      = "UNIFORM_FEE"
	TypeTrainingFee     = "TRAINING_FEE"
)

const (
	StatusRequested = "REQUESTED"
	StatusApproved  = "APPROVED"
	StatusActive    = "ACTIVE"
	StatusClosed    = "CLOSED"
	StatusRejected  = "REJECTED"
)

const (
	AccountsDraft    = "DRAFT"
	AccountsSent     = "SENT_TO_ACCOUNTS"
	AccountsApproved = "APPROVED_BY_ACCOUNTS"
	AccountsRejected = "REJECTED_BY_ACCOUNTS"
)

const (
	InstallmentPending = "PENDING"
	InstallmentPaid    = "PAID"
	InstallmentOverdue = "OVERDUE"
)

// Loan is one employee loan. Status follows
// REQUESTED -> APPROVED -> ACTIVE -> CLOSED, with REQUESTED -> REJECTED
// terminal; AccountsStatus tracks the approval pipeline that gates those
// moves.
type Loan struct {
	ID             string          `json:"id"`
	EmployeeID     string          `json:"employee_id"`
	LoanType       string          `json:"loan_type"`
	Principal      decimal.Decimal `json:"principal"`
	EMIMonths      int             `json:"emi_months"`
	MonthlySalary  decimal.Decimal `json:"monthly_salary"`
	Balance        decimal.Decimal `json:"balance"`
	Status         string          `json:"status"`
	AccountsStatus string          `json:"accounts_status"`
	Reason         string          `json:"reason"`
	RequestedBy    string          `json:"requested_by"`
	DecidedBy      *string         `json:"decided_by,omitempty"`
	DecisionNote   *string         `json:"decision_note,omitempty"`
	DecidedAt      *time.Time      `json:"decided_at,omitempty"`
	ActivatedAt    *time.Time      `json:"activated_at,omitempty"`
	ClosedAt       *time.Time      `json:"closed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Installment is one schedule row. Generated in full at activation; marking
// paid or overdue is the only mutation it ever sees.
type Installment struct {
	ID        string          `json:"id"`
	LoanID    string          `json:"loan_id"`
	Sequence  int             `json:"sequence"`
	DuePeriod period.Period   `json:"due_period"`
	DueDate   time.Time       `json:"due_date"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func ValidType(loanType string) bool {
	switch loanType {
	case TypeAdvanceSalary, TypeNegativeBalance, TypeUniformFee, TypeTrainingFee:
		return true
	}
	return false
}

func (l *Loan) CanSendToAccounts() bool {
	return l.Status == StatusRequested && l.AccountsStatus == AccountsDraft
}

func (l *Loan) CanDecide() bool {
	return l.Status == StatusRequested && l.AccountsStatus == AccountsSent
}

func (l *Loan) CanActivate() bool {
	return l.Status == StatusApproved && l.AccountsStatus == AccountsApproved
}

func (l *Loan) SendToAccounts() {
	l.AccountsStatus = AccountsSent
	l.UpdatedAt = time.Now()
}

func (l *Loan) ApproveByAccounts(actorID, note string) {
	now := time.Now()
	l.AccountsStatus = AccountsApproved
	l.Status = StatusApproved
	l.DecidedBy = &actorID
	l.DecidedAt = &now
	if note != "" {
		l.DecisionNote = &note
	}
	l.UpdatedAt = now
}

func (l *Loan) RejectByAccounts(actorID, note string) {
	now := time.Now()
	l.AccountsStatus = AccountsRejected
	l.Status = StatusRejected
	l.DecidedBy = &actorID
	l.DecidedAt = &now
	if note != "" {
		l.DecisionNote = &note
	}
	l.UpdatedAt = now
}

func (l *Loan) Activate(at time.Time) {
	l.Status = StatusActive
	l.ActivatedAt = &at
	l.UpdatedAt = at
}

// ApplySettlement reduces the balance by one installment amount and closes
// the loan when it reaches zero. Balance never goes below zero.
func (l *Loan) ApplySettlement(amount decimal.Decimal, at time.Time) {
	l.Balance = l.Balance.Sub(amount)
	if l.Balance.LessThanOrEqual(decimal.Zero) {
		l.Balance = decimal.Zero
		l.Status = StatusClosed
		l.ClosedAt = &at
	}
	l.UpdatedAt = at
}

func (i *Installment) CanSettle() bool {
	return i.Status == InstallmentPending || i.Status == InstallmentOverdue
}

func (i *Installment) MarkPaid(paidOn time.Time) {
	i.Status = InstallmentPaid
	i.PaidAt = &paidOn
	i.UpdatedAt = time.Now()
}

func ToDataModel(l *Loan) *loanDatamodel.Loan {
	return &loanDatamodel.Loan{
		ID:             l.ID,
		EmployeeID:     l.EmployeeID,
		LoanType:       l.LoanType,
		Principal:      l.Principal,
		EMIMonths:      l.EMIMonths,
		MonthlySalary:  l.MonthlySalary,
		Balance:        l.Balance,
		Status:         l.Status,
		AccountsStatus: l.AccountsStatus,
		Reason:         l.Reason,
		RequestedBy:    l.RequestedBy,
		DecidedBy:      l.DecidedBy,
		DecisionNote:   l.DecisionNote,
		DecidedAt:      l.DecidedAt,
		ActivatedAt:    l.ActivatedAt,
		ClosedAt:       l.ClosedAt,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func FromDataModel(l *loanDatamodel.Loan) *Loan {
	return &Loan{
		ID:             l.ID,
		EmployeeID:     l.EmployeeID,
		LoanType:       l.LoanType,
		Principal:      l.Principal,
		EMIMonths:      l.EMIMonths,
		MonthlySalary:  l.MonthlySalary,
		Balance:        l.Balance,
		Status:         l.Status,
		AccountsStatus: l.AccountsStatus,
		Reason:         l.Reason,
		RequestedBy:    l.RequestedBy,
		DecidedBy:      l.DecidedBy,
		DecisionNote:   l.DecisionNote,
		DecidedAt:      l.DecidedAt,
		ActivatedAt:    l.ActivatedAt,
		ClosedAt:       l.ClosedAt,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func InstallmentToDataModel(i *Installment) *loanDatamodel.Installment {
	return &loanDatamodel.Installment{
		ID:        i.ID,
		LoanID:    i.LoanID,
		Sequence:  i.Sequence,
		DuePeriod: i.DuePeriod,
		DueDate:   i.DueDate,
		Amount:    i.Amount,
		Status:    i.Status,
		PaidAt:    i.PaidAt,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func InstallmentFromDataModel(i *loanDatamodel.Installment) *Installment {
	return &Installment{
		ID:        i.ID,
		LoanID:    i.LoanID,
		Sequence:  i.Sequence,
		DuePeriod: i.DuePeriod,
		DueDate:   i.DueDate,
		Amount:    i.Amount,
		Status:    i.Status,
		PaidAt:    i.PaidAt,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func FromDataModelSlice(loans []*loanDatamodel.Loan) []*Loan {
	result := make([]*Loan, len(loans))
	for i, l := range loans {
		result[i] = FromDataModel(l)
	}
	return result
}

func InstallmentsFromDataModelSlice(installments []*loanDatamodel.Installment) []*Installment {
	result := make([]*Installment, len(installments))
	for i, inst := range installments {
		result[i] = InstallmentFromDataModel(inst)
	}
	return result
}
