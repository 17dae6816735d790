package postgres_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/guardline/payroll-engine/internal"
	loanDatamodel "github.com/guardline/payroll-engine/internal/core/datamodel/loan"
	"github.com/guardline/payroll-engine/internal/core/period"
	"github.com/guardline/payroll-engine/internal/loan"
	loanPostgres "github.com/guardline/payroll-engine/internal/loan/postgres"
)

func TestLoanPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Loan Postgres Suite")
}

var _ = Describe("Loan PostgreSQL Repository", func() {
	var (
		db   *gorm.DB
		repo loan.Repository
	)

	newActiveLoan := func(id, employeeID string) *loan.Loan {
		activatedAt := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
		return &loan.Loan{
			ID:             id,
			EmployeeID:     employeeID,
			LoanType:       loan.TypeAdvanceSalary,
			Principal:      decimal.NewFromInt(12000),
			EMIMonths:      6,
			MonthlySalary:  decimal.NewFromInt(18000),
			Balance:        decimal.NewFromInt(12000),
			Status:         loan.StatusActive,
			AccountsStatus: loan.AccountsApproved,
			RequestedBy:    "hr-1",
			ActivatedAt:    &activatedAt,
		}
	}

	BeforeEach(func() {
		var err error
		// Use SQLite in-memory database for testing
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&loanDatamodel.Loan{}, &loanDatamodel.Installment{})
		Expect(err).NotTo(HaveOccurred())

		repo = loanPostgres.NewLoanRepository(db)
	})

	Describe("Create and GetByID", func() {
		It("round-trips a loan", func() {
			l := &loan.Loan{
				ID:             "loan-1",
				EmployeeID:     "emp-100",
				LoanType:       loan.TypeAdvanceSalary,
				Principal:      decimal.NewFromInt(60000),
				EMIMonths:      6,
				MonthlySalary:  decimal.NewFromInt(20000),
				Balance:        decimal.NewFromInt(60000),
				Status:         loan.StatusRequested,
				AccountsStatus: loan.AccountsDraft,
				Reason:         "festival advance",
				RequestedBy:    "hr-1",
			}

			Expect(repo.Create(l)).To(Succeed())

			got, err := repo.GetByID("loan-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.EmployeeID).To(Equal("emp-100"))
			Expect(got.Principal.Equal(decimal.NewFromInt(60000))).To(BeTrue())
			Expect(got.Status).To(Equal(loan.StatusRequested))
		})

		It("returns not found for a missing loan", func() {
			_, err := repo.GetByID("nope")
			Expect(err).To(MatchError(internal.ErrLoanNotFound))
		})
	})

	Describe("ActivateWithSchedule", func() {
		It("persists the loan and all installments together", func() {
			l := newActiveLoan("loan-2", "emp-100")
			Expect(repo.Create(l)).To(Succeed())

			schedule := loan.BuildSchedule(l.ID, l.Principal, l.EMIMonths, *l.ActivatedAt)
			Expect(repo.ActivateWithSchedule(l, schedule)).To(Succeed())

			got, err := repo.GetInstallmentsByLoan("loan-2")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(6))
			Expect(got[0].Sequence).To(Equal(1))
			Expect(got[5].Sequence).To(Equal(6))
		})
	})

	Describe("ChargesForPeriod", func() {
		It("returns only the active loan's unpaid installment due in the period", func() {
			l := newActiveLoan("loan-3", "emp-200")
			Expect(repo.Create(l)).To(Succeed())
			schedule := loan.BuildSchedule(l.ID, l.Principal, l.EMIMonths, *l.ActivatedAt)
			Expect(repo.ActivateWithSchedule(l, schedule)).To(Succeed())

			// A closed loan for the same employee must not contribute.
			closed := newActiveLoan("loan-4", "emp-200")
			closed.Status = loan.StatusClosed
			Expect(repo.Create(closed)).To(Succeed())
			Expect(repo.ActivateWithSchedule(closed, loan.BuildSchedule(closed.ID, closed.Principal, closed.EMIMonths, *closed.ActivatedAt))).To(Succeed())

			charges, err := repo.ChargesForPeriod("emp-200", period.New(2025, time.September))
			Expect(err).NotTo(HaveOccurred())
			Expect(charges).To(HaveLen(1))
			Expect(charges[0].LoanID).To(Equal("loan-3"))
			Expect(charges[0].Amount.Equal(decimal.NewFromInt(2000))).To(BeTrue())
		})

		It("skips installments already settled", func() {
			l := newActiveLoan("loan-5", "emp-300")
			Expect(repo.Create(l)).To(Succeed())
			schedule := loan.BuildSchedule(l.ID, l.Principal, l.EMIMonths, *l.ActivatedAt)
			Expect(repo.ActivateWithSchedule(l, schedule)).To(Succeed())

			first := schedule[0]
			paidAt := time.Now()
			first.Status = loan.InstallmentPaid
			first.PaidAt = &paidAt
			l.Balance = l.Balance.Sub(first.Amount)
			Expect(repo.SettleInstallment(l, first)).To(Succeed())

			charges, err := repo.ChargesForPeriod("emp-300", first.DuePeriod)
			Expect(err).NotTo(HaveOccurred())
			Expect(charges).To(BeEmpty())

			got, err := repo.GetByID("loan-5")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Balance.Equal(decimal.NewFromInt(10000))).To(BeTrue())
		})
	})

	Describe("ListUnpaidDueBefore", func() {
		It("returns pending installments past the cutoff in due date order", func() {
			l := newActiveLoan("loan-6", "emp-400")
			Expect(repo.Create(l)).To(Succeed())
			schedule := loan.BuildSchedule(l.ID, l.Principal, l.EMIMonths, *l.ActivatedAt)
			Expect(repo.ActivateWithSchedule(l, schedule)).To(Succeed())

			cutoff := l.ActivatedAt.AddDate(0, 2, 15)
			due, err := repo.ListUnpaidDueBefore(cutoff)
			Expect(err).NotTo(HaveOccurred())
			Expect(due).To(HaveLen(2))
			Expect(due[0].Sequence).To(Equal(1))
			Expect(due[1].Sequence).To(Equal(2))
		})
	})
})
