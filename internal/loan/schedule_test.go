package loan_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal/core/period"
	"github.com/guardline/payroll-engine/internal/loan"
)

var _ = Describe("BuildSchedule", func() {
	activatedAt := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)

	It("splits the principal into equal monthly installments", func() {
		schedule := loan.BuildSchedule("loan-1", decimal.NewFromInt(60000), 6, activatedAt)

		Expect(schedule).To(HaveLen(6))
		for _, inst := range schedule {
			Expect(inst.Amount.StringFixed(2)).To(Equal("10000.00"))
		}
	})

	It("pushes the rounding remainder into the last installment", func() {
		schedule := loan.BuildSchedule("loan-1", decimal.NewFromInt(10000), 3, activatedAt)

		Expect(schedule[0].Amount.StringFixed(2)).To(Equal("3333.33"))
		Expect(schedule[1].Amount.StringFixed(2)).To(Equal("3333.33"))
		Expect(schedule[2].Amount.StringFixed(2)).To(Equal("3333.34"))

		total := decimal.Zero
		for _, inst := range schedule {
			total = total.Add(inst.Amount)
		}
		Expect(total.Equal(decimal.NewFromInt(10000))).To(BeTrue())
	})

	It("schedules the first installment one month after activation", func() {
		schedule := loan.BuildSchedule("loan-1", decimal.NewFromInt(6000), 3, activatedAt)

		Expect(schedule[0].DueDate.Month()).To(Equal(time.September))
		Expect(schedule[0].DuePeriod).To(Equal(period.New(2025, 9)))
		Expect(schedule[2].DuePeriod).To(Equal(period.New(2025, 11)))
	})

	It("numbers installments sequentially from one", func() {
		schedule := loan.BuildSchedule("loan-1", decimal.NewFromInt(6000), 3, activatedAt)

		for i, inst := range schedule {
			Expect(inst.Sequence).To(Equal(i + 1))
			Expect(inst.LoanID).To(Equal("loan-1"))
		}
	})
})
