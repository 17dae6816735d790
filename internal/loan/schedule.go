package loan

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal/core/period"
)

// BuildSchedule amortizes a principal into emiMonths equal installments due
// monthly starting one month after activation. Amounts are rounded to the
// paisa; whatever rounding remainder is left lands in the final installment
// so the schedule always sums back to the principal exactly.
func BuildSchedule(loanID string, principal decimal.Decimal, emiMonths int, activatedAt time.Time) []*Installment {
	months := decimal.NewFromInt(int64(emiMonths))
	base := principal.Div(months).Round(2)

	installments := make([]*Installment, emiMonths)
	now := time.Now()
	for i := 0; i < emiMonths; i++ {
		amount := base
		if i == emiMonths-1 {
			amount = principal.Sub(base.Mul(decimal.NewFromInt(int64(emiMonths - 1))))
		}
		dueDate := activatedAt.AddDate(0, i+1, 0)
		installments[i] = &Installment{
			ID:        uuid.New().String(),
			LoanID:    loanID,
			Sequence:  i + 1,
			DuePeriod: period.FromTime(dueDate),
			DueDate:   dueDate,
			Amount:    amount,
			Status:    InstallmentPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return installments
}
