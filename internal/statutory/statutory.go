package statutory

import (
	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal"
)

// Deductions is the per-employee statutory breakdown for one month. Employer
// shares are carried alongside the employee shares because compliance filings
// remit both, but only employee shares come out of the salary.
type Deductions struct {
	EmployeePF      decimal.Decimal `json:"employee_pf"`
	EmployerPF      decimal.Decimal `json:"employer_pf"`
	EmployeeESI     decimal.Decimal `json:"employee_esi"`
	EmployerESI     decimal.Decimal `json:"employer_esi"`
	ProfessionalTax decimal.Decimal `json:"professional_tax"`
	TDS             decimal.Decimal `json:"tds"`
}

// EmployeeTotal is what actually reduces the employee's net salary.
func (d Deductions) EmployeeTotal() decimal.Decimal {
	return d.EmployeePF.Add(d.EmployeeESI).Add(d.ProfessionalTax).Add(d.TDS)
}

// EmployerTotal is the employer's remittance on top of gross.
func (d Deductions) EmployerTotal() decimal.Decimal {
	return d.EmployerPF.Add(d.EmployerESI)
}

// ComputeDeductions derives PF, ESI, PT and TDS from basic and gross pay
// under the given rate table. Pure and deterministic; callers must reject
// negative inputs before storage, this only reports them.
//
// PF applies to basic pay, both shares at their own rates. ESI applies to
// gross pay only at or below the eligibility ceiling; above it both shares
// are zero, the employee has left the scheme. The employee ESI share rounds
// up to the next rupee per scheme rules. PT and TDS come from their
// monotonic monthly bracket tables.
func ComputeDeductions(basic, gross decimal.Decimal, rates RateTable) (Deductions, error) {
	if basic.IsNegative() || gross.IsNegative() {
		return Deductions{}, internal.NewValidationError(
			"basic and gross pay must not be negative", internal.ErrCodeInvalidAmount)
	}
	if err := rates.Validate(); err != nil {
		return Deductions{}, err
	}

	d := Deductions{
		EmployeePF: rates.EmployeePFRate.Mul(basic).Round(2),
		EmployerPF: rates.EmployerPFRate.Mul(basic).Round(2),
	}

	if gross.LessThanOrEqual(rates.ESIWageCeiling) {
		d.EmployeeESI = rates.EmployeeESIRate.Mul(gross).Ceil()
		d.EmployerESI = rates.EmployerESIRate.Mul(gross).Ceil()
	}

	d.ProfessionalTax = bracketTax(gross, rates.PTBrackets)
	d.TDS = marginalTax(gross, rates.TDSBrackets).Round(0)

	return d, nil
}

// bracketTax returns the flat amount of the first bracket whose ceiling
// covers the income. The last bracket is open-ended.
func bracketTax(income decimal.Decimal, brackets []Bracket) decimal.Decimal {
	for _, b := range brackets {
		if b.openEnded() || income.LessThanOrEqual(b.UpTo) {
			return b.Amount
		}
	}
	return decimal.Zero
}

// marginalTax applies each bracket's rate to the slice of income inside it,
// the usual progressive slab computation.
func marginalTax(income decimal.Decimal, brackets []Bracket) decimal.Decimal {
	total := decimal.Zero
	lower := decimal.Zero
	for _, b := range brackets {
		if income.LessThanOrEqual(lower) {
			break
		}
		upper := income
		if !b.openEnded() && b.UpTo.LessThan(income) {
			upper = b.UpTo
		}
		total = total.Add(upper.Sub(lower).Mul(b.Rate))
		if b.openEnded() {
			break
		}
		lower = b.UpTo
	}
	return total
}
