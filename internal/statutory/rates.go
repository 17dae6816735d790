package statutory

import (
	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal"
)

// Bracket is one row of a monotonic income-bracket table. Flat tables (PT)
// use Amount, marginal tables (TDS) use Rate. A zero UpTo means open-ended
// and must come last.
type Bracket struct {
	UpTo   decimal.Decimal `json:"up_to"`
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
}

func (b Bracket) openEnded() bool {
	return b.UpTo.IsZero()
}

// RateTable holds one jurisdiction's statutory percentages and bracket
// tables. Tables are data, not code: a new state means a new table, not a
// new branch.
type RateTable struct {
	Jurisdiction    string          `json:"jurisdiction"`
	EmployeePFRate  decimal.Decimal `json:"employee_pf_rate"`
	EmployerPFRate  decimal.Decimal `json:"employer_pf_rate"`
	EmployeeESIRate decimal.Decimal `json:"employee_esi_rate"`
	EmployerESIRate decimal.Decimal `json:"employer_esi_rate"`
	ESIWageCeiling  decimal.Decimal `json:"esi_wage_ceiling"`
	PTBrackets      []Bracket       `json:"pt_brackets"`
	TDSBrackets     []Bracket       `json:"tds_brackets"`
}

func (t RateTable) Validate() error {
	for _, r := range []decimal.Decimal{t.EmployeePFRate, t.EmployerPFRate, t.EmployeeESIRate, t.EmployerESIRate} {
		if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
			return internal.NewValidationError("statutory rates must be fractions in [0, 1]", internal.ErrCodeValidationFailed)
		}
	}
	if t.ESIWageCeiling.IsNegative() {
		return internal.NewValidationError("ESI wage ceiling must not be negative", internal.ErrCodeValidationFailed)
	}
	if err := validateBrackets(t.PTBrackets); err != nil {
		return err
	}
	return validateBrackets(t.TDSBrackets)
}

func validateBrackets(brackets []Bracket) error {
	prev := decimal.Zero
	for i, b := range brackets {
		if b.openEnded() {
			if i != len(brackets)-1 {
				return internal.NewValidationError("open-ended bracket must be last", internal.ErrCodeValidationFailed)
			}
			continue
		}
		if b.UpTo.LessThanOrEqual(prev) {
			return internal.NewValidationError("bracket ceilings must be strictly increasing", internal.ErrCodeValidationFailed)
		}
		prev = b.UpTo
	}
	return nil
}

// Registry resolves a jurisdiction tag to its rate table, falling back to
// the baseline table for unknown tags. Read-only after construction.
type Registry struct {
	tables   map[string]RateTable
	baseline RateTable
}

func NewRegistry(baseline RateTable, tables ...RateTable) *Registry {
	m := make(map[string]RateTable, len(tables)+1)
	m[baseline.Jurisdiction] = baseline
	for _, t := range tables {
		m[t.Jurisdiction] = t
	}
	return &Registry{tables: m, baseline: baseline}
}

func (r *Registry) Lookup(jurisdiction string) RateTable {
	if t, ok := r.tables[jurisdiction]; ok {
		return t
	}
	return r.baseline
}

func (r *Registry) Jurisdictions() []string {
	out := make([]string, 0, len(r.tables))
	for k := range r.tables {
		out = append(out, k)
	}
	return out
}

func pct(p string) decimal.Decimal {
	return decimal.RequireFromString(p).Div(decimal.NewFromInt(100))
}

func amt(a int64) decimal.Decimal {
	return decimal.NewFromInt(a)
}

// DefaultRegistry carries the FY 2024-25 tables the firm operates under.
// Karnataka is the baseline; other states override PT only.
func DefaultRegistry() *Registry {
	karnataka := RateTable{
		Jurisdiction:    "IN-KA",
		EmployeePFRate:  pct("12"),
		EmployerPFRate:  pct("13"),
		EmployeeESIRate: pct("0.75"),
		EmployerESIRate: pct("3.25"),
		ESIWageCeiling:  amt(21000),
		PTBrackets: []Bracket{
			{UpTo: amt(15000), Amount: amt(0)},
			{UpTo: amt(20000), Amount: amt(150)},
			{Amount: amt(200)},
		},
		TDSBrackets: []Bracket{
			{UpTo: amt(60000), Rate: pct("0")},
			{UpTo: amt(100000), Rate: pct("5")},
			{Rate: pct("10")},
		},
	}

	maharashtra := karnataka
	maharashtra.Jurisdiction = "IN-MH"
	maharashtra.PTBrackets = []Bracket{
		{UpTo: amt(7500), Amount: amt(0)},
		{UpTo: amt(10000), Amount: amt(175)},
		{Amount: amt(200)},
	}

	telangana := karnataka
	telangana.Jurisdiction = "IN-TG"
	telangana.PTBrackets = []Bracket{
		{UpTo: amt(15000), Amount: amt(0)},
		{UpTo: amt(20000), Amount: amt(150)},
		{Amount: amt(200)},
	}

	return NewRegistry(karnataka, maharashtra, telangana)
}
