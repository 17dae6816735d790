package period

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Period is a payroll month, serialized as "YYYY-MM". Salary records,
// payment requests and compliance obligations are all keyed by it.
type Period struct {
	Year  int
	Month time.Month
}

func New(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

func FromTime(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

func Parse(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q, want YYYY-MM: %w", s, err)
	}
	return FromTime(t), nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Start returns midnight UTC on the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns midnight UTC on the first day of the following period.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

func (p Period) Next() Period {
	return FromTime(p.Start().AddDate(0, 1, 0))
}

func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// Value / Scan let gorm store the period as its string form.
func (p Period) Value() (driver.Value, error) {
	return p.String(), nil
}

func (p *Period) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	case []byte:
		return p.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Period", src)
	}
}

func (p Period) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

func (p *Period) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid period JSON %s", s)
	}
	parsed, err := Parse(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
