// Package period resolves calendar reporting periods.
//
// Every boundary is computed in UTC. A period is the half-open interval
// [Start, End): Start is midnight UTC of the first day, End is midnight UTC
// of the first day of the next period.
package period

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidPeriodKey is returned for keys that are not of the form "YYYY-Qn".
var ErrInvalidPeriodKey = errors.New("invalid period key")

var quarterKeyPattern = regexp.MustCompile(`^(\d{4})-Q(\d+)$`)

// VatPeriod is a derived value and is never persisted.
type VatPeriod struct {
	Key   string    `json:"key"`   // "2025-Q4"
	Label string    `json:"label"` // "Q4 2025"
	Start time.Time `json:"start"` // inclusive
	End   time.Time `json:"end"`   // exclusive
}

// Contains reports whether t falls inside [Start, End).
func (p VatPeriod) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.Start) && t.Before(p.End)
}

// Year returns the calendar year of the period.
func (p VatPeriod) Year() int {
	return p.Start.Year()
}

// Quarter returns the quarter number 1..4.
func (p VatPeriod) Quarter() int {
	return int(p.Start.Month()-1)/3 + 1
}

// Next returns the quarter following p.
func (p VatPeriod) Next() VatPeriod {
	return ResolveQuarter(p.End)
}

// Previous returns the quarter preceding p.
func (p VatPeriod) Previous() VatPeriod {
	return ResolveQuarter(p.Start.Add(-time.Nanosecond))
}

// ResolveQuarter returns the calendar quarter containing t. The instant is
// converted to UTC before the quarter is chosen, so 2025-03-31T23:30:00-05:00
// lands in 2025-Q2.
func ResolveQuarter(t time.Time) VatPeriod {
	u := t.UTC()
	q := int(u.Month()-1)/3 + 1
	return quarter(u.Year(), q)
}

// ParseKey parses a "YYYY-Qn" key back into its period.
func ParseKey(key string) (VatPeriod, error) {
	m := quarterKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return VatPeriod{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
	}
	year, err := strconv.Atoi(m[1])
	if err != nil || year < 1 {
		return VatPeriod{}, fmt.Errorf("%w: unparsable year in %q", ErrInvalidPeriodKey, key)
	}
	q, err := strconv.Atoi(m[2])
	if err != nil || q < 1 || q > 4 {
		return VatPeriod{}, fmt.Errorf("%w: quarter must be 1-4 in %q", ErrInvalidPeriodKey, key)
	}
	return quarter(year, q), nil
}

// QuartersOfYear returns Q1..Q4 of year in order.
func QuartersOfYear(year int) []VatPeriod {
	periods := make([]VatPeriod, 0, 4)
	for q := 1; q <= 4; q++ {
		periods = append(periods, quarter(year, q))
	}
	return periods
}

// MonthsOfYear returns January..December of year in order.
func MonthsOfYear(year int) []VatPeriod {
	periods := make([]VatPeriod, 0, 12)
	for m := time.January; m <= time.December; m++ {
		periods = append(periods, Month(time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)))
	}
	return periods
}

// FullYear returns the calendar year as one period with key "YYYY".
func FullYear(year int) VatPeriod {
	return VatPeriod{
		Key:   strconv.Itoa(year),
		Label: strconv.Itoa(year),
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Month returns the calendar month containing t, keyed "YYYY-MM".
func Month(t time.Time) VatPeriod {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	return VatPeriod{
		Key:   start.Format("2006-01"),
		Label: start.Format("January 2006"),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// IsMonth reports whether [start, end) is exactly one calendar month.
func IsMonth(start, end time.Time) bool {
	m := Month(start)
	return m.Start.Equal(start.UTC()) && m.End.Equal(end.UTC())
}

// IsQuarter reports whether [start, end) is exactly one calendar quarter.
func IsQuarter(start, end time.Time) bool {
	q := ResolveQuarter(start)
	return q.Start.Equal(start.UTC()) && q.End.Equal(end.UTC())
}

// LastDay returns the last day included in a half-open interval ending at end.
func LastDay(end time.Time) time.Time {
	u := end.UTC().Add(-time.Nanosecond)
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// IsFullYear reports whether [start, end) spans a tax year. The threshold is
// deliberately loose so that 365/366-day windows and slightly shifted tax
// years both qualify.
func IsFullYear(start, end time.Time) bool {
	return end.Sub(start) > 360*24*time.Hour
}

func quarter(year, q int) VatPeriod {
	start := time.Date(year, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
	return VatPeriod{
		Key:   fmt.Sprintf("%04d-Q%d", year, q),
		Label: fmt.Sprintf("Q%d %04d", q, year),
		Start: start,
		End:   start.AddDate(0, 3, 0),
	}
}
