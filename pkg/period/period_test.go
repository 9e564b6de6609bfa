package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveQuarter(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string
	}{
		{name: "First day of year", input: "2025-01-01T00:00:00Z", wantKey: "2025-Q1"},
		{name: "Last instant of Q1", input: "2025-03-31T23:59:59Z", wantKey: "2025-Q1"},
		{name: "Negative offset crosses into Q2", input: "2025-03-31T23:30:00-05:00", wantKey: "2025-Q2"},
		{name: "Positive offset stays in Q4 of previous year", input: "2026-01-01T00:30:00+02:00", wantKey: "2025-Q4"},
		{name: "Mid Q3", input: "2025-08-15T12:00:00Z", wantKey: "2025-Q3"},
		{name: "Last day of Q4", input: "2025-12-31T10:00:00Z", wantKey: "2025-Q4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := time.Parse(time.RFC3339, tt.input)
			require.NoError(t, err)

			p := ResolveQuarter(ts)
			assert.Equal(t, tt.wantKey, p.Key)
			assert.Equal(t, time.UTC, p.Start.Location())
			assert.Equal(t, time.UTC, p.End.Location())
			assert.True(t, p.Contains(ts))
		})
	}
}

func TestParseKey_Q4Boundaries(t *testing.T) {
	p, err := ParseKey("2025-Q4")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), p.End)
	assert.Equal(t, "Q4 2025", p.Label)
	assert.Equal(t, 4, p.Quarter())
	assert.Equal(t, 2025, p.Year())
}

func TestParseKey_Invalid(t *testing.T) {
	tests := []string{"", "2025", "2025-Q0", "2025-Q5", "2025-Q", "25-Q1", "abcd-Q1", "2025-q1", "0000-Q1", "2025-Q1 "}

	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			_, err := ParseKey(key)
			assert.ErrorIs(t, err, ErrInvalidPeriodKey)
		})
	}
}

func TestRoundTrip_AllQuarters(t *testing.T) {
	for year := 1999; year <= 2040; year++ {
		for _, p := range QuartersOfYear(year) {
			parsed, err := ParseKey(p.Key)
			require.NoError(t, err)
			assert.Equal(t, p, parsed)

			resolved := ResolveQuarter(parsed.Start)
			assert.Equal(t, parsed, resolved)

			// last instant still resolves to the same quarter
			assert.Equal(t, parsed, ResolveQuarter(parsed.End.Add(-time.Nanosecond)))
		}
	}
}

func TestQuartersOfYear(t *testing.T) {
	quarters := QuartersOfYear(2024)
	require.Len(t, quarters, 4)

	for i, q := range quarters {
		assert.Equal(t, i+1, q.Quarter())
		if i > 0 {
			assert.Equal(t, quarters[i-1].End, q.Start, "quarters must be contiguous")
		}
	}
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), quarters[0].Start)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), quarters[3].End)
}

func TestNextPrevious(t *testing.T) {
	q4, err := ParseKey("2025-Q4")
	require.NoError(t, err)

	assert.Equal(t, "2026-Q1", q4.Next().Key)
	assert.Equal(t, "2025-Q3", q4.Previous().Key)
	assert.Equal(t, "2024-Q4", QuartersOfYear(2025)[0].Previous().Key)
}

func TestFullYearAndLastDay(t *testing.T) {
	y := FullYear(2025)
	assert.Equal(t, "2025", y.Key)
	assert.True(t, IsFullYear(y.Start, y.End))

	q1 := QuartersOfYear(2025)[0]
	assert.False(t, IsFullYear(q1.Start, q1.End))
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), LastDay(q1.End))
}

func TestMonth(t *testing.T) {
	m := Month(time.Date(2024, 2, 29, 22, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-02", m.Key)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), m.End)
}

func TestIsMonthAndIsQuarter(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name       string
		start, end time.Time
		month      bool
		quarter    bool
	}{
		{"march", day(2025, time.March, 1), day(2025, time.April, 1), true, false},
		{"december", day(2025, time.December, 1), day(2026, time.January, 1), true, false},
		{"q1", day(2025, time.January, 1), day(2025, time.April, 1), false, true},
		{"shifted quarter", day(2025, time.February, 1), day(2025, time.May, 1), false, false},
		{"mid month", day(2025, time.February, 15), day(2025, time.March, 15), false, false},
		{"year", day(2025, time.January, 1), day(2026, time.January, 1), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.month, IsMonth(tt.start, tt.end))
			assert.Equal(t, tt.quarter, IsQuarter(tt.start, tt.end))
		})
	}
}

func TestMonthsOfYear(t *testing.T) {
	months := MonthsOfYear(2024)
	require.Len(t, months, 12)
	assert.Equal(t, "2024-01", months[0].Key)
	assert.Equal(t, "February 2024", months[1].Label)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), months[1].End)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), months[11].End)
}
