package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisplayStatus(t *testing.T) {
	due := time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status ReportStatus
		now    time.Time
		want   ReportStatus
	}{
		{"before due day", ReportStatusOpen, time.Date(2025, time.April, 9, 23, 59, 59, 0, time.UTC), ReportStatusOpen},
		{"start of due day", ReportStatusOpen, due, ReportStatusOpen},
		{"last second of due day", ReportStatusUpcoming, time.Date(2025, time.April, 10, 23, 59, 59, 0, time.UTC), ReportStatusUpcoming},
		{"day after", ReportStatusOpen, time.Date(2025, time.April, 11, 0, 0, 0, 0, time.UTC), ReportStatusOverdue},
		{"day after in other zone", ReportStatusOpen, time.Date(2025, time.April, 10, 21, 0, 0, 0, time.FixedZone("UTC-3", -3*3600)), ReportStatusOverdue},
		{"submitted stays", ReportStatusSubmitted, time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC), ReportStatusSubmitted},
		{"paid stays", ReportStatusPaid, time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC), ReportStatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayStatus(tt.status, due, tt.now))
		})
	}
}
