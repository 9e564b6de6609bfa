package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		context  string
		wantCode string
	}{
		{
			name:     "Record not found",
			err:      fmt.Errorf("find: %w", gorm.ErrRecordNotFound),
			context:  "load report",
			wantCode: ResourceNotFound,
		},
		{
			name:     "Report period duplicate (postgres)",
			err:      errors.New(`ERROR: duplicate key value violates unique constraint "idx_tax_reports_period" (SQLSTATE 23505)`),
			context:  "create report",
			wantCode: TaxReportExists,
		},
		{
			name:     "Report period duplicate (sqlite)",
			err:      errors.New("UNIQUE constraint failed: tax_reports.workspace_id, tax_reports.type"),
			context:  "create report",
			wantCode: TaxReportExists,
		},
		{
			name:     "Snapshot duplicate",
			err:      errors.New("UNIQUE constraint failed: tax_snapshots.workspace_id"),
			context:  "lock snapshot",
			wantCode: ResourceAlreadyExists,
		},
		{
			name:     "Connection refused",
			err:      errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			context:  "list reports",
			wantCode: InternalExternalAPI,
		},
		{
			name:     "Unknown",
			err:      errors.New("something odd"),
			context:  "list reports",
			wantCode: InternalDatabaseError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseError(tt.err, tt.context)
			assert.Equal(t, tt.wantCode, info.Code)
			assert.NotEmpty(t, info.Message)
		})
	}
}

func TestParseError_NotFoundMessage(t *testing.T) {
	info := ParseError(gorm.ErrRecordNotFound, "load snapshot")
	assert.Equal(t, "Tax snapshot not found", info.Message)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, IsDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKey(errors.New("UNIQUE constraint failed: tax_reports.type")))
	assert.False(t, IsDuplicateKey(errors.New("other")))
	assert.False(t, IsDuplicateKey(nil))
}
