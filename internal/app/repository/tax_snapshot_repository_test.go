package repository

import (
	"context"
	"testing"
	"time"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSnapshot(sourceID string, taxCents int64) *model.TaxSnapshot {
	return &model.TaxSnapshot{
		WorkspaceID:   1,
		SourceType:    model.SnapshotSourceInvoice,
		SourceID:      sourceID,
		Jurisdiction:  "DE",
		Regime:        model.RegimeStandardVAT,
		RoundingMode:  model.RoundingHalfUp,
		Currency:      "EUR",
		CalculatedAt:  time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC),
		SubtotalCents: 10000,
		TaxCents:      taxCents,
		TotalCents:    10000 + taxCents,
		Breakdown:     `[]`,
		Version:       model.CurrentSnapshotVersion,
	}
}

func TestTaxSnapshotRepository_CreateIfAbsent(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewTaxSnapshotRepository(testDB)
	ctx := context.Background()

	created, err := repo.CreateIfAbsent(ctx, newSnapshot("inv-1", 1900))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(ctx, newSnapshot("inv-1", 700))
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := repo.FindBySource(ctx, 1, model.SnapshotSourceInvoice, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1900), stored.TaxCents, "first write wins")

	var count int64
	testDB.Model(&model.TaxSnapshot{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestTaxSnapshotRepository_ListByWorkspace(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewTaxSnapshotRepository(testDB)
	ctx := context.Background()

	_, err = repo.CreateIfAbsent(ctx, newSnapshot("inv-1", 1900))
	require.NoError(t, err)
	expense := newSnapshot("exp-1", 950)
	expense.SourceType = model.SnapshotSourceExpense
	_, err = repo.CreateIfAbsent(ctx, expense)
	require.NoError(t, err)

	all, err := repo.ListByWorkspace(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	invoices, err := repo.ListByWorkspace(ctx, 1, model.SnapshotSourceInvoice)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "inv-1", invoices[0].SourceID)
}
