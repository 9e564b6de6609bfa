package repository

import (
	"context"
	"testing"
	"time"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newProfile(workspaceID uint, from time.Time, to *time.Time) *model.TaxProfile {
	return &model.TaxProfile{
		WorkspaceID:       workspaceID,
		CountryCode:       "DE",
		Regime:            model.RegimeStandardVAT,
		VATEnabled:        true,
		AccountingMethod:  model.AccountingAccrual,
		FilingFrequency:   model.FilingQuarterly,
		Currency:          "EUR",
		TaxYearStartMonth: 1,
		EffectiveFrom:     from,
		EffectiveTo:       to,
	}
}

func TestTaxProfileRepository_FindActive(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewTaxProfileRepository(testDB)
	ctx := context.Background()

	switchover := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	old := newProfile(1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), &switchover)
	require.NoError(t, repo.Create(ctx, old))

	current := newProfile(1, switchover, nil)
	current.AccountingMethod = model.AccountingCash
	require.NoError(t, repo.Create(ctx, current))

	tests := []struct {
		name   string
		at     time.Time
		wantID uint
	}{
		{name: "Before any window", at: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
		{name: "Inside closed window", at: time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC), wantID: old.ID},
		{name: "End is exclusive", at: switchover, wantID: current.ID},
		{name: "Open window", at: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), wantID: current.ID},
		{name: "Offset input normalized", at: time.Date(2025, 7, 1, 1, 0, 0, 0, time.FixedZone("CEST", 2*3600)), wantID: old.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := repo.FindActive(ctx, 1, tt.at)
			if tt.wantID == 0 {
				assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, profile.ID)
		})
	}
}

func TestTaxProfileRepository_HasOverlap(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewTaxProfileRepository(testDB)
	ctx := context.Background()

	to := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	closed := newProfile(1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), &to)
	require.NoError(t, repo.Create(ctx, closed))

	overlap, err := repo.HasOverlap(ctx, 1, to, nil, 0)
	require.NoError(t, err)
	assert.False(t, overlap, "adjacent window must not overlap")

	overlap, err = repo.HasOverlap(ctx, 1, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), nil, 0)
	require.NoError(t, err)
	assert.True(t, overlap)

	overlap, err = repo.HasOverlap(ctx, 1, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), nil, closed.ID)
	require.NoError(t, err)
	assert.False(t, overlap)

	overlap, err = repo.HasOverlap(ctx, 2, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), nil, 0)
	require.NoError(t, err)
	assert.False(t, overlap)
}

func TestTaxProfileRepository_ListWorkspaceIDsActiveAt(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewTaxProfileRepository(testDB)
	ctx := context.Background()

	ended := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newProfile(3, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), nil)))
	require.NoError(t, repo.Create(ctx, newProfile(1, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), nil)))
	require.NoError(t, repo.Create(ctx, newProfile(2, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), &ended)))

	ids, err := repo.ListWorkspaceIDsActiveAt(ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 3}, ids)
}

func TestTaxProfileRepository_FindOpen(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewTaxProfileRepository(testDB)
	ctx := context.Background()

	_, err = repo.FindOpen(ctx, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	profile := newProfile(1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, repo.Create(ctx, profile))

	open, err := repo.FindOpen(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, open.ID)
	assert.True(t, open.VATEnabled)
}
