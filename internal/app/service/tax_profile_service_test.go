package service

import (
	"context"
	"testing"
	"time"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxProfileService_UpsertDefaults(t *testing.T) {
	f := setupServiceFixture(t, time.Date(2025, time.March, 5, 14, 30, 0, 0, time.UTC))

	profile, err := f.profiles.Upsert(context.Background(), f.workspace.ID, UpsertProfileInput{
		CountryCode: " de ",
		VATEnabled:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "DE", profile.CountryCode)
	assert.Equal(t, model.RegimeStandardVAT, profile.Regime)
	assert.Equal(t, model.AccountingAccrual, profile.AccountingMethod)
	assert.Equal(t, model.FilingQuarterly, profile.FilingFrequency)
	assert.Equal(t, "EUR", profile.Currency)
	assert.Equal(t, 1, profile.TaxYearStartMonth)
	assert.True(t, date(2025, time.March, 5).Equal(profile.EffectiveFrom))
	assert.Nil(t, profile.EffectiveTo)
	assert.Contains(t, f.cache.invalidated, f.workspace.ID)
}

func TestTaxProfileService_Validation(t *testing.T) {
	f := setupServiceFixture(t, date(2025, time.March, 5))

	tests := []struct {
		name  string
		input UpsertProfileInput
	}{
		{name: "country", input: UpsertProfileInput{CountryCode: "DEU"}},
		{name: "currency", input: UpsertProfileInput{CountryCode: "DE", Currency: "EURO"}},
		{name: "regime", input: UpsertProfileInput{CountryCode: "DE", Regime: "FLAT"}},
		{name: "method", input: UpsertProfileInput{CountryCode: "DE", AccountingMethod: "MIXED"}},
		{name: "frequency", input: UpsertProfileInput{CountryCode: "DE", FilingFrequency: "WEEKLY"}},
		{name: "start month", input: UpsertProfileInput{CountryCode: "DE", TaxYearStartMonth: 13}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.profiles.Upsert(context.Background(), f.workspace.ID, tt.input)
			assert.ErrorIs(t, err, ErrInvalidProfile)
		})
	}
}

func TestTaxProfileService_NewWindowClosesPrevious(t *testing.T) {
	ctx := context.Background()
	f := setupServiceFixture(t, date(2025, time.June, 1))
	first := f.createProfile(t, nil)

	from := date(2025, time.July, 1)
	second := f.createProfile(t, func(in *UpsertProfileInput) {
		in.AccountingMethod = model.AccountingCash
		in.EffectiveFrom = &from
	})
	assert.NotEqual(t, first.ID, second.ID)

	history, err := f.profiles.History(ctx, f.workspace.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	var closed *model.TaxProfile
	for i := range history {
		if history[i].ID == first.ID {
			closed = &history[i]
		}
	}
	require.NotNil(t, closed)
	require.NotNil(t, closed.EffectiveTo)
	assert.True(t, from.Equal(*closed.EffectiveTo))

	before, err := f.profiles.GetActive(ctx, f.workspace.ID, from.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, first.ID, before.ID)

	at, err := f.profiles.GetActive(ctx, f.workspace.ID, from)
	require.NoError(t, err)
	assert.Equal(t, second.ID, at.ID)
	assert.Equal(t, model.AccountingCash, at.AccountingMethod)
}

func TestTaxProfileService_SameStartReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	f := setupServiceFixture(t, date(2025, time.June, 1))
	first := f.createProfile(t, nil)

	second := f.createProfile(t, func(in *UpsertProfileInput) {
		in.HasCrossBorderSales = true
	})
	assert.Equal(t, first.ID, second.ID)

	history, err := f.profiles.History(ctx, f.workspace.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].HasCrossBorderSales)
}

func TestTaxProfileService_RejectsBackdatedWindow(t *testing.T) {
	f := setupServiceFixture(t, date(2025, time.June, 1))
	f.createProfile(t, nil)

	from := date(2019, time.January, 1)
	_, err := f.profiles.Upsert(context.Background(), f.workspace.ID, UpsertProfileInput{
		CountryCode:   "DE",
		EffectiveFrom: &from,
	})
	assert.ErrorIs(t, err, ErrProfileOverlap)
}

func TestTaxProfileService_GetActiveMissing(t *testing.T) {
	f := setupServiceFixture(t, date(2025, time.June, 1))

	_, err := f.profiles.GetActive(context.Background(), f.workspace.ID, f.now)
	assert.ErrorIs(t, err, ErrProfileMissing)

	f.createProfile(t, nil)
	_, err = f.profiles.GetActive(context.Background(), f.workspace.ID, date(2019, time.December, 31))
	assert.ErrorIs(t, err, ErrProfileMissing)
}
