package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/internal/app/repository"
	"github.com/ikkim/taxfiling-backend/pkg/period"
)

var (
	ErrUnknownReportType = errors.New("unknown report type")
	ErrDuplicateStrategy = errors.New("strategy already registered")
)

// StrategyContext is everything a strategy may read for one period.
type StrategyContext struct {
	WorkspaceID uint
	Profile     *model.TaxProfile
	PeriodStart time.Time
	PeriodEnd   time.Time // exclusive
	PeriodLabel string
	Now         time.Time
}

// IsFullYear reports whether the period is a tax year rather than a quarter or month.
func (sc StrategyContext) IsFullYear() bool {
	return period.IsFullYear(sc.PeriodStart, sc.PeriodEnd)
}

// MatchesFilingCadence reports whether the period is one the profile files
// advance returns for: a calendar month for MONTHLY, a quarter for QUARTERLY.
func (sc StrategyContext) MatchesFilingCadence() bool {
	switch sc.Profile.FilingFrequency {
	case model.FilingMonthly:
		return period.IsMonth(sc.PeriodStart, sc.PeriodEnd)
	case model.FilingQuarterly:
		return period.IsQuarter(sc.PeriodStart, sc.PeriodEnd)
	}
	return false
}

// GeneratedReport is the computed content of one report.
type GeneratedReport struct {
	AmountDueCents int64 // negative = refund
	Meta           model.ReportMeta
	Lines          []model.TaxReportLine
}

// ReportStrategy encapsulates one report type for one jurisdiction.
type ReportStrategy interface {
	Type() model.ReportType
	CountryCode() string
	IsRequired(sc StrategyContext) bool
	Generate(ctx context.Context, sc StrategyContext) (*GeneratedReport, error)
	DueDate(periodEnd time.Time, sc StrategyContext) time.Time
}

type strategyKey struct {
	reportType model.ReportType
	country    string
}

// StrategyRegistry is populated once at startup and read-only afterwards.
type StrategyRegistry struct {
	byKey     map[strategyKey]ReportStrategy
	byCountry map[string][]ReportStrategy
}

func NewStrategyRegistry(strategies ...ReportStrategy) (*StrategyRegistry, error) {
	r := &StrategyRegistry{
		byKey:     make(map[strategyKey]ReportStrategy, len(strategies)),
		byCountry: make(map[string][]ReportStrategy),
	}
	for _, s := range strategies {
		key := strategyKey{reportType: s.Type(), country: s.CountryCode()}
		if _, exists := r.byKey[key]; exists {
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateStrategy, key.country, key.reportType)
		}
		r.byKey[key] = s
		r.byCountry[key.country] = append(r.byCountry[key.country], s)
	}
	for country := range r.byCountry {
		list := r.byCountry[country]
		sort.Slice(list, func(i, j int) bool { return list[i].Type() < list[j].Type() })
	}
	return r, nil
}

// DefaultStrategies returns every built-in jurisdiction strategy.
func DefaultStrategies(aggregates repository.PeriodAggregationRepository) []ReportStrategy {
	return []ReportStrategy{
		NewDEVATAdvanceStrategy(aggregates),
		NewDEEUSalesListStrategy(aggregates),
		NewDEAnnualVATStrategy(aggregates),
		NewDEIncomeTaxStrategy(aggregates),
		NewATVATAdvanceStrategy(aggregates),
	}
}

// ForCountry returns all strategies of a jurisdiction ordered by report type.
func (r *StrategyRegistry) ForCountry(country string) []ReportStrategy {
	list := r.byCountry[country]
	out := make([]ReportStrategy, len(list))
	copy(out, list)
	return out
}

func (r *StrategyRegistry) Lookup(reportType model.ReportType, country string) (ReportStrategy, error) {
	s, ok := r.byKey[strategyKey{reportType: reportType, country: country}]
	if !ok {
		return nil, fmt.Errorf("%w: %s for %s", ErrUnknownReportType, reportType, country)
	}
	return s, nil
}

func (r *StrategyRegistry) Countries() []string {
	countries := make([]string, 0, len(r.byCountry))
	for c := range r.byCountry {
		countries = append(countries, c)
	}
	sort.Strings(countries)
	return countries
}
