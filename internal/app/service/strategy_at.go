package service

import (
	"context"
	"time"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/internal/app/repository"
)

const countryAT = "AT"

// U30 box numbers.
var atVATForm = vatForm{salesCode: "022", intraEUCode: "017", inputCode: "060", payableCode: "095"}

// atVATAdvance is the Austrian advance VAT return (UVA).
type atVATAdvance struct {
	aggregates repository.PeriodAggregationRepository
}

func NewATVATAdvanceStrategy(aggregates repository.PeriodAggregationRepository) ReportStrategy {
	return &atVATAdvance{aggregates: aggregates}
}

func (s *atVATAdvance) Type() model.ReportType { return model.ReportTypeVATAdvance }
func (s *atVATAdvance) CountryCode() string    { return countryAT }

func (s *atVATAdvance) IsRequired(sc StrategyContext) bool {
	return sc.Profile.VATApplicable() && sc.MatchesFilingCadence()
}

func (s *atVATAdvance) Generate(ctx context.Context, sc StrategyContext) (*GeneratedReport, error) {
	totals, err := loadVATTotals(ctx, s.aggregates, sc)
	if err != nil {
		return nil, err
	}
	return buildVATReport(totals, sc, atVATForm), nil
}

// DueDate is the 15th of the second month after the period.
func (s *atVATAdvance) DueDate(periodEnd time.Time, _ StrategyContext) time.Time {
	return dayOfFollowingMonth(periodEnd, 2, 15)
}
