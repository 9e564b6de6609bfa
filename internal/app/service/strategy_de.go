package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/internal/app/repository"
	"github.com/ikkim/taxfiling-backend/pkg/period"
)

const countryDE = "DE"

// UStVA box numbers.
var deVATForm = vatForm{salesCode: "81", intraEUCode: "41", inputCode: "66", payableCode: "83"}

// deVATAdvance is the German advance VAT return (Umsatzsteuer-Voranmeldung).
type deVATAdvance struct {
	aggregates repository.PeriodAggregationRepository
}

func NewDEVATAdvanceStrategy(aggregates repository.PeriodAggregationRepository) ReportStrategy {
	return &deVATAdvance{aggregates: aggregates}
}

func (s *deVATAdvance) Type() model.ReportType { return model.ReportTypeVATAdvance }
func (s *deVATAdvance) CountryCode() string    { return countryDE }

func (s *deVATAdvance) IsRequired(sc StrategyContext) bool {
	return sc.Profile.VATApplicable() && sc.MatchesFilingCadence()
}

func (s *deVATAdvance) Generate(ctx context.Context, sc StrategyContext) (*GeneratedReport, error) {
	totals, err := loadVATTotals(ctx, s.aggregates, sc)
	if err != nil {
		return nil, err
	}
	return buildVATReport(totals, sc, deVATForm), nil
}

// DueDate is the 10th of the month after the period.
func (s *deVATAdvance) DueDate(periodEnd time.Time, _ StrategyContext) time.Time {
	return dayOfFollowingMonth(periodEnd, 1, 10)
}

// deEUSalesList is the recapitulative statement of intra-community supplies
// (Zusammenfassende Meldung). It carries no payable amount.
type deEUSalesList struct {
	aggregates repository.PeriodAggregationRepository
}

func NewDEEUSalesListStrategy(aggregates repository.PeriodAggregationRepository) ReportStrategy {
	return &deEUSalesList{aggregates: aggregates}
}

func (s *deEUSalesList) Type() model.ReportType { return model.ReportTypeEUSalesList }
func (s *deEUSalesList) CountryCode() string    { return countryDE }

// IsRequired follows the advance return cadence. Annual VAT filers still
// report intra-community supplies quarterly.
func (s *deEUSalesList) IsRequired(sc StrategyContext) bool {
	if !sc.Profile.HasCrossBorderSales {
		return false
	}
	if sc.Profile.FilingFrequency == model.FilingAnnual {
		return period.IsQuarter(sc.PeriodStart, sc.PeriodEnd)
	}
	return sc.MatchesFilingCadence()
}

func (s *deEUSalesList) Generate(ctx context.Context, sc StrategyContext) (*GeneratedReport, error) {
	supplies, err := s.aggregates.IntraEUSupplies(ctx, sc.WorkspaceID, sc.PeriodStart, sc.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("intra-EU supplies: %w", err)
	}

	var (
		lines []model.TaxReportLine
		total int64
		count int
	)
	for _, supply := range supplies {
		lines = append(lines, model.TaxReportLine{
			Section:  "supplies",
			Code:     supply.CountryCode,
			Label:    fmt.Sprintf("Intra-community supplies to %s", supply.CountryCode),
			NetCents: supply.NetCents,
		})
		total += supply.NetCents
		count += supply.DocumentCount
	}
	numberLines(lines)

	meta := model.ReportMeta{Computation: &model.ComputationMeta{
		AccountingMethod:   sc.Profile.AccountingMethod,
		IntraEUNetCents:    total,
		SalesDocumentCount: count,
		ComputedAt:         sc.Now,
	}}
	if len(supplies) == 0 {
		meta = meta.WithIssue(model.MetaIssue{
			Code:    model.IssueNoIntraEUSupplies,
			Message: "No intra-community supplies in this period",
		})
	}
	return &GeneratedReport{AmountDueCents: 0, Meta: meta, Lines: lines}, nil
}

// DueDate is the 25th of the month after the period.
func (s *deEUSalesList) DueDate(periodEnd time.Time, _ StrategyContext) time.Time {
	return dayOfFollowingMonth(periodEnd, 1, 25)
}

// deAnnualVAT is the annual VAT return (Umsatzsteuererklärung).
type deAnnualVAT struct {
	aggregates repository.PeriodAggregationRepository
}

func NewDEAnnualVATStrategy(aggregates repository.PeriodAggregationRepository) ReportStrategy {
	return &deAnnualVAT{aggregates: aggregates}
}

func (s *deAnnualVAT) Type() model.ReportType { return model.ReportTypeAnnualVAT }
func (s *deAnnualVAT) CountryCode() string    { return countryDE }

func (s *deAnnualVAT) IsRequired(sc StrategyContext) bool {
	return sc.Profile.VATApplicable() && sc.IsFullYear()
}

func (s *deAnnualVAT) Generate(ctx context.Context, sc StrategyContext) (*GeneratedReport, error) {
	totals, err := loadVATTotals(ctx, s.aggregates, sc)
	if err != nil {
		return nil, err
	}
	return buildVATReport(totals, sc, deVATForm), nil
}

func (s *deAnnualVAT) DueDate(periodEnd time.Time, sc StrategyContext) time.Time {
	return deAnnualDueDate(periodEnd, sc.Profile.UsesTaxAdvisor)
}

// deIncomeTax is the income tax return. Amounts are assessed by the tax office,
// so the report carries a preparation checklist instead of a payable.
type deIncomeTax struct {
	aggregates repository.PeriodAggregationRepository
}

func NewDEIncomeTaxStrategy(aggregates repository.PeriodAggregationRepository) ReportStrategy {
	return &deIncomeTax{aggregates: aggregates}
}

func (s *deIncomeTax) Type() model.ReportType { return model.ReportTypeIncomeTax }
func (s *deIncomeTax) CountryCode() string    { return countryDE }

// IsRequired holds for any period longer than 360 days, so fiscal years that
// do not start in January count too.
func (s *deIncomeTax) IsRequired(sc StrategyContext) bool {
	return sc.IsFullYear()
}

func (s *deIncomeTax) Generate(ctx context.Context, sc StrategyContext) (*GeneratedReport, error) {
	sales, err := s.aggregates.SalesTotals(ctx, sc.WorkspaceID, sc.PeriodStart, sc.PeriodEnd, sc.Profile.AccountingMethod)
	if err != nil {
		return nil, fmt.Errorf("sales totals: %w", err)
	}
	purchases, err := s.aggregates.PurchaseTotals(ctx, sc.WorkspaceID, sc.PeriodStart, sc.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("purchase totals: %w", err)
	}

	lines := []model.TaxReportLine{
		{Section: "profit", Label: "Operating income", NetCents: sales.NetCents},
		{Section: "profit", Label: "Operating expenses", NetCents: purchases.NetCents},
		{Section: "profit", Label: "Estimated profit", NetCents: sales.NetCents - purchases.NetCents},
	}
	numberLines(lines)

	checklist := []model.ChecklistItem{
		{Key: "profit_statement", Label: "Prepare the profit statement (EÜR)"},
		{Key: "receipts", Label: "Collect receipts for deductible expenses"},
	}
	if sc.Profile.VATApplicable() {
		checklist = append(checklist, model.ChecklistItem{Key: "annual_vat", Label: "File the annual VAT return"})
	}
	if sc.Profile.HasEmployees {
		checklist = append(checklist, model.ChecklistItem{Key: "payroll", Label: "Reconcile payroll tax certificates"})
	}
	if sc.Profile.UsesTaxAdvisor {
		checklist = append(checklist, model.ChecklistItem{Key: "advisor_handover", Label: "Hand documents to the tax advisor"})
	}

	meta := model.ReportMeta{
		Computation: &model.ComputationMeta{
			AccountingMethod:   sc.Profile.AccountingMethod,
			SalesNetCents:      sales.NetCents,
			SalesTaxCents:      sales.TaxCents,
			PurchaseNetCents:   purchases.NetCents,
			PurchaseTaxCents:   purchases.TaxCents,
			SalesDocumentCount: sales.DocumentCount,
			PurchaseCount:      purchases.Count,
			ComputedAt:         sc.Now,
		},
		Checklist: checklist,
	}
	return &GeneratedReport{AmountDueCents: 0, Meta: meta, Lines: lines}, nil
}

func (s *deIncomeTax) DueDate(periodEnd time.Time, sc StrategyContext) time.Time {
	return deAnnualDueDate(periodEnd, sc.Profile.UsesTaxAdvisor)
}

// deAnnualDueDate is July 31 of the next year, or February 28 two years out
// when an advisor files.
func deAnnualDueDate(periodEnd time.Time, advisor bool) time.Time {
	year := period.LastDay(periodEnd).Year()
	if advisor {
		return time.Date(year+2, time.February, 28, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(year+1, time.July, 31, 0, 0, 0, 0, time.UTC)
}

// dayOfFollowingMonth returns day of the month months after the period's last month.
func dayOfFollowingMonth(periodEnd time.Time, months, day int) time.Time {
	last := period.LastDay(periodEnd)
	return time.Date(last.Year(), last.Month()+time.Month(months), day, 0, 0, 0, 0, time.UTC)
}
