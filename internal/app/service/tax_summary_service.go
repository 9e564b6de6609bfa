package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/internal/app/repository"
	"github.com/ikkim/taxfiling-backend/pkg/logger"
	"github.com/ikkim/taxfiling-backend/pkg/money"
	"github.com/ikkim/taxfiling-backend/pkg/period"
	"gorm.io/gorm"
)

type ConfigurationHealth string

const (
	HealthReady           ConfigurationHealth = "READY"
	HealthMissingSettings ConfigurationHealth = "MISSING_SETTINGS"
	HealthNotApplicable   ConfigurationHealth = "NOT_APPLICABLE"
)

// TaxSummary is the dashboard estimate of what the workspace owes next.
type TaxSummary struct {
	WorkspaceID      uint                   `json:"workspace_id"`
	EntityKind       model.LegalEntityKind  `json:"entity_kind"`
	Health           ConfigurationHealth    `json:"health"`
	Warnings         []string               `json:"warnings"`
	Period           *period.VatPeriod      `json:"period,omitempty"`
	ReportID         *uint                  `json:"report_id,omitempty"`
	ReportStatus     model.ReportStatus     `json:"report_status,omitempty"`
	DueDate          *time.Time             `json:"due_date,omitempty"`
	AccountingMethod model.AccountingMethod `json:"accounting_method,omitempty"`
	SalesTaxCents    int64                  `json:"sales_tax_cents"`
	PurchaseTaxCents int64                  `json:"purchase_tax_cents"`
	PayableCents     int64                  `json:"payable_cents"` // 음수 = 환급 예정
	Currency         string                 `json:"currency,omitempty"`
	GeneratedAt      time.Time              `json:"generated_at"`
}

// SummaryStrategy computes the summary for one kind of legal entity.
type SummaryStrategy interface {
	Summarize(ctx context.Context, workspaceID uint, now time.Time) (*TaxSummary, error)
}

type TaxSummaryService interface {
	GetSummary(ctx context.Context, workspaceID uint) (*TaxSummary, error)
}

type taxSummaryService struct {
	workspaceRepo repository.WorkspaceRepository
	strategies    map[model.LegalEntityKind]SummaryStrategy
	cache         SummaryCache
	clock         Clock
}

func NewTaxSummaryService(
	workspaceRepo repository.WorkspaceRepository,
	profiles TaxProfileService,
	reportRepo repository.TaxReportRepository,
	aggregates repository.PeriodAggregationRepository,
	cache SummaryCache,
	clock Clock,
) TaxSummaryService {
	if cache == nil {
		cache = nopSummaryCache{}
	}
	return &taxSummaryService{
		workspaceRepo: workspaceRepo,
		strategies: map[model.LegalEntityKind]SummaryStrategy{
			model.LegalEntityPersonal: &personalSummaryStrategy{profiles: profiles, reportRepo: reportRepo, aggregates: aggregates},
			model.LegalEntityCompany:  companySummaryStrategy{},
		},
		cache: cache,
		clock: clock,
	}
}

func (s *taxSummaryService) GetSummary(ctx context.Context, workspaceID uint) (*TaxSummary, error) {
	var cached TaxSummary
	hit, err := s.cache.Get(ctx, workspaceID, &cached)
	if err != nil {
		logger.Warn("Summary cache read failed", map[string]interface{}{
			"workspace_id": workspaceID,
			"error":        err.Error(),
		})
	}
	if hit {
		return &cached, nil
	}

	kind, err := s.entityKind(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	strategy, ok := s.strategies[kind]
	if !ok {
		strategy = s.strategies[model.LegalEntityPersonal]
	}

	summary, err := strategy.Summarize(ctx, workspaceID, s.clock.now())
	if err != nil {
		logger.Error("Failed to compute tax summary", err, map[string]interface{}{
			"workspace_id": workspaceID,
			"entity_kind":  kind,
		})
		return nil, err
	}
	summary.EntityKind = kind

	if err := s.cache.Set(ctx, workspaceID, summary); err != nil {
		logger.Warn("Summary cache write failed", map[string]interface{}{
			"workspace_id": workspaceID,
			"error":        err.Error(),
		})
	}
	return summary, nil
}

// entityKind defaults to PERSONAL for workspaces this service has no record of.
func (s *taxSummaryService) entityKind(ctx context.Context, workspaceID uint) (model.LegalEntityKind, error) {
	workspace, err := s.workspaceRepo.FindByID(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.LegalEntityPersonal, nil
		}
		return "", err
	}
	if workspace.LegalEntityKind == "" {
		return model.LegalEntityPersonal, nil
	}
	return workspace.LegalEntityKind, nil
}

type personalSummaryStrategy struct {
	profiles   TaxProfileService
	reportRepo repository.TaxReportRepository
	aggregates repository.PeriodAggregationRepository
}

// Summarize estimates VAT for the next pending advance return, or for the
// current quarter when none has been generated yet.
func (p *personalSummaryStrategy) Summarize(ctx context.Context, workspaceID uint, now time.Time) (*TaxSummary, error) {
	summary := &TaxSummary{
		WorkspaceID: workspaceID,
		Warnings:    []string{},
		GeneratedAt: now,
	}

	profile, err := p.profiles.GetActive(ctx, workspaceID, now)
	if errors.Is(err, ErrProfileMissing) {
		summary.Health = HealthMissingSettings
		summary.Warnings = append(summary.Warnings,
			"Tax settings are missing. Add a tax profile to see VAT estimates.")
		return summary, nil
	}
	if err != nil {
		return nil, err
	}

	summary.Currency = profile.Currency
	summary.AccountingMethod = profile.AccountingMethod
	if !profile.VATApplicable() {
		summary.Health = HealthNotApplicable
		if profile.Regime == model.RegimeSmallBusiness {
			summary.Warnings = append(summary.Warnings,
				"VAT does not apply under the small business regime. No VAT returns are due.")
		} else {
			summary.Warnings = append(summary.Warnings,
				"VAT is disabled for this workspace. No VAT returns are due.")
		}
		return summary, nil
	}
	summary.Health = HealthReady

	current := period.ResolveQuarter(now)
	target := &current
	report, err := p.reportRepo.FindNextPending(ctx, workspaceID, model.ReportTypeVATAdvance)
	switch {
	case err == nil:
		target = &period.VatPeriod{
			Key:   period.ResolveQuarter(report.PeriodStart).Key,
			Label: report.PeriodLabel,
			Start: report.PeriodStart.UTC(),
			End:   report.PeriodEnd.UTC(),
		}
		id, due := report.ID, report.DueDate
		summary.ReportID = &id
		summary.DueDate = &due
		summary.ReportStatus = model.DisplayStatus(report.Status, report.DueDate, now)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	summary.Period = target

	sales, err := p.aggregates.SalesTotals(ctx, workspaceID, target.Start, target.End, profile.AccountingMethod)
	if err != nil {
		return nil, err
	}
	purchases, err := p.aggregates.PurchaseTotals(ctx, workspaceID, target.Start, target.End)
	if err != nil {
		return nil, err
	}

	summary.SalesTaxCents = sales.TaxCents
	summary.PurchaseTaxCents = purchases.TaxCents
	summary.PayableCents = sales.TaxCents - purchases.TaxCents

	if summary.ReportStatus == model.ReportStatusOverdue {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("The VAT return for %s is overdue.", target.Label))
	}
	if summary.PayableCents < 0 {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("A VAT refund of %s is expected.", money.Format(-summary.PayableCents)))
	}
	return summary, nil
}

// companySummaryStrategy is not implemented for companies yet and reports zeros.
type companySummaryStrategy struct{}

func (companySummaryStrategy) Summarize(_ context.Context, workspaceID uint, now time.Time) (*TaxSummary, error) {
	return &TaxSummary{
		WorkspaceID: workspaceID,
		Health:      HealthNotApplicable,
		Warnings:    []string{"Tax estimates for companies are not available yet."},
		GeneratedAt: now,
	}, nil
}
