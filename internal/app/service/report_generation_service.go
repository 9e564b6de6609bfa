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
)

var ErrInvalidPeriodRange = errors.New("period end must be after period start")

const (
	WarningProfileMissing = "PROFILE_MISSING"
	WarningNoStrategies   = "NO_STRATEGIES"
)

type GenerateReportsInput struct {
	WorkspaceID uint
	PeriodStart time.Time
	PeriodEnd   time.Time // exclusive
	PeriodLabel string
	DryRun      bool
}

type GeneratedReportResult struct {
	Type    model.ReportType `json:"type"`
	Created bool             `json:"created"`
	Report  *model.TaxReport `json:"report"`
}

type StrategyFailure struct {
	Type  model.ReportType `json:"type"`
	Error string           `json:"error"`
}

type GenerationResult struct {
	WorkspaceID uint                    `json:"workspace_id"`
	PeriodLabel string                  `json:"period_label"`
	PeriodStart time.Time               `json:"period_start"`
	PeriodEnd   time.Time               `json:"period_end"`
	DryRun      bool                    `json:"dry_run"`
	Reports     []GeneratedReportResult `json:"reports"`
	Skipped     []model.ReportType      `json:"skipped"`
	Failures    []StrategyFailure       `json:"failures"`
	Warnings    []string                `json:"warnings"`
}

type ReportGenerationService interface {
	Execute(ctx context.Context, input GenerateReportsInput) (*GenerationResult, error)
	Regenerate(ctx context.Context, report *model.TaxReport) (*model.TaxReport, error)
}

type reportGenerationService struct {
	registry   *StrategyRegistry
	profiles   TaxProfileService
	reportRepo repository.TaxReportRepository
	cache      SummaryCache
	events     EventPublisher
	clock      Clock
}

func NewReportGenerationService(
	registry *StrategyRegistry,
	profiles TaxProfileService,
	reportRepo repository.TaxReportRepository,
	cache SummaryCache,
	events EventPublisher,
	clock Clock,
) ReportGenerationService {
	if cache == nil {
		cache = nopSummaryCache{}
	}
	if events == nil {
		events = nopEventPublisher{}
	}
	return &reportGenerationService{
		registry:   registry,
		profiles:   profiles,
		reportRepo: reportRepo,
		cache:      cache,
		events:     events,
		clock:      clock,
	}
}

// Execute runs every strategy of the workspace's jurisdiction that applies to
// the period. A failing strategy is recorded and does not stop the others.
func (s *reportGenerationService) Execute(ctx context.Context, input GenerateReportsInput) (*GenerationResult, error) {
	start, end := input.PeriodStart.UTC(), input.PeriodEnd.UTC()
	if !end.After(start) {
		return nil, ErrInvalidPeriodRange
	}
	label := input.PeriodLabel
	if label == "" {
		label = defaultPeriodLabel(start, end)
	}

	now := s.clock.now()
	result := &GenerationResult{
		WorkspaceID: input.WorkspaceID,
		PeriodLabel: label,
		PeriodStart: start,
		PeriodEnd:   end,
		DryRun:      input.DryRun,
		Reports:     []GeneratedReportResult{},
		Skipped:     []model.ReportType{},
		Failures:    []StrategyFailure{},
		Warnings:    []string{},
	}

	log := logger.WithContext(map[string]interface{}{
		"workspace_id": input.WorkspaceID,
		"period_label": label,
		"period_start": start,
		"period_end":   end,
		"dry_run":      input.DryRun,
	})
	log.Info("Generating tax reports for period")

	profile, err := s.profiles.GetActive(ctx, input.WorkspaceID, lastInstant(end))
	if errors.Is(err, ErrProfileMissing) {
		log.Warn("No active tax profile at period end, skipping generation")
		result.Warnings = append(result.Warnings, WarningProfileMissing)
		return result, nil
	}
	if err != nil {
		log.Error("Failed to resolve tax profile", err)
		return nil, err
	}

	strategies := s.registry.ForCountry(profile.CountryCode)
	if len(strategies) == 0 {
		log.Warn("No report strategies registered for country", map[string]interface{}{
			"country": profile.CountryCode,
		})
		result.Warnings = append(result.Warnings, WarningNoStrategies)
		return result, nil
	}

	sc := StrategyContext{
		WorkspaceID: input.WorkspaceID,
		Profile:     profile,
		PeriodStart: start,
		PeriodEnd:   end,
		PeriodLabel: label,
		Now:         now,
	}

	for _, strategy := range strategies {
		if !strategy.IsRequired(sc) {
			result.Skipped = append(result.Skipped, strategy.Type())
			continue
		}

		report, created, err := s.run(ctx, strategy, sc, input.DryRun)
		if err != nil {
			log.Error("Report strategy failed", err, map[string]interface{}{
				"report_type": strategy.Type(),
				"country":     strategy.CountryCode(),
			})
			result.Failures = append(result.Failures, StrategyFailure{Type: strategy.Type(), Error: err.Error()})
			continue
		}
		result.Reports = append(result.Reports, GeneratedReportResult{
			Type:    strategy.Type(),
			Created: created,
			Report:  report.WithDisplayStatus(now),
		})
	}

	if !input.DryRun && len(result.Reports) > 0 {
		s.afterWrite(ctx, input.WorkspaceID, result.Reports, now)
	}

	log.Info("Tax report generation finished", map[string]interface{}{
		"generated": len(result.Reports),
		"skipped":   len(result.Skipped),
		"failed":    len(result.Failures),
	})
	return result, nil
}

// Regenerate re-runs the strategy that owns report with the profile active at
// its period end and applies the same refresh rules as generation.
func (s *reportGenerationService) Regenerate(ctx context.Context, report *model.TaxReport) (*model.TaxReport, error) {
	profile, err := s.profiles.GetActive(ctx, report.WorkspaceID, lastInstant(report.PeriodEnd))
	if err != nil {
		return nil, err
	}
	strategy, err := s.registry.Lookup(report.Type, profile.CountryCode)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	sc := StrategyContext{
		WorkspaceID: report.WorkspaceID,
		Profile:     profile,
		PeriodStart: report.PeriodStart.UTC(),
		PeriodEnd:   report.PeriodEnd.UTC(),
		PeriodLabel: report.PeriodLabel,
		Now:         now,
	}
	stored, _, err := s.run(ctx, strategy, sc, false)
	if err != nil {
		logger.Error("Failed to recalculate tax report", err, map[string]interface{}{
			"workspace_id": report.WorkspaceID,
			"report_id":    report.ID,
			"report_type":  report.Type,
		})
		return nil, err
	}

	s.afterWrite(ctx, report.WorkspaceID, []GeneratedReportResult{{Type: stored.Type, Report: stored}}, now)
	return stored.WithDisplayStatus(now), nil
}

func (s *reportGenerationService) run(ctx context.Context, strategy ReportStrategy, sc StrategyContext, dryRun bool) (*model.TaxReport, bool, error) {
	generated, err := strategy.Generate(ctx, sc)
	if err != nil {
		return nil, false, err
	}

	candidate := &model.TaxReport{
		WorkspaceID:          sc.WorkspaceID,
		Type:                 strategy.Type(),
		Group:                model.GroupFor(strategy.Type()),
		PeriodLabel:          sc.PeriodLabel,
		PeriodStart:          sc.PeriodStart,
		PeriodEnd:            sc.PeriodEnd,
		DueDate:              strategy.DueDate(sc.PeriodEnd, sc),
		Status:               initialStatus(sc.PeriodEnd, sc.Now),
		EstimatedAmountCents: generated.AmountDueCents,
		Currency:             sc.Profile.Currency,
		Meta:                 generated.Meta,
		Lines:                generated.Lines,
	}
	if dryRun {
		return candidate, false, nil
	}

	stored, created, err := s.reportRepo.UpsertByPeriod(ctx, candidate, refreshReport(sc.Now))
	if err != nil {
		return nil, false, fmt.Errorf("persist %s: %w", strategy.Type(), err)
	}
	return stored, created, nil
}

func (s *reportGenerationService) afterWrite(ctx context.Context, workspaceID uint, reports []GeneratedReportResult, now time.Time) {
	if err := s.cache.Invalidate(ctx, workspaceID); err != nil {
		logger.Warn("Failed to invalidate summary cache", map[string]interface{}{
			"workspace_id": workspaceID,
			"error":        err.Error(),
		})
	}
	for _, r := range reports {
		s.events.Publish(model.ReportEvent{
			Type:        model.ReportEventGenerated,
			WorkspaceID: workspaceID,
			ReportID:    r.Report.ID,
			ReportType:  r.Report.Type,
			PeriodLabel: r.Report.PeriodLabel,
			Status:      r.Report.Status,
			OccurredAt:  now,
		})
	}
}

// refreshReport is the merge rule for an existing report. Pending reports take
// the new computation in full. Filed reports keep their amounts and lines; only
// the computation meta moves, with AMOUNT_DRIFT when the filed amount no
// longer matches.
func refreshReport(now time.Time) repository.MergeFunc {
	return func(existing, candidate *model.TaxReport) bool {
		if existing.Status.IsPending() {
			existing.Group = candidate.Group
			existing.PeriodLabel = candidate.PeriodLabel
			existing.DueDate = candidate.DueDate
			existing.EstimatedAmountCents = candidate.EstimatedAmountCents
			existing.Currency = candidate.Currency
			existing.Meta.Computation = candidate.Meta.Computation
			existing.Meta.Checklist = candidate.Meta.Checklist
			existing.Meta.Issues = candidate.Meta.Issues
			if existing.Status == model.ReportStatusUpcoming && !now.Before(existing.PeriodEnd) {
				existing.Status = model.ReportStatusOpen
			}
			existing.Lines = candidate.Lines
			return true
		}

		existing.Meta.Computation = candidate.Meta.Computation
		filed := existing.EstimatedAmountCents
		if existing.FinalAmountCents != nil {
			filed = *existing.FinalAmountCents
		}
		if filed != candidate.EstimatedAmountCents {
			existing.Meta = existing.Meta.WithIssue(model.MetaIssue{
				Code: model.IssueAmountDrift,
				Message: fmt.Sprintf("Recomputed amount %s differs from filed amount %s",
					money.Format(candidate.EstimatedAmountCents), money.Format(filed)),
			})
		} else {
			existing.Meta = existing.Meta.WithoutIssue(model.IssueAmountDrift)
		}
		return false
	}
}

// initialStatus is UPCOMING while the period is still running.
func initialStatus(periodEnd, now time.Time) model.ReportStatus {
	if now.Before(periodEnd) {
		return model.ReportStatusUpcoming
	}
	return model.ReportStatusOpen
}

// lastInstant is the last second inside a period ending at end. Profiles are
// resolved there so a window closing exactly at end still governs the period.
func lastInstant(end time.Time) time.Time {
	return end.Add(-time.Second)
}

func defaultPeriodLabel(start, end time.Time) string {
	q := period.ResolveQuarter(start)
	if q.Start.Equal(start) && q.End.Equal(end) {
		return q.Label
	}
	y := period.FullYear(start.Year())
	if y.Start.Equal(start) && y.End.Equal(end) {
		return y.Label
	}
	m := period.Month(start)
	if m.Start.Equal(start) && m.End.Equal(end) {
		return m.Label
	}
	return fmt.Sprintf("%s/%s", start.Format("2006-01-02"), period.LastDay(end).Format("2006-01-02"))
}
