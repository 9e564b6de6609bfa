package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/ikkim/taxfiling-backend/config"
	"github.com/ikkim/taxfiling-backend/internal/app/service"
	"github.com/ikkim/taxfiling-backend/pkg/logger"
	"github.com/ikkim/taxfiling-backend/pkg/period"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// WorkspaceSource lists the workspaces that have a tax profile active at an instant.
type WorkspaceSource interface {
	ListWorkspaceIDsActiveAt(ctx context.Context, at time.Time) ([]uint, error)
}

// TaxReportScheduler 월/분기 마감 시 신고서 자동 생성 스케줄러
type TaxReportScheduler struct {
	cron        *cron.Cron
	spec        string
	concurrency int
	workspaces  WorkspaceSource
	generation  service.ReportGenerationService
	clock       service.Clock
	timeout     time.Duration
}

// RunSummary describes one scheduled pass.
type RunSummary struct {
	Periods    []string
	Workspaces int
	Generated  int
	Failed     int
}

func NewTaxReportScheduler(
	cfg config.SchedulerConfig,
	workspaces WorkspaceSource,
	generation service.ReportGenerationService,
	clock service.Clock,
) *TaxReportScheduler {
	if clock == nil {
		clock = service.SystemClock
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &TaxReportScheduler{
		cron:        cron.New(cron.WithLocation(time.UTC)),
		spec:        cfg.Spec,
		concurrency: concurrency,
		workspaces:  workspaces,
		generation:  generation,
		clock:       clock,
		timeout:     30 * time.Minute,
	}
}

// Start 스케줄러 시작
func (s *TaxReportScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		logger.Info("Starting scheduled tax report generation", nil)
		summary, err := s.RunOnce(ctx, s.clock())
		if err != nil {
			logger.Error("Scheduled tax report generation failed", err)
			return
		}
		logger.Info("Scheduled tax report generation finished", map[string]interface{}{
			"periods":    summary.Periods,
			"workspaces": summary.Workspaces,
			"generated":  summary.Generated,
			"failed":     summary.Failed,
		})
	})
	if err != nil {
		logger.Error("Failed to add cron job for tax report generation", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Tax report scheduler started", map[string]interface{}{
		"spec":        s.spec,
		"concurrency": s.concurrency,
	})
	return nil
}

// Stop 스케줄러 중지. Waits for a running pass to finish.
func (s *TaxReportScheduler) Stop() {
	logger.Info("Stopping tax report scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Tax report scheduler stopped", nil)
}

// DuePeriods returns the periods closed by a run at now: the previous month,
// the previous quarter when now falls in a quarter's first month, and in
// January also the previous calendar year. Profiles pick what they file.
func DuePeriods(now time.Time) []period.VatPeriod {
	now = now.UTC()
	periods := []period.VatPeriod{period.Month(now.AddDate(0, 0, -now.Day()))}
	current := period.ResolveQuarter(now)
	if now.Month() == current.Start.Month() {
		periods = append(periods, current.Previous())
	}
	if now.Month() == time.January {
		periods = append(periods, period.FullYear(now.Year()-1))
	}
	return periods
}

// RunOnce generates every due period for every workspace active at the period's
// last second. A failing workspace is logged and counted; the others continue.
func (s *TaxReportScheduler) RunOnce(ctx context.Context, now time.Time) (*RunSummary, error) {
	summary := &RunSummary{}
	var mu sync.Mutex
	seen := make(map[uint]struct{})

	for _, p := range DuePeriods(now) {
		summary.Periods = append(summary.Periods, p.Label)

		ids, err := s.workspaces.ListWorkspaceIDsActiveAt(ctx, p.End.Add(-time.Second))
		if err != nil {
			return summary, err
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for _, workspaceID := range ids {
			workspaceID := workspaceID
			p := p
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				result, err := s.generation.Execute(gctx, service.GenerateReportsInput{
					WorkspaceID: workspaceID,
					PeriodStart: p.Start,
					PeriodEnd:   p.End,
					PeriodLabel: p.Label,
				})

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					summary.Failed++
					logger.Error("Scheduled generation failed for workspace", err, map[string]interface{}{
						"workspace_id": workspaceID,
						"period_label": p.Label,
					})
					return nil
				}
				summary.Generated += len(result.Reports)
				summary.Failed += len(result.Failures)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return summary, err
		}
	}

	summary.Workspaces = len(seen)
	return summary, nil
}
