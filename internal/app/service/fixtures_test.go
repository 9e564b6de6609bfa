package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/internal/app/repository"
	"github.com/ikkim/taxfiling-backend/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type serviceFixture struct {
	db         *gorm.DB
	now        time.Time
	workspace  *model.Workspace
	docs       repository.DocumentRepository
	reportRepo repository.TaxReportRepository
	registry   *StrategyRegistry
	profiles   TaxProfileService
	generation ReportGenerationService
	reports    TaxReportService
	snapshots  TaxSnapshotService
	summary    TaxSummaryService
	cache      *memorySummaryCache
	events     *recordingPublisher
	storage    *fakeArtifactStorage
}

func setupServiceFixture(t *testing.T, now time.Time) *serviceFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	f := &serviceFixture{
		db:      testDB,
		now:     now.UTC(),
		cache:   newMemorySummaryCache(),
		events:  &recordingPublisher{},
		storage: &fakeArtifactStorage{},
	}
	clock := Clock(func() time.Time { return f.now })

	f.workspace = &model.Workspace{Name: "Muster Design", LegalEntityKind: model.LegalEntityPersonal}
	require.NoError(t, testDB.Create(f.workspace).Error)

	aggregates := repository.NewPeriodAggregationRepository(testDB)
	f.docs = repository.NewDocumentRepository(testDB)
	f.reportRepo = repository.NewTaxReportRepository(testDB)
	f.registry, err = NewStrategyRegistry(DefaultStrategies(aggregates)...)
	require.NoError(t, err)

	f.profiles = NewTaxProfileService(repository.NewTaxProfileRepository(testDB), repository.NewTransactionManager(testDB), f.cache, clock)
	f.generation = NewReportGenerationService(f.registry, f.profiles, f.reportRepo, f.cache, f.events, clock)
	f.reports = NewTaxReportService(f.reportRepo, f.profiles, f.registry, f.generation, f.storage, f.cache, f.events, clock)
	f.snapshots = NewTaxSnapshotService(repository.NewTaxSnapshotRepository(testDB), f.docs, f.profiles, clock)
	f.summary = NewTaxSummaryService(repository.NewWorkspaceRepository(testDB), f.profiles, f.reportRepo, aggregates, f.cache, clock)
	return f
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (f *serviceFixture) createProfile(t *testing.T, mutate func(*UpsertProfileInput)) *model.TaxProfile {
	from := date(2020, time.January, 1)
	input := UpsertProfileInput{
		CountryCode:      "DE",
		Regime:           model.RegimeStandardVAT,
		VATEnabled:       true,
		AccountingMethod: model.AccountingAccrual,
		FilingFrequency:  model.FilingQuarterly,
		Currency:         "EUR",
		EffectiveFrom:    &from,
	}
	if mutate != nil {
		mutate(&input)
	}
	profile, err := f.profiles.Upsert(context.Background(), f.workspace.ID, input)
	require.NoError(t, err)
	return profile
}

func (f *serviceFixture) createInvoice(t *testing.T, issued time.Time, net, tax int64) *model.Invoice {
	invoice := &model.Invoice{
		WorkspaceID: f.workspace.ID,
		Number:      "RE-" + issued.Format("20060102"),
		Status:      model.DocumentStatusFinalized,
		IssueDate:   issued,
		NetCents:    net,
		TaxCents:    tax,
		Currency:    "EUR",
	}
	require.NoError(t, f.docs.CreateInvoice(context.Background(), invoice))
	return invoice
}

func (f *serviceFixture) createExpense(t *testing.T, on time.Time, net, tax int64) *model.Expense {
	expense := &model.Expense{
		WorkspaceID:     f.workspace.ID,
		Status:          model.DocumentStatusFinalized,
		TransactionDate: on,
		NetCents:        net,
		TaxCents:        tax,
		Currency:        "EUR",
	}
	require.NoError(t, f.docs.CreateExpense(context.Background(), expense))
	return expense
}

func (f *serviceFixture) generateQuarter(t *testing.T, start time.Time) *GenerationResult {
	result, err := f.generation.Execute(context.Background(), GenerateReportsInput{
		WorkspaceID: f.workspace.ID,
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 3, 0),
	})
	require.NoError(t, err)
	return result
}

func (f *serviceFixture) reportOf(t *testing.T, result *GenerationResult, reportType model.ReportType) *model.TaxReport {
	for _, r := range result.Reports {
		if r.Type == reportType {
			return r.Report
		}
	}
	t.Fatalf("no %s report in generation result", reportType)
	return nil
}

type memorySummaryCache struct {
	mu          sync.Mutex
	entries     map[uint][]byte
	invalidated []uint
}

func newMemorySummaryCache() *memorySummaryCache {
	return &memorySummaryCache{entries: make(map[uint][]byte)}
}

func (c *memorySummaryCache) Get(_ context.Context, workspaceID uint, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[workspaceID]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memorySummaryCache) Set(_ context.Context, workspaceID uint, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[workspaceID] = raw
	return nil
}

func (c *memorySummaryCache) Invalidate(_ context.Context, workspaceID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, workspaceID)
	c.invalidated = append(c.invalidated, workspaceID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ReportEvent
}

func (p *recordingPublisher) Publish(event model.ReportEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []model.ReportEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.ReportEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeArtifactStorage struct {
	uploads   []string
	downloads []string
	fail      bool
}

func (s *fakeArtifactStorage) PresignUpload(_ context.Context, key, _ string) (string, time.Time, error) {
	if s.fail {
		return "", time.Time{}, errors.New("s3 unavailable")
	}
	s.uploads = append(s.uploads, key)
	return "https://bucket.example/" + key + "?X-Amz-Signature=put", date(2030, time.January, 1), nil
}

func (s *fakeArtifactStorage) PresignDownload(_ context.Context, key string) (string, time.Time, error) {
	if s.fail {
		return "", time.Time{}, errors.New("s3 unavailable")
	}
	s.downloads = append(s.downloads, key)
	return "https://bucket.example/" + key + "?X-Amz-Signature=get", date(2030, time.January, 1), nil
}

// stubAggregates returns fixed totals for strategy unit tests.
type stubAggregates struct {
	sales     model.SalesTotals
	purchases model.PurchaseTotals
	supplies  []model.IntraEUSupply
	err       error
}

func (s *stubAggregates) SalesTotals(context.Context, uint, time.Time, time.Time, model.AccountingMethod) (model.SalesTotals, error) {
	return s.sales, s.err
}

func (s *stubAggregates) PurchaseTotals(context.Context, uint, time.Time, time.Time) (model.PurchaseTotals, error) {
	return s.purchases, s.err
}

func (s *stubAggregates) IntraEUSupplies(context.Context, uint, time.Time, time.Time) ([]model.IntraEUSupply, error) {
	return s.supplies, s.err
}
