package repository

import (
	"context"
	"testing"
	"time"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/internal/db"
	apperrors "github.com/ikkim/taxfiling-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTaxReportTest(t *testing.T) (*gorm.DB, TaxReportRepository, *model.Workspace) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	workspace := &model.Workspace{Name: "Freelance Studio", LegalEntityKind: model.LegalEntityPersonal}
	require.NoError(t, testDB.Create(workspace).Error)

	return testDB, NewTaxReportRepository(testDB), workspace
}

func newQ1Report(workspaceID uint) *model.TaxReport {
	return &model.TaxReport{
		WorkspaceID:          workspaceID,
		Type:                 model.ReportTypeVATAdvance,
		Group:                model.ReportGroupAdvanceVAT,
		PeriodLabel:          "Q1 2025",
		PeriodStart:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:            time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		DueDate:              time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		Status:               model.ReportStatusOpen,
		EstimatedAmountCents: 1900,
		Currency:             "EUR",
		Lines: []model.TaxReportLine{
			{Position: 1, Section: "sales", Label: "Taxable sales 19%", NetCents: 10000, TaxCents: 1900},
		},
	}
}

func TestTaxReportRepository_CreateAndFind(t *testing.T) {
	testDB, repo, workspace := setupTaxReportTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	report := newQ1Report(workspace.ID)
	report.Meta = model.ReportMeta{Issues: []model.MetaIssue{{Code: model.IssueNoActivity, Message: "none"}}}
	require.NoError(t, repo.Create(ctx, report))
	assert.NotZero(t, report.ID)

	found, err := repo.FindByID(ctx, workspace.ID, report.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportTypeVATAdvance, found.Type)
	assert.Equal(t, model.ReportGroupAdvanceVAT, found.Group)
	assert.True(t, found.PeriodStart.Equal(report.PeriodStart))
	require.Len(t, found.Lines, 1)
	assert.Equal(t, int64(1900), found.Lines[0].TaxCents)
	require.Len(t, found.Meta.Issues, 1)
	assert.Equal(t, model.IssueNoActivity, found.Meta.Issues[0].Code)

	byPeriod, err := repo.FindByPeriod(ctx, workspace.ID, model.ReportTypeVATAdvance, report.PeriodStart, report.PeriodEnd)
	require.NoError(t, err)
	assert.Equal(t, report.ID, byPeriod.ID)
}

func TestTaxReportRepository_FindByID_OtherWorkspace(t *testing.T) {
	testDB, repo, workspace := setupTaxReportTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	report := newQ1Report(workspace.ID)
	require.NoError(t, repo.Create(ctx, report))

	_, err := repo.FindByID(ctx, workspace.ID+1, report.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTaxReportRepository_UniquePeriodKey(t *testing.T) {
	testDB, repo, workspace := setupTaxReportTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newQ1Report(workspace.ID)))
	err := repo.Create(ctx, newQ1Report(workspace.ID))
	assert.Error(t, err)
}

func TestTaxReportRepository_UpsertByPeriod(t *testing.T) {
	testDB, repo, workspace := setupTaxReportTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	refresh := func(existing, candidate *model.TaxReport) bool {
		existing.EstimatedAmountCents = candidate.EstimatedAmountCents
		existing.Lines = candidate.Lines
		return true
	}

	first, created, err := repo.UpsertByPeriod(ctx, newQ1Report(workspace.ID), refresh)
	require.NoError(t, err)
	assert.True(t, created)

	second := newQ1Report(workspace.ID)
	second.EstimatedAmountCents = 2500
	second.Lines = []model.TaxReportLine{
		{Position: 1, Section: "sales", Label: "Taxable sales 19%", NetCents: 13158, TaxCents: 2500},
		{Position: 2, Section: "purchases", Label: "Input tax", NetCents: 0, TaxCents: 0},
	}
	updated, created, err := repo.UpsertByPeriod(ctx, second, refresh)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, updated.ID)

	var count int64
	testDB.Model(&model.TaxReport{}).Count(&count)
	assert.Equal(t, int64(1), count)

	found, err := repo.FindByID(ctx, workspace.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), found.EstimatedAmountCents)
	assert.Len(t, found.Lines, 2)

	var lineCount int64
	testDB.Model(&model.TaxReportLine{}).Count(&lineCount)
	assert.Equal(t, int64(2), lineCount)
}

// hideReportReads makes the next n tax report lookups miss, as if a
// competing writer committed its row right after the read.
func hideReportReads(t *testing.T, testDB *gorm.DB, n int) {
	hidden := 0
	err := testDB.Callback().Query().After("gorm:query").Register("test:hide_report_reads", func(tx *gorm.DB) {
		if tx.Statement.Table != "tax_reports" || hidden >= n {
			return
		}
		hidden++
		tx.Statement.RowsAffected = 0
		tx.AddError(gorm.ErrRecordNotFound)
	})
	require.NoError(t, err)
}

func TestTaxReportRepository_UpsertByPeriod_LostInsertRace(t *testing.T) {
	testDB, repo, workspace := setupTaxReportTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	winner := newQ1Report(workspace.ID)
	require.NoError(t, repo.Create(ctx, winner))

	hideReportReads(t, testDB, 1)

	merged := false
	candidate := newQ1Report(workspace.ID)
	candidate.EstimatedAmountCents = 2500
	stored, created, err := repo.UpsertByPeriod(ctx, candidate, func(existing, candidate *model.TaxReport) bool {
		merged = true
		existing.EstimatedAmountCents = candidate.EstimatedAmountCents
		return false
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, merged)
	assert.Equal(t, winner.ID, stored.ID)

	var count int64
	testDB.Model(&model.TaxReport{}).Count(&count)
	assert.Equal(t, int64(1), count)

	var lineCount int64
	testDB.Model(&model.TaxReportLine{}).Count(&lineCount)
	assert.Equal(t, int64(1), lineCount, "lines of the failed insert are rolled back")

	found, err := repo.FindByID(ctx, workspace.ID, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), found.EstimatedAmountCents)
}

func TestTaxReportRepository_UpsertByPeriod_GivesUpAfterRetry(t *testing.T) {
	testDB, repo, workspace := setupTaxReportTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newQ1Report(workspace.ID)))
	hideReportReads(t, testDB, 10)

	_, _, err := repo.UpsertByPeriod(ctx, newQ1Report(workspace.ID), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsDuplicateKey(err))
}

func TestTaxReportRepository_UpsertByPeriod_KeepLines(t *testing.T) {
	testDB, repo, workspace := setupTaxReportTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	_, _, err := repo.UpsertByPeriod(ctx, newQ1Report(workspace.ID), nil)
	require.NoError(t, err)

	candidate := newQ1Report(workspace.ID)
	candidate.Lines = nil
	stored, _, err := repo.UpsertByPeriod(ctx, candidate, func(existing, _ *model.TaxReport) bool {
		existing.Meta = existing.Meta.WithIssue(model.MetaIssue{Code: model.IssueAmountDrift, Message: "drift"})
		return false
	})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, workspace.ID, stored.ID)
	require.NoError(t, err)
	assert.Len(t, found.Lines, 1)
	require.Len(t, found.Meta.Issues, 1)
	assert.Equal(t, model.IssueAmountDrift, found.Meta.Issues[0].Code)
}

func TestTaxReportRepository_List(t *testing.T) {
	testDB, repo, workspace := setupTaxReportTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	q1 := newQ1Report(workspace.ID)
	require.NoError(t, repo.Create(ctx, q1))

	q2 := newQ1Report(workspace.ID)
	q2.PeriodLabel = "Q2 2025"
	q2.PeriodStart = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	q2.PeriodEnd = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	q2.Status = model.ReportStatusSubmitted
	require.NoError(t, repo.Create(ctx, q2))

	prior := newQ1Report(workspace.ID)
	prior.PeriodStart = prior.PeriodStart.AddDate(-1, 0, 0)
	prior.PeriodEnd = prior.PeriodEnd.AddDate(-1, 0, 0)
	require.NoError(t, repo.Create(ctx, prior))

	tests := []struct {
		name   string
		filter ReportFilter
		want   int
	}{
		{name: "All", filter: ReportFilter{WorkspaceID: workspace.ID}, want: 3},
		{name: "Year", filter: ReportFilter{WorkspaceID: workspace.ID, Year: 2025}, want: 2},
		{name: "Status", filter: ReportFilter{WorkspaceID: workspace.ID, Statuses: []model.ReportStatus{model.ReportStatusOpen}}, want: 2},
		{name: "Type", filter: ReportFilter{WorkspaceID: workspace.ID, Types: []model.ReportType{model.ReportTypeIncomeTax}}, want: 0},
		{name: "Other workspace", filter: ReportFilter{WorkspaceID: workspace.ID + 1}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, reports, tt.want)
		})
	}
}

func TestTaxReportRepository_FindNextPending(t *testing.T) {
	testDB, repo, workspace := setupTaxReportTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	submitted := newQ1Report(workspace.ID)
	submitted.Status = model.ReportStatusSubmitted
	require.NoError(t, repo.Create(ctx, submitted))

	_, err := repo.FindNextPending(ctx, workspace.ID, model.ReportTypeVATAdvance)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	q2 := newQ1Report(workspace.ID)
	q2.PeriodStart = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	q2.PeriodEnd = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	q2.DueDate = time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
	q2.Status = model.ReportStatusUpcoming
	require.NoError(t, repo.Create(ctx, q2))

	next, err := repo.FindNextPending(ctx, workspace.ID, model.ReportTypeVATAdvance)
	require.NoError(t, err)
	assert.Equal(t, q2.ID, next.ID)
}

func TestTaxReportRepository_Delete(t *testing.T) {
	testDB, repo, workspace := setupTaxReportTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	report := newQ1Report(workspace.ID)
	require.NoError(t, repo.Create(ctx, report))

	require.NoError(t, repo.Delete(ctx, report.ID))

	var lineCount int64
	testDB.Model(&model.TaxReportLine{}).Count(&lineCount)
	assert.Zero(t, lineCount)

	assert.ErrorIs(t, repo.Delete(ctx, report.ID), gorm.ErrRecordNotFound)
}

func TestTransactionManager_Rollback(t *testing.T) {
	testDB, repo, workspace := setupTaxReportTest(t)
	defer db.CleanupTestDB(testDB)

	txManager := NewTransactionManager(testDB)
	err := txManager.RunInTx(context.Background(), func(txCtx context.Context) error {
		if err := repo.Create(txCtx, newQ1Report(workspace.ID)); err != nil {
			return err
		}
		return repo.Create(txCtx, newQ1Report(workspace.ID))
	})
	require.Error(t, err)

	var count int64
	testDB.Model(&model.TaxReport{}).Count(&count)
	assert.Zero(t, count)
}
