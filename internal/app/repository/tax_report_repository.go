package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	apperrors "github.com/ikkim/taxfiling-backend/internal/errors"
	"github.com/ikkim/taxfiling-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReportFilter struct {
	WorkspaceID uint
	Statuses    []model.ReportStatus
	Types       []model.ReportType
	Year        int // 0 = 전체
}

// MergeFunc folds a freshly computed candidate into the stored report.
// It returns true when the stored lines must be replaced by existing.Lines.
type MergeFunc func(existing, candidate *model.TaxReport) (replaceLines bool)

type TaxReportRepository interface {
	Create(ctx context.Context, report *model.TaxReport) error
	FindByID(ctx context.Context, workspaceID, id uint) (*model.TaxReport, error)
	FindByPeriod(ctx context.Context, workspaceID uint, reportType model.ReportType, start, end time.Time) (*model.TaxReport, error)
	List(ctx context.Context, filter ReportFilter) ([]model.TaxReport, error)
	FindNextPending(ctx context.Context, workspaceID uint, reportType model.ReportType) (*model.TaxReport, error)
	Update(ctx context.Context, report *model.TaxReport) error
	ReplaceLines(ctx context.Context, reportID uint, lines []model.TaxReportLine) error
	Delete(ctx context.Context, id uint) error
	UpsertByPeriod(ctx context.Context, candidate *model.TaxReport, merge MergeFunc) (*model.TaxReport, bool, error)
}

type taxReportRepository struct {
	db *gorm.DB
}

func NewTaxReportRepository(db *gorm.DB) TaxReportRepository {
	return &taxReportRepository{db: db}
}

func preloadLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(ldb *gorm.DB) *gorm.DB {
		return ldb.Order("position ASC")
	})
}

func (r *taxReportRepository) Create(ctx context.Context, report *model.TaxReport) error {
	logger.Debug("Creating tax report in database", map[string]interface{}{
		"workspace_id": report.WorkspaceID,
		"type":         report.Type,
		"period_start": report.PeriodStart,
		"period_end":   report.PeriodEnd,
	})

	if err := getDB(ctx, r.db).Create(report).Error; err != nil {
		logger.Error("Failed to create tax report in database", err, map[string]interface{}{
			"workspace_id": report.WorkspaceID,
			"type":         report.Type,
			"period_label": report.PeriodLabel,
		})
		return err
	}

	logger.Debug("Tax report created in database", map[string]interface{}{
		"report_id":    report.ID,
		"workspace_id": report.WorkspaceID,
		"type":         report.Type,
	})
	return nil
}

func (r *taxReportRepository) FindByID(ctx context.Context, workspaceID, id uint) (*model.TaxReport, error) {
	logger.Debug("Finding tax report by ID in database", map[string]interface{}{
		"workspace_id": workspaceID,
		"report_id":    id,
	})

	var report model.TaxReport
	if err := preloadLines(getDB(ctx, r.db)).
		Where("workspace_id = ?", workspaceID).
		First(&report, id).Error; err != nil {
		logger.Debug("Tax report not found in database", map[string]interface{}{
			"workspace_id": workspaceID,
			"report_id":    id,
			"error":        err.Error(),
		})
		return nil, err
	}
	return &report, nil
}

func (r *taxReportRepository) FindByPeriod(ctx context.Context, workspaceID uint, reportType model.ReportType, start, end time.Time) (*model.TaxReport, error) {
	return findByPeriod(preloadLines(getDB(ctx, r.db)), workspaceID, reportType, start, end)
}

func findByPeriod(db *gorm.DB, workspaceID uint, reportType model.ReportType, start, end time.Time) (*model.TaxReport, error) {
	var report model.TaxReport
	err := db.Where(
		"workspace_id = ? AND type = ? AND period_start = ? AND period_end = ?",
		workspaceID, reportType, start.UTC(), end.UTC(),
	).First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *taxReportRepository) List(ctx context.Context, filter ReportFilter) ([]model.TaxReport, error) {
	logger.Debug("Listing tax reports from database", map[string]interface{}{
		"workspace_id": filter.WorkspaceID,
		"statuses":     filter.Statuses,
		"types":        filter.Types,
		"year":         filter.Year,
	})

	query := preloadLines(getDB(ctx, r.db)).Where("workspace_id = ?", filter.WorkspaceID)
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if len(filter.Types) > 0 {
		query = query.Where("type IN ?", filter.Types)
	}
	if filter.Year > 0 {
		from := time.Date(filter.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		query = query.Where("period_start >= ? AND period_start < ?", from, from.AddDate(1, 0, 0))
	}

	var reports []model.TaxReport
	if err := query.Order("period_start ASC, type ASC").Find(&reports).Error; err != nil {
		logger.Error("Failed to list tax reports from database", err, map[string]interface{}{
			"workspace_id": filter.WorkspaceID,
		})
		return nil, err
	}

	logger.Debug("Tax reports listed from database", map[string]interface{}{
		"workspace_id": filter.WorkspaceID,
		"count":        len(reports),
	})
	return reports, nil
}

// FindNextPending returns the pending report of reportType with the earliest due date.
func (r *taxReportRepository) FindNextPending(ctx context.Context, workspaceID uint, reportType model.ReportType) (*model.TaxReport, error) {
	var report model.TaxReport
	err := getDB(ctx, r.db).
		Where("workspace_id = ? AND type = ?", workspaceID, reportType).
		Where("status IN ?", []model.ReportStatus{model.ReportStatusUpcoming, model.ReportStatusOpen}).
		Order("due_date ASC").
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Update saves the report columns. Lines are left untouched.
func (r *taxReportRepository) Update(ctx context.Context, report *model.TaxReport) error {
	logger.Debug("Updating tax report in database", map[string]interface{}{
		"report_id": report.ID,
		"status":    report.Status,
	})

	if err := getDB(ctx, r.db).Omit(clause.Associations).Save(report).Error; err != nil {
		logger.Error("Failed to update tax report in database", err, map[string]interface{}{
			"report_id": report.ID,
			"status":    report.Status,
		})
		return err
	}

	logger.Debug("Tax report updated in database", map[string]interface{}{
		"report_id": report.ID,
		"status":    report.Status,
	})
	return nil
}

func (r *taxReportRepository) ReplaceLines(ctx context.Context, reportID uint, lines []model.TaxReportLine) error {
	return getDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		return replaceLines(tx, reportID, lines)
	})
}

func replaceLines(tx *gorm.DB, reportID uint, lines []model.TaxReportLine) error {
	if err := tx.Where("report_id = ?", reportID).Delete(&model.TaxReportLine{}).Error; err != nil {
		logger.Error("Failed to delete tax report lines", err, map[string]interface{}{
			"report_id": reportID,
		})
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		lines[i].ID = 0
		lines[i].ReportID = reportID
	}
	if err := tx.Create(&lines).Error; err != nil {
		logger.Error("Failed to create tax report lines", err, map[string]interface{}{
			"report_id": reportID,
			"count":     len(lines),
		})
		return err
	}
	return nil
}

// Delete hard-deletes the report and its lines.
func (r *taxReportRepository) Delete(ctx context.Context, id uint) error {
	logger.Debug("Deleting tax report from database", map[string]interface{}{
		"report_id": id,
	})

	err := getDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", id).Delete(&model.TaxReportLine{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.TaxReport{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to delete tax report from database", err, map[string]interface{}{
			"report_id": id,
		})
		return err
	}

	logger.Debug("Tax report deleted from database", map[string]interface{}{
		"report_id": id,
	})
	return nil
}

// UpsertByPeriod stores candidate under its (workspace, type, period) key.
// When a row already exists, merge decides what is refreshed. A concurrent
// insert that wins the unique index is resolved by retrying as an update.
// The returned bool is true when a new row was created.
func (r *taxReportRepository) UpsertByPeriod(ctx context.Context, candidate *model.TaxReport, merge MergeFunc) (*model.TaxReport, bool, error) {
	fields := map[string]interface{}{
		"workspace_id": candidate.WorkspaceID,
		"type":         candidate.Type,
		"period_start": candidate.PeriodStart,
		"period_end":   candidate.PeriodEnd,
	}
	logger.Debug("Upserting tax report by period", fields)

	const maxAttempts = 2
	var (
		stored  *model.TaxReport
		created bool
		err     error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		stored, created, err = r.upsertOnce(ctx, candidate, merge)
		if err == nil || !apperrors.IsDuplicateKey(err) {
			break
		}
		logger.Warn("Tax report upsert lost insert race, retrying", map[string]interface{}{
			"workspace_id": candidate.WorkspaceID,
			"type":         candidate.Type,
			"attempt":      attempt,
		})
		candidate.ID = 0
	}
	if err != nil {
		logger.Error("Failed to upsert tax report", err, fields)
		return nil, false, err
	}

	logger.Debug("Tax report upserted", map[string]interface{}{
		"report_id": stored.ID,
		"created":   created,
		"status":    stored.Status,
	})
	return stored, created, nil
}

func (r *taxReportRepository) upsertOnce(ctx context.Context, candidate *model.TaxReport, merge MergeFunc) (*model.TaxReport, bool, error) {
	var (
		stored  *model.TaxReport
		created bool
	)
	err := getDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		existing, err := findByPeriod(preloadLines(tx), candidate.WorkspaceID, candidate.Type, candidate.PeriodStart, candidate.PeriodEnd)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := tx.Create(candidate).Error; err != nil {
				return err
			}
			stored, created = candidate, true
			return nil
		}
		if err != nil {
			return err
		}

		replace := merge(existing, candidate)
		if err := tx.Omit(clause.Associations).Save(existing).Error; err != nil {
			return err
		}
		if replace {
			if err := replaceLines(tx, existing.ID, existing.Lines); err != nil {
				return err
			}
		}
		stored = existing
		return nil
	})
	return stored, created, err
}
