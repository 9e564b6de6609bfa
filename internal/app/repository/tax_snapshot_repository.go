package repository

import (
	"context"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaxSnapshotRepository interface {
	CreateIfAbsent(ctx context.Context, snapshot *model.TaxSnapshot) (bool, error)
	FindBySource(ctx context.Context, workspaceID uint, sourceType model.SnapshotSourceType, sourceID string) (*model.TaxSnapshot, error)
	ListByWorkspace(ctx context.Context, workspaceID uint, sourceType model.SnapshotSourceType) ([]model.TaxSnapshot, error)
}

type taxSnapshotRepository struct {
	db *gorm.DB
}

func NewTaxSnapshotRepository(db *gorm.DB) TaxSnapshotRepository {
	return &taxSnapshotRepository{db: db}
}

// CreateIfAbsent inserts the snapshot unless its source key is taken.
// It reports whether this call created the row.
func (r *taxSnapshotRepository) CreateIfAbsent(ctx context.Context, snapshot *model.TaxSnapshot) (bool, error) {
	fields := map[string]interface{}{
		"workspace_id": snapshot.WorkspaceID,
		"source_type":  snapshot.SourceType,
		"source_id":    snapshot.SourceID,
	}
	logger.Debug("Creating tax snapshot in database", fields)

	result := getDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "source_type"}, {Name: "source_id"}},
		DoNothing: true,
	}).Create(snapshot)
	if result.Error != nil {
		logger.Error("Failed to create tax snapshot in database", result.Error, fields)
		return false, result.Error
	}

	created := result.RowsAffected > 0
	logger.Debug("Tax snapshot insert finished", map[string]interface{}{
		"source_id": snapshot.SourceID,
		"created":   created,
	})
	return created, nil
}

func (r *taxSnapshotRepository) FindBySource(ctx context.Context, workspaceID uint, sourceType model.SnapshotSourceType, sourceID string) (*model.TaxSnapshot, error) {
	var snapshot model.TaxSnapshot
	err := getDB(ctx, r.db).
		Where("workspace_id = ? AND source_type = ? AND source_id = ?", workspaceID, sourceType, sourceID).
		First(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *taxSnapshotRepository) ListByWorkspace(ctx context.Context, workspaceID uint, sourceType model.SnapshotSourceType) ([]model.TaxSnapshot, error) {
	query := getDB(ctx, r.db).Where("workspace_id = ?", workspaceID)
	if sourceType != "" {
		query = query.Where("source_type = ?", sourceType)
	}

	var snapshots []model.TaxSnapshot
	if err := query.Order("calculated_at ASC, id ASC").Find(&snapshots).Error; err != nil {
		logger.Error("Failed to list tax snapshots", err, map[string]interface{}{
			"workspace_id": workspaceID,
		})
		return nil, err
	}
	return snapshots, nil
}
