package repository

import (
	"context"
	"time"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/pkg/logger"
	"gorm.io/gorm"
)

type TaxProfileRepository interface {
	Create(ctx context.Context, profile *model.TaxProfile) error
	Update(ctx context.Context, profile *model.TaxProfile) error
	FindActive(ctx context.Context, workspaceID uint, at time.Time) (*model.TaxProfile, error)
	FindOpen(ctx context.Context, workspaceID uint) (*model.TaxProfile, error)
	ListByWorkspace(ctx context.Context, workspaceID uint) ([]model.TaxProfile, error)
	HasOverlap(ctx context.Context, workspaceID uint, from time.Time, to *time.Time, excludeID uint) (bool, error)
	ListWorkspaceIDsActiveAt(ctx context.Context, at time.Time) ([]uint, error)
}

type taxProfileRepository struct {
	db *gorm.DB
}

func NewTaxProfileRepository(db *gorm.DB) TaxProfileRepository {
	return &taxProfileRepository{db: db}
}

func (r *taxProfileRepository) Create(ctx context.Context, profile *model.TaxProfile) error {
	logger.Debug("Creating tax profile in database", map[string]interface{}{
		"workspace_id":   profile.WorkspaceID,
		"country":        profile.CountryCode,
		"effective_from": profile.EffectiveFrom,
	})

	if err := getDB(ctx, r.db).Create(profile).Error; err != nil {
		logger.Error("Failed to create tax profile in database", err, map[string]interface{}{
			"workspace_id": profile.WorkspaceID,
		})
		return err
	}

	logger.Debug("Tax profile created in database", map[string]interface{}{
		"profile_id":   profile.ID,
		"workspace_id": profile.WorkspaceID,
	})
	return nil
}

func (r *taxProfileRepository) Update(ctx context.Context, profile *model.TaxProfile) error {
	logger.Debug("Updating tax profile in database", map[string]interface{}{
		"profile_id":   profile.ID,
		"workspace_id": profile.WorkspaceID,
	})

	if err := getDB(ctx, r.db).Save(profile).Error; err != nil {
		logger.Error("Failed to update tax profile in database", err, map[string]interface{}{
			"profile_id":   profile.ID,
			"workspace_id": profile.WorkspaceID,
		})
		return err
	}
	return nil
}

// FindActive returns the profile whose window contains at.
func (r *taxProfileRepository) FindActive(ctx context.Context, workspaceID uint, at time.Time) (*model.TaxProfile, error) {
	at = at.UTC()
	logger.Debug("Finding active tax profile", map[string]interface{}{
		"workspace_id": workspaceID,
		"at":           at,
	})

	var profile model.TaxProfile
	err := getDB(ctx, r.db).
		Where("workspace_id = ? AND effective_from <= ?", workspaceID, at).
		Where("effective_to IS NULL OR effective_to > ?", at).
		Order("effective_from DESC").
		First(&profile).Error
	if err != nil {
		logger.Debug("No active tax profile", map[string]interface{}{
			"workspace_id": workspaceID,
			"at":           at,
			"error":        err.Error(),
		})
		return nil, err
	}
	return &profile, nil
}

// FindOpen returns the profile without an end date, if any.
func (r *taxProfileRepository) FindOpen(ctx context.Context, workspaceID uint) (*model.TaxProfile, error) {
	var profile model.TaxProfile
	err := getDB(ctx, r.db).
		Where("workspace_id = ? AND effective_to IS NULL", workspaceID).
		Order("effective_from DESC").
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *taxProfileRepository) ListByWorkspace(ctx context.Context, workspaceID uint) ([]model.TaxProfile, error) {
	var profiles []model.TaxProfile
	if err := getDB(ctx, r.db).
		Where("workspace_id = ?", workspaceID).
		Order("effective_from ASC").
		Find(&profiles).Error; err != nil {
		logger.Error("Failed to list tax profiles", err, map[string]interface{}{
			"workspace_id": workspaceID,
		})
		return nil, err
	}
	return profiles, nil
}

// HasOverlap reports whether another profile's window intersects [from, to).
// A nil to means the window is open-ended.
func (r *taxProfileRepository) HasOverlap(ctx context.Context, workspaceID uint, from time.Time, to *time.Time, excludeID uint) (bool, error) {
	query := getDB(ctx, r.db).Model(&model.TaxProfile{}).
		Where("workspace_id = ?", workspaceID).
		Where("effective_to IS NULL OR effective_to > ?", from.UTC())
	if to != nil {
		query = query.Where("effective_from < ?", to.UTC())
	}
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		logger.Error("Failed to check tax profile overlap", err, map[string]interface{}{
			"workspace_id": workspaceID,
		})
		return false, err
	}
	return count > 0, nil
}

// ListWorkspaceIDsActiveAt returns every workspace with a profile active at.
func (r *taxProfileRepository) ListWorkspaceIDsActiveAt(ctx context.Context, at time.Time) ([]uint, error) {
	at = at.UTC()
	var ids []uint
	if err := getDB(ctx, r.db).Model(&model.TaxProfile{}).
		Distinct("workspace_id").
		Where("effective_from <= ?", at).
		Where("effective_to IS NULL OR effective_to > ?", at).
		Order("workspace_id").
		Pluck("workspace_id", &ids).Error; err != nil {
		logger.Error("Failed to list workspaces with active profile", err, map[string]interface{}{
			"at": at,
		})
		return nil, err
	}
	return ids, nil
}
