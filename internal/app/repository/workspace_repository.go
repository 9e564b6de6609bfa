package repository

import (
	"context"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/pkg/logger"
	"gorm.io/gorm"
)

type WorkspaceRepository interface {
	Create(ctx context.Context, workspace *model.Workspace) error
	FindByID(ctx context.Context, id uint) (*model.Workspace, error)
}

type workspaceRepository struct {
	db *gorm.DB
}

func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &workspaceRepository{db: db}
}

func (r *workspaceRepository) Create(ctx context.Context, workspace *model.Workspace) error {
	logger.Debug("Creating workspace in database", map[string]interface{}{
		"name": workspace.Name,
		"kind": workspace.LegalEntityKind,
	})

	if err := getDB(ctx, r.db).Create(workspace).Error; err != nil {
		logger.Error("Failed to create workspace in database", err, map[string]interface{}{
			"name": workspace.Name,
		})
		return err
	}

	logger.Debug("Workspace created in database", map[string]interface{}{
		"workspace_id": workspace.ID,
	})
	return nil
}

func (r *workspaceRepository) FindByID(ctx context.Context, id uint) (*model.Workspace, error) {
	var workspace model.Workspace
	if err := getDB(ctx, r.db).First(&workspace, id).Error; err != nil {
		logger.Debug("Workspace not found in database", map[string]interface{}{
			"workspace_id": id,
			"error":        err.Error(),
		})
		return nil, err
	}
	return &workspace, nil
}
