package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"researchhub/internal/model"
)

type WorkspaceRepository struct {
	db *gorm.DB
}

func NewWorkspaceRepository(db *gorm.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

func (r *WorkspaceRepository) Create(ctx context.Context, workspace *model.Workspace) error {
	if err := r.db.WithContext(ctx).Create(workspace).Error; err != nil {
		return fmt.Errorf("create workspace failed: %w", err)
	}
	return nil
}

func (r *WorkspaceRepository) ListByOwnerID(ctx context.Context, ownerID uint) ([]model.Workspace, error) {
	var list []model.Workspace
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at ASC, id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list workspaces failed: %w", err)
	}
	return list, nil
}

func (r *WorkspaceRepository) GetByIDAndOwnerID(ctx context.Context, id, ownerID uint) (*model.Workspace, error) {
	var workspace model.Workspace
	if err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&workspace).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get workspace failed: %w", err)
	}
	return &workspace, nil
}

// DeleteCascade removes the workspace's chat messages, unlinks its papers and
// deletes the workspace in one transaction. It reports false when the
// workspace does not exist or is not owned by ownerID.
func (r *WorkspaceRepository) DeleteCascade(ctx context.Context, id, ownerID uint) (bool, error) {
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var workspace model.Workspace
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&workspace).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		found = true
		if err := tx.Where("workspace_id = ?", id).Delete(&model.ChatMessage{}).Error; err != nil {
			return fmt.Errorf("delete workspace messages: %w", err)
		}
		if err := tx.Model(&model.Paper{}).Where("workspace_id = ?", id).Update("workspace_id", nil).Error; err != nil {
			return fmt.Errorf("unlink workspace papers: %w", err)
		}
		if err := tx.Delete(&workspace).Error; err != nil {
			return fmt.Errorf("delete workspace row: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete workspace failed: %w", err)
	}
	return found, nil
}
