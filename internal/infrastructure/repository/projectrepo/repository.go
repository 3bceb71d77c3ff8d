// Package projectrepo persists projects in PostgreSQL.
package projectrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tramway-server/internal/domain/project"
	"tramway-server/internal/infrastructure/database/entities"
)

// Repository is the GORM-backed project store.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a project repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func newPublicID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// Create inserts the project record.
func (r *Repository) Create(ctx context.Context, params project.CreateParams) (*project.Project, error) {
	entity := &entities.Project{
		PublicID:    newPublicID("proj"),
		Name:        params.Name,
		Description: params.Description,
		Settings:    datatypes.JSONMap(params.Settings),
		CreatedBy:   params.CreatedBy,
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return entity.EtoD(), nil
}

// Get fetches a project by its public ID.
func (r *Repository) Get(ctx context.Context, projectID string) (*project.Project, error) {
	var entity entities.Project
	if err := r.db.WithContext(ctx).
		Where("public_id = ?", projectID).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", project.ErrProjectNotFound, projectID)
		}
		return nil, fmt.Errorf("fetch project: %w", err)
	}
	return entity.EtoD(), nil
}

// List returns all projects, newest first.
func (r *Repository) List(ctx context.Context) ([]*project.Project, error) {
	var rows []entities.Project
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	result := make([]*project.Project, len(rows))
	for i := range rows {
		result[i] = rows[i].EtoD()
	}
	return result, nil
}

// Update applies partial changes to a project record.
func (r *Repository) Update(ctx context.Context, projectID string, params project.UpdateParams) (*project.Project, error) {
	updates := map[string]any{"updated_at": time.Now()}
	if params.Name != nil {
		updates["name"] = *params.Name
	}
	if params.Description != nil {
		updates["description"] = *params.Description
	}
	if params.Settings != nil {
		updates["settings"] = datatypes.JSONMap(params.Settings)
	}

	result := r.db.WithContext(ctx).Model(&entities.Project{}).
		Where("public_id = ?", projectID).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("update project: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s", project.ErrProjectNotFound, projectID)
	}
	return r.Get(ctx, projectID)
}

// Delete removes the project and, transactionally, every branch and node
// under it.
func (r *Repository) Delete(ctx context.Context, projectID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("public_id = ?", projectID).Delete(&entities.Project{})
		if result.Error != nil {
			return fmt.Errorf("delete project: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", project.ErrProjectNotFound, projectID)
		}
		if err := tx.Where("project_public_id = ?", projectID).
			Delete(&entities.TimelineNode{}).Error; err != nil {
			return fmt.Errorf("delete project nodes: %w", err)
		}
		if err := tx.Where("project_public_id = ?", projectID).
			Delete(&entities.Branch{}).Error; err != nil {
			return fmt.Errorf("delete project branches: %w", err)
		}
		return nil
	})
}
