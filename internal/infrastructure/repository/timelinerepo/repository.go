// Package timelinerepo persists branches and timeline nodes in PostgreSQL.
package timelinerepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tramway-server/internal/domain/timeline"
	"tramway-server/internal/infrastructure/database/entities"
)

// Repository is the GORM-backed timeline store.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a timeline repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func newPublicID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// ListBranches returns every branch of a project.
func (r *Repository) ListBranches(ctx context.Context, projectID string) ([]*timeline.Branch, error) {
	var rows []entities.Branch
	if err := r.db.WithContext(ctx).
		Where("project_public_id = ?", projectID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	result := make([]*timeline.Branch, len(rows))
	for i := range rows {
		result[i] = rows[i].EtoD()
	}
	return result, nil
}

// ListNodes returns every node of a project across all branches.
func (r *Repository) ListNodes(ctx context.Context, projectID string) ([]*timeline.Node, error) {
	var rows []entities.TimelineNode
	if err := r.db.WithContext(ctx).
		Where("project_public_id = ?", projectID).
		Order("created_at ASC, position ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	result := make([]*timeline.Node, len(rows))
	for i := range rows {
		result[i] = rows[i].EtoD()
	}
	return result, nil
}

// CreateRootBranch provisions the project's root branch and its root node at
// position 0, in one transaction.
func (r *Repository) CreateRootBranch(ctx context.Context, projectID, createdBy string) (*timeline.Branch, error) {
	branchEntity := &entities.Branch{
		PublicID:        newPublicID("br"),
		ProjectPublicID: projectID,
		Name:            "main",
		Depth:           0,
		CreatedBy:       createdBy,
	}
	rootNode := &entities.TimelineNode{
		PublicID:        newPublicID("node"),
		ProjectPublicID: projectID,
		BranchPublicID:  branchEntity.PublicID,
		Kind:            string(timeline.NodeKindRoot),
		Position:        0,
		CreatedBy:       createdBy,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(branchEntity).Error; err != nil {
			return fmt.Errorf("insert root branch: %w", err)
		}
		if err := tx.Create(rootNode).Error; err != nil {
			return fmt.Errorf("insert root node: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return branchEntity.EtoD(), nil
}

// CreateMessageNode appends a user or assistant message to a branch at the
// next free position.
func (r *Repository) CreateMessageNode(ctx context.Context, params timeline.CreateMessageParams) (*timeline.Node, error) {
	node := &timeline.Node{
		ID:        newPublicID("node"),
		ProjectID: params.ProjectID,
		BranchID:  params.BranchID,
		ParentID:  &params.ParentID,
		Kind:      kindForRole(params.Role),
		Message:   &timeline.MessagePayload{Role: params.Role, Text: params.Text},
		CreatedBy: params.CreatedBy,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pos, err := nextPosition(tx, params.BranchID)
		if err != nil {
			return err
		}
		node.Position = pos
		entity := entities.NewSchemaTimelineNode(node)
		if err := tx.Create(entity).Error; err != nil {
			return fmt.Errorf("insert message node: %w", err)
		}
		node.CreatedAt = entity.CreatedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// CreateBranch inserts the branch row and its synthetic branch_root node. When
// the fork node is the current tail of the parent branch and no marker follows
// it yet, a branch_point marker is appended so the fork shows as a station.
func (r *Repository) CreateBranch(ctx context.Context, params timeline.CreateBranchParams) (*timeline.Branch, error) {
	var created *entities.Branch

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var forkNode entities.TimelineNode
		if err := tx.Where("public_id = ?", params.BranchPointNodeID).First(&forkNode).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", timeline.ErrBranchPointNotFound, params.BranchPointNodeID)
			}
			return fmt.Errorf("fetch fork node: %w", err)
		}

		var parentBranch entities.Branch
		if err := tx.Where("public_id = ?", params.ParentBranchID).First(&parentBranch).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", timeline.ErrBranchNotFound, params.ParentBranchID)
			}
			return fmt.Errorf("fetch parent branch: %w", err)
		}

		branchEntity := &entities.Branch{
			PublicID:          newPublicID("br"),
			ProjectPublicID:   params.ProjectID,
			Name:              params.Name,
			ParentPublicID:    &params.ParentBranchID,
			BranchPointNodeID: &params.BranchPointNodeID,
			Depth:             parentBranch.Depth + 1,
			CreatedBy:         params.CreatedBy,
		}
		if params.DirectionHint != nil {
			hint := string(*params.DirectionHint)
			branchEntity.DirectionHint = &hint
		}
		if err := tx.Create(branchEntity).Error; err != nil {
			return fmt.Errorf("insert branch: %w", err)
		}

		branchRoot := &entities.TimelineNode{
			PublicID:        newPublicID("node"),
			ProjectPublicID: params.ProjectID,
			BranchPublicID:  branchEntity.PublicID,
			ParentPublicID:  &params.BranchPointNodeID,
			Kind:            string(timeline.NodeKindBranchRoot),
			Position:        0,
			CreatedBy:       params.CreatedBy,
		}
		if err := tx.Create(branchRoot).Error; err != nil {
			return fmt.Errorf("insert branch root: %w", err)
		}

		if err := r.markForkStation(tx, &forkNode, params); err != nil {
			return err
		}

		created = branchEntity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created.EtoD(), nil
}

// markForkStation appends a branch_point marker after the fork node when it is
// the tail of its branch. A mid-history fork needs no marker: the branch row's
// fork reference already carries the station.
func (r *Repository) markForkStation(tx *gorm.DB, forkNode *entities.TimelineNode, params timeline.CreateBranchParams) error {
	pos, err := nextPosition(tx, forkNode.BranchPublicID)
	if err != nil {
		return err
	}
	if pos != forkNode.Position+1 {
		return nil
	}

	var markers int64
	if err := tx.Model(&entities.TimelineNode{}).
		Where("parent_public_id = ? AND kind = ?", forkNode.PublicID, string(timeline.NodeKindBranchPoint)).
		Count(&markers).Error; err != nil {
		return fmt.Errorf("count fork markers: %w", err)
	}
	if markers > 0 {
		return nil
	}

	marker := &entities.TimelineNode{
		PublicID:        newPublicID("node"),
		ProjectPublicID: params.ProjectID,
		BranchPublicID:  forkNode.BranchPublicID,
		ParentPublicID:  &forkNode.PublicID,
		Kind:            string(timeline.NodeKindBranchPoint),
		Position:        pos,
		CreatedBy:       params.CreatedBy,
	}
	if err := tx.Create(marker).Error; err != nil {
		return fmt.Errorf("insert fork marker: %w", err)
	}
	return nil
}

// PersistBranchLayout stores the computed subway placement on the branch row.
func (r *Repository) PersistBranchLayout(ctx context.Context, branchID string, layout timeline.BranchLayout) error {
	branch := &timeline.Branch{ID: branchID, Layout: &layout}
	entity := entities.NewSchemaBranch(branch)
	result := r.db.WithContext(ctx).Model(&entities.Branch{}).
		Where("public_id = ?", branchID).
		Update("layout", entity.Layout)
	if result.Error != nil {
		return fmt.Errorf("persist branch layout: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", timeline.ErrBranchNotFound, branchID)
	}
	return nil
}

// PersistBranchColor stores the allocated line color; colors are sticky, so an
// already-colored branch is left untouched.
func (r *Repository) PersistBranchColor(ctx context.Context, branchID, color string) error {
	result := r.db.WithContext(ctx).Model(&entities.Branch{}).
		Where("public_id = ? AND (color = '' OR color IS NULL)", branchID).
		Update("color", color)
	if result.Error != nil {
		return fmt.Errorf("persist branch color: %w", result.Error)
	}
	return nil
}

// DeleteLeafNode removes a node after re-checking, inside the transaction,
// that nothing hangs off it.
func (r *Repository) DeleteLeafNode(ctx context.Context, projectID, nodeID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var node entities.TimelineNode
		if err := tx.Where("project_public_id = ? AND public_id = ?", projectID, nodeID).
			First(&node).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", timeline.ErrNodeNotFound, nodeID)
			}
			return fmt.Errorf("fetch node: %w", err)
		}

		var children int64
		if err := tx.Model(&entities.TimelineNode{}).
			Where("parent_public_id = ?", nodeID).
			Count(&children).Error; err != nil {
			return fmt.Errorf("count children: %w", err)
		}
		var forks int64
		if err := tx.Model(&entities.Branch{}).
			Where("branch_point_node_id = ?", nodeID).
			Count(&forks).Error; err != nil {
			return fmt.Errorf("count forked branches: %w", err)
		}
		if children > 0 || forks > 0 {
			return fmt.Errorf("%w: %s", timeline.ErrNodeNotDeletable, nodeID)
		}

		if err := tx.Delete(&node).Error; err != nil {
			return fmt.Errorf("delete node: %w", err)
		}
		return nil
	})
}

func nextPosition(tx *gorm.DB, branchID string) (int, error) {
	var maxPos *int
	if err := tx.Model(&entities.TimelineNode{}).
		Where("branch_public_id = ?", branchID).
		Select("MAX(position)").
		Scan(&maxPos).Error; err != nil {
		return 0, fmt.Errorf("next position: %w", err)
	}
	if maxPos == nil {
		return 0, nil
	}
	return *maxPos + 1, nil
}

func kindForRole(role timeline.MessageRole) timeline.NodeKind {
	if role == timeline.RoleAssistant {
		return timeline.NodeKindAssistantMessage
	}
	return timeline.NodeKindUserMessage
}
