package entities

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"tramway-server/internal/domain/timeline"
)

// Branch represents the database schema for conversation branches
type Branch struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PublicID          string         `gorm:"type:varchar(64);uniqueIndex;not null"`
	ProjectPublicID   string         `gorm:"type:varchar(64);index:idx_branch_project;not null"`
	Name              string         `gorm:"type:varchar(256)"`
	ParentPublicID    *string        `gorm:"type:varchar(64);index"`
	BranchPointNodeID *string        `gorm:"type:varchar(64);index"`
	Depth             int            `gorm:"not null;default:0"`
	Color             string         `gorm:"type:varchar(16)"`
	DirectionHint     *string        `gorm:"type:varchar(8)"`
	Layout            datatypes.JSON `gorm:"type:jsonb"`
	CreatedBy         string         `gorm:"type:varchar(64)"`
}

// TableName specifies the table name for Branch.
func (Branch) TableName() string {
	return "branches"
}

// EtoD converts database entity to domain model
func (b *Branch) EtoD() *timeline.Branch {
	branch := &timeline.Branch{
		ID:                b.PublicID,
		ProjectID:         b.ProjectPublicID,
		Name:              b.Name,
		ParentID:          b.ParentPublicID,
		BranchPointNodeID: b.BranchPointNodeID,
		Depth:             b.Depth,
		Color:             b.Color,
		CreatedAt:         b.CreatedAt,
		CreatedBy:         b.CreatedBy,
	}
	if b.DirectionHint != nil {
		hint := timeline.Direction(*b.DirectionHint)
		branch.DirectionHint = &hint
	}
	if len(b.Layout) > 0 {
		var layout timeline.BranchLayout
		if err := json.Unmarshal(b.Layout, &layout); err == nil {
			branch.Layout = &layout
		}
	}
	return branch
}

// NewSchemaBranch creates a database entity from domain model
func NewSchemaBranch(b *timeline.Branch) *Branch {
	entity := &Branch{
		PublicID:          b.ID,
		ProjectPublicID:   b.ProjectID,
		Name:              b.Name,
		ParentPublicID:    b.ParentID,
		BranchPointNodeID: b.BranchPointNodeID,
		Depth:             b.Depth,
		Color:             b.Color,
		CreatedBy:         b.CreatedBy,
		CreatedAt:         b.CreatedAt,
	}
	if b.DirectionHint != nil {
		hint := string(*b.DirectionHint)
		entity.DirectionHint = &hint
	}
	if b.Layout != nil {
		if raw, err := json.Marshal(b.Layout); err == nil {
			entity.Layout = raw
		}
	}
	return entity
}
