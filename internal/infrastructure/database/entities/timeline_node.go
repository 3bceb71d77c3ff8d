package entities

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"tramway-server/internal/domain/timeline"
)

// TimelineNode stores each node of a branch's linear history.
type TimelineNode struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	PublicID        string         `gorm:"type:varchar(64);uniqueIndex;not null"`
	ProjectPublicID string         `gorm:"type:varchar(64);index:idx_node_project;not null"`
	BranchPublicID  string         `gorm:"type:varchar(64);uniqueIndex:idx_node_branch_position;not null"`
	ParentPublicID  *string        `gorm:"type:varchar(64);index"`
	Kind            string         `gorm:"type:varchar(32);not null"`
	Position        int            `gorm:"uniqueIndex:idx_node_branch_position;not null"`
	Message         datatypes.JSON `gorm:"type:jsonb"`
	CreatedBy       string         `gorm:"type:varchar(64)"`
}

// TableName specifies the table name for TimelineNode.
func (TimelineNode) TableName() string {
	return "timeline_nodes"
}

// EtoD converts database entity to domain model
func (n *TimelineNode) EtoD() *timeline.Node {
	node := &timeline.Node{
		ID:        n.PublicID,
		ProjectID: n.ProjectPublicID,
		BranchID:  n.BranchPublicID,
		ParentID:  n.ParentPublicID,
		Kind:      timeline.NodeKind(n.Kind),
		Position:  n.Position,
		CreatedAt: n.CreatedAt,
		CreatedBy: n.CreatedBy,
	}
	if len(n.Message) > 0 {
		var payload timeline.MessagePayload
		if err := json.Unmarshal(n.Message, &payload); err == nil {
			node.Message = &payload
		}
	}
	return node
}

// NewSchemaTimelineNode creates a database entity from domain model
func NewSchemaTimelineNode(n *timeline.Node) *TimelineNode {
	entity := &TimelineNode{
		PublicID:        n.ID,
		ProjectPublicID: n.ProjectID,
		BranchPublicID:  n.BranchID,
		ParentPublicID:  n.ParentID,
		Kind:            string(n.Kind),
		Position:        n.Position,
		CreatedBy:       n.CreatedBy,
		CreatedAt:       n.CreatedAt,
	}
	if n.Message != nil {
		if raw, err := json.Marshal(n.Message); err == nil {
			entity.Message = raw
		}
	}
	return entity
}
