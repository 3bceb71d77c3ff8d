package timeline

import "time"

// ===============================================
// Node Types
// ===============================================

// NodeKind discriminates the closed set of timeline node variants.
type NodeKind string

const (
	// NodeKindRoot is the single entry point of a project. It has no parent
	// and always sits at position 0 of the root branch.
	NodeKindRoot NodeKind = "root"
	// NodeKindBranchRoot is the synthetic first node of a non-root branch.
	// Its parent is the fork node in the parent branch; it is never part of
	// a display path.
	NodeKindBranchRoot NodeKind = "branch_root"
	// NodeKindBranchPoint marks a node in a branch from which one or more
	// child branches diverge. Carries no message payload.
	NodeKindBranchPoint      NodeKind = "branch_point"
	NodeKindUserMessage      NodeKind = "user_message"
	NodeKindAssistantMessage NodeKind = "assistant_message"
)

// Valid reports whether k is a known node kind.
func (k NodeKind) Valid() bool {
	switch k {
	case NodeKindRoot, NodeKindBranchRoot, NodeKindBranchPoint,
		NodeKindUserMessage, NodeKindAssistantMessage:
		return true
	}
	return false
}

// HasMessage reports whether nodes of this kind carry a message payload.
func (k NodeKind) HasMessage() bool {
	return k == NodeKindUserMessage || k == NodeKindAssistantMessage
}

// MessageRole indicates who authored a message node.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// MessagePayload is the content carried by user_message and
// assistant_message nodes. Other kinds leave it nil.
type MessagePayload struct {
	Role MessageRole `json:"role"`
	Text string      `json:"text"`
}

// ===============================================
// Node Structure
// ===============================================

// Node is one entry in a branch's linear history.
type Node struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"-"`
	BranchID  string          `json:"branch_id"`
	ParentID  *string         `json:"parent_id,omitempty"` // nil only for the project root
	Kind      NodeKind        `json:"kind"`
	Position  int             `json:"position"` // strictly increasing within a branch
	Message   *MessagePayload `json:"message,omitempty"`
	// IsStreaming marks a synthetic in-flight assistant node overlaid on a
	// resolved path. Never persisted.
	IsStreaming bool      `json:"is_streaming,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

// Text returns the message text, or "" for non-message kinds.
func (n *Node) Text() string {
	if n.Message == nil {
		return ""
	}
	return n.Message.Text
}

// ===============================================
// Branch Structure
// ===============================================

// Direction is the horizontal side a branch fans out to on the subway map.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionLeft || d == DirectionRight
}

// Sign returns -1 for left and +1 for right.
func (d Direction) Sign() float64 {
	if d == DirectionLeft {
		return -1
	}
	return 1
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == DirectionLeft {
		return DirectionRight
	}
	return DirectionLeft
}

// BranchLayout is the persisted subway-map placement of a branch, written by
// the layout engine and read by every renderer.
type BranchLayout struct {
	X            float64   `json:"x"`
	Direction    Direction `json:"direction"`
	SiblingIndex int       `json:"sibling_index"`
}

// Branch is a named, colored line of conversation.
type Branch struct {
	ID        string  `json:"id"`
	ProjectID string  `json:"-"`
	Name      string  `json:"name"`
	ParentID  *string `json:"parent_branch_id,omitempty"`
	// BranchPointNodeID is the node in the parent branch this branch forks
	// from. Nil only for the root branch.
	BranchPointNodeID *string `json:"branch_point_node_id,omitempty"`
	Depth             int     `json:"depth"` // 0 for the root branch
	// Color is sticky once assigned by the allocator.
	Color string `json:"color,omitempty"`
	// DirectionHint is the explicit side requested at creation time, if any.
	// It overrides sibling-ordinal alternation.
	DirectionHint *Direction    `json:"direction_hint,omitempty"`
	Layout        *BranchLayout `json:"layout,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	CreatedBy     string        `json:"created_by,omitempty"`
}

// IsRoot reports whether b is the project's root branch.
func (b *Branch) IsRoot() bool {
	return b.ParentID == nil
}
