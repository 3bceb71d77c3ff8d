package timeline

import (
	"context"
	"errors"
)

// Validation faults, rejected before any write is attempted.
var (
	ErrInvalidBranchPoint = errors.New("timeline: branch point node does not belong to the parent branch path")
	ErrNoParentNode       = errors.New("timeline: no resolvable parent node")
	ErrNodeNotDeletable   = errors.New("timeline: node has children or forked branches")
	ErrNodeNotFound       = errors.New("timeline: node not found")
)

// CreateMessageParams carries a new user or assistant message node.
type CreateMessageParams struct {
	ProjectID string
	BranchID  string
	ParentID  string
	Role      MessageRole
	Text      string
	CreatedBy string
}

// CreateBranchParams carries a new branch fork request.
type CreateBranchParams struct {
	ProjectID         string
	ParentBranchID    string
	BranchPointNodeID string
	Name              string
	DirectionHint     *Direction
	CreatedBy         string
}

// Repository is the persistence boundary for branches and nodes. All writes
// are append-only except layout metadata and leaf deletion.
type Repository interface {
	ListBranches(ctx context.Context, projectID string) ([]*Branch, error)
	ListNodes(ctx context.Context, projectID string) ([]*Node, error)

	// CreateRootBranch provisions a project's root branch together with its
	// root node. Called once per project.
	CreateRootBranch(ctx context.Context, projectID, createdBy string) (*Branch, error)

	CreateMessageNode(ctx context.Context, params CreateMessageParams) (*Node, error)

	// CreateBranch inserts the branch row, its synthetic branch_root node,
	// and — on the first fork from a node — a branch_point marker in the
	// parent branch.
	CreateBranch(ctx context.Context, params CreateBranchParams) (*Branch, error)

	PersistBranchLayout(ctx context.Context, branchID string, layout BranchLayout) error
	PersistBranchColor(ctx context.Context, branchID, color string) error

	// DeleteLeafNode removes a node that has no child nodes and no branches
	// forked from it; otherwise it fails with ErrNodeNotDeletable.
	DeleteLeafNode(ctx context.Context, projectID, nodeID string) error
}
