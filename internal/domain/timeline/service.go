package timeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Service orchestrates the per-project snapshot stores over the repository.
// The domain algorithms themselves (resolution, layout) stay pure; this layer
// owns the I/O around them.
type Service struct {
	repo Repository
	log  zerolog.Logger

	mu     sync.Mutex
	stores map[string]*Store // project id -> store
}

// NewService wires dependencies.
func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		log:    log.With().Str("component", "timeline-service").Logger(),
		stores: make(map[string]*Store),
	}
}

// StoreFor returns the snapshot store for a project, creating it on first use.
func (s *Service) StoreFor(projectID string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	store, ok := s.stores[projectID]
	if !ok {
		store = NewStore()
		s.stores[projectID] = store
	}
	return store
}

// Forget drops a project's store, used when the project is deleted.
func (s *Service) Forget(projectID string) {
	s.mu.Lock()
	delete(s.stores, projectID)
	s.mu.Unlock()
}

// Refresh fetches the full branch and node listings and installs them as a
// new snapshot. The previous snapshot stays readable until the replacement is
// complete; a fetch failure leaves it untouched.
func (s *Service) Refresh(ctx context.Context, projectID string) (*Snapshot, error) {
	branches, err := s.repo.ListBranches(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	nodes, err := s.repo.ListNodes(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	snap, err := BuildSnapshot(projectID, branches, nodes)
	if err != nil {
		return nil, fmt.Errorf("build snapshot: %w", err)
	}
	s.StoreFor(projectID).Replace(snap)
	return snap, nil
}

// Snapshot returns the current snapshot, refreshing on first access.
func (s *Service) Snapshot(ctx context.Context, projectID string) (*Snapshot, error) {
	if snap := s.StoreFor(projectID).Current(); snap != nil {
		return snap, nil
	}
	return s.Refresh(ctx, projectID)
}

// ResolvePath resolves the display path for a branch against the current
// snapshot. An empty branchID selects the root branch.
func (s *Service) ResolvePath(ctx context.Context, projectID, branchID string) ([]*Node, error) {
	snap, err := s.Snapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return snap.ResolvePath(branchID)
}

// CreateBranch validates the fork request against the current snapshot and
// persists it. A dangling branch point (a node absent from the parent
// branch's resolved path) is rejected before any write.
func (s *Service) CreateBranch(ctx context.Context, params CreateBranchParams) (*Branch, error) {
	snap, err := s.Snapshot(ctx, params.ProjectID)
	if err != nil {
		return nil, err
	}

	parent := snap.Branch(params.ParentBranchID)
	if parent == nil {
		return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, params.ParentBranchID)
	}
	if params.DirectionHint != nil && !params.DirectionHint.Valid() {
		return nil, fmt.Errorf("timeline: invalid direction hint %q", *params.DirectionHint)
	}

	parentPath, err := snap.ResolvePath(parent.ID)
	if err != nil {
		return nil, err
	}
	found := false
	for _, n := range parentPath {
		if n.ID == params.BranchPointNodeID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: node %s", ErrInvalidBranchPoint, params.BranchPointNodeID)
	}

	branch, err := s.repo.CreateBranch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create branch: %w", err)
	}
	if _, err := s.Refresh(ctx, params.ProjectID); err != nil {
		s.log.Warn().Err(err).Str("project_id", params.ProjectID).Msg("refresh after branch creation failed")
	}
	return branch, nil
}

// DeleteNode removes a leaf node. Nodes with children or with branches
// forked from them are rejected before the delete is attempted.
func (s *Service) DeleteNode(ctx context.Context, projectID, nodeID string) error {
	snap, err := s.Snapshot(ctx, projectID)
	if err != nil {
		return err
	}
	node := snap.Node(nodeID)
	if node == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	if snap.HasChildNodes(nodeID) || snap.HasForkedBranches(nodeID) {
		return fmt.Errorf("%w: %s", ErrNodeNotDeletable, nodeID)
	}
	if err := s.repo.DeleteLeafNode(ctx, projectID, nodeID); err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	if _, err := s.Refresh(ctx, projectID); err != nil {
		s.log.Warn().Err(err).Str("project_id", projectID).Msg("refresh after node deletion failed")
	}
	return nil
}
