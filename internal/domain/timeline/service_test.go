package timeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"tramway-server/internal/domain/timeline"
)

// fakeRepo serves canned listings and records writes.
type fakeRepo struct {
	branches []*timeline.Branch
	nodes    []*timeline.Node

	listErr       error
	createdBranch *timeline.CreateBranchParams
	deletedNode   string
}

func (f *fakeRepo) ListBranches(ctx context.Context, projectID string) ([]*timeline.Branch, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.branches, nil
}

func (f *fakeRepo) ListNodes(ctx context.Context, projectID string) ([]*timeline.Node, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.nodes, nil
}

func (f *fakeRepo) CreateRootBranch(ctx context.Context, projectID, createdBy string) (*timeline.Branch, error) {
	return &timeline.Branch{ID: "br_main", ProjectID: projectID}, nil
}

func (f *fakeRepo) CreateMessageNode(ctx context.Context, params timeline.CreateMessageParams) (*timeline.Node, error) {
	return &timeline.Node{ID: "node_new", ProjectID: params.ProjectID, BranchID: params.BranchID}, nil
}

func (f *fakeRepo) CreateBranch(ctx context.Context, params timeline.CreateBranchParams) (*timeline.Branch, error) {
	f.createdBranch = &params
	return &timeline.Branch{
		ID:                "br_new",
		ProjectID:         params.ProjectID,
		ParentID:          &params.ParentBranchID,
		BranchPointNodeID: &params.BranchPointNodeID,
		Depth:             1,
	}, nil
}

func (f *fakeRepo) PersistBranchLayout(ctx context.Context, branchID string, layout timeline.BranchLayout) error {
	return nil
}

func (f *fakeRepo) PersistBranchColor(ctx context.Context, branchID, color string) error {
	return nil
}

func (f *fakeRepo) DeleteLeafNode(ctx context.Context, projectID, nodeID string) error {
	f.deletedNode = nodeID
	return nil
}

func fixtureRepo() *fakeRepo {
	return &fakeRepo{
		branches: []*timeline.Branch{
			{ID: "br_main", ProjectID: "proj_1", Depth: 0, CreatedAt: at(0)},
			{
				ID: "br_b", ProjectID: "proj_1", ParentID: strPtr("br_main"),
				BranchPointNodeID: strPtr("node_a1"), Depth: 1, CreatedAt: at(100),
			},
		},
		nodes: []*timeline.Node{
			{ID: "node_root", ProjectID: "proj_1", BranchID: "br_main", Kind: timeline.NodeKindRoot, Position: 0, CreatedAt: at(0)},
			messageNode("node_u1", "br_main", "node_root", 1, timeline.RoleUser, "U1"),
			messageNode("node_a1", "br_main", "node_u1", 2, timeline.RoleAssistant, "A1"),
			messageNode("node_u2", "br_main", "node_a1", 3, timeline.RoleUser, "U2"),
			messageNode("node_a2", "br_main", "node_u2", 4, timeline.RoleAssistant, "A2"),
			{
				ID: "node_broot", ProjectID: "proj_1", BranchID: "br_b",
				ParentID: strPtr("node_a1"), Kind: timeline.NodeKindBranchRoot,
				Position: 0, CreatedAt: at(100),
			},
		},
	}
}

func TestServiceRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	repo := fixtureRepo()
	svc := timeline.NewService(repo, zerolog.Nop())
	ctx := context.Background()

	first, err := svc.Refresh(ctx, "proj_1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	repo.listErr = errors.New("database gone")
	if _, err := svc.Refresh(ctx, "proj_1"); err == nil {
		t.Fatal("expected refresh error")
	}

	snap, err := svc.Snapshot(ctx, "proj_1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap != first {
		t.Error("failed refresh should leave the previous snapshot installed")
	}
}

func TestServiceCreateBranch_RejectsOutOfPathBranchPoint(t *testing.T) {
	repo := fixtureRepo()
	svc := timeline.NewService(repo, zerolog.Nop())
	ctx := context.Background()

	// node_broot belongs to br_b, not to br_main's resolved path.
	_, err := svc.CreateBranch(ctx, timeline.CreateBranchParams{
		ProjectID:         "proj_1",
		ParentBranchID:    "br_main",
		BranchPointNodeID: "node_broot",
	})
	if !errors.Is(err, timeline.ErrInvalidBranchPoint) {
		t.Fatalf("err = %v, want ErrInvalidBranchPoint", err)
	}
	if repo.createdBranch != nil {
		t.Error("rejected fork must not reach the repository")
	}
}

func TestServiceCreateBranch_RejectsUnknownParent(t *testing.T) {
	svc := timeline.NewService(fixtureRepo(), zerolog.Nop())

	_, err := svc.CreateBranch(context.Background(), timeline.CreateBranchParams{
		ProjectID:         "proj_1",
		ParentBranchID:    "br_missing",
		BranchPointNodeID: "node_a1",
	})
	if !errors.Is(err, timeline.ErrBranchNotFound) {
		t.Fatalf("err = %v, want ErrBranchNotFound", err)
	}
}

func TestServiceCreateBranch_AcceptsMidPathForkNode(t *testing.T) {
	repo := fixtureRepo()
	svc := timeline.NewService(repo, zerolog.Nop())

	hint := timeline.DirectionLeft
	branch, err := svc.CreateBranch(context.Background(), timeline.CreateBranchParams{
		ProjectID:         "proj_1",
		ParentBranchID:    "br_main",
		BranchPointNodeID: "node_u1",
		DirectionHint:     &hint,
	})
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if branch == nil || repo.createdBranch == nil {
		t.Fatal("expected branch to be persisted")
	}
	if repo.createdBranch.BranchPointNodeID != "node_u1" {
		t.Errorf("persisted branch point = %s, want node_u1", repo.createdBranch.BranchPointNodeID)
	}
}

func TestServiceDeleteNode(t *testing.T) {
	tests := []struct {
		name    string
		nodeID  string
		wantErr error
	}{
		{name: "leaf node deletes", nodeID: "node_a2"},
		{name: "node with children rejected", nodeID: "node_u2", wantErr: timeline.ErrNodeNotDeletable},
		{name: "fork node rejected", nodeID: "node_a1", wantErr: timeline.ErrNodeNotDeletable},
		{name: "unknown node", nodeID: "node_ghost", wantErr: timeline.ErrNodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := fixtureRepo()
			svc := timeline.NewService(repo, zerolog.Nop())

			err := svc.DeleteNode(context.Background(), "proj_1", tt.nodeID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if repo.deletedNode != "" {
					t.Error("rejected delete must not reach the repository")
				}
				return
			}
			if err != nil {
				t.Fatalf("DeleteNode: %v", err)
			}
			if repo.deletedNode != tt.nodeID {
				t.Errorf("deleted %s, want %s", repo.deletedNode, tt.nodeID)
			}
		})
	}
}
