package project_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tramway-server/internal/domain/layout"
	"tramway-server/internal/domain/project"
	"tramway-server/internal/domain/timeline"
)

type fakeProjectRepo struct {
	projects map[string]*project.Project
	deleted  []string
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[string]*project.Project)}
}

func (f *fakeProjectRepo) Create(ctx context.Context, params project.CreateParams) (*project.Project, error) {
	p := &project.Project{
		ID:        "proj_" + params.Name,
		Name:      params.Name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		CreatedBy: params.CreatedBy,
	}
	f.projects[p.ID] = p
	return p, nil
}

func (f *fakeProjectRepo) Get(ctx context.Context, projectID string) (*project.Project, error) {
	p, ok := f.projects[projectID]
	if !ok {
		return nil, project.ErrProjectNotFound
	}
	return p, nil
}

func (f *fakeProjectRepo) List(ctx context.Context) ([]*project.Project, error) {
	out := make([]*project.Project, 0, len(f.projects))
	for _, p := range f.projects {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProjectRepo) Update(ctx context.Context, projectID string, params project.UpdateParams) (*project.Project, error) {
	return f.Get(ctx, projectID)
}

func (f *fakeProjectRepo) Delete(ctx context.Context, projectID string) error {
	if _, ok := f.projects[projectID]; !ok {
		return project.ErrProjectNotFound
	}
	delete(f.projects, projectID)
	f.deleted = append(f.deleted, projectID)
	return nil
}

type fakeTimelineRepo struct {
	branches      map[string][]*timeline.Branch
	rootBranchErr error
}

func newFakeTimelineRepo() *fakeTimelineRepo {
	return &fakeTimelineRepo{branches: make(map[string][]*timeline.Branch)}
}

func (f *fakeTimelineRepo) ListBranches(ctx context.Context, projectID string) ([]*timeline.Branch, error) {
	return f.branches[projectID], nil
}

func (f *fakeTimelineRepo) ListNodes(ctx context.Context, projectID string) ([]*timeline.Node, error) {
	return nil, nil
}

func (f *fakeTimelineRepo) CreateRootBranch(ctx context.Context, projectID, createdBy string) (*timeline.Branch, error) {
	if f.rootBranchErr != nil {
		return nil, f.rootBranchErr
	}
	b := &timeline.Branch{ID: "br_" + projectID, ProjectID: projectID, Name: "main", CreatedAt: time.Now()}
	f.branches[projectID] = append(f.branches[projectID], b)
	return b, nil
}

func (f *fakeTimelineRepo) CreateMessageNode(ctx context.Context, params timeline.CreateMessageParams) (*timeline.Node, error) {
	return nil, errors.New("not used")
}

func (f *fakeTimelineRepo) CreateBranch(ctx context.Context, params timeline.CreateBranchParams) (*timeline.Branch, error) {
	return nil, errors.New("not used")
}

func (f *fakeTimelineRepo) PersistBranchLayout(ctx context.Context, branchID string, l timeline.BranchLayout) error {
	return nil
}

func (f *fakeTimelineRepo) PersistBranchColor(ctx context.Context, branchID, color string) error {
	return nil
}

func (f *fakeTimelineRepo) DeleteLeafNode(ctx context.Context, projectID, nodeID string) error {
	return errors.New("not used")
}

func newProjectService(repo *fakeProjectRepo, timelineRepo *fakeTimelineRepo) (*project.Service, *layout.Service) {
	timelines := timeline.NewService(timelineRepo, zerolog.Nop())
	layouts := layout.NewService(layout.NewEngine(), layout.NewCache(), timelines, timelineRepo, zerolog.Nop())
	return project.NewService(repo, timelineRepo, timelines, layouts, zerolog.Nop()), layouts
}

func TestServiceCreateProvisionsRootBranch(t *testing.T) {
	repo := newFakeProjectRepo()
	timelineRepo := newFakeTimelineRepo()
	svc, _ := newProjectService(repo, timelineRepo)

	proj, err := svc.Create(context.Background(), project.CreateParams{Name: "demo"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(timelineRepo.branches[proj.ID]) != 1 {
		t.Errorf("root branches = %d, want 1", len(timelineRepo.branches[proj.ID]))
	}
}

func TestServiceCreateRollsBackOnProvisionFailure(t *testing.T) {
	repo := newFakeProjectRepo()
	timelineRepo := newFakeTimelineRepo()
	timelineRepo.rootBranchErr = errors.New("db gone")
	svc, _ := newProjectService(repo, timelineRepo)

	_, err := svc.Create(context.Background(), project.CreateParams{Name: "demo"})
	if err == nil {
		t.Fatal("expected error when root branch provisioning fails")
	}
	if len(repo.projects) != 0 {
		t.Errorf("half-provisioned project left behind: %v", repo.projects)
	}
}

func TestServiceDeleteDropsCaches(t *testing.T) {
	repo := newFakeProjectRepo()
	timelineRepo := newFakeTimelineRepo()
	svc, layouts := newProjectService(repo, timelineRepo)
	ctx := context.Background()

	proj, err := svc.Create(ctx, project.CreateParams{Name: "demo"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	branchID := "br_" + proj.ID
	layouts.Cache().Merge(map[string]layout.Geometry{branchID: {}})

	if err := svc.Delete(ctx, proj.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, ok := layouts.Cache().Get(branchID); ok {
		t.Error("layout cache entry survived project deletion")
	}
	if _, err := svc.Get(ctx, proj.ID); !errors.Is(err, project.ErrProjectNotFound) {
		t.Errorf("Get after delete = %v, want ErrProjectNotFound", err)
	}
}
