// Package handlers holds the gin HTTP handlers.
package handlers

import (
	"context"

	"github.com/rs/zerolog"

	"tramway-server/internal/domain/chat"
	"tramway-server/internal/domain/layout"
	"tramway-server/internal/domain/project"
	"tramway-server/internal/domain/timeline"
)

// ProjectService is the project surface the handlers depend on.
type ProjectService interface {
	Create(ctx context.Context, params project.CreateParams) (*project.Project, error)
	Get(ctx context.Context, projectID string) (*project.Project, error)
	List(ctx context.Context) ([]*project.Project, error)
	Update(ctx context.Context, projectID string, params project.UpdateParams) (*project.Project, error)
	Delete(ctx context.Context, projectID string) error
}

// TimelineService is the branch/node surface the handlers depend on.
type TimelineService interface {
	CreateBranch(ctx context.Context, params timeline.CreateBranchParams) (*timeline.Branch, error)
	DeleteNode(ctx context.Context, projectID, nodeID string) error
}

// LayoutService is the placement surface the handlers depend on.
type LayoutService interface {
	Layout(ctx context.Context, projectID string) (map[string]layout.Geometry, error)
	Recompute(ctx context.Context, projectID string) error
	Cache() *layout.Cache
}

// ChatService is the messaging surface the handlers depend on.
type ChatService interface {
	SendMessage(ctx context.Context, projectID, branchID, text, userID string, obs chat.StreamObserver) error
	DisplayPath(ctx context.Context, projectID, branchID string) ([]*timeline.Node, error)
}

// RecomputeEnqueuer schedules a background layout recompute after a tree
// mutation.
type RecomputeEnqueuer interface {
	EnqueueRecompute(ctx context.Context, projectID string) error
}

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Project  *ProjectHandler
	Timeline *TimelineHandler
	Chat     *ChatHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(
	projectService ProjectService,
	timelineService TimelineService,
	layoutService LayoutService,
	chatService ChatService,
	enqueuer RecomputeEnqueuer,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Project:  NewProjectHandler(projectService, log),
		Timeline: NewTimelineHandler(timelineService, layoutService, enqueuer, log),
		Chat:     NewChatHandler(chatService, enqueuer, log),
	}
}
