package project

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"tramway-server/internal/domain/layout"
	"tramway-server/internal/domain/timeline"
)

// Service manages project lifecycle. Creation provisions the root branch so
// every project is immediately sendable-to; deletion tears down the in-memory
// snapshot store and layout cache alongside the rows.
type Service struct {
	repo      Repository
	timeline  timeline.Repository
	timelines *timeline.Service
	layouts   *layout.Service
	log       zerolog.Logger
}

// NewService wires dependencies.
func NewService(repo Repository, timelineRepo timeline.Repository, timelines *timeline.Service, layouts *layout.Service, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		timeline:  timelineRepo,
		timelines: timelines,
		layouts:   layouts,
		log:       log.With().Str("component", "project-service").Logger(),
	}
}

// Create persists the project and provisions its root branch with the root
// node at position 0.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Project, error) {
	proj, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	if _, err := s.timeline.CreateRootBranch(ctx, proj.ID, params.CreatedBy); err != nil {
		// Roll the project row back so no unsendable shell is left behind.
		if delErr := s.repo.Delete(ctx, proj.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("project_id", proj.ID).Msg("rollback of half-provisioned project failed")
		}
		return nil, fmt.Errorf("provision root branch: %w", err)
	}
	s.log.Info().Str("project_id", proj.ID).Str("name", proj.Name).Msg("project created")
	return proj, nil
}

// Get returns a project by id.
func (s *Service) Get(ctx context.Context, projectID string) (*Project, error) {
	return s.repo.Get(ctx, projectID)
}

// List returns all projects, newest first.
func (s *Service) List(ctx context.Context) ([]*Project, error) {
	return s.repo.List(ctx)
}

// Update applies partial changes to a project.
func (s *Service) Update(ctx context.Context, projectID string, params UpdateParams) (*Project, error) {
	return s.repo.Update(ctx, projectID, params)
}

// Delete removes the project with all branches and nodes, then drops the
// project's snapshot store and layout cache entries.
func (s *Service) Delete(ctx context.Context, projectID string) error {
	var branchIDs []string
	if snap, err := s.timelines.Snapshot(ctx, projectID); err == nil {
		for _, b := range snap.Branches() {
			branchIDs = append(branchIDs, b.ID)
		}
	}

	if err := s.repo.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	s.timelines.Forget(projectID)
	if len(branchIDs) > 0 {
		s.layouts.Cache().Remove(branchIDs...)
	}
	s.log.Info().Str("project_id", projectID).Msg("project deleted")
	return nil
}
