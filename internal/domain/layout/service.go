package layout

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"tramway-server/internal/domain/timeline"
)

// Service orchestrates layout recomputation: it runs the pure engine over a
// fresh snapshot, merges the result into the cache, and persists each
// branch's placement (and first-assigned color) so repeated renders need no
// recompute.
type Service struct {
	engine    *Engine
	cache     *Cache
	timelines *timeline.Service
	repo      timeline.Repository
	log       zerolog.Logger
}

// NewService wires dependencies.
func NewService(engine *Engine, cache *Cache, timelines *timeline.Service, repo timeline.Repository, log zerolog.Logger) *Service {
	return &Service{
		engine:    engine,
		cache:     cache,
		timelines: timelines,
		repo:      repo,
		log:       log.With().Str("component", "layout-service").Logger(),
	}
}

// Cache exposes the placement cache for readers.
func (s *Service) Cache() *Cache {
	return s.cache
}

// MarkProjectStale flags every branch of a project stale after a tree
// mutation. Stale placements remain usable until the recompute lands.
func (s *Service) MarkProjectStale(ctx context.Context, projectID string) {
	snap, err := s.timelines.Snapshot(ctx, projectID)
	if err != nil {
		s.log.Warn().Err(err).Str("project_id", projectID).Msg("mark stale: snapshot unavailable")
		return
	}
	ids := make([]string, 0, len(snap.Branches()))
	for _, b := range snap.Branches() {
		ids = append(ids, b.ID)
	}
	s.cache.MarkStale(ids...)
}

// Recompute refreshes the snapshot, runs the engine over the whole branch
// tree, merges the placements into the cache, and persists any placement or
// color that changed. Persistence failures degrade to a warning: the cache
// already holds the fresh result and the next recompute retries the write.
func (s *Service) Recompute(ctx context.Context, projectID string) error {
	snap, err := s.timelines.Refresh(ctx, projectID)
	if err != nil {
		return fmt.Errorf("refresh snapshot: %w", err)
	}

	results := s.engine.Compute(snap)
	s.cache.Merge(results)

	for _, b := range snap.Branches() {
		geo := results[b.ID]
		if b.Layout == nil || *b.Layout != geo.BranchLayout {
			if err := s.repo.PersistBranchLayout(ctx, b.ID, geo.BranchLayout); err != nil {
				s.log.Warn().Err(err).Str("branch_id", b.ID).Msg("persist branch layout failed")
			}
		}
		if b.Color == "" && geo.Color != "" {
			if err := s.repo.PersistBranchColor(ctx, b.ID, geo.Color); err != nil {
				s.log.Warn().Err(err).Str("branch_id", b.ID).Msg("persist branch color failed")
			}
		}
	}

	s.log.Debug().Str("project_id", projectID).Int("branches", len(results)).Msg("layout recomputed")
	return nil
}

// Layout returns the current placements for every branch of a project,
// computing synchronously on a cold cache. Stale entries are served as-is;
// callers needing freshness enqueue a recompute instead of blocking here.
func (s *Service) Layout(ctx context.Context, projectID string) (map[string]Geometry, error) {
	snap, err := s.timelines.Snapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}

	missing := false
	out := make(map[string]Geometry, len(snap.Branches()))
	for _, b := range snap.Branches() {
		geo, st, ok := s.cache.Get(b.ID)
		if !ok || !st.IsUsable() {
			missing = true
			break
		}
		out[b.ID] = geo
	}
	if !missing {
		return out, nil
	}

	// Cold cache: the engine is pure and cheap, so compute inline and let
	// the background worker take care of persistence later.
	results := s.engine.Compute(snap)
	s.cache.Merge(results)
	return results, nil
}
