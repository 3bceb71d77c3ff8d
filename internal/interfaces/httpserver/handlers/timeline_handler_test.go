package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tramway-server/internal/domain/layout"
	"tramway-server/internal/domain/timeline"
)

type mockTimelineService struct {
	CreateBranchFunc func(ctx context.Context, params timeline.CreateBranchParams) (*timeline.Branch, error)
	DeleteNodeFunc   func(ctx context.Context, projectID, nodeID string) error
}

func (m *mockTimelineService) CreateBranch(ctx context.Context, params timeline.CreateBranchParams) (*timeline.Branch, error) {
	return m.CreateBranchFunc(ctx, params)
}

func (m *mockTimelineService) DeleteNode(ctx context.Context, projectID, nodeID string) error {
	return m.DeleteNodeFunc(ctx, projectID, nodeID)
}

type mockLayoutService struct {
	LayoutFunc    func(ctx context.Context, projectID string) (map[string]layout.Geometry, error)
	RecomputeFunc func(ctx context.Context, projectID string) error
	cache         *layout.Cache
}

func (m *mockLayoutService) Layout(ctx context.Context, projectID string) (map[string]layout.Geometry, error) {
	return m.LayoutFunc(ctx, projectID)
}

func (m *mockLayoutService) Recompute(ctx context.Context, projectID string) error {
	return m.RecomputeFunc(ctx, projectID)
}

func (m *mockLayoutService) Cache() *layout.Cache {
	if m.cache == nil {
		m.cache = layout.NewCache()
	}
	return m.cache
}

type mockEnqueuer struct {
	enqueued []string
	err      error
}

func (m *mockEnqueuer) EnqueueRecompute(ctx context.Context, projectID string) error {
	m.enqueued = append(m.enqueued, projectID)
	return m.err
}

func setupTimelineTestRouter(timelines TimelineService, layouts LayoutService, enqueuer RecomputeEnqueuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewTimelineHandler(timelines, layouts, enqueuer, zerolog.Nop())

	router := gin.New()
	router.POST("/v1/projects/:id/branches", handler.CreateBranch)
	router.GET("/v1/projects/:id/layout", handler.Layout)
	router.POST("/v1/projects/:id/layout/recompute", handler.Recompute)
	router.DELETE("/v1/projects/:id/nodes/:node_id", handler.DeleteNode)
	return router
}

func TestTimelineHandlerCreateBranch(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		serviceErr  error
		wantStatus  int
		wantEnqueue bool
	}{
		{
			name:        "created with hint",
			body:        `{"parent_branch_id":"br_main","branch_point_node_id":"node_a1","direction":"left"}`,
			wantStatus:  http.StatusCreated,
			wantEnqueue: true,
		},
		{
			name:       "missing branch point",
			body:       `{"parent_branch_id":"br_main"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "branch point outside parent path",
			body:       `{"parent_branch_id":"br_main","branch_point_node_id":"node_elsewhere"}`,
			serviceErr: timeline.ErrInvalidBranchPoint,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown parent branch",
			body:       `{"parent_branch_id":"br_ghost","branch_point_node_id":"node_a1"}`,
			serviceErr: timeline.ErrBranchNotFound,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotHint *timeline.Direction
			timelines := &mockTimelineService{
				CreateBranchFunc: func(ctx context.Context, params timeline.CreateBranchParams) (*timeline.Branch, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					gotHint = params.DirectionHint
					return &timeline.Branch{ID: "br_new", ProjectID: params.ProjectID}, nil
				},
			}
			enqueuer := &mockEnqueuer{}
			router := setupTimelineTestRouter(timelines, &mockLayoutService{}, enqueuer)

			req := httptest.NewRequest(http.MethodPost, "/v1/projects/proj_1/branches", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantEnqueue {
				if len(enqueuer.enqueued) != 1 || enqueuer.enqueued[0] != "proj_1" {
					t.Errorf("enqueued = %v, want [proj_1]", enqueuer.enqueued)
				}
				if gotHint == nil || *gotHint != timeline.DirectionLeft {
					t.Errorf("direction hint = %v, want left", gotHint)
				}
			} else if len(enqueuer.enqueued) != 0 {
				t.Errorf("rejected request still enqueued recompute: %v", enqueuer.enqueued)
			}
		})
	}
}

func TestTimelineHandlerLayout(t *testing.T) {
	layouts := &mockLayoutService{
		LayoutFunc: func(ctx context.Context, projectID string) (map[string]layout.Geometry, error) {
			return map[string]layout.Geometry{
				"br_main": {
					BranchLayout: timeline.BranchLayout{X: 0, Direction: timeline.DirectionRight},
					Color:        "#3b82f6",
				},
				"br_a": {
					BranchLayout: timeline.BranchLayout{X: -320, Direction: timeline.DirectionLeft, SiblingIndex: 0},
					BaseY:        360,
					Color:        "#ef4444",
				},
			}, nil
		},
	}
	layouts.Cache().Merge(map[string]layout.Geometry{"br_main": {}, "br_a": {}})
	router := setupTimelineTestRouter(&mockTimelineService{}, layouts, &mockEnqueuer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/projects/proj_1/layout", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload struct {
		ProjectID string `json:"project_id"`
		Branches  []struct {
			BranchID  string  `json:"branch_id"`
			X         float64 `json:"x"`
			Direction string  `json:"direction"`
			Status    string  `json:"status"`
		} `json:"branches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.ProjectID != "proj_1" {
		t.Errorf("project_id = %s, want proj_1", payload.ProjectID)
	}
	if len(payload.Branches) != 2 {
		t.Fatalf("branches = %d, want 2", len(payload.Branches))
	}
	// Sorted by branch id for a stable response shape.
	if payload.Branches[0].BranchID != "br_a" || payload.Branches[1].BranchID != "br_main" {
		t.Errorf("branch order = [%s %s], want [br_a br_main]", payload.Branches[0].BranchID, payload.Branches[1].BranchID)
	}
	if payload.Branches[0].X != -320 || payload.Branches[0].Direction != "left" {
		t.Errorf("br_a placement = %+v", payload.Branches[0])
	}
	if payload.Branches[0].Status != string(layout.StatusComputed) {
		t.Errorf("status = %s, want computed", payload.Branches[0].Status)
	}
}

func TestTimelineHandlerRecompute(t *testing.T) {
	var recomputed string
	layouts := &mockLayoutService{
		RecomputeFunc: func(ctx context.Context, projectID string) error {
			recomputed = projectID
			return nil
		},
	}
	router := setupTimelineTestRouter(&mockTimelineService{}, layouts, &mockEnqueuer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/projects/proj_1/layout/recompute", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if recomputed != "proj_1" {
		t.Errorf("recomputed = %s, want proj_1", recomputed)
	}
}

func TestTimelineHandlerDeleteNode(t *testing.T) {
	tests := []struct {
		name        string
		serviceErr  error
		wantStatus  int
		wantEnqueue bool
	}{
		{name: "leaf deleted", wantStatus: http.StatusNoContent, wantEnqueue: true},
		{name: "not a leaf", serviceErr: timeline.ErrNodeNotDeletable, wantStatus: http.StatusBadRequest},
		{name: "unknown node", serviceErr: timeline.ErrNodeNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timelines := &mockTimelineService{
				DeleteNodeFunc: func(ctx context.Context, projectID, nodeID string) error {
					return tt.serviceErr
				},
			}
			enqueuer := &mockEnqueuer{}
			router := setupTimelineTestRouter(timelines, &mockLayoutService{}, enqueuer)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/projects/proj_1/nodes/node_a2", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantEnqueue != (len(enqueuer.enqueued) == 1) {
				t.Errorf("enqueued = %v, wantEnqueue %v", enqueuer.enqueued, tt.wantEnqueue)
			}
		})
	}
}
