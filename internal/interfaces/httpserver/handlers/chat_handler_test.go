package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tramway-server/internal/domain/chat"
	"tramway-server/internal/domain/timeline"
)

type mockChatService struct {
	SendMessageFunc func(ctx context.Context, projectID, branchID, text, userID string, obs chat.StreamObserver) error
	DisplayPathFunc func(ctx context.Context, projectID, branchID string) ([]*timeline.Node, error)
}

func (m *mockChatService) SendMessage(ctx context.Context, projectID, branchID, text, userID string, obs chat.StreamObserver) error {
	return m.SendMessageFunc(ctx, projectID, branchID, text, userID, obs)
}

func (m *mockChatService) DisplayPath(ctx context.Context, projectID, branchID string) ([]*timeline.Node, error) {
	return m.DisplayPathFunc(ctx, projectID, branchID)
}

func setupChatTestRouter(service ChatService, enqueuer RecomputeEnqueuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewChatHandler(service, enqueuer, zerolog.Nop())

	router := gin.New()
	router.GET("/v1/projects/:id/path", handler.Path)
	router.POST("/v1/projects/:id/messages", handler.SendMessage)
	return router
}

func pathNode(id, branchID string) *timeline.Node {
	return &timeline.Node{ID: id, ProjectID: "proj_1", BranchID: branchID, Kind: timeline.NodeKindUserMessage}
}

func TestChatHandlerPath(t *testing.T) {
	service := &mockChatService{
		DisplayPathFunc: func(ctx context.Context, projectID, branchID string) ([]*timeline.Node, error) {
			if branchID == "br_ghost" {
				return nil, timeline.ErrBranchNotFound
			}
			return []*timeline.Node{pathNode("node_root", "br_main"), pathNode("node_u1", "br_main")}, nil
		},
	}
	router := setupChatTestRouter(service, &mockEnqueuer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/projects/proj_1/path", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload struct {
		BranchID string            `json:"branch_id"`
		Nodes    []json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// Without an explicit branch_id the resolved branch comes from the path.
	if payload.BranchID != "br_main" {
		t.Errorf("branch_id = %s, want br_main", payload.BranchID)
	}
	if len(payload.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(payload.Nodes))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/projects/proj_1/path?branch_id=br_ghost", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestChatHandlerSendMessageStreamsEventsInOrder(t *testing.T) {
	userNode := pathNode("node_u1", "br_main")
	assistantNode := &timeline.Node{ID: "node_a1", BranchID: "br_main", Kind: timeline.NodeKindAssistantMessage}

	service := &mockChatService{
		SendMessageFunc: func(ctx context.Context, projectID, branchID, text, userID string, obs chat.StreamObserver) error {
			obs.OnUserMessage(userNode)
			obs.OnDelta("Hel")
			obs.OnDelta("lo")
			obs.OnCompleted(assistantNode)
			return nil
		},
	}
	enqueuer := &mockEnqueuer{}
	router := setupChatTestRouter(service, enqueuer)

	req := httptest.NewRequest(http.MethodPost, "/v1/projects/proj_1/messages", bytes.NewBufferString(`{"branch_id":"br_main","text":"Hi!"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %s, want text/event-stream", ct)
	}

	body := rec.Body.String()
	order := []string{"event:message.user", "event:message.delta", "event:message.completed"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(body, marker)
		if idx < 0 {
			t.Fatalf("event %q missing from stream:\n%s", marker, body)
		}
		if idx < last {
			t.Errorf("event %q out of order", marker)
		}
		last = idx
	}
	if strings.Contains(body, "event:message.error") {
		t.Error("completed stream must not carry an error event")
	}
	if len(enqueuer.enqueued) != 1 {
		t.Errorf("completed send should enqueue exactly one recompute, got %v", enqueuer.enqueued)
	}
}

func TestChatHandlerSendMessageMidStreamFault(t *testing.T) {
	service := &mockChatService{
		SendMessageFunc: func(ctx context.Context, projectID, branchID, text, userID string, obs chat.StreamObserver) error {
			obs.OnUserMessage(pathNode("node_u1", "br_main"))
			obs.OnDelta("par")
			obs.OnError(context.DeadlineExceeded)
			return nil
		},
	}
	enqueuer := &mockEnqueuer{}
	router := setupChatTestRouter(service, enqueuer)

	req := httptest.NewRequest(http.MethodPost, "/v1/projects/proj_1/messages", bytes.NewBufferString(`{"text":"Hi!"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "event:message.error") {
		t.Fatalf("error event missing:\n%s", body)
	}
	if strings.Contains(body, "event:message.completed") {
		t.Error("failed stream must not carry a completed event")
	}
	if !strings.Contains(body, chat.FailureText) {
		t.Error("error event should carry the fallback text")
	}
	if len(enqueuer.enqueued) != 0 {
		t.Errorf("failed send must not enqueue a recompute, got %v", enqueuer.enqueued)
	}
}

func TestChatHandlerSendMessageSynchronousRejection(t *testing.T) {
	service := &mockChatService{
		SendMessageFunc: func(ctx context.Context, projectID, branchID, text, userID string, obs chat.StreamObserver) error {
			return chat.ErrStreamInProgress
		},
	}
	router := setupChatTestRouter(service, &mockEnqueuer{})

	req := httptest.NewRequest(http.MethodPost, "/v1/projects/proj_1/messages", bytes.NewBufferString(`{"text":"Hi!"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Headers are already committed as SSE, so the rejection arrives as an
	// error event rather than a status code.
	if !strings.Contains(rec.Body.String(), "event:message.error") {
		t.Errorf("rejection should surface as an error event:\n%s", rec.Body.String())
	}
}

func TestChatHandlerSendMessageValidatesBody(t *testing.T) {
	service := &mockChatService{
		SendMessageFunc: func(ctx context.Context, projectID, branchID, text, userID string, obs chat.StreamObserver) error {
			t.Fatal("service must not be called for an invalid body")
			return nil
		},
	}
	router := setupChatTestRouter(service, &mockEnqueuer{})

	req := httptest.NewRequest(http.MethodPost, "/v1/projects/proj_1/messages", bytes.NewBufferString(`{"branch_id":"br_main"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
