package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tramway-server/internal/domain/chat"
	"tramway-server/internal/domain/timeline"
	"tramway-server/internal/infrastructure/metrics"
	"tramway-server/internal/interfaces/httpserver/responses"
)

// ChatHandler exposes the display path and the SSE send-message entrypoint.
type ChatHandler struct {
	service  ChatService
	enqueuer RecomputeEnqueuer
	log      zerolog.Logger
}

// NewChatHandler constructs the handler.
func NewChatHandler(service ChatService, enqueuer RecomputeEnqueuer, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service:  service,
		enqueuer: enqueuer,
		log:      log.With().Str("handler", "chat").Logger(),
	}
}

// SendMessageRequest is the POST /v1/projects/:id/messages body.
type SendMessageRequest struct {
	BranchID string `json:"branch_id"`
	Text     string `json:"text" binding:"required"`
}

// Path handles GET /v1/projects/:id/path
func (h *ChatHandler) Path(c *gin.Context) {
	projectID := c.Param("id")
	branchID := c.Query("branch_id")

	nodes, err := h.service.DisplayPath(c.Request.Context(), projectID, branchID)
	if err != nil {
		metrics.RecordPathResolution("error")
		responses.HandleError(c, err, "failed to resolve path")
		return
	}
	metrics.RecordPathResolution("ok")

	resolvedBranch := branchID
	if resolvedBranch == "" && len(nodes) > 0 {
		resolvedBranch = nodes[len(nodes)-1].BranchID
	}
	c.JSON(http.StatusOK, responses.PathResponse{
		BranchID: resolvedBranch,
		Nodes:    nodes,
	})
}

// SendMessage handles POST /v1/projects/:id/messages. The reply is streamed
// as SSE events: message.user, message.delta, then exactly one of
// message.completed or message.error.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   err.Error(),
			Message: "invalid message payload",
		})
		return
	}

	projectID := c.Param("id")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeaderNow()

	obs := &sseObserver{c: c}
	err := h.service.SendMessage(c.Request.Context(), projectID, req.BranchID, req.Text, c.GetHeader("X-User-ID"), obs)
	if err != nil {
		// Validation faults arrive before any event was written; surface them
		// as an error event so the SSE contract holds.
		metrics.RecordStreamSession("rejected")
		obs.OnError(err)
		return
	}

	if obs.completed {
		metrics.RecordStreamSession("completed")
		if enqErr := h.enqueuer.EnqueueRecompute(c.Request.Context(), projectID); enqErr != nil {
			h.log.Warn().Err(enqErr).Str("project_id", projectID).Msg("enqueue recompute failed")
		}
	} else {
		metrics.RecordStreamSession("failed")
	}
}

// sseObserver writes stream events to the client as they happen.
type sseObserver struct {
	c         *gin.Context
	completed bool
}

func (o *sseObserver) OnUserMessage(node *timeline.Node) {
	o.emit("message.user", node)
}

func (o *sseObserver) OnDelta(text string) {
	metrics.RecordStreamChunk()
	o.emit("message.delta", gin.H{"text": text})
}

func (o *sseObserver) OnCompleted(node *timeline.Node) {
	o.completed = true
	o.emit("message.completed", node)
}

func (o *sseObserver) OnError(err error) {
	o.emit("message.error", gin.H{
		"error": err.Error(),
		"text":  chat.FailureText,
	})
}

func (o *sseObserver) emit(event string, payload any) {
	o.c.SSEvent(event, payload)
	o.c.Writer.Flush()
}
