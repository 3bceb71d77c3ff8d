package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tramway-server/internal/domain/timeline"
	"tramway-server/internal/interfaces/httpserver/responses"
)

// TimelineHandler exposes HTTP entrypoints for branches, nodes, and layout.
type TimelineHandler struct {
	timelines TimelineService
	layouts   LayoutService
	enqueuer  RecomputeEnqueuer
	log       zerolog.Logger
}

// NewTimelineHandler constructs the handler.
func NewTimelineHandler(timelines TimelineService, layouts LayoutService, enqueuer RecomputeEnqueuer, log zerolog.Logger) *TimelineHandler {
	return &TimelineHandler{
		timelines: timelines,
		layouts:   layouts,
		enqueuer:  enqueuer,
		log:       log.With().Str("handler", "timeline").Logger(),
	}
}

// CreateBranchRequest is the POST /v1/projects/:id/branches body.
type CreateBranchRequest struct {
	ParentBranchID    string `json:"parent_branch_id" binding:"required"`
	BranchPointNodeID string `json:"branch_point_node_id" binding:"required"`
	Name              string `json:"name"`
	Direction         string `json:"direction"`
}

// CreateBranch handles POST /v1/projects/:id/branches
func (h *TimelineHandler) CreateBranch(c *gin.Context) {
	var req CreateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   err.Error(),
			Message: "invalid branch payload",
		})
		return
	}

	params := timeline.CreateBranchParams{
		ProjectID:         c.Param("id"),
		ParentBranchID:    req.ParentBranchID,
		BranchPointNodeID: req.BranchPointNodeID,
		Name:              req.Name,
		CreatedBy:         c.GetHeader("X-User-ID"),
	}
	if req.Direction != "" {
		hint := timeline.Direction(req.Direction)
		params.DirectionHint = &hint
	}

	branch, err := h.timelines.CreateBranch(c.Request.Context(), params)
	if err != nil {
		responses.HandleError(c, err, "failed to create branch")
		return
	}

	if err := h.enqueuer.EnqueueRecompute(c.Request.Context(), params.ProjectID); err != nil {
		h.log.Warn().Err(err).Str("project_id", params.ProjectID).Msg("enqueue recompute failed")
	}

	c.JSON(http.StatusCreated, branch)
}

// Layout handles GET /v1/projects/:id/layout
func (h *TimelineHandler) Layout(c *gin.Context) {
	projectID := c.Param("id")

	placements, err := h.layouts.Layout(c.Request.Context(), projectID)
	if err != nil {
		responses.HandleError(c, err, "failed to compute layout")
		return
	}

	payload := responses.LayoutResponse{
		ProjectID: projectID,
		Branches:  make([]responses.BranchPlacement, 0, len(placements)),
	}
	cache := h.layouts.Cache()
	for branchID, geo := range placements {
		payload.Branches = append(payload.Branches, responses.NewBranchPlacement(branchID, geo, cache.StatusOf(branchID)))
	}
	sort.Slice(payload.Branches, func(i, j int) bool {
		return payload.Branches[i].BranchID < payload.Branches[j].BranchID
	})

	c.JSON(http.StatusOK, payload)
}

// Recompute handles POST /v1/projects/:id/layout/recompute
func (h *TimelineHandler) Recompute(c *gin.Context) {
	projectID := c.Param("id")
	if err := h.layouts.Recompute(c.Request.Context(), projectID); err != nil {
		responses.HandleError(c, err, "failed to recompute layout")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recomputed", "project_id": projectID})
}

// DeleteNode handles DELETE /v1/projects/:id/nodes/:node_id
func (h *TimelineHandler) DeleteNode(c *gin.Context) {
	projectID := c.Param("id")
	if err := h.timelines.DeleteNode(c.Request.Context(), projectID, c.Param("node_id")); err != nil {
		responses.HandleError(c, err, "failed to delete node")
		return
	}

	if err := h.enqueuer.EnqueueRecompute(c.Request.Context(), projectID); err != nil {
		h.log.Warn().Err(err).Str("project_id", projectID).Msg("enqueue recompute failed")
	}

	c.Status(http.StatusNoContent)
}
