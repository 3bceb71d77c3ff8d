package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tramway-server/internal/domain/project"
	"tramway-server/internal/interfaces/httpserver/responses"
)

// ProjectHandler exposes HTTP entrypoints for project CRUD.
type ProjectHandler struct {
	service ProjectService
	log     zerolog.Logger
}

// NewProjectHandler constructs the handler.
func NewProjectHandler(service ProjectService, log zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		service: service,
		log:     log.With().Str("handler", "project").Logger(),
	}
}

// CreateProjectRequest is the POST /v1/projects body.
type CreateProjectRequest struct {
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description"`
	Settings    map[string]any `json:"settings"`
}

// UpdateProjectRequest is the PATCH /v1/projects/:id body.
type UpdateProjectRequest struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	Settings    map[string]any `json:"settings"`
}

// Create handles POST /v1/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   err.Error(),
			Message: "invalid project payload",
		})
		return
	}

	proj, err := h.service.Create(c.Request.Context(), project.CreateParams{
		Name:        req.Name,
		Description: req.Description,
		Settings:    req.Settings,
		CreatedBy:   c.GetHeader("X-User-ID"),
	})
	if err != nil {
		responses.HandleError(c, err, "failed to create project")
		return
	}

	c.JSON(http.StatusCreated, responses.FromProject(proj))
}

// Get handles GET /v1/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	proj, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "failed to get project")
		return
	}
	c.JSON(http.StatusOK, responses.FromProject(proj))
}

// List handles GET /v1/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.service.List(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "failed to list projects")
		return
	}

	payload := responses.ProjectListResponse{Data: make([]responses.ProjectPayload, len(projects))}
	for i, p := range projects {
		payload.Data[i] = responses.FromProject(p)
	}
	c.JSON(http.StatusOK, payload)
}

// Update handles PATCH /v1/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   err.Error(),
			Message: "invalid project payload",
		})
		return
	}

	proj, err := h.service.Update(c.Request.Context(), c.Param("id"), project.UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		Settings:    req.Settings,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to update project")
		return
	}
	c.JSON(http.StatusOK, responses.FromProject(proj))
}

// Delete handles DELETE /v1/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		responses.HandleError(c, err, "failed to delete project")
		return
	}
	c.Status(http.StatusNoContent)
}
