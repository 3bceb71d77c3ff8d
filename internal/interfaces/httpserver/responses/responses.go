// Package responses holds the HTTP DTOs and error envelope.
package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tramway-server/internal/domain/chat"
	"tramway-server/internal/domain/layout"
	"tramway-server/internal/domain/project"
	"tramway-server/internal/domain/timeline"
)

// ErrorResponse is the error envelope returned to clients.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HandleError maps domain errors to HTTP status codes.
func HandleError(reqCtx *gin.Context, err error, message string) {
	status := statusFor(err)
	reqCtx.AbortWithStatusJSON(status, ErrorResponse{
		Error:   err.Error(),
		Message: message,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, project.ErrProjectNotFound),
		errors.Is(err, timeline.ErrBranchNotFound),
		errors.Is(err, timeline.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, timeline.ErrInvalidBranchPoint),
		errors.Is(err, timeline.ErrNoParentNode),
		errors.Is(err, timeline.ErrNodeNotDeletable):
		return http.StatusBadRequest
	case errors.Is(err, timeline.ErrBranchPointNotFound),
		errors.Is(err, timeline.ErrBranchCycle),
		errors.Is(err, chat.ErrStreamInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ProjectPayload is the project DTO.
type ProjectPayload struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
	CreatedAt   int64          `json:"created_at"`
	UpdatedAt   int64          `json:"updated_at"`
}

// FromProject maps the domain project to its DTO.
func FromProject(p *project.Project) ProjectPayload {
	return ProjectPayload{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Settings:    p.Settings,
		CreatedAt:   p.CreatedAt.Unix(),
		UpdatedAt:   p.UpdatedAt.Unix(),
	}
}

// ProjectListResponse wraps the project listing.
type ProjectListResponse struct {
	Data []ProjectPayload `json:"data"`
}

// PathResponse carries a resolved display path.
type PathResponse struct {
	BranchID string           `json:"branch_id"`
	Nodes    []*timeline.Node `json:"nodes"`
}

// BranchPlacement is one branch's entry in the layout response.
type BranchPlacement struct {
	BranchID     string  `json:"branch_id"`
	X            float64 `json:"x"`
	Direction    string  `json:"direction"`
	SiblingIndex int     `json:"sibling_index"`
	BaseY        float64 `json:"base_y"`
	Color        string  `json:"color"`
	Status       string  `json:"status"`
}

// LayoutResponse carries the full map placement of a project.
type LayoutResponse struct {
	ProjectID string            `json:"project_id"`
	Branches  []BranchPlacement `json:"branches"`
}

// NewBranchPlacement maps engine geometry plus cache status to the DTO.
func NewBranchPlacement(branchID string, geo layout.Geometry, status layout.Status) BranchPlacement {
	return BranchPlacement{
		BranchID:     branchID,
		X:            geo.X,
		Direction:    string(geo.Direction),
		SiblingIndex: geo.SiblingIndex,
		BaseY:        geo.BaseY,
		Color:        geo.Color,
		Status:       string(status),
	}
}
