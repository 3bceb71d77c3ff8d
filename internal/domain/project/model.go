// Package project owns the workspace a branching conversation lives in. A
// project is one subway map: one root branch, any number of forks.
package project

import (
	"context"
	"errors"
	"time"
)

// ErrProjectNotFound is returned when a project id resolves to nothing.
var ErrProjectNotFound = errors.New("project: not found")

// Project is the top-level container for a branch tree.
type Project struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CreatedBy   string         `json:"created_by,omitempty"`
}

// CreateParams carries a new project request.
type CreateParams struct {
	Name        string
	Description string
	Settings    map[string]any
	CreatedBy   string
}

// UpdateParams carries mutable project fields; nil leaves a field untouched.
type UpdateParams struct {
	Name        *string
	Description *string
	Settings    map[string]any
}

// Repository is the persistence boundary for projects.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Project, error)
	Get(ctx context.Context, projectID string) (*Project, error)
	List(ctx context.Context) ([]*Project, error)
	Update(ctx context.Context, projectID string, params UpdateParams) (*Project, error)
	// Delete removes the project and, transactionally, every branch and node
	// under it.
	Delete(ctx context.Context, projectID string) error
}
