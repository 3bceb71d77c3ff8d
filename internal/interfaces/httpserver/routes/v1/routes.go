// Package v1 registers the versioned HTTP routes.
package v1

import (
	"github.com/gin-gonic/gin"

	"tramway-server/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

// NewRoutes builds the v1 route registrar.
func NewRoutes(handlerProvider *handlers.Provider) *Routes {
	return &Routes{
		handlers: handlerProvider,
	}
}

// Register attaches all v1 routes under the /v1 prefix.
func (r *Routes) Register(engine *gin.Engine) {
	group := engine.Group("/v1")

	projects := group.Group("/projects")
	projects.POST("", r.handlers.Project.Create)
	projects.GET("", r.handlers.Project.List)
	projects.GET("/:id", r.handlers.Project.Get)
	projects.PATCH("/:id", r.handlers.Project.Update)
	projects.DELETE("/:id", r.handlers.Project.Delete)

	projects.GET("/:id/path", r.handlers.Chat.Path)
	projects.POST("/:id/messages", r.handlers.Chat.SendMessage)

	projects.POST("/:id/branches", r.handlers.Timeline.CreateBranch)
	projects.GET("/:id/layout", r.handlers.Timeline.Layout)
	projects.POST("/:id/layout/recompute", r.handlers.Timeline.Recompute)
	projects.DELETE("/:id/nodes/:node_id", r.handlers.Timeline.DeleteNode)
}
