// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"stroll/internal/delivery/http/router/handler"
)

type RouterParams struct {
	fx.In

	PlanHandler    *handler.PlanHandler
	SessionHandler *handler.SessionHandler
}

// router holds all the handlers that need to be registered.
type router struct {
	planHandler    *handler.PlanHandler
	sessionHandler *handler.SessionHandler
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		planHandler:    params.PlanHandler,
		sessionHandler: params.SessionHandler,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// One-shot planning
	e.POST("/plan", r.planHandler.Plan)

	// Edit sessions
	sessionGroup := e.Group("/sessions")
	{
		sessionGroup.POST("", r.sessionHandler.Open)
		sessionGroup.GET("/:id", r.sessionHandler.Get)
		sessionGroup.POST("/:id/changes", r.sessionHandler.Change)
		sessionGroup.POST("/:id/commit", r.sessionHandler.Commit)
		sessionGroup.POST("/:id/discard", r.sessionHandler.Discard)
		sessionGroup.DELETE("/:id", r.sessionHandler.Close)
	}
}
