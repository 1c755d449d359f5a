package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/youdub-team/youdub-backend/internal/infrastructure/http/middleware"
	"github.com/youdub-team/youdub-backend/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg            *config.Config
	auth           *middleware.AuthMiddleware
	dubbingHandler *Dubbing
	creditsHandler *Credits
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, auth *middleware.AuthMiddleware, dubbingHandler *Dubbing, creditsHandler *Credits) *Router {
	return &Router{
		cfg:            cfg,
		auth:           auth,
		dubbingHandler: dubbingHandler,
		creditsHandler: creditsHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	// API v1 group
	v1 := e.Group("/v1")

	rt.setupDubbingRoutes(v1)
	rt.setupCreditRoutes(v1)
}

// setupDubbingRoutes configures dubbing session routes
func (rt *Router) setupDubbingRoutes(g *echo.Group) {
	dubbingGroup := g.Group("/dubbing", rt.auth.Authenticate)

	dubbingGroup.POST("/sessions", rt.dubbingHandler.StartSession)
	dubbingGroup.GET("/sessions", rt.dubbingHandler.ListSessions)
	dubbingGroup.GET("/sessions/:id", rt.dubbingHandler.GetSession)
	dubbingGroup.DELETE("/sessions/:id", rt.dubbingHandler.DeleteSession)
	dubbingGroup.POST("/sessions/:id/recordings/:dialogueId", rt.dubbingHandler.UploadRecording)
	dubbingGroup.POST("/sessions/:id/process", rt.dubbingHandler.ProcessSession)
	dubbingGroup.POST("/collaborative", rt.dubbingHandler.ProcessCollaborative)
	dubbingGroup.GET("/transcripts/:id", rt.dubbingHandler.GetTranscriptInfo)
}

// setupCreditRoutes configures credit availability routes
func (rt *Router) setupCreditRoutes(g *echo.Group) {
	creditGroup := g.Group("/credits", rt.auth.Authenticate)

	creditGroup.GET("", rt.creditsHandler.Check)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"time":        time.Now().Format(time.RFC3339),
		"environment": rt.cfg.Server.Environment,
	})
}
