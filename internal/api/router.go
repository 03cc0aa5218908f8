// Package api exposes goals, plans and progress over HTTP.
package api

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"okrplanner/internal/audit"
	"okrplanner/internal/metrics"
	"okrplanner/internal/notify"
	"okrplanner/internal/okrstore"
	"okrplanner/internal/planner"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	Store    *okrstore.Store
	Pipeline *planner.Pipeline
	Progress *metrics.Service
	Audit    *audit.Logger
	Notifier *notify.Notifier
	Logger   *slog.Logger
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

// NewRouter configures the gin engine and routes.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger()))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/goals", s.ListGoals)
		api.POST("/goals", s.CreateGoal)
		api.GET("/goals/:id", s.GetGoal)

		api.POST("/goals/:id/plan", s.GeneratePlan)
		api.GET("/goals/:id/plan", s.GetPlan)
		api.DELETE("/goals/:id/plan", s.DeletePlan)

		api.GET("/goals/:id/progress", s.GetProgress)
		api.GET("/goals/:id/events", s.ListEvents)

		api.PATCH("/key-results/:id", s.UpdateKeyResult)
	}
	return r
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("api: request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
