// Package api exposes the progress engine and analytics over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aimd54/engagement-engine/internal/config"
	"github.com/aimd54/engagement-engine/internal/models"
	"github.com/aimd54/engagement-engine/pkg/logger"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Options wires the router's dependencies.
type Options struct {
	Config       *config.Config
	Sessions     SessionProvider
	Tracker      Tracker
	Reports      Reporter
	Catalog      []models.Achievement
	HealthChecks map[string]HealthCheck
	Log          *logger.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(opts.Log))
	router.Use(CORSMiddleware(opts.Config.Server.AllowedOrigins))

	router.GET("/health", healthHandler(opts.HealthChecks, opts.Log))

	if opts.Config.Metrics.Enabled {
		router.GET(opts.Config.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	progress := NewProgressHandler(opts.Sessions, opts.Catalog, opts.Config.Server.AllowedOrigins, opts.Log)
	analytics := NewAnalyticsHandler(opts.Tracker, opts.Reports, opts.Log)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/achievements", progress.GetCatalog)

		visitors := v1.Group("/visitors/:visitor")
		visitors.GET("/progress", progress.GetProgress)
		visitors.POST("/points", progress.AddPoints)
		visitors.POST("/achievements/:id/progress", progress.UpdateAchievementProgress)
		visitors.GET("/notifications", progress.GetNotifications)
		visitors.DELETE("/notifications/:id", progress.DismissNotification)
		visitors.GET("/stream", progress.Stream)

		a := v1.Group("/analytics")
		a.POST("/pageview", analytics.TrackPageView)
		a.POST("/event", analytics.TrackEvent)
		a.POST("/first-visit", analytics.MarkFirstVisit)
		a.POST("/consent", analytics.SetConsent)
		a.GET("/consent/:visitor", analytics.GetConsent)
		a.GET("/report", analytics.GetReport)
		a.GET("/report/export", analytics.ExportReport)
	}

	return router
}

func healthHandler(checks map[string]HealthCheck, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.Warn().Err(err).Str("check", name).Msg("Health check failed")
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"status":    state,
			"checks":    results,
			"timestamp": time.Now().UTC(),
		})
	}
}

// errorResponse sends a standardized error response.
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
