// Package app assembles the engagement engine from configuration and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/engagement-engine/internal/api"
	"github.com/aimd54/engagement-engine/internal/config"
	"github.com/aimd54/engagement-engine/internal/mattermost"
	"github.com/aimd54/engagement-engine/internal/models"
	"github.com/aimd54/engagement-engine/internal/service/progress"
	"github.com/aimd54/engagement-engine/internal/service/report"
	"github.com/aimd54/engagement-engine/internal/service/scheduler"
	"github.com/aimd54/engagement-engine/internal/service/session"
	"github.com/aimd54/engagement-engine/internal/service/tracker"
	"github.com/aimd54/engagement-engine/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

// App is the fully wired engagement engine.
type App struct {
	*Storage

	Config     *config.Config
	Log        *logger.Logger
	Catalog    []models.Achievement
	Tracker    *tracker.Service
	Reports    *report.Service
	Sessions   *session.Registry
	Mattermost *mattermost.Client
	Scheduler  *scheduler.Service
}

// New opens storage and builds every service. Constructing the tracker applies
// the analytics retention window once.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	st, err := OpenStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	catalog := progress.CatalogFromConfig(cfg.Achievements)

	a := &App{
		Storage:    st,
		Config:     cfg,
		Log:        log,
		Catalog:    catalog,
		Tracker:    tracker.NewService(ctx, st.Records, st.KV, cfg.Analytics, log.Component("tracker")),
		Reports:    report.NewService(st.Records, cfg.Analytics, log.Component("report")),
		Sessions:   session.NewRegistry(st.KV, catalog, cfg.Progress, log.Component("session")),
		Mattermost: mattermost.NewClient(&cfg.Mattermost, log.Component("mattermost")),
	}
	a.Scheduler = scheduler.NewService(cfg, a.Tracker, a.Reports, a.Mattermost, a.Sessions, log.Component("scheduler"))

	log.Info().
		Int("achievements", len(catalog)).
		Int("points_per_level", cfg.Progress.PointsPerLevel).
		Bool("require_consent", cfg.Analytics.RequireConsent).
		Msg("Engagement engine initialized")

	return a, nil
}

// Router builds the HTTP handler.
func (a *App) Router() *gin.Engine {
	return api.NewRouter(api.Options{
		Config:       a.Config,
		Sessions:     a.Sessions,
		Tracker:      a.Tracker,
		Reports:      a.Reports,
		Catalog:      a.Catalog,
		HealthChecks: a.HealthChecks(),
		Log:          a.Log.Component("api"),
	})
}

// Serve starts the scheduler and the HTTP server and blocks until ctx is done or
// the server fails, then shuts both down.
func (a *App) Serve(ctx context.Context) error {
	if a.Config.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer a.Scheduler.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// Close stops every session and releases storage.
func (a *App) Close() {
	a.Sessions.Close()
	a.Storage.Close()
}
