//nolint:noctx // Test file uses http.NewRequest for simplicity
package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/engagement-engine/internal/config"
	"github.com/aimd54/engagement-engine/internal/storage"
	"github.com/aimd54/engagement-engine/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 0, Environment: "test", AllowedOrigins: []string{"*"}},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			SQLite: config.SQLiteConfig{Path: ":memory:"},
		},
		Storage: config.StorageConfig{Backend: "database"},
		Progress: config.ProgressConfig{
			PointsPerLevel:  100,
			NotificationTTL: time.Minute,
			TickInterval:    time.Hour,
			SessionIdle:     time.Minute,
		},
		Analytics:    config.AnalyticsConfig{RetentionMonths: 26, TopN: 10},
		Scheduler:    config.SchedulerConfig{Enabled: false, Timezone: "UTC"},
		Metrics:      config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Achievements: config.DefaultAchievements(),
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	a, err := New(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestNew_DatabaseBackend(t *testing.T) {
	a := newTestApp(t, testConfig())

	assert.Len(t, a.Catalog, 5)
	assert.Nil(t, a.redis)
	assert.Contains(t, a.HealthChecks(), "database")
	assert.NotContains(t, a.HealthChecks(), "redis")
}

func TestNew_ProgressPersistsThroughKV(t *testing.T) {
	a := newTestApp(t, testConfig())
	router := a.Router()

	req, _ := http.NewRequest("POST", "/api/v1/visitors/v1/points", strings.NewReader(`{"points": 120, "action": "reading"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	raw, ok, err := a.KV.Get(context.Background(), storage.ProgressKey("v1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, `"totalPoints":120`)
}

func TestNew_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Storage = config.StorageConfig{Backend: "redis", KeyPrefix: "engage:"}
	cfg.Database.Redis = config.RedisConfig{Host: mr.Host(), Port: mustPort(t, mr.Port())}

	a := newTestApp(t, cfg)
	require.NotNil(t, a.redis)

	_, err := a.Tracker.MarkFirstVisit(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("engage:"+storage.FirstVisitKey("v1")))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", http.NoBody)
	a.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"ok"`)
}

func TestNew_RedisUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Storage = config.StorageConfig{Backend: "redis"}
	cfg.Database.Redis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

	_, err := New(context.Background(), cfg, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	a := newTestApp(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after context cancel")
	}
}

func mustPort(t *testing.T, port string) int {
	t.Helper()
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return p
}
