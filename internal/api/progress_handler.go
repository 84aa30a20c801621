package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/engagement-engine/internal/models"
	"github.com/aimd54/engagement-engine/internal/service/progress"
	"github.com/aimd54/engagement-engine/internal/service/session"
	"github.com/aimd54/engagement-engine/pkg/logger"
)

const maxVisitorIDLength = 100

// SessionProvider hands out per-visitor sessions.
type SessionProvider interface {
	Get(ctx context.Context, visitorID string) *session.Session
	Attach(ctx context.Context, visitorID string) (*session.Session, func())
}

// ProgressHandler handles progress, notification and stream requests.
type ProgressHandler struct {
	sessions SessionProvider
	catalog  []models.Achievement
	stream   *streamer
	log      *logger.Logger
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(sessions SessionProvider, catalog []models.Achievement, allowedOrigins []string, log *logger.Logger) *ProgressHandler {
	return &ProgressHandler{
		sessions: sessions,
		catalog:  catalog,
		stream:   newStreamer(allowedOrigins, log),
		log:      log,
	}
}

type addPointsRequest struct {
	Points *int   `json:"points" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type achievementProgressRequest struct {
	Progress *int `json:"progress" binding:"required"`
}

type progressResponse struct {
	Progress      models.UserProgress `json:"progress"`
	UnlockedCount int                 `json:"unlockedCount"`
	Events        []progress.Event    `json:"events,omitempty"`
}

func newProgressResponse(p models.UserProgress, events []progress.Event) progressResponse {
	return progressResponse{Progress: p, UnlockedCount: p.UnlockedCount(), Events: events}
}

// GetCatalog returns the achievement catalog.
// GET /api/v1/achievements.
func (h *ProgressHandler) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"achievements": h.catalog,
		"total":        len(h.catalog),
	})
}

// GetProgress returns the visitor's progress.
// GET /api/v1/visitors/:visitor/progress.
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	visitorID, err := parseVisitorID(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	s := h.sessions.Get(c.Request.Context(), visitorID)
	c.JSON(http.StatusOK, newProgressResponse(s.Engine.Snapshot(), nil))
}

// AddPoints credits points for an action.
// POST /api/v1/visitors/:visitor/points {"points": 10, "action": "visiting pricing"}.
func (h *ProgressHandler) AddPoints(c *gin.Context) {
	visitorID, err := parseVisitorID(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req addPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	ctx := c.Request.Context()
	s := h.sessions.Get(ctx, visitorID)
	events := s.Engine.AddPoints(ctx, *req.Points, req.Action)

	h.log.Debug().
		Str("visitor_id", visitorID).
		Int("points", *req.Points).
		Str("action", req.Action).
		Msg("Points added")

	c.JSON(http.StatusOK, newProgressResponse(s.Engine.Snapshot(), events))
}

// UpdateAchievementProgress sets progress on one achievement. Unknown or already
// unlocked achievements are accepted and leave the progress unchanged.
// POST /api/v1/visitors/:visitor/achievements/:id/progress {"progress": 3}.
func (h *ProgressHandler) UpdateAchievementProgress(c *gin.Context) {
	visitorID, err := parseVisitorID(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	achievementID := c.Param("id")

	var req achievementProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	ctx := c.Request.Context()
	s := h.sessions.Get(ctx, visitorID)
	events := s.Engine.UpdateAchievementProgress(ctx, achievementID, *req.Progress)

	c.JSON(http.StatusOK, newProgressResponse(s.Engine.Snapshot(), events))
}

// GetNotifications returns the visitor's active notifications.
// GET /api/v1/visitors/:visitor/notifications.
func (h *ProgressHandler) GetNotifications(c *gin.Context) {
	visitorID, err := parseVisitorID(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	active := h.sessions.Get(c.Request.Context(), visitorID).Notifications.Active()
	c.JSON(http.StatusOK, gin.H{
		"notifications": active,
		"total":         len(active),
	})
}

// DismissNotification removes a notification early. Dismissing an unknown id succeeds.
// DELETE /api/v1/visitors/:visitor/notifications/:id.
func (h *ProgressHandler) DismissNotification(c *gin.Context) {
	visitorID, err := parseVisitorID(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	removed := h.sessions.Get(c.Request.Context(), visitorID).Notifications.Dismiss(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{
		"dismissed": removed,
		"timestamp": time.Now().UTC(),
	})
}

// Stream upgrades to a WebSocket that pushes notification updates. The visitor's
// time tracker runs for as long as the connection is open.
// GET /api/v1/visitors/:visitor/stream.
func (h *ProgressHandler) Stream(c *gin.Context) {
	visitorID, err := parseVisitorID(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	h.stream.serve(c, h.sessions, visitorID)
}

// parseVisitorID extracts and validates the visitor ID from the URL parameter.
func parseVisitorID(c *gin.Context) (string, error) {
	return validateVisitorID(c.Param("visitor"))
}

func validateVisitorID(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("visitor ID is required")
	}
	if len(id) > maxVisitorIDLength {
		return "", fmt.Errorf("visitor ID cannot exceed %d characters", maxVisitorIDLength)
	}
	return id, nil
}
