package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/engagement-engine/internal/service/analytics"
	"github.com/aimd54/engagement-engine/internal/service/report"
	"github.com/aimd54/engagement-engine/internal/service/tracker"
	"github.com/aimd54/engagement-engine/pkg/logger"
)

// Tracker records analytics and visitor flags.
type Tracker interface {
	TrackPageView(ctx context.Context, pv tracker.PageView) (bool, error)
	TrackEvent(ctx context.Context, ev tracker.Event) (bool, error)
	TrackDailyEvent(ctx context.Context, name string, ev tracker.Event) (bool, error)
	MarkFirstVisit(ctx context.Context, visitorID string) (bool, error)
	SetConsent(ctx context.Context, visitorID string, granted bool) (tracker.Consent, error)
	GetConsent(ctx context.Context, visitorID string) (tracker.Consent, error)
}

// Reporter produces analytics reports.
type Reporter interface {
	Generate(ctx context.Context, period string) (analytics.Report, error)
	ExportCSV(ctx context.Context, period string) (string, error)
}

// AnalyticsHandler handles analytics recording and reporting requests.
type AnalyticsHandler struct {
	tracker Tracker
	reports Reporter
	log     *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(t Tracker, reports Reporter, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{tracker: t, reports: reports, log: log}
}

// eventRequest is a tracked event; a non-empty Daily name limits it to once per day.
type eventRequest struct {
	tracker.Event
	Daily string `json:"daily,omitempty"`
}

type visitorRequest struct {
	VisitorID string `json:"visitorId" binding:"required"`
}

type consentRequest struct {
	VisitorID string `json:"visitorId" binding:"required"`
	Granted   *bool  `json:"granted" binding:"required"`
}

// TrackPageView records a page view.
// POST /api/v1/analytics/pageview.
func (h *AnalyticsHandler) TrackPageView(c *gin.Context) {
	var pv tracker.PageView
	if err := c.ShouldBindJSON(&pv); err != nil {
		errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	recorded, err := h.tracker.TrackPageView(c.Request.Context(), pv)
	if err != nil {
		h.log.Error().Err(err).Str("page", pv.Page).Msg("Failed to track page view")
		errorResponse(c, http.StatusInternalServerError, "Failed to record page view")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"recorded": recorded})
}

// TrackEvent records a custom event.
// POST /api/v1/analytics/event.
func (h *AnalyticsHandler) TrackEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Category == "" || req.Action == "" {
		errorResponse(c, http.StatusBadRequest, "category and action are required")
		return
	}

	ctx := c.Request.Context()
	var (
		recorded bool
		err      error
	)
	if req.Daily != "" {
		if req.VisitorID == "" {
			errorResponse(c, http.StatusBadRequest, "visitorId is required for daily events")
			return
		}
		recorded, err = h.tracker.TrackDailyEvent(ctx, req.Daily, req.Event)
	} else {
		recorded, err = h.tracker.TrackEvent(ctx, req.Event)
	}
	if err != nil {
		h.log.Error().Err(err).Str("category", req.Category).Str("action", req.Action).Msg("Failed to track event")
		errorResponse(c, http.StatusInternalServerError, "Failed to record event")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"recorded": recorded,
		"kind":     analytics.ClassifyEvent(req.Category, req.Action).Kind.String(),
	})
}

// MarkFirstVisit reports whether the visitor is new and marks them as seen.
// POST /api/v1/analytics/first-visit.
func (h *AnalyticsHandler) MarkFirstVisit(c *gin.Context) {
	var req visitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if _, err := validateVisitorID(req.VisitorID); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	first, err := h.tracker.MarkFirstVisit(c.Request.Context(), req.VisitorID)
	if err != nil {
		h.log.Error().Err(err).Str("visitor_id", req.VisitorID).Msg("Failed to mark first visit")
		errorResponse(c, http.StatusInternalServerError, "Failed to mark first visit")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"firstVisit": first,
		"sessionId":  tracker.NewSessionID(),
	})
}

// SetConsent stores a visitor's analytics consent decision.
// POST /api/v1/analytics/consent {"visitorId": "...", "granted": true}.
func (h *AnalyticsHandler) SetConsent(c *gin.Context) {
	var req consentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if _, err := validateVisitorID(req.VisitorID); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	consent, err := h.tracker.SetConsent(c.Request.Context(), req.VisitorID, *req.Granted)
	if err != nil {
		h.log.Error().Err(err).Str("visitor_id", req.VisitorID).Msg("Failed to store consent")
		errorResponse(c, http.StatusInternalServerError, "Failed to store consent")
		return
	}

	c.JSON(http.StatusOK, consent)
}

// GetConsent returns a visitor's consent decision.
// GET /api/v1/analytics/consent/:visitor.
func (h *AnalyticsHandler) GetConsent(c *gin.Context) {
	visitorID, err := parseVisitorID(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	consent, err := h.tracker.GetConsent(c.Request.Context(), visitorID)
	if err != nil {
		h.log.Error().Err(err).Str("visitor_id", visitorID).Msg("Failed to read consent")
		errorResponse(c, http.StatusInternalServerError, "Failed to read consent")
		return
	}

	c.JSON(http.StatusOK, consent)
}

// GetReport returns the analytics report for a period.
// GET /api/v1/analytics/report?period=7d.
func (h *AnalyticsHandler) GetReport(c *gin.Context) {
	period := c.DefaultQuery("period", report.DefaultPeriod)

	r, err := h.reports.Generate(c.Request.Context(), period)
	if err != nil {
		h.reportError(c, period, err)
		return
	}

	h.log.Info().
		Str("period", period).
		Int("page_views", r.PageViews).
		Int("sessions", r.Sessions).
		Msg("Generated analytics report")

	c.JSON(http.StatusOK, r)
}

// ExportReport returns the report for a period as a CSV download.
// GET /api/v1/analytics/report/export?period=7d.
func (h *AnalyticsHandler) ExportReport(c *gin.Context) {
	period := c.DefaultQuery("period", report.DefaultPeriod)

	out, err := h.reports.ExportCSV(c.Request.Context(), period)
	if err != nil {
		h.reportError(c, period, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="analytics-report-%s.csv"`, period))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(out))
}

func (h *AnalyticsHandler) reportError(c *gin.Context, period string, err error) {
	if errors.Is(err, report.ErrInvalidPeriod) {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Error().Err(err).Str("period", period).Msg("Failed to generate report")
	errorResponse(c, http.StatusInternalServerError, "Failed to generate report")
}
