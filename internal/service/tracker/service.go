// Package tracker records page views and events into the analytics log and manages
// the small per-visitor flags around it (first visit, consent, daily events).
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/aimd54/engagement-engine/internal/config"
	prommetrics "github.com/aimd54/engagement-engine/internal/metrics"
	"github.com/aimd54/engagement-engine/internal/models"
	"github.com/aimd54/engagement-engine/internal/storage"
	"github.com/aimd54/engagement-engine/pkg/logger"
)

const (
	consentGranted = "granted"
	consentDenied  = "denied"

	dailyWindow = 24 * time.Hour
)

// RecordStore is the append-only analytics log.
type RecordStore interface {
	Append(ctx context.Context, record *models.AnalyticsRecord) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PageView is a page view as reported by the browser. Timestamp is epoch milliseconds.
type PageView struct {
	VisitorID  string         `json:"visitorId"`
	SessionID  string         `json:"sessionId"`
	Page       string         `json:"page"`
	Referrer   string         `json:"referrer"`
	DeviceType string         `json:"deviceType"`
	Timestamp  int64          `json:"timestamp"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Event is a custom interaction as reported by the browser. Category and action are free-form.
type Event struct {
	VisitorID  string         `json:"visitorId"`
	SessionID  string         `json:"sessionId"`
	Category   string         `json:"category"`
	Action     string         `json:"action"`
	Label      string         `json:"label,omitempty"`
	Value      *float64       `json:"value,omitempty"`
	Referrer   string         `json:"referrer"`
	DeviceType string         `json:"deviceType"`
	Timestamp  int64          `json:"timestamp"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Consent is a visitor's recorded consent decision.
type Consent struct {
	Decided bool      `json:"decided"`
	Granted bool      `json:"granted"`
	At      time.Time `json:"at,omitzero"`
}

// Service records analytics and applies the retention window.
type Service struct {
	records RecordStore
	flags   storage.Store
	cfg     config.AnalyticsConfig
	log     *logger.Logger
	now     func() time.Time
}

// NewService creates the tracker and prunes records older than the retention window.
// A failed prune is logged and does not prevent startup.
func NewService(ctx context.Context, records RecordStore, flags storage.Store, cfg config.AnalyticsConfig, log *logger.Logger) *Service {
	s := newService(records, flags, cfg, log, time.Now)
	if _, err := s.CleanupOldData(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Initial retention cleanup failed")
	}
	return s
}

func newService(records RecordStore, flags storage.Store, cfg config.AnalyticsConfig, log *logger.Logger, now func() time.Time) *Service {
	if cfg.RetentionMonths <= 0 {
		cfg.RetentionMonths = 26
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{records: records, flags: flags, cfg: cfg, log: log, now: now}
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// TrackPageView appends a page view. It reports false when the record was dropped
// for lack of consent.
func (s *Service) TrackPageView(ctx context.Context, pv PageView) (bool, error) {
	if !s.allowed(ctx, pv.VisitorID) {
		prommetrics.RecordRecordDropped("no_consent")
		return false, nil
	}

	extra, err := encodeExtra(pv.Extra)
	if err != nil {
		return false, err
	}

	record := &models.AnalyticsRecord{
		Endpoint:        models.EndpointPageView,
		SessionID:       pv.SessionID,
		VisitorID:       pv.VisitorID,
		Page:            pv.Page,
		Referrer:        pv.Referrer,
		DeviceType:      pv.DeviceType,
		ClientTimestamp: s.clientTimestamp(pv.Timestamp),
		Extra:           extra,
		RecordedAt:      s.now(),
	}
	if err := s.records.Append(ctx, record); err != nil {
		return false, fmt.Errorf("failed to append page view: %w", err)
	}

	prommetrics.RecordRecordTracked(models.EndpointPageView)
	s.log.Debug().Str("session_id", pv.SessionID).Str("page", pv.Page).Msg("Page view tracked")
	return true, nil
}

// TrackEvent appends a custom event. It reports false when the record was dropped
// for lack of consent.
func (s *Service) TrackEvent(ctx context.Context, ev Event) (bool, error) {
	if !s.allowed(ctx, ev.VisitorID) {
		prommetrics.RecordRecordDropped("no_consent")
		return false, nil
	}

	extra, err := encodeExtra(ev.Extra)
	if err != nil {
		return false, err
	}

	record := &models.AnalyticsRecord{
		Endpoint:        models.EndpointEvent,
		SessionID:       ev.SessionID,
		VisitorID:       ev.VisitorID,
		Referrer:        ev.Referrer,
		DeviceType:      ev.DeviceType,
		EventCategory:   ev.Category,
		EventAction:     ev.Action,
		EventLabel:      ev.Label,
		EventValue:      ev.Value,
		ClientTimestamp: s.clientTimestamp(ev.Timestamp),
		Extra:           extra,
		RecordedAt:      s.now(),
	}
	if err := s.records.Append(ctx, record); err != nil {
		return false, fmt.Errorf("failed to append event: %w", err)
	}

	prommetrics.RecordRecordTracked(models.EndpointEvent)
	s.log.Debug().
		Str("session_id", ev.SessionID).
		Str("category", ev.Category).
		Str("action", ev.Action).
		Msg("Event tracked")
	return true, nil
}

// TrackDailyEvent tracks ev at most once per 24 hours per visitor and name.
func (s *Service) TrackDailyEvent(ctx context.Context, name string, ev Event) (bool, error) {
	key := storage.DailyEventKey(ev.VisitorID, name)

	raw, ok, err := s.flags.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read daily event marker: %w", err)
	}
	if ok {
		if last, perr := time.Parse(time.RFC3339Nano, raw); perr == nil && s.now().Sub(last) < dailyWindow {
			return false, nil
		}
	}

	tracked, err := s.TrackEvent(ctx, ev)
	if err != nil || !tracked {
		return tracked, err
	}

	if err := s.flags.Set(ctx, key, s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		prommetrics.RecordPersistenceFailure("daily_event")
		s.log.Warn().Err(err).Str("visitor_id", ev.VisitorID).Str("name", name).Msg("Failed to store daily event marker")
	}
	return true, nil
}

// MarkFirstVisit records the visitor as seen and reports whether this was the first time.
func (s *Service) MarkFirstVisit(ctx context.Context, visitorID string) (bool, error) {
	key := storage.FirstVisitKey(visitorID)

	_, seen, err := s.flags.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read first visit marker: %w", err)
	}
	if seen {
		return false, nil
	}

	if err := s.flags.Set(ctx, key, s.now().UTC().Format(time.RFC3339)); err != nil {
		return false, fmt.Errorf("failed to store first visit marker: %w", err)
	}
	return true, nil
}

// SetConsent stores the visitor's consent decision and when it was made.
func (s *Service) SetConsent(ctx context.Context, visitorID string, granted bool) (Consent, error) {
	state := consentDenied
	if granted {
		state = consentGranted
	}
	at := s.now().UTC().Truncate(time.Second)

	if err := s.flags.Set(ctx, storage.ConsentKey(visitorID), state); err != nil {
		return Consent{}, fmt.Errorf("failed to store consent: %w", err)
	}
	if err := s.flags.Set(ctx, storage.ConsentAtKey(visitorID), at.Format(time.RFC3339)); err != nil {
		return Consent{}, fmt.Errorf("failed to store consent timestamp: %w", err)
	}

	s.log.Info().Str("visitor_id", visitorID).Bool("granted", granted).Msg("Consent updated")
	return Consent{Decided: true, Granted: granted, At: at}, nil
}

// GetConsent returns the visitor's consent decision. Undecided visitors get the zero value.
func (s *Service) GetConsent(ctx context.Context, visitorID string) (Consent, error) {
	state, ok, err := s.flags.Get(ctx, storage.ConsentKey(visitorID))
	if err != nil {
		return Consent{}, fmt.Errorf("failed to read consent: %w", err)
	}
	if !ok {
		return Consent{}, nil
	}

	c := Consent{Decided: true, Granted: state == consentGranted}
	if raw, ok, err := s.flags.Get(ctx, storage.ConsentAtKey(visitorID)); err == nil && ok {
		if at, perr := time.Parse(time.RFC3339, raw); perr == nil {
			c.At = at
		}
	}
	return c, nil
}

// CleanupOldData deletes records received at or before now minus the retention window.
// Running it again immediately deletes nothing more.
func (s *Service) CleanupOldData(ctx context.Context) (int64, error) {
	cutoff := s.now().AddDate(0, -s.cfg.RetentionMonths, 0)

	deleted, err := s.records.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune analytics records: %w", err)
	}

	prommetrics.RecordRecordsPruned(deleted)
	s.log.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Analytics retention cleanup completed")
	return deleted, nil
}

// allowed reports whether records for visitorID may be stored.
func (s *Service) allowed(ctx context.Context, visitorID string) bool {
	if !s.cfg.RequireConsent {
		return true
	}
	if visitorID == "" {
		return false
	}

	c, err := s.GetConsent(ctx, visitorID)
	if err != nil {
		s.log.Warn().Err(err).Str("visitor_id", visitorID).Msg("Consent lookup failed, dropping record")
		return false
	}
	return c.Granted
}

func (s *Service) clientTimestamp(ts int64) int64 {
	if ts > 0 {
		return ts
	}
	return s.now().UnixMilli()
}

func encodeExtra(extra map[string]any) (datatypes.JSON, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	blob, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extra fields: %w", err)
	}
	return datatypes.JSON(blob), nil
}
