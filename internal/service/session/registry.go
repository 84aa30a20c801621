// Package session keeps one progress engine and notification center per visitor.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/aimd54/engagement-engine/internal/config"
	"github.com/aimd54/engagement-engine/internal/models"
	"github.com/aimd54/engagement-engine/internal/service/notification"
	"github.com/aimd54/engagement-engine/internal/service/progress"
	"github.com/aimd54/engagement-engine/internal/storage"
	"github.com/aimd54/engagement-engine/pkg/logger"
)

// Session bundles a visitor's engine with the notification center subscribed to it.
type Session struct {
	Engine        *progress.Engine
	Notifications *notification.Center

	mu       sync.Mutex
	lastUsed time.Time
	streams  int
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams == 0 && s.lastUsed.Before(cutoff)
}

// Registry creates sessions lazily and evicts idle ones.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	store    storage.Store
	catalog  []models.Achievement
	opts     progress.Options
	ttl      time.Duration
	notify   bool
	log      *logger.Logger
	now      func() time.Time
}

// NewRegistry builds a registry from progress configuration.
func NewRegistry(store storage.Store, catalog []models.Achievement, cfg config.ProgressConfig, log *logger.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		store:    store,
		catalog:  catalog,
		opts: progress.Options{
			PointsPerLevel: cfg.PointsPerLevel,
			TickInterval:   cfg.TickInterval,
		},
		ttl:    cfg.NotificationTTL,
		notify: cfg.NotifyOnUnlock,
		log:    log,
		now:    time.Now,
	}
}

// Get returns the visitor's session, loading persisted progress on first use.
func (r *Registry) Get(ctx context.Context, visitorID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[visitorID]; ok {
		s.touch(r.now())
		return s
	}

	center := notification.NewCenter(r.ttl, r.notify, r.log.Component("notifications"))
	engine := progress.NewEngine(ctx, visitorID, r.store, r.catalog, r.opts, center, r.log.Component("progress"))
	s := &Session{Engine: engine, Notifications: center, lastUsed: r.now()}
	r.sessions[visitorID] = s

	r.log.Debug().Str("visitor_id", visitorID).Msg("Session created")
	return s
}

// Attach marks a live stream on the session so it is never evicted while connected.
// The returned func detaches it.
func (r *Registry) Attach(ctx context.Context, visitorID string) (*Session, func()) {
	s := r.Get(ctx, visitorID)
	s.mu.Lock()
	s.streams++
	s.mu.Unlock()

	var once sync.Once
	return s, func() {
		once.Do(func() {
			s.mu.Lock()
			s.streams--
			s.lastUsed = r.now()
			s.mu.Unlock()
		})
	}
}

// EvictIdle drops sessions without streams that were last used longer than idle ago.
// Progress is already persisted, so an evicted visitor is reloaded on next use.
func (r *Registry) EvictIdle(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, s := range r.sessions {
		if !s.idleSince(cutoff) {
			continue
		}
		r.log.Debug().Str("visitor_id", s.Engine.VisitorID()).Msg("Evicting idle session")
		s.Notifications.Close()
		delete(r.sessions, id)
		evicted++
	}
	if evicted > 0 {
		r.log.Info().Int("evicted", evicted).Int("remaining", len(r.sessions)).Msg("Evicted idle sessions")
	}
	return evicted
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close shuts down every notification center.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		s.Notifications.Close()
		delete(r.sessions, id)
	}
}
