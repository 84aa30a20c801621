// Package progress implements the visitor gamification state machine: points, levels
// and achievements, persisted as a JSON blob in a key-value store.
package progress

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	prommetrics "github.com/aimd54/engagement-engine/internal/metrics"
	"github.com/aimd54/engagement-engine/internal/models"
	"github.com/aimd54/engagement-engine/internal/storage"
	"github.com/aimd54/engagement-engine/pkg/logger"
)

// Options tunes an Engine.
type Options struct {
	PointsPerLevel int
	TickInterval   time.Duration
}

// DefaultOptions returns the stock tuning: 100 points per level, one tick per second.
func DefaultOptions() Options {
	return Options{PointsPerLevel: 100, TickInterval: time.Second}
}

// Engine owns one visitor's UserProgress. All mutations go through its methods and are
// serialized by mu; readers get deep copies from Snapshot.
type Engine struct {
	mu      sync.Mutex
	state   models.UserProgress
	store   storage.Store
	catalog []models.Achievement
	opts    Options
	sink    Sink
	log     *logger.Logger
	now     func() time.Time
}

// NewEngine loads the visitor's persisted progress (or defaults) and returns a ready engine.
// sink may be nil.
func NewEngine(ctx context.Context, visitorID string, store storage.Store, catalog []models.Achievement, opts Options, sink Sink, log *logger.Logger) *Engine {
	if opts.PointsPerLevel <= 0 {
		opts.PointsPerLevel = DefaultOptions().PointsPerLevel
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultOptions().TickInterval
	}
	if sink == nil {
		sink = nopSink{}
	}
	if log == nil {
		log = logger.Nop()
	}

	e := &Engine{
		store:   store,
		catalog: catalog,
		opts:    opts,
		sink:    sink,
		log:     log,
		now:     time.Now,
	}
	e.state = e.load(ctx, visitorID)
	return e
}

func (e *Engine) load(ctx context.Context, visitorID string) models.UserProgress {
	defaults := models.NewUserProgress(visitorID, e.catalog)

	raw, ok, err := e.store.Get(ctx, storage.ProgressKey(visitorID))
	if err != nil {
		prommetrics.RecordPersistenceFailure("load_progress")
		e.log.Warn().Err(err).Str("visitor_id", visitorID).Msg("Failed to load progress, using defaults")
		return defaults
	}
	if !ok {
		return defaults
	}

	var persisted models.UserProgress
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		e.log.Warn().Err(err).Str("visitor_id", visitorID).Msg("Corrupt progress blob, using defaults")
		return defaults
	}
	if persisted.TotalPoints < 0 {
		persisted.TotalPoints = 0
	}

	persisted.VisitorID = visitorID
	persisted.Achievements = reconcile(persisted.Achievements, e.catalog)
	persisted.Level = models.LevelFor(persisted.TotalPoints, e.opts.PointsPerLevel)
	return persisted
}

// VisitorID returns the id of the visitor this engine belongs to.
func (e *Engine) VisitorID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.VisitorID
}

// Snapshot returns a deep copy of the current progress.
func (e *Engine) Snapshot() models.UserProgress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// AddPoints credits points for an action, recomputes the level, counts the action and
// advances the interaction achievement. Zero or negative amounts are accepted as-is.
func (e *Engine) AddPoints(ctx context.Context, points int, actionLabel string) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	prevLevel := e.state.Level
	e.state.TotalPoints += points
	e.state.Level = models.LevelFor(e.state.TotalPoints, e.opts.PointsPerLevel)

	ev := Event{
		VisitorID: e.state.VisitorID,
		Points:    points,
		Action:    actionLabel,
		Level:     e.state.Level,
		At:        e.now(),
	}
	if e.state.Level > prevLevel {
		ev.Type = EventLevelUp
		prommetrics.RecordLevelUp()
	} else {
		ev.Type = EventPointsAwarded
	}
	prommetrics.RecordPointsAwarded(actionLabel, points)
	events := []Event{ev}

	e.state.ActionsCompleted++
	events = append(events, e.advance(models.AchievementInteractionKing, e.state.ActionsCompleted)...)

	e.commit(ctx, events)
	return events
}

// UpdateAchievementProgress sets an achievement's progress to value, clamped to
// [0, maxProgress]. Reaching maxProgress unlocks it and credits its points once.
// Unknown ids and unlocked achievements are ignored.
func (e *Engine) UpdateAchievementProgress(ctx context.Context, achievementID string, value int) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.state.FindAchievement(achievementID)
	if a == nil || a.Unlocked {
		return nil
	}

	events := e.advance(achievementID, value)
	e.commit(ctx, events)
	return events
}

// advance applies a progress update with mu held.
func (e *Engine) advance(achievementID string, value int) []Event {
	a := e.state.FindAchievement(achievementID)
	if a == nil || a.Unlocked {
		return nil
	}

	a.Progress = a.ClampProgress(value)
	if a.Progress < a.MaxProgress {
		return nil
	}

	a.Unlocked = true
	e.state.TotalPoints += a.Points
	e.state.Level = models.LevelFor(e.state.TotalPoints, e.opts.PointsPerLevel)
	prommetrics.RecordAchievementUnlocked(a.ID, string(a.Rarity))

	e.log.Info().
		Str("visitor_id", e.state.VisitorID).
		Str("achievement", a.ID).
		Int("points", a.Points).
		Int("total_points", e.state.TotalPoints).
		Msg("Achievement unlocked")

	unlocked := *a
	return []Event{{
		Type:        EventAchievementUnlocked,
		VisitorID:   e.state.VisitorID,
		Points:      a.Points,
		Level:       e.state.Level,
		Achievement: &unlocked,
		At:          e.now(),
	}}
}

// commit persists the state and publishes events, with mu held.
func (e *Engine) commit(ctx context.Context, events []Event) {
	e.state.UpdatedAt = e.now()
	e.persist(ctx)
	for _, ev := range events {
		e.sink.Publish(ev)
	}
}

// persist writes the progress blob. Failures are logged and counted; in-memory state stays authoritative.
func (e *Engine) persist(ctx context.Context) {
	blob, err := json.Marshal(e.state)
	if err != nil {
		e.log.Error().Err(err).Str("visitor_id", e.state.VisitorID).Msg("Failed to encode progress")
		return
	}
	if err := e.store.Set(ctx, storage.ProgressKey(e.state.VisitorID), string(blob)); err != nil {
		prommetrics.RecordPersistenceFailure("save_progress")
		e.log.Warn().Err(err).Str("visitor_id", e.state.VisitorID).Msg("Failed to persist progress")
	}
}

// StartTimeTracking starts a ticker that adds one second of time spent per tick and feeds
// the elapsed seconds since this call to the time achievement. The returned stop func
// is safe to call more than once and waits for the ticker goroutine to exit; cancelling
// ctx stops tracking as well.
func (e *Engine) StartTimeTracking(ctx context.Context) (stop func()) {
	persistCtx := context.WithoutCancel(ctx)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	prommetrics.IncActiveTimeTrackers()
	go func() {
		defer close(done)
		defer prommetrics.DecActiveTimeTrackers()

		ticker := time.NewTicker(e.opts.TickInterval)
		defer ticker.Stop()

		elapsed := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				elapsed++
				e.tick(persistCtx, elapsed)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func (e *Engine) tick(ctx context.Context, elapsed int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.TimeSpent++
	events := e.advance(models.AchievementTimeMaster, elapsed)
	e.commit(ctx, events)
}
