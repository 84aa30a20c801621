// Package notification turns progress events into short-lived visitor notifications.
package notification

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	prommetrics "github.com/aimd54/engagement-engine/internal/metrics"
	"github.com/aimd54/engagement-engine/internal/models"
	"github.com/aimd54/engagement-engine/internal/service/progress"
	"github.com/aimd54/engagement-engine/pkg/logger"
)

// DefaultTTL is how long a notification stays active unless dismissed.
const DefaultTTL = 4 * time.Second

const subscriberBuffer = 16

// UpdateKind tells subscribers whether a notification appeared or went away.
type UpdateKind string

// UpdateKind constants.
const (
	UpdateAdded   UpdateKind = "added"
	UpdateRemoved UpdateKind = "removed"
)

// Update is pushed to subscribers on every change of the active list.
type Update struct {
	Kind         UpdateKind          `json:"kind"`
	Notification models.Notification `json:"notification"`
}

type entry struct {
	n     models.Notification
	timer *time.Timer
}

// Center keeps the active notifications of one visitor. Each notification expires on
// its own timer; order of the active list is creation order.
type Center struct {
	mu             sync.Mutex
	ttl            time.Duration
	notifyOnUnlock bool
	items          []*entry
	subs           map[int]chan Update
	nextSub        int
	closed         bool
	log            *logger.Logger
}

// NewCenter creates a notification center. A non-positive ttl uses DefaultTTL.
func NewCenter(ttl time.Duration, notifyOnUnlock bool, log *logger.Logger) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Center{
		ttl:            ttl,
		notifyOnUnlock: notifyOnUnlock,
		subs:           make(map[int]chan Update),
		log:            log,
	}
}

// Publish implements progress.Sink.
func (c *Center) Publish(ev progress.Event) {
	switch ev.Type {
	case progress.EventPointsAwarded:
		c.Show(fmt.Sprintf("+%d points for %s!", ev.Points, ev.Action), models.NotificationPoints)
	case progress.EventLevelUp:
		c.Show(fmt.Sprintf("Level Up! You're now level %d!", ev.Level), models.NotificationLevel)
	case progress.EventAchievementUnlocked:
		if !c.notifyOnUnlock || ev.Achievement == nil {
			return
		}
		c.Show(fmt.Sprintf("Achievement unlocked: %s! +%d points", ev.Achievement.Title, ev.Points), models.NotificationAchievement)
	}
}

// Show adds a notification and schedules its expiry.
func (c *Center) Show(message string, typ models.NotificationType) models.Notification {
	n := models.Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Type:      typ,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return n
	}

	id := n.ID
	e := &entry{n: n}
	e.timer = time.AfterFunc(c.ttl, func() { c.remove(id, false) })
	c.items = append(c.items, e)
	prommetrics.AddActiveNotifications(1)
	c.broadcast(Update{Kind: UpdateAdded, Notification: n})

	return n
}

// Dismiss removes a notification early and cancels its timer.
// It reports whether the id was active; unknown ids are a no-op.
func (c *Center) Dismiss(id string) bool {
	return c.remove(id, true)
}

func (c *Center) remove(id string, stopTimer bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.items {
		if e.n.ID != id {
			continue
		}
		if stopTimer {
			e.timer.Stop()
		}
		c.items = append(c.items[:i], c.items[i+1:]...)
		prommetrics.AddActiveNotifications(-1)
		c.broadcast(Update{Kind: UpdateRemoved, Notification: e.n})
		return true
	}
	return false
}

// Active returns the active notifications in creation order.
func (c *Center) Active() []models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Notification, len(c.items))
	for i, e := range c.items {
		out[i] = e.n
	}
	return out
}

// Subscribe registers a listener. Updates are dropped for a listener whose buffer is full.
// The cancel func unregisters it and closes the channel.
func (c *Center) Subscribe() (<-chan Update, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Update, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Subscribers returns the number of registered listeners.
func (c *Center) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// broadcast must be called with mu held.
func (c *Center) broadcast(u Update) {
	for id, ch := range c.subs {
		select {
		case ch <- u:
		default:
			c.log.Warn().Int("subscriber", id).Str("notification_id", u.Notification.ID).Msg("Subscriber buffer full, dropping update")
		}
	}
}

// Close stops all timers, clears the active list and closes subscriber channels.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	for _, e := range c.items {
		e.timer.Stop()
	}
	prommetrics.AddActiveNotifications(-len(c.items))
	c.items = nil

	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}
