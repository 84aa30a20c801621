package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/engagement-engine/internal/models"
	"github.com/aimd54/engagement-engine/internal/service/progress"
	"github.com/aimd54/engagement-engine/pkg/logger"
)

func TestShow_ActiveInCreationOrder(t *testing.T) {
	c := NewCenter(time.Minute, false, logger.Nop())
	defer c.Close()

	first := c.Show("first", models.NotificationPoints)
	second := c.Show("second", models.NotificationLevel)

	active := c.Active()
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, second.ID, active[1].ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestShow_ExpiresIndependently(t *testing.T) {
	c := NewCenter(30*time.Millisecond, false, logger.Nop())
	defer c.Close()

	c.Show("first", models.NotificationPoints)
	time.Sleep(15 * time.Millisecond)
	second := c.Show("second", models.NotificationPoints)

	// first expires while second is still active
	assert.Eventually(t, func() bool {
		active := c.Active()
		return len(active) == 1 && active[0].ID == second.ID
	}, time.Second, 2*time.Millisecond)

	assert.Eventually(t, func() bool { return len(c.Active()) == 0 }, time.Second, 2*time.Millisecond)
}

func TestDismiss_Idempotent(t *testing.T) {
	c := NewCenter(time.Minute, false, logger.Nop())
	defer c.Close()

	n := c.Show("hello", models.NotificationPoints)

	assert.True(t, c.Dismiss(n.ID))
	assert.False(t, c.Dismiss(n.ID))
	assert.False(t, c.Dismiss("unknown"))
	assert.Empty(t, c.Active())
}

func TestDismiss_OutOfOrder(t *testing.T) {
	c := NewCenter(time.Minute, false, logger.Nop())
	defer c.Close()

	a := c.Show("a", models.NotificationPoints)
	b := c.Show("b", models.NotificationPoints)
	d := c.Show("c", models.NotificationPoints)

	c.Dismiss(b.ID)

	active := c.Active()
	require.Len(t, active, 2)
	assert.Equal(t, a.ID, active[0].ID)
	assert.Equal(t, d.ID, active[1].ID)
}

func TestDismiss_CancelsTimer(t *testing.T) {
	c := NewCenter(30*time.Millisecond, false, logger.Nop())
	defer c.Close()

	updates, cancel := c.Subscribe()
	defer cancel()

	n := c.Show("bye", models.NotificationPoints)
	require.True(t, c.Dismiss(n.ID))

	assert.Equal(t, UpdateAdded, (<-updates).Kind)
	assert.Equal(t, UpdateRemoved, (<-updates).Kind)

	// the expiry timer must not produce a second removal
	select {
	case u := <-updates:
		t.Fatalf("unexpected update after dismiss: %+v", u)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestPublish_ConvertsEvents(t *testing.T) {
	c := NewCenter(time.Minute, false, logger.Nop())
	defer c.Close()

	c.Publish(progress.Event{Type: progress.EventPointsAwarded, Points: 10, Action: "visiting pricing"})
	c.Publish(progress.Event{Type: progress.EventLevelUp, Points: 60, Level: 2})
	c.Publish(progress.Event{
		Type:        progress.EventAchievementUnlocked,
		Points:      25,
		Achievement: &models.Achievement{ID: "page-explorer", Title: "Page Explorer"},
	})

	active := c.Active()
	require.Len(t, active, 2, "unlocks are silent unless enabled")
	assert.Equal(t, "+10 points for visiting pricing!", active[0].Message)
	assert.Equal(t, models.NotificationPoints, active[0].Type)
	assert.Equal(t, "Level Up! You're now level 2!", active[1].Message)
	assert.Equal(t, models.NotificationLevel, active[1].Type)
}

func TestPublish_UnlockNotificationWhenEnabled(t *testing.T) {
	c := NewCenter(time.Minute, true, logger.Nop())
	defer c.Close()

	c.Publish(progress.Event{
		Type:        progress.EventAchievementUnlocked,
		Points:      25,
		Achievement: &models.Achievement{ID: "page-explorer", Title: "Page Explorer"},
	})

	active := c.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Achievement unlocked: Page Explorer! +25 points", active[0].Message)
	assert.Equal(t, models.NotificationAchievement, active[0].Type)
}

func TestSubscribe_ReceivesAndCancels(t *testing.T) {
	c := NewCenter(time.Minute, false, logger.Nop())
	defer c.Close()

	updates, cancel := c.Subscribe()
	assert.Equal(t, 1, c.Subscribers())

	n := c.Show("hi", models.NotificationPoints)
	u := <-updates
	assert.Equal(t, UpdateAdded, u.Kind)
	assert.Equal(t, n.ID, u.Notification.ID)

	cancel()
	cancel()
	assert.Equal(t, 0, c.Subscribers())

	_, open := <-updates
	assert.False(t, open)
}

func TestClose_StopsEverything(t *testing.T) {
	c := NewCenter(10*time.Millisecond, false, logger.Nop())

	updates, cancel := c.Subscribe()
	defer cancel()

	c.Show("x", models.NotificationPoints)
	<-updates
	c.Close()
	c.Close()

	assert.Empty(t, c.Active())
	_, open := <-updates
	assert.False(t, open)

	// shows after close are not tracked
	c.Show("late", models.NotificationPoints)
	assert.Empty(t, c.Active())
}

func TestEngineToCenter(t *testing.T) {
	c := NewCenter(time.Minute, false, logger.Nop())
	defer c.Close()

	var sink progress.Sink = c
	sink.Publish(progress.Event{Type: progress.EventPointsAwarded, Points: 5, Action: "reading FAQ"})

	require.Len(t, c.Active(), 1)
}
