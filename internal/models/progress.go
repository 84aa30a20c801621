package models

import "time"

// UserProgress is the gamification state of one visitor.
// Level is derived from TotalPoints and is recomputed by the engine whenever points change.
type UserProgress struct {
	VisitorID        string        `json:"visitorId"`
	TotalPoints      int           `json:"totalPoints"`
	Level            int           `json:"level"`
	Achievements     []Achievement `json:"achievements"`
	TimeSpent        int           `json:"timeSpent"` // seconds
	ActionsCompleted int           `json:"actionsCompleted"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// LevelFor returns floor(totalPoints / pointsPerLevel) + 1.
func LevelFor(totalPoints, pointsPerLevel int) int {
	q := totalPoints / pointsPerLevel
	if totalPoints%pointsPerLevel != 0 && totalPoints < 0 {
		q--
	}
	return q + 1
}

// NewUserProgress builds the initial state for a visitor from the catalog.
func NewUserProgress(visitorID string, catalog []Achievement) UserProgress {
	achievements := make([]Achievement, len(catalog))
	for i, a := range catalog {
		achievements[i] = a.Fresh()
	}
	return UserProgress{
		VisitorID:    visitorID,
		Level:        1,
		Achievements: achievements,
	}
}

// Clone returns a deep copy safe to hand to readers.
func (p UserProgress) Clone() UserProgress {
	c := p
	c.Achievements = make([]Achievement, len(p.Achievements))
	copy(c.Achievements, p.Achievements)
	return c
}

// FindAchievement returns a pointer into p.Achievements, so writes through it reach
// every copy sharing that slice.
func (p UserProgress) FindAchievement(id string) *Achievement {
	for i := range p.Achievements {
		if p.Achievements[i].ID == id {
			return &p.Achievements[i]
		}
	}
	return nil
}

// UnlockedCount returns how many achievements are unlocked.
func (p UserProgress) UnlockedCount() int {
	n := 0
	for _, a := range p.Achievements {
		if a.Unlocked {
			n++
		}
	}
	return n
}
