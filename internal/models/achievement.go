// Package models defines domain models for the engagement engine.
package models

// Rarity is a cosmetic tier shown next to an achievement.
type Rarity string

// Rarity constants.
const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Well-known achievement ids driven by the engine itself.
const (
	AchievementPageExplorer    = "page-explorer"
	AchievementInteractionKing = "interaction-king"
	AchievementTimeMaster      = "time-master"
)

// Achievement is a catalog entry and, inside UserProgress, the visitor's instance of it.
// Unlocked never reverts to false once set.
type Achievement struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Points      int    `json:"points" yaml:"points"`
	Progress    int    `json:"progress" yaml:"-"`
	MaxProgress int    `json:"maxProgress" yaml:"max_progress"`
	Unlocked    bool   `json:"unlocked" yaml:"-"`
	Rarity      Rarity `json:"rarity" yaml:"rarity"`
}

// ClampProgress bounds value to [0, MaxProgress].
func (a *Achievement) ClampProgress(value int) int {
	if value < 0 {
		return 0
	}
	if value > a.MaxProgress {
		return a.MaxProgress
	}
	return value
}

// Fresh returns a copy of the template with progress reset.
func (a Achievement) Fresh() Achievement {
	a.Progress = 0
	a.Unlocked = false
	return a
}
