package progress

import (
	"github.com/aimd54/engagement-engine/internal/config"
	"github.com/aimd54/engagement-engine/internal/models"
)

// CatalogFromConfig converts configured achievements into catalog templates, preserving order.
func CatalogFromConfig(entries []config.AchievementConfig) []models.Achievement {
	catalog := make([]models.Achievement, 0, len(entries))
	for _, e := range entries {
		rarity := models.Rarity(e.Rarity)
		if rarity == "" {
			rarity = models.RarityCommon
		}
		catalog = append(catalog, models.Achievement{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Points:      e.Points,
			MaxProgress: e.MaxProgress,
			Rarity:      rarity,
		})
	}
	return catalog
}

// reconcile aligns persisted achievements with the catalog: catalog order and catalog
// title, points, rarity and threshold. Only progress and the unlocked flag come from
// storage; progress is clamped to the current threshold and an unlocked achievement is
// held at its threshold. Missing entries start fresh and unknown entries are dropped.
func reconcile(persisted, catalog []models.Achievement) []models.Achievement {
	byID := make(map[string]models.Achievement, len(persisted))
	for _, a := range persisted {
		byID[a.ID] = a
	}

	out := make([]models.Achievement, len(catalog))
	for i, tmpl := range catalog {
		a := tmpl.Fresh()
		if stored, ok := byID[tmpl.ID]; ok {
			a.Unlocked = stored.Unlocked
			a.Progress = a.ClampProgress(stored.Progress)
			if a.Unlocked {
				a.Progress = a.MaxProgress
			}
		}
		out[i] = a
	}
	return out
}
