package selection

import "github.com/example/engdrill/pkg/models"

// Composer turns a due list into a bounded practice session.
type Composer struct {
	rng Rand
}

// NewComposer creates a composer that shuffles with rng.
func NewComposer(rng Rand) *Composer {
	return &Composer{rng: rng}
}

// Compose orders and truncates due items into a session.
//
// With RandomizeOrder the new items and the due reviews are shuffled separately and
// new items always come first. Without it the due ordering is kept as is.
// The result holds min(cap, len(due)) items where cap is ItemsPerSession, or the
// item type's default when ItemsPerSession <= 0.
func (c *Composer) Compose(due []DueItem, itemType models.ItemType, settings models.SessionSettings) []models.CandidateItem {
	limit := settings.ItemsPerSession
	if limit <= 0 {
		limit = models.DefaultSessionSize(itemType)
	}

	ordered := due
	if settings.RandomizeOrder {
		fresh, reviews := splitNew(due)
		fresh = c.shuffled(fresh)
		reviews = c.shuffled(reviews)
		ordered = make([]DueItem, 0, len(due))
		ordered = append(ordered, fresh...)
		ordered = append(ordered, reviews...)
	}

	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return Items(ordered)
}

func (c *Composer) shuffled(items []DueItem) []DueItem {
	out := make([]DueItem, len(items))
	copy(out, items)
	c.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
