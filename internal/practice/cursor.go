package practice

import (
	"context"
	"sync"

	"github.com/example/engdrill/internal/selection"
)

// Cursor walks one learner through a practice sitting. It owns the exclusion ring,
// so items skipped with Refresh stay out of selection until they age out of the ring.
type Cursor struct {
	svc    *Service
	userID int64

	mu      sync.Mutex
	ring    *selection.ExclusionRing
	current selection.Pick
}

// Load selects the next item without touching the exclusion ring.
func (c *Cursor) Load(ctx context.Context) (selection.Pick, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// Refresh excludes the current item and selects again from the first tier.
func (c *Cursor) Refresh(ctx context.Context) (selection.Pick, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.Found() {
		c.ring.Push(c.current.Item.ItemID)
	}
	return c.load(ctx)
}

func (c *Cursor) load(ctx context.Context) (selection.Pick, error) {
	pick, err := c.svc.NextItem(ctx, c.userID, c.ring)
	if err != nil {
		return selection.Pick{}, err
	}
	c.current = pick
	return pick, nil
}

// Current returns the item most recently selected.
func (c *Cursor) Current() selection.Pick {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Excluded returns the ids currently kept out of selection, oldest first.
func (c *Cursor) Excluded() []string {
	return c.ring.IDs()
}
