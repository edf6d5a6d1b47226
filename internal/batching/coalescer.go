// Package batching reduces store round-trips: concurrent identical reads are coalesced
// and point look-ups are gathered into windowed bulk fetches.
package batching

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Coalescer deduplicates concurrent fetches for identical keys.
// The key is forgotten as soon as the fetch resolves, so results are never cached.
type Coalescer[V any] struct {
	group singleflight.Group
}

// NewCoalescer constructs a coalescer.
func NewCoalescer[V any]() *Coalescer[V] {
	return &Coalescer[V]{}
}

// Coalesce runs fetch for key, or joins a fetch for the same key that is already in flight.
// A caller whose ctx ends stops waiting; the fetch still completes for the other callers.
func (c *Coalescer[V]) Coalesce(ctx context.Context, key string, fetch func(ctx context.Context) (V, error)) (V, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return fetch(detached)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}
