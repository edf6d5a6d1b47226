package batching

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultWindow       = 10 * time.Millisecond
	DefaultMaxBatchSize = 100
	DefaultFetchTimeout = 5 * time.Second
)

// BulkFetcher loads many keys of one logical collection in a single round-trip.
// Keys missing from the returned map are reported as not found.
type BulkFetcher[K comparable, V any] func(ctx context.Context, collection string, keys []K) (map[K]V, error)

// BatchConfig tunes a BatchOptimizer. Zero values fall back to the defaults.
type BatchConfig struct {
	Window       time.Duration
	MaxBatchSize int
	FetchTimeout time.Duration
}

// BatchOptimizer accumulates point look-ups per collection and flushes them as one bulk fetch,
// either when the window elapses or when the batch reaches its size cap.
type BatchOptimizer[K comparable, V any] struct {
	fetch   BulkFetcher[K, V]
	window  time.Duration
	maxSize int
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*batch[K, V]
}

type result[V any] struct {
	val   V
	found bool
	err   error
}

type batch[K comparable, V any] struct {
	collection string
	keys       []K
	waiters    map[K][]chan result[V]
	timer      *time.Timer
}

// NewBatchOptimizer creates an optimizer backed by fetch.
func NewBatchOptimizer[K comparable, V any](fetch BulkFetcher[K, V], cfg BatchConfig) *BatchOptimizer[K, V] {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &BatchOptimizer[K, V]{
		fetch:   fetch,
		window:  cfg.Window,
		maxSize: cfg.MaxBatchSize,
		timeout: cfg.FetchTimeout,
		pending: make(map[string]*batch[K, V]),
	}
}

// BatchFindByID queues a look-up of key in collection and waits for its batch to resolve.
// found is false when the bulk fetch did not return the key.
func (b *BatchOptimizer[K, V]) BatchFindByID(ctx context.Context, collection string, key K) (V, bool, error) {
	// Buffered so a flush never blocks on a waiter that gave up.
	ch := make(chan result[V], 1)

	b.mu.Lock()
	bt, ok := b.pending[collection]
	if !ok {
		bt = &batch[K, V]{collection: collection, waiters: make(map[K][]chan result[V])}
		b.pending[collection] = bt
		bt.timer = time.AfterFunc(b.window, func() { b.flushCollection(bt) })
	}
	if _, seen := bt.waiters[key]; !seen {
		bt.keys = append(bt.keys, key)
	}
	bt.waiters[key] = append(bt.waiters[key], ch)
	full := len(bt.keys) >= b.maxSize
	if full {
		b.detach(bt)
	}
	b.mu.Unlock()

	if full {
		go b.run(bt)
	}

	select {
	case res := <-ch:
		return res.val, res.found, res.err
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	}
}

// Pending returns the number of distinct keys waiting in collection's open batch.
func (b *BatchOptimizer[K, V]) Pending(collection string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bt, ok := b.pending[collection]; ok {
		return len(bt.keys)
	}
	return 0
}

// detach removes bt from the pending set. Callers hold b.mu.
func (b *BatchOptimizer[K, V]) detach(bt *batch[K, V]) {
	if b.pending[bt.collection] == bt {
		delete(b.pending, bt.collection)
	}
	bt.timer.Stop()
}

func (b *BatchOptimizer[K, V]) flushCollection(bt *batch[K, V]) {
	b.mu.Lock()
	if b.pending[bt.collection] != bt {
		// Already flushed on size.
		b.mu.Unlock()
		return
	}
	b.detach(bt)
	b.mu.Unlock()
	b.run(bt)
}

// run issues the bulk fetch and resolves every waiter of the batch, success or failure.
func (b *BatchOptimizer[K, V]) run(bt *batch[K, V]) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	vals, err := b.safeFetch(ctx, bt)
	for key, waiters := range bt.waiters {
		res := result[V]{err: err}
		if err == nil {
			res.val, res.found = vals[key]
		}
		for _, ch := range waiters {
			ch <- res
		}
	}
}

// safeFetch bounds the bulk fetch by the fetch timeout even if the fetcher ignores ctx.
func (b *BatchOptimizer[K, V]) safeFetch(ctx context.Context, bt *batch[K, V]) (map[K]V, error) {
	type outcome struct {
		vals map[K]V
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		var out outcome
		defer func() {
			if r := recover(); r != nil {
				out = outcome{err: fmt.Errorf("panic: %v", r)}
			}
			done <- out
		}()
		out.vals, out.err = b.fetch(ctx, bt.collection, bt.keys)
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, fmt.Errorf("bulk fetch of %d keys from %q: %w", len(bt.keys), bt.collection, out.err)
		}
		return out.vals, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("bulk fetch of %d keys from %q: %w", len(bt.keys), bt.collection, ctx.Err())
	}
}
