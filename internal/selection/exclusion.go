package selection

import "sync"

// DefaultExclusionSize is how many recently shown items are kept out of selection.
const DefaultExclusionSize = 10

// ExclusionRing remembers the most recently skipped item ids of one practice session.
type ExclusionRing struct {
	mu   sync.Mutex
	ids  []string
	size int
}

// NewExclusionRing creates a ring holding at most size ids.
func NewExclusionRing(size int) *ExclusionRing {
	if size <= 0 {
		size = DefaultExclusionSize
	}
	return &ExclusionRing{size: size}
}

// Push adds id, evicting the oldest id once the ring is full. Re-pushing an id refreshes it.
func (r *ExclusionRing) Push(id string) {
	if r == nil || id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range r.ids {
		if v == id {
			r.ids = append(r.ids[:i], r.ids[i+1:]...)
			break
		}
	}
	r.ids = append(r.ids, id)
	if len(r.ids) > r.size {
		r.ids = r.ids[len(r.ids)-r.size:]
	}
}

// Contains reports whether id is currently excluded. A nil ring excludes nothing.
func (r *ExclusionRing) Contains(id string) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.ids {
		if v == id {
			return true
		}
	}
	return false
}

// IDs returns the excluded ids, oldest first.
func (r *ExclusionRing) IDs() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Len returns the number of excluded ids.
func (r *ExclusionRing) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}
