package selection

import (
	"fmt"
	"time"

	"github.com/example/engdrill/pkg/models"
)

// Tier identifies which fallback level produced a pick.
type Tier int

const (
	TierSRSDue    Tier = iota + 1 // A scheduled review that is due.
	TierSmart                     // Highest ranked item from the practice index.
	TierRandom                    // Random item that has no practice history yet.
	TierExhausted                 // Nothing left to show.
)

var tierNames = [...]string{
	TierSRSDue:    "srs_due",
	TierSmart:     "smart",
	TierRandom:    "random",
	TierExhausted: "exhausted",
}

func (t Tier) String() string {
	if t >= TierSRSDue && t <= TierExhausted {
		return tierNames[t]
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// Pool is the snapshot a single "what's next" decision is made on.
type Pool struct {
	// Catalog is the raw candidate pool for the learner.
	Catalog []models.CandidateItem
	// Records holds the review records of catalog items that have been graded.
	Records map[string]*models.ReviewRecord
	// Indexed holds catalog items that have practice history.
	Indexed []models.PriorityCandidate
}

// Pick is the outcome of a selection together with the reason it was made.
type Pick struct {
	Item   *models.CandidateItem
	Tier   Tier
	Reason string
	Score  int
}

// Found reports whether the pick carries an item.
func (p Pick) Found() bool {
	return p.Item != nil
}

// Selector walks the fallback tiers and returns the first non-empty result.
type Selector struct {
	rng Rand
}

// NewSelector creates a selector that draws random picks from rng.
func NewSelector(rng Rand) *Selector {
	return &Selector{rng: rng}
}

// Next returns the single item to present next. Items in exclude are never returned.
func (s *Selector) Next(pool Pool, exclude *ExclusionRing, now time.Time) Pick {
	if p, ok := s.srsDue(pool, exclude, now); ok {
		return p
	}
	if p, ok := s.smart(pool, exclude, now); ok {
		return p
	}
	if p, ok := s.random(pool, exclude); ok {
		return p
	}
	return Pick{Tier: TierExhausted, Reason: "no content left to practise"}
}

func (s *Selector) srsDue(pool Pool, exclude *ExclusionRing, now time.Time) (Pick, bool) {
	reviewed := make([]models.CandidateItem, 0, len(pool.Records))
	for _, c := range pool.Catalog {
		if pool.Records[c.ItemID] != nil && !exclude.Contains(c.ItemID) {
			reviewed = append(reviewed, c)
		}
	}
	set := SelectDue(reviewed, pool.Records, now)
	if len(set.Due) == 0 {
		return Pick{}, false
	}
	top := set.Due[0]
	item := top.Item
	overdue := now.Sub(top.Record.NextReviewDate).Truncate(time.Minute)
	return Pick{
		Item:   &item,
		Tier:   TierSRSDue,
		Reason: fmt.Sprintf("review due, %s overdue (%d due)", overdue, len(set.Due)),
	}, true
}

func (s *Selector) smart(pool Pool, exclude *ExclusionRing, now time.Time) (Pick, bool) {
	for _, r := range Rank(pool.Indexed, now) {
		if exclude.Contains(r.Candidate.Item.ItemID) {
			continue
		}
		item := r.Candidate.Item
		return Pick{
			Item:   &item,
			Tier:   TierSmart,
			Score:  r.Score,
			Reason: fmt.Sprintf("highest priority score %d among %d indexed items", r.Score, len(pool.Indexed)),
		}, true
	}
	return Pick{}, false
}

func (s *Selector) random(pool Pool, exclude *ExclusionRing) (Pick, bool) {
	indexed := make(map[string]bool, len(pool.Indexed))
	for _, c := range pool.Indexed {
		indexed[c.Item.ItemID] = true
	}

	var fresh []models.CandidateItem
	for _, c := range pool.Catalog {
		if !indexed[c.ItemID] && !exclude.Contains(c.ItemID) {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) == 0 {
		return Pick{}, false
	}
	item := fresh[s.rng.Intn(len(fresh))]
	return Pick{
		Item:   &item,
		Tier:   TierRandom,
		Reason: fmt.Sprintf("random pick from %d items without practice history", len(fresh)),
	}, true
}
