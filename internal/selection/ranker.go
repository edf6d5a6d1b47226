package selection

import (
	"sort"
	"time"

	"github.com/example/engdrill/pkg/models"
)

// Score weights. Several call sites rank with the same formula, keep them in sync.
const (
	weightNeedsReview     = 100
	weightNeverShown      = 80
	weightLowAccuracy     = 60
	weightMediumAccuracy  = 30
	weightStaleWeek       = 40
	weightStaleHalfWeek   = 20
	weightStaleDay        = 10
	weightNoStreak        = 20
	weightRecentlyCreated = 15

	day = 24 * time.Hour
)

// Score returns how urgently an indexed candidate should be practised. Higher is more urgent.
func Score(c models.PriorityCandidate, now time.Time) int {
	score := 0
	if c.NeedsReview {
		score += weightNeedsReview
	}
	if c.TimesShown == 0 {
		score += weightNeverShown
	}

	if c.AverageAccuracy < 70 {
		score += weightLowAccuracy
	} else if c.AverageAccuracy < 85 {
		score += weightMediumAccuracy
	}

	// An item that was never shown counts as stale.
	since := 8 * day
	if c.LastShownAt != nil {
		since = now.Sub(*c.LastShownAt)
	}
	switch {
	case since > 7*day:
		score += weightStaleWeek
	case since > 3*day:
		score += weightStaleHalfWeek
	case since > day:
		score += weightStaleDay
	}

	if c.ConsecutiveCorrect == 0 {
		score += weightNoStreak
	}
	if c.SubmittedAt != nil && now.Sub(*c.SubmittedAt) <= 7*day {
		score += weightRecentlyCreated
	}
	return score
}

// Ranked is a candidate with its score.
type Ranked struct {
	Candidate models.PriorityCandidate
	Score     int
}

// Rank scores candidates and sorts them by descending score. Ties keep input order.
func Rank(candidates []models.PriorityCandidate, now time.Time) []Ranked {
	out := make([]Ranked, len(candidates))
	for i, c := range candidates {
		out[i] = Ranked{Candidate: c, Score: Score(c, now)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
