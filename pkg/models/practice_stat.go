package models

import "time"

// PracticeStat is the per user and item exercise history used by smart selection.
type PracticeStat struct {
	UserID             int64      `json:"user_id"`
	ItemID             string     `json:"item_id"`
	TimesShown         int        `json:"times_shown"`
	LastShownAt        *time.Time `json:"last_shown_at"`
	CorrectAttempts    int        `json:"correct_attempts"`
	TotalAttempts      int        `json:"total_attempts"`
	NeedsReview        bool       `json:"needs_review"`
	ConsecutiveCorrect int        `json:"consecutive_correct"`
}

// Accuracy returns the share of correct attempts in percent (0-100).
func (s *PracticeStat) Accuracy() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return float64(s.CorrectAttempts) / float64(s.TotalAttempts) * 100
}

// PriorityCandidate is an indexed item enriched with its practice history.
// It only lives for the duration of one selection.
type PriorityCandidate struct {
	Item               CandidateItem
	TimesShown         int
	LastShownAt        *time.Time
	AverageAccuracy    float64
	NeedsReview        bool
	ConsecutiveCorrect int
	SubmittedAt        *time.Time
}

// NewPriorityCandidate joins a catalog item with its practice stat.
func NewPriorityCandidate(item CandidateItem, stat *PracticeStat) PriorityCandidate {
	pc := PriorityCandidate{Item: item, SubmittedAt: item.SubmittedAt}
	if stat != nil {
		pc.TimesShown = stat.TimesShown
		pc.LastShownAt = stat.LastShownAt
		pc.AverageAccuracy = stat.Accuracy()
		pc.NeedsReview = stat.NeedsReview
		pc.ConsecutiveCorrect = stat.ConsecutiveCorrect
	}
	return pc
}

// ReviewStreak is how many correct answers in a row clear the needs-review flag.
const ReviewStreak = 2

// Record applies one practice attempt to the stat.
func (s *PracticeStat) Record(correct bool, now time.Time) {
	s.TimesShown++
	s.TotalAttempts++
	s.LastShownAt = &now
	if correct {
		s.CorrectAttempts++
		s.ConsecutiveCorrect++
		if s.ConsecutiveCorrect >= ReviewStreak {
			s.NeedsReview = false
		}
		return
	}
	s.ConsecutiveCorrect = 0
	s.NeedsReview = true
}
