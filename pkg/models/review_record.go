package models

import "time"

// ReviewState is the SRS stage of a reviewed item.
type ReviewState string

const (
	StateNew        ReviewState = "new"
	StateLearning   ReviewState = "learning"
	StateReview     ReviewState = "review"
	StateRelearning ReviewState = "relearning"
	StateLapsed     ReviewState = "lapsed"
)

// ReviewRecord tracks a user's scheduling state for one practice item.
// A record only exists once the item has been graded; a missing record means "new".
type ReviewRecord struct {
	UserID               int64       `json:"user_id"`
	ItemID               string      `json:"item_id"`
	State                ReviewState `json:"state"`
	Repetitions          int         `json:"repetitions"`
	EaseFactor           float64     `json:"ease_factor"`
	Interval             int         `json:"interval"` // days
	NextReviewDate       time.Time   `json:"next_review_date"`
	CorrectCount         int         `json:"correct_count"`
	IncorrectCount       int         `json:"incorrect_count"`
	ConsecutiveCorrect   int         `json:"consecutive_correct"`
	ConsecutiveIncorrect int         `json:"consecutive_incorrect"`
	MasteryLevel         float64     `json:"mastery_level"` // 0-100
	LapseCount           int         `json:"lapse_count"`
	LastReviewDate       *time.Time  `json:"last_review_date"`
	LastLapseDate        *time.Time  `json:"last_lapse_date"`
}

// Clone returns a deep copy of the record.
func (r *ReviewRecord) Clone() *ReviewRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.LastReviewDate != nil {
		v := *r.LastReviewDate
		out.LastReviewDate = &v
	}
	if r.LastLapseDate != nil {
		v := *r.LastLapseDate
		out.LastLapseDate = &v
	}
	return &out
}

// IsDue reports whether the record is due for review at now. The boundary is inclusive.
func (r *ReviewRecord) IsDue(now time.Time) bool {
	return r == nil || !r.NextReviewDate.After(now)
}
