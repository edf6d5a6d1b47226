// Package selection decides which practice items a learner sees and in what order.
// Everything here is a pure computation over already fetched snapshots.
package selection

import (
	"sort"
	"time"

	"github.com/example/engdrill/pkg/models"
)

// DueItem pairs a catalog item with its review record. Record is nil for new items.
type DueItem struct {
	Item   models.CandidateItem
	Record *models.ReviewRecord
}

// IsNew reports whether the item has never been graded.
func (d DueItem) IsNew() bool {
	return d.Record == nil
}

// DueSet is the partition of a candidate pool at a point in time.
type DueSet struct {
	// Due holds every new item first, then due reviews from most to least overdue.
	Due []DueItem
	// NotDue holds scheduled items ordered by next review date.
	NotDue []DueItem
}

// SelectDue partitions candidates into due and not-due items.
// An item is due when it has no record or its next review date is at or before now.
func SelectDue(candidates []models.CandidateItem, records map[string]*models.ReviewRecord, now time.Time) DueSet {
	var fresh, reviews, notDue []DueItem
	for _, c := range candidates {
		rec := records[c.ItemID]
		item := DueItem{Item: c, Record: rec}
		switch {
		case rec == nil:
			fresh = append(fresh, item)
		case rec.IsDue(now):
			reviews = append(reviews, item)
		default:
			notDue = append(notDue, item)
		}
	}

	byNextReview := func(items []DueItem) {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Record.NextReviewDate.Before(items[j].Record.NextReviewDate)
		})
	}
	byNextReview(reviews)
	byNextReview(notDue)

	due := make([]DueItem, 0, len(fresh)+len(reviews))
	due = append(due, fresh...)
	due = append(due, reviews...)
	return DueSet{Due: due, NotDue: notDue}
}

// CaughtUp reports the "nothing to review right now" state.
func (s DueSet) CaughtUp() bool {
	return len(s.Due) == 0
}

// Upcoming returns at most n not-due items, soonest first. Due is unaffected.
func (s DueSet) Upcoming(n int) []DueItem {
	if n < 0 || n >= len(s.NotDue) {
		return s.NotDue
	}
	return s.NotDue[:n]
}

// NextDueAt returns the earliest scheduled review among not-due items, if any.
func (s DueSet) NextDueAt() *time.Time {
	if len(s.NotDue) == 0 {
		return nil
	}
	t := s.NotDue[0].Record.NextReviewDate
	return &t
}

// splitNew returns the leading run of new items and the remaining reviews.
func splitNew(due []DueItem) (fresh, reviews []DueItem) {
	i := 0
	for i < len(due) && due[i].IsNew() {
		i++
	}
	return due[:i], due[i:]
}

// Items strips the records off a list of due items.
func Items(due []DueItem) []models.CandidateItem {
	out := make([]models.CandidateItem, len(due))
	for i, d := range due {
		out[i] = d.Item
	}
	return out
}
