package selection

import (
	"fmt"
	"time"

	"github.com/example/engdrill/pkg/models"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func item(id string) models.CandidateItem {
	return models.CandidateItem{ItemID: id, Type: models.ItemFlashcard, Level: "A1"}
}

func items(prefix string, n int) []models.CandidateItem {
	out := make([]models.CandidateItem, n)
	for i := range out {
		out[i] = item(fmt.Sprintf("%s-%d", prefix, i))
	}
	return out
}

func recordDue(id string, next time.Time) *models.ReviewRecord {
	return &models.ReviewRecord{
		UserID:         1,
		ItemID:         id,
		State:          models.StateReview,
		EaseFactor:     2.5,
		Interval:       3,
		Repetitions:    2,
		NextReviewDate: next,
	}
}

func ids(list []models.CandidateItem) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.ItemID
	}
	return out
}

func dueIDs(list []DueItem) []string {
	return ids(Items(list))
}
