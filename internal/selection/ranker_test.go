package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/engdrill/pkg/models"
)

func ago(d time.Duration) *time.Time {
	t := t0.Add(-d)
	return &t
}

func TestScoreFormula(t *testing.T) {
	tests := []struct {
		name string
		c    models.PriorityCandidate
		want int
	}{
		{
			name: "never shown, fresh content",
			c:    models.PriorityCandidate{SubmittedAt: ago(2 * day)},
			// never shown 80 + accuracy<70 60 + stale 40 + no streak 20 + recent 15
			want: 215,
		},
		{
			name: "needs review, weak accuracy",
			c: models.PriorityCandidate{
				NeedsReview: true, TimesShown: 4, AverageAccuracy: 50,
				LastShownAt: ago(2 * day), ConsecutiveCorrect: 0,
			},
			want: 100 + 60 + 10 + 20,
		},
		{
			name: "medium accuracy, half week",
			c: models.PriorityCandidate{
				TimesShown: 3, AverageAccuracy: 80, LastShownAt: ago(4 * day), ConsecutiveCorrect: 2,
			},
			want: 30 + 20,
		},
		{
			name: "strong item shown today",
			c: models.PriorityCandidate{
				TimesShown: 9, AverageAccuracy: 95, LastShownAt: ago(time.Hour), ConsecutiveCorrect: 5,
				SubmittedAt: ago(30 * day),
			},
			want: 0,
		},
		{
			name: "accuracy boundaries",
			c: models.PriorityCandidate{
				TimesShown: 1, AverageAccuracy: 70, LastShownAt: ago(8 * day), ConsecutiveCorrect: 1,
			},
			want: 30 + 40,
		},
		{
			name: "accuracy exactly 85",
			c: models.PriorityCandidate{
				TimesShown: 1, AverageAccuracy: 85, LastShownAt: ago(7 * day), ConsecutiveCorrect: 1,
			},
			want: 20,
		},
		{
			name: "submitted exactly a week ago",
			c: models.PriorityCandidate{
				TimesShown: 1, AverageAccuracy: 90, LastShownAt: ago(time.Hour), ConsecutiveCorrect: 1,
				SubmittedAt: ago(7 * day),
			},
			want: 15,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.c, t0))
		})
	}
}

func TestRankDescendingWithStableTies(t *testing.T) {
	strong := models.PriorityCandidate{TimesShown: 5, AverageAccuracy: 95, LastShownAt: ago(time.Hour), ConsecutiveCorrect: 3}
	weak := models.PriorityCandidate{TimesShown: 5, AverageAccuracy: 40, LastShownAt: ago(time.Hour), ConsecutiveCorrect: 0}

	a, b, c, d := strong, weak, strong, weak
	a.Item, b.Item, c.Item, d.Item = item("a"), item("b"), item("c"), item("d")

	ranked := Rank([]models.PriorityCandidate{a, b, c, d}, t0)
	got := make([]string, len(ranked))
	for i, r := range ranked {
		got[i] = r.Candidate.Item.ItemID
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, got)
	assert.Equal(t, 80, ranked[0].Score)
	assert.Equal(t, 0, ranked[3].Score)
}
