package practice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/engdrill/internal/apperr"
	"github.com/example/engdrill/internal/selection"
	"github.com/example/engdrill/pkg/models"
)

func TestGetSessionNewItemsFirst(t *testing.T) {
	f := newFixture(card("new-1"), card("review-a"), card("new-2"), card("review-b"), card("new-3"), sentence("s-1"))
	f.records.put(scheduled("review-a", t0.Add(24*time.Hour)))
	f.records.put(scheduled("review-b", t0.Add(-time.Hour)))

	session, err := f.svc.GetSession(context.Background(), 1, models.ItemFlashcard, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"new-1", "new-2", "new-3", "review-b"}, ids(session.Items))
	assert.Equal(t, 4, session.DueCount)
	assert.False(t, session.CaughtUp)
}

func TestGetSessionBoundaryIsDue(t *testing.T) {
	f := newFixture(card("a"))
	f.records.put(scheduled("a", t0))

	session, err := f.svc.GetSession(context.Background(), 1, models.ItemFlashcard, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(session.Items))
}

func TestGetSessionCaughtUp(t *testing.T) {
	f := newFixture(card("a"), card("b"))
	f.records.put(scheduled("a", t0.Add(time.Hour)))
	f.records.put(scheduled("b", t0.Add(2*time.Hour)))

	session, err := f.svc.GetSession(context.Background(), 1, models.ItemFlashcard, nil)
	require.NoError(t, err)
	assert.Empty(t, session.Items)
	assert.True(t, session.CaughtUp)
	assert.Equal(t, 0, session.DueCount)
}

func TestGetSessionRespectsCap(t *testing.T) {
	var items []models.CandidateItem
	for i := 0; i < 30; i++ {
		items = append(items, card(fmt.Sprintf("c-%02d", i)))
	}
	f := newFixture(items...)

	session, err := f.svc.GetSession(context.Background(), 1, models.ItemFlashcard, &models.SessionSettings{ItemsPerSession: 5})
	require.NoError(t, err)
	assert.Len(t, session.Items, 5)
	assert.Equal(t, 30, session.DueCount)

	session, err = f.svc.GetSession(context.Background(), 1, models.ItemFlashcard, nil)
	require.NoError(t, err)
	assert.Len(t, session.Items, models.DefaultCardsPerSession, "stored settings without a cap use the type default")

	f.settings.settings.CardsPerSession = 7
	session, err = f.svc.GetSession(context.Background(), 1, models.ItemFlashcard, nil)
	require.NoError(t, err)
	assert.Len(t, session.Items, 7)
}

func TestGetSessionRandomizedKeepsNewFirst(t *testing.T) {
	f := newFixture(card("new-1"), card("new-2"), card("new-3"), card("old-1"), card("old-2"))
	f.records.put(scheduled("old-1", t0.Add(-time.Hour)))
	f.records.put(scheduled("old-2", t0.Add(-2*time.Hour)))

	session, err := f.svc.GetSession(context.Background(), 1, models.ItemFlashcard, &models.SessionSettings{RandomizeOrder: true})
	require.NoError(t, err)
	require.Len(t, session.Items, 5)
	assert.ElementsMatch(t, []string{"new-1", "new-2", "new-3"}, ids(session.Items[:3]))
	assert.ElementsMatch(t, []string{"old-1", "old-2"}, ids(session.Items[3:]))
}

func TestGetSessionBatchesRecordLookups(t *testing.T) {
	var items []models.CandidateItem
	for i := 0; i < 40; i++ {
		items = append(items, card(fmt.Sprintf("c-%02d", i)))
	}
	f := newFixture(items...)

	_, err := f.svc.GetSession(context.Background(), 1, models.ItemFlashcard, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.records.getManyCalls.Load())
}

func TestGetSessionRejectsUnknownType(t *testing.T) {
	f := newFixture(card("a"))
	_, err := f.svc.GetSession(context.Background(), 1, models.ItemType("video"), nil)
	assert.Error(t, err)
}

func TestGetSessionSurfacesStoreErrors(t *testing.T) {
	f := newFixture(card("a"))
	f.records.getErr = apperr.Unavailable("get many", errors.New("connection reset"))

	_, err := f.svc.GetSession(context.Background(), 1, models.ItemFlashcard, nil)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}

func TestConcurrentSessionsShareCatalogLoad(t *testing.T) {
	f := newFixture(card("a"), card("b"))
	f.catalog.release = make(chan struct{})

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.GetSession(context.Background(), 1, models.ItemFlashcard, nil)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(f.catalog.release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Less(t, f.catalog.listCalls.Load(), int32(callers))
}

func TestNextItemRandomTierWithEmptyIndex(t *testing.T) {
	f := newFixture(sentence("s-1"), sentence("s-2"), card("c-1"))

	pick, err := f.svc.NextItem(context.Background(), 1, nil)
	require.NoError(t, err)
	require.True(t, pick.Found())
	assert.Equal(t, selection.TierRandom, pick.Tier)
	assert.Contains(t, []string{"s-1", "s-2"}, pick.Item.ItemID)
}

func TestNextItemPrefersDueReview(t *testing.T) {
	f := newFixture(sentence("s-1"), sentence("s-2"), sentence("s-3"))
	f.records.put(scheduled("s-2", t0.Add(-time.Minute)))
	_, err := f.index.RecordAttempt(context.Background(), 1, "s-3", false, t0.Add(-time.Hour))
	require.NoError(t, err)

	pick, err := f.svc.NextItem(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, selection.TierSRSDue, pick.Tier)
	assert.Equal(t, "s-2", pick.Item.ItemID)
}

func TestNextItemSmartTier(t *testing.T) {
	f := newFixture(sentence("s-1"), sentence("s-2"), sentence("s-3"))
	ctx := context.Background()
	_, err := f.index.RecordAttempt(ctx, 1, "s-1", true, t0.Add(-time.Hour))
	require.NoError(t, err)
	_, err = f.index.RecordAttempt(ctx, 1, "s-2", false, t0.Add(-time.Hour))
	require.NoError(t, err)

	pick, err := f.svc.NextItem(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, selection.TierSmart, pick.Tier)
	assert.Equal(t, "s-2", pick.Item.ItemID)
	assert.Positive(t, pick.Score)
}

func TestNextItemExhausted(t *testing.T) {
	f := newFixture(card("c-1"))

	pick, err := f.svc.NextItem(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.False(t, pick.Found())
	assert.Equal(t, selection.TierExhausted, pick.Tier)
}

func TestNextItemStoreErrorDoesNotFallThrough(t *testing.T) {
	t.Run("practice index", func(t *testing.T) {
		f := newFixture(sentence("s-1"))
		f.index.listErr = apperr.Unavailable("list", errors.New("timeout"))

		pick, err := f.svc.NextItem(context.Background(), 1, nil)
		assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
		assert.False(t, pick.Found())
	})
	t.Run("review records", func(t *testing.T) {
		f := newFixture(sentence("s-1"))
		f.records.getErr = apperr.Unavailable("get many", errors.New("timeout"))

		pick, err := f.svc.NextItem(context.Background(), 1, nil)
		assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
		assert.False(t, pick.Found())
	})
}

func TestGradeValidatesBeforeIO(t *testing.T) {
	f := newFixture(card("a"))

	_, err := f.svc.Grade(context.Background(), 1, "a", models.Grade(9))
	assert.ErrorIs(t, err, apperr.ErrInvalidGrade)
	assert.Equal(t, int32(0), f.catalog.byIDCalls.Load())
}

func TestGradeUnknownItem(t *testing.T) {
	f := newFixture(card("a"))

	_, err := f.svc.Grade(context.Background(), 1, "missing", models.GradeGood)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGradePersistsAndReschedules(t *testing.T) {
	f := newFixture(card("a"), card("b"))
	ctx := context.Background()

	rec, err := f.svc.Grade(ctx, 1, "a", models.GradeGood)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.UserID)
	assert.Equal(t, "a", rec.ItemID)
	assert.True(t, rec.NextReviewDate.After(t0))

	stored, err := f.records.Get(ctx, 1, "a")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, rec.NextReviewDate, stored.NextReviewDate)

	stats, err := f.index.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Contains(t, stats, "a")
	assert.Equal(t, 1, stats["a"].CorrectAttempts)

	session, err := f.svc.GetSession(ctx, 1, models.ItemFlashcard, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(session.Items))
}

func TestGradeAgainRequeuesShortly(t *testing.T) {
	f := newFixture(card("a"))
	f.records.put(scheduled("a", t0.Add(-time.Hour)))

	rec, err := f.svc.Grade(context.Background(), 1, "a", models.GradeAgain)
	require.NoError(t, err)
	assert.Equal(t, models.StateRelearning, rec.State)
	assert.Equal(t, 1, rec.LapseCount)
	assert.True(t, rec.NextReviewDate.Before(t0.Add(24*time.Hour)))
}

func TestGradeSurvivesIndexFailure(t *testing.T) {
	f := newFixture(card("a"))
	f.index.recordErr = errors.New("index down")

	rec, err := f.svc.Grade(context.Background(), 1, "a", models.GradeEasy)
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestGradeSaveFailure(t *testing.T) {
	f := newFixture(card("a"))
	f.records.putErr = apperr.Unavailable("put", errors.New("read only"))

	_, err := f.svc.Grade(context.Background(), 1, "a", models.GradeEasy)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	f := newFixture(card("a"))
	f.records.put(scheduled("a", t0))

	preview, err := f.svc.Preview(context.Background(), 1, "a")
	require.NoError(t, err)
	require.Len(t, preview, len(models.Grades))
	assert.True(t, preview[models.GradeAgain].Before(preview[models.GradeGood]))
	assert.False(t, preview[models.GradeEasy].Before(preview[models.GradeGood]))

	rec, err := f.records.Get(context.Background(), 1, "a")
	require.NoError(t, err)
	assert.Equal(t, t0, rec.NextReviewDate)
}

func TestForecast(t *testing.T) {
	var items []models.CandidateItem
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("c-%02d", i)
		items = append(items, card(id))
	}
	items = append(items, card("due-1"), card("fresh"))
	f := newFixture(items...)
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("c-%02d", i)
		f.records.put(scheduled(id, t0.Add(time.Duration(20-i)*time.Hour)))
	}
	f.records.put(scheduled("due-1", t0.Add(-time.Hour)))

	fc, err := f.svc.Forecast(context.Background(), 1, models.ItemFlashcard)
	require.NoError(t, err)
	assert.Equal(t, 2, fc.DueCount)
	require.NotNil(t, fc.NextDueAt)
	assert.Equal(t, t0.Add(time.Hour), *fc.NextDueAt)
	require.Len(t, fc.Upcoming, UpcomingLimit)
	assert.Equal(t, "c-19", fc.Upcoming[0].ItemID)
}

func TestForecastNothingScheduled(t *testing.T) {
	f := newFixture(card("a"))

	fc, err := f.svc.Forecast(context.Background(), 1, models.ItemFlashcard)
	require.NoError(t, err)
	assert.Equal(t, 1, fc.DueCount)
	assert.Nil(t, fc.NextDueAt)
	assert.Empty(t, fc.Upcoming)
}

func TestServicesAreIsolated(t *testing.T) {
	a := newFixture(card("x"))
	b := newFixture(card("y"))

	sa, err := a.svc.GetSession(context.Background(), 1, models.ItemFlashcard, nil)
	require.NoError(t, err)
	sb, err := b.svc.GetSession(context.Background(), 1, models.ItemFlashcard, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ids(sa.Items))
	assert.Equal(t, []string{"y"}, ids(sb.Items))
}
