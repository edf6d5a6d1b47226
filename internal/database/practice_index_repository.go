package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/engdrill/internal/apperr"
	"github.com/example/engdrill/pkg/models"
)

// PracticeIndexRepository stores the per item exercise history used by smart selection
type PracticeIndexRepository struct {
	db *DB
}

// NewPracticeIndexRepository creates a new repository instance
func NewPracticeIndexRepository(db *DB) *PracticeIndexRepository {
	return &PracticeIndexRepository{db: db}
}

type practiceStatRow struct {
	UserID             int64  `db:"user_id"`
	ItemID             string `db:"item_id"`
	TimesShown         int    `db:"times_shown"`
	LastShownAt        *int64 `db:"last_shown_at"`
	CorrectAttempts    int    `db:"correct_attempts"`
	TotalAttempts      int    `db:"total_attempts"`
	NeedsReview        bool   `db:"needs_review"`
	ConsecutiveCorrect int    `db:"consecutive_correct"`
}

func (r practiceStatRow) toModel() *models.PracticeStat {
	return &models.PracticeStat{
		UserID:             r.UserID,
		ItemID:             r.ItemID,
		TimesShown:         r.TimesShown,
		LastShownAt:        timeFromNull(r.LastShownAt),
		CorrectAttempts:    r.CorrectAttempts,
		TotalAttempts:      r.TotalAttempts,
		NeedsReview:        r.NeedsReview,
		ConsecutiveCorrect: r.ConsecutiveCorrect,
	}
}

const practiceStatColumns = `user_id, item_id, times_shown, last_shown_at, correct_attempts, total_attempts,
	needs_review, consecutive_correct`

// ListByUser returns the practice history of a user keyed by item ID
func (r *PracticeIndexRepository) ListByUser(ctx context.Context, userID int64) (map[string]*models.PracticeStat, error) {
	var rows []practiceStatRow
	query := r.db.Rebind(`SELECT ` + practiceStatColumns + ` FROM practice_stats WHERE user_id = ?`)
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, apperr.Unavailable("list practice stats", err)
	}
	out := make(map[string]*models.PracticeStat, len(rows))
	for _, row := range rows {
		out[row.ItemID] = row.toModel()
	}
	return out, nil
}

// RecordAttempt updates the history of one item after it was answered
func (r *PracticeIndexRepository) RecordAttempt(ctx context.Context, userID int64, itemID string, correct bool, now time.Time) (*models.PracticeStat, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Unavailable("record attempt", err)
	}
	defer tx.Rollback()

	var row practiceStatRow
	err = tx.GetContext(ctx, &row, tx.Rebind(`SELECT `+practiceStatColumns+` FROM practice_stats WHERE user_id = ? AND item_id = ?`), userID, itemID)
	stat := &models.PracticeStat{UserID: userID, ItemID: itemID}
	switch {
	case err == nil:
		stat = row.toModel()
	case !errors.Is(err, sql.ErrNoRows):
		return nil, apperr.Unavailable("record attempt", err)
	}

	stat.Record(correct, now)

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO practice_stats (`+practiceStatColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, item_id) DO UPDATE SET
			times_shown = excluded.times_shown,
			last_shown_at = excluded.last_shown_at,
			correct_attempts = excluded.correct_attempts,
			total_attempts = excluded.total_attempts,
			needs_review = excluded.needs_review,
			consecutive_correct = excluded.consecutive_correct
	`), stat.UserID, stat.ItemID, stat.TimesShown, nullMillis(stat.LastShownAt), stat.CorrectAttempts,
		stat.TotalAttempts, stat.NeedsReview, stat.ConsecutiveCorrect)
	if err != nil {
		return nil, apperr.Unavailable("record attempt", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Unavailable("record attempt", err)
	}
	return stat, nil
}
