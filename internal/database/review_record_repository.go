package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/engdrill/internal/apperr"
	"github.com/example/engdrill/pkg/models"
)

// ReviewRecordRepository handles database operations for review records
type ReviewRecordRepository struct {
	db *DB
}

// NewReviewRecordRepository creates a new repository instance
func NewReviewRecordRepository(db *DB) *ReviewRecordRepository {
	return &ReviewRecordRepository{db: db}
}

type reviewRecordRow struct {
	UserID               int64   `db:"user_id"`
	ItemID               string  `db:"item_id"`
	State                string  `db:"state"`
	Repetitions          int     `db:"repetitions"`
	EaseFactor           float64 `db:"ease_factor"`
	IntervalDays         int     `db:"interval_days"`
	NextReviewAt         int64   `db:"next_review_at"`
	CorrectCount         int     `db:"correct_count"`
	IncorrectCount       int     `db:"incorrect_count"`
	ConsecutiveCorrect   int     `db:"consecutive_correct"`
	ConsecutiveIncorrect int     `db:"consecutive_incorrect"`
	MasteryLevel         float64 `db:"mastery_level"`
	LapseCount           int     `db:"lapse_count"`
	LastReviewAt         *int64  `db:"last_review_at"`
	LastLapseAt          *int64  `db:"last_lapse_at"`
}

func (r reviewRecordRow) toModel() *models.ReviewRecord {
	return &models.ReviewRecord{
		UserID:               r.UserID,
		ItemID:               r.ItemID,
		State:                models.ReviewState(r.State),
		Repetitions:          r.Repetitions,
		EaseFactor:           r.EaseFactor,
		Interval:             r.IntervalDays,
		NextReviewDate:       fromMillis(r.NextReviewAt),
		CorrectCount:         r.CorrectCount,
		IncorrectCount:       r.IncorrectCount,
		ConsecutiveCorrect:   r.ConsecutiveCorrect,
		ConsecutiveIncorrect: r.ConsecutiveIncorrect,
		MasteryLevel:         r.MasteryLevel,
		LapseCount:           r.LapseCount,
		LastReviewDate:       timeFromNull(r.LastReviewAt),
		LastLapseDate:        timeFromNull(r.LastLapseAt),
	}
}

func rowFromRecord(rec *models.ReviewRecord) reviewRecordRow {
	return reviewRecordRow{
		UserID:               rec.UserID,
		ItemID:               rec.ItemID,
		State:                string(rec.State),
		Repetitions:          rec.Repetitions,
		EaseFactor:           rec.EaseFactor,
		IntervalDays:         rec.Interval,
		NextReviewAt:         toMillis(rec.NextReviewDate),
		CorrectCount:         rec.CorrectCount,
		IncorrectCount:       rec.IncorrectCount,
		ConsecutiveCorrect:   rec.ConsecutiveCorrect,
		ConsecutiveIncorrect: rec.ConsecutiveIncorrect,
		MasteryLevel:         rec.MasteryLevel,
		LapseCount:           rec.LapseCount,
		LastReviewAt:         nullMillis(rec.LastReviewDate),
		LastLapseAt:          nullMillis(rec.LastLapseDate),
	}
}

const reviewRecordColumns = `user_id, item_id, state, repetitions, ease_factor, interval_days, next_review_at,
	correct_count, incorrect_count, consecutive_correct, consecutive_incorrect, mastery_level,
	lapse_count, last_review_at, last_lapse_at`

// Get returns the record for a user and item, or nil if the item was never graded
func (r *ReviewRecordRepository) Get(ctx context.Context, userID int64, itemID string) (*models.ReviewRecord, error) {
	var row reviewRecordRow
	query := r.db.Rebind(`SELECT ` + reviewRecordColumns + ` FROM review_records WHERE user_id = ? AND item_id = ?`)
	err := r.db.GetContext(ctx, &row, query, userID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unavailable("get review record", err)
	}
	return row.toModel(), nil
}

// GetMany returns the records of the given items keyed by item ID. Items never graded are absent.
func (r *ReviewRecordRepository) GetMany(ctx context.Context, userID int64, itemIDs []string) (map[string]*models.ReviewRecord, error) {
	out := make(map[string]*models.ReviewRecord, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`SELECT `+reviewRecordColumns+` FROM review_records WHERE user_id = ? AND item_id IN (?)`, userID, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build review record query: %w", err)
	}

	var rows []reviewRecordRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, apperr.Unavailable("get review records", err)
	}
	for _, row := range rows {
		out[row.ItemID] = row.toModel()
	}
	return out, nil
}

// ListByUser returns every record of a user ordered by next review date
func (r *ReviewRecordRepository) ListByUser(ctx context.Context, userID int64) ([]*models.ReviewRecord, error) {
	var rows []reviewRecordRow
	query := r.db.Rebind(`SELECT ` + reviewRecordColumns + ` FROM review_records WHERE user_id = ? ORDER BY next_review_at ASC`)
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, apperr.Unavailable("list review records", err)
	}
	out := make([]*models.ReviewRecord, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out, nil
}

// PutMany creates or replaces the given records in a single transaction. Last write wins.
func (r *ReviewRecordRepository) PutMany(ctx context.Context, records []*models.ReviewRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Unavailable("put review records", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO review_records (` + reviewRecordColumns + `) VALUES (
			:user_id, :item_id, :state, :repetitions, :ease_factor, :interval_days, :next_review_at,
			:correct_count, :incorrect_count, :consecutive_correct, :consecutive_incorrect, :mastery_level,
			:lapse_count, :last_review_at, :last_lapse_at)
		ON CONFLICT (user_id, item_id) DO UPDATE SET
			state = excluded.state,
			repetitions = excluded.repetitions,
			ease_factor = excluded.ease_factor,
			interval_days = excluded.interval_days,
			next_review_at = excluded.next_review_at,
			correct_count = excluded.correct_count,
			incorrect_count = excluded.incorrect_count,
			consecutive_correct = excluded.consecutive_correct,
			consecutive_incorrect = excluded.consecutive_incorrect,
			mastery_level = excluded.mastery_level,
			lapse_count = excluded.lapse_count,
			last_review_at = excluded.last_review_at,
			last_lapse_at = excluded.last_lapse_at
	`
	for _, rec := range records {
		if _, err := tx.NamedExecContext(ctx, query, rowFromRecord(rec)); err != nil {
			return apperr.Unavailable("put review records", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Unavailable("put review records", err)
	}
	return nil
}
