package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/example/engdrill/internal/apperr"
	"github.com/example/engdrill/pkg/models"
)

// CatalogRepository handles database operations for practice content
type CatalogRepository struct {
	db *DB
}

// NewCatalogRepository creates a new repository instance
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

type itemRow struct {
	ItemID      string         `db:"item_id"`
	ItemType    string         `db:"item_type"`
	Level       string         `db:"level"`
	Category    string         `db:"category"`
	Prompt      string         `db:"prompt"`
	Answer      string         `db:"answer"`
	Payload     sql.NullString `db:"payload"`
	SubmittedAt *int64         `db:"submitted_at"`
}

func (r itemRow) toModel() models.CandidateItem {
	item := models.CandidateItem{
		ItemID:      r.ItemID,
		Type:        models.ItemType(r.ItemType),
		Level:       r.Level,
		Category:    r.Category,
		Prompt:      r.Prompt,
		Answer:      r.Answer,
		SubmittedAt: timeFromNull(r.SubmittedAt),
	}
	if r.Payload.Valid && r.Payload.String != "" {
		item.Payload = json.RawMessage(r.Payload.String)
	}
	return item
}

func rowFromItem(item models.CandidateItem) itemRow {
	row := itemRow{
		ItemID:      item.ItemID,
		ItemType:    string(item.Type),
		Level:       item.Level,
		Category:    item.Category,
		Prompt:      item.Prompt,
		Answer:      item.Answer,
		SubmittedAt: nullMillis(item.SubmittedAt),
	}
	if len(item.Payload) > 0 {
		row.Payload = sql.NullString{String: string(item.Payload), Valid: true}
	}
	return row
}

const itemColumns = `item_id, item_type, level, category, prompt, answer, payload, submitted_at`

// ListByLevel returns all items of a level in catalog order
func (r *CatalogRepository) ListByLevel(ctx context.Context, level string) ([]models.CandidateItem, error) {
	var rows []itemRow
	query := r.db.Rebind(`SELECT ` + itemColumns + ` FROM items WHERE level = ? ORDER BY item_id`)
	if err := r.db.SelectContext(ctx, &rows, query, level); err != nil {
		return nil, apperr.Unavailable("list items by level", err)
	}
	out := make([]models.CandidateItem, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out, nil
}

// ByID returns an item by ID, or nil if the catalog does not know it
func (r *CatalogRepository) ByID(ctx context.Context, itemID string) (*models.CandidateItem, error) {
	var row itemRow
	query := r.db.Rebind(`SELECT ` + itemColumns + ` FROM items WHERE item_id = ?`)
	err := r.db.GetContext(ctx, &row, query, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unavailable("get item", err)
	}
	item := row.toModel()
	return &item, nil
}

// Upsert creates or updates catalog items and returns how many were written
func (r *CatalogRepository) Upsert(ctx context.Context, items []models.CandidateItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, apperr.Unavailable("upsert items", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO items (` + itemColumns + `)
		VALUES (:item_id, :item_type, :level, :category, :prompt, :answer, :payload, :submitted_at)
		ON CONFLICT (item_id) DO UPDATE SET
			item_type = excluded.item_type,
			level = excluded.level,
			category = excluded.category,
			prompt = excluded.prompt,
			answer = excluded.answer,
			payload = excluded.payload,
			submitted_at = excluded.submitted_at
	`
	for _, item := range items {
		if _, err := tx.NamedExecContext(ctx, query, rowFromItem(item)); err != nil {
			return 0, apperr.Unavailable("upsert items", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, apperr.Unavailable("upsert items", err)
	}
	return len(items), nil
}

// Count returns the number of items in the catalog
func (r *CatalogRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM items`); err != nil {
		return 0, apperr.Unavailable("count items", err)
	}
	return n, nil
}
