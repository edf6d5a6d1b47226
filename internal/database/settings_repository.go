package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/example/engdrill/internal/apperr"
	"github.com/example/engdrill/pkg/models"
)

// SettingsRepository handles database operations for user settings
type SettingsRepository struct {
	db           *DB
	defaultLevel string
}

// NewSettingsRepository creates a new repository instance.
// defaultLevel is used for users who have not stored any settings yet.
func NewSettingsRepository(db *DB, defaultLevel string) *SettingsRepository {
	return &SettingsRepository{db: db, defaultLevel: defaultLevel}
}

const settingsColumns = `user_id, level, randomize_order, cards_per_session, sentences_per_session,
	notifications_enabled, notification_hour`

// DefaultSettings returns the settings of a user who never changed anything
func DefaultSettings(userID int64, level string) *models.UserSettings {
	return &models.UserSettings{
		UserID:               userID,
		Level:                level,
		NotificationsEnabled: true,
		NotificationHour:     9,
	}
}

// Get returns the user's settings, or the defaults if none are stored
func (r *SettingsRepository) Get(ctx context.Context, userID int64) (*models.UserSettings, error) {
	var s models.UserSettings
	query := r.db.Rebind(`SELECT ` + settingsColumns + ` FROM user_settings WHERE user_id = ?`)
	err := r.db.GetContext(ctx, &s, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(userID, r.defaultLevel), nil
	}
	if err != nil {
		return nil, apperr.Unavailable("get settings", err)
	}
	return &s, nil
}

// Save creates or updates the user's settings
func (r *SettingsRepository) Save(ctx context.Context, s *models.UserSettings) error {
	if s.NotificationHour < 0 || s.NotificationHour > 23 {
		return fmt.Errorf("notification hour %d out of range", s.NotificationHour)
	}
	query := `
		INSERT INTO user_settings (` + settingsColumns + `)
		VALUES (:user_id, :level, :randomize_order, :cards_per_session, :sentences_per_session,
			:notifications_enabled, :notification_hour)
		ON CONFLICT (user_id) DO UPDATE SET
			level = excluded.level,
			randomize_order = excluded.randomize_order,
			cards_per_session = excluded.cards_per_session,
			sentences_per_session = excluded.sentences_per_session,
			notifications_enabled = excluded.notifications_enabled,
			notification_hour = excluded.notification_hour
	`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return apperr.Unavailable("save settings", err)
	}
	return nil
}

// ListNotifiable returns the settings of users who want reminders at the given hour
func (r *SettingsRepository) ListNotifiable(ctx context.Context, hour int) ([]models.UserSettings, error) {
	var out []models.UserSettings
	query := r.db.Rebind(`SELECT ` + settingsColumns + ` FROM user_settings
		WHERE notifications_enabled = ? AND notification_hour = ? ORDER BY user_id`)
	if err := r.db.SelectContext(ctx, &out, query, true, hour); err != nil {
		return nil, apperr.Unavailable("list notifiable users", err)
	}
	return out, nil
}

type settingsBackend interface {
	Get(ctx context.Context, userID int64) (*models.UserSettings, error)
	Save(ctx context.Context, s *models.UserSettings) error
	ListNotifiable(ctx context.Context, hour int) ([]models.UserSettings, error)
}

// CachedSettings keeps recently read settings in memory. Writes go through and
// invalidate the cached entry.
type CachedSettings struct {
	next  settingsBackend
	cache *cache.Cache
}

// NewCachedSettings wraps next with an in-memory cache holding entries for ttl.
func NewCachedSettings(next settingsBackend, ttl time.Duration) *CachedSettings {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedSettings{next: next, cache: cache.New(ttl, 2*ttl)}
}

func settingsKey(userID int64) string {
	return fmt.Sprintf("settings:%d", userID)
}

// Get returns a copy of the cached settings, loading them on a miss.
func (c *CachedSettings) Get(ctx context.Context, userID int64) (*models.UserSettings, error) {
	if x, found := c.cache.Get(settingsKey(userID)); found {
		s := x.(models.UserSettings)
		return &s, nil
	}
	s, err := c.next.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.cache.Set(settingsKey(userID), *s, cache.DefaultExpiration)
	return s, nil
}

// Save writes through and drops the cached entry.
func (c *CachedSettings) Save(ctx context.Context, s *models.UserSettings) error {
	err := c.next.Save(ctx, s)
	c.cache.Delete(settingsKey(s.UserID))
	return err
}

// ListNotifiable is not cached.
func (c *CachedSettings) ListNotifiable(ctx context.Context, hour int) ([]models.UserSettings, error) {
	return c.next.ListNotifiable(ctx, hour)
}
