package models

// Default session sizes used when a session cap is not set.
const (
	DefaultCardsPerSession     = 20
	DefaultSentencesPerSession = 10
)

// SessionSettings controls how a practice session is composed.
// ItemsPerSession <= 0 means "use the item type's default".
type SessionSettings struct {
	RandomizeOrder  bool `json:"randomize_order"`
	ItemsPerSession int  `json:"items_per_session"`
}

// UserSettings are the persisted preferences of one learner.
type UserSettings struct {
	UserID               int64  `json:"user_id" db:"user_id"`
	Level                string `json:"level" db:"level"`
	RandomizeOrder       bool   `json:"randomize_order" db:"randomize_order"`
	CardsPerSession      int    `json:"cards_per_session" db:"cards_per_session"`
	SentencesPerSession  int    `json:"sentences_per_session" db:"sentences_per_session"`
	NotificationsEnabled bool   `json:"notifications_enabled" db:"notifications_enabled"`
	NotificationHour     int    `json:"notification_hour" db:"notification_hour"` // 0-23
}

// ForType returns the session settings that apply to the given item type.
func (s *UserSettings) ForType(t ItemType) SessionSettings {
	out := SessionSettings{RandomizeOrder: s.RandomizeOrder}
	switch t {
	case ItemSentence:
		out.ItemsPerSession = s.SentencesPerSession
	default:
		out.ItemsPerSession = s.CardsPerSession
	}
	return out
}

// DefaultSessionSize returns the session cap for t when none is configured.
func DefaultSessionSize(t ItemType) int {
	if t == ItemSentence {
		return DefaultSentencesPerSession
	}
	return DefaultCardsPerSession
}
