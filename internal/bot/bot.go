package bot

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/patrickmn/go-cache"

	"github.com/example/engdrill/internal/logger"
	"github.com/example/engdrill/internal/practice"
	"github.com/example/engdrill/internal/scheduler"
	"github.com/example/engdrill/internal/selection"
	"github.com/example/engdrill/pkg/models"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// Practice is the part of the practice service the bot drives.
type Practice interface {
	GetSession(ctx context.Context, userID int64, itemType models.ItemType, settings *models.SessionSettings) (practice.Session, error)
	Grade(ctx context.Context, userID int64, itemID string, grade models.Grade) (*models.ReviewRecord, error)
	Forecast(ctx context.Context, userID int64, itemType models.ItemType) (practice.Forecast, error)
	Preview(ctx context.Context, userID int64, itemID string) (map[models.Grade]time.Time, error)
}

// ReminderChecker sends a reminder on demand.
type ReminderChecker interface {
	RunManualCheck(ctx context.Context, userID int64) (bool, error)
}

// Cursor walks a learner through sentence practice.
type Cursor interface {
	Load(ctx context.Context) (selection.Pick, error)
	Refresh(ctx context.Context) (selection.Pick, error)
}

// CursorFactory opens a new cursor for a learner.
type CursorFactory func(userID int64) Cursor

// SettingsStore reads and writes learner settings.
type SettingsStore interface {
	Get(ctx context.Context, userID int64) (*models.UserSettings, error)
	Save(ctx context.Context, s *models.UserSettings) error
}

// Sender is the subset of the Telegram API the bot sends through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot represents the Telegram bot application
type Bot struct {
	api      Sender
	botAPI   *tgbotapi.BotAPI
	practice Practice
	cursors  CursorFactory
	settings SettingsStore
	config   *BotConfig
	log      *logger.Logger
	now      func() time.Time
	checker  ReminderChecker

	mu sync.Mutex
	// Per-user practice state that expires after a period of inactivity.
	sittings *cache.Cache
}

// sitting is the in-progress practice of one learner.
type sitting struct {
	cursor Cursor
	// cards is the flashcard session being worked through, if any.
	cards []models.CandidateItem
	// shown is the item whose prompt was sent last.
	shown *models.CandidateItem
}

// New creates a bot connected to the Telegram API.
func New(token string, svc Practice, cursors CursorFactory, settings SettingsStore, cfg *BotConfig, log *logger.Logger) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is not set")
	}
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	b := newBot(botAPI, svc, cursors, settings, cfg, log)
	b.botAPI = botAPI
	b.log.Info("authorized on account", "username", botAPI.Self.UserName)
	return b, nil
}

func newBot(api Sender, svc Practice, cursors CursorFactory, settings SettingsStore, cfg *BotConfig, log *logger.Logger) *Bot {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Bot{
		api:      api,
		practice: svc,
		cursors:  cursors,
		settings: settings,
		config:   cfg,
		log:      log.With("module", "bot"),
		now:      time.Now,
		sittings: cache.New(cfg.SittingTTL, 2*cfg.SittingTTL),
	}
}

// Start receives updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.botAPI == nil {
		return fmt.Errorf("bot is not connected")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.botAPI.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	if b.botAPI != nil {
		b.botAPI.StopReceivingUpdates()
	}
	b.log.Info("bot stopped")
}

// SetReminderChecker enables the /remind command.
func (b *Bot) SetReminderChecker(c ReminderChecker) {
	b.checker = c
}

// SendReminder implements scheduler.Notifier
func (b *Bot) SendReminder(ctx context.Context, r scheduler.Reminder) error {
	// For private chats the chat id is the user id.
	msg := tgbotapi.NewMessage(r.UserID, formatReminder(r))
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder to user %d: %w", r.UserID, err)
	}
	b.log.Info("reminder sent", "user_id", r.UserID, "due", r.Total())
	return nil
}

// MainMenuButtons returns the buttons for the main menu
func (b *Bot) MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "🃏 Flashcards", CallbackData: callbackSession},
			{Text: "✍️ Sentences", CallbackData: callbackNext},
		},
		{
			{Text: "📅 Forecast", CallbackData: callbackForecast},
		},
	}
}

func (b *Bot) sittingFor(userID int64) *sitting {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := strconv.FormatInt(userID, 10)
	if v, ok := b.sittings.Get(key); ok {
		// Touch to extend the expiration.
		b.sittings.SetDefault(key, v)
		return v.(*sitting)
	}
	s := &sitting{cursor: b.cursors(userID)}
	b.sittings.SetDefault(key, s)
	return s
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("failed to send message", "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	b.send(msg)
}
