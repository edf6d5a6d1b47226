package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/engdrill/internal/apperr"
	"github.com/example/engdrill/internal/selection"
	"github.com/example/engdrill/pkg/models"
)

// Constants for callback data
const (
	callbackSession  = "session"
	callbackNext     = "next"
	callbackRefresh  = "refresh"
	callbackForecast = "forecast"
	callbackMenu     = "main_menu"

	revealPrefix = "reveal:"
	gradePrefix  = "grade:"
)

const errorText = "⚠️ Something went wrong, please try again later."

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message != nil && update.Message.Chat != nil:
		b.reply(update.Message.Chat.ID, "I don't understand. Use /help to see the commands.")
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

// handleCommand handles bot commands
func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil {
		return
	}
	userID, chatID := message.From.ID, message.Chat.ID
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.send(tgbotapi.NewMessage(chatID, helpText))
	case "menu":
		b.reply(chatID, "Main Menu - choose an option:")
	case "session":
		b.startSession(ctx, chatID, userID)
	case "next":
		b.showPick(ctx, chatID, userID, false)
	case "refresh":
		b.showPick(ctx, chatID, userID, true)
	case "forecast":
		b.handleForecast(ctx, chatID, userID)
	case "level":
		b.handleLevel(ctx, chatID, userID, args)
	case "notify":
		b.handleNotify(ctx, chatID, userID, args)
	case "time":
		b.handleTime(ctx, chatID, userID, args)
	case "remind":
		b.handleRemind(ctx, chatID, userID)
	default:
		b.reply(chatID, "Unknown command. Use /help to see the commands.")
	}
}

// handleCallbackQuery handles callback queries from buttons
func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.log.Debug("failed to answer callback", "error", err)
	}
	if callback.From == nil || callback.Message == nil || callback.Message.Chat == nil {
		return
	}
	userID, chatID := callback.From.ID, callback.Message.Chat.ID

	switch data := callback.Data; {
	case data == callbackMenu:
		b.reply(chatID, "Main Menu - choose an option:")
	case data == callbackSession:
		b.startSession(ctx, chatID, userID)
	case data == callbackNext:
		b.showPick(ctx, chatID, userID, false)
	case data == callbackRefresh:
		b.showPick(ctx, chatID, userID, true)
	case data == callbackForecast:
		b.handleForecast(ctx, chatID, userID)
	case strings.HasPrefix(data, revealPrefix):
		b.reveal(ctx, chatID, userID, strings.TrimPrefix(data, revealPrefix))
	case strings.HasPrefix(data, gradePrefix):
		itemID, grade, err := parseGradeCallback(data)
		if err != nil {
			b.log.Warn("bad grade callback", "data", data, "error", err)
			return
		}
		b.handleGrade(ctx, chatID, userID, itemID, grade)
	default:
		b.log.Debug("unknown callback", "data", data)
	}
}

func (b *Bot) handleStart(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, welcomeText)
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	b.send(msg)
}

// startSession composes a flashcard session and shows its first card.
func (b *Bot) startSession(ctx context.Context, chatID, userID int64) {
	session, err := b.practice.GetSession(ctx, userID, models.ItemFlashcard, nil)
	if err != nil {
		b.log.Error("failed to build session", "user_id", userID, "error", err)
		b.reply(chatID, errorText)
		return
	}
	if session.CaughtUp {
		b.reply(chatID, "🎉 You're all caught up! Nothing is due right now.")
		return
	}

	s := b.sittingFor(userID)
	b.mu.Lock()
	s.cards = session.Items
	b.mu.Unlock()

	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("🃏 %d cards in this session (%d due in total).", len(session.Items), session.DueCount)))
	b.showNextCard(chatID, userID)
}

func (b *Bot) showNextCard(chatID, userID int64) {
	s := b.sittingFor(userID)
	b.mu.Lock()
	if len(s.cards) == 0 {
		s.shown = nil
		b.mu.Unlock()
		b.reply(chatID, "🎉 Session complete! Well done.")
		return
	}
	card := s.cards[0]
	s.cards = s.cards[1:]
	s.shown = &card
	left := len(s.cards)
	b.mu.Unlock()

	msg := tgbotapi.NewMessage(chatID, formatPrompt(card, left))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "👀 Show answer", CallbackData: revealPrefix + card.ItemID}},
	})
	b.send(msg)
}

// showPick selects the next sentence, optionally skipping the current one.
func (b *Bot) showPick(ctx context.Context, chatID, userID int64, skip bool) {
	s := b.sittingFor(userID)
	var (
		pick selection.Pick
		err  error
	)
	if skip {
		pick, err = s.cursor.Refresh(ctx)
	} else {
		pick, err = s.cursor.Load(ctx)
	}
	if err != nil {
		b.log.Error("failed to select next item", "user_id", userID, "error", err)
		b.reply(chatID, errorText)
		return
	}
	if !pick.Found() {
		b.mu.Lock()
		s.shown = nil
		b.mu.Unlock()
		b.reply(chatID, "📭 No sentences left to practise right now.")
		return
	}

	item := *pick.Item
	b.mu.Lock()
	s.shown = &item
	b.mu.Unlock()
	b.log.Debug("showing item", "user_id", userID, "item_id", item.ItemID, "tier", pick.Tier.String())

	msg := tgbotapi.NewMessage(chatID, formatPrompt(item, -1))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{
			{Text: "👀 Show answer", CallbackData: revealPrefix + item.ItemID},
			{Text: "⏭ Skip", CallbackData: callbackRefresh},
		},
	})
	b.send(msg)
}

func (b *Bot) reveal(ctx context.Context, chatID, userID int64, itemID string) {
	s := b.sittingFor(userID)
	b.mu.Lock()
	shown := s.shown
	b.mu.Unlock()
	if shown == nil || shown.ItemID != itemID {
		b.reply(chatID, "This item is no longer active. Start again from the menu.")
		return
	}

	preview, err := b.practice.Preview(ctx, userID, itemID)
	if err != nil {
		// Buttons still work without the due hints.
		b.log.Warn("failed to preview grades", "user_id", userID, "item_id", itemID, "error", err)
	}
	msg := tgbotapi.NewMessage(chatID, formatAnswer(*shown))
	msg.ReplyMarkup = createKeyboard(gradeButtons(itemID, preview, b.now()))
	b.send(msg)
}

func (b *Bot) handleGrade(ctx context.Context, chatID, userID int64, itemID string, grade models.Grade) {
	rec, err := b.practice.Grade(ctx, userID, itemID, grade)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		b.reply(chatID, "That item no longer exists.")
		return
	case err != nil:
		b.log.Error("failed to grade", "user_id", userID, "item_id", itemID, "error", err)
		b.reply(chatID, errorText)
		return
	}
	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("%s Next review %s.", gradeLabel(grade), formatUntil(rec.NextReviewDate, b.now()))))

	s := b.sittingFor(userID)
	b.mu.Lock()
	var shownType models.ItemType
	if s.shown != nil && s.shown.ItemID == itemID {
		shownType = s.shown.Type
	}
	b.mu.Unlock()

	switch shownType {
	case models.ItemFlashcard:
		b.showNextCard(chatID, userID)
	case models.ItemSentence:
		b.showPick(ctx, chatID, userID, false)
	}
}

func (b *Bot) handleForecast(ctx context.Context, chatID, userID int64) {
	cards, err := b.practice.Forecast(ctx, userID, models.ItemFlashcard)
	if err != nil {
		b.log.Error("failed to forecast", "user_id", userID, "error", err)
		b.reply(chatID, errorText)
		return
	}
	sentences, err := b.practice.Forecast(ctx, userID, models.ItemSentence)
	if err != nil {
		b.log.Error("failed to forecast", "user_id", userID, "error", err)
		b.reply(chatID, errorText)
		return
	}
	now := b.now()
	b.reply(chatID, formatForecast("🃏 Flashcards", cards, now)+"\n\n"+formatForecast("✍️ Sentences", sentences, now))
}

func (b *Bot) updateSettings(ctx context.Context, chatID, userID int64, apply func(s *models.UserSettings), done string) {
	s, err := b.settings.Get(ctx, userID)
	if err != nil {
		b.log.Error("failed to load settings", "user_id", userID, "error", err)
		b.reply(chatID, errorText)
		return
	}
	apply(s)
	if err := b.settings.Save(ctx, s); err != nil {
		b.log.Error("failed to save settings", "user_id", userID, "error", err)
		b.reply(chatID, "❌ Error updating settings. Please try again.")
		return
	}
	b.reply(chatID, done)
}

func (b *Bot) handleLevel(ctx context.Context, chatID, userID int64, arg string) {
	level, ok := parseLevel(arg)
	if !ok {
		b.send(tgbotapi.NewMessage(chatID, "Usage: /level A1|A2|B1|B2|C1|C2"))
		return
	}
	b.updateSettings(ctx, chatID, userID, func(s *models.UserSettings) { s.Level = level },
		fmt.Sprintf("✅ Level set to %s", level))
}

func (b *Bot) handleNotify(ctx context.Context, chatID, userID int64, arg string) {
	var enabled bool
	switch strings.ToLower(arg) {
	case "on":
		enabled = true
	case "off":
	default:
		b.send(tgbotapi.NewMessage(chatID, "Usage: /notify on|off"))
		return
	}
	text := "🔕 Reminders disabled"
	if enabled {
		text = "🔔 Reminders enabled"
	}
	b.updateSettings(ctx, chatID, userID, func(s *models.UserSettings) { s.NotificationsEnabled = enabled }, text)
}

func (b *Bot) handleTime(ctx context.Context, chatID, userID int64, arg string) {
	hour, err := parseHour(arg)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "Usage: /time <hour 0-23>"))
		return
	}
	b.updateSettings(ctx, chatID, userID, func(s *models.UserSettings) { s.NotificationHour = hour },
		fmt.Sprintf("⏰ Reminders will arrive at %02d:00 UTC", hour))
}

func (b *Bot) handleRemind(ctx context.Context, chatID, userID int64) {
	if b.checker == nil {
		b.reply(chatID, "Reminders are turned off on this server.")
		return
	}
	sent, err := b.checker.RunManualCheck(ctx, userID)
	if err != nil {
		b.log.Error("manual reminder check failed", "user_id", userID, "error", err)
		b.reply(chatID, errorText)
		return
	}
	if !sent {
		b.reply(chatID, "🎉 Nothing is due right now.")
	}
}
