package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/engdrill/internal/logger"
	"github.com/example/engdrill/internal/practice"
	"github.com/example/engdrill/pkg/models"
)

// Default notification window, inclusive.
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// Reminder summarises what a learner has waiting.
type Reminder struct {
	UserID    int64
	Cards     int
	Sentences int
	NextDueAt *time.Time
}

// Total is the number of items due across every item type.
func (r Reminder) Total() int {
	return r.Cards + r.Sentences
}

// Notifier interface for sending notifications
type Notifier interface {
	SendReminder(ctx context.Context, r Reminder) error
}

// Users lists learners who want a reminder at the given hour.
type Users interface {
	ListNotifiable(ctx context.Context, hour int) ([]models.UserSettings, error)
}

// Forecaster reports what is due for a learner.
type Forecaster interface {
	Forecast(ctx context.Context, userID int64, itemType models.ItemType) (practice.Forecast, error)
}

// Config sets the window in which reminders may be sent.
type Config struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler  *gocron.Scheduler
	users      Users
	forecaster Forecaster
	notifier   Notifier
	cfg        Config
	now        func() time.Time
	log        *logger.Logger
}

// New creates a new scheduler instance
func New(users Users, forecaster Forecaster, notifier Notifier, cfg Config, log *logger.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if !validHour(cfg.StartHour) || !validHour(cfg.EndHour) {
		cfg.StartHour, cfg.EndHour = DefaultNotificationStartHour, DefaultNotificationEndHour
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{
		scheduler:  gocron.NewScheduler(cfg.Location),
		users:      users,
		forecaster: forecaster,
		notifier:   notifier,
		cfg:        cfg,
		now:        time.Now,
		log:        log.With("module", "scheduler"),
	}
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start(ctx context.Context) error {
	// Hourly check for users who need notifications
	_, err := s.scheduler.Every(1).Hour().Do(func() {
		sent, err := s.RunOnce(ctx)
		if err != nil {
			s.log.Error("reminder run failed", "error", err)
			return
		}
		s.log.Info("reminder run finished", "sent", sent)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// InWindow reports whether hour lies inside the notification window.
// A window whose start is after its end wraps around midnight.
func (s *Scheduler) InWindow(hour int) bool {
	if s.cfg.StartHour <= s.cfg.EndHour {
		return hour >= s.cfg.StartHour && hour <= s.cfg.EndHour
	}
	return hour >= s.cfg.StartHour || hour <= s.cfg.EndHour
}

// RunOnce sends reminders to every learner scheduled for the current hour that has
// something due. It returns how many reminders were sent.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	hour := s.now().In(s.cfg.Location).Hour()
	if !s.InWindow(hour) {
		s.log.Debug("outside notification hours, skipping reminders",
			"hour", hour, "start", s.cfg.StartHour, "end", s.cfg.EndHour)
		return 0, nil
	}

	users, err := s.users.ListNotifiable(ctx, hour)
	if err != nil {
		return 0, fmt.Errorf("failed to get users for notification: %w", err)
	}

	sent := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		ok, err := s.remind(ctx, u.UserID)
		if err != nil {
			s.log.Warn("failed to send reminder", "user_id", u.UserID, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

// RunManualCheck forces a check for a specific user and reports whether a reminder was sent.
func (s *Scheduler) RunManualCheck(ctx context.Context, userID int64) (bool, error) {
	return s.remind(ctx, userID)
}

func (s *Scheduler) remind(ctx context.Context, userID int64) (bool, error) {
	r, err := s.reminderFor(ctx, userID)
	if err != nil {
		return false, err
	}
	if r.Total() == 0 {
		return false, nil
	}
	if err := s.notifier.SendReminder(ctx, r); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Scheduler) reminderFor(ctx context.Context, userID int64) (Reminder, error) {
	r := Reminder{UserID: userID}
	cards, err := s.forecaster.Forecast(ctx, userID, models.ItemFlashcard)
	if err != nil {
		return r, err
	}
	sentences, err := s.forecaster.Forecast(ctx, userID, models.ItemSentence)
	if err != nil {
		return r, err
	}
	r.Cards, r.Sentences = cards.DueCount, sentences.DueCount
	r.NextDueAt = earliest(cards.NextDueAt, sentences.NextDueAt)
	return r, nil
}

func earliest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Before(*a):
		return b
	default:
		return a
	}
}
