package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/example/engdrill/internal/apperr"
	"github.com/example/engdrill/pkg/models"
)

// RetryPolicy controls how transient store failures are retried.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy retries three times starting at 50ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxTries: 3, InitialInterval: 50 * time.Millisecond, MaxInterval: time.Second}
}

func (p RetryPolicy) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	return b
}

// withRetry runs op until it succeeds, fails with a non retryable error or runs out of tries.
func withRetry[T any](ctx context.Context, p RetryPolicy, op func() (T, error)) (T, error) {
	tries := p.MaxTries
	if tries == 0 {
		tries = 1
	}
	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !apperr.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(p.newBackOff()), backoff.WithMaxTries(tries))
}

type recordBackend interface {
	Get(ctx context.Context, userID int64, itemID string) (*models.ReviewRecord, error)
	GetMany(ctx context.Context, userID int64, itemIDs []string) (map[string]*models.ReviewRecord, error)
	PutMany(ctx context.Context, records []*models.ReviewRecord) error
}

// RetryingRecordStore retries transient review record store failures with backoff.
type RetryingRecordStore struct {
	next   recordBackend
	policy RetryPolicy
}

// NewRetryingRecordStore wraps next with the retry policy.
func NewRetryingRecordStore(next recordBackend, policy RetryPolicy) *RetryingRecordStore {
	return &RetryingRecordStore{next: next, policy: policy}
}

func (s *RetryingRecordStore) Get(ctx context.Context, userID int64, itemID string) (*models.ReviewRecord, error) {
	return withRetry(ctx, s.policy, func() (*models.ReviewRecord, error) {
		return s.next.Get(ctx, userID, itemID)
	})
}

func (s *RetryingRecordStore) GetMany(ctx context.Context, userID int64, itemIDs []string) (map[string]*models.ReviewRecord, error) {
	return withRetry(ctx, s.policy, func() (map[string]*models.ReviewRecord, error) {
		return s.next.GetMany(ctx, userID, itemIDs)
	})
}

func (s *RetryingRecordStore) PutMany(ctx context.Context, records []*models.ReviewRecord) error {
	_, err := withRetry(ctx, s.policy, func() (struct{}, error) {
		return struct{}{}, s.next.PutMany(ctx, records)
	})
	return err
}

type catalogBackend interface {
	ListByLevel(ctx context.Context, level string) ([]models.CandidateItem, error)
	ByID(ctx context.Context, itemID string) (*models.CandidateItem, error)
}

// RetryingCatalog retries transient catalog read failures with backoff.
type RetryingCatalog struct {
	next   catalogBackend
	policy RetryPolicy
}

// NewRetryingCatalog wraps next with the retry policy.
func NewRetryingCatalog(next catalogBackend, policy RetryPolicy) *RetryingCatalog {
	return &RetryingCatalog{next: next, policy: policy}
}

func (c *RetryingCatalog) ListByLevel(ctx context.Context, level string) ([]models.CandidateItem, error) {
	return withRetry(ctx, c.policy, func() ([]models.CandidateItem, error) {
		return c.next.ListByLevel(ctx, level)
	})
}

func (c *RetryingCatalog) ByID(ctx context.Context, itemID string) (*models.CandidateItem, error) {
	return withRetry(ctx, c.policy, func() (*models.CandidateItem, error) {
		return c.next.ByID(ctx, itemID)
	})
}

// RetryingSettings retries transient settings store failures with backoff.
type RetryingSettings struct {
	next   settingsBackend
	policy RetryPolicy
}

// NewRetryingSettings wraps next with the retry policy.
func NewRetryingSettings(next settingsBackend, policy RetryPolicy) *RetryingSettings {
	return &RetryingSettings{next: next, policy: policy}
}

func (s *RetryingSettings) Get(ctx context.Context, userID int64) (*models.UserSettings, error) {
	return withRetry(ctx, s.policy, func() (*models.UserSettings, error) {
		return s.next.Get(ctx, userID)
	})
}

func (s *RetryingSettings) Save(ctx context.Context, settings *models.UserSettings) error {
	_, err := withRetry(ctx, s.policy, func() (struct{}, error) {
		return struct{}{}, s.next.Save(ctx, settings)
	})
	return err
}

func (s *RetryingSettings) ListNotifiable(ctx context.Context, hour int) ([]models.UserSettings, error) {
	return withRetry(ctx, s.policy, func() ([]models.UserSettings, error) {
		return s.next.ListNotifiable(ctx, hour)
	})
}

type practiceIndexBackend interface {
	ListByUser(ctx context.Context, userID int64) (map[string]*models.PracticeStat, error)
	RecordAttempt(ctx context.Context, userID int64, itemID string, correct bool, now time.Time) (*models.PracticeStat, error)
}

// RetryingPracticeIndex retries transient practice index failures with backoff.
type RetryingPracticeIndex struct {
	next   practiceIndexBackend
	policy RetryPolicy
}

// NewRetryingPracticeIndex wraps next with the retry policy.
func NewRetryingPracticeIndex(next practiceIndexBackend, policy RetryPolicy) *RetryingPracticeIndex {
	return &RetryingPracticeIndex{next: next, policy: policy}
}

func (p *RetryingPracticeIndex) ListByUser(ctx context.Context, userID int64) (map[string]*models.PracticeStat, error) {
	return withRetry(ctx, p.policy, func() (map[string]*models.PracticeStat, error) {
		return p.next.ListByUser(ctx, userID)
	})
}

// RecordAttempt runs in a single transaction, so a failed try leaves no partial count behind.
func (p *RetryingPracticeIndex) RecordAttempt(ctx context.Context, userID int64, itemID string, correct bool, now time.Time) (*models.PracticeStat, error) {
	return withRetry(ctx, p.policy, func() (*models.PracticeStat, error) {
		return p.next.RecordAttempt(ctx, userID, itemID, correct, now)
	})
}
