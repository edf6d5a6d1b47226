// Package practice exposes the learner-facing operations: building sessions, picking
// the next item, grading and forecasting. It wires the scheduling engine and the
// selection logic to the stores.
package practice

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/engdrill/internal/apperr"
	"github.com/example/engdrill/internal/batching"
	"github.com/example/engdrill/internal/logger"
	"github.com/example/engdrill/internal/selection"
	"github.com/example/engdrill/internal/spaced_repetition"
	"github.com/example/engdrill/pkg/models"
)

// RecordStore persists review records.
type RecordStore interface {
	Get(ctx context.Context, userID int64, itemID string) (*models.ReviewRecord, error)
	GetMany(ctx context.Context, userID int64, itemIDs []string) (map[string]*models.ReviewRecord, error)
	PutMany(ctx context.Context, records []*models.ReviewRecord) error
}

// Catalog lists the content available for practice.
type Catalog interface {
	ListByLevel(ctx context.Context, level string) ([]models.CandidateItem, error)
	ByID(ctx context.Context, itemID string) (*models.CandidateItem, error)
}

// SettingsStore returns the learner's settings, falling back to defaults.
type SettingsStore interface {
	Get(ctx context.Context, userID int64) (*models.UserSettings, error)
}

// PracticeIndex tracks per-item practice history used for ranking.
type PracticeIndex interface {
	ListByUser(ctx context.Context, userID int64) (map[string]*models.PracticeStat, error)
	RecordAttempt(ctx context.Context, userID int64, itemID string, correct bool, now time.Time) (*models.PracticeStat, error)
}

// UpcomingLimit is the number of not-yet-due items a forecast lists.
const UpcomingLimit = 15

// Options configures a Service. Zero values select the defaults.
type Options struct {
	Engine        *spaced_repetition.Engine
	Rand          selection.Rand
	Clock         func() time.Time
	Batch         batching.BatchConfig
	ExclusionSize int
	Logger        *logger.Logger
}

// Service implements the practice operations on top of the stores.
type Service struct {
	records  RecordStore
	catalog  Catalog
	settings SettingsStore
	index    PracticeIndex

	engine   *spaced_repetition.Engine
	composer *selection.Composer
	selector *selection.Selector
	now      func() time.Time
	log      *logger.Logger

	exclusionSize int
	// Per-item record look-ups in flight for one request; one full batch.
	lookupLimit int

	catalogLoads *batching.Coalescer[[]models.CandidateItem]
	recordLoads  *batching.Coalescer[map[string]*models.ReviewRecord]
	recordBatch  *batching.BatchOptimizer[string, *models.ReviewRecord]
}

// NewService creates a service. Every instance owns its own coalescers and batcher.
func NewService(records RecordStore, catalog Catalog, settings SettingsStore, index PracticeIndex, opts Options) *Service {
	if opts.Engine == nil {
		opts.Engine = spaced_repetition.NewEngine()
	}
	if opts.Rand == nil {
		opts.Rand = selection.NewRand(time.Now().UnixNano())
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.ExclusionSize <= 0 {
		opts.ExclusionSize = selection.DefaultExclusionSize
	}
	if opts.Batch.MaxBatchSize <= 0 {
		opts.Batch.MaxBatchSize = batching.DefaultMaxBatchSize
	}

	s := &Service{
		records:       records,
		catalog:       catalog,
		settings:      settings,
		index:         index,
		engine:        opts.Engine,
		composer:      selection.NewComposer(opts.Rand),
		selector:      selection.NewSelector(opts.Rand),
		now:           opts.Clock,
		log:           opts.Logger.With("module", "practice"),
		exclusionSize: opts.ExclusionSize,
		lookupLimit:   opts.Batch.MaxBatchSize,
		catalogLoads:  batching.NewCoalescer[[]models.CandidateItem](),
		recordLoads:   batching.NewCoalescer[map[string]*models.ReviewRecord](),
	}
	s.recordBatch = batching.NewBatchOptimizer[string, *models.ReviewRecord](s.fetchRecords, opts.Batch)
	return s
}

// Session is a composed practice session.
type Session struct {
	Items    []models.CandidateItem
	DueCount int
	// CaughtUp is set when nothing is due. Items is empty in that case.
	CaughtUp bool
}

// Forecast summarises what is due now and what comes next.
type Forecast struct {
	DueCount  int
	NextDueAt *time.Time
	Upcoming  []models.CandidateItem
}

// GetSession builds the practice session of one item type for the user.
// When settings is nil the user's stored settings are used.
func (s *Service) GetSession(ctx context.Context, userID int64, itemType models.ItemType, settings *models.SessionSettings) (Session, error) {
	if !itemType.IsValid() {
		return Session{}, fmt.Errorf("unknown item type %q", itemType)
	}
	user, err := s.settings.Get(ctx, userID)
	if err != nil {
		return Session{}, fmt.Errorf("failed to load settings: %w", err)
	}

	due, err := s.dueSet(ctx, userID, user.Level, itemType)
	if err != nil {
		return Session{}, err
	}

	ss := user.ForType(itemType)
	if settings != nil {
		ss = *settings
	}
	items := s.composer.Compose(due.Due, itemType, ss)
	s.log.Debug("session composed",
		"user_id", userID, "type", itemType, "due", len(due.Due), "items", len(items))

	return Session{Items: items, DueCount: len(due.Due), CaughtUp: due.CaughtUp()}, nil
}

// NextItem picks the single next sentence to practise. Items in exclude are skipped.
// A pick with Tier == TierExhausted means there is nothing left; store failures are
// returned as errors and never degrade into a lower tier.
func (s *Service) NextItem(ctx context.Context, userID int64, exclude *selection.ExclusionRing) (selection.Pick, error) {
	user, err := s.settings.Get(ctx, userID)
	if err != nil {
		return selection.Pick{}, fmt.Errorf("failed to load settings: %w", err)
	}

	var (
		pool  selection.Pool
		stats map[string]*models.PracticeStat
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.itemsOfType(gctx, user.Level, models.ItemSentence)
		if err != nil {
			return err
		}
		records, err := s.loadRecords(gctx, userID, user.Level, models.ItemSentence, items)
		if err != nil {
			return err
		}
		pool.Catalog, pool.Records = items, records
		return nil
	})
	g.Go(func() error {
		var err error
		stats, err = s.index.ListByUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load practice index: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return selection.Pick{}, err
	}

	for _, item := range pool.Catalog {
		if stat := stats[item.ItemID]; stat != nil {
			pool.Indexed = append(pool.Indexed, models.NewPriorityCandidate(item, stat))
		}
	}

	pick := s.selector.Next(pool, exclude, s.now())
	kv := []interface{}{"user_id", userID, "tier", pick.Tier.String(), "reason", pick.Reason}
	if pick.Found() {
		kv = append(kv, "item_id", pick.Item.ItemID)
	}
	s.log.Debug("next item selected", kv...)
	return pick, nil
}

// Grade applies one outcome to the item and persists the new review record.
func (s *Service) Grade(ctx context.Context, userID int64, itemID string, grade models.Grade) (*models.ReviewRecord, error) {
	if !grade.IsValid() {
		return nil, apperr.Wrap(apperr.ErrInvalidGrade, "grade", fmt.Errorf("grade %d", int(grade)))
	}

	item, err := s.catalog.ByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up item: %w", err)
	}
	if item == nil {
		return nil, apperr.NotFound("grade", "item %s", itemID)
	}

	prev, err := s.records.Get(ctx, userID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load review record: %w", err)
	}

	now := s.now()
	next, err := s.engine.Grade(prev, grade, now)
	if err != nil {
		return nil, err
	}
	next.UserID = userID
	next.ItemID = itemID

	if err := s.records.PutMany(ctx, []*models.ReviewRecord{next}); err != nil {
		return nil, fmt.Errorf("failed to save review record: %w", err)
	}

	// The review record is the source of truth; a stale practice index only affects ranking.
	if _, err := s.index.RecordAttempt(ctx, userID, itemID, grade.IsCorrect(), now); err != nil {
		s.log.Warn("failed to update practice index", "user_id", userID, "item_id", itemID, "error", err)
	}

	s.log.Info("item graded",
		"user_id", userID, "item_id", itemID, "grade", grade.String(),
		"state", next.State, "interval", next.Interval, "mastered", s.engine.IsMastered(next))
	return next, nil
}

// Preview reports when the item would next be due under each grade. Nothing is persisted.
func (s *Service) Preview(ctx context.Context, userID int64, itemID string) (map[models.Grade]time.Time, error) {
	prev, err := s.records.Get(ctx, userID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load review record: %w", err)
	}
	out := make(map[models.Grade]time.Time, len(models.Grades))
	for g, r := range s.engine.Preview(prev, s.now()) {
		if r != nil {
			out[g] = r.NextReviewDate
		}
	}
	return out, nil
}

// Forecast reports the due count and the next scheduled reviews for one item type.
func (s *Service) Forecast(ctx context.Context, userID int64, itemType models.ItemType) (Forecast, error) {
	if !itemType.IsValid() {
		return Forecast{}, fmt.Errorf("unknown item type %q", itemType)
	}
	user, err := s.settings.Get(ctx, userID)
	if err != nil {
		return Forecast{}, fmt.Errorf("failed to load settings: %w", err)
	}

	due, err := s.dueSet(ctx, userID, user.Level, itemType)
	if err != nil {
		return Forecast{}, err
	}
	return Forecast{
		DueCount:  len(due.Due),
		NextDueAt: due.NextDueAt(),
		Upcoming:  selection.Items(due.Upcoming(UpcomingLimit)),
	}, nil
}

// NewCursor starts a practice cursor for the user with its own exclusion ring.
func (s *Service) NewCursor(userID int64) *Cursor {
	return &Cursor{svc: s, userID: userID, ring: selection.NewExclusionRing(s.exclusionSize)}
}

func (s *Service) dueSet(ctx context.Context, userID int64, level string, itemType models.ItemType) (selection.DueSet, error) {
	items, err := s.itemsOfType(ctx, level, itemType)
	if err != nil {
		return selection.DueSet{}, err
	}
	records, err := s.loadRecords(ctx, userID, level, itemType, items)
	if err != nil {
		return selection.DueSet{}, err
	}
	return selection.SelectDue(items, records, s.now()), nil
}

func (s *Service) itemsOfType(ctx context.Context, level string, itemType models.ItemType) ([]models.CandidateItem, error) {
	all, err := s.catalogLoads.Coalesce(ctx, "catalog:"+level, func(ctx context.Context) ([]models.CandidateItem, error) {
		return s.catalog.ListByLevel(ctx, level)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	out := make([]models.CandidateItem, 0, len(all))
	for _, item := range all {
		if item.Type == itemType {
			out = append(out, item)
		}
	}
	return out, nil
}

// loadRecords fetches the review records of items. Concurrent loads for the same user,
// level and item type share one round of look-ups, and the look-ups themselves are batched.
func (s *Service) loadRecords(ctx context.Context, userID int64, level string, itemType models.ItemType, items []models.CandidateItem) (map[string]*models.ReviewRecord, error) {
	key := fmt.Sprintf("records:%d:%s:%s", userID, level, itemType)
	records, err := s.recordLoads.Coalesce(ctx, key, func(ctx context.Context) (map[string]*models.ReviewRecord, error) {
		collection := recordCollection(userID)
		out := make(map[string]*models.ReviewRecord, len(items))
		var mu sync.Mutex

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.lookupLimit)
		for _, item := range items {
			id := item.ItemID
			g.Go(func() error {
				rec, found, err := s.recordBatch.BatchFindByID(gctx, collection, id)
				if err != nil {
					return err
				}
				if found && rec != nil {
					mu.Lock()
					out[id] = rec
					mu.Unlock()
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load review records: %w", err)
	}
	return records, nil
}

const recordCollectionPrefix = "review_records:"

func recordCollection(userID int64) string {
	return recordCollectionPrefix + strconv.FormatInt(userID, 10)
}

// fetchRecords is the bulk fetcher behind the record batcher.
func (s *Service) fetchRecords(ctx context.Context, collection string, itemIDs []string) (map[string]*models.ReviewRecord, error) {
	userID, err := strconv.ParseInt(strings.TrimPrefix(collection, recordCollectionPrefix), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad record collection %q: %w", collection, err)
	}
	return s.records.GetMany(ctx, userID, itemIDs)
}
