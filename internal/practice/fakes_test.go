package practice

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/engdrill/internal/batching"
	"github.com/example/engdrill/internal/selection"
	"github.com/example/engdrill/pkg/models"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type memRecords struct {
	mu           sync.Mutex
	records      map[string]*models.ReviewRecord
	getManyCalls atomic.Int32
	getErr       error
	putErr       error
}

func newMemRecords() *memRecords {
	return &memRecords{records: make(map[string]*models.ReviewRecord)}
}

func recordKey(userID int64, itemID string) string {
	return fmt.Sprintf("%d/%s", userID, itemID)
}

func (m *memRecords) put(r *models.ReviewRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[recordKey(r.UserID, r.ItemID)] = r.Clone()
}

func (m *memRecords) Get(ctx context.Context, userID int64, itemID string) (*models.ReviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if r, ok := m.records[recordKey(userID, itemID)]; ok {
		return r.Clone(), nil
	}
	return nil, nil
}

func (m *memRecords) GetMany(ctx context.Context, userID int64, itemIDs []string) (map[string]*models.ReviewRecord, error) {
	m.getManyCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make(map[string]*models.ReviewRecord)
	for _, id := range itemIDs {
		if r, ok := m.records[recordKey(userID, id)]; ok {
			out[id] = r.Clone()
		}
	}
	return out, nil
}

func (m *memRecords) PutMany(ctx context.Context, records []*models.ReviewRecord) error {
	if m.putErr != nil {
		return m.putErr
	}
	for _, r := range records {
		m.put(r)
	}
	return nil
}

type memCatalog struct {
	items     []models.CandidateItem
	listCalls atomic.Int32
	byIDCalls atomic.Int32
	release   chan struct{}
}

func (m *memCatalog) ListByLevel(ctx context.Context, level string) ([]models.CandidateItem, error) {
	m.listCalls.Add(1)
	if m.release != nil {
		<-m.release
	}
	var out []models.CandidateItem
	for _, it := range m.items {
		if it.Level == level {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memCatalog) ByID(ctx context.Context, itemID string) (*models.CandidateItem, error) {
	m.byIDCalls.Add(1)
	for _, it := range m.items {
		if it.ItemID == itemID {
			item := it
			return &item, nil
		}
	}
	return nil, nil
}

type memSettings struct {
	settings models.UserSettings
}

func (m *memSettings) Get(ctx context.Context, userID int64) (*models.UserSettings, error) {
	s := m.settings
	s.UserID = userID
	return &s, nil
}

type memIndex struct {
	mu        sync.Mutex
	stats     map[string]*models.PracticeStat
	listErr   error
	recordErr error
}

func newMemIndex() *memIndex {
	return &memIndex{stats: make(map[string]*models.PracticeStat)}
}

func (m *memIndex) ListByUser(ctx context.Context, userID int64) (map[string]*models.PracticeStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make(map[string]*models.PracticeStat)
	for id, s := range m.stats {
		if s.UserID == userID {
			cp := *s
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *memIndex) RecordAttempt(ctx context.Context, userID int64, itemID string, correct bool, now time.Time) (*models.PracticeStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return nil, m.recordErr
	}
	s, ok := m.stats[itemID]
	if !ok {
		s = &models.PracticeStat{UserID: userID, ItemID: itemID}
		m.stats[itemID] = s
	}
	s.Record(correct, now)
	cp := *s
	return &cp, nil
}

type fixture struct {
	records  *memRecords
	catalog  *memCatalog
	settings *memSettings
	index    *memIndex
	svc      *Service
}

func newFixture(items ...models.CandidateItem) *fixture {
	f := &fixture{
		records:  newMemRecords(),
		catalog:  &memCatalog{items: items},
		settings: &memSettings{settings: models.UserSettings{Level: "A1"}},
		index:    newMemIndex(),
	}
	f.svc = NewService(f.records, f.catalog, f.settings, f.index, Options{
		Rand:  selection.NewRand(1),
		Clock: func() time.Time { return t0 },
		Batch: batching.BatchConfig{Window: 50 * time.Millisecond},
	})
	return f
}

func card(id string) models.CandidateItem {
	return models.CandidateItem{ItemID: id, Type: models.ItemFlashcard, Level: "A1", Prompt: id, Answer: id}
}

func sentence(id string) models.CandidateItem {
	return models.CandidateItem{ItemID: id, Type: models.ItemSentence, Level: "A1", Prompt: id, Answer: id}
}

func scheduled(id string, next time.Time) *models.ReviewRecord {
	return &models.ReviewRecord{
		UserID:         1,
		ItemID:         id,
		State:          models.StateReview,
		Repetitions:    2,
		EaseFactor:     2.5,
		Interval:       3,
		NextReviewDate: next,
	}
}

func ids(items []models.CandidateItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ItemID
	}
	return out
}
