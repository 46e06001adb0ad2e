package store

import (
	"context"
	"sort"
	"sync"

	"OptionsSentinel/internal/model"
)

// MemoryStore keeps records in process memory. Used for dry runs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]model.DailyRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.DailyRecord)}
}

func (m *MemoryStore) Get(_ context.Context, date string) (*model.DailyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[date]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *MemoryStore) Latest(_ context.Context) (*model.DailyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return nil, ErrNotFound
	}
	dates := make([]string, 0, len(m.records))
	for d := range m.records {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return cloneRecord(m.records[dates[len(dates)-1]]), nil
}

func (m *MemoryStore) Set(_ context.Context, rec *model.DailyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Date] = *cloneRecord(*rec)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func cloneRecord(rec model.DailyRecord) *model.DailyRecord {
	opts := make([]model.OptionCandidate, len(rec.Options))
	copy(opts, rec.Options)
	return &model.DailyRecord{Date: rec.Date, Options: opts}
}
