package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aimd54/engagement-engine/internal/models"
)

// MemoryRecordStore is an in-memory analytics record log.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records []models.AnalyticsRecord
	nextID  uint
	Err     error // returned by every method when set
}

// NewMemoryRecordStore creates an empty record log.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{nextID: 1}
}

// Append stores a copy of record and assigns its ID.
func (m *MemoryRecordStore) Append(ctx context.Context, record *models.AnalyticsRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	record.ID = m.nextID
	m.nextID++
	m.records = append(m.records, *record)
	return nil
}

// ListSince returns records with RecordedAt >= since, oldest first.
func (m *MemoryRecordStore) ListSince(ctx context.Context, since time.Time) ([]models.AnalyticsRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	var out []models.AnalyticsRecord
	for _, r := range m.records {
		if !r.RecordedAt.Before(since) {
			out = append(out, r)
		}
	}
	sortRecords(out)
	return out, nil
}

// ListAll returns every record, oldest first.
func (m *MemoryRecordStore) ListAll(ctx context.Context) ([]models.AnalyticsRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	out := append([]models.AnalyticsRecord(nil), m.records...)
	sortRecords(out)
	return out, nil
}

// DeleteBefore removes records with RecordedAt <= cutoff.
func (m *MemoryRecordStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return 0, m.Err
	}
	kept := m.records[:0]
	var deleted int64
	for _, r := range m.records {
		if r.RecordedAt.After(cutoff) {
			kept = append(kept, r)
			continue
		}
		deleted++
	}
	m.records = kept
	return deleted, nil
}

// Count returns the number of stored records.
func (m *MemoryRecordStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return 0, m.Err
	}
	return int64(len(m.records)), nil
}

// Seed appends records as-is, keeping their RecordedAt.
func (m *MemoryRecordStore) Seed(records ...models.AnalyticsRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		r.ID = m.nextID
		m.nextID++
		m.records = append(m.records, r)
	}
}

func sortRecords(records []models.AnalyticsRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].RecordedAt.Equal(records[j].RecordedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].RecordedAt.Before(records[j].RecordedAt)
	})
}
