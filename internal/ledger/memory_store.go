package ledger

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory ledger store for tests and demo mode.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
}

// NewMemoryStore creates an empty in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make([]*Record, 0)}
}

func (m *MemoryStore) Append(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *rec
	cp.Evidence = append([]string(nil), rec.Evidence...)
	m.records = append(m.records, &cp)
	return nil
}

func (m *MemoryStore) Latest(ctx context.Context, limit int) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Record, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *m.records[i]
		cp.Evidence = append([]string(nil), m.records[i].Evidence...)
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.records)), nil
}

func (m *MemoryStore) CountRiskAtLeast(ctx context.Context, min float64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, rec := range m.records {
		if rec.RiskScore >= min {
			n++
		}
	}
	return n, nil
}
