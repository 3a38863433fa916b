package storage

import (
	"context"
	"sync"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// MetricsStore persists the tracker snapshot under a single key.
// Load returns (nil, nil) when nothing has been saved yet.
type MetricsStore interface {
	Load(ctx context.Context) (*types.Snapshot, error)
	Save(ctx context.Context, snapshot types.Snapshot) error
	Clear(ctx context.Context) error
	Close() error
}

// NoopStore is used when persistence is disabled
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (s *NoopStore) Load(_ context.Context) (*types.Snapshot, error) { return nil, nil }
func (s *NoopStore) Save(_ context.Context, _ types.Snapshot) error  { return nil }
func (s *NoopStore) Clear(_ context.Context) error                   { return nil }
func (s *NoopStore) Close() error                                    { return nil }

// MemoryStore keeps the snapshot in process memory
type MemoryStore struct {
	mu       sync.Mutex
	snapshot *types.Snapshot
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(_ context.Context) (*types.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return nil, nil
	}
	cp := cloneSnapshot(*s.snapshot)
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, snapshot types.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneSnapshot(snapshot)
	s.snapshot = &cp
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func cloneSnapshot(s types.Snapshot) types.Snapshot {
	s.CallHistory = append([]types.CallRecord{}, s.CallHistory...)
	s.DailyStats = append([]types.DailyStat{}, s.DailyStats...)
	s.HourlyData = append([]types.HourlyBucket{}, s.HourlyData...)
	return s
}
