package database

import (
	"context"
	"sync"
)

// MemoryStore is an in-process store, mainly for tests and one-shot compares
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]string)}
}

func (s *MemoryStore) AddMembers(_ context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append(s.data[key], values...)
	return nil
}

func (s *MemoryStore) GetMembers(_ context.Context, keys []string) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]string, len(keys))
	for i, k := range keys {
		out[i] = append([]string(nil), s.data[k]...)
	}
	return out, nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string][]string)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// GetScanStats mirrors SQLiteStore.GetScanStats
func (s *MemoryStore) GetScanStats(context.Context) (*ScanStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &ScanStats{UniqueHashes: len(s.data)}
	for _, v := range s.data {
		stats.TotalRecords += len(v)
	}
	return stats, nil
}
