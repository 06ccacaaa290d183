// Package database provides the fingerprint stores: sqlite, redis, bbolt and in-memory.
package database

import (
	"context"
	"fmt"
	"strings"

	"trianglefinder/index"
)

// StatsProvider is implemented by stores that can summarize their contents
type StatsProvider interface {
	GetScanStats(ctx context.Context) (*ScanStats, error)
}

// Open picks a store from a DSN:
//
//	sqlite:///path/to/file.db  (or a bare path)
//	redis://host:port/db
//	bolt:///path/to/file.bolt
//	memory://
func Open(dsn string) (index.Store, error) {
	switch {
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return NewRedisStoreFromURL(dsn)
	case strings.HasPrefix(dsn, "bolt://"):
		return OpenBoltStore(strings.TrimPrefix(dsn, "bolt://"))
	case strings.HasPrefix(dsn, "memory://"):
		return NewMemoryStore(), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return InitDatabase(strings.TrimPrefix(dsn, "sqlite://"))
	case strings.Contains(dsn, "://"):
		return nil, fmt.Errorf("unsupported store scheme in %q", dsn)
	}
	return InitDatabase(dsn)
}
