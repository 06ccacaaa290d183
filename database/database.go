package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"trianglefinder/logging"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps fingerprint records in a single table keyed by hash hex
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// InitDatabase opens (or creates) the database at dbPath and ensures the schema exists
func InitDatabase(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Create table if it doesn't exist
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS fingerprints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hash TEXT NOT NULL,
		record TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_hash ON fingerprints(hash);`

	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create schema in %s: %w", dbPath, err)
	}

	// Writers from several goroutines would otherwise hit SQLITE_BUSY
	db.SetMaxOpenConns(1)

	logging.DebugLog("Opened sqlite store %s", dbPath)
	return &SQLiteStore{db: db, path: dbPath}, nil
}

// AddMembers inserts one row per value
func (s *SQLiteStore) AddMembers(ctx context.Context, key string, values ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	// Prepare statement to avoid SQL injection
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fingerprints (hash, record) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("cannot prepare statement for %s: %w", key, err)
	}
	defer stmt.Close()

	for _, v := range values {
		if _, err := stmt.ExecContext(ctx, key, v); err != nil {
			tx.Rollback()
			return fmt.Errorf("cannot insert record for %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// GetMembers fetches the records of all keys with one IN query
func (s *SQLiteStore) GetMembers(ctx context.Context, keys []string) ([][]string, error) {
	out := make([][]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	position := make(map[string][]int, len(keys))
	args := make([]interface{}, 0, len(keys))
	for i, k := range keys {
		if _, ok := position[k]; !ok {
			args = append(args, k)
		}
		position[k] = append(position[k], i)
	}

	query := `SELECT hash, record FROM fingerprints WHERE hash IN (?` +
		strings.Repeat(",?", len(args)-1) + `) ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot query fingerprints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hash, record string
		if err := rows.Scan(&hash, &record); err != nil {
			return nil, err
		}
		for _, i := range position[hash] {
			out[i] = append(out[i], record)
		}
	}
	return out, rows.Err()
}

// Clear deletes every record
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM fingerprints`); err != nil {
		return fmt.Errorf("cannot clear %s: %w", s.path, err)
	}
	return nil
}

// Ping checks the database is reachable
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ScanStats contains statistics about the stored fingerprints
type ScanStats struct {
	TotalRecords int
	UniqueHashes int
}

// GetScanStats retrieves record and distinct hash counts
func (s *SQLiteStore) GetScanStats(ctx context.Context) (*ScanStats, error) {
	var stats ScanStats

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fingerprints").Scan(&stats.TotalRecords)
	if err != nil {
		return nil, fmt.Errorf("failed to get total records: %w", err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT hash) FROM fingerprints").Scan(&stats.UniqueHashes)
	if err != nil {
		return nil, fmt.Errorf("failed to get unique hashes: %w", err)
	}

	return &stats, nil
}
