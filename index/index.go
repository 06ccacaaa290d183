// Package index maintains the inverted fingerprint index and aggregates query matches.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"trianglefinder/fingerprint"
	"trianglefinder/logging"
	"trianglefinder/types"
)

// DefaultBatchSize is the number of keys sent per store round-trip
const DefaultBatchSize = 1000

// ErrStoreUnavailable wraps connectivity failures detected before an operation starts
var ErrStoreUnavailable = errors.New("fingerprint store unavailable")

// ErrMalformedReply is returned when a store answers a lookup with the wrong number of slices
var ErrMalformedReply = errors.New("malformed store reply")

// Store is a multi-valued key/value store. Values added under a key
// accumulate; adding the same value twice keeps both copies.
type Store interface {
	AddMembers(ctx context.Context, key string, values ...string) error
	// GetMembers returns the values of each key, in key order, in one round-trip
	GetMembers(ctx context.Context, keys []string) ([][]string, error)
	Clear(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Index maps fingerprint hex keys to the (image, triangle) records that produced them
type Index struct {
	Store     Store
	BatchSize int
}

// New creates an index over store
func New(store Store) *Index {
	return &Index{Store: store, BatchSize: DefaultBatchSize}
}

func (ix *Index) batchSize() int {
	if ix.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return ix.BatchSize
}

func (ix *Index) ping(ctx context.Context) error {
	if err := ix.Store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// EncodeRecord serializes a record as compact JSON
func EncodeRecord(rec types.FingerprintRecord) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeRecord parses a record written by EncodeRecord
func DecodeRecord(s string) (types.FingerprintRecord, error) {
	var raw struct {
		ImageName *string          `json:"imageName"`
		Triangle  []types.Keypoint `json:"triangle"`
	}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return types.FingerprintRecord{}, fmt.Errorf("cannot decode record: %w", err)
	}
	if raw.ImageName == nil {
		return types.FingerprintRecord{}, fmt.Errorf("record has no imageName")
	}
	if len(raw.Triangle) != 3 {
		return types.FingerprintRecord{}, fmt.Errorf("record triangle has %d points", len(raw.Triangle))
	}

	rec := types.FingerprintRecord{ImageName: *raw.ImageName}
	copy(rec.Triangle[:], raw.Triangle)
	return rec, nil
}

// Insert adds one record per pair. Inserting an image twice stores its
// records twice; Clear first when re-ingesting.
func (ix *Index) Insert(ctx context.Context, imageName string, pairs []fingerprint.Pair) (int, error) {
	if err := ix.ping(ctx); err != nil {
		return 0, err
	}

	count := 0
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		rec, err := EncodeRecord(types.FingerprintRecord{ImageName: imageName, Triangle: p.Triangle.Points})
		if err != nil {
			return count, fmt.Errorf("cannot encode record for %s: %w", imageName, err)
		}
		if err := ix.Store.AddMembers(ctx, p.Hash.Hex(), rec); err != nil {
			return count, fmt.Errorf("cannot store fragment for %s: %w", imageName, err)
		}
		count++
	}

	logging.DebugLog("Added %d image fragments for %s", count, imageName)
	return count, nil
}

// Query looks up every distinct fingerprint of pairs and counts the stored
// records per image name. Records that cannot be decoded are skipped.
func (ix *Index) Query(ctx context.Context, pairs []fingerprint.Pair) (types.MatchAggregate, error) {
	if err := ix.ping(ctx); err != nil {
		return nil, err
	}

	keys := distinctKeys(pairs)
	aggregate := make(types.MatchAggregate)
	size := ix.batchSize()

	for start := 0; start < len(keys); start += size {
		end := start + size
		if end > len(keys) {
			end = len(keys)
		}

		replies, err := ix.Store.GetMembers(ctx, keys[start:end])
		if err != nil {
			return nil, fmt.Errorf("lookup of batch %d-%d failed: %w", start, end, err)
		}
		if len(replies) != end-start {
			return nil, fmt.Errorf("%w: %d replies for %d keys", ErrMalformedReply, len(replies), end-start)
		}

		for _, members := range replies {
			for _, m := range members {
				rec, err := DecodeRecord(m)
				if err != nil {
					logging.LogWarning("Skipping stored record %q: %v", m, err)
					continue
				}
				aggregate[rec.ImageName]++
			}
		}
	}

	return aggregate, nil
}

// Clear removes every record from the index
func (ix *Index) Clear(ctx context.Context) error {
	if err := ix.ping(ctx); err != nil {
		return err
	}
	return ix.Store.Clear(ctx)
}

// Compare clears the index, inserts image A and queries it with image B's fingerprints
func (ix *Index) Compare(ctx context.Context, nameA string, pairsA, pairsB []fingerprint.Pair) (types.MatchAggregate, error) {
	if err := ix.Clear(ctx); err != nil {
		return nil, err
	}
	if _, err := ix.Insert(ctx, nameA, pairsA); err != nil {
		return nil, err
	}
	return ix.Query(ctx, pairsB)
}

func distinctKeys(pairs []fingerprint.Pair) []string {
	seen := make(map[string]struct{}, len(pairs))
	keys := make([]string, 0, len(pairs))
	for _, p := range pairs {
		k := p.Hash.Hex()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}
