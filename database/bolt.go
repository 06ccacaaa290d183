package database

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var rootBucket = []byte("fingerprints")

// BoltStore keeps records in an embedded bbolt file: one sub-bucket per
// hash key, values stored under increasing sequence numbers.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens or creates the bbolt file at path
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("cannot open bolt store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// AddMembers appends values under key
func (s *BoltStore) AddMembers(ctx context.Context, key string, values ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(rootBucket).CreateBucketIfNotExists([]byte(key))
		if err != nil {
			return err
		}
		for _, v := range values {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			var id [8]byte
			binary.BigEndian.PutUint64(id[:], seq)
			if err := b.Put(id[:], []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetMembers reads every key inside one read transaction
func (s *BoltStore) GetMembers(ctx context.Context, keys []string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]string, len(keys))
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(rootBucket)
		for i, k := range keys {
			b := root.Bucket([]byte(k))
			if b == nil {
				continue
			}
			err := b.ForEach(func(_, v []byte) error {
				out[i] = append(out[i], string(v))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// Clear drops and recreates the root bucket
func (s *BoltStore) Clear(ctx context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(rootBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(rootBucket)
		return err
	})
}

// Ping reports whether the file is still open
func (s *BoltStore) Ping(ctx context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(rootBucket) == nil {
			return fmt.Errorf("bolt store %s has no %s bucket", s.db.Path(), rootBucket)
		}
		return nil
	})
}

// Close closes the file
func (s *BoltStore) Close() error {
	return s.db.Close()
}
