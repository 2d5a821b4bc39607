// Package storage wraps Pebble behind the small key-value surface the exchange
// needs: point reads, prefix scans, and atomic multi-key batch commits.
package storage

import (
	"fmt"

	"github.com/cockroachdb/pebble"
)

type Store struct {
	db *pebble.DB
}

// Open opens a Pebble database at the given path
func Open(path string) (*Store, error) {
	opts := &pebble.Options{
		Cache:                 pebble.NewCache(128 << 20), // 128MB cache
		MemTableSize:          64 << 20,                   // 64MB memtable
		L0CompactionThreshold: 2,
		L0StopWritesThreshold: 12,
		LBaseMaxBytes:         64 << 20,
		MaxOpenFiles:          1000,
		BytesPerSync:          512 << 10,
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns a copy of the value for key, or ok=false if absent.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	val, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

// Set writes a single key synchronously.
func (s *Store) Set(key, val []byte) error {
	if err := s.db.Set(key, val, pebble.Sync); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Scan iterates all keys with the given prefix in lexicographic order.
// The callback returns false to stop early. Key/value slices are only
// valid for the duration of the callback.
func (s *Store) Scan(prefix []byte, fn func(key, val []byte) bool) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: PrefixUpperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if !fn(iter.Key(), iter.Value()) {
			break
		}
	}
	return iter.Error()
}

// Batch groups writes so a whole exchange operation commits as one
// indivisible Pebble write.
type Batch struct {
	batch *pebble.Batch
}

// NewBatch creates a new batch writer
func (s *Store) NewBatch() *Batch {
	return &Batch{batch: s.db.NewBatch()}
}

// Set adds a key write to the batch
func (b *Batch) Set(key, val []byte) {
	// pebble.Batch.Set only errors on a closed batch
	_ = b.batch.Set(key, val, nil)
}

// Commit writes the batch to Pebble atomically
func (b *Batch) Commit() error {
	return b.batch.Commit(pebble.Sync)
}

// Close closes the batch without committing
func (b *Batch) Close() error {
	return b.batch.Close()
}

// PrefixUpperBound returns the exclusive upper bound for a prefix scan:
// the shortest key greater than every key carrying the prefix. Trailing
// 0xff bytes carry into the preceding byte; nil means unbounded (empty
// prefix, or a prefix that is all 0xff).
func PrefixUpperBound(prefix []byte) []byte {
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] != 0xff {
			bound := make([]byte, i+1)
			copy(bound, prefix[:i+1])
			bound[i]++
			return bound
		}
	}
	return nil
}
