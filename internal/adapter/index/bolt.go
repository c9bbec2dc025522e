package index

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"

	"docqa/internal/domain"
	"docqa/internal/port"
)

var bucketEntries = []byte("entries")

// Bolt is a bbolt-persisted vector index. Entries are written through to disk
// inside a single transaction and mirrored in memory for fast search, so the
// index survives restarts without re-embedding the corpus.
type Bolt struct {
	db        *bbolt.DB
	dimension int
	mu        sync.RWMutex
	entries   map[string]port.IndexEntry
}

type storedEntry struct {
	Vector []float32    `json:"v"`
	Chunk  domain.Chunk `json:"c"`
}

// NewBolt opens (or creates) the index database at path.
func NewBolt(path string, dimension int) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create entries bucket: %w", err)
	}

	b := &Bolt{
		db:        db,
		dimension: dimension,
		entries:   make(map[string]port.IndexEntry),
	}
	if err := b.loadEntries(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	return b, nil
}

func (b *Bolt) loadEntries() error {
	return b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			b.entries[string(k)] = port.IndexEntry{
				ID:     string(k),
				Vector: stored.Vector,
				Chunk:  stored.Chunk,
			}
			return nil
		})
	})
}

// Build replaces all index contents with the given entries.
func (b *Bolt) Build(entries []port.IndexEntry) error {
	if err := checkDimensions(entries, b.dimension); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketEntries); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		bucket, err := tx.CreateBucket(bucketEntries)
		if err != nil {
			return err
		}
		return putEntries(bucket, entries)
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}

	b.entries = make(map[string]port.IndexEntry, len(entries))
	for _, e := range entries {
		b.entries[e.ID] = e
	}
	return nil
}

// Add appends entries. The bbolt transaction either commits all of them or
// rolls back, and the memory mirror is only updated after a commit.
func (b *Bolt) Add(entries []port.IndexEntry) error {
	if err := checkDimensions(entries, b.dimension); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		if bucket == nil {
			return fmt.Errorf("entries bucket not found")
		}
		return putEntries(bucket, entries)
	})
	if err != nil {
		return fmt.Errorf("failed to add entries: %w", err)
	}

	for _, e := range entries {
		b.entries[e.ID] = e
	}
	return nil
}

func putEntries(bucket *bbolt.Bucket, entries []port.IndexEntry) error {
	for _, e := range entries {
		data, err := json.Marshal(storedEntry{Vector: e.Vector, Chunk: e.Chunk})
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(e.ID), data); err != nil {
			return err
		}
	}
	return nil
}

// Search returns the k nearest entries by L2 distance, best first.
func (b *Bolt) Search(vector []float32, k int) ([]domain.ScoredChunk, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.entries) == 0 {
		return nil, nil
	}
	if len(vector) != b.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", b.dimension, len(vector))
	}

	entries := make([]port.IndexEntry, 0, len(b.entries))
	for _, e := range b.entries {
		entries = append(entries, e)
	}
	return nearest(entries, vector, k), nil
}

// Stats reports entry and distinct-source counts.
func (b *Bolt) Stats() (port.IndexCounts, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sources := make(map[string]struct{})
	for _, e := range b.entries {
		if e.Chunk.Source != "" {
			sources[e.Chunk.Source] = struct{}{}
		}
	}
	return port.IndexCounts{
		Entries: len(b.entries),
		Sources: len(sources),
	}, nil
}

// Close closes the underlying database.
func (b *Bolt) Close() error {
	return b.db.Close()
}
