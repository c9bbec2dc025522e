// Package index provides vector index implementations: a volatile in-memory
// index and a bbolt-persisted one. Both use brute-force L2 search, which is
// plenty for corpus sizes in the thousands of chunks.
package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// Memory is an in-memory vector index. Writes are serialized against reads,
// so a search concurrent with Build/Add sees either the old or the new
// contents, never a partial write.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	entries   []port.IndexEntry
}

func NewMemory(dimension int) *Memory {
	return &Memory{dimension: dimension}
}

// Build replaces all index contents with the given entries.
func (m *Memory) Build(entries []port.IndexEntry) error {
	if err := checkDimensions(entries, m.dimension); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]port.IndexEntry(nil), entries...)
	return nil
}

// Add appends entries. The entire call succeeds or the index is unchanged.
func (m *Memory) Add(entries []port.IndexEntry) error {
	if err := checkDimensions(entries, m.dimension); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return nil
}

// Search returns the k nearest entries by L2 distance, best first.
func (m *Memory) Search(vector []float32, k int) ([]domain.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		return nil, nil
	}
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", m.dimension, len(vector))
	}

	return nearest(m.entries, vector, k), nil
}

// Stats reports entry and distinct-source counts.
func (m *Memory) Stats() (port.IndexCounts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return countEntries(m.entries), nil
}

func checkDimensions(entries []port.IndexEntry, dimension int) error {
	for _, e := range entries {
		if len(e.Vector) != dimension {
			return fmt.Errorf("vector dimension mismatch for %s: expected %d, got %d", e.ID, dimension, len(e.Vector))
		}
	}
	return nil
}

func countEntries(entries []port.IndexEntry) port.IndexCounts {
	sources := make(map[string]struct{})
	for _, e := range entries {
		if e.Chunk.Source != "" {
			sources[e.Chunk.Source] = struct{}{}
		}
	}
	return port.IndexCounts{
		Entries: len(entries),
		Sources: len(sources),
	}
}

// nearest scores every entry against the query and returns the k best.
func nearest(entries []port.IndexEntry, vector []float32, k int) []domain.ScoredChunk {
	scored := make([]domain.ScoredChunk, 0, len(entries))
	for _, e := range entries {
		scored = append(scored, domain.ScoredChunk{
			Chunk:    e.Chunk,
			Distance: l2Distance(vector, e.Vector),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Distance < scored[j].Distance
	})

	if k > len(scored) {
		k = len(scored)
	}
	if k < 0 {
		k = 0
	}
	return scored[:k]
}

// l2Distance computes the Euclidean distance between two vectors.
func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
