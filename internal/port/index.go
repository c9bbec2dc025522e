package port

import "docqa/internal/domain"

// IndexEntry is a chunk together with its embedding vector.
type IndexEntry struct {
	ID     string
	Vector []float32
	Chunk  domain.Chunk
}

// IndexCounts summarizes index contents.
type IndexCounts struct {
	Entries int
	Sources int
}

// VectorIndex stores chunk vectors and supports nearest-neighbor search.
//
// Implementations must serialize Build/Add against concurrent Search calls:
// a search racing a write may observe the pre- or post-write contents, never
// a partial write.
type VectorIndex interface {
	// Build bulk-loads entries, replacing any existing content.
	Build(entries []IndexEntry) error

	// Add appends entries atomically: either all entries become visible or
	// the index is left unchanged and an error is returned.
	Add(entries []IndexEntry) error

	// Search returns the k nearest entries by L2 distance, best first.
	// An empty index returns an empty result without error; k larger than
	// the number of stored entries returns all of them.
	Search(vector []float32, k int) ([]domain.ScoredChunk, error)

	// Stats reports entry and distinct-source counts without mutating the index.
	Stats() (IndexCounts, error)
}
