package port

import "docqa/internal/domain"

// Chunker splits a document into overlapping windows suitable for embedding.
// Chunking is purely structural: an empty document yields no chunks and there
// is no error path.
type Chunker interface {
	Chunk(doc domain.Document) []domain.Chunk
}
