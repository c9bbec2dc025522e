package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"docqa/internal/domain"
)

// WindowChunker splits a document into fixed-size character windows where
// consecutive windows share an overlap. Windows are measured in runes so
// multi-byte text never splits mid-character.
type WindowChunker struct {
	size    int
	overlap int
}

func NewWindowChunker(size, overlap int) *WindowChunker {
	if size <= 0 {
		size = 800
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &WindowChunker{
		size:    size,
		overlap: overlap,
	}
}

// Chunk cuts doc.Content into overlapping windows, carrying the source
// identifier onto every chunk. An empty document yields no chunks.
func (c *WindowChunker) Chunk(doc domain.Document) []domain.Chunk {
	runes := []rune(doc.Content)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap

	var chunks []domain.Chunk
	for start, seq := 0, 0; start < len(runes); start, seq = start+step, seq+1 {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, domain.Chunk{
			ID:     generateChunkID(doc.Source, seq),
			Source: doc.Source,
			Seq:    seq,
			Text:   string(runes[start:end]),
		})

		if end == len(runes) {
			break
		}
	}

	return chunks
}

func generateChunkID(source string, seq int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", source, seq)))
	return hex.EncodeToString(hash[:8])
}
