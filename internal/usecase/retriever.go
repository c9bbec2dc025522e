package usecase

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// Retriever wraps the chunker, embedder and vector index behind the
// query-time lookup the pipeline needs. Construction loads and indexes the
// corpus; a missing or empty corpus directory yields an empty but operational
// index rather than a startup failure.
type Retriever struct {
	loader   port.CorpusLoader
	chunker  port.Chunker
	embedder port.Embedder
	index    port.VectorIndex
	dataDir  string
	topK     int
	log      *slog.Logger

	mu    sync.RWMutex
	built bool
}

// NewRetriever builds a retriever and indexes the corpus directory. Errors
// other than a missing/empty corpus (unreadable files, embedding failures,
// index write failures) are fatal and fail construction.
func NewRetriever(
	loader port.CorpusLoader,
	chunker port.Chunker,
	embedder port.Embedder,
	index port.VectorIndex,
	dataDir string,
	topK int,
	log *slog.Logger,
) (*Retriever, error) {
	if topK <= 0 {
		topK = 2
	}
	if log == nil {
		log = slog.Default()
	}

	r := &Retriever{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		dataDir:  dataDir,
		topK:     topK,
		log:      log,
	}

	// A persistent index may already hold the corpus from a previous run.
	if counts, err := index.Stats(); err == nil && counts.Entries > 0 {
		r.built = true
		log.Info("using existing index", "chunks", counts.Entries, "documents", counts.Sources)
		return r, nil
	}

	if err := r.initialize(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Retriever) initialize() error {
	docs, err := r.loader.Load(r.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			r.log.Warn("corpus directory does not exist, starting with empty index", "dir", r.dataDir)
			return r.buildIndex(nil)
		}
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	if len(docs) == 0 {
		r.log.Warn("no documents found in corpus directory", "dir", r.dataDir)
		return r.buildIndex(nil)
	}

	r.log.Info("loading corpus", "dir", r.dataDir, "documents", len(docs))

	entries, err := r.buildEntries(docs, nil)
	if err != nil {
		return fmt.Errorf("failed to index corpus: %w", err)
	}
	if err := r.buildIndex(entries); err != nil {
		return err
	}

	r.log.Info("corpus indexed", "documents", len(docs), "chunks", len(entries))
	return nil
}

func (r *Retriever) buildIndex(entries []port.IndexEntry) error {
	if err := r.index.Build(entries); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}
	r.mu.Lock()
	r.built = true
	r.mu.Unlock()
	return nil
}

// buildEntries chunks and embeds documents one document at a time, reporting
// progress after each.
func (r *Retriever) buildEntries(docs []domain.Document, progress func(done, total int)) ([]port.IndexEntry, error) {
	var entries []port.IndexEntry

	for i, doc := range docs {
		chunks := r.chunker.Chunk(doc)
		if len(chunks) == 0 {
			if progress != nil {
				progress(i+1, len(docs))
			}
			continue
		}

		texts := make([]string, len(chunks))
		for j, chunk := range chunks {
			texts[j] = chunk.Text
		}

		vectors, err := r.embedder.Embed(texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed %s: %w", doc.Source, err)
		}
		if len(vectors) != len(chunks) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks of %s", len(vectors), len(chunks), doc.Source)
		}

		for j, chunk := range chunks {
			entries = append(entries, port.IndexEntry{
				ID:     chunk.ID,
				Vector: vectors[j],
				Chunk:  chunk,
			})
		}

		if progress != nil {
			progress(i+1, len(docs))
		}
	}

	return entries, nil
}

// Retrieve embeds the query and returns the k nearest chunks with their
// distances, best first. Every failure on this path is absorbed into an
// empty result: query-time retrieval must never take down the pipeline.
func (r *Retriever) Retrieve(query string, k int) []domain.ScoredChunk {
	if k <= 0 {
		k = r.topK
	}

	vectors, err := r.embedder.Embed([]string{query})
	if err != nil {
		r.log.Error("failed to embed query, returning empty results", "error", err)
		return nil
	}
	if len(vectors) == 0 {
		r.log.Error("embedder returned no vector for query")
		return nil
	}

	results, err := r.index.Search(vectors[0], k)
	if err != nil {
		r.log.Error("vector search failed, returning empty results", "error", err)
		return nil
	}

	if len(results) == 0 {
		r.log.Warn("no results found for query", "query", preview(query))
		return nil
	}

	r.log.Info("retrieved chunks",
		"count", len(results),
		"min_distance", results[0].Distance,
		"query", preview(query))
	return results
}

// AddDocuments chunks, embeds and appends documents to the index. Unlike the
// query path, errors here propagate: this is an explicit administrative
// operation, not part of serving a question.
func (r *Retriever) AddDocuments(docs []domain.Document) error {
	if len(docs) == 0 {
		r.log.Warn("no documents provided to add")
		return nil
	}

	entries, err := r.buildEntries(docs, nil)
	if err != nil {
		return err
	}

	r.mu.RLock()
	built := r.built
	r.mu.RUnlock()

	if !built {
		return r.buildIndex(entries)
	}

	if err := r.index.Add(entries); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	r.log.Info("added documents", "documents", len(docs), "chunks", len(entries))
	return nil
}

// Reindex reloads the corpus directory and rebuilds the index from scratch,
// reporting per-document progress. Returns document and chunk counts.
func (r *Retriever) Reindex(progress func(done, total int)) (int, int, error) {
	docs, err := r.loader.Load(r.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			r.log.Warn("corpus directory does not exist", "dir", r.dataDir)
			return 0, 0, r.buildIndex(nil)
		}
		return 0, 0, fmt.Errorf("failed to load corpus: %w", err)
	}

	entries, err := r.buildEntries(docs, progress)
	if err != nil {
		return 0, 0, err
	}
	if err := r.buildIndex(entries); err != nil {
		return 0, 0, err
	}
	return len(docs), len(entries), nil
}

// Stats reports index health. It never fails: problems are folded into an
// error status with a diagnostic message.
func (r *Retriever) Stats() domain.IndexStats {
	stats := domain.IndexStats{
		EmbeddingModel: r.embedder.ModelName(),
		TopK:           r.topK,
	}

	r.mu.RLock()
	built := r.built
	r.mu.RUnlock()

	if !built {
		stats.Status = domain.StatusNotInitialized
		return stats
	}

	counts, err := r.index.Stats()
	if err != nil {
		stats.Status = domain.StatusError
		stats.Err = err.Error()
		return stats
	}

	if counts.Entries == 0 {
		stats.Status = domain.StatusEmpty
		return stats
	}

	stats.Status = domain.StatusReady
	stats.Documents = counts.Sources
	stats.TotalChunks = counts.Entries
	return stats
}

func preview(s string) string {
	if len(s) > 50 {
		return s[:50] + "..."
	}
	return s
}
