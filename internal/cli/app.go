package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"docqa/config"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/fs"
	"docqa/internal/adapter/index"
	"docqa/internal/adapter/llm"
	"docqa/internal/port"
	"docqa/internal/usecase"
)

// app bundles the wired pipeline components a command needs, plus cleanup
// for the persistent index backend.
type app struct {
	retriever *usecase.Retriever
	pipeline  *usecase.Pipeline
	closers   []func() error
}

// Close releases backend resources, last-opened first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("cleanup failed", "error", err)
		}
	}
}

// buildApp constructs the full pipeline from configuration: loader, chunker,
// embedder, index, retriever, generation client. Construction indexes the
// corpus, so it may take a while on first run with a memory index.
func buildApp(cfg *config.Config, rootDir string) (*app, error) {
	a := &app{}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	idx, err := buildIndex(cfg, rootDir, embedder.Dimension(), a)
	if err != nil {
		return nil, err
	}

	loader := fs.NewLoader(cfg.Corpus.Includes, cfg.Corpus.Excludes)
	windows := chunker.NewWindowChunker(cfg.Corpus.ChunkSize, cfg.Corpus.ChunkOverlap)

	dataDir := cfg.Corpus.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(rootDir, dataDir)
	}

	retriever, err := usecase.NewRetriever(loader, windows, embedder, idx, dataDir, cfg.Retrieval.TopK, nil)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.retriever = retriever

	client, err := llm.NewClient(llm.Options{
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		APIKeyEnv:   cfg.LLM.APIKeyEnv,
		Temperature: cfg.LLM.Temperature,
		Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.pipeline = usecase.NewPipeline(
		retriever,
		client,
		cfg.Retrieval.DistanceThreshold,
		cfg.Retrieval.SearchK,
		usecase.DefaultRetryPolicy(),
		nil,
	)
	return a, nil
}

func buildEmbedder(cfg *config.Config) (port.Embedder, error) {
	opts := embedding.Options{
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		APIKeyEnv: cfg.Embedding.APIKeyEnv,
		Dimension: cfg.Embedding.Dimension,
		BatchSize: cfg.Embedding.BatchSize,
		Timeout:   time.Duration(cfg.Embedding.TimeoutSecs) * time.Second,
	}

	switch cfg.Embedding.Provider {
	case "", "openai":
		return embedding.NewOpenAIEmbedder(opts)
	case "ollama":
		return embedding.NewOllamaEmbedder(opts)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}
}

func buildIndex(cfg *config.Config, rootDir string, dimension int, a *app) (port.VectorIndex, error) {
	switch cfg.Index.Store {
	case "", "memory":
		return index.NewMemory(dimension), nil
	case "bolt":
		if err := cfg.EnsureStateDir(rootDir); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
		bolt, err := index.NewBolt(cfg.IndexDBPath(rootDir), dimension)
		if err != nil {
			return nil, fmt.Errorf("failed to open index: %w", err)
		}
		a.closers = append(a.closers, bolt.Close)
		return bolt, nil
	default:
		return nil, fmt.Errorf("unknown index store: %s", cfg.Index.Store)
	}
}
