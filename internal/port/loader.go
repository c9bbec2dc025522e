package port

import "docqa/internal/domain"

// CorpusLoader reads eligible documents from a corpus directory.
type CorpusLoader interface {
	// Load returns all eligible documents under root. A missing directory is
	// reported via os.IsNotExist-compatible error so callers can treat it as
	// an empty corpus.
	Load(root string) ([]domain.Document, error)
}
