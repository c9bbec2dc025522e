package domain

// Document is a raw source file loaded from the corpus directory.
// It is consumed into chunks during indexing and not retained afterwards.
type Document struct {
	Source  string
	Content string
}

// Chunk is a bounded text window cut from a document, the unit of retrieval.
// Immutable once created.
type Chunk struct {
	ID     string
	Source string
	Seq    int
	Text   string
}

// ScoredChunk pairs a chunk with its L2 distance to the query vector.
// Smaller distance means more similar.
type ScoredChunk struct {
	Chunk    Chunk
	Distance float64
}

// Message roles for conversation turns.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is the state carried through one pipeline invocation. It is created
// per invocation and discarded once the caller has read it.
type Result struct {
	Messages           []Message
	Query              string
	Chunks             []Chunk
	Distances          []float64
	NeedsClarification bool
	Answer             string
}

// Index status values reported by IndexStats.
const (
	StatusNotInitialized = "not_initialized"
	StatusEmpty          = "empty"
	StatusReady          = "ready"
	StatusError          = "error"
)

// IndexStats describes the health of the retriever's index.
type IndexStats struct {
	Status         string `json:"status"`
	Documents      int    `json:"documents"`
	TotalChunks    int    `json:"total_chunks"`
	EmbeddingModel string `json:"embedding_model"`
	TopK           int    `json:"context_top_k"`
	Err            string `json:"error,omitempty"`
}
