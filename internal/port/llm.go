package port

import (
	"context"

	"docqa/internal/domain"
)

// Token is one increment of a streamed completion.
type Token struct {
	Content string
	Err     error
}

// LLM is a chat-completion language model.
type LLM interface {
	// Complete generates a single completion for the message sequence.
	Complete(ctx context.Context, messages []domain.Message) (string, error)

	// Stream generates a completion incrementally. The returned channel is
	// closed when the completion ends; a Token with a non-nil Err terminates
	// the stream.
	Stream(ctx context.Context, messages []domain.Message) (<-chan Token, error)

	// ModelName returns the name of the model.
	ModelName() string
}
