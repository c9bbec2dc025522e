package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// ChunkRetriever is the retrieval lookup the pipeline depends on.
type ChunkRetriever interface {
	Retrieve(query string, k int) []domain.ScoredChunk
}

// FallbackAnswer is returned when an invocation fails past all retries.
const FallbackAnswer = "I encountered an error while processing your query. " +
	"Please try again or contact support if the issue persists."

const answerSystemPrompt = `You are a helpful assistant that answers questions strictly based on the provided context documents.
Do not add information that is not explicitly supported by the context.
When answering, cite the source documents when relevant (e.g., "Source: docX.md").
If the context does not contain enough information to fully answer the question,
state this explicitly instead of filling gaps from general knowledge.

Context documents:
%s

Use the conversation history to understand the context of follow-up questions.`

const clarifySystemPrompt = `You are a helpful assistant. The user asked a question, but the available context
documents are not highly relevant (distance: %.3f, lower is better).

Generate a friendly clarification question to help the user refine their query.
The question should be specific and guide them to provide more context or rephrase their question.

Original question: %s`

// pipelineState enumerates the orchestration steps. The state space is small
// and fully static: retrieve always runs first, decision always follows, and
// exactly one of answer/clarify terminates the traversal.
type pipelineState int

const (
	stateRetrieve pipelineState = iota
	stateDecision
	stateAnswer
	stateClarify
	stateDone
)

// Pipeline sequences retrieval, the answer/clarify decision and composition
// for one query at a time. It holds no per-invocation state; concurrent
// invocations are independent.
type Pipeline struct {
	retriever ChunkRetriever
	llm       port.LLM
	threshold float64
	searchK   int
	retry     RetryPolicy
	onToken   func(token string)
	log       *slog.Logger
}

// NewPipeline wires a pipeline. threshold is the maximum acceptable best-match
// distance before clarification; searchK is how many candidates each
// invocation retrieves.
func NewPipeline(
	retriever ChunkRetriever,
	llm port.LLM,
	threshold float64,
	searchK int,
	retry RetryPolicy,
	log *slog.Logger,
) *Pipeline {
	if threshold <= 0 {
		threshold = 0.9
	}
	if searchK <= 0 {
		searchK = 5
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		retriever: retriever,
		llm:       llm,
		threshold: threshold,
		searchK:   searchK,
		retry:     retry,
		log:       log,
	}
}

// OnToken registers an observer that receives answer increments as they
// stream in. Set it once before serving; it is not synchronized against
// concurrent invocations.
func (p *Pipeline) OnToken(fn func(token string)) {
	p.onToken = fn
}

// Threshold returns the configured distance threshold.
func (p *Pipeline) Threshold() float64 {
	return p.threshold
}

// Invoke runs one full traversal of retrieve → decision → (answer|clarify).
// It never returns an error: any failure that survives the retry policy
// produces a well-formed result carrying the fixed fallback answer with the
// caller's query and history preserved.
func (p *Pipeline) Invoke(ctx context.Context, query string, history []domain.Message) domain.Result {
	res := domain.Result{
		Messages: history,
		Query:    query,
	}

	var err error
	for state := stateRetrieve; state != stateDone; {
		switch state {
		case stateRetrieve:
			p.retrieve(&res)
			state = stateDecision

		case stateDecision:
			res.NeedsClarification = NeedsClarification(res.Distances, p.threshold)
			p.log.Info("decision",
				"min_distance", MinDistance(res.Distances, -1),
				"threshold", p.threshold,
				"clarify", res.NeedsClarification)
			if res.NeedsClarification {
				state = stateClarify
			} else {
				state = stateAnswer
			}

		case stateAnswer:
			err = p.answer(ctx, &res)
			state = stateDone

		case stateClarify:
			err = p.clarify(ctx, &res)
			state = stateDone
		}
	}

	if err != nil {
		p.log.Error("pipeline invocation failed", "error", err)
		return domain.Result{
			Messages: history,
			Query:    query,
			Answer:   FallbackAnswer,
		}
	}

	return res
}

// retrieve fills the result with candidate chunks. An empty query
// short-circuits to empty results, which the decision step turns into a
// clarification. Retrieval failures are already absorbed by the retriever.
func (p *Pipeline) retrieve(res *domain.Result) {
	if strings.TrimSpace(res.Query) == "" {
		p.log.Warn("empty query, skipping retrieval")
		return
	}

	scored := p.retriever.Retrieve(res.Query, p.searchK)
	res.Chunks = make([]domain.Chunk, 0, len(scored))
	res.Distances = make([]float64, 0, len(scored))
	for _, s := range scored {
		res.Chunks = append(res.Chunks, s.Chunk)
		res.Distances = append(res.Distances, s.Distance)
	}
}

// answer composes a grounded answer from the chunks that individually clear
// the threshold. The decision guaranteed the best match does, but with
// several candidates some may not; those are kept out of the context.
func (p *Pipeline) answer(ctx context.Context, res *domain.Result) error {
	var filtered []domain.Chunk
	for i, chunk := range res.Chunks {
		if res.Distances[i] <= p.threshold {
			filtered = append(filtered, chunk)
		}
	}

	p.log.Info("composing answer",
		"context_chunks", len(filtered),
		"retrieved", len(res.Chunks),
		"threshold", p.threshold)

	messages := make([]domain.Message, 0, len(res.Messages)+2)
	messages = append(messages, domain.Message{
		Role:    domain.RoleSystem,
		Content: fmt.Sprintf(answerSystemPrompt, buildContext(filtered)),
	})
	messages = append(messages, res.Messages...)
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: res.Query})

	var answer string
	err := p.retry.Do(ctx, func() error {
		text, err := p.generate(ctx, messages)
		if err != nil {
			return err
		}
		answer = text
		return nil
	})
	if err != nil {
		return fmt.Errorf("answer generation failed: %w", err)
	}

	res.Answer = strings.TrimSpace(answer)
	res.Messages = appendTurns(res.Messages, res.Query, res.Answer)
	return nil
}

// clarify asks the model for a short clarification question describing the
// weak-match situation. Single completion, no streaming.
func (p *Pipeline) clarify(ctx context.Context, res *domain.Result) error {
	minDist := MinDistance(res.Distances, 1.0)

	messages := []domain.Message{{
		Role:    domain.RoleSystem,
		Content: fmt.Sprintf(clarifySystemPrompt, minDist, res.Query),
	}}

	var clarification string
	err := p.retry.Do(ctx, func() error {
		text, err := p.llm.Complete(ctx, messages)
		if err != nil {
			return err
		}
		clarification = text
		return nil
	})
	if err != nil {
		return fmt.Errorf("clarification generation failed: %w", err)
	}

	res.Answer = strings.TrimSpace(clarification)
	res.Messages = appendTurns(res.Messages, res.Query, res.Answer)
	return nil
}

// generate streams a completion and assembles it, forwarding increments to
// the observer. The caller still blocks until the full text is ready.
func (p *Pipeline) generate(ctx context.Context, messages []domain.Message) (string, error) {
	ch, err := p.llm.Stream(ctx, messages)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for tok := range ch {
		if tok.Err != nil {
			return "", tok.Err
		}
		sb.WriteString(tok.Content)
		if p.onToken != nil {
			p.onToken(tok.Content)
		}
	}
	return sb.String(), nil
}

func buildContext(chunks []domain.Chunk) string {
	var sb strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&sb, "--- Document %d (%s) ---\n%s\n\n", i+1, filepath.Base(chunk.Source), chunk.Text)
	}
	return sb.String()
}

// appendTurns returns a new history with the completed exchange appended.
// The caller's slice is never mutated; history only grows after a successful
// composition.
func appendTurns(history []domain.Message, query, answer string) []domain.Message {
	out := make([]domain.Message, 0, len(history)+2)
	out = append(out, history...)
	out = append(out,
		domain.Message{Role: domain.RoleUser, Content: query},
		domain.Message{Role: domain.RoleAssistant, Content: answer},
	)
	return out
}
