package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity
// search. The same model must be used online and at ingestion time; a
// dimension mismatch is a configuration error, not a runtime-recoverable one.
//
// Implementations are not assumed to be safe for concurrent invocation.
// Callers that fan out must serialize embedding calls; see the retrieval
// package for the concurrency contract.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates embeddings for multiple texts in a batch.
	// The returned slice preserves input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer runs language-model completions in the two modes the pipeline
// needs: structured single-shot output and token-streamed free text.
type Completer interface {
	// Complete runs one completion in structured-output (JSON) mode and
	// returns the raw response text of the first choice. The caller owns
	// schema validation of the returned text.
	Complete(ctx context.Context, system, user string) (string, error)

	// CompleteStream runs one completion and delivers text fragments to fn
	// in emission order. The token sequence is finite and not restartable.
	// Returning an error from fn aborts the stream.
	CompleteStream(ctx context.Context, system, user string, fn func(chunk string) error) error
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages Embedder and
// Completer instances sharing configuration and resources.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Completer returns the language-model completion service.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	Close() error
}
