package llm

import "context"

// CompletionRequest is a single provider-independent completion call.
type CompletionRequest struct {
	Instruction string
	Input       string
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// CompletionClient reaches an external completion capability over the
// network. Implementations must be safe for concurrent use.
type CompletionClient interface {
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
	Close() error
}

// EmbeddingClient reaches an external embedding capability.
type EmbeddingClient interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}
