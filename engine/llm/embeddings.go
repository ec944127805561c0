package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// EmbeddingConfig selects the external embedding model.
type EmbeddingConfig struct {
	Model  string
	APIKey string
	APIURL string
}

// LangChainEmbedder adapts a langchaingo embedder to EmbeddingClient.
type LangChainEmbedder struct {
	impl embeddings.Embedder
}

func NewLangChainEmbedder(cfg *EmbeddingConfig) (*LangChainEmbedder, error) {
	if cfg == nil {
		return nil, errors.New("llm: embedding config is required")
	}
	opts := []openai.Option{openai.WithEmbeddingModel(cfg.Model)}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.APIURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.APIURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("llm: creating embedding client: %w", err)
	}
	impl, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("llm: wrapping embedding client: %w", err)
	}
	return &LangChainEmbedder{impl: impl}, nil
}

func (e *LangChainEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, ClassifyError("embeddings", err)
	}
	return vector, nil
}

func (e *LangChainEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, ClassifyError("embeddings", err)
	}
	return vectors, nil
}
