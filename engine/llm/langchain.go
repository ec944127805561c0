package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider enumerates supported completion providers.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGroq      Provider = "groq"
	ProviderOllama    Provider = "ollama"
)

// ProviderConfig selects and authenticates one completion model tier.
type ProviderConfig struct {
	Provider Provider
	Model    string
	APIKey   string
	APIURL   string
}

// LangChainClient adapts a langchaingo model to CompletionClient.
type LangChainClient struct {
	model    llms.Model
	provider Provider
}

// NewLangChainClient constructs the provider-backed client. Missing
// credentials surface here, at startup, as client-config faults.
func NewLangChainClient(cfg *ProviderConfig) (*LangChainClient, error) {
	if cfg == nil {
		return nil, errors.New("llm: provider config is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm: model id is required for provider %q", cfg.Provider)
	}
	model, err := buildModel(cfg)
	if err != nil {
		return nil, fmt.Errorf("llm: creating %s client: %w", cfg.Provider, err)
	}
	return &LangChainClient{model: model, provider: cfg.Provider}, nil
}

func buildModel(cfg *ProviderConfig) (llms.Model, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.APIURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.APIURL))
		}
		return openai.New(opts...)
	case ProviderGroq:
		baseURL := "https://api.groq.com/openai/v1"
		if cfg.APIURL != "" {
			baseURL = cfg.APIURL
		}
		opts := []openai.Option{openai.WithModel(cfg.Model), openai.WithBaseURL(baseURL)}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		return openai.New(opts...)
	case ProviderAnthropic:
		opts := []anthropic.Option{anthropic.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, anthropic.WithToken(cfg.APIKey))
		}
		return anthropic.New(opts...)
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.APIURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.APIURL))
		}
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

func (c *LangChainClient) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.Instruction),
		llms.TextParts(llms.ChatMessageTypeHuman, req.Input),
	}
	opts := []llms.CallOption{}
	if req.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.JSONMode {
		opts = append(opts, llms.WithJSONMode())
	}
	resp, err := c.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", ClassifyError(string(c.provider), err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Status: StatusServer, Provider: string(c.provider), Message: "empty response"}
	}
	return resp.Choices[0].Content, nil
}

func (c *LangChainClient) Close() error {
	return nil
}
