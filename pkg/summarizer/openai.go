package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderDeepSeek   = "deepseek"
	ProviderOllama     = "ollama"
)

type provider struct {
	baseURL     string
	requiresKey bool
}

var providers = map[string]provider{
	ProviderOpenAI:     {"https://api.openai.com/v1", true},
	ProviderOpenRouter: {"https://openrouter.ai/api/v1", true},
	ProviderDeepSeek:   {"https://api.deepseek.com/v1", true},
	ProviderOllama:     {"http://localhost:11434/v1", false},
}

const systemPrompt = "You summarize documents for a file browser. " +
	"Reply with a single plain sentence of at most %d words describing what the document is about. " +
	"Do not add a preamble, quotes or markdown."

type OpenAIConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// OpenAIBackend summarizes with any OpenAI-compatible chat completion API.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend returns ErrBackendUnavailable when the provider needs an
// API key and none is configured.
func NewOpenAIBackend(cfg OpenAIConfig) (*OpenAIBackend, error) {
	name := strings.ToLower(cfg.Provider)
	if name == "" {
		name = ProviderOpenAI
	}
	p, ok := providers[name]
	if !ok {
		if cfg.BaseURL == "" {
			return nil, errors.Errorf("unknown summarizer provider %q and no base URL configured", cfg.Provider)
		}
		p = provider{baseURL: cfg.BaseURL}
	}
	if p.requiresKey && cfg.APIKey == "" {
		return nil, errors.Wrapf(ErrBackendUnavailable, "no API key for provider %s", name)
	}
	if cfg.Model == "" {
		return nil, errors.New("summarizer model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = p.baseURL
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIBackend{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}, nil
}

func (b *OpenAIBackend) Summarize(ctx context.Context, text string, maxWords int) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(systemPrompt, maxWords)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		// Roughly two tokens per word leaves room for punctuation without
		// letting the model ramble.
		MaxTokens:   maxWords * 2,
		Temperature: 0.2,
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.WithStack(ErrEmptySummary)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
