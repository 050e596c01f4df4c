package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/friday-go/internal/config"
)

// Client is the minimal subset of openai.Client used by this module; it is
// easy to mock in tests.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewClient creates an OpenAI-compatible client from the given configuration.
func NewClient(cfg config.LLMConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return openai.NewClientWithConfig(clientConfig)
}
