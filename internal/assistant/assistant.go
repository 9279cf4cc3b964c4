// Package assistant answers chat messages, either through the backend's own
// assistant or by talking to an OpenAI-compatible model directly.
package assistant

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/healthassist-go/internal/backend"
	"github.com/comigor/healthassist-go/internal/config"
	"github.com/comigor/healthassist-go/internal/models"
)

// Assistant produces the reply to one user message.
type Assistant interface {
	Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error)
}

// LLMClient is the subset of openai.Client used here; it is easy to mock in tests.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// DoctorSearcher runs the doctor searches the model asks for.
type DoctorSearcher interface {
	SearchDoctors(ctx context.Context, req backend.DoctorSearchRequest) (*models.DoctorSearchResult, error)
}

// NewLLMClient creates an OpenAI client for the configured endpoint.
func NewLLMClient(cfg config.AssistantConfig) *openai.Client {
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(c)
}

// New picks the assistant for cfg.Provider. The backend client serves both
// as the backend provider and as the doctor searcher of the OpenAI one.
func New(cfg config.AssistantConfig, client *backend.Client) (Assistant, error) {
	switch cfg.Provider {
	case "", config.ProviderBackend:
		return client, nil
	case config.ProviderOpenAI:
		if cfg.Model == "" {
			return nil, fmt.Errorf("assistant: provider %q needs a model", cfg.Provider)
		}
		return NewOpenAI(NewLLMClient(cfg), cfg, client), nil
	default:
		return nil, fmt.Errorf("assistant: unknown provider %q", cfg.Provider)
	}
}
