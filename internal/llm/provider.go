package llm

import (
	"context"

	"github.com/Fr3nn3r/deckung/internal/model"
)

// Provider defines the interface for language-model backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one chat completion and returns the raw text response
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest is one outbound chat completion
type CompletionRequest struct {
	// System sets the assistant's role
	System string

	// Prompt is the user message
	Prompt string

	// Model overrides the configured model for this call (optional)
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls sampling; classification calls run near zero
	Temperature float32

	// ForceJSON requests structured JSON output where the backend supports it
	ForceJSON bool
}

// CompletionResponse is the raw model output plus token accounting
type CompletionResponse struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Config holds provider configuration. It mirrors model.LLMConfig so the
// provider layer does not care where configuration came from.
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g. Ollama, API-compatible proxies)
	BaseURL string

	// TimeoutSeconds bounds a single API request
	TimeoutSeconds int

	// Temperature default for calls that do not set one
	Temperature float32

	// MaxTokens default response budget
	MaxTokens int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:       "", // Disabled by default
		Model:          "",
		TimeoutSeconds: 30,
		Temperature:    0.1,
		MaxTokens:      600,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(mc model.LLMConfig) Config {
	return Config{
		Provider:       mc.Provider,
		Model:          mc.Model,
		APIKey:         mc.APIKey,
		BaseURL:        mc.BaseURL,
		TimeoutSeconds: int(mc.Timeout.Seconds()),
		Temperature:    mc.Temperature,
		MaxTokens:      mc.MaxTokens,
	}
}
