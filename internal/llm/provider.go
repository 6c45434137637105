// Package llm abstracts the text-generation providers used for persona
// analysis. Provider replies are untrusted input; callers re-verify every
// claim against the corpus before using it.
package llm

import (
	"context"
	"time"

	"personaforge/internal/model"
)

// Provider defines the interface for text-generation providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends the compiled prompt and returns the raw reply
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest contains the input for one model call
type CompletionRequest struct {
	// Prompt is the fully compiled instruction payload
	Prompt string

	// Model overrides the configured model when non-empty
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// CompletionResponse contains the provider's raw reply
type CompletionResponse struct {
	// Text is the raw reply; may be free-form despite the JSON instruction
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption when the provider reports it
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	// Provider name: "openai", "groq", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (Ollama, OpenAI-compatible hosts)
	BaseURL string

	// Timeout for one API request
	Timeout time.Duration

	// MaxTokens for response generation
	MaxTokens int
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(cfg model.LLMConfig) Config {
	return Config{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		MaxTokens: cfg.MaxTokens,
	}
}

const systemPrompt = "You analyze social media activity and produce structured persona JSON. Cite only the item IDs you were given, always with a verbatim excerpt."
