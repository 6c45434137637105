package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"personaforge/internal/model"
)

func TestClassifyError_Timeout(t *testing.T) {
	err := classifyError("groq", fmt.Errorf("call: %w", context.DeadlineExceeded))
	if !errors.Is(err, model.ErrModelTimeout) {
		t.Errorf("Expected ErrModelTimeout, got %v", err)
	}
}

func TestClassifyError_RateLimited(t *testing.T) {
	apiErr := &openai.APIError{HTTPStatusCode: 429, Message: "rate limit exceeded"}
	err := classifyError("groq", apiErr)
	if !errors.Is(err, model.ErrModelUnavailable) {
		t.Errorf("Expected ErrModelUnavailable for 429, got %v", err)
	}
}

func TestClassifyError_ServerError(t *testing.T) {
	apiErr := &openai.APIError{HTTPStatusCode: 503, Message: "overloaded"}
	err := classifyError("openai", apiErr)
	if !errors.Is(err, model.ErrModelUnavailable) {
		t.Errorf("Expected ErrModelUnavailable for 503, got %v", err)
	}
}

func TestClassifyError_ClientErrorNotRetryable(t *testing.T) {
	apiErr := &openai.APIError{HTTPStatusCode: 401, Message: "invalid key"}
	err := classifyError("openai", apiErr)
	if model.IsRetryable(err) {
		t.Errorf("Expected 401 not retryable, got %v", err)
	}
}

func TestClassifyError_NetworkFailure(t *testing.T) {
	err := classifyError("groq", errors.New("dial tcp: connection refused"))
	if !errors.Is(err, model.ErrModelUnavailable) {
		t.Errorf("Expected network failure classified unavailable, got %v", err)
	}
}

func TestNewGroqProvider_DefaultBaseURL(t *testing.T) {
	provider, err := NewGroqProvider(Config{APIKey: "gsk-test"})
	if err != nil {
		t.Fatalf("NewGroqProvider failed: %v", err)
	}
	if provider.Name() != "groq" {
		t.Errorf("Expected name groq, got %s", provider.Name())
	}
}
