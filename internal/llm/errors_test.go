package llm

import (
	"errors"
	"net/http"
	"testing"
)

func TestClassifyErrorByStatusCode(t *testing.T) {
	err := ClassifyError(errors.New("boom"), "anthropic", "claude", http.StatusTooManyRequests)
	if !errors.Is(err.Err, ErrRateLimited) || !err.Retryable {
		t.Fatalf("expected retryable rate-limited error, got %+v", err)
	}

	err = ClassifyError(errors.New("boom"), "anthropic", "claude", http.StatusUnauthorized)
	if !errors.Is(err.Err, ErrInvalidAPIKey) || err.Retryable {
		t.Fatalf("expected non-retryable invalid-key error, got %+v", err)
	}
}

func TestClassifyErrorByMessagePattern(t *testing.T) {
	err := ClassifyError(errors.New("request timeout"), "openai", "gpt", 0)
	if !errors.Is(err.Err, ErrProviderUnavailable) {
		t.Fatalf("expected provider-unavailable for timeout message, got %+v", err)
	}
}

func TestIsUnavailable(t *testing.T) {
	unavailable := &LLMError{Err: ErrProviderUnavailable}
	if !IsUnavailable(unavailable) {
		t.Fatal("expected ErrProviderUnavailable to be unavailable")
	}

	rateLimited := &LLMError{Err: ErrRateLimited}
	if IsUnavailable(rateLimited) {
		t.Fatal("rate limiting should not be classified as unavailable")
	}
}
