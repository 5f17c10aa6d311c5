// Package llm provides the AI runner collaborator (spec.md §1): a
// chat-completion interface producing JSON extractions and scoring
// judgments with token-usage metadata, with Anthropic and OpenAI-compatible
// implementations behind a circuit breaker.
package llm

import "context"

// Usage records token accounting for one LLM call, per spec.md §4.5.
type Usage struct {
	TokensIn    int
	TokensOut   int
	TokensTotal int
}

// CompletionRequest is a single strict-JSON-producing chat completion call.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
}

// CompletionResult is the raw JSON text plus usage metadata.
type CompletionResult struct {
	JSONText string
	Usage    Usage
	Model    string
}

// Client is the narrow LLMClient capability interface spec.md §9 calls for:
// an explicit interface injected at construction, swappable for mocks.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
	Name() string
}

// WithRetry wraps a Client call with the in-band retry policy from spec.md
// §4.5: one retry, backing off 100ms before the retry attempt.
func WithRetry(ctx context.Context, client Client, req CompletionRequest, sleep func(d int64)) (*CompletionResult, error) {
	res, err := client.Complete(ctx, req)
	if err == nil {
		return res, nil
	}

	if sleep != nil {
		sleep(100)
	}

	res, err = client.Complete(ctx, req)
	return res, err
}
