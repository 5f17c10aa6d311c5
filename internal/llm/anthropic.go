package llm

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient is the primary AI runner collaborator, grounded on the
// teacher's provider-dispatch shape in llm_client.go but calling the
// official SDK instead of hand-rolled HTTP + format parsing.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient builds a Client backed by api.anthropic.com.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c *AnthropicClient) Name() string { return "anthropic" }

// Complete issues a single strict-JSON-producing message call.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	})
	if err != nil {
		return nil, ClassifyError(err, c.Name(), c.model, statusCodeOf(err))
	}

	text := ""
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return &CompletionResult{
		JSONText: text,
		Model:    string(msg.Model),
		Usage: Usage{
			TokensIn:    int(msg.Usage.InputTokens),
			TokensOut:   int(msg.Usage.OutputTokens),
			TokensTotal: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}

// statusCodeOf extracts an HTTP status code from an SDK error when present,
// falling back to 0 (unknown) for message-pattern classification.
func statusCodeOf(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
