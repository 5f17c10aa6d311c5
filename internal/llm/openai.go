package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAICompatibleClient is the fallback AI runner collaborator for any
// OpenAI-compatible chat-completions endpoint (OpenAI itself, or a
// self-hosted/gateway base URL), grounded on the teacher's multi-provider
// dispatch in llm_client.go.
type OpenAICompatibleClient struct {
	client openai.Client
	model  string
}

// NewOpenAICompatibleClient builds a Client against baseURL (empty means the
// official OpenAI API).
func NewOpenAICompatibleClient(apiKey, baseURL, model string) *OpenAICompatibleClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAICompatibleClient{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (c *OpenAICompatibleClient) Name() string { return "openai" }

// Complete issues a single strict-JSON-producing chat completion call.
func (c *OpenAICompatibleClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		MaxCompletionTokens: openai.Int(maxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, ClassifyError(err, c.Name(), c.model, openaiStatusCodeOf(err))
	}
	if len(completion.Choices) == 0 {
		return nil, ClassifyError(ErrProviderError, c.Name(), c.model, 0)
	}

	return &CompletionResult{
		JSONText: completion.Choices[0].Message.Content,
		Model:    completion.Model,
		Usage: Usage{
			TokensIn:    int(completion.Usage.PromptTokens),
			TokensOut:   int(completion.Usage.CompletionTokens),
			TokensTotal: int(completion.Usage.TotalTokens),
		},
	}, nil
}

func openaiStatusCodeOf(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
