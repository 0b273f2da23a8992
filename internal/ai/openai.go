package ai

import (
	"context"
	"strings"
	"time"

	"sql-helper/internal/config"
	"sql-helper/internal/pkg/errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Request is one system+user chat completion.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
}

// Usage mirrors the token counts reported by the provider.
type Usage struct {
	PromptTokens     int64 `json:"promptTokens"`
	CompletionTokens int64 `json:"completionTokens"`
	TotalTokens      int64 `json:"totalTokens"`
}

type Response struct {
	Text  string
	Model string
	Usage Usage
}

// OpenAIClient completes prompts with the official OpenAI SDK.
type OpenAIClient struct {
	client  openai.Client
	timeout time.Duration
}

func NewOpenAIClient(cfg config.AIConfig) (*OpenAIClient, error) {
	if cfg.OpenAIKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "openai API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIClient{
		client:  openai.NewClient(opts...),
		timeout: timeout,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "prompt cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	})
	if err != nil {
		return nil, &errors.Error{Err: errors.ErrAIUnavailable, Message: "openai API call failed: " + err.Error(), Code: errors.CodeInternal}
	}

	if len(completion.Choices) == 0 {
		return nil, errors.Wrap(errors.ErrAIUnavailable, "no completion choices returned")
	}

	return &Response{
		Text:  strings.TrimSpace(completion.Choices[0].Message.Content),
		Model: completion.Model,
		Usage: Usage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		},
	}, nil
}

// Unconfigured stands in when no API key is set.
type Unconfigured struct{}

func (Unconfigured) Complete(context.Context, Request) (*Response, error) {
	return nil, errors.Wrap(errors.ErrAIUnavailable, "OPENAI_API_KEY is not set")
}
