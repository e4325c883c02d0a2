// Package openai is the adapter for OpenAI-compatible chat completion APIs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/linnemanlabs/ethicamind/internal/provider"
)

const (
	// Name is the registry key for this adapter.
	Name = "openai"

	DefaultModel   = goopenai.GPT4oMini
	DefaultTimeout = 30 * time.Second

	temperature = 0.6
)

// Client implements provider.Provider using go-openai.
type Client struct {
	sdk   *goopenai.Client
	model string
}

// New creates an OpenAI adapter. baseURL may point at any OpenAI-compatible
// endpoint; empty uses api.openai.com.
func New(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = DefaultModel
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}

	return &Client{
		sdk:   goopenai.NewClientWithConfig(cfg),
		model: model,
	}
}

// Name implements provider.Provider.
func (c *Client) Name() string { return Name }

// Attempt sends one chat completion request.
func (c *Client) Attempt(ctx context.Context, message string) provider.Result {
	resp, err := c.sdk.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: provider.SystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: message},
		},
	})
	if err != nil {
		return provider.Failure(fmt.Errorf("openai: %w", classifyErr(err)))
	}

	if len(resp.Choices) == 0 {
		return provider.Failure(fmt.Errorf("openai: %w: no choices", provider.ErrEmptyReply))
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return provider.Failure(fmt.Errorf("openai: %w (finish_reason=%s)", provider.ErrEmptyReply, resp.Choices[0].FinishReason))
	}
	return provider.Success(text)
}

// classifyErr maps go-openai HTTP errors onto provider.StatusError.
func classifyErr(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &provider.StatusError{Code: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &provider.StatusError{Code: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return err
}
