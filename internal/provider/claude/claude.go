// Package claude is the adapter for the Anthropic Messages API.
package claude

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/ethicamind/internal/provider"
)

const (
	// Name is the registry key for this adapter.
	Name = "claude"

	DefaultModel   = "claude-3-5-haiku-latest"
	DefaultTimeout = 30 * time.Second

	maxTokens = 1024
)

// Client implements provider.Provider using the Anthropic SDK.
type Client struct {
	sdk   anthropic.Client
	model string
}

// New creates a Claude adapter. An empty baseURL uses the SDK default.
// SDK-level retries are disabled; retry policy belongs to the dispatcher.
func New(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Client{
		sdk:   anthropic.NewClient(opts...),
		model: model,
	}
}

// Name implements provider.Provider.
func (c *Client) Name() string { return Name }

// Attempt sends one Messages API request.
func (c *Client) Attempt(ctx context.Context, message string) provider.Result {
	msg, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: provider.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(message)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return provider.Failure(fmt.Errorf("claude: %w", &provider.StatusError{
				Code: apiErr.StatusCode,
				Body: apiErr.Error(),
			}))
		}
		return provider.Failure(fmt.Errorf("claude: %w", err))
	}

	text := replyText(msg)
	if text == "" {
		return provider.Failure(fmt.Errorf("claude: %w (stop_reason=%s)", provider.ErrEmptyReply, msg.StopReason))
	}
	return provider.Success(text)
}

// replyText joins the text blocks of msg, ignoring every other block type.
func replyText(msg *anthropic.Message) string {
	if msg == nil {
		return ""
	}
	var b strings.Builder
	for i := range msg.Content {
		if msg.Content[i].Type == "text" {
			b.WriteString(msg.Content[i].Text)
		}
	}
	return strings.TrimSpace(b.String())
}
