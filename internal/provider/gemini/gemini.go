// Package gemini is the adapter for the Gemini generateContent API, the
// preferred backend, built on the Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/linnemanlabs/ethicamind/internal/provider"
)

const (
	// Name is the registry key for this adapter.
	Name = "gemini"

	DefaultEndpoint = "https://generativelanguage.googleapis.com/"
	DefaultModel    = "gemini-1.5-flash"
	DefaultTimeout  = 30 * time.Second

	temperature = 0.6
)

// Client implements provider.Provider for Gemini.
type Client struct {
	sdk      *genai.Client
	model    string
	endpoint string
	// initErr is set when the SDK client could not be built; every
	// attempt then fails with it instead of panicking at startup.
	initErr error
}

// New creates a Gemini adapter. Empty model and endpoint fall back to defaults.
func New(apiKey, model, endpoint string) *Client {
	if model == "" {
		model = DefaultModel
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	endpoint = strings.TrimRight(endpoint, "/") + "/"

	sdk, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		HTTPOptions: genai.HTTPOptions{
			BaseURL: endpoint,
		},
	})
	c := &Client{sdk: sdk, model: model, endpoint: endpoint}
	if err != nil {
		c.initErr = fmt.Errorf("gemini: init client: %w", err)
	}
	return c
}

// Name implements provider.Provider.
func (c *Client) Name() string { return Name }

// Attempt sends message to generateContent once.
func (c *Client) Attempt(ctx context.Context, message string) provider.Result {
	if c.initErr != nil {
		return provider.Failure(c.initErr)
	}

	resp, err := c.sdk.Models.GenerateContent(ctx, c.model, genai.Text(message), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(provider.SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](temperature),
	})
	if err != nil {
		return provider.Failure(fmt.Errorf("gemini: %w", classifyErr(err)))
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return provider.Failure(fmt.Errorf("gemini: prompt blocked: %s", fb.BlockReason))
	}

	text := strings.TrimSpace(replyText(resp))
	if text == "" {
		return provider.Failure(fmt.Errorf("gemini: %w", provider.ErrEmptyReply))
	}
	return provider.Success(text)
}

// replyText joins the text parts of the first candidate, skipping thoughts.
func replyText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// classifyErr maps SDK API errors onto provider.StatusError.
func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &provider.StatusError{Code: apiErr.Code, Body: apiErr.Message}
	}
	return err
}
