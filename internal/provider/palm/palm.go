// Package palm is the adapter for the legacy PaLM chat model (chat-bison-001),
// kept as the second-priority backend for accounts that have not moved to Gemini.
package palm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/linnemanlabs/ethicamind/internal/provider"
)

const (
	// Name is the registry key for this adapter.
	Name = "palm"

	DefaultEndpoint = "https://generativelanguage.googleapis.com"
	DefaultModel    = "chat-bison-001"
	DefaultTimeout  = 30 * time.Second

	temperature = 0.6
)

// Depending on account and API revision the same generateMessage call answers
// with chat candidates (content) or text candidates (output). Both live
// schemas are declared here, tried in this order.
var strategies = []provider.Strategy{
	{Name: "message-candidate", Path: "candidates.0.content"},
	{Name: "text-candidate", Path: "candidates.0.output"},
}

// Client implements provider.Provider for the PaLM chat API.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// New creates a PaLM adapter. Empty model and endpoint fall back to defaults.
func New(apiKey, model, endpoint string) *Client {
	if model == "" {
		model = DefaultModel
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		apiKey:   apiKey,
		model:    model,
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

type message struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

type prompt struct {
	Context  string    `json:"context,omitempty"`
	Messages []message `json:"messages"`
}

type request struct {
	Prompt         prompt  `json:"prompt"`
	Temperature    float64 `json:"temperature"`
	CandidateCount int     `json:"candidateCount"`
}

// Name implements provider.Provider.
func (c *Client) Name() string { return Name }

// Attempt sends message to generateMessage once.
func (c *Client) Attempt(ctx context.Context, msg string) provider.Result {
	u := fmt.Sprintf("%s/v1beta2/models/%s:generateMessage", c.endpoint, url.PathEscape(c.model))

	body, err := provider.PostJSON(ctx, c.httpClient, u,
		map[string]string{"x-goog-api-key": c.apiKey},
		request{
			Prompt: prompt{
				Context:  provider.SystemPrompt,
				Messages: []message{{Author: "user", Content: msg}},
			},
			Temperature:    temperature,
			CandidateCount: 1,
		},
	)
	if err != nil {
		return provider.Failure(fmt.Errorf("palm: %w", err))
	}

	text, _, err := provider.Extract(body, strategies...)
	if err != nil {
		if reason := gjson.GetBytes(body, "filters.0.reason"); reason.Exists() {
			return provider.Failure(fmt.Errorf("palm: response filtered: %s", reason.String()))
		}
		return provider.Failure(fmt.Errorf("palm: %w", err))
	}
	return provider.Success(strings.TrimSpace(text))
}
