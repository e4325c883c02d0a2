package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	// MaxResponseBytes caps how much of a backend response body is read.
	MaxResponseBytes = 1 << 20

	errBodySnippet = 512
)

// SystemPrompt frames every model call.
const SystemPrompt = `You are EthicaMind, a supportive wellness companion.
Listen with empathy, keep replies short and warm, and suggest healthy coping ideas.
You are not a clinician: never diagnose, never recommend medication or dosages,
and encourage the user to reach out to a professional or someone they trust when things feel heavy.`

// StatusError is returned by PostJSON for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// PostJSON marshals payload, POSTs it to url with the given headers and
// returns the raw response body. Non-2xx responses become *StatusError.
func PostJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req) //nolint:gosec // G704: url is built from operator config, not user input
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(respBody), errBodySnippet)}
	}

	return respBody, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
