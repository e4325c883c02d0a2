package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linnemanlabs/ethicamind/internal/provider"
)

// wireRequest is the subset of the generateContent body the tests inspect.
type wireRequest struct {
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New("test-key", "", srv.URL)
	if c.initErr != nil {
		t.Fatalf("init client: %v", c.initErr)
	}
	return c
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c := New("k", "", "")
	if c.model != DefaultModel {
		t.Errorf("model = %q, want %q", c.model, DefaultModel)
	}
	if c.endpoint != DefaultEndpoint {
		t.Errorf("endpoint = %q, want %q", c.endpoint, DefaultEndpoint)
	}
	if c.Name() != Name {
		t.Errorf("Name() = %q, want %q", c.Name(), Name)
	}
}

func TestNew_NormalizesEndpoint(t *testing.T) {
	t.Parallel()

	c := New("k", "gemini-2.0-flash", "http://localhost:9999//")
	if c.endpoint != "http://localhost:9999/" {
		t.Errorf("endpoint = %q, want a single trailing slash", c.endpoint)
	}
	if c.model != "gemini-2.0-flash" {
		t.Errorf("model = %q", c.model)
	}
}

func TestAttempt_Success(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/models/"+DefaultModel+":generateContent") {
			t.Errorf("path = %q, want generateContent for %s", r.URL.Path, DefaultModel)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q, want %q", got, "test-key")
		}

		var req wireRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 1 || req.Contents[0].Parts[0].Text != "I feel stressed" {
			t.Errorf("contents = %+v, want user message", req.Contents)
		}
		if req.SystemInstruction == nil || len(req.SystemInstruction.Parts) == 0 ||
			req.SystemInstruction.Parts[0].Text != provider.SystemPrompt {
			t.Error("expected system instruction to carry the system prompt")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Take a slow breath. "},{"text":"You are not alone."}]}}]}`)
	})

	res := c.Attempt(context.Background(), "I feel stressed")
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if res.Text != "Take a slow breath. You are not alone." {
		t.Errorf("text = %q", res.Text)
	}
}

func TestAttempt_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error  // sentinel matched with errors.Is, if set
		errPart string // substring of the error text, if set
	}{
		{"blocked prompt", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`, nil, "prompt blocked: SAFETY"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, provider.ErrEmptyReply, ""},
		{"empty parts", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, provider.ErrEmptyReply, ""},
		{"only thoughts", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"thinking","thought":true}]}}]}`, provider.ErrEmptyReply, ""},
		{"malformed body", http.StatusOK, `{"candidates":[`, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			})

			res := c.Attempt(context.Background(), "hello")
			if res.OK() {
				t.Fatal("expected failure")
			}
			if !strings.HasPrefix(res.Err.Error(), "gemini: ") {
				t.Errorf("err = %q, want gemini prefix", res.Err)
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("err = %v, want %v", res.Err, tt.wantErr)
			}
			if tt.errPart != "" && !strings.Contains(res.Err.Error(), tt.errPart) {
				t.Errorf("err = %q, want substring %q", res.Err, tt.errPart)
			}
		})
	}
}

func TestAttempt_StatusErrorIsTyped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota exhausted","status":"RESOURCE_EXHAUSTED"}}`},
		{"server error", http.StatusInternalServerError, `{"error":{"code":500,"message":"backend down","status":"INTERNAL"}}`},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"code":401,"message":"bad key","status":"UNAUTHENTICATED"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			})

			res := c.Attempt(context.Background(), "hello")
			var se *provider.StatusError
			if !errors.As(res.Err, &se) {
				t.Fatalf("err = %v, want *provider.StatusError", res.Err)
			}
			if se.Code != tt.status {
				t.Errorf("code = %d, want %d", se.Code, tt.status)
			}
		})
	}
}

func TestAttempt_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := New("k", "", srv.URL)
	res := c.Attempt(context.Background(), "hello")
	if res.OK() {
		t.Fatal("expected failure for closed server")
	}
	var se *provider.StatusError
	if errors.As(res.Err, &se) {
		t.Errorf("transport failure should not be a status error, got %v", se)
	}
}

func TestAttempt_CanceledContext(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"late"}]}}]}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if res := c.Attempt(ctx, "hello"); res.OK() {
		t.Fatal("expected failure for canceled context")
	}
}

func TestAttempt_InitErrorFailsEveryAttempt(t *testing.T) {
	t.Parallel()

	want := errors.New("gemini: init client: boom")
	c := &Client{initErr: want}
	res := c.Attempt(context.Background(), "hello")
	if !errors.Is(res.Err, want) {
		t.Errorf("err = %v, want %v", res.Err, want)
	}
}
