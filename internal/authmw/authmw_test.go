package authmw

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func TestBearerToken_ValidToken(t *testing.T) {
	t.Parallel()

	h := BearerToken("secret-token-123")(okHandler)

	tests := []struct {
		name  string
		value string
	}{
		{"canonical", "Bearer secret-token-123"},
		{"lowercase scheme", "bearer secret-token-123"},
		{"uppercase scheme", "BEARER secret-token-123"},
		{"trailing space", "Bearer secret-token-123 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/api/chat", http.NoBody)
			req.Header.Set("Authorization", tt.value)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
		})
	}
}

func TestBearerToken_Rejected(t *testing.T) {
	t.Parallel()

	h := BearerToken("correct-token")(okHandler)

	tests := []struct {
		name          string
		value         string
		wantChallenge string
	}{
		{"missing header", "", `Bearer realm="ethicamind"`},
		{"basic auth", "Basic dXNlcjpwYXNz", `Bearer realm="ethicamind"`},
		{"no scheme", "correct-token", `Bearer realm="ethicamind"`},
		{"scheme only", "Bearer ", `Bearer realm="ethicamind"`},
		{"wrong token", "Bearer wrong-token", `Bearer realm="ethicamind", error="invalid_token"`},
		{"partial match", "Bearer correct", `Bearer realm="ethicamind", error="invalid_token"`},
		{"token with suffix", "Bearer correct-token-extra", `Bearer realm="ethicamind", error="invalid_token"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/api/chat", http.NoBody)
			if tt.value != "" {
				req.Header.Set("Authorization", tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
			if got := rec.Header().Get("WWW-Authenticate"); got != tt.wantChallenge {
				t.Errorf("WWW-Authenticate = %q, want %q", got, tt.wantChallenge)
			}

			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["type"] != "error" || body["message"] != Unauthorized {
				t.Errorf("body = %v, want error envelope", body)
			}
			if strings.Contains(rec.Body.String(), "correct-token") {
				t.Error("response leaks expected token")
			}
		})
	}
}

func TestBearerToken_PassesRequestThrough(t *testing.T) {
	t.Parallel()

	var called bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})

	h := BearerToken("tok")(inner)

	req := httptest.NewRequest(http.MethodPost, "/test", http.NoBody)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !called {
		t.Error("inner handler was not called")
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestOptional(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{"disabled passes without header", "", "", http.StatusOK},
		{"disabled ignores header", "", "Bearer anything", http.StatusOK},
		{"enabled requires header", "tok", "", http.StatusUnauthorized},
		{"enabled accepts token", "tok", "Bearer tok", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := Optional(tt.token)(okHandler)
			req := httptest.NewRequest(http.MethodPost, "/api/chat", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
