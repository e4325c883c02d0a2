package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/log"
)

func TestNotifyCrisis_PostsToWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	var raw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		b, _ := json.Marshal(got)
		raw = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	n.now = func() time.Time { return time.Date(2026, 2, 26, 14, 23, 0, 0, time.UTC) }

	if err := n.NotifyCrisis(context.Background(), "req-42"); err != nil {
		t.Fatalf("NotifyCrisis: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}

	// header, fields, divider, context = 4 blocks
	if len(blocks) != 4 {
		t.Errorf("blocks count = %d, want 4", len(blocks))
	}

	header := blocks[0].(map[string]any)
	headerText := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(headerText, "Crisis triage") {
		t.Errorf("header text = %q, want crisis header", headerText)
	}
	if !strings.Contains(raw, "req-42") {
		t.Error("payload missing request id")
	}
	if !strings.Contains(raw, "2026-02-26T14:23:00Z") {
		t.Error("payload missing RFC3339 timestamp")
	}
}

func TestNotifyCrisis_EscalationIDIsULID(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	n := New(srv.URL, log.Nop())
	n.now = func() time.Time { return at }

	if err := n.NotifyCrisis(context.Background(), "req-1"); err != nil {
		t.Fatalf("NotifyCrisis: %v", err)
	}

	fields := got["blocks"].([]any)[1].(map[string]any)["fields"].([]any)
	idText := fields[0].(map[string]any)["text"].(string)
	id := strings.TrimPrefix(idText, "*Escalation:* ")

	parsed, err := ulid.Parse(id)
	if err != nil {
		t.Fatalf("escalation id %q is not a ULID: %v", id, err)
	}
	if !ulid.Time(parsed.Time()).Equal(at) {
		t.Errorf("ulid time = %v, want %v", ulid.Time(parsed.Time()), at)
	}
}

func TestNotifyCrisis_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("", nil)
	if err := n.NotifyCrisis(context.Background(), "req"); err != nil {
		t.Fatalf("NotifyCrisis with empty URL should be no-op, got: %v", err)
	}
}

func TestSend_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	err := n.Send(context.Background(), Escalation{ID: "01JN789", At: time.Now()})
	if err == nil {
		t.Fatal("expected error on non-OK status")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %q, want to contain status code 500", err.Error())
	}
}

func TestFieldsBlock_UnknownRequest(t *testing.T) {
	t.Parallel()

	block := fieldsBlock(Escalation{ID: "x", At: time.Unix(0, 0)})
	fields := block["fields"].([]map[string]any)
	if got := fields[1]["text"].(string); got != "*Request:* _unknown_" {
		t.Errorf("request field = %q", got)
	}
}

func FuzzSlackBuild(f *testing.F) {
	f.Add("01JN123", "req-1")
	f.Add("", "")
	f.Add("<@U123> mention", "*bold* _italic_")
	f.Add("id\x00\x01", "req\nline")
	f.Add(strings.Repeat("A", 5000), strings.Repeat("x", 10000))

	f.Fuzz(func(t *testing.T, id, requestID string) {
		msg := buildMessage(Escalation{
			ID:        id,
			RequestID: requestID,
			At:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		})

		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("buildMessage produced non-marshalable output: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("buildMessage JSON does not round-trip: %v", err)
		}

		blocks, ok := decoded["blocks"].([]any)
		if !ok {
			t.Fatal("expected blocks array")
		}
		if len(blocks) != 4 {
			t.Fatalf("blocks count = %d, want 4", len(blocks))
		}
	})
}
