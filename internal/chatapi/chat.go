package chatapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/ethicamind/internal/classify"
	"github.com/linnemanlabs/ethicamind/internal/dispatch"
)

// Response types on the wire.
const (
	TypeChat   = "chat"
	TypeCrisis = "CRISIS_TRIAGE"
	TypeError  = "error"
)

// Client-facing error messages. Internal detail is only ever logged.
const (
	MsgInvalidJSON     = "Invalid JSON"
	MsgMessageRequired = "Message is required."
	MsgTooLarge        = "Message is too large."
	MsgInternal        = "Internal server error."
)

// Response is the JSON envelope for every /api/chat reply.
type Response struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

var errTrailingData = errors.New("unexpected data after JSON body")

type chatRequest struct {
	Message any `json:"message"`
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error(ctx, fmt.Errorf("panic: %v", rec), "chat handler panicked")
			a.metrics.observeResponse(kindError)
			writeJSON(w, http.StatusInternalServerError, Response{Type: TypeError, Message: MsgInternal})
		}
	}()

	var req chatRequest
	if err := decodeRequest(r.Body, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.metrics.observeResponse(kindInvalid)
			writeJSON(w, http.StatusRequestEntityTooLarge, Response{Type: TypeError, Message: MsgTooLarge})
			return
		}
		a.metrics.observeResponse(kindInvalid)
		writeJSON(w, http.StatusBadRequest, Response{Type: TypeError, Message: MsgInvalidJSON})
		return
	}

	// whitespace-only is empty, but the message itself is forwarded untouched
	text, ok := req.Message.(string)
	if !ok || strings.TrimSpace(text) == "" {
		a.metrics.observeResponse(kindInvalid)
		writeJSON(w, http.StatusBadRequest, Response{Type: TypeError, Message: MsgMessageRequired})
		return
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int("ethicamind.message.length", len(text)))

	verdict := a.classifier.Classify(text)
	span.SetAttributes(attribute.String("ethicamind.chat.verdict", string(verdict.Kind)))

	switch verdict.Kind {
	case classify.KindCrisis:
		a.logger.Warn(ctx, "crisis triage triggered", "message_length", len(text))
		if a.notifier != nil {
			ectx, id := context.WithoutCancel(ctx), requestID(w, r)
			a.escalations.Go(func() { a.escalate(ectx, id) })
		}
		a.metrics.observeResponse(kindCrisis)
		writeJSON(w, http.StatusOK, Response{Type: TypeCrisis})

	case classify.KindGuardrail:
		a.logger.Info(ctx, "guardrail triggered", "message_length", len(text))
		a.metrics.observeResponse(kindGuardrail)
		writeJSON(w, http.StatusOK, Response{Type: TypeChat, Message: verdict.Reply})

	default:
		out := a.dispatcher.Dispatch(ctx, text)
		span.SetAttributes(attribute.String("ethicamind.dispatch.outcome", string(out.Kind)))
		if out.Kind == dispatch.KindFallback {
			a.metrics.observeResponse(kindFallback)
		} else {
			a.metrics.observeResponse(kindReplied)
		}
		writeJSON(w, http.StatusOK, Response{Type: TypeChat, Message: out.Text})
	}
}

func (a *API) escalate(ctx context.Context, id string) {
	if err := a.notifier.NotifyCrisis(ctx, id); err != nil {
		a.logger.Error(ctx, err, "crisis escalation failed", "request_id", id)
		a.metrics.observeEscalation(false)
		return
	}
	a.metrics.observeEscalation(true)
}

// decodeRequest reads exactly one JSON value; trailing data is malformed.
func decodeRequest(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errTrailingData
		}
		return err
	}
	return nil
}

func (a *API) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
	})
}

// requestID prefers the inbound header and falls back to the one set on the
// response by the request-id middleware.
func requestID(w http.ResponseWriter, r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return w.Header().Get("X-Request-Id")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing useful to do with a write error here
	_ = json.NewEncoder(w).Encode(v)
}
