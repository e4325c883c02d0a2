// Package slack posts crisis escalation notices to a Slack incoming webhook.
// Notices identify the request only; message text never leaves the process.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/log"
)

const httpTimeout = 10 * time.Second

// Escalation is one crisis notice.
type Escalation struct {
	ID        string
	RequestID string
	At        time.Time
}

// Notifier sends crisis escalations to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
	now        func() time.Time
}

// New creates a new Slack notifier. If webhookURL is empty, NotifyCrisis is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
		now:        time.Now,
	}
}

// NotifyCrisis posts an escalation for requestID.
func (n *Notifier) NotifyCrisis(ctx context.Context, requestID string) error {
	if n.webhookURL == "" {
		return nil
	}

	at := n.now().UTC()
	esc := Escalation{
		ID:        ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		RequestID: requestID,
		At:        at,
	}

	if err := n.Send(ctx, esc); err != nil {
		return err
	}
	n.logger.Info(ctx, "crisis escalation sent", "escalation_id", esc.ID, "request_id", requestID)
	return nil
}

// Send posts esc to the configured webhook.
func (n *Notifier) Send(ctx context.Context, esc Escalation) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(esc))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(esc Escalation) map[string]any {
	return map[string]any{
		"text": "Crisis triage triggered",
		"blocks": []map[string]any{
			headerBlock(),
			fieldsBlock(esc),
			{"type": "divider"},
			contextBlock(esc),
		},
	}
}

func headerBlock() map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": "\U0001f534 Crisis triage triggered", // red circle
		},
	}
}

func fieldsBlock(esc Escalation) map[string]any {
	requestID := esc.RequestID
	if requestID == "" {
		requestID = "_unknown_"
	}

	return map[string]any{
		"type": "section",
		"fields": []map[string]any{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Escalation:* %s", esc.ID),
			},
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Request:* %s", requestID),
			},
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Time:* %s", esc.At.UTC().Format(time.RFC3339)),
			},
		},
	}
}

func contextBlock(esc Escalation) map[string]any {
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("ethicamind • escalation %s • %s", esc.ID, esc.At.UTC().Format("2006-01-02 15:04 UTC")),
			},
		},
	}
}
