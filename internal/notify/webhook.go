// Package notify delivers staff notifications over incoming-webhook
// endpoints (Slack-compatible payload shape).
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/havenmind/safeguard/internal/domain"
	"github.com/havenmind/safeguard/internal/logger"
	"github.com/havenmind/safeguard/internal/protocol"
)

const defaultSendTimeout = 10 * time.Second

// WebhookNotifier posts notifications to per-channel webhook URLs. It
// implements protocol.Notifier.
type WebhookNotifier struct {
	webhooks map[string]string
	client   *http.Client
	logger   logger.Logger
}

// NewWebhookNotifier builds a notifier from a channel-id to webhook-URL
// map. A zero timeout uses the default.
func NewWebhookNotifier(webhooks map[string]string, timeout time.Duration, log logger.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	ws := make(map[string]string, len(webhooks))
	for ch, url := range webhooks {
		ws[ch] = url
	}
	return &WebhookNotifier{
		webhooks: ws,
		client:   &http.Client{Timeout: timeout},
		logger:   log,
	}
}

type webhookPayload struct {
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments,omitempty"`
}

type attachment struct {
	Color   string        `json:"color,omitempty"`
	Title   string        `json:"title,omitempty"`
	Text    string        `json:"text,omitempty"`
	Fields  []field       `json:"fields,omitempty"`
	Actions []actionBlock `json:"actions,omitempty"`
}

type field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type actionBlock struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Send posts the notification to the channel's webhook.
func (w *WebhookNotifier) Send(ctx context.Context, n protocol.Notification) error {
	url, ok := w.webhooks[n.Channel]
	if !ok {
		return fmt.Errorf("no webhook configured for channel %q", n.Channel)
	}

	payload := buildPayload(n)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to channel %q: %w", n.Channel, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			w.logger.Warn("failed to close webhook response body", logger.Error(cerr))
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook for channel %q returned status %d", n.Channel, resp.StatusCode)
	}
	return nil
}

func buildPayload(n protocol.Notification) webhookPayload {
	fields := []field{
		{Title: "Event", Value: n.EventID, Short: true},
		{Title: "Level", Value: string(n.Level), Short: true},
	}
	if len(n.DetectedRisks) > 0 {
		fields = append(fields, field{Title: "Detected", Value: joinLines(n.DetectedRisks), Short: false})
	}
	if len(n.RequiredActions) > 0 {
		fields = append(fields, field{Title: "Required actions", Value: joinLines(n.RequiredActions), Short: false})
	}

	actions := make([]actionBlock, 0, len(n.Actions))
	for _, a := range n.Actions {
		actions = append(actions, actionBlock{Type: "button", Text: a.Label, Value: a.Action})
	}

	return webhookPayload{
		Text: n.Message,
		Attachments: []attachment{{
			Color:   levelColor(n.Level),
			Fields:  fields,
			Actions: actions,
		}},
	}
}

func joinLines(items []string) string {
	var b bytes.Buffer
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• ")
		b.WriteString(item)
	}
	return b.String()
}

func levelColor(level domain.AlertLevel) string {
	switch level {
	case domain.AlertLevelEmergency:
		return "#d00000"
	case domain.AlertLevelSevere:
		return "#e85d04"
	case domain.AlertLevelModerate:
		return "#ffba08"
	default:
		return "#4895ef"
	}
}
