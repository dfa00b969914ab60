//nolint:testpackage // Testing internal notify requires same package access
package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenmind/safeguard/internal/domain"
	"github.com/havenmind/safeguard/internal/logger"
	"github.com/havenmind/safeguard/internal/protocol"
)

func TestWebhookNotifier_Send(t *testing.T) {
	var received webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(map[string]string{"crisis-team": srv.URL}, time.Second, logger.NewNop())

	err := n.Send(context.Background(), protocol.Notification{
		Channel:         "crisis-team",
		EventID:         "evt-1",
		Level:           domain.AlertLevelEmergency,
		Message:         "EMERGENCY: detected pills in hand",
		DetectedRisks:   []string{"pills in hand"},
		RequiredActions: []string{"contact user immediately"},
		Actions: []protocol.ActionButton{
			{Label: "Acknowledge", Action: "handle_crisis"},
			{Label: "Escalate", Action: "escalate_crisis"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "EMERGENCY: detected pills in hand", received.Text)
	require.Len(t, received.Attachments, 1)
	att := received.Attachments[0]
	assert.Equal(t, "#d00000", att.Color)
	require.Len(t, att.Actions, 2)
	assert.Equal(t, "button", att.Actions[0].Type)
	assert.Equal(t, "Acknowledge", att.Actions[0].Text)

	var fieldTitles []string
	for _, f := range att.Fields {
		fieldTitles = append(fieldTitles, f.Title)
	}
	assert.Contains(t, fieldTitles, "Event")
	assert.Contains(t, fieldTitles, "Level")
	assert.Contains(t, fieldTitles, "Detected")
	assert.Contains(t, fieldTitles, "Required actions")
}

func TestWebhookNotifier_UnknownChannel(t *testing.T) {
	n := NewWebhookNotifier(map[string]string{}, time.Second, logger.NewNop())

	err := n.Send(context.Background(), protocol.Notification{Channel: "nowhere"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no webhook configured")
}

func TestWebhookNotifier_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(map[string]string{"ch": srv.URL}, time.Second, logger.NewNop())

	err := n.Send(context.Background(), protocol.Notification{Channel: "ch"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestWebhookNotifier_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(map[string]string{"ch": srv.URL}, time.Second, logger.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := n.Send(ctx, protocol.Notification{Channel: "ch"})
	assert.Error(t, err)
}

func TestLevelColor(t *testing.T) {
	assert.Equal(t, "#d00000", levelColor(domain.AlertLevelEmergency))
	assert.Equal(t, "#e85d04", levelColor(domain.AlertLevelSevere))
	assert.Equal(t, "#ffba08", levelColor(domain.AlertLevelModerate))
	assert.Equal(t, "#4895ef", levelColor(domain.AlertLevelConcern))
}
