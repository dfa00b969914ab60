package protocol

import (
	"context"
	"fmt"
	"strings"

	"github.com/havenmind/safeguard/internal/domain"
	"github.com/havenmind/safeguard/internal/logger"
)

// notifyStaff fans a notification out to every channel configured for the
// event's alert level. Per-channel failures are logged and swallowed:
// notification is best-effort and one dead channel must not block the
// rest.
func (p *Protocol) notifyStaff(ctx context.Context, event *domain.CrisisEvent, cfg domain.AlertConfiguration) {
	channels := p.channels[cfg.Level]
	if len(channels) == 0 {
		p.logger.Warn("no notification channels configured for alert level",
			logger.String("event_id", event.ID),
			logger.String("alert_level", string(cfg.Level)))
		return
	}

	n := Notification{
		EventID:         event.ID,
		Level:           cfg.Level,
		Message:         renderMessage(cfg, event),
		DetectedRisks:   event.DetectedRisks,
		RequiredActions: cfg.RequiredActions,
		Actions: []ActionButton{
			{Label: "Acknowledge", Action: "handle_crisis"},
			{Label: "Escalate", Action: "escalate_crisis"},
		},
	}

	for _, channel := range channels {
		n.Channel = channel
		if err := p.notifier.Send(ctx, n); err != nil {
			if p.telemetry != nil {
				p.telemetry.Metrics.NotificationsTotal.WithLabelValues("error").Inc()
			}
			p.logger.Error("failed to notify staff channel",
				logger.String("event_id", event.ID),
				logger.String("channel", channel),
				logger.Error(err))
			continue
		}
		if p.telemetry != nil {
			p.telemetry.Metrics.NotificationsTotal.WithLabelValues("success").Inc()
		}
	}
}

// renderMessage fills the level's response template. Templates may refer
// to {terms} (detected risk terms) and {level} (alert level name).
func renderMessage(cfg domain.AlertConfiguration, event *domain.CrisisEvent) string {
	msg := cfg.ResponseTemplate
	if msg == "" {
		msg = fmt.Sprintf("Crisis alert (%s): detected %s", cfg.Level, strings.Join(event.DetectedRisks, ", "))
	}
	msg = strings.ReplaceAll(msg, "{terms}", strings.Join(event.DetectedRisks, ", "))
	msg = strings.ReplaceAll(msg, "{level}", string(cfg.Level))
	return msg
}
