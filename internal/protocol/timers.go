package protocol

import (
	"context"
	"time"

	"github.com/havenmind/safeguard/internal/domain"
	"github.com/havenmind/safeguard/internal/logger"
)

// armAutoEscalation schedules an escalation for an unhandled event. An
// event holds at most one pending timer: re-arming replaces any existing
// one.
func (p *Protocol) armAutoEscalation(eventID string, after time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelTimerLocked(eventID)
	p.timers[eventID] = time.AfterFunc(after, func() {
		p.autoEscalate(eventID)
	})
}

// cancelTimerLocked stops and removes any pending timer for the event.
// Callers hold p.mu. Stop returning false is fine: either the timer
// already fired (autoEscalate rechecks registry state under the lock) or
// it was already stopped.
func (p *Protocol) cancelTimerLocked(eventID string) {
	if t, ok := p.timers[eventID]; ok {
		t.Stop()
		delete(p.timers, eventID)
	}
}

// autoEscalate fires from the timer goroutine. It revalidates that the
// event is still active before mutating: Resolve or Escalate may have won
// the race between timer expiry and lock acquisition.
func (p *Protocol) autoEscalate(eventID string) {
	p.mu.Lock()
	delete(p.timers, eventID)

	event, ok := p.events[eventID]
	if !ok || event.Resolved {
		p.mu.Unlock()
		return
	}
	if _, pending := p.resolving[eventID]; pending {
		// Resolve cancelled the timer and is waiting on its recorder.
		p.mu.Unlock()
		return
	}

	event.Escalated = true
	var (
		snapshot *domain.CrisisEvent
		nextCfg  domain.AlertConfiguration
		notify   bool
	)
	next, hasNext := event.AlertLevel.Next()
	if hasNext {
		event.AlertLevel = next
		nextCfg, notify = p.configs[next]
		snapshot = event.Clone()
	}
	p.mu.Unlock()

	if p.telemetry != nil {
		p.telemetry.Metrics.EscalationsTotal.WithLabelValues("auto").Inc()
	}
	p.logger.Warn("crisis event auto-escalated after response window elapsed",
		logger.String("event_id", eventID),
		logger.Bool("level_raised", hasNext),
		logger.String("alert_level", string(next)))

	if !hasNext {
		return
	}
	if !notify {
		p.logger.Warn("no alert configuration for auto-escalated level",
			logger.String("event_id", eventID),
			logger.String("alert_level", string(next)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	p.notifyStaff(ctx, snapshot, nextCfg)
}
