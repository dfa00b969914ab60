// Package protocol owns the crisis event lifecycle: opening events from
// assessment output, staff notification fan-out, timer-driven
// auto-escalation, manual escalation, and resolution.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/havenmind/safeguard/internal/domain"
	"github.com/havenmind/safeguard/internal/logger"
	"github.com/havenmind/safeguard/internal/telemetry"
)

var (
	// ErrNotInitialized is returned when an operation runs before the
	// protocol has been constructed with its configuration. This is a
	// wiring bug in the caller and fails fast.
	ErrNotInitialized = errors.New("crisis protocol not initialized")

	// ErrEventNotFound is returned for operations against an id that is
	// not in the active registry (stale or invalid id).
	ErrEventNotFound = errors.New("crisis event not found")
)

// Level thresholds for classifying an incoming crisis by confidence.
const (
	levelEmergencyAt = 0.9
	levelSevereAt    = 0.7
	levelModerateAt  = 0.5
)

const notifyTimeout = 10 * time.Second

// Detected-risk terms that force the emergency level regardless of
// confidence. Overridable via Config.EmergencyTerms.
var defaultEmergencyTerms = []string{
	"immediate danger",
	"tonight",
	"suicide plan",
	"right now",
	"pills in hand",
	"loaded gun",
}

// Recorder durably persists crisis event snapshots. It is called once at
// creation and once at resolution, so implementations must be idempotent
// per event id.
type Recorder interface {
	Record(ctx context.Context, event *domain.CrisisEvent) error
}

// Notifier delivers one staff notification to one channel. Delivery is
// best-effort from the protocol's point of view.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// Notification is the structured payload handed to the notifier.
type Notification struct {
	Channel         string            `json:"channel"`
	EventID         string            `json:"event_id"`
	Level           domain.AlertLevel `json:"level"`
	Message         string            `json:"message"`
	DetectedRisks   []string          `json:"detected_risks"`
	RequiredActions []string          `json:"required_actions"`
	Actions         []ActionButton    `json:"actions"`
}

// ActionButton is a responder affordance rendered by the transport.
type ActionButton struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// Config is the protocol's initialization input.
type Config struct {
	// AlertConfigs holds one configuration per alert level.
	AlertConfigs []domain.AlertConfiguration
	// Channels maps an alert level to the staff channel identifiers
	// notified at that level.
	Channels map[domain.AlertLevel][]string
	// EmergencyTerms overrides the built-in immediate-danger term list
	// when non-empty.
	EmergencyTerms []string
}

// Protocol is the crisis event state machine. A single mutex guards the
// active-event registry and the timer table: crisis events are rare
// relative to request volume, so a global lock is simple and sufficient.
type Protocol struct {
	mu          sync.Mutex
	initialized bool

	configs        map[domain.AlertLevel]domain.AlertConfiguration
	channels       map[domain.AlertLevel][]string
	emergencyTerms []string

	recorder  Recorder
	notifier  Notifier
	logger    logger.Logger
	telemetry *telemetry.Provider

	events map[string]*domain.CrisisEvent
	timers map[string]*time.Timer

	// resolving marks events whose resolution is mid-flight at the
	// recorder. A timer that already fired and is waiting on the mutex
	// must not escalate such an event back to life.
	resolving map[string]struct{}
}

// New constructs an initialized protocol. The recorder is required:
// durable recording is the one guarantee this component cannot drop. The
// telemetry provider may be nil.
func New(cfg Config, recorder Recorder, notifier Notifier, log logger.Logger, tp *telemetry.Provider) (*Protocol, error) {
	if recorder == nil {
		return nil, errors.New("crisis protocol requires a recorder")
	}
	if notifier == nil {
		return nil, errors.New("crisis protocol requires a notifier")
	}

	configs := make(map[domain.AlertLevel]domain.AlertConfiguration, len(cfg.AlertConfigs))
	for _, ac := range cfg.AlertConfigs {
		if !ac.Level.Valid() {
			return nil, fmt.Errorf("unknown alert level %q in configuration", ac.Level)
		}
		configs[ac.Level] = ac
	}

	terms := cfg.EmergencyTerms
	if len(terms) == 0 {
		terms = defaultEmergencyTerms
	}
	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t)
	}

	channels := make(map[domain.AlertLevel][]string, len(cfg.Channels))
	for level, ids := range cfg.Channels {
		channels[level] = append([]string(nil), ids...)
	}

	return &Protocol{
		initialized:    true,
		configs:        configs,
		channels:       channels,
		emergencyTerms: lowered,
		recorder:       recorder,
		notifier:       notifier,
		logger:         log,
		telemetry:      tp,
		events:         make(map[string]*domain.CrisisEvent),
		timers:         make(map[string]*time.Timer),
		resolving:      make(map[string]struct{}),
	}, nil
}

func (p *Protocol) ready() error {
	if p == nil || !p.initialized {
		return ErrNotInitialized
	}
	return nil
}

// HandleCrisis opens a crisis event for the given detection: determines
// the alert level, registers and durably records the event, fans out
// staff notifications, and arms auto-escalation when configured.
//
// Recording failures propagate to the caller; notification failures are
// logged and swallowed so best-effort delivery can never make crisis
// recording look like it failed.
func (p *Protocol) HandleCrisis(ctx context.Context, userID, sessionID, content string, confidence float64, detectedRisks []string) error {
	if err := p.ready(); err != nil {
		return err
	}

	level := p.determineLevel(confidence, detectedRisks)
	cfg, ok := p.configs[level]
	if !ok {
		// A configuration gap must not crash the caller, but it must be
		// visible to operators.
		p.logger.Warn("no alert configuration for level, crisis not tracked",
			logger.String("alert_level", string(level)),
			logger.String("user_id", userID),
			logger.Float64("confidence", confidence))
		return nil
	}

	event := &domain.CrisisEvent{
		ID:            uuid.NewString(),
		UserID:        userID,
		SessionID:     sessionID,
		Timestamp:     time.Now().UTC(),
		Content:       content,
		Confidence:    confidence,
		DetectedRisks: append([]string(nil), detectedRisks...),
		AlertLevel:    level,
	}

	// Once the event is published into the registry, concurrent Escalate or
	// Resolve calls may mutate it, so the snapshot for the recorder and the
	// notifier has to be taken before the lock is released.
	p.mu.Lock()
	p.events[event.ID] = event
	snapshot := event.Clone()
	p.mu.Unlock()

	if p.telemetry != nil {
		p.telemetry.Metrics.ActiveEvents.Inc()
		p.telemetry.Metrics.EventsOpened.WithLabelValues(string(level)).Inc()
	}
	p.logger.Info("crisis event opened",
		logger.String("event_id", snapshot.ID),
		logger.String("user_id", userID),
		logger.String("alert_level", string(level)),
		logger.Float64("confidence", confidence),
		logger.Strings("detected_risks", snapshot.DetectedRisks))

	if err := p.recorder.Record(ctx, snapshot); err != nil {
		// The event stays tracked: the caller learns durability failed,
		// but a live crisis is never dropped from the registry.
		if p.telemetry != nil {
			p.telemetry.Metrics.RecordingFailures.Inc()
		}
		p.logger.Error("failed to record crisis event",
			logger.String("event_id", snapshot.ID),
			logger.Error(err))
		return fmt.Errorf("record crisis event %s: %w", snapshot.ID, err)
	}

	p.notifyStaff(ctx, snapshot, cfg)

	if cfg.AutoEscalateAfter > 0 {
		p.armAutoEscalation(snapshot.ID, cfg.AutoEscalateAfter)
	}

	return nil
}

// Escalate manually escalates an active event: cancels any pending
// auto-escalation timer, marks the event escalated, moves it one level up
// the ladder, and re-notifies staff at the new level's configuration. An
// event already at emergency stays there without error.
func (p *Protocol) Escalate(ctx context.Context, eventID, handledBy string) error {
	if err := p.ready(); err != nil {
		return err
	}

	p.mu.Lock()
	event, ok := p.events[eventID]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}

	// Cancel before mutating so the timer cannot fire mid-escalation.
	p.cancelTimerLocked(eventID)
	event.Escalated = true
	event.HandledBy = handledBy

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
		p.telemetry.Metrics.EscalationsTotal.WithLabelValues("manual").Inc()
	}
	p.logger.Info("crisis event escalated",
		logger.String("event_id", eventID),
		logger.String("handled_by", handledBy),
		logger.Bool("level_raised", hasNext),
		logger.String("alert_level", string(next)))

	if hasNext && !notify {
		p.logger.Warn("no alert configuration for escalated level",
			logger.String("event_id", eventID),
			logger.String("alert_level", string(next)))
	}
	if notify {
		p.notifyStaff(ctx, snapshot, nextCfg)
	}

	return nil
}

// Resolve closes an active event: cancels any pending timer, durably
// records the resolved snapshot, and removes the event from the registry.
// The resolved mutation is committed only after a successful recorder
// call; on recording failure the event stays active and the error
// propagates.
func (p *Protocol) Resolve(ctx context.Context, eventID, handledBy, notes string) error {
	if err := p.ready(); err != nil {
		return err
	}

	p.mu.Lock()
	event, ok := p.events[eventID]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}

	p.cancelTimerLocked(eventID)
	// A timer past its Stop may already be blocked on the mutex. The
	// tombstone keeps it from escalating this event while the recorder
	// round-trip is in flight below.
	p.resolving[eventID] = struct{}{}

	snapshot := event.Clone()
	snapshot.Resolved = true
	snapshot.HandledBy = handledBy
	snapshot.Notes = notes
	p.mu.Unlock()

	if err := p.recorder.Record(ctx, snapshot); err != nil {
		p.mu.Lock()
		delete(p.resolving, eventID)
		p.mu.Unlock()
		if p.telemetry != nil {
			p.telemetry.Metrics.RecordingFailures.Inc()
		}
		p.logger.Error("failed to record crisis resolution",
			logger.String("event_id", eventID),
			logger.Error(err))
		return fmt.Errorf("record crisis resolution %s: %w", eventID, err)
	}

	p.mu.Lock()
	delete(p.resolving, eventID)
	if current, still := p.events[eventID]; still {
		current.Resolved = true
		current.HandledBy = handledBy
		current.Notes = notes
		delete(p.events, eventID)
	}
	p.mu.Unlock()

	if p.telemetry != nil {
		p.telemetry.Metrics.ActiveEvents.Dec()
		p.telemetry.Metrics.EventsResolved.Inc()
	}
	p.logger.Info("crisis event resolved",
		logger.String("event_id", eventID),
		logger.String("handled_by", handledBy))

	return nil
}

// ActiveEvents returns snapshots of all unresolved events, oldest first.
func (p *Protocol) ActiveEvents() ([]*domain.CrisisEvent, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	out := make([]*domain.CrisisEvent, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Clone())
	}
	p.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Event returns a snapshot of one active event.
func (p *Protocol) Event(eventID string) (*domain.CrisisEvent, bool) {
	if p.ready() != nil {
		return nil, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	event, ok := p.events[eventID]
	if !ok {
		return nil, false
	}
	return event.Clone(), true
}

// determineLevel maps a detection onto the alert ladder. Any detected-risk
// term containing an emergency term forces the top level; otherwise
// confidence thresholds decide.
func (p *Protocol) determineLevel(confidence float64, detectedRisks []string) domain.AlertLevel {
	for _, risk := range detectedRisks {
		lowered := strings.ToLower(risk)
		for _, term := range p.emergencyTerms {
			if strings.Contains(lowered, term) {
				return domain.AlertLevelEmergency
			}
		}
	}

	switch {
	case confidence >= levelEmergencyAt:
		return domain.AlertLevelEmergency
	case confidence >= levelSevereAt:
		return domain.AlertLevelSevere
	case confidence >= levelModerateAt:
		return domain.AlertLevelModerate
	default:
		return domain.AlertLevelConcern
	}
}
