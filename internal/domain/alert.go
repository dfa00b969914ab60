package domain

import "time"

// AlertLevel is the escalation ladder for crisis events. Levels form a
// total order: concern < moderate < severe < emergency.
type AlertLevel string

const (
	AlertLevelConcern   AlertLevel = "concern"
	AlertLevelModerate  AlertLevel = "moderate"
	AlertLevelSevere    AlertLevel = "severe"
	AlertLevelEmergency AlertLevel = "emergency"
)

// alertLadder lists levels in ascending severity order.
var alertLadder = []AlertLevel{
	AlertLevelConcern,
	AlertLevelModerate,
	AlertLevelSevere,
	AlertLevelEmergency,
}

// Rank returns the position of the level in the ladder, or -1 for an
// unknown level.
func (l AlertLevel) Rank() int {
	for i, level := range alertLadder {
		if level == l {
			return i
		}
	}
	return -1
}

// Next returns the level strictly above l in the ladder. ok is false when
// l is already at the top (or unknown).
func (l AlertLevel) Next() (next AlertLevel, ok bool) {
	rank := l.Rank()
	if rank < 0 || rank >= len(alertLadder)-1 {
		return "", false
	}
	return alertLadder[rank+1], true
}

// Valid reports whether l is one of the four ladder levels.
func (l AlertLevel) Valid() bool {
	return l.Rank() >= 0
}

// AlertLevels returns the ladder in ascending order.
func AlertLevels() []AlertLevel {
	out := make([]AlertLevel, len(alertLadder))
	copy(out, alertLadder)
	return out
}

// AlertConfiguration describes how the protocol responds at one alert
// level. One configuration exists per level; the set is provided at
// initialization and read-only afterwards.
type AlertConfiguration struct {
	Level             AlertLevel    `json:"level"              yaml:"level"`
	Name              string        `json:"name"               yaml:"name"`
	Description       string        `json:"description"        yaml:"description"`
	ThresholdScore    float64       `json:"threshold_score"    yaml:"threshold_score"`
	TriggerTerms      []string      `json:"trigger_terms"      yaml:"trigger_terms"`
	AutoEscalateAfter time.Duration `json:"auto_escalate_after" yaml:"auto_escalate_after"`
	RequiredActions   []string      `json:"required_actions"   yaml:"required_actions"`
	ResponseTemplate  string        `json:"response_template"  yaml:"response_template"`
	EscalationTime    time.Duration `json:"escalation_time"    yaml:"escalation_time"`
}
