package domain

import "time"

// CrisisEvent is one tracked crisis. The protocol owns the instance while
// the event is active; once resolved it is recorded and dropped from the
// active registry.
type CrisisEvent struct {
	ID            string     `db:"id"             json:"id"`
	UserID        string     `db:"user_id"        json:"user_id"`
	SessionID     string     `db:"session_id"     json:"session_id"`
	Timestamp     time.Time  `db:"created_at"     json:"timestamp"`
	Content       string     `db:"content"        json:"content"`
	Confidence    float64    `db:"confidence"     json:"confidence"`
	DetectedRisks []string   `db:"detected_risks" json:"detected_risks"`
	AlertLevel    AlertLevel `db:"alert_level"    json:"alert_level"`
	Escalated     bool       `db:"escalated"      json:"escalated"`
	Resolved      bool       `db:"resolved"       json:"resolved"`
	HandledBy     string     `db:"handled_by"     json:"handled_by,omitempty"`
	Notes         string     `db:"notes"          json:"notes,omitempty"`
}

// Clone returns a copy of the event safe to hand outside the registry lock.
func (e *CrisisEvent) Clone() *CrisisEvent {
	out := *e
	out.DetectedRisks = make([]string, len(e.DetectedRisks))
	copy(out.DetectedRisks, e.DetectedRisks)
	return &out
}
