package api

import "github.com/havenmind/safeguard/internal/domain"

// AssessRequest represents a single assessment request.
type AssessRequest struct {
	Content     string `json:"content"      binding:"required"`
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	Sensitivity string `json:"sensitivity"`
}

// AssessResponse represents an assessment response.
type AssessResponse struct {
	Assessment    *domain.Assessment `json:"assessment"`
	CrisisTracked bool               `json:"crisis_tracked"`
	Error         string             `json:"error,omitempty"`
}

// BatchAssessRequest represents a batch assessment request.
type BatchAssessRequest struct {
	Contents    []string `json:"contents" binding:"required,min=1,max=100"`
	Sensitivity string   `json:"sensitivity"`
}

// BatchAssessResponse represents a batch assessment response.
type BatchAssessResponse struct {
	Assessments []*domain.Assessment `json:"assessments"`
	Total       int                  `json:"total"`
	Crises      int                  `json:"crises"`
}

// EventsResponse represents a list of crisis events.
type EventsResponse struct {
	Events []*domain.CrisisEvent `json:"events"`
	Total  int                   `json:"total"`
}

// EventResponse represents a single crisis event. Active indicates
// whether the event is still in the live registry.
type EventResponse struct {
	Event  *domain.CrisisEvent `json:"event"`
	Active bool                `json:"active"`
}

// EscalateRequest represents a manual escalation request.
type EscalateRequest struct {
	HandledBy string `json:"handled_by" binding:"required"`
}

// ResolveRequest represents a resolution request.
type ResolveRequest struct {
	HandledBy string `json:"handled_by" binding:"required"`
	Notes     string `json:"notes"`
}
