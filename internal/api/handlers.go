// Package api exposes the safeguard HTTP surface.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/havenmind/safeguard/internal/database"
	"github.com/havenmind/safeguard/internal/detector"
	"github.com/havenmind/safeguard/internal/domain"
	"github.com/havenmind/safeguard/internal/logger"
	"github.com/havenmind/safeguard/internal/protocol"
	"github.com/havenmind/safeguard/internal/telemetry"
)

// Handler handles HTTP requests for the safeguard API.
type Handler struct {
	assessor    *detector.Assessor
	protocol    *protocol.Protocol
	history     *database.CrisisEventRepository
	telemetry   *telemetry.Provider
	sensitivity domain.Sensitivity
	logger      logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	assessor *detector.Assessor,
	proto *protocol.Protocol,
	history *database.CrisisEventRepository,
	tp *telemetry.Provider,
	sensitivity domain.Sensitivity,
	log logger.Logger,
) *Handler {
	return &Handler{
		assessor:    assessor,
		protocol:    proto,
		history:     history,
		telemetry:   tp,
		sensitivity: sensitivity,
		logger:      log,
	}
}

// Assess handles POST /api/v1/assess
func (h *Handler) Assess(c *gin.Context) {
	var req AssessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid assessment request", logger.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sensitivity := h.sensitivity
	if req.Sensitivity != "" {
		sensitivity = domain.Sensitivity(req.Sensitivity)
		if !sensitivity.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown sensitivity: " + req.Sensitivity})
			return
		}
	}

	start := time.Now()
	assessment := h.assessor.Assess(c.Request.Context(), req.Content, sensitivity)
	if h.telemetry != nil {
		h.telemetry.ObserveAssessment(string(assessment.RiskLevel), assessment.IsCrisis, time.Since(start))
	}

	resp := AssessResponse{Assessment: assessment}

	if assessment.IsCrisis && h.protocol != nil {
		err := h.protocol.HandleCrisis(
			c.Request.Context(),
			req.UserID,
			req.SessionID,
			req.Content,
			assessment.Confidence,
			assessment.DetectedTerms,
		)
		if err != nil {
			// The assessment itself succeeded. Surface the tracking
			// failure without discarding the result.
			h.logger.Error("crisis handling failed",
				logger.String("user_id", req.UserID),
				logger.Error(err))
			resp.CrisisTracked = false
			resp.Error = "crisis detected but tracking failed"
			c.JSON(http.StatusInternalServerError, resp)
			return
		}
		resp.CrisisTracked = true
	}

	c.JSON(http.StatusOK, resp)
}

// AssessBatch handles POST /api/v1/assess/batch
func (h *Handler) AssessBatch(c *gin.Context) {
	var req BatchAssessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid batch assessment request", logger.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sensitivity := h.sensitivity
	if req.Sensitivity != "" {
		sensitivity = domain.Sensitivity(req.Sensitivity)
		if !sensitivity.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown sensitivity: " + req.Sensitivity})
			return
		}
	}

	assessments := h.assessor.AssessBatch(c.Request.Context(), req.Contents, sensitivity)
	if h.telemetry != nil {
		h.telemetry.Metrics.BatchSize.Observe(float64(len(req.Contents)))
	}

	crises := 0
	for _, a := range assessments {
		if a != nil && a.IsCrisis {
			crises++
		}
	}

	c.JSON(http.StatusOK, BatchAssessResponse{
		Assessments: assessments,
		Total:       len(assessments),
		Crises:      crises,
	})
}

// ListActiveEvents handles GET /api/v1/events
func (h *Handler) ListActiveEvents(c *gin.Context) {
	events, err := h.protocol.ActiveEvents()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, EventsResponse{Events: events, Total: len(events)})
}

// GetEvent handles GET /api/v1/events/:id
//
// Active events are served from the in-memory registry; resolved events
// fall back to the durable store.
func (h *Handler) GetEvent(c *gin.Context) {
	id := c.Param("id")

	if event, ok := h.protocol.Event(id); ok {
		c.JSON(http.StatusOK, EventResponse{Event: event, Active: true})
		return
	}

	if h.history != nil {
		event, err := h.history.GetByID(c.Request.Context(), id)
		if err == nil {
			c.JSON(http.StatusOK, EventResponse{Event: event, Active: false})
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "crisis event not found: " + id})
}

// EscalateEvent handles POST /api/v1/events/:id/escalate
func (h *Handler) EscalateEvent(c *gin.Context) {
	id := c.Param("id")

	var req EscalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.protocol.Escalate(c.Request.Context(), id, req.HandledBy); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, protocol.ErrEventNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	event, _ := h.protocol.Event(id)
	c.JSON(http.StatusOK, EventResponse{Event: event, Active: true})
}

// ResolveEvent handles POST /api/v1/events/:id/resolve
func (h *Handler) ResolveEvent(c *gin.Context) {
	id := c.Param("id")

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.protocol.Resolve(c.Request.Context(), id, req.HandledBy, req.Notes); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, protocol.ErrEventNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"resolved": true, "event_id": id})
}

// ListUserHistory handles GET /api/v1/events/history/:user_id
func (h *Handler) ListUserHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event history not available"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit: " + raw})
			return
		}
		limit = parsed
	}

	events, err := h.history.ListByUser(c.Request.Context(), c.Param("user_id"), limit)
	if err != nil {
		h.logger.Error("failed to list crisis history", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list crisis history"})
		return
	}

	c.JSON(http.StatusOK, EventsResponse{Events: events, Total: len(events)})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "safeguard",
	})
}
