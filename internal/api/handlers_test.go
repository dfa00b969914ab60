//nolint:testpackage // Testing internal api requires same package access
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenmind/safeguard/internal/detector"
	"github.com/havenmind/safeguard/internal/domain"
	"github.com/havenmind/safeguard/internal/lexicon"
	"github.com/havenmind/safeguard/internal/logger"
	"github.com/havenmind/safeguard/internal/protocol"
)

type memoryRecorder struct {
	mu       sync.Mutex
	recorded []*domain.CrisisEvent
	err      error
}

func (m *memoryRecorder) Record(_ context.Context, event *domain.CrisisEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recorded = append(m.recorded, event)
	return nil
}

type memoryNotifier struct {
	mu   sync.Mutex
	sent []protocol.Notification
}

func (m *memoryNotifier) Send(_ context.Context, n protocol.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

type testEnv struct {
	router   *gin.Engine
	protocol *protocol.Protocol
	recorder *memoryRecorder
	notifier *memoryNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	nop := logger.NewNop()
	keywords := detector.NewKeywordClassifier(lexicon.Base())
	det := detector.NewDetector(keywords, nil, detector.Config{}, nop)
	assessor := detector.NewAssessor(det, 0, nop)

	rec := &memoryRecorder{}
	not := &memoryNotifier{}
	proto, err := protocol.New(protocol.Config{
		AlertConfigs: []domain.AlertConfiguration{
			{Level: domain.AlertLevelConcern},
			{Level: domain.AlertLevelModerate},
			{Level: domain.AlertLevelSevere},
			{Level: domain.AlertLevelEmergency},
		},
		Channels: map[domain.AlertLevel][]string{
			domain.AlertLevelConcern:   {"wellness-desk"},
			domain.AlertLevelModerate:  {"wellness-desk"},
			domain.AlertLevelSevere:    {"crisis-team"},
			domain.AlertLevelEmergency: {"crisis-team"},
		},
	}, rec, not, nop, nil)
	require.NoError(t, err)

	handler := NewHandler(assessor, proto, nil, nil, domain.SensitivityMedium, nop)
	router := gin.New()
	SetupRoutes(router, handler, nil)

	return &testEnv{router: router, protocol: proto, recorder: rec, notifier: not}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestAssess_CrisisTracksEvent(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/assess", AssessRequest{
		Content:   "I want to kill myself",
		UserID:    "user-1",
		SessionID: "session-1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp AssessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Assessment.IsCrisis)
	assert.True(t, resp.CrisisTracked)
	assert.Equal(t, domain.RiskLevelCritical, resp.Assessment.RiskLevel)

	events, err := env.protocol.ActiveEvents()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "user-1", events[0].UserID)
}

func TestAssess_NonCrisis(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/assess", AssessRequest{Content: "lovely weather today"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp AssessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Assessment.IsCrisis)
	assert.False(t, resp.CrisisTracked)

	events, err := env.protocol.ActiveEvents()
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAssess_InvalidRequests(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/assess", map[string]string{"not_content": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/assess", AssessRequest{Content: "text", Sensitivity: "paranoid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssess_SensitivityOverride(t *testing.T) {
	env := newTestEnv(t)

	// "no reason to live" scores 0.72: crisis at medium, not at low.
	w := env.do(t, http.MethodPost, "/api/v1/assess", AssessRequest{
		Content:     "there is no reason to live",
		Sensitivity: "low",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp AssessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Assessment.IsCrisis)
}

func TestAssess_RecorderFailureReturns500(t *testing.T) {
	env := newTestEnv(t)
	env.recorder.mu.Lock()
	env.recorder.err = errors.New("db down")
	env.recorder.mu.Unlock()

	w := env.do(t, http.MethodPost, "/api/v1/assess", AssessRequest{Content: "I want to kill myself"})
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp AssessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Assessment.IsCrisis, "assessment result still returned")
	assert.False(t, resp.CrisisTracked)
}

func TestAssessBatch(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/assess/batch", BatchAssessRequest{
		Contents: []string{"I want to kill myself", "nice weather", "i feel hopeless and want to end it all"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp BatchAssessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Assessments, 3)
	assert.True(t, resp.Assessments[0].IsCrisis)
	assert.False(t, resp.Assessments[1].IsCrisis)
	assert.Equal(t, 2, resp.Crises)
}

func TestAssessBatch_EmptyRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/assess/batch", BatchAssessRequest{Contents: []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	// Open a crisis through assessment.
	w := env.do(t, http.MethodPost, "/api/v1/assess", AssessRequest{
		Content: "I want to kill myself",
		UserID:  "user-1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// List active events.
	w = env.do(t, http.MethodGet, "/api/v1/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list EventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	id := list.Events[0].ID

	// Fetch it by id.
	w = env.do(t, http.MethodGet, "/api/v1/events/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var single EventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &single))
	assert.True(t, single.Active)
	assert.Equal(t, id, single.Event.ID)

	// Resolve it.
	w = env.do(t, http.MethodPost, "/api/v1/events/"+id+"/resolve", ResolveRequest{
		HandledBy: "dr-lane",
		Notes:     "user safe",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Zero(t, list.Total)
}

func TestEscalateOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.protocol.HandleCrisis(context.Background(), "user-1", "s", "text", 0.55, nil))
	events, err := env.protocol.ActiveEvents()
	require.NoError(t, err)
	id := events[0].ID

	w := env.do(t, http.MethodPost, "/api/v1/events/"+id+"/escalate", EscalateRequest{HandledBy: "dr-lane"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp EventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.AlertLevelSevere, resp.Event.AlertLevel)
	assert.True(t, resp.Event.Escalated)
}

func TestEventEndpoints_UnknownID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/events/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/events/no-such-id/escalate", EscalateRequest{HandledBy: "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/events/no-such-id/resolve", ResolveRequest{HandledBy: "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
