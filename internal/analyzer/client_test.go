//nolint:testpackage // Testing internal analyzer requires same package access
package analyzer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Analyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req analyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "i feel hopeless", req.Text)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Result{
			Score:           0.82,
			Category:        "severe_depression",
			Severity:        "high",
			Indicators:      []string{"hopelessness language"},
			Recommendations: []string{"urgent clinical evaluation"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	result, err := c.Analyze(context.Background(), "i feel hopeless")
	require.NoError(t, err)
	assert.InDelta(t, 0.82, result.Score, 1e-9)
	assert.Equal(t, "severe_depression", result.Category)
	assert.Equal(t, []string{"hopelessness language"}, result.Indicators)
}

func TestClient_AnalyzeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	_, err := c.Analyze(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_AnalyzeUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 100*time.Millisecond)

	_, err := c.Analyze(context.Background(), "text")
	assert.Error(t, err)
}

func TestClient_AnalyzeContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Analyze(ctx, "text")
	assert.Error(t, err)
}

func TestClient_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(healthResponse{ModelVersion: "risk-model-2.3"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	version, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "risk-model-2.3", version)
}

func TestClient_HealthUnavailable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 100*time.Millisecond)

	_, err := c.Health(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}
