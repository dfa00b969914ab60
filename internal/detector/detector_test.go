//nolint:testpackage // Testing internal detector requires same package access
package detector

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/havenmind/safeguard/internal/analyzer"
	"github.com/havenmind/safeguard/internal/domain"
	"github.com/havenmind/safeguard/internal/lexicon"
	"github.com/havenmind/safeguard/internal/logger"
)

type mockAnalyzer struct {
	result *analyzer.Result
	err    error
	called bool
}

func (m *mockAnalyzer) Analyze(_ context.Context, _ string) (*analyzer.Result, error) {
	m.called = true
	return m.result, m.err
}

func newTestDetector(az RiskAnalyzer, cfg Config) *Detector {
	keywords := NewKeywordClassifier(lexicon.Base())
	return NewDetector(keywords, az, cfg, logger.NewNop())
}

func TestDetector_KeywordOnlyWithoutAnalyzer(t *testing.T) {
	d := newTestDetector(nil, Config{})

	det := d.Classify(context.Background(), "everything feels hopeless")
	assert.InDelta(t, domain.WeightSevereDepression*matchDiminishFactor, det.Score, 1e-9)
	assert.Equal(t, domain.CategorySevereDepression, det.Category)
}

func TestDetector_BelowGateSkipsAnalyzer(t *testing.T) {
	az := &mockAnalyzer{result: &analyzer.Result{Score: 0.99}}
	d := newTestDetector(az, Config{})

	det := d.Classify(context.Background(), "nice weather today")
	assert.Zero(t, det.Score)
	assert.False(t, az.called, "analyzer must not run below the gate")
}

func TestDetector_MergeTakesMaxScore(t *testing.T) {
	tests := []struct {
		name          string
		analyzerScore float64
		expected      float64
	}{
		{"analyzer raises", 0.95, 0.95},
		{"analyzer cannot lower", 0.1, domain.WeightSevereDepression * matchDiminishFactor},
		{"out of range clamps high", 5.0, 1.0},
		{"negative clamps to keyword score", -3.0, domain.WeightSevereDepression * matchDiminishFactor},
		{"NaN collapses to keyword score", math.NaN(), domain.WeightSevereDepression * matchDiminishFactor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			az := &mockAnalyzer{result: &analyzer.Result{Score: tt.analyzerScore}}
			d := newTestDetector(az, Config{})

			det := d.Classify(context.Background(), "everything feels hopeless")
			assert.True(t, az.called)
			assert.InDelta(t, tt.expected, det.Score, 1e-9)
		})
	}
}

func TestDetector_AnalyzerFailureFallsBack(t *testing.T) {
	az := &mockAnalyzer{err: errors.New("connection refused")}
	d := newTestDetector(az, Config{})

	det := d.Classify(context.Background(), "everything feels hopeless")
	assert.True(t, az.called)
	assert.InDelta(t, domain.WeightSevereDepression*matchDiminishFactor, det.Score, 1e-9)
	assert.Equal(t, domain.CategorySevereDepression, det.Category)
}

func TestDetector_AnalyzerCategoryWins(t *testing.T) {
	az := &mockAnalyzer{result: &analyzer.Result{
		Score:    0.7,
		Category: domain.CategorySuicide,
		Severity: "high",
	}}
	d := newTestDetector(az, Config{})

	det := d.Classify(context.Background(), "everything feels hopeless")
	assert.Equal(t, domain.CategorySuicide, det.Category)
	assert.Equal(t, "high", det.Severity)
}

func TestDetector_AnalysisErrorCategoryIgnored(t *testing.T) {
	az := &mockAnalyzer{result: &analyzer.Result{
		Score:    0.7,
		Category: domain.CategoryAnalysisError,
	}}
	d := newTestDetector(az, Config{})

	det := d.Classify(context.Background(), "everything feels hopeless")
	// The analyzer's failure sentinel must not displace the keyword
	// derived category.
	assert.Equal(t, domain.CategorySevereDepression, det.Category)
}

func TestDetector_MergeDedupesIndicators(t *testing.T) {
	az := &mockAnalyzer{result: &analyzer.Result{
		Score:      0.7,
		Indicators: []string{"hopeless", "isolation language", ""},
	}}
	d := newTestDetector(az, Config{})

	det := d.Classify(context.Background(), "everything feels hopeless")

	count := 0
	for _, ind := range det.Indicators {
		if ind == "hopeless" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Contains(t, det.Indicators, "isolation language")
	assert.NotContains(t, det.Indicators, "")
}

func TestDetector_RateLimiterSkipsAnalyzer(t *testing.T) {
	az := &mockAnalyzer{result: &analyzer.Result{Score: 0.99}}
	d := newTestDetector(az, Config{AnalyzerRPS: 1, AnalyzerBurst: 1})

	// First call consumes the single token; the second must degrade to
	// keyword-only without error.
	first := d.Classify(context.Background(), "everything feels hopeless")
	assert.InDelta(t, 0.99, first.Score, 1e-9)

	az.called = false
	second := d.Classify(context.Background(), "everything feels hopeless")
	assert.False(t, az.called)
	assert.InDelta(t, domain.WeightSevereDepression*matchDiminishFactor, second.Score, 1e-9)
}

func TestDeriveCategory(t *testing.T) {
	tests := []struct {
		name     string
		det      *domain.Detection
		expected string
	}{
		{
			name: "most severe category wins",
			det: &domain.Detection{Categories: map[string][]string{
				domain.CategoryModerateConcern: {"depressed"},
				domain.CategorySuicide:         {"want to die"},
			}},
			expected: domain.CategorySuicide,
		},
		{
			name: "moderate only derives to general concern",
			det: &domain.Detection{Categories: map[string][]string{
				domain.CategoryModerateConcern: {"depressed"},
			}},
			expected: domain.CategoryGeneralConcern,
		},
		{
			name:     "no matches derives to general concern",
			det:      &domain.Detection{Categories: map[string][]string{}},
			expected: domain.CategoryGeneralConcern,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, deriveCategory(tt.det))
		})
	}
}
