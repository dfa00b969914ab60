package detector

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/havenmind/safeguard/internal/analyzer"
	"github.com/havenmind/safeguard/internal/domain"
	"github.com/havenmind/safeguard/internal/logger"
	"github.com/havenmind/safeguard/internal/telemetry"
)

// Keyword score at which the text is worth the cost of a model analysis
// round trip.
const analysisGate = 0.3

const defaultAnalyzerTimeout = 5 * time.Second

// RiskAnalyzer is the interface the detector needs from the external
// model-based analyzer.
type RiskAnalyzer interface {
	Analyze(ctx context.Context, text string) (*analyzer.Result, error)
}

// Config holds detector tuning.
type Config struct {
	// AnalyzerTimeout bounds each analyzer call.
	AnalyzerTimeout time.Duration
	// AnalyzerRPS/AnalyzerBurst rate-limit analyzer calls; zero disables
	// limiting. When the limiter rejects a call the keyword-only result is
	// used, never an error.
	AnalyzerRPS   int
	AnalyzerBurst int
}

// Detector layers the model-based analyzer on top of the keyword
// classifier. The merge policy is "more conservative wins": either signal
// alone can raise the score, neither can lower it, and any analyzer
// failure degrades to the keyword-only result.
type Detector struct {
	keywords  *KeywordClassifier
	analyzer  RiskAnalyzer
	limiter   *rate.Limiter
	timeout   time.Duration
	telemetry *telemetry.Provider
	logger    logger.Logger
}

// NewDetector creates a detector. az may be nil, in which case results are
// keyword-only.
func NewDetector(keywords *KeywordClassifier, az RiskAnalyzer, cfg Config, log logger.Logger) *Detector {
	timeout := cfg.AnalyzerTimeout
	if timeout <= 0 {
		timeout = defaultAnalyzerTimeout
	}

	var limiter *rate.Limiter
	if cfg.AnalyzerRPS > 0 {
		burst := cfg.AnalyzerBurst
		if burst <= 0 {
			burst = cfg.AnalyzerRPS
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.AnalyzerRPS), burst)
	}

	return &Detector{
		keywords: keywords,
		analyzer: az,
		limiter:  limiter,
		timeout:  timeout,
		logger:   log,
	}
}

// WithTelemetry attaches a telemetry provider for analyzer call metrics.
// Returns the detector for chaining; a nil provider is a no-op.
func (d *Detector) WithTelemetry(tp *telemetry.Provider) *Detector {
	d.telemetry = tp
	return d
}

// Classify runs the keyword classifier and, above the analysis gate, the
// external analyzer. It never returns an error: the keyword result is the
// floor that no downstream failure can degrade below.
func (d *Detector) Classify(ctx context.Context, text string) *domain.Detection {
	det := d.keywords.Classify(text)
	det.Category = deriveCategory(det)

	if d.analyzer == nil || det.Score < analysisGate {
		return det
	}
	if d.limiter != nil && !d.limiter.Allow() {
		d.logger.Debug("analyzer call skipped by rate limiter",
			logger.Float64("keyword_score", det.Score))
		return det
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	result, err := d.analyzer.Analyze(callCtx, text)
	if d.telemetry != nil {
		d.telemetry.Metrics.AnalyzerLatency.Observe(time.Since(start).Seconds())
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		d.telemetry.Metrics.AnalyzerRequests.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		d.logger.Warn("model analysis failed, using keyword-only result",
			logger.Float64("keyword_score", det.Score),
			logger.Error(err))
		return det
	}

	d.mergeAnalyzerResult(det, result)
	return det
}

// mergeAnalyzerResult folds a sanitized analyzer result into the keyword
// detection. Score merge is max-of-both; the analyzer category wins unless
// it signals its own failure sentinel.
func (d *Detector) mergeAnalyzerResult(det *domain.Detection, result *analyzer.Result) {
	score := clamp01(result.Score)
	det.Score = math.Max(det.Score, score)

	if result.Category != "" && result.Category != domain.CategoryAnalysisError {
		det.Category = result.Category
	}
	if result.Severity != "" {
		det.Severity = result.Severity
	}

	seen := make(map[string]struct{}, len(det.Indicators))
	for _, ind := range det.Indicators {
		seen[ind] = struct{}{}
	}
	for _, ind := range result.Indicators {
		if ind == "" {
			continue
		}
		if _, dup := seen[ind]; dup {
			continue
		}
		seen[ind] = struct{}{}
		det.Indicators = append(det.Indicators, ind)
	}

	det.Recommendations = append(det.Recommendations, result.Recommendations...)
}

// deriveCategory picks the category from matched keyword indicators,
// checked from most to least severe. Moderate-concern matches and
// no-match both derive to general_concern.
func deriveCategory(det *domain.Detection) string {
	for _, category := range domain.CategoriesBySeverity {
		if !det.HasCategory(category) {
			continue
		}
		if category == domain.CategoryModerateConcern {
			break
		}
		return category
	}
	return domain.CategoryGeneralConcern
}

// clamp01 bounds a score to [0,1]; NaN collapses to 0 so a malformed
// analyzer value can never raise an alarm on its own.
func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
