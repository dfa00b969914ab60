package detector

import (
	"context"
	"sync"

	"github.com/havenmind/safeguard/internal/domain"
	"github.com/havenmind/safeguard/internal/logger"
)

// Crisis cutoffs per sensitivity profile. Inclusive: a confidence exactly
// at the threshold is a crisis.
var crisisThresholds = map[domain.Sensitivity]float64{
	domain.SensitivityLow:    0.8,
	domain.SensitivityMedium: 0.6,
	domain.SensitivityHigh:   0.4,
}

// Lower concern cutoffs per sensitivity. Informational only: they drive
// logging, never the crisis flag.
var concernThresholds = map[domain.Sensitivity]float64{
	domain.SensitivityLow:    0.6,
	domain.SensitivityMedium: 0.4,
	domain.SensitivityHigh:   0.3,
}

// Confidence bands shared by risk level, urgency, and suggested actions.
const (
	bandCritical = 0.8
	bandHigh     = 0.6
	bandMedium   = 0.4

	urgencyImmediateAt = 0.9
	urgencyHighAt      = 0.7
	urgencyMediumAt    = 0.5
)

const defaultBatchConcurrency = 10

// Classifier is the interface the assessor needs from the detection layer.
type Classifier interface {
	Classify(ctx context.Context, text string) *domain.Detection
}

// Assessor turns classifier output into a final crisis determination using
// a caller-supplied sensitivity profile.
type Assessor struct {
	classifier  Classifier
	concurrency int
	logger      logger.Logger
}

// NewAssessor creates an assessor. concurrency bounds the batch worker
// pool; non-positive falls back to the default.
func NewAssessor(classifier Classifier, concurrency int, log logger.Logger) *Assessor {
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	return &Assessor{
		classifier:  classifier,
		concurrency: concurrency,
		logger:      log,
	}
}

// Assess classifies the text and applies the sensitivity profile. It never
// panics through to the caller: this sits on a user-facing request path
// where a crash is worse than an under-confident answer, so an unexpected
// failure is logged at error severity and converted into a degraded
// analysis_error result flagged for manual review.
func (a *Assessor) Assess(ctx context.Context, text string, sensitivity domain.Sensitivity) (out *domain.Assessment) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("crisis assessment failed unexpectedly",
				logger.Any("panic", r),
				logger.String("sensitivity", string(sensitivity)))
			out = degradedAssessment()
		}
	}()

	if !sensitivity.Valid() {
		a.logger.Warn("unknown sensitivity level, defaulting to medium",
			logger.String("sensitivity", string(sensitivity)))
		sensitivity = domain.SensitivityMedium
	}

	det := a.classifier.Classify(ctx, text)
	confidence := det.Score

	assessment := &domain.Assessment{
		IsCrisis:         confidence >= crisisThresholds[sensitivity],
		Confidence:       confidence,
		RiskLevel:        riskLevelFor(confidence),
		Urgency:          urgencyFor(det, confidence),
		Category:         det.Category,
		DetectedTerms:    det.Indicators,
		SuggestedActions: suggestedActionsFor(confidence),
	}
	if assessment.Category == "" {
		assessment.Category = domain.CategoryGeneralConcern
	}

	if !assessment.IsCrisis && confidence >= concernThresholds[sensitivity] {
		a.logger.Info("concern-level signal below crisis threshold",
			logger.Float64("confidence", confidence),
			logger.String("sensitivity", string(sensitivity)),
			logger.Strings("detected_terms", assessment.DetectedTerms))
	}

	return assessment
}

// AssessBatch assesses each text independently using a bounded worker
// pool. One item's failure cannot abort the batch: Assess already converts
// unexpected failures into degraded results, so every slot in the output
// is populated and index-aligned with the input.
func (a *Assessor) AssessBatch(ctx context.Context, texts []string, sensitivity domain.Sensitivity) []*domain.Assessment {
	results := make([]*domain.Assessment, len(texts))
	if len(texts) == 0 {
		return results
	}

	jobs := make(chan int, len(texts))
	var wg sync.WaitGroup

	workers := a.concurrency
	if workers > len(texts) {
		workers = len(texts)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					results[i] = degradedAssessment()
					continue
				default:
				}
				results[i] = a.Assess(ctx, texts[i], sensitivity)
			}
		}()
	}

	for i := range texts {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func riskLevelFor(confidence float64) domain.RiskLevel {
	switch {
	case confidence >= bandCritical:
		return domain.RiskLevelCritical
	case confidence >= bandHigh:
		return domain.RiskLevelHigh
	case confidence >= bandMedium:
		return domain.RiskLevelMedium
	default:
		return domain.RiskLevelLow
	}
}

func urgencyFor(det *domain.Detection, confidence float64) domain.Urgency {
	switch {
	case det.HasCategory(domain.CategoryEmergency) || confidence >= urgencyImmediateAt:
		return domain.UrgencyImmediate
	case confidence >= urgencyHighAt:
		return domain.UrgencyHigh
	case confidence >= urgencyMediumAt:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

func suggestedActionsFor(confidence float64) []string {
	switch {
	case confidence >= urgencyImmediateAt:
		return []string{
			"contact emergency services immediately",
			"do not leave the person unattended",
			"notify the on-call crisis responder",
		}
	case confidence >= urgencyHighAt:
		return []string{
			"arrange urgent clinical evaluation within 24 hours",
			"notify the assigned care coordinator",
		}
	case confidence >= urgencyMediumAt:
		return []string{
			"schedule a follow-up session this week",
			"share crisis hotline information",
		}
	default:
		return []string{
			"continue supportive conversation",
			"monitor for escalating language",
		}
	}
}

func degradedAssessment() *domain.Assessment {
	return &domain.Assessment{
		IsCrisis:         false,
		Confidence:       0,
		RiskLevel:        domain.RiskLevelLow,
		Urgency:          domain.UrgencyLow,
		Category:         domain.CategoryAnalysisError,
		DetectedTerms:    []string{},
		SuggestedActions: []string{"manual review recommended"},
	}
}
