package domain

// Risk categories detected by the keyword classifier. The set is fixed;
// extension datasets may add phrases to these categories but not new ones
// with dedicated weights (unknown categories fall back to a default weight).
const (
	CategoryEmergency        = "emergency"
	CategorySuicide          = "suicide"
	CategorySelfHarm         = "self_harm"
	CategorySevereDepression = "severe_depression"
	CategoryModerateConcern  = "moderate_concern"

	// CategoryGeneralConcern is the fallback category when no keyword
	// category applies during category derivation.
	CategoryGeneralConcern = "general_concern"

	// CategoryAnalysisError marks a degraded assessment produced after an
	// unexpected classification failure.
	CategoryAnalysisError = "analysis_error"
)

// Per-category score weights. A category's score can never exceed its
// weight, so the weight is also the category's score ceiling.
const (
	WeightEmergency        = 1.0
	WeightSuicide          = 0.9
	WeightSelfHarm         = 0.8
	WeightSevereDepression = 0.6
	WeightModerateConcern  = 0.4
	WeightDefault          = 0.2
)

// CategoryWeight returns the scoring weight for a category, falling back
// to WeightDefault for categories outside the fixed set.
func CategoryWeight(category string) float64 {
	switch category {
	case CategoryEmergency:
		return WeightEmergency
	case CategorySuicide:
		return WeightSuicide
	case CategorySelfHarm:
		return WeightSelfHarm
	case CategorySevereDepression:
		return WeightSevereDepression
	case CategoryModerateConcern:
		return WeightModerateConcern
	default:
		return WeightDefault
	}
}

// CategoriesBySeverity lists the fixed keyword categories from most to
// least severe. Category derivation checks them in this order.
var CategoriesBySeverity = []string{
	CategoryEmergency,
	CategorySuicide,
	CategorySelfHarm,
	CategorySevereDepression,
	CategoryModerateConcern,
}

// RiskLevel buckets a confidence score independently of sensitivity.
type RiskLevel string

const (
	RiskLevelCritical RiskLevel = "critical"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelLow      RiskLevel = "low"
)

// Urgency expresses how fast a human should act on an assessment.
type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencyHigh      Urgency = "high"
	UrgencyMedium    Urgency = "medium"
	UrgencyLow       Urgency = "low"
)

// Sensitivity selects how conservative the crisis threshold is.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// Valid reports whether s is a known sensitivity profile.
func (s Sensitivity) Valid() bool {
	switch s {
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
		return true
	default:
		return false
	}
}

// Detection is the output of a classification pass: a bounded score plus
// the matched indicator phrases. Created fresh per call, owned by the
// caller, never persisted.
type Detection struct {
	Score      float64             `json:"score"`
	Indicators []string            `json:"indicators"`
	Categories map[string][]string `json:"categories,omitempty"`

	// Category/Severity/Recommendations come from the analyzer when it
	// responded, otherwise they are derived from keyword indicators.
	Category        string   `json:"category,omitempty"`
	Severity        string   `json:"severity,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// HasCategory reports whether any indicator matched in the given category.
func (d *Detection) HasCategory(category string) bool {
	return len(d.Categories[category]) > 0
}

// Assessment is the final crisis determination for one text.
type Assessment struct {
	IsCrisis         bool      `json:"is_crisis"`
	Confidence       float64   `json:"confidence"`
	RiskLevel        RiskLevel `json:"risk_level"`
	Urgency          Urgency   `json:"urgency"`
	Category         string    `json:"category"`
	DetectedTerms    []string  `json:"detected_terms"`
	SuggestedActions []string  `json:"suggested_actions"`
}
