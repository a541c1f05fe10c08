// Package versions defines the append-only ContentVersion record and its
// persistence. Versions are keyed by (term, column, model, phase); the
// "selected" marker lives in a separate pointer table so multi-model
// comparison never mutates generated artifacts.
package versions

import (
	"time"
)

// Phase marks how far through the triplet pipeline an artifact has moved.
type Phase string

const (
	PhaseGenerated Phase = "generated"
	PhaseEvaluated Phase = "evaluated"
	PhaseImproved  Phase = "improved"
)

// DimensionScore is one evaluation dimension's score and feedback.
type DimensionScore struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Evaluation is the structured output of the quality evaluator.
// Inconclusive marks artifacts whose evaluation output could not be
// parsed; they are flagged for manual review, never auto-scored.
type Evaluation struct {
	Composite    float64                   `json:"composite"`
	Dimensions   map[string]DimensionScore `json:"dimensions"`
	Inconclusive bool                      `json:"inconclusive,omitempty"`
}

// ContentVersion is one immutable generated artifact.
type ContentVersion struct {
	ID           string      `json:"id"`
	TermID       string      `json:"term_id"`
	ColumnID     string      `json:"column_id"`
	ModelID      string      `json:"model_id"`
	Phase        Phase       `json:"phase"`
	Content      string      `json:"content"`
	QualityScore *float64    `json:"quality_score,omitempty"`
	Feedback     *Evaluation `json:"feedback,omitempty"`
	CostUSD      float64     `json:"cost_usd"`
	TokensIn     int         `json:"tokens_in"`
	TokensOut    int         `json:"tokens_out"`
	DerivedFrom  string      `json:"derived_from,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Accepted reports whether the version passed the quality gate.
func (v *ContentVersion) Accepted(threshold float64) bool {
	if v.QualityScore == nil {
		return false
	}
	if v.Feedback != nil && v.Feedback.Inconclusive {
		return false
	}
	return *v.QualityScore >= threshold
}

// Rating is a human star rating recorded against a version.
type Rating struct {
	VersionID string    `json:"version_id"`
	Stars     int       `json:"stars"`
	RatedAt   time.Time `json:"rated_at"`
}
