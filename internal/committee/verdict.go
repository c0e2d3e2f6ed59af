package committee

import (
	"math"
)

// Stage identifies which phase of the protocol a Score call belongs to.
// Judges may use it to select wording; the committee only uses it for
// bookkeeping.
type Stage string

const (
	// StageIndependent is the first-round blind scoring call.
	StageIndependent Stage = "independent"
	// StageDebate is a re-deliberation call for one flagged dimension.
	StageDebate Stage = "debate"
	// StageChairman is the single arbitration call.
	StageChairman Stage = "chairman"
)

// JudgeProfile identifies one judge persona.
type JudgeProfile struct {
	// ID uniquely identifies the judge within a panel (e.g. a model name).
	ID string `json:"id" yaml:"id" toml:"id"`

	// DisplayName is the human-facing name.
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty" toml:"display_name"`

	// WeightingHint is an optional free-form hint the client may use when
	// building prompts (e.g. "strict", "coverage-focused").
	WeightingHint string `json:"weighting_hint,omitempty" yaml:"weighting_hint,omitempty" toml:"weighting_hint"`
}

// Panel is the set of judges plus the optional chairman used for
// arbitration. A zero-ID chairman disables arbitration; post-debate
// aggregation then falls back to the standard formula.
type Panel struct {
	Judges   []JudgeProfile `json:"judges" yaml:"judges" toml:"judges"`
	Chairman JudgeProfile   `json:"chairman,omitempty" yaml:"chairman,omitempty" toml:"chairman"`
}

// PromptPayload is the structured input handed to a JudgeClient. Prompt
// wording is the client's concern; the committee only supplies content.
type PromptPayload struct {
	Stage Stage `json:"stage"`

	// Independent-stage content.
	AICases          string `json:"ai_cases,omitempty"`
	GoldenCases      string `json:"golden_cases,omitempty"`
	DuplicateSummary string `json:"duplicate_summary,omitempty"`

	// Debate-stage content: the judge's own prior opinion on one dimension
	// plus the peers' reasons.
	Dimension   Dimension `json:"dimension,omitempty"`
	OwnScore    float64   `json:"own_score,omitempty"`
	OwnReason   string    `json:"own_reason,omitempty"`
	PeerReasons []string  `json:"peer_reasons,omitempty"`

	// Chairman-stage content: every judge's post-debate opinion per
	// dimension and the judge overall-score map.
	DimensionOpinions  map[Dimension][]DimensionScore `json:"dimension_opinions,omitempty"`
	JudgeOverallScores map[string]float64             `json:"judge_overall_scores,omitempty"`
}

// DimensionScore is one judge's opinion on one dimension.
type DimensionScore struct {
	Dimension Dimension `json:"dimension" yaml:"dimension"`

	// Score is in [1.0, 5.0]. Raw judge values retain full precision;
	// published scores are rounded to one decimal at aggregation.
	Score float64 `json:"score" yaml:"score"`

	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Confidence is an optional self-assessment attached to debate
	// revisions (0.0-1.0).
	Confidence float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`

	// Analysis is an optional structured payload, e.g. covered and missed
	// feature lists for coverage dimensions.
	Analysis map[string]any `json:"analysis,omitempty" yaml:"analysis,omitempty"`
}

// JudgeVerdict is one judge's complete opinion for one stage.
type JudgeVerdict struct {
	JudgeID      string                       `json:"judge_id" yaml:"judge_id"`
	OverallScore float64                      `json:"overall_score" yaml:"overall_score"`
	Suggestion   string                       `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	Dimensions   map[Dimension]DimensionScore `json:"dimensions" yaml:"dimensions"`
}

// valid reports whether the verdict can participate in aggregation: it needs
// an overall score and at least one recognized dimension.
func (v JudgeVerdict) valid() bool {
	return v.OverallScore > 0 && len(v.Dimensions) > 0
}

// clone deep-copies the verdict so debate revisions never touch the stage-1
// audit snapshot.
func (v JudgeVerdict) clone() JudgeVerdict {
	out := v
	out.Dimensions = make(map[Dimension]DimensionScore, len(v.Dimensions))
	for dim, ds := range v.Dimensions {
		out.Dimensions[dim] = ds
	}
	return out
}

// Framework records which aggregation path produced a result.
type Framework string

const (
	// FrameworkStandard means plain averaging; no dimension entered debate.
	FrameworkStandard Framework = "standard"
	// FrameworkDebated means at least one dimension was re-deliberated.
	FrameworkDebated Framework = "debated"
)

// EvaluationResult is the committee's final output. It is constructed fresh
// per Evaluate call and never mutated after return.
type EvaluationResult struct {
	OverallScore    float64 `json:"overall_score" yaml:"overall_score"`
	FinalSuggestion string  `json:"final_suggestion,omitempty" yaml:"final_suggestion,omitempty"`

	// Dimensions holds the post-aggregation score per dimension.
	Dimensions map[Dimension]DimensionScore `json:"dimensions" yaml:"dimensions"`

	// JudgeVerdicts is the stage-1 snapshot, retained for audit. Debate
	// revisions do not appear here.
	JudgeVerdicts map[string]JudgeVerdict `json:"judge_verdicts" yaml:"judge_verdicts"`

	// HighDisagreementDimensions lists dimensions whose post-debate
	// variance still met the high-disagreement threshold, in canonical
	// dimension order.
	HighDisagreementDimensions []Dimension `json:"high_disagreement_dimensions,omitempty" yaml:"high_disagreement_dimensions,omitempty"`

	Framework Framework `json:"framework" yaml:"framework"`

	// JudgeErrors records judges excluded from aggregation and why.
	JudgeErrors map[string]string `json:"judge_errors,omitempty" yaml:"judge_errors,omitempty"`
}

// clampScore forces a score into the valid [1.0, 5.0] domain.
func clampScore(v float64) float64 {
	if v < 1.0 {
		return 1.0
	}
	if v > 5.0 {
		return 5.0
	}
	return v
}

// roundScore rounds to one decimal, the precision of every published score.
func roundScore(v float64) float64 {
	return math.Round(v*10) / 10
}

// populationVariance computes variance dividing by N. Zero or one samples
// have no spread.
func populationVariance(scores []float64) float64 {
	if len(scores) <= 1 {
		return 0
	}
	mean := 0.0
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		d := s - mean
		variance += d * d
	}
	return variance / float64(len(scores))
}
