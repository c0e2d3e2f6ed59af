package judge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shahbajlive/caseval/internal/committee"
)

// ScriptedClient returns a fixed verdict for every call. It backs dry runs
// and lets the pipeline be exercised without any model endpoint.
type ScriptedClient struct {
	// OverallScore and DimensionScore fill every returned verdict.
	OverallScore   float64
	DimensionScore float64
	Suggestion     string
}

// NewScriptedClient returns a client scoring everything at the given level.
func NewScriptedClient(score float64) *ScriptedClient {
	return &ScriptedClient{
		OverallScore:   score,
		DimensionScore: score,
		Suggestion:     "scripted evaluation, no model was consulted",
	}
}

// Score implements committee.JudgeClient.
func (s *ScriptedClient) Score(_ context.Context, judge committee.JudgeProfile, payload committee.PromptPayload) (string, error) {
	report := make(map[string]map[string]any)
	dims := committee.AllDimensions()
	if payload.Stage == committee.StageDebate {
		dims = []committee.Dimension{payload.Dimension}
	}
	for _, dim := range dims {
		report[string(dim)] = map[string]any{
			"score":  s.DimensionScore,
			"reason": fmt.Sprintf("scripted opinion from %s", judge.ID),
		}
	}

	out, err := json.Marshal(map[string]any{
		"evaluation_summary": map[string]any{
			"overall_score":    s.OverallScore,
			"final_suggestion": s.Suggestion,
		},
		"detailed_report": report,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
