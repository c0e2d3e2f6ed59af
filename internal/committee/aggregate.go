package committee

import (
	"context"
	"errors"
	"log/slog"
)

// aggregate produces the final result from the post-debate working verdicts.
// Chairman arbitration only applies on the debate path: with debate disabled
// or in iteration mode the committee goes straight to the standard formula.
// Any chairman failure also falls back to the standard formula, never to an
// error.
func (c *Committee) aggregate(ctx context.Context, working map[string]JudgeVerdict) *EvaluationResult {
	if c.panel.Chairman.ID != "" && c.debateEnabled() {
		result, err := c.chairmanAggregate(ctx, working)
		if err == nil {
			return result
		}
		slog.Warn("chairman arbitration failed, falling back to standard aggregation",
			"chairman", c.panel.Chairman.ID, "error", err)
	}
	return standardAggregate(working)
}

// chairmanAggregate runs the single arbitration call. The chairman sees every
// judge's post-debate opinion per dimension plus the overall-score map, and
// returns its own per-dimension scores; the overall score is then the fixed
// weighted formula over those scores.
func (c *Committee) chairmanAggregate(ctx context.Context, working map[string]JudgeVerdict) (*EvaluationResult, error) {
	judgeIDs := sortedJudgeIDs(working)

	opinions := make(map[Dimension][]DimensionScore)
	for _, dim := range allDimensions {
		for _, id := range judgeIDs {
			if ds, ok := working[id].Dimensions[dim]; ok {
				opinions[dim] = append(opinions[dim], ds)
			}
		}
	}
	overalls := make(map[string]float64, len(judgeIDs))
	for _, id := range judgeIDs {
		overalls[id] = working[id].OverallScore
	}

	payload := PromptPayload{
		Stage:              StageChairman,
		DimensionOpinions:  opinions,
		JudgeOverallScores: overalls,
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.JudgeTimeout)
	defer cancel()

	raw, err := c.client.Score(callCtx, c.panel.Chairman, payload)
	if err != nil {
		return nil, err
	}
	verdict, ok := ParseVerdict(raw)
	if !ok {
		return nil, errors.New("unparseable chairman verdict")
	}
	if len(verdict.Dimensions) == 0 {
		return nil, errors.New("chairman verdict has no dimensions")
	}

	result := &EvaluationResult{
		FinalSuggestion: verdict.Suggestion,
		Dimensions:      make(map[Dimension]DimensionScore, len(verdict.Dimensions)),
	}
	if result.FinalSuggestion == "" {
		result.FinalSuggestion = longestSuggestion(working)
	}

	for dim, ds := range verdict.Dimensions {
		ds.Score = roundScore(clampScore(ds.Score))
		if ds.Analysis == nil {
			ds.Analysis = firstAnalysis(working, dim)
		}
		result.Dimensions[dim] = ds
	}

	// Weighted overall over the chairman's scores. Weights renormalize over
	// the weighted dimensions the chairman actually scored, so a missing
	// dimension lowers coverage instead of dragging the score down.
	var weighted, totalWeight float64
	for _, dim := range allDimensions {
		w := WeightFor(dim)
		if w == 0 {
			continue
		}
		ds, ok := result.Dimensions[dim]
		if !ok {
			continue
		}
		weighted += ds.Score * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return nil, errors.New("chairman verdict covers no weighted dimensions")
	}
	result.OverallScore = roundScore(clampScore(weighted / totalWeight))

	slog.Info("chairman arbitration completed",
		"chairman", c.panel.Chairman.ID,
		"overall_score", result.OverallScore,
		"dimensions", len(result.Dimensions),
	)
	return result, nil
}

// standardAggregate averages the panel: per-dimension mean rounded to one
// decimal with the longest reason retained, overall score as the mean of the
// judges' overall scores, and the longest suggestion.
func standardAggregate(working map[string]JudgeVerdict) *EvaluationResult {
	judgeIDs := sortedJudgeIDs(working)

	result := &EvaluationResult{
		Dimensions:      make(map[Dimension]DimensionScore),
		FinalSuggestion: longestSuggestion(working),
	}

	for _, dim := range allDimensions {
		var sum float64
		var count int
		var reason string
		var analysis map[string]any
		for _, id := range judgeIDs {
			ds, ok := working[id].Dimensions[dim]
			if !ok {
				continue
			}
			sum += ds.Score
			count++
			if len(ds.Reason) > len(reason) {
				reason = ds.Reason
			}
			if analysis == nil && ds.Analysis != nil {
				analysis = ds.Analysis
			}
		}
		if count == 0 {
			continue
		}
		result.Dimensions[dim] = DimensionScore{
			Dimension: dim,
			Score:     roundScore(sum / float64(count)),
			Reason:    reason,
			Analysis:  analysis,
		}
	}

	var overall float64
	for _, id := range judgeIDs {
		overall += working[id].OverallScore
	}
	result.OverallScore = roundScore(overall / float64(len(judgeIDs)))
	return result
}

// longestSuggestion picks the most detailed suggestion across the panel,
// resolving length ties by judge ID order.
func longestSuggestion(working map[string]JudgeVerdict) string {
	best := ""
	for _, id := range sortedJudgeIDs(working) {
		if s := working[id].Suggestion; len(s) > len(best) {
			best = s
		}
	}
	return best
}

// firstAnalysis returns the first non-nil analysis for a dimension in judge
// ID order.
func firstAnalysis(working map[string]JudgeVerdict, dim Dimension) map[string]any {
	for _, id := range sortedJudgeIDs(working) {
		if ds, ok := working[id].Dimensions[dim]; ok && ds.Analysis != nil {
			return ds.Analysis
		}
	}
	return nil
}
