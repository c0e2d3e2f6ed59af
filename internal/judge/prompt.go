package judge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shahbajlive/caseval/internal/committee"
)

// verdictSchema is the response contract stated in every prompt. It matches
// what committee.ParseVerdict expects.
const verdictSchema = `Respond with JSON only, in this shape:
{
  "evaluation_summary": {"overall_score": <1.0-5.0>, "final_suggestion": "<text>"},
  "detailed_report": {
    "<dimension>": {"score": <1.0-5.0>, "reason": "<text>", "analysis": {}}
  }
}`

func systemPrompt(judge committee.JudgeProfile, stage committee.Stage) string {
	var b strings.Builder
	b.WriteString("You are an expert software test reviewer")
	if judge.DisplayName != "" {
		fmt.Fprintf(&b, " acting as %s", judge.DisplayName)
	}
	b.WriteString(".")
	if judge.WeightingHint != "" {
		fmt.Fprintf(&b, " Evaluation emphasis: %s.", judge.WeightingHint)
	}
	switch stage {
	case committee.StageDebate:
		b.WriteString(" You previously scored one evaluation dimension and now see your peers' reasoning. Reconsider and return your final opinion for that dimension only.")
	case committee.StageChairman:
		b.WriteString(" You chair the review panel. Weigh every judge's opinion and produce the final arbitrated scores.")
	default:
		b.WriteString(" Score the submitted test cases independently, without assuming any other reviewer exists.")
	}
	b.WriteString("\n\n")
	b.WriteString(verdictSchema)
	return b.String()
}

func userPrompt(payload committee.PromptPayload) string {
	var b strings.Builder
	switch payload.Stage {
	case committee.StageDebate:
		fmt.Fprintf(&b, "Dimension under debate: %s\n", payload.Dimension)
		fmt.Fprintf(&b, "Your previous score: %.1f\n", payload.OwnScore)
		if payload.OwnReason != "" {
			fmt.Fprintf(&b, "Your previous reason: %s\n", payload.OwnReason)
		}
		if len(payload.PeerReasons) > 0 {
			b.WriteString("\nPeer opinions:\n")
			for _, r := range payload.PeerReasons {
				fmt.Fprintf(&b, "- %s\n", r)
			}
		}
		fmt.Fprintf(&b, "\nReturn a detailed_report containing only %q, plus an optional confidence field.\n", payload.Dimension)

	case committee.StageChairman:
		b.WriteString("Post-debate panel opinions per dimension:\n")
		dims := make([]string, 0, len(payload.DimensionOpinions))
		for dim := range payload.DimensionOpinions {
			dims = append(dims, string(dim))
		}
		sort.Strings(dims)
		for _, dim := range dims {
			fmt.Fprintf(&b, "\n%s:\n", dim)
			for _, op := range payload.DimensionOpinions[committee.Dimension(dim)] {
				fmt.Fprintf(&b, "- score %.1f: %s\n", op.Score, op.Reason)
			}
		}
		if len(payload.JudgeOverallScores) > 0 {
			b.WriteString("\nJudge overall scores:\n")
			ids := make([]string, 0, len(payload.JudgeOverallScores))
			for id := range payload.JudgeOverallScores {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Fprintf(&b, "- %s: %.1f\n", id, payload.JudgeOverallScores[id])
			}
		}
		b.WriteString("\nProduce the final arbitrated score for every dimension above.\n")

	default:
		b.WriteString("## Test cases under evaluation\n")
		b.WriteString(payload.AICases)
		b.WriteString("\n")
		if payload.GoldenCases != "" {
			b.WriteString("\n## Reference (golden) test cases\n")
			b.WriteString(payload.GoldenCases)
			b.WriteString("\n")
		}
		if payload.DuplicateSummary != "" {
			b.WriteString("\n")
			b.WriteString(payload.DuplicateSummary)
		}
	}
	return b.String()
}
