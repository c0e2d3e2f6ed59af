package committee

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// wireVerdict is the JSON shape judges are asked to emit:
//
//	{
//	  "evaluation_summary": {"overall_score": "4.2", "final_suggestion": "..."},
//	  "detailed_report": {"functional_coverage": {"score": 4.0, "reason": "..."}, ...}
//	}
//
// Scores arrive as numbers or numeric strings depending on the model.
type wireVerdict struct {
	Summary struct {
		OverallScore    flexFloat `json:"overall_score"`
		FinalSuggestion string    `json:"final_suggestion"`
	} `json:"evaluation_summary"`
	Report map[string]wireDimension `json:"detailed_report"`
}

type wireDimension struct {
	Score      flexFloat      `json:"score"`
	Reason     string         `json:"reason"`
	Confidence flexFloat      `json:"confidence"`
	Analysis   map[string]any `json:"analysis"`
}

// flexFloat decodes a float from either a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(n)
	return nil
}

var bracketRe = regexp.MustCompile(`(?s)\{.*\}`)

// extractionStrategies is the ordered repair chain applied to judge output.
// Each strategy derives a candidate JSON text; the first candidate that
// parses into a usable verdict wins. Expected-malformed input is a normal
// condition here, so nothing in this path returns an error.
var extractionStrategies = []func(string) string{
	func(s string) string { return s },
	stripCodeFences,
	normalizeQuotes,
	extractBracketed,
}

// ParseVerdict converts raw judge output text into a JudgeVerdict. The
// second return value is false when no extraction strategy yields a verdict
// with an overall score or at least one recognized dimension.
func ParseVerdict(text string) (JudgeVerdict, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return JudgeVerdict{}, false
	}

	for _, strategy := range extractionStrategies {
		candidate := strategy(trimmed)
		if candidate == "" {
			continue
		}
		var wire wireVerdict
		if err := json.Unmarshal([]byte(candidate), &wire); err != nil {
			continue
		}
		verdict, ok := fromWire(wire)
		if ok {
			return verdict, true
		}
	}
	return JudgeVerdict{}, false
}

func fromWire(wire wireVerdict) (JudgeVerdict, bool) {
	verdict := JudgeVerdict{
		OverallScore: float64(wire.Summary.OverallScore),
		Suggestion:   wire.Summary.FinalSuggestion,
		Dimensions:   make(map[Dimension]DimensionScore, len(wire.Report)),
	}

	for key, wd := range wire.Report {
		dim := Dimension(strings.TrimSpace(strings.ToLower(key)))
		if !dim.IsValid() {
			// A typo here would otherwise vanish from aggregation, so make
			// the rejection visible.
			slog.Warn("verdict contains unknown dimension, dropping", "dimension", key)
			continue
		}
		if wd.Score == 0 {
			continue
		}
		verdict.Dimensions[dim] = DimensionScore{
			Dimension:  dim,
			Score:      float64(wd.Score),
			Reason:     wd.Reason,
			Confidence: float64(wd.Confidence),
			Analysis:   wd.Analysis,
		}
	}

	if verdict.OverallScore == 0 && len(verdict.Dimensions) == 0 {
		return JudgeVerdict{}, false
	}
	return verdict, true
}

// stripCodeFences unwraps ```json ... ``` (or bare ```) blocks.
func stripCodeFences(s string) string {
	if idx := strings.Index(s, "```json"); idx >= 0 {
		rest := s[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	return ""
}

// normalizeQuotes swaps single quotes for double quotes, which repairs the
// pseudo-JSON some models emit.
func normalizeQuotes(s string) string {
	if !strings.Contains(s, "'") {
		return ""
	}
	return strings.ReplaceAll(s, "'", `"`)
}

// extractBracketed pulls the outermost {...} span out of surrounding prose.
func extractBracketed(s string) string {
	return bracketRe.FindString(s)
}
