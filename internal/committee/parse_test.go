package committee

import (
	"testing"
)

const cleanVerdict = `{
  "evaluation_summary": {"overall_score": 4.2, "final_suggestion": "add boundary cases"},
  "detailed_report": {
    "functional_coverage": {"score": 4.0, "reason": "covers main flows"},
    "defect_detection": {"score": "3.5", "reason": "few negative paths"}
  }
}`

func TestParseVerdict_CleanJSON(t *testing.T) {
	v, ok := ParseVerdict(cleanVerdict)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if v.OverallScore != 4.2 {
		t.Errorf("expected overall 4.2, got %v", v.OverallScore)
	}
	if v.Suggestion != "add boundary cases" {
		t.Errorf("unexpected suggestion %q", v.Suggestion)
	}
	if got := v.Dimensions[DimFunctionalCoverage].Score; got != 4.0 {
		t.Errorf("expected functional_coverage 4.0, got %v", got)
	}
	// String-typed scores decode too.
	if got := v.Dimensions[DimDefectDetection].Score; got != 3.5 {
		t.Errorf("expected defect_detection 3.5, got %v", got)
	}
}

func TestParseVerdict_CodeFenced(t *testing.T) {
	fenced := "Here is my evaluation:\n```json\n" + cleanVerdict + "\n```\nHope that helps."
	v, ok := ParseVerdict(fenced)
	if !ok {
		t.Fatal("expected fenced parse to succeed")
	}
	if v.OverallScore != 4.2 {
		t.Errorf("expected overall 4.2, got %v", v.OverallScore)
	}
}

func TestParseVerdict_SingleQuotes(t *testing.T) {
	quoted := `{'evaluation_summary': {'overall_score': 3.0, 'final_suggestion': 'ok'}, 'detailed_report': {'test_coverage': {'score': 3.0, 'reason': 'fine'}}}`
	v, ok := ParseVerdict(quoted)
	if !ok {
		t.Fatal("expected single-quote repair to succeed")
	}
	if v.OverallScore != 3.0 {
		t.Errorf("expected overall 3.0, got %v", v.OverallScore)
	}
}

func TestParseVerdict_EmbeddedInProse(t *testing.T) {
	prose := "Sure! After careful review " + cleanVerdict + " as requested."
	v, ok := ParseVerdict(prose)
	if !ok {
		t.Fatal("expected bracket extraction to succeed")
	}
	if v.OverallScore != 4.2 {
		t.Errorf("expected overall 4.2, got %v", v.OverallScore)
	}
}

func TestParseVerdict_UnknownDimensionDropped(t *testing.T) {
	raw := `{
	  "evaluation_summary": {"overall_score": 4.0},
	  "detailed_report": {
	    "functional_coverage": {"score": 4.0},
	    "vibes": {"score": 5.0}
	  }
	}`
	v, ok := ParseVerdict(raw)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if len(v.Dimensions) != 1 {
		t.Errorf("expected unknown dimension dropped, got %v", v.Dimensions)
	}
}

func TestParseVerdict_Garbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "not json at all", "{}", `{"detailed_report": {}}`} {
		if _, ok := ParseVerdict(raw); ok {
			t.Errorf("expected failure for %q", raw)
		}
	}
}
