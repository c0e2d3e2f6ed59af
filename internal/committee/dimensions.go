// Package committee implements the multi-judge consensus protocol: bounded
// concurrent scoring by independent judges, variance-triggered debate on
// low-consensus dimensions, and a chairman arbitration step with a fixed
// weighting formula. Judges are external capabilities behind the JudgeClient
// contract; the committee never sees prompt wording.
package committee

// Dimension is one of the nine fixed evaluation axes. The set is closed so
// that misspelled dimension keys surface at validation time instead of
// silently dropping out of aggregation.
type Dimension string

const (
	DimFormatCompliance      Dimension = "format_compliance"
	DimContentAccuracy       Dimension = "content_accuracy"
	DimTestCoverage          Dimension = "test_coverage"
	DimFunctionalCoverage    Dimension = "functional_coverage"
	DimDefectDetection       Dimension = "defect_detection"
	DimEngineeringEfficiency Dimension = "engineering_efficiency"
	DimSemanticQuality       Dimension = "semantic_quality"
	DimSecurityEconomy       Dimension = "security_economy"
	DimDuplicateAnalysis     Dimension = "duplicate_analysis"
)

// allDimensions is the canonical iteration order for every per-dimension
// computation, so output never depends on map ordering.
var allDimensions = []Dimension{
	DimFormatCompliance,
	DimContentAccuracy,
	DimTestCoverage,
	DimFunctionalCoverage,
	DimDefectDetection,
	DimEngineeringEfficiency,
	DimSemanticQuality,
	DimSecurityEconomy,
	DimDuplicateAnalysis,
}

// AllDimensions returns the nine dimensions in canonical order.
func AllDimensions() []Dimension {
	out := make([]Dimension, len(allDimensions))
	copy(out, allDimensions)
	return out
}

// String returns the dimension tag.
func (d Dimension) String() string {
	return string(d)
}

// IsValid reports whether this is one of the nine known dimensions.
func (d Dimension) IsValid() bool {
	for _, known := range allDimensions {
		if d == known {
			return true
		}
	}
	return false
}

// overallWeights is the fixed weighting formula for the arbitrated overall
// score. The remaining dimensions are informative only.
var overallWeights = map[Dimension]float64{
	DimFunctionalCoverage:    0.30,
	DimDefectDetection:       0.25,
	DimEngineeringEfficiency: 0.20,
	DimSemanticQuality:       0.15,
	DimSecurityEconomy:       0.10,
}

// WeightFor returns the overall-score weight of a dimension, 0 for
// informative dimensions.
func WeightFor(d Dimension) float64 {
	return overallWeights[d]
}
