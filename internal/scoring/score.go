// Package scoring implements the deterministic resume scores: the weighted
// overall score, the ATS compatibility heuristics and their descriptions.
package scoring

import "math"

// Weights applied by CalculateOverallScore.
const (
	KeywordWeight = 0.40
	ATSWeight     = 0.35
	ContentWeight = 0.25

	// DefaultContentScore is used when no content assessment is available.
	DefaultContentScore = 75
)

// CalculateOverallScore combines the keyword, ATS and content scores with
// fixed weights and clamps the rounded result to [0, 100].
func CalculateOverallScore(keywordScore, atsScore, contentScore int) int {
	weighted := float64(keywordScore)*KeywordWeight +
		float64(atsScore)*ATSWeight +
		float64(contentScore)*ContentWeight
	return Clamp(int(math.Round(weighted)))
}

// Clamp limits a score to [0, 100].
func Clamp(score int) int {
	return max(0, min(100, score))
}

// ScoreDescription returns the human label for a score.
func ScoreDescription(score int) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 80:
		return "Very Good"
	case score >= 70:
		return "Good"
	case score >= 60:
		return "Fair"
	case score >= 40:
		return "Needs Improvement"
	default:
		return "Poor"
	}
}

// Band names used by dashboards to color a score.
const (
	BandHigh     = "high"
	BandMedium   = "medium"
	BandLow      = "low"
	BandCritical = "critical"
)

// ScoreBand buckets a score into a coarse band.
func ScoreBand(score int) string {
	switch {
	case score >= 80:
		return BandHigh
	case score >= 60:
		return BandMedium
	case score >= 40:
		return BandLow
	default:
		return BandCritical
	}
}
