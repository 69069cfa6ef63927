package analyzer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jonathan/resume-optimizer/internal/scoring"
	"github.com/jonathan/resume-optimizer/internal/skills"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// merge combines the model output with the precomputed keywords and the ATS
// heuristics. Keyword lists always come from the precompute, and with a job
// description the keyword score is the precomputed match ratio.
func merge(out *modelOutput, keywords skills.KeywordComparison, ats scoring.ATSReport, resume string, hasJob bool) *types.AnalysisResult {
	keywordScore := score(out.KeywordScore)
	if hasJob {
		if s, ok := keywords.Score(); ok {
			keywordScore = s
		}
	}

	improved := strings.TrimSpace(out.ImprovedText)
	if improved == "" {
		improved = resume
	}

	return &types.AnalysisResult{
		OverallScore:    score(out.OverallScore),
		ATSScore:        score(out.ATSScore),
		KeywordScore:    keywordScore,
		FormattingScore: score(out.FormattingScore),
		MatchedKeywords: nonNil(keywords.Matched),
		MissingKeywords: nonNil(keywords.Missing),
		Suggestions:     suggestions(out.Suggestions),
		ATSIssues:       mergeIssues(out.ATSIssues, ats.Messages()),
		ImprovedText:    improved,
	}
}

// score rounds a model score and clamps it to [0, 100]. NaN becomes 0.
func score(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return scoring.Clamp(int(math.Round(v)))
}

func suggestions(in []modelSuggestion) []types.Suggestion {
	out := make([]types.Suggestion, 0, len(in))
	for _, s := range in {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			continue
		}
		out = append(out, types.Suggestion{
			ID:          suggestionID(s.ID, len(out)+1),
			Title:       title,
			Description: strings.TrimSpace(s.Description),
			Priority:    types.NormalizePriority(s.Priority),
			Category:    types.NormalizeCategory(s.Category),
		})
	}
	return out
}

func suggestionID(id any, n int) string {
	switch v := id.(type) {
	case string:
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprintf("suggestion-%d", n)
}

// mergeIssues appends the heuristic issues to the model's, dropping blanks
// and case-insensitive duplicates.
func mergeIssues(model, heuristic []string) []string {
	seen := make(map[string]bool, len(model)+len(heuristic))
	out := make([]string, 0, len(model)+len(heuristic))
	for _, list := range [][]string{model, heuristic} {
		for _, issue := range list {
			issue = strings.TrimSpace(issue)
			key := strings.ToLower(issue)
			if issue == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, issue)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
