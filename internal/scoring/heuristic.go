package scoring

import (
	"strings"

	"github.com/jonathan/resume-optimizer/internal/skills"
	"github.com/jonathan/resume-optimizer/internal/textproc"
)

// maxMissingWords caps Snapshot.MissingWords.
const maxMissingWords = 20

// Snapshot is a scoring pass that needs no language model.
type Snapshot struct {
	OverallScore     int                      `json:"overall_score"`
	ATS              ATSReport                `json:"ats"`
	KeywordScore     int                      `json:"keyword_score"`
	Keywords         skills.KeywordComparison `json:"keywords"`
	WordMatchPercent int                      `json:"word_match_percent,omitempty"`
	MissingWords     []string                 `json:"missing_words,omitempty"`
	Description      string                   `json:"description"`
	Band             string                   `json:"band"`
}

// Heuristic scores a resume, optionally against a job description, using only
// the deterministic rules. Without a job description the keyword score falls
// back to the default content score, since there is nothing to match against.
func Heuristic(resumeText, jobDescription string) Snapshot {
	ats := CalculateATSScore(resumeText)
	keywords := skills.Precompute(resumeText, jobDescription)

	keywordScore := DefaultContentScore
	hasJob := strings.TrimSpace(jobDescription) != ""
	if hasJob {
		if score, ok := keywords.Score(); ok {
			keywordScore = score
		} else {
			keywordScore = textproc.CalculateKeywordMatch(resumeText, jobDescription)
		}
	}

	overall := CalculateOverallScore(keywordScore, ats.Score, DefaultContentScore)

	snap := Snapshot{
		OverallScore: overall,
		ATS:          ats,
		KeywordScore: keywordScore,
		Keywords:     keywords,
		Description:  ScoreDescription(overall),
		Band:         ScoreBand(overall),
	}
	if hasJob {
		snap.WordMatchPercent = textproc.CalculateKeywordMatch(resumeText, jobDescription)
		missing := textproc.FindMissingKeywords(resumeText, jobDescription)
		snap.MissingWords = missing[:min(len(missing), maxMissingWords)]
	}
	return snap
}
