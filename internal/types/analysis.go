package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinResumeTextLength is the shortest resume text accepted for analysis.
const MinResumeTextLength = 100

// Priority ranks a suggestion.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// NormalizePriority maps free-form model output onto a Priority. Unknown
// values become medium.
func NormalizePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "critical", "urgent":
		return PriorityHigh
	case "low", "minor":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// Category groups a suggestion.
type Category string

const (
	CategoryKeywords   Category = "Keywords"
	CategoryFormatting Category = "Formatting"
	CategoryContent    Category = "Content"
	CategoryATS        Category = "ATS"
)

// NormalizeCategory maps model output onto a Category, defaulting to Content.
func NormalizeCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keywords", "keyword":
		return CategoryKeywords
	case "formatting", "format":
		return CategoryFormatting
	case "ats":
		return CategoryATS
	default:
		return CategoryContent
	}
}

// Suggestion is one actionable improvement.
type Suggestion struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Category    Category `json:"category"`
}

// AnalysisResult is the scored outcome of one analysis.
type AnalysisResult struct {
	OverallScore    int          `json:"overall_score"`
	ATSScore        int          `json:"ats_score"`
	KeywordScore    int          `json:"keyword_score"`
	FormattingScore int          `json:"formatting_score"`
	MatchedKeywords []string     `json:"matched_keywords"`
	MissingKeywords []string     `json:"missing_keywords"`
	Suggestions     []Suggestion `json:"suggestions"`
	ATSIssues       []string     `json:"ats_issues"`
	ImprovedText    string       `json:"improved_text"`
	Model           string       `json:"model,omitempty"`
	TokensUsed      int          `json:"tokens_used,omitempty"`
}

// AnalysisStatus is the lifecycle state of an analysis.
type AnalysisStatus string

const (
	StatusProcessing AnalysisStatus = "processing"
	StatusCompleted  AnalysisStatus = "completed"
	StatusFailed     AnalysisStatus = "failed"
)

// Analysis is a stored analysis as returned by the API.
type Analysis struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	OriginalFilename string          `json:"original_filename,omitempty"`
	ResumeText       string          `json:"resume_text"`
	JobDescription   string          `json:"job_description,omitempty"`
	Status           AnalysisStatus  `json:"status"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	Result           *AnalysisResult `json:"result,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}

// AnalyzeRequest starts an analysis.
type AnalyzeRequest struct {
	ResumeText     string `json:"resume_text" validate:"required"`
	JobDescription string `json:"job_description,omitempty" validate:"max=20000"`
	JobURL         string `json:"job_url,omitempty" validate:"omitempty,url"`
	Filename       string `json:"filename,omitempty" validate:"max=255"`
	Async          bool   `json:"async,omitempty"`
}

// Validate validates the AnalyzeRequest.
func (r *AnalyzeRequest) Validate() error {
	return validate.Struct(r)
}

// ScoreRequest asks for the deterministic score only.
type ScoreRequest struct {
	ResumeText     string `json:"resume_text" validate:"required"`
	JobDescription string `json:"job_description,omitempty"`
}

// Validate validates the ScoreRequest.
func (r *ScoreRequest) Validate() error {
	return validate.Struct(r)
}

// AnalysisSummary is a list row.
type AnalysisSummary struct {
	ID                uuid.UUID      `json:"id"`
	OriginalFilename  string         `json:"original_filename,omitempty"`
	Status            AnalysisStatus `json:"status"`
	OverallScore      *int           `json:"overall_score,omitempty"`
	HasJobDescription bool           `json:"has_job_description"`
	CreatedAt         time.Time      `json:"created_at"`
}

// UserStats aggregates a user's analyses for the dashboard.
type UserStats struct {
	TotalAnalyses     int      `json:"total_analyses"`
	CompletedAnalyses int      `json:"completed_analyses"`
	AverageScore      *float64 `json:"average_score,omitempty"`
	BestScore         *int     `json:"best_score,omitempty"`
}
