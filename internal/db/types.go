package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// User is an account row.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialized
	PasswordSet  bool      `json:"password_set"`
	Credits      int       `json:"credits"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Credit transaction reasons.
const (
	ReasonSignupBonus = "signup_bonus"
	ReasonAnalysis    = "analysis"
	ReasonRefund      = "refund"
)

// CreditTransaction records one change to a user's balance. Amount is
// negative for deductions.
type CreditTransaction struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Amount       int        `json:"amount"`
	BalanceAfter int        `json:"balance_after"`
	Reason       string     `json:"reason"`
	AnalysisID   *uuid.UUID `json:"analysis_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewAnalysis is the input to CreateAnalysis. A zero ID lets the database
// assign one.
type NewAnalysis struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	OriginalFilename string
	ResumeText       string
	JobDescription   string
	StorageKey       string
}

// Analysis is an analysis row. Score columns are nil until the analysis
// completes.
type Analysis struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	OriginalFilename string
	ResumeText       string
	JobDescription   string
	StorageKey       string
	Status           types.AnalysisStatus
	ErrorMessage     string
	OverallScore     *int
	ATSScore         *int
	KeywordScore     *int
	FormattingScore  *int
	MatchedKeywords  []string
	MissingKeywords  []string
	Suggestions      []byte // JSONB
	ATSIssues        []string
	ImprovedText     string
	Model            string
	TokensUsed       int
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

// ToType converts the row to its API shape. The result is only attached for
// completed analyses.
func (a *Analysis) ToType() (*types.Analysis, error) {
	out := &types.Analysis{
		ID:               a.ID,
		UserID:           a.UserID,
		OriginalFilename: a.OriginalFilename,
		ResumeText:       a.ResumeText,
		JobDescription:   a.JobDescription,
		Status:           a.Status,
		ErrorMessage:     a.ErrorMessage,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
		CompletedAt:      a.CompletedAt,
	}
	if a.Status != types.StatusCompleted {
		return out, nil
	}

	suggestions := []types.Suggestion{}
	if len(a.Suggestions) > 0 {
		if err := json.Unmarshal(a.Suggestions, &suggestions); err != nil {
			return nil, fmt.Errorf("failed to decode suggestions for analysis %s: %w", a.ID, err)
		}
	}

	out.Result = &types.AnalysisResult{
		OverallScore:    deref(a.OverallScore),
		ATSScore:        deref(a.ATSScore),
		KeywordScore:    deref(a.KeywordScore),
		FormattingScore: deref(a.FormattingScore),
		MatchedKeywords: orEmpty(a.MatchedKeywords),
		MissingKeywords: orEmpty(a.MissingKeywords),
		Suggestions:     suggestions,
		ATSIssues:       orEmpty(a.ATSIssues),
		ImprovedText:    a.ImprovedText,
		Model:           a.Model,
		TokensUsed:      a.TokensUsed,
	}
	return out, nil
}

// AnalysisSummary is a list row.
type AnalysisSummary struct {
	ID                uuid.UUID
	OriginalFilename  string
	Status            types.AnalysisStatus
	OverallScore      *int
	HasJobDescription bool
	CreatedAt         time.Time
}

// ToType converts the row to its API shape.
func (s AnalysisSummary) ToType() types.AnalysisSummary {
	return types.AnalysisSummary{
		ID:                s.ID,
		OriginalFilename:  s.OriginalFilename,
		Status:            s.Status,
		OverallScore:      s.OverallScore,
		HasJobDescription: s.HasJobDescription,
		CreatedAt:         s.CreatedAt,
	}
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
