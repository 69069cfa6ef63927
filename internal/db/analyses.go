package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-optimizer/internal/types"
)

const analysisColumns = `id, user_id, original_filename, resume_text, job_description, storage_key,
	status, error_message, overall_score, ats_score, keyword_score, formatting_score,
	matched_keywords, missing_keywords, suggestions, ats_issues, improved_text, model,
	tokens_used, created_at, updated_at, completed_at`

func scanAnalysis(row pgx.Row) (*Analysis, error) {
	var a Analysis
	var status string
	err := row.Scan(&a.ID, &a.UserID, &a.OriginalFilename, &a.ResumeText, &a.JobDescription, &a.StorageKey,
		&status, &a.ErrorMessage, &a.OverallScore, &a.ATSScore, &a.KeywordScore, &a.FormattingScore,
		&a.MatchedKeywords, &a.MissingKeywords, &a.Suggestions, &a.ATSIssues, &a.ImprovedText, &a.Model,
		&a.TokensUsed, &a.CreatedAt, &a.UpdatedAt, &a.CompletedAt)
	if err != nil {
		return nil, err
	}
	a.Status = types.AnalysisStatus(status)
	return &a, nil
}

// CreateAnalysis inserts an analysis in the processing state.
func (db *DB) CreateAnalysis(ctx context.Context, in NewAnalysis) (*Analysis, error) {
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	a, err := scanAnalysis(db.pool.QueryRow(ctx,
		`INSERT INTO analyses (id, user_id, original_filename, resume_text, job_description, storage_key, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+analysisColumns,
		id, in.UserID, in.OriginalFilename, in.ResumeText, in.JobDescription, in.StorageKey,
		string(types.StatusProcessing)))
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis: %w", err)
	}
	return a, nil
}

// CompleteAnalysis stores a result on an analysis that is still processing.
// It returns ErrNotFound when no processing analysis has that id.
func (db *DB) CompleteAnalysis(ctx context.Context, id uuid.UUID, result *types.AnalysisResult) error {
	suggestions, err := json.Marshal(result.Suggestions)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestions: %w", err)
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE analyses SET
			status = $2, error_message = '',
			overall_score = $3, ats_score = $4, keyword_score = $5, formatting_score = $6,
			matched_keywords = $7, missing_keywords = $8, suggestions = $9, ats_issues = $10,
			improved_text = $11, model = $12, tokens_used = $13,
			updated_at = NOW(), completed_at = NOW()
		 WHERE id = $1 AND status = $14`,
		id, string(types.StatusCompleted),
		result.OverallScore, result.ATSScore, result.KeywordScore, result.FormattingScore,
		orEmpty(result.MatchedKeywords), orEmpty(result.MissingKeywords), suggestions, orEmpty(result.ATSIssues),
		result.ImprovedText, result.Model, result.TokensUsed,
		string(types.StatusProcessing))
	if err != nil {
		return fmt.Errorf("failed to complete analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FailAnalysis marks a processing analysis as failed with message. It
// returns ErrNotFound when no processing analysis has that id.
func (db *DB) FailAnalysis(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE analyses SET status = $2, error_message = $3, updated_at = NOW(), completed_at = NOW()
		 WHERE id = $1 AND status = $4`,
		id, string(types.StatusFailed), message, string(types.StatusProcessing))
	if err != nil {
		return fmt.Errorf("failed to fail analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAnalysis returns the analysis, or nil when it does not exist.
func (db *DB) GetAnalysis(ctx context.Context, id uuid.UUID) (*Analysis, error) {
	a, err := scanAnalysis(db.pool.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM analyses WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return a, nil
}

// ListAnalysesByUser returns a page of a user's analyses, newest first, and
// the user's total count.
func (db *DB) ListAnalysesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]AnalysisSummary, int, error) {
	var total int
	if err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM analyses WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count analyses: %w", err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, original_filename, status, overall_score, job_description <> '', created_at
		 FROM analyses
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	summaries := []AnalysisSummary{}
	for rows.Next() {
		var s AnalysisSummary
		var status string
		if err := rows.Scan(&s.ID, &s.OriginalFilename, &status, &s.OverallScore, &s.HasJobDescription, &s.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan analysis: %w", err)
		}
		s.Status = types.AnalysisStatus(status)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list analyses: %w", err)
	}
	return summaries, total, nil
}

// DeleteAnalysis removes one of a user's analyses. It returns ErrNotFound
// when the user owns no analysis with that id.
func (db *DB) DeleteAnalysis(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM analyses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UserStats aggregates a user's analyses.
func (db *DB) UserStats(ctx context.Context, userID uuid.UUID) (*types.UserStats, error) {
	var stats types.UserStats
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'completed'),
		        (AVG(overall_score) FILTER (WHERE status = 'completed'))::float8,
		        MAX(overall_score) FILTER (WHERE status = 'completed')
		 FROM analyses WHERE user_id = $1`,
		userID,
	).Scan(&stats.TotalAnalyses, &stats.CompletedAnalyses, &stats.AverageScore, &stats.BestScore)
	if err != nil {
		return nil, fmt.Errorf("failed to compute user stats: %w", err)
	}
	return &stats, nil
}
