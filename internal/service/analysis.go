// Package service orchestrates an analysis: credits, persistence, file
// archiving, the job queue and the analyzer itself.
package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jonathan/resume-optimizer/internal/analyzer"
	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/ingestion"
	"github.com/jonathan/resume-optimizer/internal/metrics"
	"github.com/jonathan/resume-optimizer/internal/queue"
	"github.com/jonathan/resume-optimizer/internal/storage"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// Store is the persistence the service needs.
type Store interface {
	DeductCredits(ctx context.Context, userID uuid.UUID, amount int, reason string, analysisID *uuid.UUID) (int, error)
	AddCredits(ctx context.Context, userID uuid.UUID, amount int, reason string, analysisID *uuid.UUID) (int, error)
	CreateAnalysis(ctx context.Context, in db.NewAnalysis) (*db.Analysis, error)
	CompleteAnalysis(ctx context.Context, id uuid.UUID, result *types.AnalysisResult) error
	FailAnalysis(ctx context.Context, id uuid.UUID, message string) error
	GetAnalysis(ctx context.Context, id uuid.UUID) (*db.Analysis, error)
	ListAnalysesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]db.AnalysisSummary, int, error)
	DeleteAnalysis(ctx context.Context, userID, id uuid.UUID) error
}

// Analyzer scores resume text.
type Analyzer interface {
	Analyze(ctx context.Context, p analyzer.Params) (*types.AnalysisResult, error)
}

// Publisher enqueues analyses for the worker.
type Publisher interface {
	Publish(ctx context.Context, job queue.Job) error
}

// ObjectStore archives uploaded files.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Options carries the optional collaborators. A nil Publisher disables
// async submissions; a nil Objects skips archiving.
type Options struct {
	Publisher          Publisher
	Objects            ObjectStore
	Fetcher            ingestion.TextFetcher
	CreditsPerAnalysis int
}

// Pagination bounds for List.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// AnalysisService runs and manages analyses.
type AnalysisService struct {
	store     Store
	analyzer  Analyzer
	publisher Publisher
	objects   ObjectStore
	fetcher   ingestion.TextFetcher
	cost      int
}

// NewAnalysisService wires the service.
func NewAnalysisService(store Store, a Analyzer, opts Options) *AnalysisService {
	return &AnalysisService{
		store:     store,
		analyzer:  a,
		publisher: opts.Publisher,
		objects:   opts.Objects,
		fetcher:   opts.Fetcher,
		cost:      max(1, opts.CreditsPerAnalysis),
	}
}

// CreditsPerAnalysis is the price of one analysis.
func (s *AnalysisService) CreditsPerAnalysis() int { return s.cost }

// AsyncEnabled reports whether submissions may be queued.
func (s *AnalysisService) AsyncEnabled() bool { return s.publisher != nil }

// Submission is one analysis request.
type Submission struct {
	ResumeText     string
	JobDescription string
	JobURL         string
	Filename       string
	// File and ContentType hold the original upload, archived when set.
	File        []byte
	ContentType string
	Async       bool
	// OnProgress receives analyzer stages for synchronous submissions.
	OnProgress func(stage string)
}

// Submit charges the user and runs the analysis. Synchronous submissions
// return the completed analysis; async ones return it in the processing
// state once queued.
func (s *AnalysisService) Submit(ctx context.Context, userID uuid.UUID, sub Submission) (*types.Analysis, error) {
	resume := strings.TrimSpace(sub.ResumeText)
	if len([]rune(resume)) < types.MinResumeTextLength {
		return nil, &ErrInvalidSubmission{
			Field:   "resume_text",
			Message: fmt.Sprintf("resume text must be at least %d characters", types.MinResumeTextLength),
		}
	}
	if sub.Async && s.publisher == nil {
		return nil, &ErrInvalidSubmission{Field: "async", Message: "asynchronous analysis is not enabled"}
	}

	jobDescription, err := s.jobDescription(ctx, sub)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	if _, err := s.store.DeductCredits(ctx, userID, s.cost, db.ReasonAnalysis, &id); err != nil {
		if errors.Is(err, db.ErrInsufficientCredits) {
			return nil, &ErrInsufficientCredits{Required: s.cost}
		}
		return nil, fmt.Errorf("failed to charge for analysis: %w", err)
	}
	metrics.RecordCredits(s.cost)

	row, err := s.store.CreateAnalysis(ctx, db.NewAnalysis{
		ID:               id,
		UserID:           userID,
		OriginalFilename: sub.Filename,
		ResumeText:       resume,
		JobDescription:   jobDescription,
		StorageKey:       s.archive(ctx, userID, id, sub),
	})
	if err != nil {
		s.refund(ctx, userID, id)
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	if sub.Async {
		return s.enqueue(ctx, row)
	}

	analysis, err := s.execute(ctx, row, sub.OnProgress)
	if err != nil {
		cause := err
		var failed *ErrAnalysisFailed
		if errors.As(err, &failed) {
			cause = failed.Cause
		}
		s.fail(ctx, row, cause)
	}
	return analysis, err
}

// jobDescription returns the pasted description, or fetches JobURL when no
// description was pasted.
func (s *AnalysisService) jobDescription(ctx context.Context, sub Submission) (string, error) {
	jd := strings.TrimSpace(sub.JobDescription)
	if jd != "" || strings.TrimSpace(sub.JobURL) == "" {
		return jd, nil
	}

	var (
		text string
		err  error
	)
	if s.fetcher != nil {
		text, err = ingestion.FetchJobDescriptionWith(ctx, s.fetcher, sub.JobURL)
	} else {
		text, err = ingestion.FetchJobDescription(ctx, sub.JobURL)
	}
	if err != nil {
		return "", &ErrInvalidSubmission{Field: "job_url", Message: err.Error()}
	}
	return text, nil
}

// archive stores the original upload and returns its key. Archiving is best
// effort: failures are logged and the analysis proceeds without a key.
func (s *AnalysisService) archive(ctx context.Context, userID, id uuid.UUID, sub Submission) string {
	if s.objects == nil || len(sub.File) == 0 {
		return ""
	}
	key := storage.KeyFor(userID, id, sub.Filename)
	if err := s.objects.Put(ctx, key, sub.ContentType, sub.File); err != nil {
		log.Warn().Err(err).Str("analysis_id", id.String()).Msg("failed to archive upload")
		return ""
	}
	return key
}

func (s *AnalysisService) enqueue(ctx context.Context, row *db.Analysis) (*types.Analysis, error) {
	err := s.publisher.Publish(ctx, queue.Job{AnalysisID: row.ID, UserID: row.UserID})
	if err != nil {
		s.fail(ctx, row, err)
		return nil, fmt.Errorf("failed to queue analysis: %w", err)
	}
	metrics.RecordAnalysis("queued")
	log.Info().Str("analysis_id", row.ID.String()).Msg("analysis queued")
	return row.ToType()
}

// Process runs a queued analysis. Analyses that are gone are reported as
// permanent failures; analyses that already finished are skipped.
func (s *AnalysisService) Process(ctx context.Context, analysisID uuid.UUID) error {
	row, err := s.store.GetAnalysis(ctx, analysisID)
	if err != nil {
		return err
	}
	if row == nil {
		return queue.Permanent(&ErrAnalysisNotFound{ID: analysisID})
	}
	if row.Status != types.StatusProcessing {
		log.Info().Str("analysis_id", analysisID.String()).Str("status", string(row.Status)).Msg("analysis already finished")
		return nil
	}

	_, err = s.execute(ctx, row, nil)
	var failed *ErrAnalysisFailed
	if errors.As(err, &failed) {
		if ctx.Err() != nil {
			// shutting down: leave it processing so the job is redelivered
			return ctx.Err()
		}
		s.fail(ctx, row, failed.Cause)
		return nil
	}
	return err
}

// Abandon fails and refunds a queued analysis whose job will not be retried.
// Analyses that already left the processing state are left alone.
func (s *AnalysisService) Abandon(ctx context.Context, job queue.Job, cause error) {
	s.fail(ctx, &db.Analysis{ID: job.AnalysisID, UserID: job.UserID}, cause)
}

// execute runs the analyzer and stores the result. Analyzer failures come
// back as ErrAnalysisFailed without touching the stored row.
func (s *AnalysisService) execute(ctx context.Context, row *db.Analysis, progress func(string)) (*types.Analysis, error) {
	result, err := s.analyzer.Analyze(ctx, analyzer.Params{
		ResumeText:     row.ResumeText,
		JobDescription: row.JobDescription,
		OnProgress:     progress,
	})
	if err != nil {
		return nil, &ErrAnalysisFailed{ID: row.ID, Cause: err}
	}

	if err := s.store.CompleteAnalysis(ctx, row.ID, result); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			log.Warn().Str("analysis_id", row.ID.String()).Msg("analysis finished elsewhere, result discarded")
			return s.load(ctx, row.ID)
		}
		return nil, err
	}
	metrics.RecordAnalysis(string(types.StatusCompleted))

	stored, err := s.load(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("analysis_id", row.ID.String()).Int("overall", result.OverallScore).Msg("analysis completed")
	return stored, nil
}

// fail marks the analysis failed and refunds it. It runs even when ctx has
// been cancelled.
func (s *AnalysisService) fail(ctx context.Context, row *db.Analysis, cause error) {
	ctx = context.WithoutCancel(ctx)
	log.Error().Err(cause).Str("analysis_id", row.ID.String()).Msg("analysis failed")

	if err := s.store.FailAnalysis(ctx, row.ID, cause.Error()); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return
		}
		log.Error().Err(err).Str("analysis_id", row.ID.String()).Msg("failed to mark analysis failed")
	}
	metrics.RecordAnalysis(string(types.StatusFailed))
	s.refund(ctx, row.UserID, row.ID)
}

func (s *AnalysisService) refund(ctx context.Context, userID, analysisID uuid.UUID) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.store.AddCredits(ctx, userID, s.cost, db.ReasonRefund, &analysisID); err != nil {
		log.Error().Err(err).Str("analysis_id", analysisID.String()).Msg("failed to refund credits")
	}
}

func (s *AnalysisService) load(ctx context.Context, id uuid.UUID) (*types.Analysis, error) {
	row, err := s.store.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, &ErrAnalysisNotFound{ID: id}
	}
	return row.ToType()
}

// owned loads an analysis and checks that userID owns it.
func (s *AnalysisService) owned(ctx context.Context, userID, id uuid.UUID) (*db.Analysis, error) {
	row, err := s.store.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, &ErrAnalysisNotFound{ID: id}
	}
	if row.UserID != userID {
		return nil, &ErrForbidden{ID: id}
	}
	return row, nil
}

// Get returns one of the user's analyses.
func (s *AnalysisService) Get(ctx context.Context, userID, id uuid.UUID) (*types.Analysis, error) {
	row, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return row.ToType()
}

// AnalysisPage is one page of List.
type AnalysisPage struct {
	Analyses []types.AnalysisSummary `json:"analyses"`
	Total    int                     `json:"total"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
}

// List returns the user's analyses, newest first. The limit is clamped to
// [1, MaxListLimit], defaulting to DefaultListLimit.
func (s *AnalysisService) List(ctx context.Context, userID uuid.UUID, limit, offset int) (*AnalysisPage, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset = max(0, offset)

	rows, total, err := s.store.ListAnalysesByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	page := &AnalysisPage{Analyses: make([]types.AnalysisSummary, len(rows)), Total: total, Limit: limit, Offset: offset}
	for i, r := range rows {
		page.Analyses[i] = r.ToType()
	}
	return page, nil
}

// Delete removes one of the user's analyses and its archived upload.
func (s *AnalysisService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	row, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAnalysis(ctx, userID, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return &ErrAnalysisNotFound{ID: id}
		}
		return err
	}

	if row.StorageKey != "" && s.objects != nil {
		if err := s.objects.Delete(ctx, row.StorageKey); err != nil {
			log.Warn().Err(err).Str("key", row.StorageKey).Msg("failed to delete archived upload")
		}
	}
	return nil
}

// Export returns a download name and the improved resume text of a
// completed analysis.
func (s *AnalysisService) Export(ctx context.Context, userID, id uuid.UUID) (string, []byte, error) {
	row, err := s.owned(ctx, userID, id)
	if err != nil {
		return "", nil, err
	}
	if row.Status != types.StatusCompleted {
		return "", nil, &ErrAnalysisNotReady{ID: id, Status: string(row.Status)}
	}

	body := row.ImprovedText
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return exportFilename(row.OriginalFilename), []byte(body), nil
}

// Original returns the file name and bytes of the upload an analysis was
// created from.
func (s *AnalysisService) Original(ctx context.Context, userID, id uuid.UUID) (string, []byte, error) {
	row, err := s.owned(ctx, userID, id)
	if err != nil {
		return "", nil, err
	}
	if row.StorageKey == "" || s.objects == nil {
		return "", nil, &ErrNoArchive{ID: id}
	}

	data, err := s.objects.Get(ctx, row.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil, &ErrNoArchive{ID: id}
	}
	if err != nil {
		return "", nil, err
	}
	return path.Base(row.StorageKey), data, nil
}

// exportFilename derives the download name from the uploaded file name.
func exportFilename(original string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(original), "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '.':
			return '-'
		default:
			return -1
		}
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		return "improved-resume.txt"
	}
	return base + "-improved.txt"
}
