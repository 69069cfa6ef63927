package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-optimizer/internal/analyzer"
	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/queue"
	"github.com/jonathan/resume-optimizer/internal/storage"
	"github.com/jonathan/resume-optimizer/internal/types"
)

type ledgerEntry struct {
	userID     uuid.UUID
	amount     int
	reason     string
	analysisID *uuid.UUID
}

// memStore is an in-memory Store.
type memStore struct {
	mu        sync.Mutex
	credits   map[uuid.UUID]int
	analyses  map[uuid.UUID]*db.Analysis
	ledger    []ledgerEntry
	createErr error
	// completeErr fails CompleteAnalysis, as a dropped connection would.
	completeErr error
}

func newMemStore() *memStore {
	return &memStore{credits: map[uuid.UUID]int{}, analyses: map[uuid.UUID]*db.Analysis{}}
}

func (m *memStore) DeductCredits(_ context.Context, userID uuid.UUID, amount int, reason string, analysisID *uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.credits[userID]
	if !ok {
		return 0, db.ErrNotFound
	}
	if balance < amount {
		return balance, db.ErrInsufficientCredits
	}
	m.credits[userID] = balance - amount
	m.ledger = append(m.ledger, ledgerEntry{userID, -amount, reason, analysisID})
	return m.credits[userID], nil
}

func (m *memStore) AddCredits(_ context.Context, userID uuid.UUID, amount int, reason string, analysisID *uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.credits[userID]; !ok {
		return 0, db.ErrNotFound
	}
	m.credits[userID] += amount
	m.ledger = append(m.ledger, ledgerEntry{userID, amount, reason, analysisID})
	return m.credits[userID], nil
}

func (m *memStore) CreateAnalysis(_ context.Context, in db.NewAnalysis) (*db.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	now := time.Now()
	row := &db.Analysis{
		ID:               in.ID,
		UserID:           in.UserID,
		OriginalFilename: in.OriginalFilename,
		ResumeText:       in.ResumeText,
		JobDescription:   in.JobDescription,
		StorageKey:       in.StorageKey,
		Status:           types.StatusProcessing,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	m.analyses[row.ID] = row
	cp := *row
	return &cp, nil
}

func (m *memStore) CompleteAnalysis(_ context.Context, id uuid.UUID, r *types.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completeErr != nil {
		return m.completeErr
	}
	row, ok := m.analyses[id]
	if !ok || row.Status != types.StatusProcessing {
		return db.ErrNotFound
	}
	suggestions, err := json.Marshal(r.Suggestions)
	if err != nil {
		return err
	}
	now := time.Now()
	row.Status = types.StatusCompleted
	row.OverallScore = &r.OverallScore
	row.ATSScore = &r.ATSScore
	row.KeywordScore = &r.KeywordScore
	row.FormattingScore = &r.FormattingScore
	row.MatchedKeywords = r.MatchedKeywords
	row.MissingKeywords = r.MissingKeywords
	row.Suggestions = suggestions
	row.ATSIssues = r.ATSIssues
	row.ImprovedText = r.ImprovedText
	row.Model = r.Model
	row.TokensUsed = r.TokensUsed
	row.CompletedAt = &now
	return nil
}

func (m *memStore) FailAnalysis(_ context.Context, id uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.analyses[id]
	if !ok || row.Status != types.StatusProcessing {
		return db.ErrNotFound
	}
	row.Status = types.StatusFailed
	row.ErrorMessage = message
	return nil
}

func (m *memStore) GetAnalysis(_ context.Context, id uuid.UUID) (*db.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.analyses[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *memStore) ListAnalysesByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]db.AnalysisSummary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []db.AnalysisSummary
	for _, row := range m.analyses {
		if row.UserID != userID {
			continue
		}
		all = append(all, db.AnalysisSummary{
			ID:                row.ID,
			OriginalFilename:  row.OriginalFilename,
			Status:            row.Status,
			OverallScore:      row.OverallScore,
			HasJobDescription: row.JobDescription != "",
			CreatedAt:         row.CreatedAt,
		})
	}
	total := len(all)
	if offset >= total {
		return []db.AnalysisSummary{}, total, nil
	}
	return all[offset:min(total, offset+limit)], total, nil
}

func (m *memStore) DeleteAnalysis(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.analyses[id]
	if !ok || row.UserID != userID {
		return db.ErrNotFound
	}
	delete(m.analyses, id)
	return nil
}

func (m *memStore) balance(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credits[userID]
}

func (m *memStore) status(id uuid.UUID) types.AnalysisStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.analyses[id].Status
}

type fakeAnalyzer struct {
	result *types.AnalysisResult
	err    error
	// before runs ahead of returning, e.g. to cancel a context.
	before func()
	calls  int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, p analyzer.Params) (*types.AnalysisResult, error) {
	f.calls++
	if p.OnProgress != nil {
		p.OnProgress(analyzer.StageModel)
	}
	if f.before != nil {
		f.before()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakePublisher struct {
	jobs []queue.Job
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, job queue.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeObjects struct {
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) Put(_ context.Context, key, _ string, data []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

type fakeFetcher struct {
	text string
	err  error
}

func (f fakeFetcher) Text(context.Context, string) (string, error) {
	return f.text, f.err
}

var (
	errModelDown = errors.New("model unavailable")
	errConnReset = errors.New("connection reset")
)
