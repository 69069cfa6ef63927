package server

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/service"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*db.User
	transactions map[uuid.UUID][]db.CreditTransaction
	pingErr      error
	passwordErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        map[uuid.UUID]*db.User{},
		transactions: map[uuid.UUID][]db.CreditTransaction{},
	}
}

func (f *fakeStore) CheckEmailExists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byEmail(email) != nil, nil
}

func (f *fakeStore) byEmail(email string) *db.User {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return u
		}
	}
	return nil
}

func (f *fakeStore) CreateUser(_ context.Context, name, email string, credits int) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	u := &db.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     strings.ToLower(email),
		Credits:   credits,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.users[u.ID] = u
	if credits > 0 {
		f.transactions[u.ID] = append(f.transactions[u.ID], db.CreditTransaction{
			ID: uuid.New(), UserID: u.ID, Amount: credits, BalanceAfter: credits, Reason: db.ReasonSignupBonus, CreatedAt: now,
		})
	}
	return u.ID, nil
}

func (f *fakeStore) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.passwordErr != nil {
		return f.passwordErr
	}
	u, ok := f.users[id]
	if !ok {
		return db.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.PasswordSet = true
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byEmail(email)
	if u == nil {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, id uuid.UUID, name, avatarURL *string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if name != nil {
		u.Name = *name
	}
	if avatarURL != nil {
		u.AvatarURL = *avatarURL
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) ListCreditTransactions(_ context.Context, userID uuid.UUID, limit int) ([]db.CreditTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txs := f.transactions[userID]
	return txs[:min(limit, len(txs))], nil
}

func (f *fakeStore) UserStats(_ context.Context, _ uuid.UUID) (*types.UserStats, error) {
	best := 88
	avg := 80.5
	return &types.UserStats{TotalAnalyses: 3, CompletedAnalyses: 2, AverageScore: &avg, BestScore: &best}, nil
}

func (f *fakeStore) Ping(context.Context) error {
	return f.pingErr
}

// fakeAnalyses records submissions and serves canned analyses.
type fakeAnalyses struct {
	mu          sync.Mutex
	submissions []service.Submission
	analyses    map[uuid.UUID]*types.Analysis
	submitErr   error
	deleted     []uuid.UUID
	files       map[uuid.UUID][]byte
}

func newFakeAnalyses() *fakeAnalyses {
	return &fakeAnalyses{analyses: map[uuid.UUID]*types.Analysis{}, files: map[uuid.UUID][]byte{}}
}

func (f *fakeAnalyses) Submit(_ context.Context, userID uuid.UUID, sub service.Submission) (*types.Analysis, error) {
	f.mu.Lock()
	f.submissions = append(f.submissions, sub)
	f.mu.Unlock()

	if sub.OnProgress != nil {
		sub.OnProgress("keywords")
		sub.OnProgress("model")
	}
	if f.submitErr != nil {
		return nil, f.submitErr
	}

	a := &types.Analysis{
		ID:               uuid.New(),
		UserID:           userID,
		OriginalFilename: sub.Filename,
		ResumeText:       sub.ResumeText,
		JobDescription:   sub.JobDescription,
		Status:           types.StatusCompleted,
		Result:           &types.AnalysisResult{OverallScore: 77, ImprovedText: "better"},
		CreatedAt:        time.Now(),
	}
	if sub.Async {
		a.Status = types.StatusProcessing
		a.Result = nil
	}

	f.mu.Lock()
	f.analyses[a.ID] = a
	if len(sub.File) > 0 {
		f.files[a.ID] = sub.File
	}
	f.mu.Unlock()
	return a, nil
}

func (f *fakeAnalyses) owned(userID, id uuid.UUID) (*types.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.analyses[id]
	if !ok {
		return nil, &service.ErrAnalysisNotFound{ID: id}
	}
	if a.UserID != userID {
		return nil, &service.ErrForbidden{ID: id}
	}
	return a, nil
}

func (f *fakeAnalyses) Get(_ context.Context, userID, id uuid.UUID) (*types.Analysis, error) {
	return f.owned(userID, id)
}

func (f *fakeAnalyses) List(_ context.Context, userID uuid.UUID, limit, offset int) (*service.AnalysisPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := &service.AnalysisPage{Analyses: []types.AnalysisSummary{}, Limit: limit, Offset: offset}
	for _, a := range f.analyses {
		if a.UserID == userID {
			page.Total++
			page.Analyses = append(page.Analyses, types.AnalysisSummary{ID: a.ID, Status: a.Status})
		}
	}
	return page, nil
}

func (f *fakeAnalyses) Delete(_ context.Context, userID, id uuid.UUID) error {
	if _, err := f.owned(userID, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.analyses, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAnalyses) Export(_ context.Context, userID, id uuid.UUID) (string, []byte, error) {
	a, err := f.owned(userID, id)
	if err != nil {
		return "", nil, err
	}
	if a.Status != types.StatusCompleted {
		return "", nil, &service.ErrAnalysisNotReady{ID: id, Status: string(a.Status)}
	}
	return "cv-improved.txt", []byte(a.Result.ImprovedText + "\n"), nil
}

func (f *fakeAnalyses) Original(_ context.Context, userID, id uuid.UUID) (string, []byte, error) {
	a, err := f.owned(userID, id)
	if err != nil {
		return "", nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[id]
	if !ok {
		return "", nil, &service.ErrNoArchive{ID: id}
	}
	return a.OriginalFilename, data, nil
}

func (f *fakeAnalyses) CreditsPerAnalysis() int { return 1 }

var errBoom = errors.New("boom")

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

// sampleDocx is a small but valid resume document.
func sampleDocx(t *testing.T) []byte {
	t.Helper()

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:document ` + wordNS + `><w:body>`)
	sb.WriteString(`<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>`)
	for range 8 {
		sb.WriteString(`<w:p><w:r><w:t>Built payment APIs in Go with PostgreSQL for a high volume platform.</w:t></w:r></w:p>`)
	}
	sb.WriteString(`</w:body></w:document>`)

	files := []struct{ name, body string }{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`},
		{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`},
		{"word/document.xml", sb.String()},
		{"word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
