package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"vntrbirds-be/internal/domain"
)

var errUniqueViolation = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

// fakeTeamRepo is an in-memory TeamRepository
type fakeTeamRepo struct {
	mu             sync.Mutex
	teams          []domain.Team
	noMemberColumn bool
	err            error
	createCalls    int
	getByIDCalls   int
}

func (r *fakeTeamRepo) Create(ctx context.Context, name string) (*domain.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.err != nil {
		return nil, r.err
	}
	for _, t := range r.teams {
		if t.Name == name {
			return nil, fmt.Errorf("insert team: %w", errUniqueViolation)
		}
	}
	zero := 0
	t := domain.Team{ID: uuid.NewString(), Name: name, MemberCount: &zero, CreatedAt: time.Now()}
	r.teams = append(r.teams, t)
	return &t, nil
}

func (r *fakeTeamRepo) sorted() []domain.Team {
	out := append([]domain.Team(nil), r.teams...)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

func (r *fakeTeamRepo) ListWithMemberCount(ctx context.Context) ([]domain.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if r.noMemberColumn {
		return nil, &pgconn.PgError{Code: "42703", Message: `column "member_count" does not exist`}
	}
	return r.sorted(), nil
}

func (r *fakeTeamRepo) ListAll(ctx context.Context) ([]domain.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := r.sorted()
	for i := range out {
		out[i].MemberCount = nil
	}
	return out, nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getByIDCalls++
	if r.err != nil {
		return nil, r.err
	}
	for _, t := range r.teams {
		if t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

func (r *fakeTeamRepo) add(name string, members *int) domain.Team {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := domain.Team{ID: uuid.NewString(), Name: name, MemberCount: members}
	r.teams = append(r.teams, t)
	return t
}

// fakeSubmissionRepo is an in-memory SubmissionRepository with the (team, item) unique constraint
type fakeSubmissionRepo struct {
	mu          sync.Mutex
	subs        []domain.Submission
	teamNames   map[string]string
	createErr   error
	listErr     error
	listCalls   int
	createCalls int
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{teamNames: make(map[string]string)}
}

func (r *fakeSubmissionRepo) Create(ctx context.Context, in domain.NewSubmission) (*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, s := range r.subs {
		if s.TeamID == in.TeamID && s.ItemID == in.ItemID {
			return nil, fmt.Errorf("insert submission: %w", errUniqueViolation)
		}
	}
	sub := domain.Submission{
		ID:        uuid.NewString(),
		TeamID:    in.TeamID,
		ItemID:    in.ItemID,
		ItemLabel: in.ItemLabel,
		Points:    in.Points,
		ItemType:  in.ItemType,
		FilePath:  in.FilePath,
		IGPostURL: in.IGPostURL,
		CreatedAt: time.Now().Add(time.Duration(len(r.subs)) * time.Millisecond),
	}
	r.subs = append(r.subs, sub)
	return &sub, nil
}

func (r *fakeSubmissionRepo) withNames() []domain.Submission {
	out := make([]domain.Submission, len(r.subs))
	for i, s := range r.subs {
		s.TeamName = r.teamNames[s.TeamID]
		out[i] = s
	}
	return out
}

func (r *fakeSubmissionRepo) ListScoringFacts(ctx context.Context) ([]domain.ScoringFact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	facts := make([]domain.ScoringFact, 0, len(r.subs))
	for _, s := range r.withNames() {
		facts = append(facts, s.Fact())
	}
	return facts, nil
}

func (r *fakeSubmissionRepo) ListByTeam(ctx context.Context, teamID string) ([]domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Submission
	for _, s := range r.subs {
		if s.TeamID == teamID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) ListWithTeams(ctx context.Context) ([]domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.withNames(), nil
}

func (r *fakeSubmissionRepo) seed(teamID, teamName, itemID string, points int, filePath string) domain.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	if teamName != "" {
		r.teamNames[teamID] = teamName
	}
	sub := domain.Submission{
		ID:        uuid.NewString(),
		TeamID:    teamID,
		ItemID:    itemID,
		ItemLabel: itemID,
		Points:    points,
		ItemType:  domain.ItemTypeStandard,
		FilePath:  filePath,
		CreatedAt: time.Now().Add(time.Duration(len(r.subs)) * time.Millisecond),
	}
	r.subs = append(r.subs, sub)
	return sub
}

// fakeSettingsRepo is an in-memory SettingsRepository
type fakeSettingsRepo struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{values: make(map[string]string)}
}

func (r *fakeSettingsRepo) Get(ctx context.Context, key string) (*domain.AppSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	v, ok := r.values[key]
	if !ok {
		return nil, nil
	}
	return &domain.AppSetting{Key: key, Value: v}, nil
}

func (r *fakeSettingsRepo) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.values[key] = value
	return nil
}

// fakeBlobStore keeps objects in memory and refuses overwrites
type fakeBlobStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	uploadErr   error
	downloadErr map[string]error
	chunk       int64
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte), downloadErr: make(map[string]error)}
}

func (b *fakeBlobStore) Upload(ctx context.Context, path, contentType string, r io.Reader, size int64, onProgress UploadProgressFunc) error {
	if b.uploadErr != nil {
		return b.uploadErr
	}

	var buf bytes.Buffer
	chunk := b.chunk
	if chunk <= 0 {
		chunk = 1024
	}
	for {
		n, err := io.CopyN(&buf, r, chunk)
		if n > 0 && onProgress != nil && size > 0 {
			onProgress(int64(buf.Len()), size)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.objects[path]; exists {
		return &StorageError{StatusCode: 409, Body: "Duplicate", Message: "The resource already exists"}
	}
	b.objects[path] = buf.Bytes()
	return nil
}

func (b *fakeBlobStore) Download(ctx context.Context, path string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.downloadErr[path]; err != nil {
		return nil, err
	}
	data, ok := b.objects[path]
	if !ok {
		return nil, &StorageError{StatusCode: 404, Body: "not found"}
	}
	return data, nil
}

func (b *fakeBlobStore) PublicURL(path string) string {
	return "https://cdn.test/" + path
}

func (b *fakeBlobStore) put(path string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = data
}

func intPtr(v int) *int { return &v }
