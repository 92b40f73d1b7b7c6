package handler

import (
	"context"
	"io"
	"sync"
	"time"

	"vntrbirds-be/internal/domain"
	"vntrbirds-be/internal/service"
	"vntrbirds-be/pkg/errors"
)

type fakeRegistry struct {
	createErr error
	teams     map[string]domain.Team
	joinable  []domain.Team
}

func (f *fakeRegistry) CreateTeam(ctx context.Context, name string) (domain.Session, error) {
	if f.createErr != nil {
		return domain.Session{}, f.createErr
	}
	return domain.Session{TeamID: "11111111-1111-1111-1111-111111111111", TeamName: name}, nil
}

func (f *fakeRegistry) ListJoinableTeams(ctx context.Context) ([]domain.Team, error) {
	return f.joinable, nil
}

func (f *fakeRegistry) JoinTeam(ctx context.Context, teamID string) (domain.Session, error) {
	team, err := f.GetTeam(ctx, teamID)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.NewSession(team), nil
}

func (f *fakeRegistry) GetTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	team, ok := f.teams[teamID]
	if !ok {
		return nil, errors.NewNotFoundError(service.MsgTeamNotFound)
	}
	return &team, nil
}

type fakeIntake struct {
	mu       sync.Mutex
	requests []domain.SubmitRequest
	bodies   []string
	progress []int
	err      error
}

func (f *fakeIntake) SubmitFind(ctx context.Context, req domain.SubmitRequest, progress service.ProgressFunc) (*domain.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if req.File != nil {
		data, _ := io.ReadAll(req.File.Reader)
		f.bodies = append(f.bodies, string(data))
	}
	f.requests = append(f.requests, req)

	for _, p := range f.progress {
		if progress != nil {
			progress(p)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SubmitResult{
		Submission: &domain.Submission{
			ID:     "sub-1",
			TeamID: req.Session.TeamID,
			ItemID: req.ItemID,
			Points: 10,
		},
	}, nil
}

type fakeHunt struct {
	progress *domain.TeamProgress
	finds    chan domain.Submission
}

func (f *fakeHunt) GetTeamProgress(ctx context.Context, teamID string) (*domain.TeamProgress, error) {
	if f.progress == nil || f.progress.TeamID != teamID {
		return nil, errors.NewNotFoundError(service.MsgTeamNotFound)
	}
	return f.progress, nil
}

func (f *fakeHunt) WatchTeam(ctx context.Context, teamID string) (<-chan domain.Submission, func(), error) {
	return f.finds, func() {}, nil
}

type fakeLeaderboard struct {
	mu       sync.Mutex
	board    domain.Leaderboard
	watchers []chan domain.Leaderboard
}

func (f *fakeLeaderboard) Start(ctx context.Context) error     { return nil }
func (f *fakeLeaderboard) Stop(ctx context.Context) error      { return nil }
func (f *fakeLeaderboard) Recompute(ctx context.Context) error { return nil }

func (f *fakeLeaderboard) Snapshot() domain.Leaderboard {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.board
}

func (f *fakeLeaderboard) Subscribe() (<-chan domain.Leaderboard, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan domain.Leaderboard, 4)
	f.watchers = append(f.watchers, ch)
	return ch, func() {}
}

func (f *fakeLeaderboard) set(board domain.Leaderboard) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.board = board
	for _, ch := range f.watchers {
		ch <- board
	}
}

func (f *fakeLeaderboard) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watchers)
}

type fakeSettings struct {
	mu     sync.Mutex
	open   bool
	setErr error
}

func (f *fakeSettings) Start(ctx context.Context) error { return nil }
func (f *fakeSettings) Stop(ctx context.Context) error  { return nil }

func (f *fakeSettings) SubmissionsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeSettings) Refresh(ctx context.Context) (bool, error) { return f.SubmissionsOpen(), nil }

func (f *fakeSettings) Watch() (<-chan bool, func()) {
	ch := make(chan bool, 1)
	ch <- f.SubmissionsOpen()
	return ch, func() {}
}

func (f *fakeSettings) SetSubmissionsOpen(ctx context.Context, open bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setErr != nil {
		return f.setErr
	}
	f.open = open
	return nil
}

type fakeAdmin struct {
	passphrase string
	loggedOut  []string
}

func (f *fakeAdmin) Login(ctx context.Context, passphrase string) (*service.AdminToken, error) {
	if passphrase == "" || passphrase != f.passphrase {
		return nil, errors.NewAuthenticationError(service.MsgWrongPassphrase)
	}
	return &service.AdminToken{Token: "admin-token", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAdmin) ValidateToken(ctx context.Context, token string) (*service.AdminClaims, error) {
	if token != "admin-token" {
		return nil, errors.NewAuthenticationError(service.MsgAdminRequired)
	}
	return &service.AdminClaims{Admin: true}, nil
}

func (f *fakeAdmin) Logout(ctx context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return nil
}

type fakeOverview struct {
	teams []domain.TeamWithSubmissions
	err   error
}

func (f *fakeOverview) ListTeamSubmissions(ctx context.Context) ([]domain.TeamWithSubmissions, error) {
	return f.teams, f.err
}

type fakeExport struct {
	archive []byte
	err     error
	scores  []domain.TeamScore
}

func (f *fakeExport) ExportAll(ctx context.Context, teams []domain.TeamWithSubmissions, w io.Writer) (*service.ExportStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	_, _ = w.Write(f.archive)
	return &service.ExportStats{Teams: len(teams), Files: 1, Skipped: 1}, nil
}

func (f *fakeExport) ExportStandings(ctx context.Context, scores []domain.TeamScore, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	f.scores = scores
	_, _ = w.Write([]byte("xlsx"))
	return nil
}

type fakes struct {
	registry    *fakeRegistry
	intake      *fakeIntake
	hunt        *fakeHunt
	leaderboard *fakeLeaderboard
	settings    *fakeSettings
	admin       *fakeAdmin
	overview    *fakeOverview
	export      *fakeExport
}

func newFakes() *fakes {
	return &fakes{
		registry: &fakeRegistry{teams: map[string]domain.Team{
			"team-1": {ID: "team-1", Name: "Night Owls"},
		}},
		intake:      &fakeIntake{},
		hunt:        &fakeHunt{finds: make(chan domain.Submission, 4)},
		leaderboard: &fakeLeaderboard{},
		settings:    &fakeSettings{open: true},
		admin:       &fakeAdmin{passphrase: "birds"},
		overview:    &fakeOverview{},
		export:      &fakeExport{archive: []byte("PK-zip")},
	}
}

func (f *fakes) services() *service.Services {
	return &service.Services{
		Registry:    f.registry,
		Intake:      f.intake,
		Hunt:        f.hunt,
		Leaderboard: f.leaderboard,
		Settings:    f.settings,
		Admin:       f.admin,
		Overview:    f.overview,
		Export:      f.export,
	}
}
