package service

import (
	"context"
	"io"

	"vntrbirds-be/internal/domain"
)

// ProgressFunc receives intake progress as a percentage in [0, 100]
type ProgressFunc func(percent int)

// UploadProgressFunc receives raw byte counts while a blob is sent
type UploadProgressFunc func(loaded, total int64)

// BlobStore stores submission media
type BlobStore interface {
	// Upload writes r to path. It never overwrites an existing object.
	Upload(ctx context.Context, path, contentType string, r io.Reader, size int64, onProgress UploadProgressFunc) error

	// Download reads an object back with the service credentials
	Download(ctx context.Context, path string) ([]byte, error)

	// PublicURL is the unauthenticated URL for a stored object
	PublicURL(path string) string
}

// RegistryService defines team creation and joining
type RegistryService interface {
	CreateTeam(ctx context.Context, name string) (domain.Session, error)
	ListJoinableTeams(ctx context.Context) ([]domain.Team, error)
	JoinTeam(ctx context.Context, teamID string) (domain.Session, error)
	GetTeam(ctx context.Context, teamID string) (*domain.Team, error)
}

// IntakeService records finds
type IntakeService interface {
	// SubmitFind uploads the file, then records the submission.
	// progress may be nil.
	SubmitFind(ctx context.Context, req domain.SubmitRequest, progress ProgressFunc) (*domain.SubmitResult, error)
}

// HuntService serves a team's own progress
type HuntService interface {
	GetTeamProgress(ctx context.Context, teamID string) (*domain.TeamProgress, error)

	// WatchTeam streams new submissions for one team until cancel or ctx ends
	WatchTeam(ctx context.Context, teamID string) (<-chan domain.Submission, func(), error)
}

// LeaderboardService keeps the live standings
type LeaderboardService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// Recompute refetches every fact and replaces the standings
	Recompute(ctx context.Context) error
	Snapshot() domain.Leaderboard
	Subscribe() (<-chan domain.Leaderboard, func())
}

// SettingsService keeps the submissions_open flag
type SettingsService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	SubmissionsOpen() bool
	Refresh(ctx context.Context) (bool, error)
	Watch() (<-chan bool, func())
	SetSubmissionsOpen(ctx context.Context, open bool) error
}

// AdminService gates the admin screens
type AdminService interface {
	Login(ctx context.Context, passphrase string) (*AdminToken, error)
	ValidateToken(ctx context.Context, token string) (*AdminClaims, error)
	Logout(ctx context.Context, token string) error
}

// OverviewService groups every submission by team for admins
type OverviewService interface {
	ListTeamSubmissions(ctx context.Context) ([]domain.TeamWithSubmissions, error)
}

// ExportService builds downloadable archives
type ExportService interface {
	ExportAll(ctx context.Context, teams []domain.TeamWithSubmissions, w io.Writer) (*ExportStats, error)
	ExportStandings(ctx context.Context, scores []domain.TeamScore, w io.Writer) error
}

// Services aggregates all service interfaces
type Services struct {
	Registry    RegistryService
	Intake      IntakeService
	Hunt        HuntService
	Leaderboard LeaderboardService
	Settings    SettingsService
	Admin       AdminService
	Overview    OverviewService
	Export      ExportService
}
