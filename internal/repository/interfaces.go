package repository

import (
	"context"

	"vntrbirds-be/internal/domain"
)

// TeamRepository defines the interface for team data operations
type TeamRepository interface {
	// Create inserts a team; a taken name surfaces as a unique violation
	Create(ctx context.Context, name string) (*domain.Team, error)

	// ListWithMemberCount returns all teams ordered by name, including member_count.
	// Fails with an undefined-column error on databases without that column.
	ListWithMemberCount(ctx context.Context) ([]domain.Team, error)

	// ListAll returns all teams ordered by name without touching member_count
	ListAll(ctx context.Context) ([]domain.Team, error)

	// GetByID returns nil, nil when the team does not exist
	GetByID(ctx context.Context, id string) (*domain.Team, error)
}

// SubmissionRepository defines the interface for submission facts
type SubmissionRepository interface {
	// Create inserts a submission; a second (team, item) pair surfaces as a unique violation
	Create(ctx context.Context, sub domain.NewSubmission) (*domain.Submission, error)

	// ListScoringFacts returns every submission's team and points, oldest first
	ListScoringFacts(ctx context.Context) ([]domain.ScoringFact, error)

	// ListByTeam returns one team's submissions, oldest first
	ListByTeam(ctx context.Context, teamID string) ([]domain.Submission, error)

	// ListWithTeams returns all submissions joined with team names, oldest first
	ListWithTeams(ctx context.Context) ([]domain.Submission, error)
}

// SettingsRepository defines the interface for app_settings
type SettingsRepository interface {
	// Get returns nil, nil when the key is not set
	Get(ctx context.Context, key string) (*domain.AppSetting, error)

	// Set upserts a key
	Set(ctx context.Context, key, value string) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Teams       TeamRepository
	Submissions SubmissionRepository
	Settings    SettingsRepository
}
