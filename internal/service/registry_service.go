package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"vntrbirds-be/internal/domain"
	"vntrbirds-be/internal/repository"
	apperrors "vntrbirds-be/pkg/errors"
	"vntrbirds-be/pkg/logger"
	"vntrbirds-be/pkg/metrics"
)

// User-facing registry messages
const (
	MsgTeamNameTaken   = `A team with that name already exists. Try a different name, or join it from the "Join a team" tab.`
	MsgSomethingWrong  = "Something went wrong. Please try again."
	MsgTeamNameMissing = "Enter a team name."
	MsgTeamNotFound    = "Team not found"
)

type registryService struct {
	teams   repository.TeamRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewRegistryService creates the team registry
func NewRegistryService(teams repository.TeamRepository, log *logger.Logger, m *metrics.Metrics) RegistryService {
	return &registryService{
		teams:   teams,
		logger:  log.Named("registry"),
		metrics: m,
	}
}

// CreateTeam registers a new team and returns a session for it
func (s *registryService) CreateTeam(ctx context.Context, name string) (domain.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		s.metrics.TeamRegistration("invalid")
		return domain.Session{}, apperrors.NewValidationError(MsgTeamNameMissing, nil)
	}
	if utf8.RuneCountInString(name) > domain.MaxTeamNameLength {
		s.metrics.TeamRegistration("invalid")
		return domain.Session{}, apperrors.NewValidationError("Team name is too long.", map[string]interface{}{
			"max_length": domain.MaxTeamNameLength,
		})
	}

	team, err := s.teams.Create(ctx, name)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			s.metrics.TeamRegistration("conflict")
			return domain.Session{}, apperrors.NewConflictError(MsgTeamNameTaken, err)
		}
		s.metrics.TeamRegistration("error")
		s.logger.WithError(err).WithField("team_name", name).Error("Failed to create team")
		return domain.Session{}, apperrors.NewInternalError(MsgSomethingWrong, err)
	}

	s.metrics.TeamRegistration("created")
	s.logger.WithFields(map[string]interface{}{
		"team_id":   team.ID,
		"team_name": team.Name,
	}).Info("Team created")

	return domain.NewSession(team), nil
}

// ListJoinableTeams returns teams with room for another member.
// Without a member_count column every team is listed.
func (s *registryService) ListJoinableTeams(ctx context.Context) ([]domain.Team, error) {
	teams, err := s.teams.ListWithMemberCount(ctx)
	if err != nil {
		if !repository.IsUndefinedColumn(err) {
			s.logger.WithError(err).Error("Failed to list teams")
			return nil, apperrors.NewInternalError(MsgSomethingWrong, err)
		}

		s.logger.WithError(err).Warn("member_count column missing, listing all teams")
		all, err := s.teams.ListAll(ctx)
		if err != nil {
			s.logger.WithError(err).Error("Failed to list teams")
			return nil, apperrors.NewInternalError(MsgSomethingWrong, err)
		}
		if all == nil {
			all = []domain.Team{}
		}
		return all, nil
	}

	joinable := make([]domain.Team, 0, len(teams))
	for _, t := range teams {
		if t.Joinable() {
			joinable = append(joinable, t)
		}
	}
	return joinable, nil
}

// JoinTeam returns a session for an existing team. member_count is not touched.
func (s *registryService) JoinTeam(ctx context.Context, teamID string) (domain.Session, error) {
	team, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return domain.Session{}, err
	}

	s.logger.WithField("team_id", team.ID).Info("Team joined")
	return domain.NewSession(team), nil
}

// GetTeam looks a team up by id
func (s *registryService) GetTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, apperrors.NewValidationError("Pick a team to join.", nil)
	}

	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		s.logger.WithError(err).WithField("team_id", teamID).Error("Failed to load team")
		return nil, apperrors.NewInternalError(MsgSomethingWrong, err)
	}
	if team == nil {
		return nil, apperrors.NewNotFoundError(MsgTeamNotFound)
	}
	return team, nil
}
