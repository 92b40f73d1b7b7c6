package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"vntrbirds-be/internal/catalog"
	"vntrbirds-be/internal/domain"
	"vntrbirds-be/internal/realtime"
	"vntrbirds-be/internal/repository"
	apperrors "vntrbirds-be/pkg/errors"
	"vntrbirds-be/pkg/logger"
)

type huntService struct {
	catalog     *catalog.Catalog
	teams       repository.TeamRepository
	submissions repository.SubmissionRepository
	feed        realtime.Feed
	logger      *logger.Logger
}

// NewHuntService creates the per-team progress service
func NewHuntService(cat *catalog.Catalog, teams repository.TeamRepository, submissions repository.SubmissionRepository, feed realtime.Feed, log *logger.Logger) HuntService {
	return &huntService{
		catalog:     cat,
		teams:       teams,
		submissions: submissions,
		feed:        feed,
		logger:      log.Named("hunt"),
	}
}

// GetTeamProgress lists every catalog item with the team's find, standard items first
func (s *huntService) GetTeamProgress(ctx context.Context, teamID string) (*domain.TeamProgress, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		s.logger.WithError(err).WithField("team_id", teamID).Error("Failed to load team")
		return nil, apperrors.NewInternalError(MsgSomethingWrong, err)
	}
	if team == nil {
		return nil, apperrors.NewNotFoundError(MsgTeamNotFound)
	}

	subs, err := s.submissions.ListByTeam(ctx, team.ID)
	if err != nil {
		s.logger.WithError(err).WithField("team_id", teamID).Error("Failed to load submissions")
		return nil, apperrors.NewInternalError(MsgSomethingWrong, err)
	}

	progress := &domain.TeamProgress{
		TeamID:     team.ID,
		TotalCount: s.catalog.Len(),
		Found:      make(map[string]*domain.Submission, len(subs)),
	}
	for i := range subs {
		sub := subs[i]
		sub.TeamName = team.Name
		progress.Found[sub.ItemID] = &sub
		progress.TotalPoints += sub.Points
	}
	progress.FoundCount = len(progress.Found)

	items := append(s.catalog.ByType(domain.ItemTypeStandard), s.catalog.ByType(domain.ItemTypeSponsor)...)
	progress.Items = make([]domain.ItemStatus, 0, len(items))
	for _, item := range items {
		sub := progress.Found[item.ID]
		progress.Items = append(progress.Items, domain.ItemStatus{
			Item:       item,
			Found:      sub != nil,
			Submission: sub,
		})
	}

	return progress, nil
}

// WatchTeam streams the team's new submissions. Items already found when the
// watch starts, or seen earlier on the stream, are not repeated.
func (s *huntService) WatchTeam(ctx context.Context, teamID string) (<-chan domain.Submission, func(), error) {
	existing, err := s.submissions.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load submissions: %w", err)
	}

	seen := make(map[string]struct{}, len(existing))
	for _, sub := range existing {
		seen[sub.ItemID] = struct{}{}
	}

	events, unsubscribe, err := s.feed.Subscribe(ctx, realtime.TopicSubmissions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to subscribe to submissions: %w", err)
	}

	out := make(chan domain.Submission, 16)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			unsubscribe()
		})
	}

	go func() {
		defer close(out)
		for event := range events {
			if event.Type != realtime.EventInsert || event.TeamID != teamID {
				continue
			}

			var sub domain.Submission
			if err := json.Unmarshal(event.Row, &sub); err != nil {
				s.logger.WithError(err).Warn("Dropping undecodable submission event")
				continue
			}
			if _, dup := seen[sub.ItemID]; dup {
				continue
			}
			seen[sub.ItemID] = struct{}{}

			select {
			case out <- sub:
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cancel, nil
}
