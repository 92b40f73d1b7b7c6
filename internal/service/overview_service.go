package service

import (
	"context"
	"sort"

	"vntrbirds-be/internal/domain"
	"vntrbirds-be/internal/repository"
	apperrors "vntrbirds-be/pkg/errors"
	"vntrbirds-be/pkg/logger"
)

type overviewService struct {
	submissions repository.SubmissionRepository
	blobs       BlobStore
	logger      *logger.Logger
}

// NewOverviewService creates the admin overview
func NewOverviewService(submissions repository.SubmissionRepository, blobs BlobStore, log *logger.Logger) OverviewService {
	return &overviewService{
		submissions: submissions,
		blobs:       blobs,
		logger:      log.Named("overview"),
	}
}

// ListTeamSubmissions groups every submission by team, highest total first
func (s *overviewService) ListTeamSubmissions(ctx context.Context) ([]domain.TeamWithSubmissions, error) {
	subs, err := s.submissions.ListWithTeams(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load submissions")
		return nil, apperrors.NewInternalError(MsgSomethingWrong, err)
	}

	return GroupByTeam(subs, s.blobs.PublicURL), nil
}

// GroupByTeam groups submissions in first-appearance order and then sorts
// stably by total points. publicURL may be nil.
func GroupByTeam(subs []domain.Submission, publicURL func(path string) string) []domain.TeamWithSubmissions {
	teams := make([]domain.TeamWithSubmissions, 0)
	index := make(map[string]int)

	for _, sub := range subs {
		i, ok := index[sub.TeamID]
		if !ok {
			i = len(teams)
			index[sub.TeamID] = i
			teams = append(teams, domain.TeamWithSubmissions{
				TeamID:      sub.TeamID,
				Submissions: []domain.SubmissionView{},
			})
		}

		team := &teams[i]
		if team.TeamName == "" && sub.TeamName != "" {
			team.TeamName = sub.TeamName
		}
		team.TotalPoints += sub.Points

		view := domain.SubmissionView{Submission: sub}
		if sub.FilePath != "" && publicURL != nil {
			view.PublicURL = publicURL(sub.FilePath)
		}
		team.Submissions = append(team.Submissions, view)
	}

	for i := range teams {
		if teams[i].TeamName == "" {
			teams[i].TeamName = domain.UnknownTeamName
		}
	}

	sort.SliceStable(teams, func(a, b int) bool {
		return teams[a].TotalPoints > teams[b].TotalPoints
	})
	return teams
}
