package service

import (
	"sort"

	"vntrbirds-be/internal/domain"
)

// Aggregate folds scoring facts into ranked team totals.
//
// Teams keep first-appearance order until the stable sort by total, so ties
// are ranked by whichever team scored first. Rank is the 1-based position,
// tied totals still get distinct ranks.
func Aggregate(facts []domain.ScoringFact) []domain.TeamScore {
	scores := make([]domain.TeamScore, 0)
	index := make(map[string]int)

	for _, fact := range facts {
		i, ok := index[fact.TeamID]
		if !ok {
			i = len(scores)
			index[fact.TeamID] = i
			scores = append(scores, domain.TeamScore{TeamID: fact.TeamID})
		}

		s := &scores[i]
		s.TotalPoints += fact.Points
		s.ItemCount++
		if s.TeamName == "" && fact.TeamName != "" {
			s.TeamName = fact.TeamName
		}
	}

	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].TotalPoints > scores[b].TotalPoints
	})

	for i := range scores {
		if scores[i].TeamName == "" {
			scores[i].TeamName = domain.UnknownTeamName
		}
		scores[i].Rank = i + 1
	}

	return scores
}
