package domain

import "time"

// MaxTeamNameLength mirrors the registration form limit
const MaxTeamNameLength = 80

// MaxTeamMembers caps join eligibility; member_count itself is maintained outside this service
const MaxTeamMembers = 2

// Team is a registered hunt team. Name uniqueness is enforced by the store.
type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"team_name"`
	MemberCount *int      `json:"member_count,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Joinable reports whether another member may join (nil count is treated as 0)
func (t Team) Joinable() bool {
	if t.MemberCount == nil {
		return true
	}
	return *t.MemberCount < MaxTeamMembers
}

// CreateTeamRequest is the body of POST /api/teams
type CreateTeamRequest struct {
	TeamName string `json:"team_name"`
}
