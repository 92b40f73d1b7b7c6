package domain

import "time"

// UnknownTeamName labels facts whose team name could not be joined
const UnknownTeamName = "Unknown"

// TeamScore is the derived per-team total. Rank is positional and 1-indexed.
type TeamScore struct {
	TeamID      string `json:"team_id"`
	TeamName    string `json:"team_name"`
	TotalPoints int    `json:"total_points"`
	ItemCount   int    `json:"item_count"`
	Rank        int    `json:"rank"`
}

// LeaderboardEntry is a score plus the short-lived "just changed" emphasis flag
type LeaderboardEntry struct {
	TeamScore
	RecentlyChanged bool `json:"recently_changed"`
}

// Leaderboard is the live projection snapshot
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updated_at"`
}
