package domain

// ItemStatus is one row of a team's hunt list
type ItemStatus struct {
	Item
	Found      bool        `json:"found"`
	Submission *Submission `json:"submission,omitempty"`
}

// TeamProgress summarizes what a team has found so far
type TeamProgress struct {
	TeamID      string       `json:"team_id"`
	TotalPoints int          `json:"total_points"`
	FoundCount  int          `json:"found_count"`
	TotalCount  int          `json:"total_count"`
	Items       []ItemStatus `json:"items"`

	// Found is keyed by item id
	Found map[string]*Submission `json:"found"`
}
