package domain

import (
	"io"
	"time"
)

// Submission is the recorded proof of one find. At most one exists per (team, item).
// Item fields are copied at insert time so later catalog edits do not rescore history.
type Submission struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	ItemID    string    `json:"item_id"`
	ItemLabel string    `json:"item_label"`
	Points    int       `json:"points"`
	ItemType  ItemType  `json:"item_type"`
	FilePath  string    `json:"file_path,omitempty"`
	IGPostURL *string   `json:"ig_post_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Joined from teams for admin and leaderboard reads
	TeamName string `json:"team_name,omitempty"`
}

// NewSubmission is the insert payload
type NewSubmission struct {
	TeamID    string
	ItemID    string
	ItemLabel string
	Points    int
	ItemType  ItemType
	FilePath  string
	IGPostURL *string
}

// ScoringFact is the projection of a submission the aggregation needs
type ScoringFact struct {
	TeamID   string
	TeamName string
	Points   int
}

// Fact projects a submission onto its scoring fields
func (s Submission) Fact() ScoringFact {
	return ScoringFact{TeamID: s.TeamID, TeamName: s.TeamName, Points: s.Points}
}

// UploadFile is a file handed to intake
type UploadFile struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// SubmitRequest is one team/item/file triple
type SubmitRequest struct {
	Session   Session
	ItemID    string
	File      *UploadFile
	IGPostURL string
}

// SubmitResult is returned on a stored submission
type SubmitResult struct {
	Submission  *Submission `json:"submission"`
	SizeWarning bool        `json:"size_warning,omitempty"`
}

// SubmissionView adds the public media URL for admin screens
type SubmissionView struct {
	Submission
	PublicURL string `json:"public_url,omitempty"`
}

// TeamWithSubmissions groups a team's finds for the admin overview and export
type TeamWithSubmissions struct {
	TeamID      string           `json:"team_id"`
	TeamName    string           `json:"team_name"`
	TotalPoints int              `json:"total_points"`
	Submissions []SubmissionView `json:"submissions"`
}
