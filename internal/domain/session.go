package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Cookie names for client-held state
const (
	SessionCookieName  = "vntrbirds_session"
	LastTeamCookieName = "vntrbirds_last_team"
	AdminCookieName    = "vntrbirds_admin"
)

// Session binds a client to a team. It is held by the client and trusted as-is:
// the server never checks that the holder actually belongs to the team.
type Session struct {
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
}

// Valid reports whether both halves of the session are present
func (s Session) Valid() bool {
	return strings.TrimSpace(s.TeamID) != "" && strings.TrimSpace(s.TeamName) != ""
}

// NewSession builds the session for a team
func NewSession(t *Team) Session {
	return Session{TeamID: t.ID, TeamName: t.Name}
}

// EncodeSession renders a session as a cookie-safe value
func EncodeSession(s Session) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	return url.QueryEscape(string(raw)), nil
}

// DecodeSession parses a cookie value produced by EncodeSession
func DecodeSession(value string) (Session, error) {
	var s Session

	raw, err := url.QueryUnescape(value)
	if err != nil {
		return s, fmt.Errorf("failed to unescape session: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return s, fmt.Errorf("failed to decode session: %w", err)
	}
	if !s.Valid() {
		return s, fmt.Errorf("session is missing team_id or team_name")
	}
	return s, nil
}

// SessionResponse is returned by GET /api/session and the register/join endpoints
type SessionResponse struct {
	Session  *Session `json:"session"`
	LastTeam string   `json:"last_team,omitempty"`
}
