package handler

import (
	"net/http"

	"vntrbirds-be/internal/domain"
	"vntrbirds-be/internal/service"
	"vntrbirds-be/pkg/logger"
)

// LeaderboardHandler serves the live standings and the submissions_open flag
type LeaderboardHandler struct {
	leaderboard service.LeaderboardService
	settings    service.SettingsService
	logger      *logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(leaderboard service.LeaderboardService, settings service.SettingsService, log *logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboard: leaderboard,
		settings:    settings,
		logger:      log.Named("leaderboard"),
	}
}

// GetLeaderboard handles GET /api/leaderboard
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	snapshot := h.leaderboard.Snapshot()

	// Standings change on every find, so clients must always revalidate
	w.Header().Set("Cache-Control", "no-cache")
	if notModified(w, r, generateETag(snapshot)) {
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// GetSettings handles GET /api/settings
func (h *LeaderboardHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	respondJSON(w, http.StatusOK, domain.SettingsResponse{
		SubmissionsOpen: h.settings.SubmissionsOpen(),
	})
}
