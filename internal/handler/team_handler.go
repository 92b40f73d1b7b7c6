package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"vntrbirds-be/internal/domain"
	"vntrbirds-be/internal/service"
	"vntrbirds-be/pkg/errors"
	"vntrbirds-be/pkg/logger"
)

// TeamHandler handles registration, joining and a team's own progress
type TeamHandler struct {
	registry service.RegistryService
	hunt     service.HuntService
	cookies  CookieOptions
	logger   *logger.Logger
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(registry service.RegistryService, hunt service.HuntService, cookies CookieOptions, log *logger.Logger) *TeamHandler {
	return &TeamHandler{
		registry: registry,
		hunt:     hunt,
		cookies:  cookies,
		logger:   log.Named("teams"),
	}
}

// JoinableTeamsResponse is returned by GET /api/teams/joinable
type JoinableTeamsResponse struct {
	Teams []domain.Team `json:"teams"`
}

// CreateTeam handles POST /api/teams
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, service.MsgSomethingWrong, h.logger)
		return
	}

	session, err := h.registry.CreateTeam(r.Context(), req.TeamName)
	if err != nil {
		respondError(w, r, err, service.MsgSomethingWrong, h.logger)
		return
	}

	h.bind(w, r, session, http.StatusCreated)
}

// ListJoinable handles GET /api/teams/joinable
func (h *TeamHandler) ListJoinable(w http.ResponseWriter, r *http.Request) {
	teams, err := h.registry.ListJoinableTeams(r.Context())
	if err != nil {
		respondError(w, r, err, service.MsgSomethingWrong, h.logger)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	respondJSON(w, http.StatusOK, JoinableTeamsResponse{Teams: teams})
}

// JoinTeam handles POST /api/teams/{teamId}/join
func (h *TeamHandler) JoinTeam(w http.ResponseWriter, r *http.Request) {
	session, err := h.registry.JoinTeam(r.Context(), chi.URLParam(r, "teamId"))
	if err != nil {
		respondError(w, r, err, service.MsgSomethingWrong, h.logger)
		return
	}

	h.bind(w, r, session, http.StatusOK)
}

// GetProgress handles GET /api/teams/{teamId}/progress
func (h *TeamHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.hunt.GetTeamProgress(r.Context(), chi.URLParam(r, "teamId"))
	if err != nil {
		respondError(w, r, err, service.MsgSomethingWrong, h.logger)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	respondJSON(w, http.StatusOK, progress)
}

func (h *TeamHandler) bind(w http.ResponseWriter, r *http.Request, session domain.Session, status int) {
	if err := h.cookies.setSession(w, session); err != nil {
		respondError(w, r, errors.NewInternalError(service.MsgSomethingWrong, err), "", h.logger)
		return
	}

	h.logger.WithField("team_id", session.TeamID).Info("Session bound to team")
	respondJSON(w, status, domain.SessionResponse{
		Session:  &session,
		LastTeam: session.TeamName,
	})
}
