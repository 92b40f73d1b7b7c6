package handler

import (
	"net/http"

	"vntrbirds-be/internal/domain"
	"vntrbirds-be/pkg/logger"
)

// SessionHandler exposes the cookie-held team binding
type SessionHandler struct {
	cookies CookieOptions
	logger  *logger.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(cookies CookieOptions, log *logger.Logger) *SessionHandler {
	return &SessionHandler{cookies: cookies, logger: log.Named("session")}
}

// GetSession handles GET /api/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, domain.SessionResponse{
		Session:  readSession(r),
		LastTeam: readLastTeam(r),
	})
}

// ClearSession handles DELETE /api/session
func (h *SessionHandler) ClearSession(w http.ResponseWriter, r *http.Request) {
	h.cookies.clearSession(w)
	h.logger.Debug("Session cleared")
	respondJSON(w, http.StatusOK, domain.SessionResponse{LastTeam: readLastTeam(r)})
}
