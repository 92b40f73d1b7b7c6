package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"vntrbirds-be/internal/domain"
	"vntrbirds-be/internal/middleware"
	"vntrbirds-be/internal/service"
	"vntrbirds-be/pkg/errors"
	"vntrbirds-be/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportWriteWindow covers downloading every blob before the archive is sent
const exportWriteWindow = 10 * time.Minute

// AdminHandler serves the admin screens
type AdminHandler struct {
	admin       service.AdminService
	overview    service.OverviewService
	export      service.ExportService
	settings    service.SettingsService
	leaderboard service.LeaderboardService
	cookies     CookieOptions
	logger      *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(services *service.Services, cookies CookieOptions, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		admin:       services.Admin,
		overview:    services.Overview,
		export:      services.Export,
		settings:    services.Settings,
		leaderboard: services.Leaderboard,
		cookies:     cookies,
		logger:      log.Named("admin"),
	}
}

// LoginRequest is the admin passphrase form
type LoginRequest struct {
	Passphrase string `json:"passphrase"`
}

// AdminTeamsResponse is returned by GET /api/admin/teams
type AdminTeamsResponse struct {
	Teams []domain.TeamWithSubmissions `json:"teams"`
}

// Login handles POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, service.MsgSomethingWrong, h.logger)
		return
	}

	token, err := h.admin.Login(r.Context(), req.Passphrase)
	if err != nil {
		respondError(w, r, err, service.MsgSomethingWrong, h.logger)
		return
	}

	http.SetCookie(w, h.cookies.cookie(domain.AdminCookieName, token.Token, time.Until(token.ExpiresAt)))
	respondJSON(w, http.StatusOK, token)
}

// Logout handles POST /api/admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.AdminToken(r); token != "" {
		if err := h.admin.Logout(r.Context(), token); err != nil {
			h.logger.WithError(err).Debug("Logout with unusable token")
		}
	}

	http.SetCookie(w, h.cookies.cookie(domain.AdminCookieName, "", 0))
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListTeams handles GET /api/admin/teams
func (h *AdminHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.overview.ListTeamSubmissions(r.Context())
	if err != nil {
		respondError(w, r, err, service.MsgSomethingWrong, h.logger)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, AdminTeamsResponse{Teams: teams})
}

// SetSubmissionsOpen handles PUT /api/admin/settings/submissions-open
func (h *AdminHandler) SetSubmissionsOpen(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmissionsOpenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, service.MsgSomethingWrong, h.logger)
		return
	}
	if req.Open == nil {
		middleware.WriteError(w, r, errors.NewValidationError("open is required", nil), h.logger)
		return
	}

	if err := h.settings.SetSubmissionsOpen(r.Context(), *req.Open); err != nil {
		respondError(w, r, err, service.MsgSomethingWrong, h.logger)
		return
	}

	h.logger.WithField("submissions_open", *req.Open).Info("Submissions toggled by admin")
	respondJSON(w, http.StatusOK, domain.SettingsResponse{SubmissionsOpen: *req.Open})
}

// Export handles GET /api/admin/export. The archive is built in memory first
// so a failure can still be answered with an error status.
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(exportWriteWindow))

	teams, err := h.overview.ListTeamSubmissions(r.Context())
	if err != nil {
		respondError(w, r, err, service.MsgExportFailed, h.logger)
		return
	}

	var buf bytes.Buffer
	stats, err := h.export.ExportAll(r.Context(), teams, &buf)
	if err != nil {
		respondError(w, r, err, service.MsgExportFailed, h.logger)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"teams":   stats.Teams,
		"files":   stats.Files,
		"skipped": stats.Skipped,
		"bytes":   buf.Len(),
	}).Info("Export archive built")

	h.attachment(w, "application/zip", service.ArchiveName, buf.Len())
	w.Header().Set("X-Export-Skipped", strconv.Itoa(stats.Skipped))
	_, _ = buf.WriteTo(w)
}

// ExportStandings handles GET /api/admin/export/leaderboard.xlsx
func (h *AdminHandler) ExportStandings(w http.ResponseWriter, r *http.Request) {
	snapshot := h.leaderboard.Snapshot()
	scores := make([]domain.TeamScore, 0, len(snapshot.Entries))
	for _, e := range snapshot.Entries {
		scores = append(scores, e.TeamScore)
	}

	var buf bytes.Buffer
	if err := h.export.ExportStandings(r.Context(), scores, &buf); err != nil {
		respondError(w, r, err, service.MsgExportFailed, h.logger)
		return
	}

	h.attachment(w, xlsxContentType, service.StandingsName, buf.Len())
	_, _ = buf.WriteTo(w)
}

func (h *AdminHandler) attachment(w http.ResponseWriter, contentType, name string, size int) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(size))
	w.Header().Set("Cache-Control", "no-store")
}
