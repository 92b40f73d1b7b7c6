package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vntrbirds-be/internal/catalog"
	"vntrbirds-be/internal/domain"
	"vntrbirds-be/internal/service"
	"vntrbirds-be/pkg/errors"
	"vntrbirds-be/pkg/logger"
)

func playerRouter(f *fakes) http.Handler {
	log := logger.NewNop()
	cookies := CookieOptions{SameSite: http.SameSiteLaxMode}
	teams := NewTeamHandler(f.registry, f.hunt, cookies, log)
	sessions := NewSessionHandler(cookies, log)

	r := chi.NewRouter()
	r.Get("/api/session", sessions.GetSession)
	r.Delete("/api/session", sessions.ClearSession)
	r.Post("/api/teams", teams.CreateTeam)
	r.Get("/api/teams/joinable", teams.ListJoinable)
	r.Post("/api/teams/{teamId}/join", teams.JoinTeam)
	r.Get("/api/teams/{teamId}/progress", teams.GetProgress)
	return r
}

func cookieNamed(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestTeamHandler_CreateTeam(t *testing.T) {
	f := newFakes()
	router := playerRouter(f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/teams", strings.NewReader(`{"team_name":"Night Owls"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var body domain.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Session)
	assert.Equal(t, "Night Owls", body.Session.TeamName)
	assert.Equal(t, "Night Owls", body.LastTeam)

	session := cookieNamed(t, rec, domain.SessionCookieName)
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, int(sessionMaxAge.Seconds()), session.MaxAge)

	decoded, err := domain.DecodeSession(session.Value)
	require.NoError(t, err)
	assert.Equal(t, *body.Session, decoded)

	last := cookieNamed(t, rec, domain.LastTeamCookieName)
	require.NotNil(t, last)
	assert.Equal(t, "Night+Owls", last.Value)
}

func TestTeamHandler_CreateTeamErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		createErr  error
		wantStatus int
		wantType   errors.ErrorType
	}{
		{"malformed body", `{"team_name":`, nil, http.StatusBadRequest, errors.ErrorTypeValidation},
		{"name taken", `{"team_name":"Owls"}`, errors.NewConflictError(service.MsgTeamNameTaken, nil), http.StatusConflict, errors.ErrorTypeConflict},
		{"store down", `{"team_name":"Owls"}`, errors.NewInternalError(service.MsgSomethingWrong, nil), http.StatusInternalServerError, errors.ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakes()
			f.registry.createErr = tt.createErr

			rec := httptest.NewRecorder()
			playerRouter(f).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/teams", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body errors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantType, body.Error.Type)
			assert.Nil(t, cookieNamed(t, rec, domain.SessionCookieName))
		})
	}
}

func TestTeamHandler_JoinTeam(t *testing.T) {
	f := newFakes()
	router := playerRouter(f)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/teams/team-1/join", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, cookieNamed(t, rec, domain.SessionCookieName))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/teams/missing/join", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTeamHandler_ListJoinable(t *testing.T) {
	f := newFakes()
	f.registry.joinable = []domain.Team{{ID: "a", Name: "Alpha"}}

	rec := httptest.NewRecorder()
	playerRouter(f).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/teams/joinable", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body JoinableTeamsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Teams, 1)
	assert.Equal(t, "Alpha", body.Teams[0].Name)
}

func TestTeamHandler_GetProgress(t *testing.T) {
	f := newFakes()
	f.hunt.progress = &domain.TeamProgress{TeamID: "team-1", TotalPoints: 25, FoundCount: 2, TotalCount: 30}

	rec := httptest.NewRecorder()
	playerRouter(f).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/teams/team-1/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body domain.TeamProgress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 25, body.TotalPoints)

	rec = httptest.NewRecorder()
	playerRouter(f).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/teams/other/progress", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionHandler(t *testing.T) {
	router := playerRouter(newFakes())

	t.Run("no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"session":null}`, rec.Body.String())
	})

	t.Run("valid cookie", func(t *testing.T) {
		encoded, err := domain.EncodeSession(domain.Session{TeamID: "team-1", TeamName: "Night Owls"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		req.AddCookie(&http.Cookie{Name: domain.SessionCookieName, Value: encoded})
		req.AddCookie(&http.Cookie{Name: domain.LastTeamCookieName, Value: "Night+Owls"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.JSONEq(t, `{"session":{"team_id":"team-1","team_name":"Night Owls"},"last_team":"Night Owls"}`, rec.Body.String())
	})

	t.Run("garbage cookie is no session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		req.AddCookie(&http.Cookie{Name: domain.SessionCookieName, Value: "garbage"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.JSONEq(t, `{"session":null}`, rec.Body.String())
	})

	t.Run("logout keeps last team", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/session", nil)
		req.AddCookie(&http.Cookie{Name: domain.LastTeamCookieName, Value: "Night+Owls"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"session":null,"last_team":"Night Owls"}`, rec.Body.String())

		cleared := cookieNamed(t, rec, domain.SessionCookieName)
		require.NotNil(t, cleared)
		assert.Equal(t, -1, cleared.MaxAge)
		assert.Nil(t, cookieNamed(t, rec, domain.LastTeamCookieName))
	})
}

func TestCatalogHandler_ListItems(t *testing.T) {
	cat, err := catalog.New([]domain.Item{
		{ID: "owl", Label: "Barn Owl", Points: 10, ItemType: domain.ItemTypeStandard},
		{ID: "heron", Label: "Grey Heron", Points: 5, ItemType: domain.ItemTypeStandard},
		{ID: "logo", Label: "Sponsor Logo", Points: 20, ItemType: domain.ItemTypeSponsor},
		{ID: domain.HypeVideoItemID, Label: "Hype Video", Points: 15, ItemType: domain.ItemTypeStandard},
	})
	require.NoError(t, err)
	h := NewCatalogHandler(cat)

	rec := httptest.NewRecorder()
	h.ListItems(rec, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body ItemsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Count)
	assert.Equal(t, "logo", body.Items[0].ID)

	rec = httptest.NewRecorder()
	h.ListItems(rec, httptest.NewRequest(http.MethodGet, "/api/items?q=OWL", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "owl", body.Items[0].ID)

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/items?q=OWL", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ListItems(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}
