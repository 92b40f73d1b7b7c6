package handler

import (
	"net/http"
	"net/url"
	"time"

	"vntrbirds-be/internal/config"
	"vntrbirds-be/internal/domain"
)

// sessionMaxAge keeps the team binding for the whole event and then some
const sessionMaxAge = 365 * 24 * time.Hour

// CookieOptions controls the attributes of every cookie the API sets
type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
}

// CookieOptionsFor picks cookie attributes for the environment. The player and
// admin frontends live on other origins in production, so cookies there must
// be cross-site.
func CookieOptionsFor(cfg *config.Config) CookieOptions {
	if cfg.IsDevelopment() {
		return CookieOptions{SameSite: http.SameSiteLaxMode}
	}
	return CookieOptions{Secure: true, SameSite: http.SameSiteNoneMode}
}

func (o CookieOptions) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge.Seconds())
		c.Expires = time.Now().Add(maxAge)
	} else {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	}
	return c
}

// setSession stores the session cookie plus the last-team hint
func (o CookieOptions) setSession(w http.ResponseWriter, s domain.Session) error {
	encoded, err := domain.EncodeSession(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, o.cookie(domain.SessionCookieName, encoded, sessionMaxAge))
	http.SetCookie(w, o.cookie(domain.LastTeamCookieName, url.QueryEscape(s.TeamName), sessionMaxAge))
	return nil
}

// clearSession drops the session cookie; the last-team hint stays
func (o CookieOptions) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, o.cookie(domain.SessionCookieName, "", 0))
}

// readSession returns the request's session, or nil when it is absent or unreadable
func readSession(r *http.Request) *domain.Session {
	c, err := r.Cookie(domain.SessionCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	s, err := domain.DecodeSession(c.Value)
	if err != nil {
		return nil
	}
	return &s
}

// readLastTeam returns the last team name used on this client
func readLastTeam(r *http.Request) string {
	c, err := r.Cookie(domain.LastTeamCookieName)
	if err != nil {
		return ""
	}
	name, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return name
}
