package middleware

import (
	"context"
	"net/http"
	"strings"

	"vntrbirds-be/internal/domain"
	"vntrbirds-be/internal/service"
	"vntrbirds-be/pkg/errors"
	"vntrbirds-be/pkg/logger"
)

// AdminToken extracts an admin token from the Authorization header or the admin cookie
func AdminToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if cookie, err := r.Cookie(domain.AdminCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAdmin rejects requests without a valid admin token
func RequireAdmin(adminService service.AdminService, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := AdminToken(r)
			if token == "" {
				WriteError(w, r, errors.NewAuthenticationError(service.MsgAdminRequired), logger)
				return
			}

			claims, err := adminService.ValidateToken(r.Context(), token)
			if err != nil {
				appErr, ok := errors.AsAppError(err)
				if !ok {
					appErr = errors.NewAuthenticationError(service.MsgAdminRequired)
				}
				WriteError(w, r, appErr, logger)
				return
			}

			ctx := context.WithValue(r.Context(), AdminClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminClaims returns the claims stored by RequireAdmin
func GetAdminClaims(ctx context.Context) (*service.AdminClaims, bool) {
	claims, ok := ctx.Value(AdminClaimsContextKey).(*service.AdminClaims)
	return claims, ok && claims != nil
}
