package middleware

import (
	"net/http"
	"strings"

	"lilinku-be/internal/auth"
	"lilinku-be/internal/config"
	"lilinku-be/internal/utils"
)

// AuthMiddleware parses a bearer token when present and stores the claims in
// the request context. Anonymous requests pass through; authorization is
// enforced per-route by RequireAdmin.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := extractToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(tokenStr, secret)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := utils.SetUserContext(r.Context(), 0, claims.Email, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates the back-office routes: a valid token whose email is on
// the configured allow-list.
func RequireAdmin(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := utils.GetUserEmailFromContext(r.Context())
			if email == "" || utils.GetUserRoleFromContext(r.Context()) != utils.RoleAdmin {
				utils.WriteJSONError(w, "authentication required", http.StatusUnauthorized)
				return
			}
			if !cfg.IsAdminEmail(email) {
				utils.WriteJSONError(w, "admin access denied", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie("access_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
