package middleware

import (
	"context"
	"net/http"

	"github.com/amu-events/server/internal/api/problem"
	"github.com/amu-events/server/internal/auth"
	"github.com/amu-events/server/internal/domain/users"
)

const claimsKey contextKey = "session_claims"

// JWTAuth validates the Bearer token on protected routes and stores the
// session claims in the request context. Requests without a valid token
// get a 401 problem response.
func JWTAuth(manager *auth.JWTManager, environment string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized,
					"https://amu.events/problems/unauthorized", "Authentication required",
					err, environment)
				return
			}

			claims, err := manager.Validate(token)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized,
					"https://amu.events/problems/invalid-token", "Invalid or expired token",
					err, environment)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin allows only sessions carrying the ADMIN role. It must run
// after JWTAuth.
func RequireAdmin(environment string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || claims.Role != users.RoleAdmin {
				problem.Write(w, r, http.StatusForbidden,
					"https://amu.events/problems/forbidden", "Admin access required",
					problem.ErrForbidden, environment)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext returns the authenticated session claims, if any.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}
