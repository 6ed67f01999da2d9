package auth

import (
	"context"
	"net/http"
	"strings"

	"venues-server/apperrors"
)

type contextKey struct{}

// ErrorWriter renders an error response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware guards admin routes.
type Middleware struct {
	tokens   *JWTManager
	admins   *AdminAuthenticator
	writeErr ErrorWriter
}

func NewMiddleware(tokens *JWTManager, admins *AdminAuthenticator, writeErr ErrorWriter) *Middleware {
	return &Middleware{tokens: tokens, admins: admins, writeErr: writeErr}
}

// RequireAdmin rejects requests without a valid bearer token for a known
// admin and stores the claims in the request context.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if !strings.HasPrefix(header, "Bearer ") || token == "" {
			m.writeErr(w, r, apperrors.NewUnauthorizedError("You are not logged in! Please log in to get access."))
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			m.writeErr(w, r, apperrors.NewUnauthorizedError("Invalid token. Please log in again."))
			return
		}
		if !m.admins.Knows(claims) {
			m.writeErr(w, r, apperrors.NewUnauthorizedError("The admin belonging to this token no longer exists."))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, claims)))
	})
}

// RestrictTo allows only the given roles. It must run after RequireAdmin.
func (m *Middleware) RestrictTo(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || !hasRole(claims.Role, roles) {
				m.writeErr(w, r, apperrors.NewForbiddenError("You do not have permission to perform this action"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext returns the claims stored by RequireAdmin.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*Claims)
	return claims, ok
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
