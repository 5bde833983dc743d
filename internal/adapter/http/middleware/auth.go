package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/iho/genfin/internal/domain"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// UserContextKey is the context key for the authenticated user
	UserContextKey ContextKey = "user"
)

// TokenVerifier turns a bearer token into the user it names.
type TokenVerifier interface {
	Verify(token string) (*domain.User, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// verified user in the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeMiddlewareError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				writeMiddlewareError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			user, err := verifier.Verify(token)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, domain.ErrExpiredToken) {
					msg = "token has expired"
				}
				writeMiddlewareError(w, http.StatusUnauthorized, msg)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets through only users whose role allows minRole.
func RequireRole(minRole domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authorize(w, r, minRole) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoleForWrites applies minRole to every method except GET, HEAD and
// OPTIONS.
func RequireRoleForWrites(minRole domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				if !authorize(w, r, minRole) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authorize(w http.ResponseWriter, r *http.Request, minRole domain.Role) bool {
	user, ok := GetUserFromContext(r.Context())
	if !ok {
		writeMiddlewareError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	if !user.Role.Allows(minRole) {
		writeMiddlewareError(w, http.StatusForbidden, "insufficient permissions: requires "+string(minRole))
		return false
	}
	return true
}

// GetUserFromContext extracts the authenticated user from context
func GetUserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*domain.User)
	return user, ok
}
