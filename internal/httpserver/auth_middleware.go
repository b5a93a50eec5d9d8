package httpserver

import (
	"context"
	"net/http"
	"strings"

	"chatpoll/internal/domain"
	"chatpoll/internal/security"
	"chatpoll/internal/service"
)

type contextKey string

const (
	userContextKey   contextKey = "currentUser"
	claimsContextKey contextKey = "tokenClaims"
)

// WithUser returns a new context carrying the current user and the claims of
// the token that authenticated them.
func WithUser(ctx context.Context, user *domain.User, claims *security.Claims) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, claimsContextKey, claims)
}

// CurrentUser extracts the current user from context, if any.
func CurrentUser(r *http.Request) *domain.User {
	if u, ok := r.Context().Value(userContextKey).(*domain.User); ok {
		return u
	}
	return nil
}

// CurrentClaims extracts the claims of the request's bearer token, if any.
func CurrentClaims(r *http.Request) *security.Claims {
	if c, ok := r.Context().Value(claimsContextKey).(*security.Claims); ok {
		return c
	}
	return nil
}

// AuthMiddleware validates the Bearer token and attaches the user to the context.
func (s *Server) AuthMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if len(authHeader) < len("Bearer ") || !strings.EqualFold(authHeader[:len("Bearer ")], "bearer ") {
				s.writeError(w, r, domain.ErrUnauthenticated)
				return
			}
			tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

			user, claims, err := auth.Authenticate(r.Context(), tokenStr)
			if err != nil {
				s.writeError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user, claims)))
		})
	}
}
