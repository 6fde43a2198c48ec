package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/harborlights/harbor/internal/store"
)

// TokenResolver maps a bearer token to the holder's user id and role.
// *store.UserStore satisfies it.
type TokenResolver interface {
	RoleByToken(ctx context.Context, token string) (userID, role string, err error)
}

type contextKey string

const userIDContextKey contextKey = "harbor_user_id"

// requireAdmin rejects requests that do not carry a bearer token resolving
// to an admin user. Migration endpoints mutate real volunteer records, so
// the check runs before any orchestration work starts.
func requireAdmin(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				sendJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
				return
			}

			userID, role, err := resolver.RoleByToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					sendJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired token"})
					return
				}
				sendJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to verify token"})
				return
			}
			if role != "admin" {
				sendJSON(w, http.StatusForbidden, errorResponse{Error: "admin access required"})
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// userIDFromContext returns the authenticated caller's user id.
func userIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDContextKey).(string)
	return userID
}
