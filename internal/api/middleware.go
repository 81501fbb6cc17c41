// Package api implements The Dock REST API using chi.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/dock/internal/apperr"
	"github.com/starford/dock/internal/auth"
)

// AuthMiddleware resolves the bearer token to a user id with v and stores it
// in the request context. Rejected requests get 401.
func AuthMiddleware(v auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get("Authorization"))
			userID, err := v.Verify(r.Context(), token)
			if err != nil {
				msg := "invalid auth token"
				if token == "" {
					msg = "missing auth token"
				}
				if !errors.Is(err, apperr.ErrUnauthorized) {
					slog.Error("auth verify failed", slog.String("error", err.Error()))
				}
				writeJSON(w, http.StatusUnauthorized, errorBody(msg))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}
