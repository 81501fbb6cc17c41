// Package auth resolves bearer tokens to user ids.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/starford/dock/internal/apperr"
)

// DefaultLocalUser owns every record when auth is disabled.
const DefaultLocalUser = "local"

// Verifier maps a bearer token to the id of the user it authenticates.
// Failures wrap apperr.ErrUnauthorized.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Disabled accepts any token, including none, as a single fixed user.
type Disabled struct {
	UserID string
}

// Verify always succeeds.
func (d Disabled) Verify(context.Context, string) (string, error) {
	if d.UserID == "" {
		return DefaultLocalUser, nil
	}
	return d.UserID, nil
}

// Static accepts exactly one configured token.
type Static struct {
	Token  string
	UserID string
}

// Verify compares token with the configured one in constant time.
func (s Static) Verify(_ context.Context, token string) (string, error) {
	if s.Token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.Token)) != 1 {
		return "", fmt.Errorf("auth: invalid token: %w", apperr.ErrUnauthorized)
	}
	if s.UserID == "" {
		return DefaultLocalUser, nil
	}
	return s.UserID, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

type userKey struct{}

// WithUserID returns a context carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID returns the user id stored by WithUserID.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}
