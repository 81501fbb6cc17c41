package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/starford/dock/internal/apperr"
)

// allowedAlgs prevents algorithm confusion.
var allowedAlgs = []string{"RS256", "ES256"}

// JWT verifies signed tokens and uses the subject claim as the user id.
type JWT struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
}

// NewJWT verifies tokens with keys from kf. Audience and issuer are checked
// when non-empty.
func NewJWT(kf jwt.Keyfunc, audience, issuer string) *JWT {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(allowedAlgs),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &JWT{keyfunc: kf, parser: jwt.NewParser(opts...)}
}

// NewJWKS fetches signing keys from jwksURL. Keys are cached and refreshed in
// the background until ctx is done.
func NewJWKS(ctx context.Context, jwksURL, audience, issuer string) (*JWT, error) {
	if jwksURL == "" {
		return nil, errors.New("auth: jwks url cannot be empty")
	}
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("auth: create jwks client: %w", err)
	}
	slog.Info("jwt verifier initialized", slog.String("jwks_url", jwksURL))
	return NewJWT(jwks.Keyfunc, audience, issuer), nil
}

// Verify parses and validates token.
func (v *JWT) Verify(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("auth: missing token: %w", apperr.ErrUnauthorized)
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, v.keyfunc)
	if err != nil {
		slog.Debug("jwt rejected", slog.String("error", err.Error()))
		return "", fmt.Errorf("auth: %w", apperr.ErrUnauthorized)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject: %w", apperr.ErrUnauthorized)
	}
	return claims.Subject, nil
}
